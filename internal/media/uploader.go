package media

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var ErrNotConfigured = errors.New("media upload is not configured")

// Uploader stores a prepared photo and returns its public https URL.
type Uploader interface {
	Upload(ctx context.Context, photo Photo) (string, error)
}

type Backend string

const (
	BackendCloudinary Backend = "cloudinary"
	BackendS3         Backend = "s3"
)

type Config struct {
	Backend Backend

	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string

	S3Bucket        string
	S3Region        string
	S3Endpoint      string
	S3AccessKey     string
	S3SecretKey     string
	S3PublicBaseURL string
}

func ParseBackend(raw string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "cloudinary":
		return BackendCloudinary, nil
	case "s3":
		return BackendS3, nil
	default:
		return "", fmt.Errorf("unsupported media backend %q", raw)
	}
}

// Missing lists the settings the selected backend still needs.
func (c Config) Missing() []string {
	var missing []string
	need := func(name, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	switch c.Backend {
	case BackendS3:
		need("S3_BUCKET", c.S3Bucket)
		need("S3_REGION", c.S3Region)
		need("S3_ACCESS_KEY", c.S3AccessKey)
		need("S3_SECRET_KEY", c.S3SecretKey)
		need("S3_PUBLIC_BASE_URL", c.S3PublicBaseURL)
	default:
		need("CLOUDINARY_CLOUD_NAME", c.CloudinaryCloudName)
		need("CLOUDINARY_API_KEY", c.CloudinaryAPIKey)
		need("CLOUDINARY_API_SECRET", c.CloudinaryAPISecret)
	}
	return missing
}

// NewUploader builds the configured backend. Missing settings yield an
// error wrapping ErrNotConfigured.
func NewUploader(ctx context.Context, cfg Config) (Uploader, error) {
	if missing := cfg.Missing(); len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", ErrNotConfigured, strings.Join(missing, ", "))
	}
	switch cfg.Backend {
	case BackendS3:
		return NewS3Uploader(ctx, cfg)
	default:
		return NewCloudinaryUploader(cfg)
	}
}

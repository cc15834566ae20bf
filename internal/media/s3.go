package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader writes photos to an S3-compatible bucket and returns a URL
// under the configured public base.
type S3Uploader struct {
	client     putObjectAPI
	bucket     string
	publicBase string
	now        func() time.Time
	newID      func() string
}

func NewS3Uploader(ctx context.Context, cfg Config) (*S3Uploader, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3AccessKey,
			cfg.S3SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("load s3 config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint := strings.TrimSpace(cfg.S3Endpoint); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	return newS3Uploader(client, cfg.S3Bucket, cfg.S3PublicBaseURL)
}

func newS3Uploader(client putObjectAPI, bucket, publicBase string) (*S3Uploader, error) {
	publicBase = strings.TrimRight(strings.TrimSpace(publicBase), "/")
	if !strings.HasPrefix(publicBase, "https://") {
		return nil, errors.New("S3_PUBLIC_BASE_URL must be an https URL")
	}
	return &S3Uploader{
		client:     client,
		bucket:     bucket,
		publicBase: publicBase,
		now:        time.Now,
		newID:      func() string { return uuid.NewString() },
	}, nil
}

// ObjectKey is <folder>/<yyyy>/<mm>/<uuid>.jpg.
func (u *S3Uploader) ObjectKey() string {
	now := u.now()
	return fmt.Sprintf("%s/%04d/%02d/%s.jpg", Folder, now.Year(), int(now.Month()), u.newID())
}

func (u *S3Uploader) Upload(ctx context.Context, photo Photo) (string, error) {
	if len(photo.Data) == 0 {
		return "", ErrEmptyPhoto
	}
	contentType := photo.ContentType
	if contentType == "" {
		contentType = "image/jpeg"
	}
	key := u.ObjectKey()
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(photo.Data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(photo.Data))),
	})
	if err != nil {
		return "", fmt.Errorf("s3 upload: %w", err)
	}
	return u.publicBase + "/" + key, nil
}

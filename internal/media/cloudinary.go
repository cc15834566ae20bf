package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

type cloudinaryAPI interface {
	Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error)
}

type CloudinaryUploader struct {
	api    cloudinaryAPI
	folder string
}

func NewCloudinaryUploader(cfg Config) (*CloudinaryUploader, error) {
	cld, err := cloudinary.NewFromParams(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
	if err != nil {
		return nil, fmt.Errorf("cloudinary client: %w", err)
	}
	return &CloudinaryUploader{api: &cld.Upload, folder: Folder}, nil
}

func (u *CloudinaryUploader) Upload(ctx context.Context, photo Photo) (string, error) {
	if len(photo.Data) == 0 {
		return "", ErrEmptyPhoto
	}
	res, err := u.api.Upload(ctx, bytes.NewReader(photo.Data), uploader.UploadParams{
		Folder:       u.folder,
		ResourceType: "image",
	})
	if err != nil {
		return "", fmt.Errorf("cloudinary upload: %w", err)
	}
	if res == nil {
		return "", errors.New("cloudinary upload: empty response")
	}
	if msg := strings.TrimSpace(res.Error.Message); msg != "" {
		return "", fmt.Errorf("cloudinary upload: %s", msg)
	}
	if !strings.HasPrefix(res.SecureURL, "https://") {
		return "", errors.New("cloudinary upload: response has no secure_url")
	}
	return res.SecureURL, nil
}

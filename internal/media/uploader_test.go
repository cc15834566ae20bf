package media

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCloudinary struct {
	params uploader.UploadParams
	body   []byte
	result *uploader.UploadResult
	err    error
}

func (f *fakeCloudinary) Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error) {
	f.params = params
	if r, ok := file.(io.Reader); ok {
		f.body, _ = io.ReadAll(r)
	}
	return f.result, f.err
}

func TestCloudinaryUploader_ReturnsSecureURL(t *testing.T) {
	fake := &fakeCloudinary{result: &uploader.UploadResult{SecureURL: "https://res.cloudinary.com/demo/image/upload/v1/solicitacoes_manutencao/abc.jpg"}}
	u := &CloudinaryUploader{api: fake, folder: Folder}

	url, err := u.Upload(context.Background(), Photo{Data: []byte("jpeg-bytes"), ContentType: "image/jpeg"})
	require.NoError(t, err)
	assert.Equal(t, fake.result.SecureURL, url)
	assert.Equal(t, "solicitacoes_manutencao", fake.params.Folder)
	assert.Equal(t, []byte("jpeg-bytes"), fake.body)
}

func TestCloudinaryUploader_Failures(t *testing.T) {
	tests := []struct {
		name string
		fake *fakeCloudinary
	}{
		{"transport", &fakeCloudinary{err: errors.New("timeout")}},
		{"api error", &fakeCloudinary{result: &uploader.UploadResult{Error: api.ErrorResp{Message: "Invalid Signature"}}}},
		{"nil result", &fakeCloudinary{}},
		{"insecure url", &fakeCloudinary{result: &uploader.UploadResult{SecureURL: "http://insecure/x.jpg"}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			u := &CloudinaryUploader{api: tc.fake, folder: Folder}
			_, err := u.Upload(context.Background(), Photo{Data: []byte("x")})
			assert.Error(t, err)
		})
	}
}

func TestCloudinaryUploader_EmptyPhoto(t *testing.T) {
	u := &CloudinaryUploader{api: &fakeCloudinary{}, folder: Folder}
	_, err := u.Upload(context.Background(), Photo{})
	assert.ErrorIs(t, err, ErrEmptyPhoto)
}

type fakeS3 struct {
	input *s3.PutObjectInput
	err   error
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = params
	return &s3.PutObjectOutput{}, f.err
}

func TestS3Uploader_KeyAndURL(t *testing.T) {
	fake := &fakeS3{}
	u, err := newS3Uploader(fake, "fotos", "https://cdn.example.com/")
	require.NoError(t, err)
	u.now = func() time.Time { return time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC) }
	u.newID = func() string { return "0b7c" }

	url, err := u.Upload(context.Background(), Photo{Data: []byte("jpeg"), ContentType: "image/jpeg"})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/solicitacoes_manutencao/2024/03/0b7c.jpg", url)
	require.NotNil(t, fake.input)
	assert.Equal(t, "fotos", *fake.input.Bucket)
	assert.Equal(t, "solicitacoes_manutencao/2024/03/0b7c.jpg", *fake.input.Key)
	assert.Equal(t, "image/jpeg", *fake.input.ContentType)
}

func TestS3Uploader_Errors(t *testing.T) {
	_, err := newS3Uploader(&fakeS3{}, "fotos", "http://plain")
	assert.Error(t, err)

	u, err := newS3Uploader(&fakeS3{err: errors.New("access denied")}, "fotos", "https://cdn.example.com")
	require.NoError(t, err)
	_, err = u.Upload(context.Background(), Photo{Data: []byte("x")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}

func TestConfigMissingAndParseBackend(t *testing.T) {
	missing := Config{Backend: BackendCloudinary, CloudinaryCloudName: "demo"}.Missing()
	assert.Equal(t, []string{"CLOUDINARY_API_KEY", "CLOUDINARY_API_SECRET"}, missing)

	missing = Config{Backend: BackendS3}.Missing()
	assert.Len(t, missing, 5)

	_, err := NewUploader(context.Background(), Config{Backend: BackendCloudinary})
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.True(t, strings.Contains(err.Error(), "CLOUDINARY_CLOUD_NAME"))

	b, err := ParseBackend("")
	require.NoError(t, err)
	assert.Equal(t, BackendCloudinary, b)
	b, err = ParseBackend("S3")
	require.NoError(t, err)
	assert.Equal(t, BackendS3, b)
	_, err = ParseBackend("ftp")
	assert.Error(t, err)
}

package webapp

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/phillip-england/maintreq/internal/media"
)

var (
	errUploadUnreadable = errors.New("unable to read uploaded file")
	errUploadTooLarge   = errors.New("uploaded file is too large")
)

// parseOptionalUploadedFile reads the named multipart file. ok is false when
// the field was left empty. The multipart form must already be parsed.
func parseOptionalUploadedFile(r *http.Request, fieldName string, maxBytes int64) ([]byte, bool, error) {
	if r.MultipartForm == nil {
		return nil, false, nil
	}
	file, header, err := r.FormFile(fieldName)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || strings.Contains(strings.ToLower(err.Error()), "no such file") {
			return nil, false, nil
		}
		return nil, false, errUploadUnreadable
	}
	defer file.Close()
	if header.Size == 0 && strings.TrimSpace(header.Filename) == "" {
		return nil, false, nil
	}
	raw, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		return nil, false, errUploadUnreadable
	}
	if len(raw) == 0 {
		return nil, false, nil
	}
	if int64(len(raw)) > maxBytes {
		return nil, false, errUploadTooLarge
	}
	return raw, true, nil
}

func photoErrorMessage(err error) string {
	switch {
	case errors.Is(err, media.ErrUnsupportedPhoto):
		return "A foto deve ser PNG, JPEG ou WEBP."
	case errors.Is(err, media.ErrPhotoTooLarge), errors.Is(err, errUploadTooLarge):
		return "A foto excede o limite de 10 MB."
	case errors.Is(err, media.ErrUndecodablePhoto), errors.Is(err, media.ErrEmptyPhoto):
		return "Não foi possível ler a foto enviada."
	default:
		return "Erro ao enviar a imagem. Tente novamente."
	}
}

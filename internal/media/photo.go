// Package media prepares request photos and hands them to a hosted media
// backend that returns a public https URL.
package media

import (
	"bytes"
	"errors"
	"image"
	stddraw "image/draw"
	"image/jpeg"
	_ "image/png"
	"net/http"

	"golang.org/x/image/draw"
	"golang.org/x/image/webp"
)

const (
	// Folder groups every uploaded photo on the backend.
	Folder = "solicitacoes_manutencao"

	MaxUploadBytes = 10 << 20
	MaxEdge        = 1600
	jpegQuality    = 85
)

var (
	ErrEmptyPhoto       = errors.New("photo file is empty")
	ErrPhotoTooLarge    = errors.New("photo exceeds 10 MiB")
	ErrUnsupportedPhoto = errors.New("photo must be png, jpeg, or webp")
	ErrUndecodablePhoto = errors.New("unable to decode photo")
)

var allowedMimes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/webp": true,
}

// Photo is an upload-ready JPEG.
type Photo struct {
	Data        []byte
	ContentType string
	Width       int
	Height      int
}

// PreparePhoto validates raw bytes by content sniffing, decodes them, shrinks
// the longest edge to MaxEdge and re-encodes as JPEG.
func PreparePhoto(raw []byte) (Photo, error) {
	if len(raw) == 0 {
		return Photo{}, ErrEmptyPhoto
	}
	if len(raw) > MaxUploadBytes {
		return Photo{}, ErrPhotoTooLarge
	}
	if !allowedMimes[http.DetectContentType(raw)] {
		return Photo{}, ErrUnsupportedPhoto
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		decoded, webpErr := webp.Decode(bytes.NewReader(raw))
		if webpErr != nil {
			return Photo{}, ErrUndecodablePhoto
		}
		img = decoded
	}

	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return Photo{}, ErrUndecodablePhoto
	}
	w, h := fitWithin(bounds.Dx(), bounds.Dy(), MaxEdge)

	// JPEG has no alpha; flatten onto white first.
	canvas := image.NewRGBA(image.Rect(0, 0, w, h))
	stddraw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, stddraw.Src)
	if w == bounds.Dx() && h == bounds.Dy() {
		stddraw.Draw(canvas, canvas.Bounds(), img, bounds.Min, stddraw.Over)
	} else {
		draw.CatmullRom.Scale(canvas, canvas.Bounds(), img, bounds, draw.Over, nil)
	}

	var out bytes.Buffer
	if err := jpeg.Encode(&out, canvas, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return Photo{}, errors.New("unable to encode photo")
	}
	return Photo{Data: out.Bytes(), ContentType: "image/jpeg", Width: w, Height: h}, nil
}

// fitWithin scales (w, h) down so the longest edge is at most limit, keeping
// the aspect ratio. Smaller images are left alone.
func fitWithin(w, h, limit int) (int, int) {
	if w <= limit && h <= limit {
		return w, h
	}
	if w >= h {
		nh := h * limit / w
		if nh < 1 {
			nh = 1
		}
		return limit, nh
	}
	nw := w * limit / h
	if nw < 1 {
		nw = 1
	}
	return nw, limit
}

package loader

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/h2non/filetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	// MaxUploadBytes caps user-supplied character images.
	MaxUploadBytes = 20 << 20
	// MaxPixels caps the decoded size of any image. A small file can claim
	// dimensions that would not fit in memory once decoded.
	MaxPixels = 40_000_000
)

var (
	ErrNotImage = errors.New("file is not an image")
	ErrTooLarge = errors.New("image file too large")
	ErrDecode   = errors.New("image could not be decoded")
)

// Decode sniffs data and decodes it into an image.
// It returns the detected MIME type alongside the image.
func Decode(data []byte) (image.Image, string, error) {
	if len(data) == 0 || !filetype.IsImage(data) {
		return nil, "", ErrNotImage
	}
	kind, err := filetype.Match(data)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrNotImage, err)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, kind.MIME.Value, fmt.Errorf("%w (%s): %v", ErrDecode, kind.MIME.Value, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, kind.MIME.Value, fmt.Errorf("%w: empty image", ErrDecode)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, kind.MIME.Value, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrTooLarge, cfg.Width, cfg.Height, MaxPixels)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, kind.MIME.Value, fmt.Errorf("%w (%s): %v", ErrDecode, kind.MIME.Value, err)
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, kind.MIME.Value, fmt.Errorf("%w: empty image", ErrDecode)
	}
	return img, kind.MIME.Value, nil
}

// DecodeUpload validates and decodes a user upload.
// Failures wrap ErrTooLarge, ErrNotImage or ErrDecode and are safe to show to the user.
func DecodeUpload(data []byte) (image.Image, error) {
	if len(data) > MaxUploadBytes {
		return nil, fmt.Errorf("%w (%d bytes, limit %d)", ErrTooLarge, len(data), MaxUploadBytes)
	}
	img, _, err := Decode(data)
	return img, err
}

// Package export turns a rendered surface into a downloadable PNG.
package export

import (
	"bytes"
	"image"
	"image/png"
	"io"
	"strings"
	"time"
	"unicode"
)

const (
	DefaultPrefix = "composite"

	// timestampLayout is ISO-8601 with millisecond precision in UTC.
	timestampLayout = "2006-01-02T15:04:05.000Z"
)

// Filename returns "<prefix>-<timestamp>.png" where the UTC timestamp has
// ':' and '.' replaced by '-', e.g. thumbnail-2026-10-18T09-05-03-042Z.png.
func Filename(prefix string, at time.Time) string {
	stamp := at.UTC().Format(timestampLayout)
	stamp = strings.NewReplacer(":", "-", ".", "-").Replace(stamp)
	return SanitizePrefix(prefix) + "-" + stamp + ".png"
}

// SanitizePrefix replaces characters that are unsafe in filenames with '-'.
func SanitizePrefix(prefix string) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return DefaultPrefix
	}
	return strings.Map(func(r rune) rune {
		switch {
		case unicode.IsSpace(r), unicode.IsControl(r):
			return '-'
		case strings.ContainsRune(`/\:*?"<>|.`, r):
			return '-'
		}
		return r
	}, prefix)
}

// EncodePNG writes img losslessly.
func EncodePNG(w io.Writer, img image.Image) error {
	enc := png.Encoder{CompressionLevel: png.DefaultCompression}
	return enc.Encode(w, img)
}

// PNG encodes img into a byte slice.
func PNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodePNG(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

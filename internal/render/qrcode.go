package render

import (
	"errors"
	"image"

	"github.com/skip2/go-qrcode"
)

const defaultQRCodeSizePx = 256

// EditorQRCode returns a QR code pointing at the editor URL, for phones and
// other devices that want to open the session.
func EditorQRCode(url string, sizePx int) (image.Image, error) {
	if url == "" {
		return nil, errors.New("empty editor url")
	}
	if sizePx <= 0 {
		sizePx = defaultQRCodeSizePx
	}
	qrCode, err := qrcode.New(url, qrcode.Medium)
	if err != nil {
		return nil, err
	}
	qrCode.ForegroundColor = Foreground
	qrCode.BackgroundColor = Background
	return qrCode.Image(sizePx), nil
}

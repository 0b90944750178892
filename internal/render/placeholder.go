package render

import (
	"image"
	"image/color"
	"image/draw"
	"sync"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/rook-computer/composer/internal/assets"
)

const placeholderFontSize = 18

// Labeler draws placeholder boxes with a centered caption.
// It uses the embedded TrueType font via freetype and falls back to basicfont.
type Labeler struct {
	// mu serializes drawing; truetype faces cache glyphs internally.
	mu     sync.Mutex
	ttFont *truetype.Font
	face   font.Face
}

func NewLabeler() *Labeler {
	l := &Labeler{}
	if tt, err := freetype.ParseFont(assets.FontTTF); err == nil {
		l.ttFont = tt
		l.face = truetype.NewFace(tt, &truetype.Options{Size: placeholderFontSize, DPI: 72, Hinting: font.HintingNone})
	} else {
		l.face = basicfont.Face7x13
	}
	return l
}

// Placeholder tints rect with the foreground color, outlines it and writes label in its center.
func (l *Labeler) Placeholder(dst *image.RGBA, rect image.Rectangle, label string) {
	rect = rect.Intersect(dst.Bounds())
	if rect.Empty() {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	tint := color.NRGBA{R: Foreground.R, G: Foreground.G, B: Foreground.B, A: 0x60}
	draw.Draw(dst, rect, image.NewUniform(tint), image.Point{}, draw.Over)
	outline(dst, rect, Foreground)

	textWidth := font.MeasureString(l.face, label).Ceil()
	metrics := l.face.Metrics()
	x := rect.Min.X + (rect.Dx()-textWidth)/2
	baseline := rect.Min.Y + (rect.Dy()+metrics.Ascent.Ceil()-metrics.Descent.Ceil())/2

	if l.ttFont == nil {
		drawer := &font.Drawer{Dst: dst, Src: image.NewUniform(Background), Face: l.face, Dot: fixed.P(x, baseline)}
		drawer.DrawString(label)
		return
	}
	ctx := freetype.NewContext()
	ctx.SetDPI(72)
	ctx.SetFont(l.ttFont)
	ctx.SetFontSize(placeholderFontSize)
	ctx.SetHinting(font.HintingNone)
	ctx.SetClip(rect)
	ctx.SetDst(dst)
	ctx.SetSrc(image.NewUniform(Background))
	_, _ = ctx.DrawString(label, freetype.Pt(x, baseline))
}

func outline(dst *image.RGBA, rect image.Rectangle, c color.Color) {
	src := image.NewUniform(c)
	draw.Draw(dst, image.Rect(rect.Min.X, rect.Min.Y, rect.Max.X, rect.Min.Y+1), src, image.Point{}, draw.Src)
	draw.Draw(dst, image.Rect(rect.Min.X, rect.Max.Y-1, rect.Max.X, rect.Max.Y), src, image.Point{}, draw.Src)
	draw.Draw(dst, image.Rect(rect.Min.X, rect.Min.Y, rect.Min.X+1, rect.Max.Y), src, image.Point{}, draw.Src)
	draw.Draw(dst, image.Rect(rect.Max.X-1, rect.Min.Y, rect.Max.X, rect.Max.Y), src, image.Point{}, draw.Src)
}

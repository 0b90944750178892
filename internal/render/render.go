package render

import (
	"context"
	"image"
	"image/draw"
	"sync"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/rook-computer/composer/internal/render/layout"
)

type Layer int

const (
	LayerBackground Layer = iota
	LayerCharacter
	LayerOverlay
)

func (l Layer) String() string {
	switch l {
	case LayerBackground:
		return "background"
	case LayerCharacter:
		return "character"
	case LayerOverlay:
		return "overlay"
	default:
		return "unknown"
	}
}

// Frame is everything one composite needs. A nil image means the layer is
// absent or failed to load and is skipped.
type Frame struct {
	Background image.Image
	Overlay    image.Image

	Character image.Image
	// Placement is where the character is drawn; its size already includes the scale.
	Placement layout.Box

	// Failed lists layers whose image could not be loaded for this frame.
	Failed []Layer
}

// Compositor draws frames into surfaces of one preset.
type Compositor struct {
	Preset Preset
	// Placeholders marks failed layers with a labelled stand-in instead of leaving a gap.
	Placeholders bool

	labelerOnce sync.Once
	labeler     *Labeler
}

func NewCompositor(preset Preset) *Compositor {
	return &Compositor{Preset: preset}
}

// Compose returns a fresh surface with the frame drawn in order:
// background, character, overlay. The returned box is the character's
// displayed bounds, empty when no character was drawn.
// Compose is safe to call from several goroutines.
func (c *Compositor) Compose(frame Frame) (*image.RGBA, layout.Box) {
	surface := image.NewRGBA(image.Rect(0, 0, c.Preset.Width, c.Preset.Height))
	bounds := surface.Bounds()

	if frame.Background != nil {
		xdraw.ApproxBiLinear.Scale(surface, bounds, frame.Background, frame.Background.Bounds(), draw.Over, nil)
	} else if c.failed(frame, LayerBackground) {
		c.placeholder(surface, bounds, LayerBackground)
	}

	var box layout.Box
	if frame.Character != nil && !frame.Placement.Empty() {
		dst := frame.Placement.Rect()
		if !dst.Empty() {
			drawScaled(surface, dst, frame.Character)
			box = frame.Placement
		}
	} else if c.failed(frame, LayerCharacter) && !frame.Placement.Empty() {
		c.placeholder(surface, frame.Placement.Rect(), LayerCharacter)
	}

	if frame.Overlay != nil {
		xdraw.ApproxBiLinear.Scale(surface, bounds, frame.Overlay, frame.Overlay.Bounds(), draw.Over, nil)
	} else if c.failed(frame, LayerOverlay) {
		_, band := layout.SplitHorizontal(bounds, bounds.Dy()-bounds.Dy()/8)
		c.placeholder(surface, band, LayerOverlay)
	}
	return surface, box
}

// drawScaled draws src stretched over dr. Only the part of dr that lands on
// surface is computed, so a placement far larger than the surface costs no
// more than one that fits.
func drawScaled(surface *image.RGBA, dr image.Rectangle, src image.Image) {
	sr := src.Bounds()
	if sr.Empty() || !dr.Overlaps(surface.Bounds()) {
		return
	}
	sx := float64(dr.Dx()) / float64(sr.Dx())
	sy := float64(dr.Dy()) / float64(sr.Dy())
	s2d := f64.Aff3{
		sx, 0, float64(dr.Min.X) - float64(sr.Min.X)*sx,
		0, sy, float64(dr.Min.Y) - float64(sr.Min.Y)*sy,
	}
	xdraw.CatmullRom.Transform(surface, s2d, src, sr, draw.Over, nil)
}

func (c *Compositor) failed(frame Frame, layer Layer) bool {
	if !c.Placeholders {
		return false
	}
	for _, l := range frame.Failed {
		if l == layer {
			return true
		}
	}
	return false
}

func (c *Compositor) placeholder(surface *image.RGBA, rect image.Rectangle, layer Layer) {
	c.labelerOnce.Do(func() { c.labeler = NewLabeler() })
	c.labeler.Placeholder(surface, rect, layer.String()+" unavailable")
}

// Mirror shows applied frames on a secondary output.
type Mirror interface {
	Start(ctx context.Context) error
	Stop() error
	ShowSplash(url string)
	Show(frame *image.RGBA)
}

type NoopMirror struct{}

func (NoopMirror) Start(ctx context.Context) error { return nil }
func (NoopMirror) Stop() error                     { return nil }
func (NoopMirror) ShowSplash(url string)           {}
func (NoopMirror) Show(frame *image.RGBA)          {}

package layout

import (
	"image"
	"math"
)

// Box is an axis-aligned rectangle in surface coordinates.
// Positions stay fractional so pointer math does not drift between events.
type Box struct {
	X, Y float64
	W, H float64
}

// Empty reports whether the box has no area.
func (b Box) Empty() bool { return b.W <= 0 || b.H <= 0 }

func (b Box) Right() float64  { return b.X + b.W }
func (b Box) Bottom() float64 { return b.Y + b.H }

// Contains reports whether (x, y) lies inside b. All four edges are inclusive.
func (b Box) Contains(x, y float64) bool {
	if b.Empty() {
		return false
	}
	return x >= b.X && x <= b.Right() && y >= b.Y && y <= b.Bottom()
}

// AnchorBottomRight returns a square of sizePx placed in the bottom-right corner of b.
// The square is clamped to b when b is smaller than sizePx on either axis.
func AnchorBottomRight(b Box, sizePx float64) Box {
	if sizePx < 0 {
		sizePx = 0
	}
	w := math.Min(sizePx, math.Max(b.W, 0))
	h := math.Min(sizePx, math.Max(b.H, 0))
	return Box{X: b.Right() - w, Y: b.Bottom() - h, W: w, H: h}
}

// Rect converts b to the pixel rectangle used for drawing.
// The origin is rounded and the size rounded independently so that moving a
// layer never changes its drawn dimensions.
// Coordinates are clamped to ±MaxCoord so the integer result cannot overflow.
func (b Box) Rect() image.Rectangle {
	x := pixels(b.X)
	y := pixels(b.Y)
	w := pixels(b.W)
	h := pixels(b.H)
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return image.Rect(x, y, x+w, y+h)
}

// MaxCoord bounds every pixel coordinate produced by Rect.
const MaxCoord = 1 << 28

func pixels(v float64) int {
	switch {
	case math.IsNaN(v):
		return 0
	case v > MaxCoord:
		return MaxCoord
	case v < -MaxCoord:
		return -MaxCoord
	}
	return int(math.Round(v))
}

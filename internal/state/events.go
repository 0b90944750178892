package state

import (
	"math"

	"github.com/rook-computer/composer/internal/render/layout"
)

// Event is an input to Reduce. The set is closed; see the types below.
type Event interface{ isEvent() }

type PointerDown struct{ X, Y float64 }
type PointerMove struct{ X, Y float64 }
type PointerUp struct{}
type PointerLeave struct{}

type SelectBackground struct{ Index int }
type SelectOverlay struct{ Index int }

// CharacterLoaded replaces the layer image. Placement is kept when a layer already exists.
type CharacterLoaded struct {
	Source string
	Width  int
	Height int
}

// Rendered feeds the displayed character box of an applied frame back into
// hit-testing. Frames older than the one Box came from are ignored.
type Rendered struct {
	Generation uint64
	Box        layout.Box
}

func (PointerDown) isEvent()      {}
func (PointerMove) isEvent()      {}
func (PointerUp) isEvent()        {}
func (PointerLeave) isEvent()     {}
func (SelectBackground) isEvent() {}
func (SelectOverlay) isEvent()    {}
func (CharacterLoaded) isEvent()  {}
func (Rendered) isEvent()         {}

// Reduce returns the state that results from applying ev to s.
// It is pure: s is never modified and the same inputs always give the same output.
func Reduce(s State, ev Event) State {
	next := s
	switch e := ev.(type) {
	case PointerDown:
		next = pointerDown(s, e)
	case PointerMove:
		next = pointerMove(s, e)
	case PointerUp, PointerLeave:
		next.Mode = Idle
		next.Offset = Point{}
	case SelectBackground:
		next.Background = e.Index
	case SelectOverlay:
		next.Overlay = e.Index
	case CharacterLoaded:
		layer := s.Character
		if !layer.Present() {
			layer = Layer{Scale: 1}
		}
		layer.Source = e.Source
		layer.Width = e.Width
		layer.Height = e.Height
		next.Character = layer
	case Rendered:
		if e.Generation >= s.BoxGeneration && e.Generation <= s.Generation {
			next.Box = e.Box
			next.BoxGeneration = e.Generation
		}
	}
	if next.RenderInputs() != s.RenderInputs() {
		next.Generation = s.Generation + 1
	}
	return next
}

func pointerDown(s State, e PointerDown) State {
	if s.Mode != Idle || !s.Character.Present() || !s.Box.Contains(e.X, e.Y) {
		return s
	}
	next := s
	next.Offset = Point{X: e.X - s.Character.Pos.X, Y: e.Y - s.Character.Pos.Y}
	if layout.AnchorBottomRight(s.Box, HandleSizePx).Contains(e.X, e.Y) {
		next.Mode = Resizing
	} else {
		next.Mode = Dragging
	}
	return next
}

func pointerMove(s State, e PointerMove) State {
	next := s
	switch s.Mode {
	case Dragging:
		next.Character.Pos = Point{X: e.X - s.Offset.X, Y: e.Y - s.Offset.Y}
	case Resizing:
		if s.Box.Empty() {
			return s
		}
		ratio := math.Min((e.X-s.Character.Pos.X)/s.Box.W, (e.Y-s.Character.Pos.Y)/s.Box.H)
		next.Character.Scale = ClampScale(ratio)
	}
	return next
}

// ClampScale floors scale at MinScale. NaN is treated as degenerate.
func ClampScale(scale float64) float64 {
	if math.IsNaN(scale) || scale < MinScale {
		return MinScale
	}
	return scale
}

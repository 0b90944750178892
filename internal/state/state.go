package state

import (
	"sync"

	"github.com/rook-computer/composer/internal/render/layout"
)

type Mode int

const (
	Idle Mode = iota
	Dragging
	Resizing
)

func (m Mode) String() string {
	switch m {
	case Dragging:
		return "dragging"
	case Resizing:
		return "resizing"
	default:
		return "idle"
	}
}

const (
	// HandleSizePx is the edge length of the resize handle at the layer's bottom-right corner.
	HandleSizePx = 20

	// MinScale is the floor applied to every computed scale factor.
	MinScale = 0.01
)

type Point struct {
	X float64
	Y float64
}

// Layer is the character cut-out placed over the background.
type Layer struct {
	// Source identifies the decoded upload; empty means no character yet.
	Source string
	Width  int
	Height int

	Pos   Point
	Scale float64
}

func (l Layer) Present() bool { return l.Source != "" }

// Displayed returns the box the layer covers at its current position and scale.
func (l Layer) Displayed() layout.Box {
	if !l.Present() {
		return layout.Box{}
	}
	return layout.Box{X: l.Pos.X, Y: l.Pos.Y, W: float64(l.Width) * l.Scale, H: float64(l.Height) * l.Scale}
}

// RenderInputs is the part of State that determines the composited pixels.
type RenderInputs struct {
	Background int
	Overlay    int
	Character  Layer
}

// State is one immutable editor snapshot. Values are replaced, never mutated in place.
type State struct {
	Background int
	Overlay    int
	Character  Layer

	Mode   Mode
	Offset Point
	// Box is the character's bounding box as of the last applied frame.
	Box layout.Box
	// BoxGeneration is the generation of the frame Box was taken from.
	BoxGeneration uint64

	// Generation increases whenever RenderInputs change.
	Generation uint64
}

func Initial() State {
	return State{Character: Layer{Scale: 1}}
}

func (s State) RenderInputs() RenderInputs {
	return RenderInputs{Background: s.Background, Overlay: s.Overlay, Character: s.Character}
}

type Store struct {
	mu    sync.RWMutex
	state State
}

func NewStore() *Store {
	return &Store{state: Initial()}
}

func (store *Store) Snapshot() State {
	store.mu.RLock()
	defer store.mu.RUnlock()
	return store.state
}

// Apply reduces ev against the current state and stores the result.
// It returns the previous and the new state so callers can react to changes.
func (store *Store) Apply(ev Event) (prev State, next State) {
	store.mu.Lock()
	defer store.mu.Unlock()
	prev = store.state
	next = Reduce(prev, ev)
	store.state = next
	return prev, next
}

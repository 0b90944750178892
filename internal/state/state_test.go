package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rook-computer/composer/internal/render/layout"
)

// placed returns a state with a w x h character at (x, y), scale 1, whose box
// has already been fed back by a render.
func placed(x, y float64, w, h int) State {
	s := Reduce(Initial(), CharacterLoaded{Source: "upload-1", Width: w, Height: h})
	s.Character.Pos = Point{X: x, Y: y}
	return Reduce(s, Rendered{Generation: s.Generation, Box: s.Character.Displayed()})
}

func TestInitialState(t *testing.T) {
	s := Initial()
	assert.Equal(t, Idle, s.Mode)
	assert.Equal(t, 0, s.Background)
	assert.Equal(t, 0, s.Overlay)
	assert.False(t, s.Character.Present())
	assert.Equal(t, 1.0, s.Character.Scale)
}

func TestPointerDownHitTesting(t *testing.T) {
	s := placed(0, 0, 100, 100)

	tests := []struct {
		name string
		x, y float64
		want Mode
	}{
		{"bottom-right corner", 100, 100, Resizing},
		{"handle zone top-left edge", 80, 80, Resizing},
		{"one pixel left of handle", 79, 100, Dragging},
		{"one pixel above handle", 100, 79, Dragging},
		{"center", 50, 50, Dragging},
		{"top-left corner", 0, 0, Dragging},
		{"outside right", 101, 50, Idle},
		{"outside above", 50, -1, Idle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := Reduce(s, PointerDown{X: tt.x, Y: tt.y})
			assert.Equal(t, tt.want, next.Mode)
		})
	}
}

func TestPointerDownWithoutCharacterStaysIdle(t *testing.T) {
	s := Initial()
	s.Box = layout.Box{W: 100, H: 100}
	next := Reduce(s, PointerDown{X: 10, Y: 10})
	assert.Equal(t, s, next)
}

func TestDragFollowsPointerMinusOffset(t *testing.T) {
	s := placed(0, 0, 100, 100)
	s = Reduce(s, PointerDown{X: 10, Y: 10})
	require.Equal(t, Dragging, s.Mode)
	assert.Equal(t, Point{X: 10, Y: 10}, s.Offset)

	moves := []Point{{X: 20, Y: 15}, {X: -50, Y: 200}, {X: 40, Y: 0}}
	for _, m := range moves {
		s = Reduce(s, PointerMove{X: m.X, Y: m.Y})
		assert.Equal(t, Point{X: m.X - 10, Y: m.Y - 10}, s.Character.Pos)
	}
	assert.Equal(t, Point{X: 30, Y: -10}, s.Character.Pos)

	s = Reduce(s, PointerUp{})
	assert.Equal(t, Idle, s.Mode)
	assert.Equal(t, Point{}, s.Offset)
}

func TestMoveWhileIdleIsNoop(t *testing.T) {
	s := placed(0, 0, 100, 100)
	assert.Equal(t, s, Reduce(s, PointerMove{X: 300, Y: 300}))
}

func TestPointerLeaveEndsGesture(t *testing.T) {
	s := placed(0, 0, 100, 100)
	s = Reduce(s, PointerDown{X: 100, Y: 100})
	require.Equal(t, Resizing, s.Mode)

	s = Reduce(s, PointerLeave{})
	assert.Equal(t, Idle, s.Mode)

	before := s.Character
	s = Reduce(s, PointerMove{X: 10, Y: 10})
	assert.Equal(t, before, s.Character)
}

func TestResizeTakesMinimumAxisRatio(t *testing.T) {
	s := placed(0, 0, 100, 50)
	s = Reduce(s, PointerDown{X: 100, Y: 50})
	require.Equal(t, Resizing, s.Mode)

	s = Reduce(s, PointerMove{X: 50, Y: 40})
	assert.InDelta(t, 0.5, s.Character.Scale, 1e-9)

	box := s.Character.Displayed()
	assert.InDelta(t, 2.0, box.W/box.H, 1e-9)

	s = Reduce(s, PointerMove{X: 150, Y: 25})
	assert.InDelta(t, 0.5, s.Character.Scale, 1e-9)
}

func TestResizeUsesLastRenderedBox(t *testing.T) {
	s := placed(0, 0, 100, 100)
	s = Reduce(s, PointerDown{X: 100, Y: 100})
	s = Reduce(s, PointerMove{X: 50, Y: 50})
	require.InDelta(t, 0.5, s.Character.Scale, 1e-9)

	s = Reduce(s, Rendered{Generation: s.Generation, Box: s.Character.Displayed()})
	s = Reduce(s, PointerMove{X: 25, Y: 40})
	// 25/50 and 40/50 against the 50x50 displayed box.
	assert.InDelta(t, 0.5, s.Character.Scale, 1e-9)
}

func TestResizeClampsDegenerateScale(t *testing.T) {
	s := placed(10, 10, 100, 100)
	s = Reduce(s, PointerDown{X: 110, Y: 110})

	s = Reduce(s, PointerMove{X: 10, Y: 60})
	assert.Equal(t, MinScale, s.Character.Scale)

	s = Reduce(s, PointerMove{X: -40, Y: -40})
	assert.Equal(t, MinScale, s.Character.Scale)
}

func TestResizeWithEmptyBoxIsNoop(t *testing.T) {
	s := placed(0, 0, 100, 100)
	s = Reduce(s, PointerDown{X: 100, Y: 100})
	s.Box = layout.Box{}
	assert.Equal(t, s, Reduce(s, PointerMove{X: 50, Y: 50}))
}

func TestGenerationTracksRenderInputs(t *testing.T) {
	s := Initial()
	s1 := Reduce(s, SelectBackground{Index: 2})
	assert.Equal(t, s.Generation+1, s1.Generation)

	s2 := Reduce(s1, SelectBackground{Index: 2})
	assert.Equal(t, s1.Generation, s2.Generation)

	s3 := Reduce(s2, SelectOverlay{Index: 4})
	assert.Equal(t, s2.Generation+1, s3.Generation)

	s4 := Reduce(s3, PointerUp{})
	assert.Equal(t, s3.Generation, s4.Generation)
}

func TestRenderedBehindCurrentStillUpdatesBox(t *testing.T) {
	s := placed(0, 0, 100, 100)
	behind := s.Generation
	s = Reduce(s, SelectOverlay{Index: 1})

	next := Reduce(s, Rendered{Generation: behind, Box: layout.Box{W: 5, H: 5}})
	assert.Equal(t, layout.Box{W: 5, H: 5}, next.Box)
	assert.Equal(t, behind, next.BoxGeneration)
	assert.Equal(t, s.Generation, next.Generation)
}

func TestOlderRenderedIsIgnored(t *testing.T) {
	s := placed(0, 0, 100, 100)
	older := s.Generation
	s = Reduce(s, SelectOverlay{Index: 1})
	s = Reduce(s, Rendered{Generation: s.Generation, Box: layout.Box{W: 7, H: 7}})

	next := Reduce(s, Rendered{Generation: older, Box: layout.Box{W: 5, H: 5}})
	assert.Equal(t, layout.Box{W: 7, H: 7}, next.Box)

	future := Reduce(s, Rendered{Generation: s.Generation + 1, Box: layout.Box{W: 9, H: 9}})
	assert.Equal(t, layout.Box{W: 7, H: 7}, future.Box)
}

func TestCharacterReplacementKeepsPlacement(t *testing.T) {
	s := placed(0, 0, 100, 100)
	s = Reduce(s, PointerDown{X: 10, Y: 10})
	s = Reduce(s, PointerMove{X: 40, Y: 0})
	s = Reduce(s, PointerUp{})
	s.Character.Scale = 0.75

	s = Reduce(s, CharacterLoaded{Source: "upload-2", Width: 300, Height: 200})
	assert.Equal(t, "upload-2", s.Character.Source)
	assert.Equal(t, Point{X: 30, Y: -10}, s.Character.Pos)
	assert.Equal(t, 0.75, s.Character.Scale)
	assert.Equal(t, 300, s.Character.Width)
}

func TestStoreApplyReturnsBothStates(t *testing.T) {
	store := NewStore()
	prev, next := store.Apply(SelectBackground{Index: 3})
	assert.Equal(t, 0, prev.Background)
	assert.Equal(t, 3, next.Background)
	assert.Equal(t, next, store.Snapshot())
}

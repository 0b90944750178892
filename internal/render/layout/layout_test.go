package layout

import (
	"image"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBoxContainsEdgesInclusive(t *testing.T) {
	b := Box{X: 10, Y: 20, W: 100, H: 50}

	assert.True(t, b.Contains(10, 20))
	assert.True(t, b.Contains(110, 70))
	assert.True(t, b.Contains(60, 45))
	assert.False(t, b.Contains(9.5, 20))
	assert.False(t, b.Contains(110.5, 70))
	assert.False(t, b.Contains(60, 70.01))
}

func TestEmptyBoxContainsNothing(t *testing.T) {
	assert.False(t, Box{}.Contains(0, 0))
	assert.False(t, Box{X: 5, Y: 5, W: 0, H: 10}.Contains(5, 5))
}

func TestAnchorBottomRight(t *testing.T) {
	b := Box{X: 0, Y: 0, W: 100, H: 80}
	assert.Equal(t, Box{X: 80, Y: 60, W: 20, H: 20}, AnchorBottomRight(b, 20))

	small := Box{X: 5, Y: 5, W: 10, H: 30}
	assert.Equal(t, Box{X: 5, Y: 15, W: 10, H: 20}, AnchorBottomRight(small, 20))
}

func TestBoxRectKeepsSizeWhenOriginRounds(t *testing.T) {
	a := Box{X: 0.4, Y: 0.6, W: 50, H: 25}.Rect()
	b := Box{X: 0.6, Y: 0.4, W: 50, H: 25}.Rect()

	assert.Equal(t, image.Rect(0, 1, 50, 26), a)
	assert.Equal(t, a.Size(), b.Size())
}

func TestBoxRectClampsHugeValues(t *testing.T) {
	r := Box{X: -1e18, Y: 1e18, W: 1e18, H: math.NaN()}.Rect()

	assert.Equal(t, image.Rect(-MaxCoord, MaxCoord, 0, MaxCoord), r)
	assert.True(t, r.Empty())
}

func TestSplitHorizontalClamps(t *testing.T) {
	top, bottom := SplitHorizontal(image.Rect(0, 0, 10, 10), 25)
	assert.Equal(t, image.Rect(0, 0, 10, 10), top)
	assert.True(t, bottom.Empty())
}

func TestCenterSquare(t *testing.T) {
	assert.Equal(t, image.Rect(30, 0, 70, 40), CenterSquare(image.Rect(0, 0, 100, 40)))
	assert.Equal(t, image.Rect(2, 2, 8, 8), Inset(image.Rect(0, 0, 10, 10), 2))
}

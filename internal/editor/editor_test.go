package editor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rook-computer/composer/internal/catalog"
	"github.com/rook-computer/composer/internal/loader"
	"github.com/rook-computer/composer/internal/render"
	"github.com/rook-computer/composer/internal/state"
)

var testPreset = render.Preset{Name: "test", Width: 100, Height: 50}

var bgColors = []color.RGBA{
	{R: 0xFF, A: 0xFF},
	{G: 0xFF, A: 0xFF},
	{B: 0xFF, A: 0xFF},
	{R: 0xFF, G: 0xFF, A: 0xFF},
	{G: 0xFF, B: 0xFF, A: 0xFF},
}

var white = color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}

func encode(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func solidPNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return encode(t, img)
}

type fakeFetcher struct {
	mu      sync.Mutex
	data    map[string][]byte
	gates   map[string]chan struct{}
	fetched map[string]int
	// delay slows every fetch down, like a remote catalog.
	delay time.Duration
}

func (f *fakeFetcher) fetchCount(source string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetched[source]
}

func (f *fakeFetcher) gate(source string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[source] = ch
	return ch
}

func (f *fakeFetcher) Fetch(ctx context.Context, source string) ([]byte, error) {
	f.mu.Lock()
	gate := f.gates[source]
	data, ok := f.data[source]
	f.fetched[source]++
	delay := f.delay
	f.mu.Unlock()
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if !ok {
		return nil, os.ErrNotExist
	}
	return data, nil
}

type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordingLogger) Infof(component, format string, args ...interface{}) {
	l.record(component, format, args...)
}

func (l *recordingLogger) Errorf(component, format string, args ...interface{}) {
	l.record(component, format, args...)
}

func (l *recordingLogger) record(component, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, component+": "+fmt.Sprintf(format, args...))
}

func (l *recordingLogger) contains(substr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, line := range l.lines {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}

func testCatalog() catalog.Catalog {
	var c catalog.Catalog
	for i := 0; i < catalog.Size; i++ {
		c.Backgrounds = append(c.Backgrounds, catalog.Entry{Name: fmt.Sprint("bg", i), Source: fmt.Sprint("bg", i)})
		c.Overlays = append(c.Overlays, catalog.Entry{Name: fmt.Sprint("ov", i), Source: fmt.Sprint("ov", i)})
	}
	return c
}

func newFetcher(t *testing.T) *fakeFetcher {
	f := &fakeFetcher{data: map[string][]byte{}, gates: map[string]chan struct{}{}, fetched: map[string]int{}}
	for i := 0; i < catalog.Size; i++ {
		f.data[fmt.Sprint("bg", i)] = solidPNG(t, 10, 5, bgColors[i])
		f.data[fmt.Sprint("ov", i)] = solidPNG(t, 10, 5, color.RGBA{})
	}
	return f
}

// startEditor runs an editor until the test ends and waits for its first frame.
func startEditor(t *testing.T, f *fakeFetcher) (*Editor, *recordingLogger) {
	t.Helper()
	log := &recordingLogger{}
	l := loader.New(f)
	e := New(l, Options{Preset: testPreset, Catalog: testCatalog()})
	e.Logger = log
	e.Now = func() time.Time { return time.Date(2026, 10, 18, 9, 5, 3, 42_000_000, time.UTC) }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = e.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	waitFrame(t, e, 0)
	return e, log
}

func waitFrame(t *testing.T, e *Editor, gen uint64) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, e.WaitFrame(ctx, gen))
}

func TestInitialFrameUsesFirstCatalogEntries(t *testing.T) {
	e, _ := startEditor(t, newFetcher(t))

	frame, gen, err := e.Frame()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), gen)
	assert.Equal(t, image.Rect(0, 0, 100, 50), frame.Bounds())
	assert.Equal(t, bgColors[0], frame.RGBAAt(50, 25))
}

func TestSelectBackgroundRerenders(t *testing.T) {
	e, _ := startEditor(t, newFetcher(t))

	s, err := e.SelectBackground(context.Background(), 3)
	require.NoError(t, err)
	waitFrame(t, e, s.Generation)

	frame, _, err := e.Frame()
	require.NoError(t, err)
	assert.Equal(t, bgColors[3], frame.RGBAAt(10, 10))
}

func TestSelectOutOfRange(t *testing.T) {
	e, _ := startEditor(t, newFetcher(t))

	_, err := e.SelectBackground(context.Background(), catalog.Size)
	assert.ErrorIs(t, err, catalog.ErrIndexOutOfRange)
	_, err = e.SelectOverlay(context.Background(), -1)
	assert.ErrorIs(t, err, catalog.ErrIndexOutOfRange)
	assert.Equal(t, uint64(0), e.Snapshot().Generation)
}

func TestUploadAndDrag(t *testing.T) {
	f := newFetcher(t)
	e, _ := startEditor(t, f)
	ctx := context.Background()

	s, err := e.Upload(ctx, solidPNG(t, 100, 100, white))
	require.NoError(t, err)
	require.True(t, s.Character.Present())
	waitFrame(t, e, s.Generation)
	assert.Equal(t, 100.0, e.Snapshot().Box.W)

	s, err = e.Submit(ctx, state.PointerDown{X: 10, Y: 10})
	require.NoError(t, err)
	require.Equal(t, state.Dragging, s.Mode)

	s, err = e.Submit(ctx, state.PointerMove{X: 40, Y: 0})
	require.NoError(t, err)
	assert.Equal(t, state.Point{X: 30, Y: -10}, s.Character.Pos)

	s, err = e.Submit(ctx, state.PointerUp{})
	require.NoError(t, err)
	assert.Equal(t, state.Idle, s.Mode)
	assert.Equal(t, state.Point{X: 30, Y: -10}, s.Character.Pos)

	waitFrame(t, e, s.Generation)
	frame, _, err := e.Frame()
	require.NoError(t, err)
	assert.Equal(t, white, frame.RGBAAt(60, 20), "character drawn at its new position")
	assert.Equal(t, bgColors[0], frame.RGBAAt(20, 20), "left of the character")
}

func TestUploadFailureLeavesStateUntouched(t *testing.T) {
	e, _ := startEditor(t, newFetcher(t))
	before := e.Snapshot()

	_, err := e.Upload(context.Background(), []byte("not an image"))
	assert.ErrorIs(t, err, loader.ErrNotImage)
	assert.Equal(t, before, e.Snapshot())
}

func TestRendersCoalesceWhileOneIsInFlight(t *testing.T) {
	f := newFetcher(t)
	e, log := startEditor(t, f)
	ctx := context.Background()
	gate := f.gate("bg1")

	slow, err := e.SelectBackground(ctx, 1)
	require.NoError(t, err)
	_, err = e.SelectBackground(ctx, 2)
	require.NoError(t, err)
	latest, err := e.SelectBackground(ctx, 3)
	require.NoError(t, err)

	close(gate)
	waitFrame(t, e, latest.Generation)

	frame, gen, err := e.Frame()
	require.NoError(t, err)
	assert.Equal(t, latest.Generation, gen)
	assert.Equal(t, bgColors[3], frame.RGBAAt(50, 25))
	assert.Zero(t, f.fetchCount("bg2"), "superseded input is never rendered")
	assert.True(t, log.contains(fmt.Sprintf("frame generation=%d applied behind current=%d", slow.Generation, latest.Generation)))
}

func TestOlderFrameIsDropped(t *testing.T) {
	log := &recordingLogger{}
	e := New(loader.New(newFetcher(t)), Options{Preset: testPreset, Catalog: testCatalog()})
	e.Logger = log
	surface := func(c color.RGBA) *image.RGBA {
		img := image.NewRGBA(image.Rect(0, 0, 1, 1))
		img.SetRGBA(0, 0, c)
		return img
	}

	e.store.Apply(state.SelectBackground{Index: 1})
	e.store.Apply(state.SelectBackground{Index: 2})
	e.applyFrame(renderDone{generation: 2, surface: surface(bgColors[2])})
	e.applyFrame(renderDone{generation: 1, surface: surface(bgColors[1])})
	e.applyFrame(renderDone{generation: 3, surface: surface(bgColors[3])})

	frame, gen, err := e.Frame()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), gen)
	assert.Equal(t, bgColors[2], frame.RGBAAt(0, 0))
	assert.True(t, log.contains("dropped stale frame generation=1 current=2"))
	assert.True(t, log.contains("dropped stale frame generation=3 current=2"))
}

func TestFramesKeepFlowingDuringDrag(t *testing.T) {
	f := newFetcher(t)
	delete(f.data, "bg4") // failed loads are not cached, so every render pays the delay
	e, _ := startEditor(t, f)
	ctx := context.Background()

	_, err := e.SelectBackground(ctx, 4)
	require.NoError(t, err)
	s, err := e.Upload(ctx, solidPNG(t, 40, 40, white))
	require.NoError(t, err)
	waitFrame(t, e, s.Generation)

	f.mu.Lock()
	f.delay = 30 * time.Millisecond
	f.mu.Unlock()

	frames, unsubscribe := e.Subscribe()
	defer unsubscribe()
	applied := make(chan int, 1)
	stop := make(chan struct{})
	go func() {
		n := 0
		for {
			select {
			case <-frames:
				n++
			case <-stop:
				applied <- n
				return
			}
		}
	}()

	s, err = e.Submit(ctx, state.PointerDown{X: 5, Y: 5})
	require.NoError(t, err)
	require.Equal(t, state.Dragging, s.Mode)
	var last state.State
	for i := 0; i < 120; i++ {
		last, err = e.Submit(ctx, state.PointerMove{X: 5 + float64(i%40), Y: 5})
		require.NoError(t, err)
		time.Sleep(5 * time.Millisecond)
	}
	close(stop)
	assert.GreaterOrEqual(t, <-applied, 3, "frames are applied while the pointer keeps moving")

	waitFrame(t, e, last.Generation)
	_, gen, err := e.Frame()
	require.NoError(t, err)
	assert.Equal(t, last.Generation, gen)
}

func TestReplacedUploadsAreForgotten(t *testing.T) {
	e, _ := startEditor(t, newFetcher(t))
	ctx := context.Background()

	first, err := e.Upload(ctx, solidPNG(t, 10, 10, white))
	require.NoError(t, err)

	sources := make(chan string, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := e.Upload(ctx, solidPNG(t, 10, 10, white))
			assert.NoError(t, err)
			sources <- s.Character.Source
		}()
	}
	wg.Wait()
	close(sources)

	current := e.Snapshot()
	waitFrame(t, e, current.Generation)
	stale := []string{first.Character.Source}
	for source := range sources {
		if source != current.Character.Source {
			stale = append(stale, source)
		}
	}
	require.Len(t, stale, 2)

	assert.Eventually(t, func() bool {
		for _, source := range stale {
			if _, err := e.Loader().Load(ctx, source); !errors.Is(err, loader.ErrUnknownUpload) {
				return false
			}
		}
		return true
	}, 5*time.Second, 10*time.Millisecond)
	_, err = e.Loader().Load(ctx, current.Character.Source)
	assert.NoError(t, err)
}

func TestMissingOverlayIsOmitted(t *testing.T) {
	f := newFetcher(t)
	delete(f.data, "ov4")
	e, log := startEditor(t, f)

	s, err := e.SelectOverlay(context.Background(), 4)
	require.NoError(t, err)
	waitFrame(t, e, s.Generation)

	frame, _, err := e.Frame()
	require.NoError(t, err)
	assert.Equal(t, bgColors[0], frame.RGBAAt(50, 25))
	assert.True(t, log.contains("overlay ov4 omitted"))
}

func TestExport(t *testing.T) {
	e, _ := startEditor(t, newFetcher(t))

	name, data, err := e.Export()
	require.NoError(t, err)
	assert.Equal(t, "test-2026-10-18T09-05-03-042Z.png", name)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 100, 50), img.Bounds())
	assert.Equal(t, color.RGBAModel.Convert(bgColors[0]), color.RGBAModel.Convert(img.At(99, 49)))
}

func TestExportBeforeFirstFrame(t *testing.T) {
	e := New(loader.New(newFetcher(t)), Options{Preset: testPreset, Catalog: testCatalog()})
	_, _, err := e.Export()
	assert.ErrorIs(t, err, ErrNoFrame)
}

func TestSubmitAfterStop(t *testing.T) {
	e := New(loader.New(newFetcher(t)), Options{Preset: testPreset, Catalog: testCatalog()})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, e.Run(ctx), context.Canceled)

	_, err := e.Submit(context.Background(), state.PointerUp{})
	assert.ErrorIs(t, err, ErrStopped)
	assert.ErrorIs(t, e.Run(context.Background()), ErrStopped)
}

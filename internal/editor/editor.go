// Package editor runs one compositing session: it applies state transitions
// on a single event loop, schedules renders and owns the current surface.
package editor

import (
	"context"
	"errors"
	"image"
	"sync"
	"time"

	"github.com/anthonynsimon/bild/clone"

	"github.com/rook-computer/composer/internal/catalog"
	"github.com/rook-computer/composer/internal/export"
	"github.com/rook-computer/composer/internal/loader"
	"github.com/rook-computer/composer/internal/render"
	"github.com/rook-computer/composer/internal/render/layout"
	"github.com/rook-computer/composer/internal/state"
)

var (
	ErrStopped = errors.New("editor is not running")
	ErrNoFrame = errors.New("no frame rendered yet")
)

type Logger interface {
	Infof(component string, format string, args ...interface{})
	Errorf(component string, format string, args ...interface{})
}

type NoopLogger struct{}

func (NoopLogger) Infof(component, format string, args ...interface{})  {}
func (NoopLogger) Errorf(component, format string, args ...interface{}) {}

type Options struct {
	Preset  render.Preset
	Catalog catalog.Catalog
	// Prefix is the export filename prefix; it defaults to the preset name.
	Prefix       string
	Placeholders bool
}

type request struct {
	event state.Event
	reply chan state.State
}

// renderDone carries a finished composite back to the event loop.
type renderDone struct {
	generation uint64
	surface    *image.RGBA
	box        layout.Box
	took       time.Duration
}

type Editor struct {
	Logger Logger
	Mirror render.Mirror
	Now    func() time.Time

	store      *state.Store
	loader     *loader.Loader
	compositor *render.Compositor
	catalog    catalog.Catalog
	prefix     string

	requests    chan request
	completions chan renderDone
	done        chan struct{}
	runOnce     sync.Once

	mu         sync.RWMutex
	surface    *image.RGBA
	surfaceGen uint64

	subsMu  sync.Mutex
	subs    map[int]chan uint64
	nextSub int
}

func New(l *loader.Loader, opts Options) *Editor {
	if l == nil {
		l = loader.New(nil)
	}
	compositor := render.NewCompositor(opts.Preset)
	compositor.Placeholders = opts.Placeholders
	prefix := opts.Prefix
	if prefix == "" {
		prefix = opts.Preset.Name
	}
	return &Editor{
		Logger:      NoopLogger{},
		Mirror:      render.NoopMirror{},
		Now:         time.Now,
		store:       state.NewStore(),
		loader:      l,
		compositor:  compositor,
		catalog:     opts.Catalog,
		prefix:      prefix,
		requests:    make(chan request),
		completions: make(chan renderDone),
		done:        make(chan struct{}),
		subs:        make(map[int]chan uint64),
	}
}

func (e *Editor) Preset() render.Preset    { return e.compositor.Preset }
func (e *Editor) Catalog() catalog.Catalog { return e.catalog }
func (e *Editor) Snapshot() state.State    { return e.store.Snapshot() }
func (e *Editor) Loader() *loader.Loader   { return e.loader }

// Run processes events until ctx is done. All state transitions happen here,
// one at a time. Run may only be called once.
func (e *Editor) Run(ctx context.Context) error {
	err := ErrStopped
	e.runOnce.Do(func() { err = e.run(ctx) })
	return err
}

func (e *Editor) run(ctx context.Context) error {
	defer close(e.done)

	// At most one render is in flight. Input changes during a render mark the
	// editor dirty and the latest snapshot is rendered once it completes.
	var (
		inFlight bool
		dirty    bool
		retired  []string
	)
	schedule := func(snap state.State) {
		if inFlight {
			dirty = true
			return
		}
		inFlight = true
		e.requestRender(ctx, snap)
	}

	schedule(e.store.Snapshot())
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req := <-e.requests:
			prev, next := e.store.Apply(req.event)
			if old := prev.Character.Source; old != next.Character.Source && loader.IsUpload(old) {
				retired = append(retired, old)
			}
			if next.Generation != prev.Generation {
				schedule(next)
			}
			req.reply <- next
		case result := <-e.completions:
			inFlight = false
			e.applyFrame(result)
			// Renders started from here on use the latest snapshot, which
			// never references a replaced upload.
			for _, source := range retired {
				e.loader.Forget(source)
			}
			retired = retired[:0]
			if dirty {
				dirty = false
				schedule(e.store.Snapshot())
			}
		}
	}
}

// Submit applies ev on the event loop and returns the resulting state.
func (e *Editor) Submit(ctx context.Context, ev state.Event) (state.State, error) {
	s, _, err := e.submit(ctx, ev)
	return s, err
}

// submit also reports whether ev reached the event loop, which is true even
// when waiting for the reply was cut short by ctx.
func (e *Editor) submit(ctx context.Context, ev state.Event) (state.State, bool, error) {
	req := request{event: ev, reply: make(chan state.State, 1)}
	select {
	case e.requests <- req:
	case <-e.done:
		return state.State{}, false, ErrStopped
	case <-ctx.Done():
		return state.State{}, false, ctx.Err()
	}
	select {
	case s := <-req.reply:
		return s, true, nil
	case <-ctx.Done():
		return state.State{}, true, ctx.Err()
	}
}

func (e *Editor) SelectBackground(ctx context.Context, index int) (state.State, error) {
	if _, err := e.catalog.Background(index); err != nil {
		return state.State{}, err
	}
	return e.Submit(ctx, state.SelectBackground{Index: index})
}

func (e *Editor) SelectOverlay(ctx context.Context, index int) (state.State, error) {
	if _, err := e.catalog.Overlay(index); err != nil {
		return state.State{}, err
	}
	return e.Submit(ctx, state.SelectOverlay{Index: index})
}

// Upload decodes data and makes it the character image. On failure the
// session is left untouched and the returned error is meant for the user.
func (e *Editor) Upload(ctx context.Context, data []byte) (state.State, error) {
	img, err := loader.DecodeUpload(data)
	if err != nil {
		e.Logger.Errorf("editor", "upload rejected: %v", err)
		return state.State{}, err
	}
	source := e.loader.AddUpload(img)
	b := img.Bounds()
	next, delivered, err := e.submit(ctx, state.CharacterLoaded{Source: source, Width: b.Dx(), Height: b.Dy()})
	if err != nil {
		if !delivered {
			e.loader.Forget(source)
		}
		return state.State{}, err
	}
	e.Logger.Infof("editor", "character %s loaded (%dx%d)", source, b.Dx(), b.Dy())
	return next, nil
}

// Frame returns a copy of the surface as last applied and its generation.
func (e *Editor) Frame() (*image.RGBA, uint64, error) {
	e.mu.RLock()
	surface, gen := e.surface, e.surfaceGen
	e.mu.RUnlock()
	if surface == nil {
		return nil, 0, ErrNoFrame
	}
	return clone.AsRGBA(surface), gen, nil
}

// Export encodes the last applied surface. It never triggers a render.
func (e *Editor) Export() (filename string, data []byte, err error) {
	surface, gen, err := e.Frame()
	if err != nil {
		return "", nil, err
	}
	data, err = export.PNG(surface)
	if err != nil {
		return "", nil, err
	}
	filename = export.Filename(e.prefix, e.Now())
	e.Logger.Infof("editor", "exported %s (generation %d, %d bytes)", filename, gen, len(data))
	return filename, data, nil
}

// Subscribe returns a channel that receives the generation of each applied
// frame. Only the newest unread generation is kept.
func (e *Editor) Subscribe() (<-chan uint64, func()) {
	ch := make(chan uint64, 1)
	e.subsMu.Lock()
	id := e.nextSub
	e.nextSub++
	e.subs[id] = ch
	e.subsMu.Unlock()
	return ch, func() {
		e.subsMu.Lock()
		delete(e.subs, id)
		e.subsMu.Unlock()
	}
}

// WaitFrame blocks until a frame with generation >= gen has been applied.
func (e *Editor) WaitFrame(ctx context.Context, gen uint64) error {
	ch, cancel := e.Subscribe()
	defer cancel()
	if e.hasFrame(gen) {
		return nil
	}
	for {
		select {
		case g := <-ch:
			if g >= gen {
				return nil
			}
		case <-e.done:
			return ErrStopped
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (e *Editor) hasFrame(gen uint64) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.surface != nil && e.surfaceGen >= gen
}

func (e *Editor) notify(gen uint64) {
	e.subsMu.Lock()
	defer e.subsMu.Unlock()
	for _, ch := range e.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- gen:
		default:
		}
	}
}

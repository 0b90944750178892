package editor

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/rook-computer/composer/internal/render"
	"github.com/rook-computer/composer/internal/state"
)

// requestRender composites snap off the event loop. The snapshot and its
// generation travel with the request; the loop decides on arrival whether
// the result may still be shown.
func (e *Editor) requestRender(ctx context.Context, snap state.State) {
	inputs := snap.RenderInputs()
	generation := snap.Generation
	go func() {
		start := time.Now()
		frame := e.loadFrame(ctx, inputs)
		surface, box := e.compositor.Compose(frame)
		result := renderDone{generation: generation, surface: surface, box: box, took: time.Since(start)}
		select {
		case e.completions <- result:
		case <-ctx.Done():
		}
	}()
}

// loadFrame fetches the three layer images concurrently. A failed load leaves
// its layer nil and is recorded in Frame.Failed.
func (e *Editor) loadFrame(ctx context.Context, in state.RenderInputs) render.Frame {
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		frame  render.Frame
		failed []render.Layer
	)
	load := func(layer render.Layer, source string, assign func(image.Image)) {
		defer wg.Done()
		img, err := e.loader.Load(ctx, source)
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			e.Logger.Errorf("render", "%s %s omitted: %v", layer, source, err)
			failed = append(failed, layer)
			return
		}
		assign(img)
	}

	if entry, err := e.catalog.Background(in.Background); err == nil {
		wg.Add(1)
		go load(render.LayerBackground, entry.Source, func(img image.Image) { frame.Background = img })
	}
	if in.Character.Present() {
		frame.Placement = in.Character.Displayed()
		wg.Add(1)
		go load(render.LayerCharacter, in.Character.Source, func(img image.Image) { frame.Character = img })
	}
	if entry, err := e.catalog.Overlay(in.Overlay); err == nil {
		wg.Add(1)
		go load(render.LayerOverlay, entry.Source, func(img image.Image) { frame.Overlay = img })
	}
	wg.Wait()

	frame.Failed = sortedLayers(failed)
	return frame
}

// sortedLayers keeps Frame.Failed in draw order regardless of load timing.
func sortedLayers(layers []render.Layer) []render.Layer {
	if len(layers) == 0 {
		return nil
	}
	out := make([]render.Layer, 0, len(layers))
	for _, l := range []render.Layer{render.LayerBackground, render.LayerCharacter, render.LayerOverlay} {
		for _, f := range layers {
			if f == l {
				out = append(out, l)
			}
		}
	}
	return out
}

// applyFrame runs on the event loop. A frame that is behind the current
// generation is still shown, since it is the newest one available and the
// loop renders the latest snapshot right after. Frames older than the one on
// screen are dropped.
func (e *Editor) applyFrame(result renderDone) {
	current := e.store.Snapshot().Generation
	e.mu.RLock()
	shown, haveSurface := e.surfaceGen, e.surface != nil
	e.mu.RUnlock()
	if result.generation > current || (haveSurface && result.generation < shown) {
		e.Logger.Infof("render", "dropped stale frame generation=%d current=%d", result.generation, current)
		return
	}

	e.mu.Lock()
	e.surface = result.surface
	e.surfaceGen = result.generation
	e.mu.Unlock()

	e.store.Apply(state.Rendered{Generation: result.generation, Box: result.box})

	if e.Mirror != nil {
		e.Mirror.Show(result.surface)
	}
	e.notify(result.generation)
	if result.generation != current {
		e.Logger.Infof("render", "frame generation=%d applied behind current=%d in %s", result.generation, current, result.took.Round(time.Microsecond))
		return
	}
	e.Logger.Infof("render", "frame generation=%d applied in %s", result.generation, result.took.Round(time.Microsecond))
}

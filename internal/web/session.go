package web

import (
	"context"
	"image"

	"github.com/rook-computer/composer/internal/catalog"
	"github.com/rook-computer/composer/internal/render"
	"github.com/rook-computer/composer/internal/state"
)

// Session is the editing session the API drives.
//
// The concrete implementation is *editor.Editor.
type Session interface {
	Snapshot() state.State
	Preset() render.Preset
	Catalog() catalog.Catalog

	SelectBackground(ctx context.Context, index int) (state.State, error)
	SelectOverlay(ctx context.Context, index int) (state.State, error)
	Upload(ctx context.Context, data []byte) (state.State, error)
	Submit(ctx context.Context, ev state.Event) (state.State, error)

	Frame() (*image.RGBA, uint64, error)
	Export() (filename string, data []byte, err error)
	Subscribe() (<-chan uint64, func())
}

// Logger matches the component-tagged logger used across the app.
type Logger interface {
	Infof(component string, format string, args ...interface{})
	Errorf(component string, format string, args ...interface{})
}

type noopLogger struct{}

func (noopLogger) Infof(string, string, ...interface{})  {}
func (noopLogger) Errorf(string, string, ...interface{}) {}

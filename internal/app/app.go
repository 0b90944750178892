package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/rook-computer/composer/internal/buttons"
	"github.com/rook-computer/composer/internal/editor"
	"github.com/rook-computer/composer/internal/render"
	"github.com/rook-computer/composer/internal/web"
)

// Console switches the local display between text and graphics mode.
type Console interface {
	EnterGraphics() error
	Restore() error
}

type App struct {
	Editor  *editor.Editor
	Web     web.Server
	Mirror  render.Mirror
	Console Console
	Logger  Logger

	// Buttons delivers kiosk key presses; nil disables them.
	Buttons buttons.Buttons
	// ExportDir receives exports requested with the Export button.
	ExportDir string

	exitOnce atomic.Bool
	exitCh   chan error
}

func New(ed *editor.Editor, webServer web.Server, mirror render.Mirror) *App {
	return &App{Editor: ed, Web: webServer, Mirror: mirror, Logger: NoopLogger{}, ExportDir: ".", exitCh: make(chan error, 1)}
}

// Exit requests the app to stop running. Only the first call counts.
func (app *App) Exit(err error) {
	if app.exitCh == nil {
		return
	}
	if !app.exitOnce.CompareAndSwap(false, true) {
		return
	}
	select {
	case app.exitCh <- err:
	default:
	}
}

// Start runs the editor, the HTTP server and the mirror until ctx is done or
// Exit is called.
func (app *App) Start(ctx context.Context) error {
	if app.exitCh == nil {
		app.exitCh = make(chan error, 1)
	}
	app.exitOnce.Store(false)
	if app.Logger == nil {
		app.Logger = NoopLogger{}
	}
	if app.Editor == nil || app.Web == nil {
		return errors.New("app requires an editor and a web server")
	}
	if app.Mirror == nil {
		app.Mirror = render.NoopMirror{}
	}

	app.Editor.Logger = app.Logger
	app.Editor.Loader().Logger = app.Logger
	if fb, ok := app.Mirror.(*render.FBMirror); ok {
		fb.Logger = app.Logger
	}

	if err := app.Mirror.Start(ctx); err != nil {
		app.Logger.Errorf("app", "mirror start error: %v", err)
		return err
	}
	defer func() { _ = app.Mirror.Stop() }()

	if app.Console != nil {
		_ = app.Console.EnterGraphics()
		defer func() { _ = app.Console.Restore() }()
	}
	app.Editor.Mirror = app.Mirror

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := app.Web.Start(runCtx); err != nil {
		app.Logger.Errorf("app", "web start error: %v", err)
		return err
	}
	defer func() { _ = app.Web.Stop() }()

	url := app.Web.URL()
	app.Logger.Infof("app", "editor listening on %s", url)
	app.Mirror.ShowSplash(url)

	var wg sync.WaitGroup
	if app.Buttons != nil {
		if err := app.Buttons.Start(runCtx); err != nil {
			app.Logger.Errorf("app", "buttons start error: %v", err)
		} else {
			defer func() { _ = app.Buttons.Stop() }()
			wg.Add(1)
			go func() {
				defer wg.Done()
				app.handleButtons(runCtx)
			}()
		}
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.Editor.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			app.Exit(err)
		}
	}()

	var err error
	select {
	case <-ctx.Done():
		err = ctx.Err()
	case err = <-app.exitCh:
	}
	cancel()
	wg.Wait()
	return err
}

func (app *App) handleButtons(ctx context.Context) {
	events := app.Buttons.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			app.Logger.Infof("input", "button %s", ev)
			switch ev {
			case buttons.Exit:
				app.Exit(nil)
			case buttons.Export:
				_, _ = app.SaveExport()
			}
		}
	}
}

// SaveExport writes the current export into ExportDir and returns its path.
func (app *App) SaveExport() (string, error) {
	filename, data, err := app.Editor.Export()
	if err != nil {
		app.Logger.Errorf("app", "export failed: %v", err)
		return "", err
	}
	dir := app.ExportDir
	if dir == "" {
		dir = "."
	}
	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		app.Logger.Errorf("app", "export write failed: %v", err)
		return "", fmt.Errorf("write export: %w", err)
	}
	app.Logger.Infof("app", "export saved to %s", path)
	return path, nil
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rook-computer/composer/internal/app"
	"github.com/rook-computer/composer/internal/catalog"
	"github.com/rook-computer/composer/internal/editor"
	"github.com/rook-computer/composer/internal/loader"
	"github.com/rook-computer/composer/internal/render"
	"github.com/rook-computer/composer/internal/web"
)

func main() {
	defaults, err := web.DefaultServerConfigFromEnv("127.0.0.1:8081")
	if err != nil {
		fmt.Println("server config error:", err)
		os.Exit(2)
	}

	listenAddr := flag.String("listen", defaults.ListenAddr, "http listen address (needs a fixed port); also configurable via "+web.EnvListenAddr)
	devMode := flag.Bool("dev", defaults.DevMode, "enable dev mode; also configurable via "+web.EnvDevMode)
	staticDir := flag.String("static-dir", "", "serve static UI from this directory (optional); when empty, embedded web UI assets are served")
	mode := flag.String("mode", render.Thumbnail.Name, "output preset: thumbnail | avatar")
	placeholders := flag.Bool("placeholders", true, "draw placeholders for layers that failed to load")
	verbose := flag.Bool("v", false, "log editor activity to stderr")
	flag.Parse()

	preset, err := render.PresetByName(*mode)
	if err != nil {
		fmt.Println("config error:", err)
		os.Exit(2)
	}
	base, err := assetBaseURL(*listenAddr)
	if err != nil {
		fmt.Println("config error:", err)
		os.Exit(2)
	}

	swatches, err := generateSwatches(catalog.Default(), preset.Width, preset.Height)
	if err != nil {
		fmt.Println("swatch error:", err)
		os.Exit(1)
	}
	cat := catalog.Default().Resolve(base)

	ld := loader.New(nil)
	control := NewSimControl(cat, ld)
	ld.Fetcher = SimFetcher{Control: control, Next: loader.SourceFetcher{}}

	ed := editor.New(ld, editor.Options{Preset: preset, Catalog: cat, Placeholders: *placeholders})

	server := web.NewHTTPServer(web.ServerConfig{ListenAddr: *listenAddr, DevMode: *devMode})
	server.StaticDir = *staticDir
	mux := web.NewDefaultMux(server.StaticDir, web.APIV1Config{Session: ed, AllowAnyOrigin: *devMode})
	registerSimEndpoints(mux, control, swatches)
	server.Handler = mux

	a := app.New(ed, server, render.NoopMirror{})
	if *verbose {
		a.Logger = app.NewFileLogger(os.Stderr)
	}

	processCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Println("Composer simulator listening on", *listenAddr)
	fmt.Println("Preset:", preset.Name)
	fmt.Println("Assets:", base)
	fmt.Println("API:", strings.TrimSuffix(base, "sim/assets/")+"api/v1/")

	if err := a.Start(processCtx); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Println("simulator error:", err)
		os.Exit(1)
	}
}

// assetBaseURL returns the URL the generated catalog is served from.
func assetBaseURL(listenAddr string) (string, error) {
	host, port, err := net.SplitHostPort(listenAddr)
	if err != nil {
		return "", fmt.Errorf("listen address %q: %w", listenAddr, err)
	}
	if port == "" || port == "0" {
		return "", fmt.Errorf("listen address %q needs a fixed port", listenAddr)
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port) + "/sim/assets/", nil
}

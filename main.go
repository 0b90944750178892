package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rook-computer/composer/internal/app"
	"github.com/rook-computer/composer/internal/buttons"
	"github.com/rook-computer/composer/internal/catalog"
	"github.com/rook-computer/composer/internal/editor"
	"github.com/rook-computer/composer/internal/loader"
	"github.com/rook-computer/composer/internal/render"
	"github.com/rook-computer/composer/internal/system"
	"github.com/rook-computer/composer/internal/web"
)

func main() {
	os.Exit(run())
}

func run() int {
	fmt.Println("Composer starting")

	defaults, err := app.ConfigFromEnv()
	if err != nil {
		fmt.Println("config error:", err)
		return 2
	}
	serverDefaults, err := web.DefaultServerConfigFromEnv("127.0.0.1:8080")
	if err != nil {
		fmt.Println("server config error:", err)
		return 2
	}

	mode := flag.String("mode", defaults.Mode, "output preset: thumbnail (1280x720) | avatar (400x400); also configurable via "+app.EnvMode)
	listenAddr := flag.String("listen", serverDefaults.ListenAddr, "http listen address; also configurable via "+web.EnvListenAddr)
	devMode := flag.Bool("dev", serverDefaults.DevMode, "enable dev mode (permissive CORS); also configurable via "+web.EnvDevMode)
	staticDir := flag.String("static-dir", "", "serve the web UI from this directory instead of the embedded assets")
	catalogPath := flag.String("catalog", defaults.Catalog, "TOML file replacing the built-in background/overlay catalog; also configurable via "+app.EnvCatalog)
	assetsRoot := flag.String("assets", defaults.Assets, "directory or base URL catalog sources resolve against; also configurable via "+app.EnvAssets)
	prefix := flag.String("prefix", defaults.Prefix, "export filename prefix (default: the preset name); also configurable via "+app.EnvPrefix)
	placeholders := flag.Bool("placeholders", defaults.Placeholders, "draw labelled placeholders for layers that failed to load; also configurable via "+app.EnvPlaceholders)
	framebuffer := flag.String("framebuffer", defaults.Framebuffer, "mirror the surface to this framebuffer device, e.g. /dev/fb0; also configurable via "+app.EnvFramebuffer)
	exportDir := flag.String("export-dir", defaults.ExportDir, "directory for exports saved with the mirror's F12 hotkey; also configurable via "+app.EnvExportDir)
	debug := flag.Bool("debug", defaults.Debug, "enable debug logging to ./composer-debug.log")
	stdioLog := flag.String("stdio-log", defaults.StdioLog, "redirect stdout+stderr (including panics) to this file; also configurable via "+app.EnvStdioLog)
	flag.Parse()

	// Best-effort: keep panics diagnosable even when the console is left in graphics mode.
	if *stdioLog != "" {
		if err := redirectStdIO(*stdioLog); err != nil {
			fmt.Println("stdio log redirect error:", err)
		}
	}

	var logger app.Logger = app.NoopLogger{}
	if *debug {
		f, err := os.OpenFile("./composer-debug.log", os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err == nil {
			defer f.Close()
			logger = app.NewFileLogger(f)
			logger.Infof("main", "debug logging enabled")
		} else {
			fmt.Println("debug log open error:", err)
		}
	}

	cfg := defaults
	cfg.Mode = *mode
	cfg.Assets = *assetsRoot
	if err := cfg.Validate(); err != nil {
		fmt.Println("config error:", err)
		return 2
	}
	preset, _ := render.PresetByName(cfg.Mode)

	cat := catalog.Default()
	if *catalogPath != "" {
		cat, err = catalog.Load(*catalogPath)
		if err != nil {
			fmt.Println("catalog error:", err)
			return 2
		}
	}
	cat = cat.Resolve(cfg.Assets)

	ld := loader.New(loader.SourceFetcher{Client: &http.Client{Timeout: 15 * time.Second}})
	ed := editor.New(ld, editor.Options{
		Preset:       preset,
		Catalog:      cat,
		Prefix:       *prefix,
		Placeholders: *placeholders,
	})

	server := web.NewHTTPServer(web.ServerConfig{ListenAddr: *listenAddr, DevMode: *devMode})
	server.StaticDir = *staticDir
	server.Logger = logger
	server.API = web.APIV1Config{Session: ed}

	var mirror render.Mirror = render.NoopMirror{}
	a := app.New(ed, server, mirror)
	if *framebuffer != "" {
		a.Mirror = render.NewFBMirror(*framebuffer)
		a.Console = system.Console{Logger: logger}
		a.Buttons = buttons.NewKeyButtons(logger)
	}
	a.Logger = logger
	a.ExportDir = *exportDir

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Composer %s (%dx%d) on %s\n", preset.Name, preset.Width, preset.Height, *listenAddr)
	if err := a.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Println("app error:", err)
		return 1
	}
	return 0
}

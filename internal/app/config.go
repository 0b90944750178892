package app

import (
	"fmt"
	"os"
	"strconv"

	"github.com/rook-computer/composer/internal/render"
)

const (
	EnvMode         = "COMPOSER_MODE"
	EnvCatalog      = "COMPOSER_CATALOG"
	EnvAssets       = "COMPOSER_ASSETS"
	EnvPrefix       = "COMPOSER_PREFIX"
	EnvPlaceholders = "COMPOSER_PLACEHOLDERS"
	EnvFramebuffer  = "COMPOSER_FRAMEBUFFER"
	EnvExportDir    = "COMPOSER_EXPORT_DIR"
	EnvDebug        = "COMPOSER_DEBUG"
	EnvStdioLog     = "COMPOSER_STDIO_LOG"
)

// Config holds the editor settings that are not HTTP server settings.
// Flags in main default to these values.
type Config struct {
	// Mode names the output preset: "thumbnail" or "avatar".
	Mode string
	// Catalog is an optional TOML file replacing the built-in catalog.
	Catalog string
	// Assets is the directory or base URL catalog sources are resolved against.
	Assets       string
	Prefix       string
	Placeholders bool
	// Framebuffer is the device the surface is mirrored to; empty disables the mirror.
	Framebuffer string
	// ExportDir receives PNGs saved with the mirror's export hotkey.
	ExportDir string
	Debug     bool
	StdioLog  string
}

func DefaultConfig() Config {
	return Config{
		Mode:      render.Thumbnail.Name,
		Assets:    "assets",
		ExportDir: ".",
	}
}

// ConfigFromEnv starts from DefaultConfig and applies any COMPOSER_* overrides.
func ConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	stringEnv(EnvMode, &cfg.Mode)
	stringEnv(EnvCatalog, &cfg.Catalog)
	stringEnv(EnvAssets, &cfg.Assets)
	stringEnv(EnvPrefix, &cfg.Prefix)
	stringEnv(EnvFramebuffer, &cfg.Framebuffer)
	stringEnv(EnvExportDir, &cfg.ExportDir)
	stringEnv(EnvStdioLog, &cfg.StdioLog)

	if err := boolEnv(EnvPlaceholders, &cfg.Placeholders); err != nil {
		return Config{}, err
	}
	if err := boolEnv(EnvDebug, &cfg.Debug); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports settings that cannot start an editor.
func (c Config) Validate() error {
	if _, err := render.PresetByName(c.Mode); err != nil {
		return err
	}
	if c.Assets == "" {
		return fmt.Errorf("assets location must not be empty")
	}
	return nil
}

func stringEnv(key string, dst *string) {
	if raw := os.Getenv(key); raw != "" {
		*dst = raw
	}
}

func boolEnv(key string, dst *bool) error {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return fmt.Errorf("%s must be a boolean (got %q): %w", key, raw, err)
	}
	*dst = parsed
	return nil
}

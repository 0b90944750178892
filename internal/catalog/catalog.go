// Package catalog holds the fixed background and overlay lists a session picks from.
package catalog

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Size is the number of entries every list must have.
const Size = 5

var ErrIndexOutOfRange = errors.New("catalog index out of range")

type Entry struct {
	Name   string `toml:"name" json:"name"`
	Source string `toml:"source" json:"source"`
}

type Catalog struct {
	Backgrounds []Entry `toml:"background"`
	Overlays    []Entry `toml:"overlay"`
}

func Default() Catalog {
	return Catalog{
		Backgrounds: []Entry{
			{Name: "Studio", Source: "backgrounds/studio.png"},
			{Name: "Sunset", Source: "backgrounds/sunset.png"},
			{Name: "Neon", Source: "backgrounds/neon.png"},
			{Name: "Forest", Source: "backgrounds/forest.png"},
			{Name: "Space", Source: "backgrounds/space.png"},
		},
		Overlays: []Entry{
			{Name: "Frame", Source: "overlays/frame.png"},
			{Name: "Banner", Source: "overlays/banner.png"},
			{Name: "Sparkles", Source: "overlays/sparkles.png"},
			{Name: "Vignette", Source: "overlays/vignette.png"},
			{Name: "Badge", Source: "overlays/badge.png"},
		},
	}
}

// Load reads a TOML catalog file. Both lists must contain exactly Size entries.
func Load(filePath string) (Catalog, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return Catalog{}, err
	}
	return Parse(data)
}

func Parse(data []byte) (Catalog, error) {
	var c Catalog
	if err := toml.Unmarshal(data, &c); err != nil {
		return Catalog{}, fmt.Errorf("parse catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Catalog{}, err
	}
	return c, nil
}

func (c Catalog) Validate() error {
	if err := validateList("background", c.Backgrounds); err != nil {
		return err
	}
	return validateList("overlay", c.Overlays)
}

func validateList(kind string, entries []Entry) error {
	if len(entries) != Size {
		return fmt.Errorf("catalog needs exactly %d %s entries (got %d)", Size, kind, len(entries))
	}
	for i, e := range entries {
		if strings.TrimSpace(e.Source) == "" {
			return fmt.Errorf("catalog %s entry %d has no source", kind, i)
		}
	}
	return nil
}

func (c Catalog) Background(index int) (Entry, error) { return pick(c.Backgrounds, index) }
func (c Catalog) Overlay(index int) (Entry, error)    { return pick(c.Overlays, index) }

func pick(entries []Entry, index int) (Entry, error) {
	if index < 0 || index >= len(entries) {
		return Entry{}, fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	return entries[index], nil
}

// Resolve returns a copy of c with relative sources anchored at root.
// root may be a directory or an http(s) base URL; absolute sources are kept.
func (c Catalog) Resolve(root string) Catalog {
	if root == "" {
		return c
	}
	return Catalog{Backgrounds: resolveList(c.Backgrounds, root), Overlays: resolveList(c.Overlays, root)}
}

func resolveList(entries []Entry, root string) []Entry {
	out := make([]Entry, len(entries))
	for i, e := range entries {
		e.Source = resolveSource(e.Source, root)
		out[i] = e
	}
	return out
}

func resolveSource(source, root string) string {
	if IsRemote(source) || filepath.IsAbs(source) {
		return source
	}
	if IsRemote(root) {
		base, err := url.Parse(root)
		if err != nil {
			return source
		}
		base.Path = path.Join(base.Path, source)
		return base.String()
	}
	return filepath.Join(root, filepath.FromSlash(source))
}

// IsRemote reports whether source is fetched over HTTP.
func IsRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

package render

import (
	"fmt"
	"image/color"
	"strings"
)

// Colors used for placeholders and the framebuffer splash.
var (
	Foreground = color.RGBA{R: 0x90, G: 0x00, B: 0xFF, A: 0xFF} // #9000ff
	Background = color.RGBA{R: 0xFF, G: 0xDC, B: 0x00, A: 0xFF} // #ffdc00
)

// Preset is a fixed surface size. A session keeps one preset for its lifetime.
type Preset struct {
	Name   string
	Width  int
	Height int
}

var (
	Thumbnail = Preset{Name: "thumbnail", Width: 1280, Height: 720}
	Avatar    = Preset{Name: "avatar", Width: 400, Height: 400}
)

func PresetByName(name string) (Preset, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", Thumbnail.Name:
		return Thumbnail, nil
	case Avatar.Name:
		return Avatar, nil
	default:
		return Preset{}, fmt.Errorf("unknown mode %q (want %s or %s)", name, Thumbnail.Name, Avatar.Name)
	}
}

package main

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"
	"strings"

	"github.com/rook-computer/composer/internal/catalog"
)

var backgroundStops = [][2]color.RGBA{
	{{0x2b, 0x2d, 0x42, 0xff}, {0x8d, 0x99, 0xae, 0xff}},
	{{0xff, 0x7b, 0x00, 0xff}, {0x6a, 0x00, 0x5f, 0xff}},
	{{0x90, 0x00, 0xff, 0xff}, {0x00, 0xe5, 0xff, 0xff}},
	{{0x1b, 0x43, 0x32, 0xff}, {0x95, 0xd5, 0xb2, 0xff}},
	{{0x00, 0x00, 0x00, 0xff}, {0x1a, 0x23, 0x7e, 0xff}},
}

var overlayTints = []color.RGBA{
	{0xff, 0xdc, 0x00, 0xff},
	{0xff, 0xff, 0xff, 0xff},
	{0xff, 0xd7, 0x00, 0xff},
	{0x00, 0x00, 0x00, 0xff},
	{0xe6, 0x39, 0x46, 0xff},
}

// generateSwatches renders a PNG for every source in cat, keyed by its
// relative source path. Backgrounds are opaque gradients; overlays are mostly
// transparent so the character stays visible.
func generateSwatches(cat catalog.Catalog, width, height int) (map[string][]byte, error) {
	out := make(map[string][]byte, len(cat.Backgrounds)+len(cat.Overlays))
	for i, e := range cat.Backgrounds {
		stops := backgroundStops[i%len(backgroundStops)]
		data, err := encodeSwatch(gradient(width, height, stops[0], stops[1]))
		if err != nil {
			return nil, err
		}
		out[e.Source] = data
	}
	for i, e := range cat.Overlays {
		data, err := encodeSwatch(overlay(i, width, height, overlayTints[i%len(overlayTints)]))
		if err != nil {
			return nil, err
		}
		out[e.Source] = data
	}
	return out, nil
}

func gradient(w, h int, top, bottom color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		t := float64(y) / math.Max(1, float64(h-1))
		c := color.RGBA{
			R: lerp(top.R, bottom.R, t),
			G: lerp(top.G, bottom.G, t),
			B: lerp(top.B, bottom.B, t),
			A: 0xff,
		}
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(math.Round(float64(a) + (float64(b)-float64(a))*t))
}

// overlay draws one of a few transparent decorations, picked by index.
func overlay(index, w, h int, tint color.RGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	edge := max(1, min(w, h)/24)
	c := color.NRGBA{R: tint.R, G: tint.G, B: tint.B, A: 0xff}
	fill := func(r image.Rectangle, c color.NRGBA) {
		r = r.Intersect(img.Bounds())
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				img.SetNRGBA(x, y, c)
			}
		}
	}

	switch index % 5 {
	case 0: // frame
		fill(image.Rect(0, 0, w, edge), c)
		fill(image.Rect(0, h-edge, w, h), c)
		fill(image.Rect(0, 0, edge, h), c)
		fill(image.Rect(w-edge, 0, w, h), c)
	case 1: // banner
		c.A = 0xc0
		fill(image.Rect(0, h-h/8, w, h), c)
	case 2: // sparkles
		for i := 0; i < 24; i++ {
			x := (i*7919 + 13) % w
			y := (i*104729 + 31) % h
			fill(image.Rect(x, y, x+edge, y+edge), c)
		}
	case 3: // vignette
		cx, cy := float64(w)/2, float64(h)/2
		maxD := math.Hypot(cx, cy)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				d := math.Hypot(float64(x)-cx, float64(y)-cy) / maxD
				if d > 0.6 {
					c.A = uint8(math.Min(255, (d-0.6)/0.4*200))
					img.SetNRGBA(x, y, c)
				}
			}
		}
	case 4: // badge
		size := min(w, h) / 5
		fill(image.Rect(w-size-edge, edge, w-edge, edge+size), c)
	}
	return img
}

func encodeSwatch(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// swatchKind reports which catalog list a source belongs to.
func swatchKind(source string) string {
	switch {
	case strings.Contains(source, "backgrounds/"):
		return "background"
	case strings.Contains(source, "overlays/"):
		return "overlay"
	default:
		return ""
	}
}

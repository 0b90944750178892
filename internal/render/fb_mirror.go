package render

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"sync"
	"sync/atomic"

	fb "github.com/gonutz/framebuffer"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/rook-computer/composer/internal/assets"
	"github.com/rook-computer/composer/internal/render/layout"
)

// FBMirror shows the editor surface on a Linux framebuffer device, so a
// kiosk display next to the machine follows the composition live.
type FBMirror struct {
	Device string
	Logger interface {
		Infof(string, string, ...interface{})
		Errorf(string, string, ...interface{})
	}

	mu       sync.Mutex
	fbDev    *fb.Device
	fontFace font.Face
	running  atomic.Bool
	shown    atomic.Bool
}

func NewFBMirror(device string) *FBMirror { return &FBMirror{Device: device} }

func (m *FBMirror) Start(ctx context.Context) error {
	device := m.Device
	if device == "" {
		device = "/dev/fb0"
	}
	dev, err := fb.Open(device)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.fbDev = dev
	m.mu.Unlock()
	bounds := dev.Bounds()
	m.infof("framebuffer %s open, bounds=%dx%d", device, bounds.Dx(), bounds.Dy())

	fnt, err := opentype.Parse(assets.FontTTF)
	if err != nil {
		m.fontFace = basicfont.Face7x13
		m.errorf("font parse failed, using basicfont: %v", err)
	} else if face, ferr := opentype.NewFace(fnt, &opentype.FaceOptions{Size: 28, DPI: 96, Hinting: font.HintingFull}); ferr != nil {
		m.fontFace = basicfont.Face7x13
		m.errorf("font face create failed, using basicfont: %v", ferr)
	} else {
		m.fontFace = face
	}

	m.running.Store(true)
	go func() {
		<-ctx.Done()
		_ = m.Stop()
	}()
	return nil
}

func (m *FBMirror) Stop() error {
	if !m.running.CompareAndSwap(true, false) {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fbDev != nil {
		m.fbDev.Close()
		m.fbDev = nil
	}
	return nil
}

// ShowSplash draws a QR code of url with the url printed below it.
// It is skipped once a real frame has been shown.
func (m *FBMirror) ShowSplash(url string) {
	if !m.running.Load() || m.shown.Load() {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fbDev == nil {
		return
	}
	bounds := m.fbDev.Bounds()
	canvas := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{C: Background}, image.Point{}, draw.Src)

	qrArea, textArea := layout.SplitHorizontal(layout.Inset(canvas.Bounds(), 40), canvas.Bounds().Dy()*3/4)
	square := layout.CenterSquare(qrArea)
	if qr, err := EditorQRCode(url, square.Dx()); err != nil {
		m.errorf("splash qr failed: %v", err)
	} else {
		xdraw.NearestNeighbor.Scale(canvas, square, qr, qr.Bounds(), draw.Over, nil)
	}
	m.drawTextCentered(canvas, url, textArea)
	blit(m.fbDev, canvas)
	m.infof("splash shown for %s", url)
}

// Show blits frame to the framebuffer with nearest-neighbour scaling.
func (m *FBMirror) Show(frame *image.RGBA) {
	if !m.running.Load() || frame == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fbDev == nil {
		return
	}
	m.shown.Store(true)
	blit(m.fbDev, frame)
}

func (m *FBMirror) drawTextCentered(canvas *image.RGBA, text string, area image.Rectangle) {
	face := m.fontFace
	if face == nil {
		face = basicfont.Face7x13
	}
	drawer := &font.Drawer{Dst: canvas, Src: image.NewUniform(Foreground), Face: face}
	textWidth := drawer.MeasureString(text).Ceil()
	ascent := face.Metrics().Ascent.Ceil()
	x := area.Min.X + (area.Dx()-textWidth)/2
	baseline := area.Min.Y + (area.Dy()+ascent)/2
	drawer.Dot = fixed.P(x, baseline)
	drawer.DrawString(text)
}

// blit writes canvas onto the device, scaling it to the device bounds.
// The framebuffer has no alpha, so transparent surface pixels come out black.
func blit(dev *fb.Device, canvas *image.RGBA) {
	bounds := dev.Bounds()
	fbWidth := bounds.Dx()
	fbHeight := bounds.Dy()
	srcWidth := canvas.Bounds().Dx()
	srcHeight := canvas.Bounds().Dy()
	if fbWidth == 0 || fbHeight == 0 || srcWidth == 0 || srcHeight == 0 {
		return
	}
	for y := 0; y < fbHeight; y++ {
		sy := canvas.Bounds().Min.Y + (y*srcHeight)/fbHeight
		for x := 0; x < fbWidth; x++ {
			sx := canvas.Bounds().Min.X + (x*srcWidth)/fbWidth
			pixel := canvas.RGBAAt(sx, sy)
			dev.Set(bounds.Min.X+x, bounds.Min.Y+y, color.RGBA{R: pixel.R, G: pixel.G, B: pixel.B, A: 0xFF})
		}
	}
}

func (m *FBMirror) infof(format string, args ...interface{}) {
	if m.Logger != nil {
		m.Logger.Infof("fb", format, args...)
	}
}

func (m *FBMirror) errorf(format string, args ...interface{}) {
	if m.Logger != nil {
		m.Logger.Errorf("fb", format, args...)
	}
}

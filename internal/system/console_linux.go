//go:build linux

package system

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// KD console modes from linux/kd.h
const (
	kdText     = 0x00
	kdGraphics = 0x01
	kdSetMode  = 0x4B3A // KDSETMODE ioctl
)

var consolePaths = []string{"/dev/tty", "/dev/tty0"}

// Console toggles the active virtual terminal between text and graphics mode
// so the framebuffer mirror is not overdrawn by the blinking cursor.
type Console struct {
	Logger logger
}

// EnterGraphics switches the console to KD_GRAPHICS and hides the cursor.
func (c Console) EnterGraphics() error {
	err := setKDMode(kdGraphics)
	if err != nil {
		c.errorf("KD_GRAPHICS failed: %v", err)
	} else {
		c.infof("KD_GRAPHICS set")
	}
	if cerr := writeVT("\x1b[?25l"); cerr != nil {
		c.errorf("hide cursor failed: %v", cerr)
	}
	return err
}

// Restore shows the cursor again and returns the console to KD_TEXT.
func (c Console) Restore() error {
	if err := writeVT("\x1b[?25h"); err != nil {
		c.errorf("show cursor failed: %v", err)
	}
	err := setKDMode(kdText)
	if err != nil {
		c.errorf("KD_TEXT failed: %v", err)
	} else {
		c.infof("KD_TEXT set")
	}
	return err
}

func setKDMode(mode int) error {
	var lastErr error
	for _, p := range consolePaths {
		fd, err := unix.Open(p, unix.O_RDONLY, 0)
		if err != nil {
			lastErr = fmt.Errorf("open %s: %w", p, err)
			continue
		}
		err = unix.IoctlSetInt(fd, kdSetMode, mode)
		_ = unix.Close(fd)
		if err != nil {
			lastErr = fmt.Errorf("KDSETMODE %d on %s: %w", mode, p, err)
			continue
		}
		return nil
	}
	return lastErr
}

func writeVT(s string) error {
	var lastErr error
	for _, p := range consolePaths {
		f, err := os.OpenFile(p, os.O_WRONLY, 0)
		if err != nil {
			lastErr = err
			continue
		}
		_, err = f.WriteString(s)
		_ = f.Close()
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return fmt.Errorf("write VT failed: %w", lastErr)
}

func (c Console) infof(format string, args ...interface{}) {
	if c.Logger != nil {
		c.Logger.Infof("tty", format, args...)
	}
}

func (c Console) errorf(format string, args ...interface{}) {
	if c.Logger != nil {
		c.Logger.Errorf("tty", format, args...)
	}
}

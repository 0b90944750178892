//go:build !linux

package system

import "errors"

// ErrNoConsole is returned where virtual terminal mode switching is unavailable.
var ErrNoConsole = errors.New("console mode switching is only supported on linux")

type Console struct {
	Logger logger
}

func (c Console) EnterGraphics() error { return ErrNoConsole }
func (c Console) Restore() error       { return ErrNoConsole }

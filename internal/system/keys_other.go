//go:build !linux

package system

import "context"

// WatchKeys is a no-op off Linux; there is no evdev to read.
func WatchKeys(ctx context.Context, l logger, bindings map[uint16]func()) {
	if l != nil && len(bindings) > 0 {
		l.Infof("input", "hotkeys unsupported on this platform")
	}
}

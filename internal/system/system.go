// Package system holds the small amount of Linux console plumbing the
// framebuffer mirror needs: KD mode switching and evdev hotkeys.
package system

type logger interface {
	Infof(string, string, ...interface{})
	Errorf(string, string, ...interface{})
}

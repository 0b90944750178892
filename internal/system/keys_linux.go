//go:build linux

package system

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// WatchKeys reads every evdev device under /dev/input/event* and calls the
// binding for each bound key press. Bindings run on the reader goroutine of
// the device that saw the key.
//
// It is best-effort: without readable input devices it logs and returns.
func WatchKeys(ctx context.Context, l logger, bindings map[uint16]func()) {
	if len(bindings) == 0 {
		return
	}

	tvSize := binary.Size(unix.Timeval{})
	paths, err := filepath.Glob("/dev/input/event*")
	if err != nil || len(paths) == 0 {
		if l != nil {
			l.Infof("input", "no evdev devices found, hotkeys disabled")
		}
		return
	}

	for _, path := range paths {
		go watchDevice(ctx, path, tvSize, bindings)
	}
}

func watchDevice(ctx context.Context, path string, tvSize int, bindings map[uint16]func()) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		return
	}
	f := os.NewFile(uintptr(fd), path)
	defer func() { _ = f.Close() }()

	buf := make([]byte, 4096)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		pollFds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
		if _, err := unix.Poll(pollFds, 250); err != nil {
			if err == unix.EINTR {
				continue
			}
			// Device went away.
			return
		}
		if pollFds[0].Revents&unix.POLLIN == 0 {
			continue
		}

		n, err := unix.Read(fd, buf)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EINTR {
				continue
			}
			return
		}
		for _, code := range keyPresses(buf[:n], tvSize) {
			if fn, ok := bindings[code]; ok {
				fn()
			}
		}
	}
}

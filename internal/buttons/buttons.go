package buttons

import (
	"context"
	"sync/atomic"

	"github.com/rook-computer/composer/internal/system"
)

type Event string

const (
	Exit   Event = "exit"
	Export Event = "export"
)

type Buttons interface {
	Start(ctx context.Context) error
	Stop() error
	Events() <-chan Event
}

type NoopButtons struct{ ch chan Event }

func NewNoopButtons() *NoopButtons { return &NoopButtons{ch: make(chan Event)} }

func (n *NoopButtons) Start(ctx context.Context) error { return nil }
func (n *NoopButtons) Stop() error                     { return nil }
func (n *NoopButtons) Events() <-chan Event            { return n.ch }

type logger interface {
	Infof(string, string, ...interface{})
	Errorf(string, string, ...interface{})
}

// DefaultBindings maps the kiosk keyboard: Esc or F4 quits, F12 saves an export.
var DefaultBindings = map[uint16]Event{
	system.KeyEsc: Exit,
	system.KeyF4:  Exit,
	system.KeyF12: Export,
}

// KeyButtons turns evdev key presses into button events.
type KeyButtons struct {
	Logger   logger
	Bindings map[uint16]Event

	ch      chan Event
	stopped atomic.Bool
}

func NewKeyButtons(l logger) *KeyButtons {
	return &KeyButtons{Logger: l, Bindings: DefaultBindings, ch: make(chan Event, 4)}
}

func (k *KeyButtons) Start(ctx context.Context) error {
	handlers := make(map[uint16]func(), len(k.Bindings))
	for code, ev := range k.Bindings {
		handlers[code] = func() { k.emit(ev) }
	}
	system.WatchKeys(ctx, k.Logger, handlers)
	return nil
}

// Stop silences further events. The channel stays open because device
// readers may still be draining.
func (k *KeyButtons) Stop() error {
	k.stopped.Store(true)
	return nil
}

func (k *KeyButtons) Events() <-chan Event { return k.ch }

// emit never blocks a device reader; presses beyond the buffer are dropped.
func (k *KeyButtons) emit(ev Event) {
	if k.stopped.Load() {
		return
	}
	select {
	case k.ch <- ev:
	default:
		if k.Logger != nil {
			k.Logger.Infof("input", "dropped %s press", ev)
		}
	}
}

package dom

import (
	"sync"
)

type listener struct {
	fn func()
}

// EventTarget dispatches named events to registered listeners
// synchronously, in registration order.
type EventTarget struct {
	mu        sync.Mutex
	listeners map[string][]*listener
}

// NewEventTarget creates target without listeners.
func NewEventTarget() *EventTarget {
	return &EventTarget{listeners: make(map[string][]*listener)}
}

// AddEventListener registers fn for event and returns function removing it.
func (t *EventTarget) AddEventListener(event string, fn func()) func() {
	t.mu.Lock()
	defer t.mu.Unlock()

	l := &listener{fn: fn}
	t.listeners[event] = append(t.listeners[event], l)
	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		list := t.listeners[event]
		for i := range list {
			if list[i] == l {
				t.listeners[event] = append(list[:i:i], list[i+1:]...)
				return
			}
		}
	}
}

// Dispatch calls every listener of event and returns how many were called.
// Listeners may add or remove listeners, changes take effect on the next
// dispatch.
func (t *EventTarget) Dispatch(event string) int {
	t.mu.Lock()
	list := append([]*listener(nil), t.listeners[event]...)
	t.mu.Unlock()

	for _, l := range list {
		l.fn()
	}
	return len(list)
}

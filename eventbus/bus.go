// Package eventbus implements the in-process named-event dispatcher the
// engine uses to decouple itself from the rest of the client: packet
// handlers, plugins and the CLI subscribe by name instead of linking
// against the engine directly.
package eventbus

import (
	"sync"

	"github.com/pkg/errors"
)

// EventID identifies a registered event for fast dispatch, handed back by
// RegisterEvent.
type EventID int

// ErrUnknownEvent is returned when emitting to a name or id, or subscribing
// by id, that was never registered. RegisterCallback never returns it: it
// registers an unknown name instead.
var ErrUnknownEvent = errors.New("eventbus: unknown event")

// Callback receives a payload and a textual type tag describing its
// concrete type, matching the payload+tag contract at the bus boundary.
type Callback func(payload any, typeTag string)

// Bus is a named-event registry with typed emission. It is safe for
// concurrent use: registration happens once at startup from a single
// goroutine, but emission may be called from whichever goroutine is
// decoding or encoding a frame.
type Bus struct {
	mu        sync.RWMutex
	byName    map[string]EventID
	names     []string
	callbacks [][]Callback
}

// New returns an empty Bus.
func New() *Bus {
	return &Bus{byName: make(map[string]EventID)}
}

// RegisterEvent creates a new named event and returns its id. Registering
// the same name twice returns the existing id rather than creating a
// duplicate.
func (b *Bus) RegisterEvent(name string) EventID {
	b.mu.Lock()
	defer b.mu.Unlock()

	if id, ok := b.byName[name]; ok {
		return id
	}

	id := EventID(len(b.names))
	b.byName[name] = id
	b.names = append(b.names, name)
	b.callbacks = append(b.callbacks, nil)
	return id
}

// RegisterCallback subscribes fn to the named event, registering the event
// first if it does not already exist. Multiple callbacks may subscribe to
// the same event; they run in registration order.
func (b *Bus) RegisterCallback(name string, fn Callback) {
	id := b.RegisterEvent(name)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.callbacks[id] = append(b.callbacks[id], fn)
}

// Subscribe is an alias for RegisterCallback using an already-resolved
// EventID, for callers (like the per-packet registration loop) that keep
// ids around instead of names.
func (b *Bus) Subscribe(id EventID, fn Callback) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if int(id) < 0 || int(id) >= len(b.callbacks) {
		return ErrUnknownEvent
	}
	b.callbacks[id] = append(b.callbacks[id], fn)
	return nil
}

// Emit invokes every callback registered for id with payload and typeTag,
// in registration order. A callback is free to call Emit or any Send-like
// method itself; the bus is re-entrant because callbacks run outside any
// lock.
func (b *Bus) Emit(id EventID, payload any, typeTag string) error {
	b.mu.RLock()
	if int(id) < 0 || int(id) >= len(b.callbacks) {
		b.mu.RUnlock()
		return ErrUnknownEvent
	}
	// Copy the slice header under the lock, then run callbacks unlocked so
	// a callback registering a new event doesn't deadlock on itself.
	fns := b.callbacks[id]
	b.mu.RUnlock()

	for _, fn := range fns {
		fn(payload, typeTag)
	}
	return nil
}

// EmitByName resolves name and emits to it. Returns ErrUnknownEvent if name
// was never registered.
func (b *Bus) EmitByName(name string, payload any, typeTag string) error {
	b.mu.RLock()
	id, ok := b.byName[name]
	b.mu.RUnlock()
	if !ok {
		return ErrUnknownEvent
	}
	return b.Emit(id, payload, typeTag)
}

// Lookup returns the id registered for name, if any.
func (b *Bus) Lookup(name string) (EventID, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	id, ok := b.byName[name]
	return id, ok
}

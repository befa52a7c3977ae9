package mcd

import "io"

// Packet is implemented by every decoded protocol message. The engine never
// inspects a packet's fields; it only routes by ID and moves the encoded
// bytes in and out of the wire.
type Packet interface {
	// ID returns the packet's numeric id within its (State, Direction) row.
	ID() int32
	// Name returns a stable textual name, used to build event names and for
	// diagnostics. It does not vary with packet field values.
	Name() string
	// Encode writes the packet body (not the id) to w.
	Encode(w io.Writer) error
	// Decode reads the packet body (not the id) from r.
	Decode(r io.Reader) error
}

// Factory produces a new, zero-valued Packet ready to have Decode called on
// it, or ready to be filled in and Encoded.
type Factory func() Packet

// entry is one row of the registry: the factory plus the event name the
// event bus should use for packets at this (State, Direction, ID).
type entry struct {
	factory Factory
	name    string
}

// Registry is the codec table the framer routes through: a lookup from
// (State, Direction, packet id) to a Packet factory. It is populated once at
// startup and treated as read-only afterward, so lookups require no locking.
type Registry struct {
	rows [StateCount][DirectionCount]map[int32]entry
}

// NewRegistry returns an empty registry ready to have packets registered.
func NewRegistry() *Registry {
	reg := &Registry{}
	for s := range reg.rows {
		for d := range reg.rows[s] {
			reg.rows[s][d] = make(map[int32]entry)
		}
	}
	return reg
}

// Register adds a packet factory at (state, dir, packet.ID()). The name used
// for event registration is derived from state, dir and the packet's own
// Name(), matching the "<State>/<Direction>/<PacketName>" convention in the
// engine's event-bus contract.
func (r *Registry) Register(state State, dir Direction, factory Factory) {
	p := factory()
	r.rows[state][dir][p.ID()] = entry{
		factory: factory,
		name:    state.String() + "/" + dir.String() + "/" + p.Name(),
	}
}

// Lookup returns the factory and event name for (state, dir, id), or ok=false
// if no packet is registered there — the framer treats that as an unknown-id
// decode failure.
func (r *Registry) Lookup(state State, dir Direction, id int32) (Factory, string, bool) {
	e, ok := r.rows[state][dir][id]
	if !ok {
		return nil, "", false
	}
	return e.factory, e.name, true
}

// Each calls fn once per registered (state, dir, id, name) tuple. Used by
// the event-bus adapter to pre-register one event per known packet.
func (r *Registry) Each(fn func(state State, dir Direction, id int32, name string)) {
	for s := range r.rows {
		for d := range r.rows[s] {
			for id, e := range r.rows[s][d] {
				fn(State(s), Direction(d), id, e.name)
			}
		}
	}
}

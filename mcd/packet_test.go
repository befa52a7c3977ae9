package mcd

import (
	"io"
	"testing"
)

type pingPacket struct {
	payload int64
}

func (p *pingPacket) ID() int32        { return 0x01 }
func (p *pingPacket) Name() string     { return "Ping" }
func (p *pingPacket) Encode(io.Writer) error { return nil }
func (p *pingPacket) Decode(io.Reader) error { return nil }

func TestRegistryLookup(t *testing.T) {
	reg := NewRegistry()
	reg.Register(Status, Clientbound, func() Packet { return &pingPacket{} })

	factory, name, ok := reg.Lookup(Status, Clientbound, 0x01)
	if !ok {
		t.Fatal("expected registered packet to be found")
	}
	if name != "Status/Clientbound/Ping" {
		t.Errorf("name = %q, want Status/Clientbound/Ping", name)
	}

	p := factory()
	if p.ID() != 0x01 {
		t.Errorf("ID() = %d, want 1", p.ID())
	}
}

func TestRegistryLookupMiss(t *testing.T) {
	reg := NewRegistry()
	if _, _, ok := reg.Lookup(Play, Serverbound, 99); ok {
		t.Error("expected miss for unregistered id")
	}
}

func TestRegistryEach(t *testing.T) {
	reg := NewRegistry()
	reg.Register(Handshaking, Serverbound, func() Packet { return &pingPacket{} })

	count := 0
	reg.Each(func(state State, dir Direction, id int32, name string) {
		count++
		if state != Handshaking || dir != Serverbound || id != 0x01 {
			t.Errorf("unexpected tuple: %v %v %d", state, dir, id)
		}
	})
	if count != 1 {
		t.Errorf("Each called %d times, want 1", count)
	}
}

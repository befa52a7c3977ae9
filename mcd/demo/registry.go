package demo

import "github.com/coalforge/rkr/mcd"

// NewRegistry builds the codec table for this packet set: Handshake in the
// Handshaking state, status ping in the Status state, and a full login
// sequence (including encryption and compression) in the Login state.
func NewRegistry() *mcd.Registry {
	reg := mcd.NewRegistry()

	reg.Register(mcd.Handshaking, mcd.Serverbound, func() mcd.Packet { return &Handshake{} })

	reg.Register(mcd.Status, mcd.Serverbound, func() mcd.Packet { return &StatusRequest{} })
	reg.Register(mcd.Status, mcd.Serverbound, func() mcd.Packet { return &Ping{} })
	reg.Register(mcd.Status, mcd.Clientbound, func() mcd.Packet { return &StatusResponse{} })
	reg.Register(mcd.Status, mcd.Clientbound, func() mcd.Packet { return &Pong{} })

	reg.Register(mcd.Login, mcd.Serverbound, func() mcd.Packet { return &LoginStart{} })
	reg.Register(mcd.Login, mcd.Serverbound, func() mcd.Packet { return &EncryptionResponse{} })
	reg.Register(mcd.Login, mcd.Clientbound, func() mcd.Packet { return &LoginDisconnect{} })
	reg.Register(mcd.Login, mcd.Clientbound, func() mcd.Packet { return &EncryptionRequest{} })
	reg.Register(mcd.Login, mcd.Clientbound, func() mcd.Packet { return &LoginSuccess{} })
	reg.Register(mcd.Login, mcd.Clientbound, func() mcd.Packet { return &SetCompression{} })

	return reg
}

package demo

import "io"

// Handshake is the single serverbound Handshaking-state packet: it carries
// the protocol version and the state the client intends to move to next.
type Handshake struct {
	ProtocolVersion int32
	ServerAddress   string
	ServerPort      uint16
	NextState       int32
}

func (h *Handshake) ID() int32     { return 0x00 }
func (h *Handshake) Name() string  { return "Handshake" }
func (h *Handshake) Encode(w io.Writer) error {
	if err := writeVarInt(w, h.ProtocolVersion); err != nil {
		return err
	}
	if err := writeString(w, h.ServerAddress); err != nil {
		return err
	}
	if err := writeUnsignedShort(w, h.ServerPort); err != nil {
		return err
	}
	return writeVarInt(w, h.NextState)
}
func (h *Handshake) Decode(r io.Reader) error {
	var err error
	if h.ProtocolVersion, err = readVarInt(r); err != nil {
		return err
	}
	if h.ServerAddress, err = readString(r); err != nil {
		return err
	}
	if h.ServerPort, err = readUnsignedShort(r); err != nil {
		return err
	}
	h.NextState, err = readVarInt(r)
	return err
}

// StatusRequest has an empty body; the client sends it to ask for a status
// response.
type StatusRequest struct{}

func (StatusRequest) ID() int32              { return 0x00 }
func (StatusRequest) Name() string           { return "StatusRequest" }
func (StatusRequest) Encode(io.Writer) error { return nil }
func (StatusRequest) Decode(io.Reader) error { return nil }

// StatusResponse carries a JSON status payload, not parsed here.
type StatusResponse struct {
	JSON string
}

func (r *StatusResponse) ID() int32    { return 0x00 }
func (r *StatusResponse) Name() string { return "StatusResponse" }
func (r *StatusResponse) Encode(w io.Writer) error {
	return writeString(w, r.JSON)
}
func (r *StatusResponse) Decode(rd io.Reader) error {
	var err error
	r.JSON, err = readString(rd)
	return err
}

// Ping carries an opaque payload the server is expected to echo back as a
// Pong.
type Ping struct {
	Payload int64
}

func (p *Ping) ID() int32    { return 0x01 }
func (p *Ping) Name() string { return "Ping" }
func (p *Ping) Encode(w io.Writer) error {
	return writeInt64(w, p.Payload)
}
func (p *Ping) Decode(r io.Reader) error {
	var err error
	p.Payload, err = readInt64(r)
	return err
}

// Pong is the server's echo of the client's Ping payload.
type Pong struct {
	Payload int64
}

func (p *Pong) ID() int32    { return 0x01 }
func (p *Pong) Name() string { return "Pong" }
func (p *Pong) Encode(w io.Writer) error {
	return writeInt64(w, p.Payload)
}
func (p *Pong) Decode(r io.Reader) error {
	var err error
	p.Payload, err = readInt64(r)
	return err
}

func writeInt64(w io.Writer, v int64) error {
	buf := [8]byte{
		byte(v >> 56), byte(v >> 48), byte(v >> 40), byte(v >> 32),
		byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v),
	}
	_, err := w.Write(buf[:])
	return err
}

func readInt64(r io.Reader) (int64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	var v int64
	for _, b := range buf {
		v = v<<8 | int64(b)
	}
	return v, nil
}

// LoginStart is the first Login-state packet the client sends, carrying the
// player name the client wants to log in as.
type LoginStart struct {
	Name_ string
}

func (p *LoginStart) ID() int32    { return 0x00 }
func (p *LoginStart) Name() string { return "LoginStart" }
func (p *LoginStart) Encode(w io.Writer) error {
	return writeString(w, p.Name_)
}
func (p *LoginStart) Decode(r io.Reader) error {
	var err error
	p.Name_, err = readString(r)
	return err
}

// EncryptionRequest is the clientbound packet that begins the encryption
// handshake. It implements rkr.EncryptionBeginPayload.
type EncryptionRequest struct {
	ServerID         string
	PublicKey        []byte
	VerifyTokenBytes []byte
}

func (p *EncryptionRequest) ID() int32    { return 0x01 }
func (p *EncryptionRequest) Name() string { return "EncryptionRequest" }
func (p *EncryptionRequest) Encode(w io.Writer) error {
	if err := writeString(w, p.ServerID); err != nil {
		return err
	}
	if err := writeByteArray(w, p.PublicKey); err != nil {
		return err
	}
	return writeByteArray(w, p.VerifyTokenBytes)
}
func (p *EncryptionRequest) Decode(r io.Reader) error {
	var err error
	if p.ServerID, err = readString(r); err != nil {
		return err
	}
	if p.PublicKey, err = readByteArray(r); err != nil {
		return err
	}
	p.VerifyTokenBytes, err = readByteArray(r)
	return err
}

// PublicKeyDER implements rkr.EncryptionBeginPayload.
func (p *EncryptionRequest) PublicKeyDER() []byte { return p.PublicKey }

// VerifyToken implements rkr.EncryptionBeginPayload.
func (p *EncryptionRequest) VerifyToken() []byte { return p.VerifyTokenBytes }

// EncryptionResponse is the serverbound reply carrying the RSA-encrypted
// shared secret and verify token.
type EncryptionResponse struct {
	SharedSecret []byte
	VerifyToken  []byte
}

// NewEncryptionResponse is an rkr.EncryptionResponseFactory.
func NewEncryptionResponse(encSecret, encToken []byte) *EncryptionResponse {
	return &EncryptionResponse{SharedSecret: encSecret, VerifyToken: encToken}
}

func (p *EncryptionResponse) ID() int32    { return 0x01 }
func (p *EncryptionResponse) Name() string { return "EncryptionResponse" }
func (p *EncryptionResponse) Encode(w io.Writer) error {
	if err := writeByteArray(w, p.SharedSecret); err != nil {
		return err
	}
	return writeByteArray(w, p.VerifyToken)
}
func (p *EncryptionResponse) Decode(r io.Reader) error {
	var err error
	if p.SharedSecret, err = readByteArray(r); err != nil {
		return err
	}
	p.VerifyToken, err = readByteArray(r)
	return err
}

// EncryptionSecret implements rkr.EncryptionSecretPayload: this is the one
// packet whose Send must be followed immediately by flipping encryption on.
func (p *EncryptionResponse) EncryptionSecret() bool { return true }

// LoginSuccess ends the login sequence. The engine does not change state on
// receiving it; the subscriber calls SetState(mcd.Play).
type LoginSuccess struct {
	UUID     string
	Username string
}

func (p *LoginSuccess) ID() int32    { return 0x02 }
func (p *LoginSuccess) Name() string { return "LoginSuccess" }
func (p *LoginSuccess) Encode(w io.Writer) error {
	if err := writeString(w, p.UUID); err != nil {
		return err
	}
	return writeString(w, p.Username)
}
func (p *LoginSuccess) Decode(r io.Reader) error {
	var err error
	if p.UUID, err = readString(r); err != nil {
		return err
	}
	p.Username, err = readString(r)
	return err
}

// SetCompression tells the client the compression threshold to use from now
// on. It implements rkr.CompressPayload.
type SetCompression struct {
	Threshold_ int32
}

func (p *SetCompression) ID() int32    { return 0x03 }
func (p *SetCompression) Name() string { return "SetCompression" }
func (p *SetCompression) Encode(w io.Writer) error {
	return writeVarInt(w, p.Threshold_)
}
func (p *SetCompression) Decode(r io.Reader) error {
	var err error
	p.Threshold_, err = readVarInt(r)
	return err
}

// Threshold implements rkr.CompressPayload.
func (p *SetCompression) Threshold() int32 { return p.Threshold_ }

// LoginDisconnect tells the client it has been rejected during login.
type LoginDisconnect struct {
	Reason string
}

func (p *LoginDisconnect) ID() int32    { return 0x00 }
func (p *LoginDisconnect) Name() string { return "LoginDisconnect" }
func (p *LoginDisconnect) Encode(w io.Writer) error {
	return writeString(w, p.Reason)
}
func (p *LoginDisconnect) Decode(r io.Reader) error {
	var err error
	p.Reason, err = readString(r)
	return err
}

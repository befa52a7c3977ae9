package rkr

import (
	"bytes"
	"sync"

	"github.com/pkg/errors"

	"github.com/coalforge/rkr/eventbus"
	"github.com/coalforge/rkr/framebuf"
	"github.com/coalforge/rkr/mcd"
	"github.com/coalforge/rkr/mcd/compress"
	"github.com/coalforge/rkr/mcd/crypto"
)

// Framer turns outbound decoded packets into wire bytes and inbound wire
// bytes into decoded, (state, direction, id)-tagged packets. It owns the
// protocol state and the crypto/compression units, all behind a single
// mutex, so it is safe to call EncodePacket from one goroutine while
// TryDecode runs on another.
type Framer struct {
	mu sync.Mutex

	state      mcd.State
	registry   *mcd.Registry
	bus        *eventbus.Bus
	logger     Logger
	cipher     crypto.Cipher
	compressOn bool
	threshold  int32

	// scratch buffers are owned by this Framer instance, not shared
	// globally, so a subscriber calling Send from within a decode
	// callback can't corrupt another in-flight encode.
	idBuf     bytes.Buffer
	bodyBuf   bytes.Buffer
	headerBuf bytes.Buffer
}

// NewFramer returns a Framer in the initial Handshaking state.
func NewFramer(registry *mcd.Registry, bus *eventbus.Bus, logger Logger) *Framer {
	if logger == nil {
		logger = defaultLogger()
	}
	return &Framer{
		state:    mcd.Handshaking,
		registry: registry,
		bus:      bus,
		logger:   logger,
	}
}

// SetState changes the protocol state external packet handlers select,
// e.g. moving to Play after LoginSuccess.
func (f *Framer) SetState(s mcd.State) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = s
}

// State returns the current protocol state.
func (f *Framer) State() mcd.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Encrypted reports whether the AES-CFB8 streams are active.
func (f *Framer) Encrypted() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cipher.Active()
}

// DecryptInPlace decrypts buf if encryption is active, as bytes arrive from
// the socket, before they are committed into the inbound buffer.
func (f *Framer) DecryptInPlace(buf []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cipher.Decrypt(buf)
}

// ActivateEncryption keys both CFB8 streams with secret (key = IV = secret,
// the Minecraft convention) and flips encryption on for every subsequent
// byte in both directions.
func (f *Framer) ActivateEncryption(secret [crypto.KeySize]byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.cipher.Activate(secret); err != nil {
		return err
	}
	f.logger.Info("encryption enabled")
	return nil
}

// ActivateCompression flips compression on with the given threshold.
// Packets already framed before this call are not retroactively recoded;
// frames encoded or decoded after it use the compressed wire format.
func (f *Framer) ActivateCompression(threshold int32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.compressOn = true
	f.threshold = threshold
	f.logger.Info("compression enabled", "threshold", threshold)
}

// EncodePacket builds the wire frame for pkt (id + body, optionally
// compressed, optionally encrypted, length-prefixed) and emits the
// serverbound event for (state, Serverbound, pkt.ID()) with the original
// packet as payload. The returned bytes are ready to append to the
// outbound buffer verbatim.
func (f *Framer) EncodePacket(pkt mcd.Packet) ([]byte, error) {
	f.mu.Lock()

	f.idBuf.Reset()
	f.bodyBuf.Reset()
	if err := mcd.EncodeVarInt(&f.idBuf, uint32(pkt.ID())); err != nil {
		f.mu.Unlock()
		return nil, errors.Wrap(err, "rkr: encode packet id")
	}
	if err := pkt.Encode(&f.bodyBuf); err != nil {
		f.mu.Unlock()
		return nil, errors.Wrap(err, "rkr: encode packet body")
	}

	body := make([]byte, 0, f.idBuf.Len()+f.bodyBuf.Len())
	body = append(body, f.idBuf.Bytes()...)
	body = append(body, f.bodyBuf.Bytes()...)
	l := uint32(len(body))

	f.headerBuf.Reset()
	var frame []byte
	switch {
	case !f.compressOn:
		if err := mcd.EncodeVarInt(&f.headerBuf, l); err != nil {
			f.mu.Unlock()
			return nil, errors.Wrap(err, "rkr: encode length prefix")
		}
		frame = append(append([]byte(nil), f.headerBuf.Bytes()...), body...)

	case l >= uint32(f.threshold):
		compressed, err := compress.Compress(body)
		if err != nil {
			f.mu.Unlock()
			return nil, errors.Wrap(err, "rkr: compress body")
		}
		m := uint32(len(compressed)) + uint32(mcd.SizeVarInt(l))
		if err := mcd.EncodeVarInt(&f.headerBuf, m); err != nil {
			f.mu.Unlock()
			return nil, errors.Wrap(err, "rkr: encode packet length")
		}
		if err := mcd.EncodeVarInt(&f.headerBuf, l); err != nil {
			f.mu.Unlock()
			return nil, errors.Wrap(err, "rkr: encode data length")
		}
		frame = append(append([]byte(nil), f.headerBuf.Bytes()...), compressed...)

	default:
		if err := mcd.EncodeVarInt(&f.headerBuf, l+1); err != nil {
			f.mu.Unlock()
			return nil, errors.Wrap(err, "rkr: encode packet length")
		}
		if err := mcd.EncodeVarInt(&f.headerBuf, 0); err != nil {
			f.mu.Unlock()
			return nil, errors.Wrap(err, "rkr: encode zero data length")
		}
		frame = append(append([]byte(nil), f.headerBuf.Bytes()...), body...)
	}

	if f.cipher.Active() {
		f.cipher.Encrypt(frame)
	}

	state := f.state
	f.mu.Unlock()

	_, name, ok := f.registry.Lookup(state, mcd.Serverbound, pkt.ID())
	if !ok {
		name = state.String() + "/" + mcd.Serverbound.String() + "/" + pkt.Name()
	}
	if err := f.bus.EmitByName(name, pkt, name); err != nil && err != eventbus.ErrUnknownEvent {
		f.logger.Warn("emit serverbound event failed", "event", name, "error", err)
	}

	return frame, nil
}

// DecodeResult describes one successfully decoded frame, for callers (the
// engine) that want to report metrics without re-deriving frame boundaries
// themselves.
type DecodeResult struct {
	Name     string
	FrameLen int
	Packet   mcd.Packet
}

// TryDecode attempts to decode exactly one frame from buf's committed
// bytes. ok=false, err=nil means more bytes are needed before a verdict can
// be reached. A non-nil error is always terminal.
func (f *Framer) TryDecode(buf *framebuf.Buffer) (ok bool, result DecodeResult, err error) {
	head := buf.Bytes()

	status, lengthPrefix, headerLen := mcd.VerifyVarInt(head)
	switch status {
	case mcd.VarIntOverrun:
		return false, DecodeResult{}, nil
	case mcd.VarIntInvalid:
		return false, DecodeResult{}, errors.Wrap(ErrMalformedFrame, "length prefix")
	}

	total := headerLen + int(lengthPrefix)
	if buf.Len() < total {
		return false, DecodeResult{}, nil
	}

	payload := head[headerLen:total]

	f.mu.Lock()
	state := f.state
	compressOn := f.compressOn
	f.mu.Unlock()

	var idAndBody []byte
	if !compressOn {
		idAndBody = payload
	} else {
		innerStatus, innerLen, innerN := mcd.VerifyVarInt(payload)
		if innerStatus != mcd.VarIntValid {
			return false, DecodeResult{}, errors.Wrap(ErrMalformedFrame, "inner data length")
		}
		rest := payload[innerN:]
		if innerLen == 0 {
			idAndBody = rest
		} else {
			inflated, ierr := compress.Decompress(rest, int(innerLen))
			if errors.Is(ierr, compress.ErrLengthMismatch) {
				return false, DecodeResult{}, errors.Wrap(ErrMalformedFrame, "inflated length mismatch")
			}
			if ierr != nil {
				return false, DecodeResult{}, errors.Wrap(ierr, "rkr: inflate frame")
			}
			idAndBody = inflated
		}
	}

	r := bytes.NewReader(idAndBody)
	id, derr := mcd.DecodeVarInt(r)
	if derr != nil {
		return false, DecodeResult{}, errors.Wrap(derr, "rkr: decode packet id")
	}

	factory, name, found := f.registry.Lookup(state, mcd.Clientbound, int32(id))
	if !found {
		return false, DecodeResult{}, errors.Wrapf(ErrUnknownPacket, "state=%s id=%d", state, id)
	}

	pkt := factory()
	if err := pkt.Decode(r); err != nil {
		return false, DecodeResult{}, errors.Wrapf(err, "rkr: decode %s body", name)
	}

	if err := f.bus.EmitByName(name, pkt, name); err != nil && err != eventbus.ErrUnknownEvent {
		f.logger.Warn("emit clientbound event failed", "event", name, "error", err)
	}

	buf.Consume(total)

	return true, DecodeResult{Name: name, FrameLen: total, Packet: pkt}, nil
}

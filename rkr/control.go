package rkr

import (
	"github.com/pkg/errors"

	"github.com/coalforge/rkr/mcd"
	"github.com/coalforge/rkr/mcd/crypto"
)

// EncryptionBeginPayload is implemented by whichever clientbound packet in
// the embedder's codec table carries the server's X.509/DER RSA public key
// and verify token — the signal that starts the in-protocol crypto
// handshake.
type EncryptionBeginPayload interface {
	PublicKeyDER() []byte
	VerifyToken() []byte
}

// CompressPayload is implemented by whichever clientbound packet announces
// the compression threshold.
type CompressPayload interface {
	Threshold() int32
}

// EncryptionResponseFactory builds the serverbound packet that carries the
// RSA-encrypted shared secret and verify token, in whatever concrete
// mcd.Packet type the embedder's codec table uses for it.
type EncryptionResponseFactory func(encryptedSecret, encryptedVerifyToken []byte) mcd.Packet

// EncryptionSecretPayload is implemented by the one serverbound packet that
// carries the RSA-encrypted shared secret. Send uses it to recognize the
// exact moment encryption must flip on: immediately after that packet's
// bytes are queued, never before.
type EncryptionSecretPayload interface {
	EncryptionSecret() bool
}

// onClientboundEncryptionBegin handles the clientbound encryption-begin
// packet: load the server's X.509 key, generate a 16-byte shared secret,
// RSA-encrypt it and the verify token, and send the response. Encryption is
// deliberately NOT enabled yet — see onServerboundEncryptionBegin.
func (e *Engine) onClientboundEncryptionBegin(begin EncryptionBeginPayload) {
	pub, err := crypto.ParseX509PublicKey(begin.PublicKeyDER())
	if err != nil {
		e.fail(errors.Wrap(err, "rkr: parse server public key"))
		return
	}

	secret, err := crypto.GenerateSharedSecret(e.rng)
	if err != nil {
		e.fail(errors.Wrap(err, "rkr: generate shared secret"))
		return
	}

	encSecret, encToken, err := crypto.EncryptHandshake(pub, secret, begin.VerifyToken())
	if err != nil {
		e.fail(errors.Wrap(err, "rkr: rsa-encrypt handshake"))
		return
	}

	e.pendingSecret = secret

	resp := e.encResponseFactory(encSecret, encToken)
	if err := e.Send(resp); err != nil {
		e.fail(errors.Wrap(err, "rkr: send encryption response"))
		return
	}
}

// onServerboundEncryptionBegin fires after the engine's own Send has
// already queued the cleartext encryption-response bytes. Only now is
// encryption flipped on, so the response itself is sent in the clear and
// every subsequent byte, in either direction, is encrypted.
func (e *Engine) onServerboundEncryptionBegin() {
	if err := e.framer.ActivateEncryption(e.pendingSecret); err != nil {
		e.fail(errors.Wrap(err, "rkr: activate encryption"))
		return
	}
	e.pendingSecret = [crypto.KeySize]byte{}
}

// onClientboundCompress handles the clientbound compress packet: read the
// threshold and flip compression on. Frames already on the wire are not
// retroactively recoded.
func (e *Engine) onClientboundCompress(c CompressPayload) {
	e.framer.ActivateCompression(c.Threshold())
}

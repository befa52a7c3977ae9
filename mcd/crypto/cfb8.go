// Package crypto implements the cryptographic handshake and symmetric
// stream cipher used once a Minecraft connection has negotiated
// encryption: RSA/PKCS1v15 key exchange of a 16-byte shared secret,
// followed by AES-128 in CFB8 mode (8-bit cipher feedback) over every byte
// in both directions.
//
// Go's standard library only exposes full-block CFB
// (crypto/cipher.NewCFBEncrypter, which feeds back one whole AES block at a
// time). Minecraft's wire protocol requires single-byte feedback, so the
// shift register below is built directly on cipher.Block.Encrypt the same
// way stdlib's own CFB implementation is, just with an 8-bit instead of a
// 128-bit feedback segment.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"

	"github.com/pkg/errors"
)

// KeySize is the shared secret / AES-128 key length in bytes.
const KeySize = 16

// cfb8Stream is a cipher.Stream implementing CFB8 over a single
// cipher.Block. encrypt selects AES-128/CFB8 encryption vs. decryption
// feedback behaviour.
type cfb8Stream struct {
	block   cipher.Block
	shift   []byte // shift register, len == block.BlockSize()
	tmp     []byte // scratch for block.Encrypt output
	encrypt bool
}

func newCFB8Stream(block cipher.Block, iv []byte, encrypt bool) *cfb8Stream {
	bs := block.BlockSize()
	shift := make([]byte, bs)
	copy(shift, iv)
	return &cfb8Stream{
		block:   block,
		shift:   shift,
		tmp:     make([]byte, bs),
		encrypt: encrypt,
	}
}

// XORKeyStream implements cipher.Stream. It processes src byte by byte:
// encrypt the shift register, XOR its first byte with the plaintext (or
// ciphertext, when decrypting) byte, then shift the *ciphertext* byte into
// the register regardless of direction.
func (s *cfb8Stream) XORKeyStream(dst, src []byte) {
	if len(dst) < len(src) {
		panic("crypto/cfb8: output smaller than input")
	}
	bs := len(s.shift)
	for i, in := range src {
		s.block.Encrypt(s.tmp, s.shift)
		out := in ^ s.tmp[0]

		var cipherByte byte
		if s.encrypt {
			cipherByte = out
		} else {
			cipherByte = in
		}

		copy(s.shift, s.shift[1:bs])
		s.shift[bs-1] = cipherByte

		dst[i] = out
	}
}

// Cipher holds the encrypt and decrypt CFB8 streams for one connection. It
// is a no-op passthrough until Activate is called.
type Cipher struct {
	encryptor cipher.Stream
	decryptor cipher.Stream
}

// Activate keys both streams with key = IV = secret, the Minecraft
// convention, and must be called exactly once per connection.
func (c *Cipher) Activate(secret [KeySize]byte) error {
	block, err := newAESBlock(secret)
	if err != nil {
		return err
	}
	c.encryptor = newCFB8Stream(block, secret[:], true)

	block, err = newAESBlock(secret)
	if err != nil {
		return err
	}
	c.decryptor = newCFB8Stream(block, secret[:], false)
	return nil
}

// Active reports whether Activate has been called.
func (c *Cipher) Active() bool {
	return c.encryptor != nil
}

func newAESBlock(key [KeySize]byte) (cipher.Block, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, errors.Wrap(err, "crypto: new aes block")
	}
	return block, nil
}

// Encrypt XORs buf in place through the encrypt stream. It is a no-op if
// the cipher has not been activated.
func (c *Cipher) Encrypt(buf []byte) {
	if c.encryptor == nil {
		return
	}
	c.encryptor.XORKeyStream(buf, buf)
}

// Decrypt XORs buf in place through the decrypt stream. It is a no-op if
// the cipher has not been activated.
func (c *Cipher) Decrypt(buf []byte) {
	if c.decryptor == nil {
		return
	}
	c.decryptor.XORKeyStream(buf, buf)
}

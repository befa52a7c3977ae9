package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"io"

	"github.com/pkg/errors"
)

// ErrNotRSAKey is returned when a parsed X.509 key is not an RSA public key.
var ErrNotRSAKey = errors.New("crypto: public key is not RSA")

// ParseX509PublicKey parses a DER-encoded X.509/PKIX RSA public key, as
// delivered in the server's ClientboundEncryptionBegin packet.
func ParseX509PublicKey(der []byte) (*rsa.PublicKey, error) {
	key, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, errors.Wrap(err, "crypto: parse x509 public key")
	}
	pub, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, ErrNotRSAKey
	}
	return pub, nil
}

// GenerateSharedSecret returns a fresh 16-byte shared secret read from rng.
// The engine passes crypto/rand.Reader unless WithRandReader overrides it.
func GenerateSharedSecret(rng io.Reader) ([KeySize]byte, error) {
	var secret [KeySize]byte
	if _, err := io.ReadFull(rng, secret[:]); err != nil {
		return secret, errors.Wrap(err, "crypto: generate shared secret")
	}
	return secret, nil
}

// EncryptHandshake RSA/PKCS1v15-encrypts the shared secret and the server's
// verify token against the server's public key, producing the two
// ciphertexts the ServerboundEncryptionBegin response carries verbatim.
func EncryptHandshake(pub *rsa.PublicKey, secret [KeySize]byte, verifyToken []byte) (encSecret, encToken []byte, err error) {
	encSecret, err = rsa.EncryptPKCS1v15(rand.Reader, pub, secret[:])
	if err != nil {
		return nil, nil, errors.Wrap(err, "crypto: encrypt shared secret")
	}
	encToken, err = rsa.EncryptPKCS1v15(rand.Reader, pub, verifyToken)
	if err != nil {
		return nil, nil, errors.Wrap(err, "crypto: encrypt verify token")
	}
	return encSecret, encToken, nil
}

package crypto

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"testing"
)

func TestCFB8RoundTrip(t *testing.T) {
	var secret [KeySize]byte
	copy(secret[:], []byte("0123456789abcdef"))

	var enc, dec Cipher
	if err := enc.Activate(secret); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if err := dec.Activate(secret); err != nil {
		t.Fatalf("Activate: %v", err)
	}

	plaintext := []byte("the quick brown fox jumps over the lazy dog, byte for byte")
	buf := append([]byte(nil), plaintext...)

	enc.Encrypt(buf)
	if bytes.Equal(buf, plaintext) {
		t.Fatal("ciphertext equals plaintext")
	}

	dec.Decrypt(buf)
	if !bytes.Equal(buf, plaintext) {
		t.Fatalf("decrypt(encrypt(x)) = %q, want %q", buf, plaintext)
	}
}

func TestCFB8InactiveIsPassthrough(t *testing.T) {
	var c Cipher
	buf := []byte("unchanged")
	orig := append([]byte(nil), buf...)
	c.Encrypt(buf)
	if !bytes.Equal(buf, orig) {
		t.Fatal("inactive cipher modified buffer")
	}
}

func TestCFB8ByteAtATime(t *testing.T) {
	var secret [KeySize]byte
	copy(secret[:], []byte("fedcba9876543210"))

	var whole, piecewise Cipher
	if err := whole.Activate(secret); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if err := piecewise.Activate(secret); err != nil {
		t.Fatalf("Activate: %v", err)
	}

	plaintext := []byte("fragmented frames over the wire")
	wholeBuf := append([]byte(nil), plaintext...)
	whole.Encrypt(wholeBuf)

	piecewiseBuf := append([]byte(nil), plaintext...)
	for i := range piecewiseBuf {
		piecewise.Encrypt(piecewiseBuf[i : i+1])
	}

	if !bytes.Equal(wholeBuf, piecewiseBuf) {
		t.Fatalf("byte-at-a-time encryption diverged: %x vs %x", piecewiseBuf, wholeBuf)
	}
}

func TestEncryptHandshakeRoundTrip(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 1024)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}

	der, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		t.Fatalf("MarshalPKIXPublicKey: %v", err)
	}

	pub, err := ParseX509PublicKey(der)
	if err != nil {
		t.Fatalf("ParseX509PublicKey: %v", err)
	}

	secret, err := GenerateSharedSecret(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateSharedSecret: %v", err)
	}
	verifyToken := []byte("verify-token")

	encSecret, encToken, err := EncryptHandshake(pub, secret, verifyToken)
	if err != nil {
		t.Fatalf("EncryptHandshake: %v", err)
	}

	gotSecret, err := rsa.DecryptPKCS1v15(rand.Reader, priv, encSecret)
	if err != nil {
		t.Fatalf("decrypt secret: %v", err)
	}
	if !bytes.Equal(gotSecret, secret[:]) {
		t.Fatalf("decrypted secret = %x, want %x", gotSecret, secret)
	}

	gotToken, err := rsa.DecryptPKCS1v15(rand.Reader, priv, encToken)
	if err != nil {
		t.Fatalf("decrypt token: %v", err)
	}
	if !bytes.Equal(gotToken, verifyToken) {
		t.Fatalf("decrypted token = %q, want %q", gotToken, verifyToken)
	}
}

func TestParseX509PublicKeyRejectsMalformedDER(t *testing.T) {
	// An empty/garbage DER blob should fail to parse outright.
	if _, err := ParseX509PublicKey([]byte("not a key")); err == nil {
		t.Fatal("expected parse error")
	}
}

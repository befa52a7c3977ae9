// Package demo is a small, self-contained packet set used by the CLI and by
// the engine's own tests to exercise a full Handshake → Status/Login → Play
// sequence without depending on a live server. It is not meant to be a
// complete implementation of any one protocol version.
package demo

import (
	"io"

	"github.com/pkg/errors"

	"github.com/coalforge/rkr/mcd"
)

func writeString(w io.Writer, s string) error {
	if err := mcd.EncodeVarInt(w, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return errors.Wrap(err, "demo: write string")
}

func readString(r io.Reader) (string, error) {
	n, err := mcd.DecodeVarInt(r)
	if err != nil {
		return "", errors.Wrap(err, "demo: read string length")
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", errors.Wrap(err, "demo: read string body")
	}
	return string(buf), nil
}

func writeByteArray(w io.Writer, b []byte) error {
	if err := mcd.EncodeVarInt(w, uint32(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return errors.Wrap(err, "demo: write byte array")
}

func readByteArray(r io.Reader) ([]byte, error) {
	n, err := mcd.DecodeVarInt(r)
	if err != nil {
		return nil, errors.Wrap(err, "demo: read byte array length")
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, errors.Wrap(err, "demo: read byte array body")
	}
	return buf, nil
}

func writeVarInt(w io.Writer, v int32) error {
	return mcd.EncodeVarInt(w, uint32(v))
}

func readVarInt(r io.Reader) (int32, error) {
	v, err := mcd.DecodeVarInt(r)
	return int32(v), err
}

func writeUnsignedShort(w io.Writer, v uint16) error {
	_, err := w.Write([]byte{byte(v >> 8), byte(v)})
	return errors.Wrap(err, "demo: write ushort")
}

func readUnsignedShort(r io.Reader) (uint16, error) {
	var b [2]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, errors.Wrap(err, "demo: read ushort")
	}
	return uint16(b[0])<<8 | uint16(b[1]), nil
}

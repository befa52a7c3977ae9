package mcd

import (
	"bytes"
	"testing"
)

func TestEncodeDecodeVarIntRoundTrip(t *testing.T) {
	values := []uint32{0, 1, 127, 128, 255, 16383, 16384, 2097151, 2097152,
		268435455, 268435456, 4294967295}

	for _, v := range values {
		var buf bytes.Buffer
		if err := EncodeVarInt(&buf, v); err != nil {
			t.Fatalf("EncodeVarInt(%d): %v", v, err)
		}

		got, err := DecodeVarInt(&buf)
		if err != nil {
			t.Fatalf("DecodeVarInt(%d): %v", v, err)
		}
		if got != v {
			t.Errorf("round trip %d, got %d", v, got)
		}
	}
}

func TestSizeVarIntBoundaries(t *testing.T) {
	cases := []struct {
		value uint32
		size  int
	}{
		{0, 1},
		{127, 1},
		{128, 2},
		{16383, 2},
		{16384, 3},
		{2097151, 3},
		{2097152, 4},
		{268435455, 4},
		{268435456, 5},
	}

	for _, c := range cases {
		if got := SizeVarInt(c.value); got != c.size {
			t.Errorf("SizeVarInt(%d) = %d, want %d", c.value, got, c.size)
		}

		var buf bytes.Buffer
		if err := EncodeVarInt(&buf, c.value); err != nil {
			t.Fatalf("EncodeVarInt(%d): %v", c.value, err)
		}
		if buf.Len() != c.size {
			t.Errorf("encoded length for %d = %d, want %d", c.value, buf.Len(), c.size)
		}
	}
}

func TestDecodeVarIntTruncated(t *testing.T) {
	buf := bytes.NewReader([]byte{0x80})
	if _, err := DecodeVarInt(buf); err != ErrTruncated {
		t.Errorf("got %v, want ErrTruncated", err)
	}
}

func TestDecodeVarIntMalformed(t *testing.T) {
	buf := bytes.NewReader([]byte{0x80, 0x80, 0x80, 0x80, 0x80})
	if _, err := DecodeVarInt(buf); err != ErrMalformed {
		t.Errorf("got %v, want ErrMalformed", err)
	}
}

func TestVerifyVarInt(t *testing.T) {
	status, value, n := VerifyVarInt([]byte{0x00})
	if status != VarIntValid || value != 0 || n != 1 {
		t.Errorf("got (%v, %d, %d), want (Valid, 0, 1)", status, value, n)
	}

	status, _, _ = VerifyVarInt([]byte{0x80})
	if status != VarIntOverrun {
		t.Errorf("got %v, want Overrun", status)
	}

	status, _, _ = VerifyVarInt([]byte{0x80, 0x80, 0x80, 0x80, 0x80})
	if status != VarIntInvalid {
		t.Errorf("got %v, want Invalid", status)
	}

	status, value, n = VerifyVarInt([]byte{0xff, 0xff, 0xff, 0xff, 0x0f, 0x99})
	if status != VarIntValid || value != 4294967295 || n != 5 {
		t.Errorf("got (%v, %d, %d), want (Valid, 4294967295, 5)", status, value, n)
	}
}

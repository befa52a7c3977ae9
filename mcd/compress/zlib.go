// Package compress wraps zlib deflate/inflate for whole packet bodies, the
// way the engine needs it once compression has been negotiated: a single
// call per packet, no streaming, and a hard requirement that inflating
// produces exactly the length the sender announced.
package compress

import (
	"bytes"
	"compress/zlib"
	"io"

	"github.com/pkg/errors"
)

// ErrLengthMismatch is returned by Decompress when the inflated data is not
// exactly expectedLen bytes long.
var ErrLengthMismatch = errors.New("compress: inflated length mismatch")

// Compress deflates body in a single shot with a final flush, returning the
// complete compressed stream.
func Compress(body []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(body); err != nil {
		return nil, errors.Wrap(err, "compress: write")
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, "compress: close")
	}
	return buf.Bytes(), nil
}

// Decompress inflates data and requires the result to be exactly
// expectedLen bytes; a mismatch (including a partially corrupt stream that
// still parses) is reported as ErrLengthMismatch rather than silently
// returning a short or long buffer.
func Decompress(data []byte, expectedLen int) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "compress: new reader")
	}
	defer r.Close()

	out := make([]byte, expectedLen)
	n, err := io.ReadFull(r, out)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, errors.Wrap(err, "compress: inflate")
	}
	if n != expectedLen {
		return nil, ErrLengthMismatch
	}

	// Confirm there is no additional trailing data beyond expectedLen,
	// which would also indicate a length mismatch.
	var extra [1]byte
	if m, _ := r.Read(extra[:]); m != 0 {
		return nil, ErrLengthMismatch
	}

	return out, nil
}

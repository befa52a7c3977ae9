// Package framebuf implements the growable byte buffer the engine uses on
// the inbound side of a connection: a prepare/commit/consume discipline
// that lets reads land in uncommitted tail space before they are decoded.
// The engine's outbound side does not use it.
package framebuf

// Buffer is a sequence of bytes split into three partitions: consumed bytes
// (free for reuse, at the front), committed bytes (readable, in the middle),
// and prepared bytes (a writable tail of known capacity, not yet readable).
// A Buffer is not safe for concurrent use; callers that share one across
// goroutines must serialize access themselves.
type Buffer struct {
	data      []byte
	start     int // first committed byte
	committed int // first prepared (not yet committed) byte
	end       int // end of prepared region currently handed out
}

// New returns an empty Buffer with capacity bytes pre-allocated.
func New(capacity int) *Buffer {
	return &Buffer{data: make([]byte, capacity)}
}

// Len returns the number of committed, readable bytes.
func (b *Buffer) Len() int {
	return b.committed - b.start
}

// Bytes returns the committed, readable region. The slice is only valid
// until the next call to Prepare or Consume.
func (b *Buffer) Bytes() []byte {
	return b.data[b.start:b.committed]
}

// Prepare returns a writable region of at least n bytes, growing the
// underlying storage if necessary. The returned slice remains stable until
// the next call to Prepare or Commit — callers may read into it across
// multiple short reads before committing.
func (b *Buffer) Prepare(n int) []byte {
	b.reclaim()
	if cap(b.data)-b.committed < n {
		b.grow(n)
	}
	b.end = b.committed + n
	return b.data[b.committed:b.end]
}

// Commit promotes the first n bytes of the most recently prepared region to
// committed, readable status. n must not exceed the length of the slice
// returned by the preceding Prepare call.
func (b *Buffer) Commit(n int) {
	b.committed += n
	if b.committed > b.end {
		b.committed = b.end
	}
}

// Consume drops the first n committed bytes, making that space reusable.
// Consumed bytes are never re-read.
func (b *Buffer) Consume(n int) {
	b.start += n
	if b.start > b.committed {
		b.start = b.committed
	}
}

// reclaim slides the committed region down to the front of the backing
// array once the consumed prefix grows large enough to be worth reclaiming,
// keeping amortised growth monotonic instead of unbounded.
func (b *Buffer) reclaim() {
	if b.start == 0 {
		return
	}
	if b.start < len(b.data)/2 && cap(b.data)-b.committed >= b.start {
		return
	}
	n := copy(b.data, b.data[b.start:b.committed])
	b.committed = n
	b.start = 0
}

// grow enlarges the backing array so at least n more bytes can be prepared
// past the committed region.
func (b *Buffer) grow(n int) {
	need := b.committed + n
	newCap := cap(b.data)
	if newCap == 0 {
		newCap = 64
	}
	for newCap < need {
		newCap *= 2
	}
	next := make([]byte, newCap)
	copy(next, b.data[:b.committed])
	b.data = next
}

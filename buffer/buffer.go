// Package buffer provides a byte buffer that starts on caller-owned memory and
// moves to pooled heap memory only when a write would overflow it.
package buffer

import "github.com/valyala/bytebufferpool"

// StackSize is the capacity callers reserve for the initial backing array.
const StackSize = 512

// Buffer is a write cursor over a backing slice.
//
// Callers hand New a slice of a local array and defer Release:
//
//	var stack [buffer.StackSize]byte
//	b := buffer.New(stack[:])
//	defer b.Release()
//
// Writers call EnsureCapacity, write into Free, then Advance. Growth copies
// the written prefix into a larger pooled slice and swaps the view, so a
// slice obtained from Free or Bytes before a grow must not be reused after it.
type Buffer struct {
	buf    []byte
	pos    int
	pooled *bytebufferpool.ByteBuffer
	grows  int
}

// New returns a Buffer backed by initial. The full capacity of initial is used.
func New(initial []byte) Buffer {
	return Buffer{buf: initial[:cap(initial)]}
}

// EnsureCapacity guarantees at least n writable bytes after the cursor.
func (b *Buffer) EnsureCapacity(n int) {
	required := b.pos + n
	if required <= len(b.buf) {
		return
	}

	size := 2 * len(b.buf)
	if size < required {
		size = required
	}

	next := bytebufferpool.Get()
	if cap(next.B) < size {
		next.B = make([]byte, size)
	} else {
		next.B = next.B[:cap(next.B)]
	}
	copy(next.B, b.buf[:b.pos])

	if b.pooled != nil {
		bytebufferpool.Put(b.pooled)
	}
	b.pooled = next
	b.buf = next.B
	b.grows++
}

// Advance moves the cursor forward by k bytes after a caller wrote them into Free.
func (b *Buffer) Advance(k int) {
	if k < 0 || b.pos+k > len(b.buf) {
		panic("buffer: advance beyond capacity")
	}
	b.pos += k
}

// Free returns the writable region starting at the cursor.
func (b *Buffer) Free() []byte {
	return b.buf[b.pos:]
}

// Bytes returns the written content. The slice is only valid until the next
// grow or Release.
func (b *Buffer) Bytes() []byte {
	return b.buf[:b.pos]
}

// Len returns the number of bytes written.
func (b *Buffer) Len() int { return b.pos }

// Cap returns the current capacity of the backing slice.
func (b *Buffer) Cap() int { return len(b.buf) }

// Grows reports how many times the buffer changed its backing slice.
func (b *Buffer) Grows() int { return b.grows }

// Release returns pooled memory. It is safe to call more than once; a buffer
// that never grew has nothing to return.
func (b *Buffer) Release() {
	if b.pooled != nil {
		bytebufferpool.Put(b.pooled)
		b.pooled = nil
	}
	b.buf = nil
	b.pos = 0
}

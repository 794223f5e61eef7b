package buffer

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(b *Buffer, p []byte) {
	b.EnsureCapacity(len(p))
	n := copy(b.Free(), p)
	b.Advance(n)
}

func TestBuffer(t *testing.T) {
	t.Run("Stays on initial memory", func(t *testing.T) {
		var stack [StackSize]byte
		b := New(stack[:])
		defer b.Release()

		write(&b, []byte("hello"))

		assert.Equal(t, "hello", string(b.Bytes()))
		assert.Equal(t, StackSize, b.Cap())
		assert.Equal(t, 0, b.Grows())
		assert.Nil(t, b.pooled)
		assert.Equal(t, byte('h'), stack[0], "writes should land in the caller's array")
	})

	t.Run("Grows by doubling", func(t *testing.T) {
		var stack [8]byte
		b := New(stack[:])
		defer b.Release()

		write(&b, []byte("12345678"))
		write(&b, []byte("9"))

		assert.Equal(t, "123456789", string(b.Bytes()))
		assert.GreaterOrEqual(t, b.Cap(), 16)
		assert.Equal(t, 1, b.Grows())
		require.NotNil(t, b.pooled)
	})

	t.Run("Grows to required size when doubling is not enough", func(t *testing.T) {
		var stack [8]byte
		b := New(stack[:])
		defer b.Release()

		payload := bytes.Repeat([]byte("a"), 100)
		write(&b, payload)

		assert.Equal(t, payload, b.Bytes())
		assert.GreaterOrEqual(t, b.Cap(), 100)
		assert.Equal(t, 1, b.Grows())
	})

	t.Run("Preserves content across several grows", func(t *testing.T) {
		var stack [4]byte
		b := New(stack[:])
		defer b.Release()

		var want []byte
		for i := 0; i < 200; i++ {
			chunk := []byte{byte('a' + i%26)}
			want = append(want, chunk...)
			write(&b, chunk)
			assert.LessOrEqual(t, b.Len(), b.Cap())
		}

		assert.Equal(t, want, b.Bytes())
		assert.Greater(t, b.Grows(), 1)
	})

	t.Run("Grown view does not alias initial memory", func(t *testing.T) {
		var stack [4]byte
		b := New(stack[:])
		defer b.Release()

		write(&b, []byte("abcd"))
		write(&b, []byte("e"))
		b.Bytes()[0] = 'z'

		assert.Equal(t, byte('a'), stack[0])
		assert.Equal(t, "zbcde", string(b.Bytes()))
	})

	t.Run("Release is idempotent", func(t *testing.T) {
		var stack [4]byte
		b := New(stack[:])
		write(&b, []byte("abcdefgh"))

		b.Release()
		assert.NotPanics(t, b.Release)
		assert.Equal(t, 0, b.Len())
		assert.Nil(t, b.pooled)
	})

	t.Run("Nil initial memory", func(t *testing.T) {
		b := New(nil)
		defer b.Release()

		write(&b, []byte("x"))
		assert.Equal(t, "x", string(b.Bytes()))
	})

	t.Run("Advance past capacity panics", func(t *testing.T) {
		var stack [4]byte
		b := New(stack[:])
		assert.Panics(t, func() { b.Advance(5) })
	})
}

func BenchmarkBufferStack(b *testing.B) {
	payload := bytes.Repeat([]byte("a"), 200)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		var stack [StackSize]byte
		buf := New(stack[:])
		write(&buf, payload)
		buf.Release()
	}
}

func BenchmarkBufferGrow(b *testing.B) {
	payload := bytes.Repeat([]byte("a"), 2000)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		var stack [StackSize]byte
		buf := New(stack[:])
		write(&buf, payload)
		buf.Release()
	}
}

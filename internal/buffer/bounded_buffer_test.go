package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushTakeFIFO(t *testing.T) {
	b := New[uint32](3, 7)
	require.True(t, b.Empty())
	require.Equal(t, 7, b.Tag)

	assert.True(t, b.Push(1))
	assert.True(t, b.Push(2))
	assert.True(t, b.Push(3))
	assert.True(t, b.Full())
	assert.False(t, b.Push(4), "push on a full buffer should fail")

	v, ok := b.Take()
	require.True(t, ok)
	assert.Equal(t, uint32(1), v)

	assert.True(t, b.Push(4), "after a take there should be room again")

	for _, want := range []uint32{2, 3, 4} {
		v, ok := b.Take()
		require.True(t, ok)
		assert.Equal(t, want, v)
	}
	assert.True(t, b.Empty())
	_, ok = b.Take()
	assert.False(t, ok)
}

func TestPeekNextAndPeekBack(t *testing.T) {
	b := New[uint16](4, 0)
	var zero uint16
	assert.False(t, b.PeekBack(&zero))

	b.Push(10)
	b.Push(20)
	b.Push(30)

	next, ok := b.PeekNext()
	require.True(t, ok)
	assert.Equal(t, uint16(10), next)

	var back uint16
	require.True(t, b.PeekBack(&back))
	assert.Equal(t, uint16(30), back)

	// peeking must not consume
	assert.Equal(t, 3, b.Size())
}

func TestClear(t *testing.T) {
	b := New[uint8](2, 0)
	b.Push(1)
	b.Clear()
	assert.True(t, b.Empty())
	assert.False(t, b.Full())
}

func TestRawRequiresZeroHead(t *testing.T) {
	b := New[uint32](2, 0)
	b.Push(1)
	b.Push(2)
	assert.Equal(t, []uint32{1, 2}, b.Raw())

	b.Take()
	assert.Panics(t, func() { b.Raw() })
}

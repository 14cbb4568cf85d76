package bufferpool

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckOutReturnRoundTrip(t *testing.T) {
	p := New[uint32](3, 8)
	assert.Equal(t, 6, p.FreeLen())

	buf := p.CheckOut()
	require.NotNil(t, buf)
	assert.Equal(t, 5, p.FreeLen())

	buf.Push(42)
	p.ReturnToFree(buf)
	assert.Equal(t, 6, p.FreeLen())
	assert.True(t, buf.Empty(), "ReturnToFree must clear the buffer")
}

func TestAssignedQueuePerStream(t *testing.T) {
	p := New[uint32](2, 4)
	buf := p.CheckOut()
	buf.Push(1)
	p.PushAssigned(0, buf)

	assert.Equal(t, 1, p.AssignedLen(0))
	assert.Equal(t, 0, p.AssignedLen(1))

	front, ok := p.FrontAssigned(0)
	require.True(t, ok)
	assert.Same(t, buf, front)

	p.PopAssigned(0)
	assert.Equal(t, 0, p.AssignedLen(0))
	_, ok = p.FrontAssigned(0)
	assert.False(t, ok)
}

func TestCheckOutBlocksUntilFree(t *testing.T) {
	p := New[uint32](1, 4) // only 2 buffers total
	a := p.CheckOut()
	b := p.CheckOut()
	require.Equal(t, 0, p.FreeLen())

	done := make(chan struct{})
	go func() {
		p.CheckOut()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("CheckOut returned before a buffer was freed")
	case <-time.After(20 * time.Millisecond):
	}

	p.ReturnToFree(a)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("CheckOut did not unblock after ReturnToFree")
	}
	p.ReturnToFree(b)
}

func TestReset(t *testing.T) {
	p := New[uint32](2, 4)
	buf := p.CheckOut()
	buf.Push(9)
	p.PushAssigned(0, buf)

	p.Reset()
	assert.Equal(t, 4, p.FreeLen())
	assert.Equal(t, 0, p.AssignedLen(0))
}

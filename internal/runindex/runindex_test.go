package runindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPopShortestOrdering(t *testing.T) {
	idx := New(1)
	idx.Insert(50)
	idx.Insert(10)
	idx.Insert(30)

	require.Equal(t, 3, idx.Len())
	first := idx.PopShortest()
	assert.Equal(t, 10, first.Length)
	second := idx.PopShortest()
	assert.Equal(t, 30, second.Length)
	third := idx.PopShortest()
	assert.Equal(t, 50, third.Length)
	assert.Equal(t, 0, idx.Len())
}

func TestTiesBreakByInsertionOrder(t *testing.T) {
	idx := New(1)
	idAfter5 := idx.Insert(5)
	idAfter5Again := idx.Insert(5)

	first := idx.PopShortest()
	assert.Equal(t, idAfter5, first.ID)
	second := idx.PopShortest()
	assert.Equal(t, idAfter5Again, second.ID)
}

func TestInsertWithIDAdvancesNextID(t *testing.T) {
	idx := New(1)
	idx.InsertWithID(100, 7)
	assert.Equal(t, 101, idx.NextID())
	nextID := idx.Insert(3)
	assert.Equal(t, 101, nextID)
}

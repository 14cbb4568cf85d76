package huffman

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"extsort/internal/runindex"
)

func TestNextMergesShortestFirst(t *testing.T) {
	idx := runindex.New(1)
	idx.Insert(1)
	idx.Insert(1)
	idx.Insert(5)
	idx.Insert(10)

	sched := New(idx)
	job, ok := sched.Next(2)
	require.True(t, ok)
	assert.Len(t, job.Inputs, 2)
	assert.Equal(t, 2, job.Length, "should combine the two shortest runs (1+1)")

	// the combined run (length 2) is now the shortest remaining entry
	job2, ok := sched.Next(2)
	require.True(t, ok)
	assert.Equal(t, job.OutputID, job2.Inputs[0].ID)
	assert.Equal(t, 7, job2.Length)
}

func TestNextStopsAtOneRun(t *testing.T) {
	idx := runindex.New(1)
	idx.Insert(42)

	sched := New(idx)
	_, ok := sched.Next(4)
	assert.False(t, ok)
}

func TestNextCapsFanInToAvailableRuns(t *testing.T) {
	idx := runindex.New(1)
	idx.Insert(1)
	idx.Insert(2)
	idx.Insert(3)

	sched := New(idx)
	job, ok := sched.Next(16)
	require.True(t, ok)
	assert.Len(t, job.Inputs, 3)
	assert.Equal(t, 6, job.Length)
}

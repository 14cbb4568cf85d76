package stage2

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"extsort/internal/huffman"
	"extsort/internal/keys"
	"extsort/internal/metrics"
	"extsort/internal/runfile"
	"extsort/internal/runindex"
)

func writeRun(t *testing.T, prefix string, id int, ks []uint32) {
	t.Helper()
	f, err := runfile.Create(prefix, id)
	require.NoError(t, err)
	defer f.Close()

	buf := make([]byte, 4)
	for _, k := range ks {
		keys.Write[uint32](buf, k)
		_, err := f.Write(buf)
		require.NoError(t, err)
	}
}

func readAll(t *testing.T, path string) []uint32 {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Zero(t, len(data)%4)
	out := make([]uint32, len(data)/4)
	for i := range out {
		out[i] = keys.Read[uint32](data[i*4 : i*4+4])
	}
	return out
}

func TestMergeProducesSortedOutput(t *testing.T) {
	dir := t.TempDir()
	prefix := filepath.Join(dir, "run-")

	writeRun(t, prefix, 1, []uint32{1, 4, 7, 10})
	writeRun(t, prefix, 2, []uint32{2, 3, 9})
	writeRun(t, prefix, 3, []uint32{0, 5, 6, 8, 11})

	idx := runindex.New(100)
	idx.InsertWithID(1, 4)
	idx.InsertWithID(2, 3)
	idx.InsertWithID(3, 5)

	sched := huffman.New(idx)
	job, ok := sched.Next(3)
	require.True(t, ok)

	logger := zap.NewNop().Sugar()
	p := New[uint32](Config{BufferCapacity: 2, RunPrefix: prefix}, logger, metrics.NewStage2Stats())
	require.NoError(t, p.Merge(job))

	out := readAll(t, runfile.Path(prefix, job.OutputID))
	want := []uint32{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}
	assert.Equal(t, want, out)

	for _, id := range []int{1, 2, 3} {
		_, err := os.Stat(runfile.Path(prefix, id))
		assert.True(t, os.IsNotExist(err), "input run %d should be removed after a successful merge", id)
	}
}

func TestMergeWithBufferSmallerThanRuns(t *testing.T) {
	dir := t.TempDir()
	prefix := filepath.Join(dir, "run-")

	writeRun(t, prefix, 1, []uint32{1, 2, 3, 4, 5, 6, 7, 8})
	writeRun(t, prefix, 2, []uint32{0, 9})

	idx := runindex.New(100)
	idx.InsertWithID(1, 8)
	idx.InsertWithID(2, 2)

	sched := huffman.New(idx)
	job, ok := sched.Next(2)
	require.True(t, ok)

	logger := zap.NewNop().Sugar()
	// buffer capacity 1 forces many prefetch/return cycles per stream
	p := New[uint32](Config{BufferCapacity: 1, RunPrefix: prefix}, logger, metrics.NewStage2Stats())
	require.NoError(t, p.Merge(job))

	out := readAll(t, runfile.Path(prefix, job.OutputID))
	want := []uint32{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	assert.Equal(t, want, out)
}

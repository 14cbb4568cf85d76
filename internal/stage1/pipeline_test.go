package stage1

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"extsort/internal/keys"
	"extsort/internal/metrics"
	"extsort/internal/runfile"
)

func inputOf(t *testing.T, ks []uint32) *bytes.Reader {
	t.Helper()
	buf := make([]byte, 0, len(ks)*4)
	tmp := make([]byte, 4)
	for _, k := range ks {
		keys.Write[uint32](tmp, k)
		buf = append(buf, tmp...)
	}
	return bytes.NewReader(buf)
}

func readRun(t *testing.T, prefix string, id int) []uint32 {
	t.Helper()
	data, err := os.ReadFile(runfile.Path(prefix, id))
	require.NoError(t, err)
	require.Zero(t, len(data)%4)
	out := make([]uint32, len(data)/4)
	for i := range out {
		out[i] = keys.Read[uint32](data[i*4 : i*4+4])
	}
	return out
}

func TestRunGenerationProducesSortedRuns(t *testing.T) {
	dir := t.TempDir()
	prefix := filepath.Join(dir, "run-")
	logger := zap.NewNop().Sugar()

	// 10 keys, buffer capacity 3: runs of 3,3,3,1 keys.
	in := inputOf(t, []uint32{9, 1, 5, 2, 8, 3, 7, 4, 6, 0})

	p := New[uint32](Config{BufferCapacity: 3, RunPrefix: prefix, FirstRunID: 1}, logger, metrics.NewStage1Stats())
	idx, err := p.Run(in)
	require.NoError(t, err)
	require.Equal(t, 4, idx.Len())

	totalKeys := 0
	seen := map[uint32]int{}
	for idx.Len() > 0 {
		e := idx.PopShortest()
		run := readRun(t, prefix, e.ID)
		assert.Equal(t, e.Length, len(run))
		for i := 1; i < len(run); i++ {
			assert.LessOrEqual(t, run[i-1], run[i], "each run must be internally sorted")
		}
		for _, k := range run {
			seen[k]++
		}
		totalKeys += len(run)
	}
	assert.Equal(t, 10, totalKeys)
	for _, k := range []uint32{9, 1, 5, 2, 8, 3, 7, 4, 6, 0} {
		assert.Equal(t, 1, seen[k])
	}
}

func TestRunGenerationOnExactMultiple(t *testing.T) {
	dir := t.TempDir()
	prefix := filepath.Join(dir, "run-")
	logger := zap.NewNop().Sugar()

	in := inputOf(t, []uint32{4, 3, 2, 1})
	p := New[uint32](Config{BufferCapacity: 2, RunPrefix: prefix, FirstRunID: 1}, logger, metrics.NewStage1Stats())
	idx, err := p.Run(in)
	require.NoError(t, err)
	assert.Equal(t, 2, idx.Len())
}

func TestRunGenerationEmptyInput(t *testing.T) {
	dir := t.TempDir()
	prefix := filepath.Join(dir, "run-")
	logger := zap.NewNop().Sugar()

	in := inputOf(t, nil)
	p := New[uint32](Config{BufferCapacity: 4, RunPrefix: prefix, FirstRunID: 1}, logger, metrics.NewStage1Stats())
	idx, err := p.Run(in)
	require.NoError(t, err)
	assert.Equal(t, 0, idx.Len())
}

package checksum

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileIsDeterministic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run-1")
	require.NoError(t, os.WriteFile(path, []byte("some run file bytes"), 0644))

	sum1, err := File(path)
	require.NoError(t, err)
	require.NotEmpty(t, sum1)

	sum2, err := File(path)
	require.NoError(t, err)
	require.Equal(t, sum1, sum2)
}

func TestFileDetectsContentChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run-1")
	require.NoError(t, os.WriteFile(path, []byte("original contents"), 0644))

	sum, err := File(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("tampered contents"), 0644))
	ok, err := Verify(path, sum)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestVerifyRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run-1")
	require.NoError(t, os.WriteFile(path, []byte("a run file's worth of keys"), 0644))

	sum, err := File(path)
	require.NoError(t, err)

	ok, err := Verify(path, sum)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestFileMissing(t *testing.T) {
	_, err := File(filepath.Join(t.TempDir(), "does-not-exist"))
	require.Error(t, err)
}

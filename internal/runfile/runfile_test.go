package runfile

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeRun(t *testing.T, prefix string, id int, data []byte) {
	t.Helper()
	f, err := Create(prefix, id)
	require.NoError(t, err)
	_, err = f.Write(data)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func TestRegistryOpenForReadServesMappedContent(t *testing.T) {
	prefix := filepath.Join(t.TempDir(), "run-")
	writeRun(t, prefix, 1, []byte("hello run file"))

	reg := NewRegistry()
	mf, err := reg.OpenForRead(prefix, 1)
	require.NoError(t, err)

	got, err := io.ReadAll(mf)
	require.NoError(t, err)
	require.Equal(t, "hello run file", string(got))

	require.NoError(t, reg.CloseAll())
}

func TestRegistryOpenForReadEmptyRun(t *testing.T) {
	prefix := filepath.Join(t.TempDir(), "run-")
	writeRun(t, prefix, 1, nil)

	reg := NewRegistry()
	mf, err := reg.OpenForRead(prefix, 1)
	require.NoError(t, err)

	buf := make([]byte, 1)
	n, err := mf.Read(buf)
	require.Equal(t, 0, n)
	require.ErrorIs(t, err, io.EOF)

	require.NoError(t, reg.CloseAll())
}

func TestRegistryCloseAllTwiceIsNoOp(t *testing.T) {
	prefix := filepath.Join(t.TempDir(), "run-")
	writeRun(t, prefix, 1, []byte("abc"))
	writeRun(t, prefix, 2, []byte("def"))

	reg := NewRegistry()
	_, err := reg.OpenForRead(prefix, 1)
	require.NoError(t, err)
	_, err = reg.OpenForRead(prefix, 2)
	require.NoError(t, err)

	// CloseAll must succeed and leave the registry empty even when nothing
	// failed; a second call is a no-op rather than an error.
	require.NoError(t, reg.CloseAll())
	require.NoError(t, reg.CloseAll())
}

func TestCreateTruncatesExistingRun(t *testing.T) {
	prefix := filepath.Join(t.TempDir(), "run-")
	writeRun(t, prefix, 1, []byte("first contents, quite long"))
	writeRun(t, prefix, 1, []byte("second"))

	data, err := os.ReadFile(Path(prefix, 1))
	require.NoError(t, err)
	require.Equal(t, "second", string(data))
}

func TestRemoveMissingIsNotAnError(t *testing.T) {
	prefix := filepath.Join(t.TempDir(), "run-")
	require.NoError(t, Remove(prefix, 99))
}

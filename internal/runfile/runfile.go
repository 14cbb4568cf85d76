// Package runfile names, creates, and serves reads of the on-disk run files
// shared between stage 1 and stage 2 (spec §6: "<prefix><id>", id a positive
// decimal integer).
//
// The Registry type adapts buffermgr.FileRegistry/ManagedFile from the
// teacher repository, but run files differ from the teacher's shared
// database file in one important way: once stage 1 or stage 2 finishes
// writing one, it is immutable until stage 2 consumes and deletes it. That
// makes a whole-file memory mapping — rather than the teacher's
// read()-per-page model — the natural fit, so OpenForRead maps the file
// with golang.org/x/sys/unix.Mmap and serves every stage-2 feeder read
// straight out of the mapping instead of issuing a syscall per buffer fill.
package runfile

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"

	"go.uber.org/multierr"
	"golang.org/x/sys/unix"
)

// Path returns the on-disk path for run id under prefix.
func Path(prefix string, id int) string {
	return prefix + strconv.Itoa(id)
}

// Create opens a new run file for writing, truncating any existing file of
// the same name (stage 1 and stage 2 never reuse an id).
func Create(prefix string, id int) (*os.File, error) {
	path := Path(prefix, id)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("runfile: create %s: %w", path, err)
	}
	return f, nil
}

// Remove deletes the run file for id. It is not an error for the file to
// already be gone.
func Remove(prefix string, id int) error {
	if err := os.Remove(Path(prefix, id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("runfile: remove %s: %w", Path(prefix, id), err)
	}
	return nil
}

// ManagedFile is a memory-mapped, read-only view of a run file opened by a
// Registry. mu guards the mapping itself: Close can run concurrently with a
// feeder goroutine's in-flight Read, and unmapping out from under that read
// would fault, so unmap takes the write side of mu while Read holds the
// read side for the duration of its copy.
type ManagedFile struct {
	mu   sync.RWMutex
	data []byte
	off  int
	id   int
}

// Read implements io.Reader over the mapped file, advancing a private
// cursor. It returns io.EOF once the cursor reaches the end of the mapping,
// matching the contract stage2's feedStream reads against via io.ReadFull.
func (mf *ManagedFile) Read(p []byte) (int, error) {
	mf.mu.RLock()
	defer mf.mu.RUnlock()
	if mf.off >= len(mf.data) {
		return 0, io.EOF
	}
	n := copy(p, mf.data[mf.off:])
	mf.off += n
	return n, nil
}

func (mf *ManagedFile) unmap() error {
	mf.mu.Lock()
	defer mf.mu.Unlock()
	if mf.data == nil {
		return nil
	}
	data := mf.data
	mf.data = nil
	if err := unix.Munmap(data); err != nil {
		return fmt.Errorf("runfile: munmap run %d: %w", mf.id, err)
	}
	return nil
}

// Registry tracks mapped run files for a stage-2 merge job so that every
// mapping opened for the job is reliably unmapped, even on an error path
// that aborts the job partway through priming its streams.
type Registry struct {
	mu    sync.Mutex
	files map[int]*ManagedFile
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{files: make(map[int]*ManagedFile)}
}

// OpenForRead maps run id under prefix for reading and tracks the mapping.
// A zero-length run maps to a nil-backed ManagedFile that immediately
// reports EOF, since mmap rejects a zero-length mapping.
func (r *Registry) OpenForRead(prefix string, id int) (*ManagedFile, error) {
	path := Path(prefix, id)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("runfile: open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("runfile: stat %s: %w", path, err)
	}

	var data []byte
	if info.Size() > 0 {
		data, err = unix.Mmap(int(f.Fd()), 0, int(info.Size()), unix.PROT_READ, unix.MAP_PRIVATE)
		if err != nil {
			return nil, fmt.Errorf("runfile: mmap %s: %w", path, err)
		}
	}

	mf := &ManagedFile{data: data, id: id}
	r.mu.Lock()
	r.files[id] = mf
	r.mu.Unlock()
	return mf, nil
}

// Close unmaps the run file for id, if tracked.
func (r *Registry) Close(id int) error {
	r.mu.Lock()
	mf, ok := r.files[id]
	if ok {
		delete(r.files, id)
	}
	r.mu.Unlock()
	if !ok {
		return nil
	}
	return mf.unmap()
}

// CloseAll unmaps every file the registry still tracks, aggregating any
// errors with go.uber.org/multierr, and is always safe to call during
// cleanup (mirrors FileRegistry.CloseAllFiles in the teacher repository).
func (r *Registry) CloseAll() error {
	r.mu.Lock()
	files := r.files
	r.files = make(map[int]*ManagedFile)
	r.mu.Unlock()

	var err error
	for _, mf := range files {
		err = multierr.Append(err, mf.unmap())
	}
	return err
}

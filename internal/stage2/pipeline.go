// Package stage2 implements the k-way run merger: a loser tree drains K
// input streams whose reads are kept double-buffered by per-stream feeder
// goroutines drawing from a shared BufferPool, while the merged output is
// flushed by its own writer goroutine through a two-chunk channel, so
// computing the next winner waits on disk I/O only when two output chunks
// are already queued.
//
// Ported from do_work/K_Merge/buffer_feeder/read_function/write_function in
// original_source/LoserTree.hpp, restructured per spec Design Notes §9 into
// an explicit job context (Config plus the per-job state in job) instead of
// the source's member variables on a long-lived LoserTree object.
package stage2

import (
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"extsort/internal/bufferpool"
	"extsort/internal/errutil"
	"extsort/internal/huffman"
	"extsort/internal/keys"
	"extsort/internal/losertree"
	"extsort/internal/metrics"
	"extsort/internal/runfile"
)

// Config configures every merge job run by a Pipeline.
type Config struct {
	BufferCapacity int // B: keys per buffer
	RunPrefix      string
}

// Pipeline runs stage-2 merge jobs against a fixed configuration.
type Pipeline[K keys.Unsigned] struct {
	cfg    Config
	logger *zap.SugaredLogger
	stats  *metrics.Stage2Stats
}

// New constructs a Pipeline for key type K.
func New[K keys.Unsigned](cfg Config, logger *zap.SugaredLogger, stats *metrics.Stage2Stats) *Pipeline[K] {
	return &Pipeline[K]{cfg: cfg, logger: logger, stats: stats}
}

// job holds the mutable state of one in-flight merge. done lets advance()
// distinguish "feeder is momentarily behind" from "stream truly exhausted"
// when the assigned queue is empty; the actual blocking/wakeup is done
// through the pool's own condition variable (bufferpool.Pool.WaitAssigned),
// so the predicate check and the wait always share one lock.
type job[K keys.Unsigned] struct {
	pool *bufferpool.Pool[K]
	tree *losertree.Tree[K]
	reg  *runfile.Registry
	k    int

	mu   sync.Mutex
	done []bool
}

func newJob[K keys.Unsigned](k, bufferCapacity int) *job[K] {
	return &job[K]{
		pool: bufferpool.New[K](k, bufferCapacity),
		tree: losertree.New[K](k),
		reg:  runfile.NewRegistry(),
		k:    k,
		done: make([]bool, k),
	}
}

func (j *job[K]) markDone(i int) {
	j.mu.Lock()
	j.done[i] = true
	j.mu.Unlock()
	j.pool.NotifyAssigned()
}

func (j *job[K]) isDone(i int) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.done[i]
}

// Merge runs one scheduled merge job to completion, reading huffJob.Inputs
// and writing a single run file named by huffJob.OutputID containing every
// input key in ascending order.
func (p *Pipeline[K]) Merge(huffJob huffman.Job) (err error) {
	k := len(huffJob.Inputs)
	j := newJob[K](k, p.cfg.BufferCapacity)
	defer func() {
		if cerr := j.reg.CloseAll(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	remaining := make([]int, k)
	files := make([]*runfile.ManagedFile, k)
	for i, e := range huffJob.Inputs {
		mf, oerr := j.reg.OpenForRead(p.cfg.RunPrefix, e.ID)
		if oerr != nil {
			return oerr
		}
		files[i] = mf
		remaining[i] = e.Length
	}

	feedErr := make(chan error, k)
	done := make(chan struct{})
	for i := 0; i < k; i++ {
		go p.feedStream(j, files[i], i, remaining[i], done, feedErr)
	}

	outCh := make(chan []K, 2)
	writeErr := make(chan error, 1)
	go p.writeOutput(huffJob.OutputID, outCh, writeErr)

	mergeErr := p.drain(j, huffJob.Length, outCh)
	close(done)
	close(outCh)

	// Collect every feeder's and the writer's error rather than keeping only
	// the first: a read failure on one stream and a disk-full on the output
	// writer are both worth reporting, not just whichever channel drains
	// first.
	var errs errutil.Collector
	errs.Add(mergeErr)
	for i := 0; i < k; i++ {
		errs.Add(<-feedErr)
	}
	errs.Add(<-writeErr)
	if err := errs.Err(); err != nil {
		return err
	}

	for _, e := range huffJob.Inputs {
		if rerr := runfile.Remove(p.cfg.RunPrefix, e.ID); rerr != nil {
			return rerr
		}
	}
	if p.stats != nil {
		p.stats.RunsProduced.Inc()
	}
	return nil
}

// feedStream keeps stream i's assigned queue topped up with freshly read
// buffers until remaining reaches zero or done is closed. Checking out a
// free buffer blocks when the shared pool is exhausted, which is the only
// backpressure this loop needs.
func (p *Pipeline[K]) feedStream(j *job[K], mf *runfile.ManagedFile, i int, remaining int, done <-chan struct{}, errCh chan<- error) {
	keySize := keys.Size[K]()
	raw := make([]byte, p.cfg.BufferCapacity*keySize)

	for remaining > 0 {
		select {
		case <-done:
			errCh <- nil
			return
		default:
		}

		n := p.cfg.BufferCapacity
		if n > remaining {
			n = remaining
		}
		want := n * keySize
		if _, err := io.ReadFull(mf, raw[:want]); err != nil {
			j.markDone(i)
			errCh <- fmt.Errorf("stage2: read stream %d: %w", i, err)
			return
		}

		buf := j.pool.CheckOut()
		for off := 0; off < want; off += keySize {
			buf.Push(keys.Read[K](raw[off : off+keySize]))
		}
		j.pool.PushAssigned(i, buf)
		if p.stats != nil {
			p.stats.BuffersRead.Inc()
		}
		remaining -= n
	}
	j.markDone(i)
	errCh <- nil
}

// drain runs the loser-tree merge loop: seed, then repeatedly take the
// current winner, advance its stream, and re-adjust, until total keys have
// been produced.
func (p *Pipeline[K]) drain(j *job[K], total int, outCh chan<- []K) error {
	ext := j.tree.Ext()
	for i := 0; i < j.k; i++ {
		if !p.advance(j, i, ext) {
			ext[i].SetMax()
		}
	}
	j.tree.Create()

	outBuf := make([]K, 0, p.cfg.BufferCapacity)
	produced := 0
	for produced < total {
		w := j.tree.Winner()
		errutil.Invariant(!ext[w].IsMax(), "stage2: loser tree exhausted with %d of %d keys produced", produced, total)

		outBuf = append(outBuf, ext[w].Key)
		produced++
		if p.stats != nil {
			p.stats.KeysMerged.Inc()
		}
		if len(outBuf) == cap(outBuf) {
			outCh <- outBuf
			outBuf = make([]K, 0, cap(outBuf))
		}

		if !p.advance(j, w, ext) {
			ext[w].SetMax()
		}
		j.tree.Adjust(w)
	}
	if len(outBuf) > 0 {
		outCh <- outBuf
	}
	return nil
}

// advance sets ext[i] to stream i's next key, pulling a new assigned buffer
// from the pool if the current one is exhausted, returning false once the
// stream's feeder has reported it truly has no more data. If the assigned
// queue is momentarily empty but the feeder isn't finished, advance blocks
// until the feeder either pushes a buffer or marks the stream done.
func (p *Pipeline[K]) advance(j *job[K], i int, ext []losertree.ExNode[K]) bool {
	for {
		buf, ok := j.pool.WaitAssigned(i, func() bool { return j.isDone(i) })
		if !ok {
			return false
		}
		v, ok := buf.Take()
		if !ok {
			j.pool.PopAssigned(i)
			j.pool.ReturnToFree(buf)
			continue
		}
		ext[i].SetData(v)
		if buf.Empty() {
			j.pool.PopAssigned(i)
			j.pool.ReturnToFree(buf)
		}
		return true
	}
}

func (p *Pipeline[K]) writeOutput(id int, outCh <-chan []K, errCh chan<- error) {
	f, err := runfile.Create(p.cfg.RunPrefix, id)
	if err != nil {
		errCh <- err
		for range outCh {
		}
		return
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			errCh <- fmt.Errorf("stage2: close output run %d: %w", id, cerr)
			return
		}
		errCh <- nil
	}()

	keySize := keys.Size[K]()
	for chunk := range outCh {
		raw := make([]byte, len(chunk)*keySize)
		for i, v := range chunk {
			keys.Write[K](raw[i*keySize:], v)
		}
		if _, err := f.Write(raw); err != nil {
			errCh <- fmt.Errorf("stage2: write output run %d: %w", id, err)
			for range outCh {
			}
			return
		}
		if p.stats != nil {
			p.stats.BuffersWritten.Inc()
		}
	}
}

// Package stage1 implements the run-generation pipeline: a reader, an
// in-memory sorter, and a writer running as three goroutines over three
// rotating BoundedBuffers, coordinated by two mutexes and three condition
// variables exactly as described in spec §4.4 and ported from
// reader_function/sort_function/writer_function in
// original_source/parallel_extsort.cpp.
//
// Buffer rotation is modeled as three fixed slots (b[0], b[1], b[2]) and
// three role pointers (readSlot, sortSlot, writeSlot) that get permuted
// under lock instead of copying data between buffers.
package stage1

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"extsort/internal/buffer"
	"extsort/internal/keys"
	"extsort/internal/metrics"
	"extsort/internal/runfile"
	"extsort/internal/runindex"
)

// Config configures a stage-1 run.
type Config struct {
	BufferCapacity int    // B: keys per buffer/run
	RunPrefix      string // run files are written to "<RunPrefix><id>"
	FirstRunID     int
}

// Pipeline runs the reader/sorter/writer triple-buffer protocol once to
// completion, consuming r until EOF and producing one run file per full (or
// final partial) buffer.
type Pipeline[K keys.Unsigned] struct {
	cfg    Config
	logger *zap.SugaredLogger
	stats  *metrics.Stage1Stats

	slots [3]*buffer.BoundedBuffer[K]

	mu1   sync.Mutex
	cond1 *sync.Cond // reader<->sorter handoff, bound to mu1

	mu2        sync.Mutex
	condSort   *sync.Cond // sorter waits here for the write slot to free up
	condWriter *sync.Cond // writer waits here for a sorted run to consume

	readSlot, sortSlot, writeSlot int

	// readRuns and takenRuns are both mu1-only: readRuns counts buffers the
	// reader has finished filling, takenRuns counts buffers the sorter has
	// claimed (swapped out of the read slot). The reader's gate blocks while
	// readRuns > takenRuns, so it never reclaims a slot the sorter hasn't
	// taken ownership of yet.
	readRuns, takenRuns int
	// sortedRuns and writtenRuns are both mu2-only, counting buffers fully
	// sorted and fully written respectively.
	sortedRuns, writtenRuns int
	// totalRuns is read from both mutex domains (the sorter checks it under
	// mu1, the writer under mu2) so it is kept atomic rather than guarded by
	// either lock; -1 until the reader hits EOF.
	totalRuns atomic.Int64
	isWriting bool

	firstErr error
	errOnce  sync.Once
}

// New constructs a Pipeline for key type K.
func New[K keys.Unsigned](cfg Config, logger *zap.SugaredLogger, stats *metrics.Stage1Stats) *Pipeline[K] {
	p := &Pipeline[K]{
		cfg:       cfg,
		logger:    logger,
		stats:     stats,
		readSlot:  0,
		sortSlot:  1,
		writeSlot: 2,
	}
	p.totalRuns.Store(-1)
	for i := range p.slots {
		p.slots[i] = buffer.New[K](cfg.BufferCapacity, i)
	}
	p.cond1 = sync.NewCond(&p.mu1)
	p.condSort = sync.NewCond(&p.mu2)
	p.condWriter = sync.NewCond(&p.mu2)
	return p
}

func (p *Pipeline[K]) fail(err error) {
	p.errOnce.Do(func() { p.firstErr = err })
}

// Run drives the reader, sorter, and writer goroutines to completion over r,
// returning a RunIndex populated with every run written and its length.
func (p *Pipeline[K]) Run(r io.Reader) (*runindex.Index, error) {
	idx := runindex.New(p.cfg.FirstRunID)

	var wg sync.WaitGroup
	wg.Add(3)
	go func() { defer wg.Done(); p.readLoop(r) }()
	go func() { defer wg.Done(); p.sortLoop() }()
	go func() { defer wg.Done(); p.writeLoop(idx) }()
	wg.Wait()

	if p.firstErr != nil {
		return nil, p.firstErr
	}
	return idx, nil
}

// readLoop fills the current read slot from r, one key at a time, until the
// slot is full or r is exhausted, then hands the slot to the sorter. It
// waits for the sorter's read<->sort swap to claim p.readSlot before
// touching it, so a slot is never cleared or refilled while the sorter
// still owns it.
func (p *Pipeline[K]) readLoop(r io.Reader) {
	keySize := keys.Size[K]()
	buf := make([]byte, keySize)

	for {
		p.mu1.Lock()
		for p.readRuns > p.takenRuns {
			// the sorter hasn't claimed the buffer we just filled yet
			p.cond1.Wait()
		}
		slot := p.slots[p.readSlot]
		p.mu1.Unlock()

		slot.Clear()
		eof := false
		for !slot.Full() {
			if _, err := io.ReadFull(r, buf); err != nil {
				if err == io.EOF || err == io.ErrUnexpectedEOF {
					eof = true
					break
				}
				p.fail(fmt.Errorf("stage1: read input: %w", err))
				p.abort()
				return
			}
			slot.Push(keys.Read[K](buf))
		}

		p.mu1.Lock()
		p.readRuns++
		if eof {
			p.totalRuns.Store(int64(p.readRuns))
		}
		total := p.totalRuns.Load()
		p.cond1.Broadcast()
		p.mu1.Unlock()

		if p.stats != nil {
			p.stats.RunsRead.Inc()
		}

		if eof {
			if slot.Empty() && total == int64(p.readRuns) && p.readRuns > 0 {
				// the final read produced no keys at all: back it out so no
				// empty run is sorted/written.
				p.mu1.Lock()
				p.readRuns--
				p.totalRuns.Store(int64(p.readRuns))
				p.cond1.Broadcast()
				p.mu1.Unlock()
			}
			return
		}
	}
}

// sortLoop waits for the reader to finish a buffer, claims it by swapping it
// into the sort slot — which simultaneously frees the reader's old slot for
// reuse, matching the source's swap(read_buffer, sort_buffer) performed
// before sorting (parallel_extsort.cpp:159) — sorts it in place, then waits
// for the writer to free the write slot before handing the sorted buffer
// off.
func (p *Pipeline[K]) sortLoop() {
	for {
		p.mu1.Lock()
		for p.readRuns <= p.takenRuns {
			if total := p.totalRuns.Load(); total >= 0 && int64(p.takenRuns) >= total {
				p.mu1.Unlock()
				return
			}
			p.cond1.Wait()
		}
		p.readSlot, p.sortSlot = p.sortSlot, p.readSlot
		p.takenRuns++
		slot := p.slots[p.sortSlot]
		p.cond1.Broadcast()
		p.mu1.Unlock()

		data := slot.Raw()
		sort.Slice(data, func(i, j int) bool { return data[i] < data[j] })

		p.mu2.Lock()
		for p.isWriting {
			p.condSort.Wait()
		}
		p.sortSlot, p.writeSlot = p.writeSlot, p.sortSlot
		p.isWriting = true
		p.sortedRuns++
		sorted := p.sortedRuns
		p.condWriter.Broadcast()
		total := p.totalRuns.Load()
		p.mu2.Unlock()

		if p.stats != nil {
			p.stats.RunsSorted.Inc()
		}
		if total >= 0 && int64(sorted) >= total {
			return
		}
	}
}

// writeLoop waits for a sorted buffer and flushes it to its own run file,
// recording the result in idx.
func (p *Pipeline[K]) writeLoop(idx *runindex.Index) {
	for {
		p.mu2.Lock()
		for p.sortedRuns <= p.writtenRuns {
			if total := p.totalRuns.Load(); total >= 0 && int64(p.writtenRuns) >= total {
				p.mu2.Unlock()
				return
			}
			p.condWriter.Wait()
		}
		slot := p.slots[p.writeSlot]
		p.mu2.Unlock()

		id, length, err := p.flush(slot)
		if err != nil {
			p.fail(err)
			p.abort()
			return
		}
		if length > 0 {
			idx.InsertWithID(id, length)
		}

		p.mu2.Lock()
		p.writtenRuns++
		p.isWriting = false
		total := p.totalRuns.Load()
		written := p.writtenRuns
		p.condSort.Broadcast()
		p.mu2.Unlock()

		if p.stats != nil {
			p.stats.RunsWritten.Inc()
			p.stats.BytesWritten.Add(int64(length) * int64(keys.Size[K]()))
		}
		if total >= 0 && int64(written) >= total {
			return
		}
	}
}

func (p *Pipeline[K]) flush(slot *buffer.BoundedBuffer[K]) (id, length int, err error) {
	length = slot.Size()
	if length == 0 {
		return 0, 0, nil
	}
	id = p.nextID()
	f, err := runfile.Create(p.cfg.RunPrefix, id)
	if err != nil {
		return 0, 0, err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("stage1: close run %d: %w", id, cerr)
		}
	}()

	keySize := keys.Size[K]()
	out := make([]byte, length*keySize)
	for i, k := range slot.Raw() {
		keys.Write[K](out[i*keySize:], k)
	}
	if _, err = f.Write(out); err != nil {
		return 0, 0, fmt.Errorf("stage1: write run %d: %w", id, err)
	}
	if p.logger != nil {
		p.logger.Debugf("stage1: wrote run %d (%d keys)", id, length)
	}
	return id, length, nil
}

// nextID is only ever called from writeLoop, so it needs no locking of its
// own.
func (p *Pipeline[K]) nextID() int {
	id := p.cfg.FirstRunID
	p.cfg.FirstRunID++
	return id
}

// abort wakes every waiter so goroutines blocked on a condition variable can
// observe firstErr and return instead of hanging forever.
func (p *Pipeline[K]) abort() {
	p.mu1.Lock()
	p.totalRuns.Store(int64(p.readRuns))
	p.cond1.Broadcast()
	p.mu1.Unlock()

	p.mu2.Lock()
	p.condSort.Broadcast()
	p.condWriter.Broadcast()
	p.mu2.Unlock()
}

// Package bufferpool implements the stage-2 BufferPool: 2*K BoundedBuffers
// shared across K input streams, plus per-stream queues of buffers already
// holding prefetched data for that stream.
//
// The locking discipline is modeled on buffermgr.BufferPool from the
// teacher repository: a single mutex guards all pool bookkeeping (the free
// queue and the per-stream assigned queues), generalized here from a
// page-cache clock-sweep to the bounded check-out/return protocol §4.2
// calls for.
package bufferpool

import (
	"sync"

	"extsort/internal/buffer"
	"extsort/internal/keys"
)

// Pool holds 2*K BoundedBuffers of capacity B and tracks which stream, if
// any, currently owns each one.
type Pool[K keys.Unsigned] struct {
	mu   sync.Mutex
	cond *sync.Cond

	free     []*buffer.BoundedBuffer[K]
	assigned [][]*buffer.BoundedBuffer[K] // assigned[i]: FIFO of buffers queued for stream i

	capacity int // B
	k        int // number of streams
}

// New allocates a Pool with 2*k buffers of the given per-buffer capacity.
func New[K keys.Unsigned](k int, capacity int) *Pool[K] {
	p := &Pool[K]{
		free:     make([]*buffer.BoundedBuffer[K], 0, 2*k),
		assigned: make([][]*buffer.BoundedBuffer[K], k),
		capacity: capacity,
		k:        k,
	}
	p.cond = sync.NewCond(&p.mu)
	for i := 0; i < 2*k; i++ {
		p.free = append(p.free, buffer.New[K](capacity, i))
	}
	return p
}

// CheckOut blocks until the free queue is non-empty, then removes and
// returns one buffer.
func (p *Pool[K]) CheckOut() *buffer.BoundedBuffer[K] {
	p.mu.Lock()
	defer p.mu.Unlock()
	for len(p.free) == 0 {
		p.cond.Wait()
	}
	n := len(p.free) - 1
	buf := p.free[n]
	p.free = p.free[:n]
	return buf
}

// ReturnToFree clears buf and places it back on the free queue, waking any
// checkout or feeder waiting on free-queue availability.
func (p *Pool[K]) ReturnToFree(buf *buffer.BoundedBuffer[K]) {
	p.mu.Lock()
	buf.Clear()
	p.free = append(p.free, buf)
	p.mu.Unlock()
	p.cond.Broadcast()
}

// PushAssigned appends buf to stream i's assigned queue and wakes any
// WaitAssigned call blocked on it.
func (p *Pool[K]) PushAssigned(i int, buf *buffer.BoundedBuffer[K]) {
	p.mu.Lock()
	p.assigned[i] = append(p.assigned[i], buf)
	p.mu.Unlock()
	p.cond.Broadcast()
}

// FrontAssigned returns stream i's oldest assigned buffer, if any.
func (p *Pool[K]) FrontAssigned(i int) (*buffer.BoundedBuffer[K], bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.assigned[i]) == 0 {
		return nil, false
	}
	return p.assigned[i][0], true
}

// WaitAssigned blocks until stream i's assigned queue is non-empty or
// streamDone reports true, checked atomically under the same lock the
// predicate itself is guarded by so a push that races with the check is
// never missed. It returns the front buffer, or false if streamDone fired
// first.
func (p *Pool[K]) WaitAssigned(i int, streamDone func() bool) (*buffer.BoundedBuffer[K], bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for len(p.assigned[i]) == 0 {
		if streamDone() {
			return nil, false
		}
		p.cond.Wait()
	}
	return p.assigned[i][0], true
}

// PopAssigned removes stream i's oldest assigned buffer.
func (p *Pool[K]) PopAssigned(i int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.assigned[i]) == 0 {
		return
	}
	p.assigned[i] = p.assigned[i][1:]
}

// AssignedLen reports how many buffers are currently queued for stream i.
func (p *Pool[K]) AssignedLen(i int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.assigned[i])
}

// FreeLen reports the current size of the free queue, used only for
// metrics/diagnostics.
func (p *Pool[K]) FreeLen() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free)
}

// NotifyAssigned wakes any WaitAssigned call, used by a stream's feeder to
// report end-of-stream without pushing a final buffer.
func (p *Pool[K]) NotifyAssigned() {
	// Taking the lock orders this wakeup after any WaitAssigned that has
	// already checked streamDone but not yet parked in Wait.
	p.mu.Lock()
	p.cond.Broadcast()
	p.mu.Unlock()
}

// Reset returns the pool to its fully-free state between merge jobs
// (mirrors LoserTree::cleanup's bookkeeping assertions in the source).
func (p *Pool[K]) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.assigned {
		for _, buf := range p.assigned[i] {
			buf.Clear()
			p.free = append(p.free, buf)
		}
		p.assigned[i] = nil
	}
}

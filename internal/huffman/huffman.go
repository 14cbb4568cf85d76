// Package huffman implements the merge-order scheduler: repeatedly pop the
// n shortest runs from the RunIndex, credit their sum with a fresh id, and
// hand back the popped set as the next stage-2 merge job.
//
// Ported directly from Huffman<T, container>::forward in the original
// source (structures.hpp). For a merge cost dominated by total bytes
// moved, always combining the shortest available runs minimizes weighted
// path length of the merge tree — the standard Huffman argument
// generalized to K-ary merges.
package huffman

import "extsort/internal/runindex"

// Scheduler wraps a RunIndex with the merge-order policy.
type Scheduler struct {
	Index *runindex.Index
}

// New creates a Scheduler over idx.
func New(idx *runindex.Index) *Scheduler {
	return &Scheduler{Index: idx}
}

// Job is one scheduled stage-2 merge: the runs to consume and the id
// already reserved in the index for their merged output.
type Job struct {
	Inputs   []runindex.Entry
	OutputID int
	Length   int // sum of input lengths; the exact length of the output run
}

// Next pops min(fanIn, Index.Len()) shortest runs and reserves a fresh index
// entry, of length equal to their sum, for the run that will replace them.
// The caller is responsible for actually producing that output run with
// OutputID before the next call to Next, since the reservation already
// counts toward Index.Len().
//
// Next reports ok=false once the index has one or zero runs left: sorting
// is complete.
func (s *Scheduler) Next(fanIn int) (job Job, ok bool) {
	if s.Index.Len() <= 1 {
		return Job{}, false
	}
	numMerge := fanIn
	if s.Index.Len() < numMerge {
		numMerge = s.Index.Len()
	}
	sum := 0
	batch := make([]runindex.Entry, 0, numMerge)
	for j := 0; j < numMerge; j++ {
		e := s.Index.PopShortest()
		batch = append(batch, e)
		sum += e.Length
	}
	id := s.Index.Insert(sum)
	return Job{Inputs: batch, OutputID: id, Length: sum}, true
}

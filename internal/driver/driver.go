// Package driver orchestrates a complete external sort: stage 1 to produce
// the initial runs, then repeated Huffman-scheduled stage-2 merge jobs until
// a single run remains, which is renamed to the requested output path.
// Ported from main()'s merge-order loop in
// original_source/parallel_extsort.cpp and pipeline() in
// original_source/LoserTree.hpp.
package driver

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"extsort/internal/checksum"
	"extsort/internal/config"
	"extsort/internal/huffman"
	"extsort/internal/keys"
	"extsort/internal/manifest"
	"extsort/internal/metrics"
	"extsort/internal/runfile"
	"extsort/internal/stage1"
	"extsort/internal/stage2"
	"extsort/internal/validate"
)

// Stats aggregates the Stage1/Stage2 atomic counters for a completed run,
// read once the pipeline has finished (spec §5: these never gate
// correctness, so nothing here is read while goroutines are still live).
type Stats struct {
	RunsGenerated int64
	MergeJobs     int64
	KeysMerged    int64
	BytesWritten  int64
	Elapsed       time.Duration
}

// Run executes a full sort of key type K according to args, returning
// summary stats. When it returns without error, the last remaining run file
// has been renamed to args.OutputPath; for an empty input no run file exists
// and an empty output file is written instead.
func Run[K keys.Unsigned](args *config.Arguments, logger *zap.SugaredLogger, reg *metrics.Registry) (*Stats, error) {
	start := time.Now()
	sessionID := uuid.NewString()

	in, err := os.Open(args.InputPath)
	if err != nil {
		return nil, fmt.Errorf("driver: open input: %w", err)
	}
	defer in.Close()

	s1stats := metrics.NewStage1Stats()
	s1cfg := stage1.Config{
		BufferCapacity: args.BufferCapacity,
		RunPrefix:      args.RunPrefix,
		FirstRunID:     1,
	}
	p1 := stage1.New[K](s1cfg, logger, s1stats)
	idx, err := p1.Run(in)
	if err != nil {
		return nil, fmt.Errorf("driver: stage 1: %w", err)
	}
	logger.Infof("driver: stage 1 produced %d runs", idx.Len())

	var mergeJobs int64
	runRecords := []manifest.RunRecord{}
	s2stats := metrics.NewStage2Stats()

	if idx.Len() == 0 {
		if err := os.WriteFile(args.OutputPath, nil, 0644); err != nil {
			return nil, fmt.Errorf("driver: write empty output: %w", err)
		}
	} else if idx.Len() == 1 {
		e := idx.PopShortest()
		sum := recordChecksum(logger, runfile.Path(args.RunPrefix, e.ID))
		if err := finalize(args, e.ID); err != nil {
			return nil, err
		}
		runRecords = append(runRecords, manifest.RunRecord{ID: e.ID, Length: e.Length, Stage: 1, Checksum: sum})
	} else {
		sched := huffman.New(idx)
		s2cfg := stage2.Config{BufferCapacity: args.BufferCapacity, RunPrefix: args.RunPrefix}
		p2 := stage2.New[K](s2cfg, logger, s2stats)

		var lastID int
		for {
			job, ok := sched.Next(args.FanIn)
			if !ok {
				break
			}
			if reg != nil {
				reg.MergeJobsActive.Inc()
			}
			logger.Debugf("driver: merging %d runs into run %d (%d keys)", len(job.Inputs), job.OutputID, job.Length)
			if err := p2.Merge(job); err != nil {
				return nil, fmt.Errorf("driver: stage 2 merge into run %d: %w", job.OutputID, err)
			}
			if reg != nil {
				reg.MergeJobsActive.Dec()
				reg.MergeJobsTotal.Inc()
				reg.BytesMoved.Add(float64(job.Length) * float64(keys.Size[K]()))
			}
			mergeJobs++
			lastID = job.OutputID
			sum := recordChecksum(logger, runfile.Path(args.RunPrefix, job.OutputID))
			runRecords = append(runRecords, manifest.RunRecord{ID: job.OutputID, Length: job.Length, Stage: 2, Checksum: sum})
		}
		if err := finalize(args, lastID); err != nil {
			return nil, err
		}
	}

	if args.Validate {
		ok, err := validate.IsSorted[K](args.OutputPath)
		if err != nil {
			return nil, fmt.Errorf("driver: validate sortedness: %w", err)
		}
		if !ok {
			return nil, fmt.Errorf("driver: output at %s is not sorted", args.OutputPath)
		}
		ok, err = validate.IsConsistent[K](args.InputPath, args.OutputPath)
		if err != nil {
			return nil, fmt.Errorf("driver: validate consistency: %w", err)
		}
		if !ok {
			return nil, fmt.Errorf("driver: output at %s does not match input's key multiset", args.OutputPath)
		}
	}

	man := &manifest.Manifest{
		SessionID:     sessionID,
		KeyWidth:      int(args.KeyWidth),
		InputPath:     args.InputPath,
		OutputPath:    args.OutputPath,
		FanIn:         args.FanIn,
		BufferCap:     args.BufferCapacity,
		Runs:          runRecords,
		MergeJobCount: int(mergeJobs),
	}
	if err := manifest.Write(runfile.Path(args.RunPrefix, 0)+"-manifest.bson", man); err != nil {
		logger.Warnf("driver: failed to write manifest: %v", err)
	}

	return &Stats{
		RunsGenerated: s1stats.RunsWritten.Load(),
		MergeJobs:     mergeJobs,
		KeysMerged:    s2stats.KeysMerged.Load(),
		BytesWritten:  s1stats.BytesWritten.Load(),
		Elapsed:       time.Since(start),
	}, nil
}

// finalize renames the final run file to the requested output path.
func finalize(args *config.Arguments, finalRunID int) error {
	src := runfile.Path(args.RunPrefix, finalRunID)
	if err := os.Rename(src, args.OutputPath); err != nil {
		return fmt.Errorf("driver: move final run %d to output: %w", finalRunID, err)
	}
	return nil
}

// recordChecksum computes a content checksum for the run file at path for
// the manifest. A failure here is diagnostic, not fatal: it's logged and the
// record is left without one rather than aborting an otherwise-successful
// sort.
func recordChecksum(logger *zap.SugaredLogger, path string) string {
	sum, err := checksum.File(path)
	if err != nil {
		logger.Warnf("driver: failed to checksum %s: %v", path, err)
		return ""
	}
	return sum
}

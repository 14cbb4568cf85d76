// Package metrics exposes the pipeline's observability surface: Prometheus
// gauges/counters registered via promauto for external scraping, plus
// lock-free go.uber.org/atomic counters for in-process stats queries
// (spec §5: these sit outside the five mutex domains and never gate
// correctness).
//
// Grounded on grafana-tempo's friggdb/pool/pool.go, which registers
// promauto counters/gauges for a worker pool's queue length and job
// outcomes; generalized here from compaction-pool metrics to run-generation
// and merge-pipeline metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/atomic"
)

// Stage1Stats are the lock-free counters published by a stage-1 run.
type Stage1Stats struct {
	RunsRead     atomic.Int64
	RunsSorted   atomic.Int64
	RunsWritten  atomic.Int64
	BytesWritten atomic.Int64
}

// NewStage1Stats returns a zeroed Stage1Stats.
func NewStage1Stats() *Stage1Stats { return &Stage1Stats{} }

// Stage2Stats are the lock-free counters published by a stage-2 merge job.
type Stage2Stats struct {
	KeysMerged     atomic.Int64
	BuffersRead    atomic.Int64
	BuffersWritten atomic.Int64
	RunsProduced   atomic.Int64
}

// NewStage2Stats returns a zeroed Stage2Stats.
func NewStage2Stats() *Stage2Stats { return &Stage2Stats{} }

// Registry owns the process-wide Prometheus collectors for an extsort run.
// Exactly one Registry should exist per process; it is safe to pass a nil
// *Registry anywhere one is accepted, in which case metrics are simply not
// recorded (tests construct pipelines without a running metrics server).
type Registry struct {
	QueueDepth      *prometheus.GaugeVec
	RunsGenerated   prometheus.Counter
	MergeJobsActive prometheus.Gauge
	MergeJobsTotal  prometheus.Counter
	BytesMoved      prometheus.Counter
}

// NewRegistry registers the extsort collectors against reg.
func NewRegistry(reg prometheus.Registerer) *Registry {
	factory := promauto.With(reg)
	return &Registry{
		QueueDepth: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "extsort",
			Name:      "buffer_queue_depth",
			Help:      "Number of buffers currently queued, by stage.",
		}, []string{"stage"}),
		RunsGenerated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "extsort",
			Name:      "runs_generated_total",
			Help:      "Total number of stage-1 runs written to disk.",
		}),
		MergeJobsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "extsort",
			Name:      "merge_jobs_active",
			Help:      "Number of stage-2 merge jobs currently running.",
		}),
		MergeJobsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "extsort",
			Name:      "merge_jobs_total",
			Help:      "Total number of stage-2 merge jobs completed.",
		}),
		BytesMoved: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "extsort",
			Name:      "bytes_moved_total",
			Help:      "Total bytes written across all merge passes.",
		}),
	}
}

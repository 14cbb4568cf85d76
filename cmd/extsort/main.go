// Command extsort sorts a file of fixed-width unsigned integer keys using
// an external merge sort: a run-generation pass followed by Huffman-
// scheduled k-way merges. Adapted from the teacher repository's
// src/main.go flag-parsing and graceful-shutdown structure.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"extsort/internal/applog"
	"extsort/internal/config"
	"extsort/internal/driver"
	"extsort/internal/metrics"
)

func printUsage() {
	fmt.Fprintf(os.Stderr, "extsort: external merge sort for fixed-width unsigned integer keys\n\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = printUsage

	input := flag.String("input", "", "path to the input key file (required)")
	output := flag.String("output", "", "path to write the sorted output (required)")
	tempDir := flag.String("temp-dir", os.TempDir(), "directory for intermediate run files")
	runPrefix := flag.String("run-prefix", "", "path prefix for run files (default: <temp-dir>/extsort-run-)")
	memoryBudget := flag.Int64("memory-budget", 0, "approximate memory budget in bytes (0: unchecked)")
	bufferCapacity := flag.Int("buffer-capacity", 65536, "keys per I/O buffer (B)")
	fanIn := flag.Int("fan-in", 16, "runs merged per stage-2 job (K)")
	keyWidth := flag.Int("key-width", 8, "key width in bytes: 1, 2, 4, or 8")
	verbose := flag.Bool("verbose", false, "enable verbose logging")
	debugFlag := flag.Bool("debug", false, "enable debug logging and development log formatting")
	validateFlag := flag.Bool("validate", false, "verify the output is sorted and matches the input's key multiset")
	metricsAddr := flag.String("metrics-addr", "", "if set, serve Prometheus metrics on this address (e.g. :9090)")

	flag.Parse()

	prefix := *runPrefix
	if prefix == "" {
		prefix = *tempDir + string(os.PathSeparator) + "extsort-run-"
	}

	args := &config.Arguments{
		InputPath:         *input,
		OutputPath:        *output,
		TempDir:           *tempDir,
		RunPrefix:         prefix,
		MemoryBudgetBytes: *memoryBudget,
		BufferCapacity:    *bufferCapacity,
		FanIn:             *fanIn,
		KeyWidth:          config.KeyWidth(*keyWidth),
		Verbose:           *verbose,
		Debug:             *debugFlag,
		Validate:          *validateFlag,
	}

	if err := args.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "extsort: %v\n", err)
		printUsage()
		os.Exit(2)
	}

	logger, err := applog.New(args.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "extsort: failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	var reg *metrics.Registry
	if *metricsAddr != "" {
		reg = metrics.NewRegistry(prometheus.DefaultRegisterer)
		go serveMetrics(*metricsAddr, logger)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Warnf("extsort: received signal %v, exiting", sig)
		os.Exit(130)
	}()

	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("extsort: fatal: %v", r)
			os.Exit(1)
		}
	}()

	stats, err := runSort(args, logger, reg)
	if err != nil {
		logger.Errorf("extsort: %v", err)
		os.Exit(1)
	}
	logger.Infof("extsort: done: %d runs generated, %d merge jobs, %s elapsed",
		stats.RunsGenerated, stats.MergeJobs, stats.Elapsed)
}

// runSort dispatches to driver.Run instantiated for the requested key
// width, since Go generics require the type parameter at compile time
// rather than runtime.
func runSort(args *config.Arguments, logger *zap.SugaredLogger, reg *metrics.Registry) (*driver.Stats, error) {
	switch args.KeyWidth {
	case config.KeyWidth8:
		return driver.Run[uint8](args, logger, reg)
	case config.KeyWidth16:
		return driver.Run[uint16](args, logger, reg)
	case config.KeyWidth32:
		return driver.Run[uint32](args, logger, reg)
	case config.KeyWidth64:
		return driver.Run[uint64](args, logger, reg)
	default:
		return nil, fmt.Errorf("extsort: unsupported key width %d", args.KeyWidth)
	}
}

// Package manifest writes and reads the offline sidecar file that records a
// sort run's history: the runs the driver records (the sole stage-1 run
// when no merge is needed, otherwise each stage-2 merge output) with their
// id, length, producing stage and checksum. Nothing in this package opens a network
// connection; it repurposes go.mongodb.org/mongo-driver's bson codec
// purely as a compact, self-describing binary encoding, the same codec the
// teacher repository uses for its document storage engine
// (src/engine/*_storage_engine.go) but here applied to a single local file.
package manifest

import (
	"fmt"
	"os"

	"go.mongodb.org/mongo-driver/bson"
)

// RunRecord describes one run file that existed at some point during the
// sort, whether produced by stage 1 or by a stage-2 merge job.
type RunRecord struct {
	ID       int    `bson:"id"`
	Length   int    `bson:"length"`
	Stage    int    `bson:"stage"` // 1: stage-1 output, 2: stage-2 merge output
	Checksum string `bson:"checksum,omitempty"`
}

// Manifest is the full record of a sort's run history plus summary stats.
type Manifest struct {
	// SessionID identifies one driver.Run invocation, letting manifests from
	// concurrent or repeated runs against the same RunPrefix be told apart.
	SessionID     string      `bson:"session_id"`
	KeyWidth      int         `bson:"key_width"`
	InputPath     string      `bson:"input_path"`
	OutputPath    string      `bson:"output_path"`
	FanIn         int         `bson:"fan_in"`
	BufferCap     int         `bson:"buffer_capacity"`
	Runs          []RunRecord `bson:"runs"`
	MergeJobCount int         `bson:"merge_job_count"`
	TotalKeys     int         `bson:"total_keys"`
}

// Write encodes m as BSON and writes it to path.
func Write(path string, m *Manifest) error {
	data, err := bson.Marshal(m)
	if err != nil {
		return fmt.Errorf("manifest: encode: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("manifest: write %s: %w", path, err)
	}
	return nil
}

// Read decodes the manifest at path.
func Read(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: read %s: %w", path, err)
	}
	var m Manifest
	if err := bson.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("manifest: decode %s: %w", path, err)
	}
	return &m, nil
}

// Package config holds the extsort command-line arguments, adapted from the
// Arguments struct and validateArguments in the teacher repository's
// src/settings/settings.go and src/main.go.
package config

import (
	"fmt"
	"os"
)

// KeyWidth selects the fixed-width unsigned integer type keys are read as,
// in bytes.
type KeyWidth int

const (
	KeyWidth8  KeyWidth = 1
	KeyWidth16 KeyWidth = 2
	KeyWidth32 KeyWidth = 4
	KeyWidth64 KeyWidth = 8
)

// Arguments mirrors the teacher's settings.Arguments shape, specialized to
// the external-sort domain.
type Arguments struct {
	InputPath  string
	OutputPath string
	TempDir    string
	RunPrefix  string

	MemoryBudgetBytes int64
	BufferCapacity    int // B: keys per buffer
	FanIn             int // K: runs merged per stage-2 job

	KeyWidth KeyWidth

	Verbose  bool
	Debug    bool
	Validate bool
}

// Validate checks the argument set for consistency, mirroring the checks
// validateArguments performs in the teacher's main.go (path existence, port
// range, mode validity) generalized to this domain's parameters.
func (a *Arguments) Validate() error {
	if a.InputPath == "" {
		return fmt.Errorf("config: input path is required")
	}
	if _, err := os.Stat(a.InputPath); err != nil {
		return fmt.Errorf("config: input path %q: %w", a.InputPath, err)
	}
	if a.OutputPath == "" {
		return fmt.Errorf("config: output path is required")
	}
	if a.TempDir == "" {
		return fmt.Errorf("config: temp dir is required")
	}
	if info, err := os.Stat(a.TempDir); err != nil || !info.IsDir() {
		return fmt.Errorf("config: temp dir %q is not a directory", a.TempDir)
	}
	if a.RunPrefix == "" {
		return fmt.Errorf("config: run prefix is required")
	}
	if a.BufferCapacity < 2 {
		return fmt.Errorf("config: buffer capacity must be >= 2, got %d", a.BufferCapacity)
	}
	if a.FanIn < 2 {
		return fmt.Errorf("config: fan-in must be >= 2, got %d", a.FanIn)
	}
	switch a.KeyWidth {
	case KeyWidth8, KeyWidth16, KeyWidth32, KeyWidth64:
	default:
		return fmt.Errorf("config: key width must be one of 1, 2, 4, 8 bytes, got %d", a.KeyWidth)
	}
	if a.MemoryBudgetBytes > 0 {
		perBuffer := int64(a.BufferCapacity) * int64(a.KeyWidth)
		needed := perBuffer * int64(3+2*a.FanIn)
		if needed > a.MemoryBudgetBytes {
			return fmt.Errorf("config: buffer capacity %d with fan-in %d needs %d bytes, exceeding memory budget %d",
				a.BufferCapacity, a.FanIn, needed, a.MemoryBudgetBytes)
		}
	}
	return nil
}

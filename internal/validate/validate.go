// Package validate implements the diagnostic checks behind the --validate
// flag: confirming a run file is sorted, and confirming the full set of
// run files produced at some point during a sort together contain exactly
// the same multiset of keys as the original input. Ported directly from
// original_source/utils/validation.hpp.
package validate

import (
	"fmt"
	"io"
	"os"

	"extsort/internal/keys"
)

// IsSorted reports whether the keys in the file at path are in
// nondecreasing order.
func IsSorted[K keys.Unsigned](path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("validate: open %s: %w", path, err)
	}
	defer f.Close()

	keySize := keys.Size[K]()
	buf := make([]byte, keySize)
	var prev K
	first := true
	for {
		if _, err := io.ReadFull(f, buf); err != nil {
			if err == io.EOF {
				break
			}
			return false, fmt.Errorf("validate: read %s: %w", path, err)
		}
		k := keys.Read[K](buf)
		if !first && k < prev {
			return false, nil
		}
		prev = k
		first = false
	}
	return true, nil
}

// count returns, for a fixed-width key file, how many times each distinct
// key value appears, plus the total number of keys read.
func count[K keys.Unsigned](path string) (map[K]int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("validate: open %s: %w", path, err)
	}
	defer f.Close()

	keySize := keys.Size[K]()
	buf := make([]byte, keySize)
	counts := make(map[K]int)
	total := 0
	for {
		if _, err := io.ReadFull(f, buf); err != nil {
			if err == io.EOF {
				break
			}
			return nil, 0, fmt.Errorf("validate: read %s: %w", path, err)
		}
		counts[keys.Read[K](buf)]++
		total++
	}
	return counts, total, nil
}

// IsConsistent reports whether the multiset of keys across outputPaths
// exactly matches the multiset of keys in inputPath: every key appears the
// same number of times on both sides. Used to confirm a sort (or an
// intermediate merge pass) neither lost nor fabricated any keys.
func IsConsistent[K keys.Unsigned](inputPath string, outputPaths ...string) (bool, error) {
	want, wantTotal, err := count[K](inputPath)
	if err != nil {
		return false, err
	}

	got := make(map[K]int, len(want))
	gotTotal := 0
	for _, p := range outputPaths {
		c, n, err := count[K](p)
		if err != nil {
			return false, err
		}
		for k, n := range c {
			got[k] += n
		}
		gotTotal += n
	}

	if gotTotal != wantTotal {
		return false, nil
	}
	for k, n := range want {
		if got[k] != n {
			return false, nil
		}
	}
	for k, n := range got {
		if want[k] != n {
			return false, nil
		}
	}
	return true, nil
}

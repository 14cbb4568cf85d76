// Package checksum computes content checksums for run files, used only by
// the diagnostics and manifest paths — never consulted by the merge
// protocol itself.
//
// Repurposes golang.org/x/crypto, which the teacher repository uses for
// argon2 password hashing (src/auth/security.go); here the same module
// supplies BLAKE2b, a fast keyless hash well suited to whole-file integrity
// checks instead of password storage.
package checksum

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/blake2b"
)

// File computes the BLAKE2b-256 checksum of the file at path and returns it
// hex-encoded.
func File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("checksum: open %s: %w", path, err)
	}
	defer f.Close()

	h, err := blake2b.New256(nil)
	if err != nil {
		return "", fmt.Errorf("checksum: init blake2b: %w", err)
	}
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("checksum: hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Verify recomputes the checksum of path and compares it against want.
func Verify(path, want string) (bool, error) {
	got, err := File(path)
	if err != nil {
		return false, err
	}
	return got == want, nil
}

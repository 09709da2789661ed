// SPDX-License-Identifier: MPL-2.0

// Package artifact defines the merged-pack artifact value and its
// content hashing.
//
// The digest is SHA-1: downstream clients verify pack integrity against
// a 20-byte SHA-1 hash and decide whether to re-download by comparing
// it, so the algorithm is a protocol constant, not a choice.
package artifact

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"time"
)

// Artifact is one finalized merged pack. It is immutable once produced;
// a later merge supersedes it with a new value rather than mutating it.
type Artifact struct {
	// Path is the location of the archive on disk.
	Path string
	// Size is the archive's byte length.
	Size int64
	// Hash is the raw SHA-1 digest of the archive bytes.
	Hash [sha1.Size]byte
	// CreatedAt is when the merge that produced the artifact completed.
	CreatedAt time.Time
}

// HexHash returns the lowercase hex representation of the digest.
func (a *Artifact) HexHash() string {
	return hex.EncodeToString(a.Hash[:])
}

// FromFile stats and hashes the archive at path, returning the artifact
// value describing it.
func FromFile(path string) (*Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("artifact: open %q: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("artifact: stat %q: %w", path, err)
	}

	h := sha1.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, fmt.Errorf("artifact: hash %q: %w", path, err)
	}

	// The file's modtime is when the merge wrote it, and unlike a
	// wall-clock stamp it survives across processes, so a later status
	// query reports the real merge time.
	a := &Artifact{
		Path:      path,
		Size:      info.Size(),
		CreatedAt: info.ModTime(),
	}
	copy(a.Hash[:], h.Sum(nil))
	return a, nil
}

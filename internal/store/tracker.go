package store

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

// ErrMalformedChunkName is returned when a file carries a bucket's chunk
// prefix and extension but no numeric sequence
var ErrMalformedChunkName = errors.New("malformed chunk file name")

// Tracker derives chunk sequence numbers and completion from the output
// directory
type Tracker struct {
	fs        afero.Fs
	dir       string
	manifests *ManifestStore
}

// NewTracker creates a Tracker over dir. manifests may be nil, in which case
// completion is inferred from chunk files alone.
func NewTracker(fs afero.Fs, dir string, manifests *ManifestStore) *Tracker {
	return &Tracker{
		fs:        fs,
		dir:       dir,
		manifests: manifests,
	}
}

// Sequences returns the sorted chunk sequence numbers present for bucket
func (t *Tracker) Sequences(bucket string) ([]int, error) {
	entries, err := afero.ReadDir(t.fs, t.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read output directory: %w", err)
	}

	prefix := chunkPrefix + bucket + "_"

	var seqs []int
	for _, e := range entries {
		if e.IsDir() {
			continue
		}

		name := e.Name()
		if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, chunkExt) {
			continue
		}

		mid := strings.TrimSuffix(strings.TrimPrefix(name, prefix), chunkExt)
		// exception artifacts and chunks of buckets sharing this prefix
		if strings.Contains(mid, "_") {
			continue
		}

		seq, err := parseSequence(mid)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrMalformedChunkName, name)
		}
		seqs = append(seqs, seq)
	}

	sort.Ints(seqs)
	return seqs, nil
}

// NextSequence returns one more than the highest chunk sequence on disk for
// bucket, or 0 when none exist
func (t *Tracker) NextSequence(bucket string) (int, error) {
	seqs, err := t.Sequences(bucket)
	if err != nil {
		return 0, err
	}
	if len(seqs) == 0 {
		return 0, nil
	}
	return seqs[len(seqs)-1] + 1, nil
}

// IsAlreadyProcessed reports whether bucket needs no further listing.
// A manifest, when present, is authoritative; otherwise any chunk on disk
// marks the bucket as processed.
func (t *Tracker) IsAlreadyProcessed(bucket string) (bool, error) {
	if t.manifests != nil {
		m, ok, err := t.manifests.Load(bucket)
		if err != nil {
			return false, err
		}
		if ok {
			return m.Status == StatusCompleted, nil
		}
	}

	seqs, err := t.Sequences(bucket)
	if err != nil {
		return false, err
	}
	return len(seqs) > 0, nil
}

// parseSequence accepts only unsigned decimal digits
func parseSequence(s string) (int, error) {
	if s == "" {
		return 0, strconv.ErrSyntax
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, strconv.ErrSyntax
		}
	}
	return strconv.Atoi(s)
}

package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// ErrEmptyToken is returned when saving an empty continuation token
var ErrEmptyToken = errors.New("continuation token is empty")

// CheckpointStore keeps one raw continuation token per bucket
type CheckpointStore struct {
	fs  afero.Fs
	dir string
}

// NewCheckpointStore creates a CheckpointStore over dir
func NewCheckpointStore(fs afero.Fs, dir string) *CheckpointStore {
	return &CheckpointStore{fs: fs, dir: dir}
}

// Path returns the checkpoint file path for bucket
func (s *CheckpointStore) Path(bucket string) string {
	return filepath.Join(s.dir, CheckpointName(bucket))
}

// Load returns the saved token for bucket. ok is false when no checkpoint
// exists or the file is empty.
func (s *CheckpointStore) Load(bucket string) (token string, ok bool, err error) {
	data, err := afero.ReadFile(s.fs, s.Path(bucket))
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read checkpoint for %s: %w", bucket, err)
	}

	if len(data) == 0 {
		return "", false, nil
	}
	return string(data), true, nil
}

// Save durably replaces bucket's checkpoint with token
func (s *CheckpointStore) Save(bucket, token string) error {
	if token == "" {
		return ErrEmptyToken
	}

	if err := writeAtomic(s.fs, s.Path(bucket), []byte(token)); err != nil {
		return fmt.Errorf("failed to save checkpoint for %s: %w", bucket, err)
	}
	return nil
}

// Clear removes bucket's checkpoint. A missing checkpoint is not an error.
func (s *CheckpointStore) Clear(bucket string) error {
	if err := s.fs.Remove(s.Path(bucket)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear checkpoint for %s: %w", bucket, err)
	}
	return nil
}

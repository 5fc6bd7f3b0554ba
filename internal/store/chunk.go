package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/afero"

	"github.com/vietdv277/bucketinv/pkg/types"
)

// ErrChunkExists is returned when a chunk for the same bucket and sequence
// is already on disk
var ErrChunkExists = errors.New("chunk already exists")

var (
	chunkHeader     = []string{"index", "bucket", "file", "last_modified", "size"}
	exceptionHeader = []string{"index", "bucket", "sequence", "error", "last_token", "occurred_at"}
)

// Failure describes an abnormal end of a bucket listing
type Failure struct {
	Err        error
	LastToken  string
	OccurredAt time.Time
}

// ChunkWriter serializes record batches to CSV chunk files
type ChunkWriter struct {
	fs  afero.Fs
	dir string
}

// NewChunkWriter creates a ChunkWriter over dir
func NewChunkWriter(fs afero.Fs, dir string) *ChunkWriter {
	return &ChunkWriter{fs: fs, dir: dir}
}

// Path returns the chunk file path for bucket and seq
func (w *ChunkWriter) Path(bucket string, seq int) string {
	return filepath.Join(w.dir, ChunkName(bucket, seq))
}

// Write creates chunk seq of bucket holding records in the given order and
// returns its path. An existing chunk is never overwritten.
func (w *ChunkWriter) Write(bucket string, seq int, records []types.ObjectRecord) (string, error) {
	path := w.Path(bucket, seq)

	found, err := exists(w.fs, path)
	if err != nil {
		return "", fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if found {
		return "", fmt.Errorf("%w: %s", ErrChunkExists, path)
	}

	err = writeAtomicFunc(w.fs, path, func(f afero.File) error {
		cw := csv.NewWriter(f)
		if err := cw.Write(chunkHeader); err != nil {
			return err
		}

		row := make([]string, len(chunkHeader))
		for i, r := range records {
			row[0] = strconv.Itoa(i)
			row[1] = r.Bucket
			row[2] = r.Key
			row[3] = r.LastModified.UTC().Format(time.RFC3339)
			row[4] = strconv.FormatInt(r.Size, 10)
			if err := cw.Write(row); err != nil {
				return err
			}
		}

		cw.Flush()
		return cw.Error()
	})
	if err != nil {
		return "", fmt.Errorf("failed to write chunk %s: %w", path, err)
	}

	return path, nil
}

// WriteException records failure as the diagnostic artifact at seq,
// replacing an earlier diagnostic for the same position
func (w *ChunkWriter) WriteException(bucket string, seq int, failure Failure) (string, error) {
	path := filepath.Join(w.dir, ExceptionName(bucket, seq))

	msg := ""
	if failure.Err != nil {
		msg = failure.Err.Error()
	}
	at := failure.OccurredAt
	if at.IsZero() {
		at = time.Now()
	}

	err := writeAtomicFunc(w.fs, path, func(f afero.File) error {
		cw := csv.NewWriter(f)
		if err := cw.Write(exceptionHeader); err != nil {
			return err
		}
		if err := cw.Write([]string{
			"0",
			bucket,
			strconv.Itoa(seq),
			msg,
			failure.LastToken,
			at.UTC().Format(time.RFC3339Nano),
		}); err != nil {
			return err
		}
		cw.Flush()
		return cw.Error()
	})
	if err != nil {
		return "", fmt.Errorf("failed to write exception %s: %w", path, err)
	}

	return path, nil
}

// Count returns the number of records held by chunk seq of bucket
func (w *ChunkWriter) Count(bucket string, seq int) (int, error) {
	path := w.Path(bucket, seq)

	f, err := w.fs.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open chunk %s: %w", path, err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return 0, fmt.Errorf("failed to read chunk %s: %w", path, err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return len(rows) - 1, nil
}

// Remove deletes chunk seq of bucket. A missing chunk is not an error.
func (w *ChunkWriter) Remove(bucket string, seq int) error {
	if err := w.fs.Remove(w.Path(bucket, seq)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove chunk %d of %s: %w", seq, bucket, err)
	}
	return nil
}

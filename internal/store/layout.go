// Package store persists inventory progress on disk: CSV chunks, raw
// continuation-token checkpoints and per-bucket manifests.
//
// All artifacts of a bucket live flat in one output directory:
//
//	fileinfo_<bucket>_<n>.csv              chunk n
//	fileinfo_<bucket>_<n>_exception.csv    diagnostic written when a run fails
//	next_continuation_token_<bucket>.txt   raw continuation token
//	manifest_<bucket>.yaml                 progress record
//
// Files are written to a temporary name, synced and renamed into place, so a
// reader never observes a partially written artifact.
package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

const (
	chunkPrefix     = "fileinfo_"
	chunkExt        = ".csv"
	exceptionSuffix = "_exception"
	tmpExt          = ".tmp"
)

// ChunkName returns the file name of chunk seq for bucket
func ChunkName(bucket string, seq int) string {
	return fmt.Sprintf("%s%s_%d%s", chunkPrefix, bucket, seq, chunkExt)
}

// ExceptionName returns the file name of the failure artifact for bucket
func ExceptionName(bucket string, seq int) string {
	return fmt.Sprintf("%s%s_%d%s%s", chunkPrefix, bucket, seq, exceptionSuffix, chunkExt)
}

// CheckpointName returns the file name holding bucket's continuation token
func CheckpointName(bucket string) string {
	return fmt.Sprintf("next_continuation_token_%s.txt", bucket)
}

// ManifestName returns the file name of bucket's manifest
func ManifestName(bucket string) string {
	return fmt.Sprintf("manifest_%s.yaml", bucket)
}

// writeAtomic writes data to path through a synced temporary file and a rename
func writeAtomic(fs afero.Fs, path string, data []byte) error {
	return writeAtomicFunc(fs, path, func(f afero.File) error {
		_, err := f.Write(data)
		return err
	})
}

// writeAtomicFunc streams into a temporary sibling of path via fill, then
// renames it over path
func writeAtomicFunc(fs afero.Fs, path string, fill func(afero.File) error) error {
	if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp := path + tmpExt
	f, err := fs.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", tmp, err)
	}

	if err := fill(f); err != nil {
		_ = f.Close()
		_ = fs.Remove(tmp)
		return err
	}

	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = fs.Remove(tmp)
		return fmt.Errorf("failed to sync %s: %w", tmp, err)
	}

	if err := f.Close(); err != nil {
		_ = fs.Remove(tmp)
		return fmt.Errorf("failed to close %s: %w", tmp, err)
	}

	if err := fs.Rename(tmp, path); err != nil {
		_ = fs.Remove(tmp)
		return fmt.Errorf("failed to rename %s: %w", tmp, err)
	}

	return nil
}

// exists reports whether path is present
func exists(fs afero.Fs, path string) (bool, error) {
	return afero.Exists(fs, path)
}

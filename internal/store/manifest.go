package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Status is the lifecycle state recorded in a manifest
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Manifest records a bucket's listing progress.
// NextSequence is the first chunk sequence not yet committed and Checkpoint
// is the continuation token that resumes right after the last committed
// chunk.
type Manifest struct {
	Bucket       string    `yaml:"bucket"`
	Status       Status    `yaml:"status"`
	NextSequence int       `yaml:"next_sequence"`
	Checkpoint   string    `yaml:"checkpoint,omitempty"`
	Records      int64     `yaml:"records"`
	RunID        string    `yaml:"run_id,omitempty"`
	Error        string    `yaml:"error,omitempty"`
	UpdatedAt    time.Time `yaml:"updated_at"`
}

// ManifestStore reads and atomically rewrites per-bucket manifests
type ManifestStore struct {
	fs  afero.Fs
	dir string
	now func() time.Time
}

// NewManifestStore creates a ManifestStore over dir
func NewManifestStore(fs afero.Fs, dir string) *ManifestStore {
	return &ManifestStore{
		fs:  fs,
		dir: dir,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Path returns the manifest file path for bucket
func (s *ManifestStore) Path(bucket string) string {
	return filepath.Join(s.dir, ManifestName(bucket))
}

// Load returns bucket's manifest; ok is false when none exists
func (s *ManifestStore) Load(bucket string) (*Manifest, bool, error) {
	m, err := s.read(s.Path(bucket))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to load manifest for %s: %w", bucket, err)
	}
	return m, true, nil
}

// Save stamps m with the current time and atomically replaces the stored
// manifest
func (s *ManifestStore) Save(m *Manifest) error {
	if m == nil || m.Bucket == "" {
		return fmt.Errorf("manifest requires a bucket")
	}

	m.UpdatedAt = s.now()

	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	if err := writeAtomic(s.fs, s.Path(m.Bucket), data); err != nil {
		return fmt.Errorf("failed to save manifest for %s: %w", m.Bucket, err)
	}
	return nil
}

// List returns every manifest in the directory ordered by bucket name
func (s *ManifestStore) List() ([]*Manifest, error) {
	paths, err := afero.Glob(s.fs, filepath.Join(s.dir, "manifest_*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list manifests: %w", err)
	}

	manifests := make([]*Manifest, 0, len(paths))
	for _, p := range paths {
		m, err := s.read(p)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", filepath.Base(p), err)
		}
		if m.Bucket == "" {
			m.Bucket = strings.TrimSuffix(strings.TrimPrefix(filepath.Base(p), "manifest_"), ".yaml")
		}
		manifests = append(manifests, m)
	}

	sort.Slice(manifests, func(i, j int) bool {
		return manifests[i].Bucket < manifests[j].Bucket
	})
	return manifests, nil
}

func (s *ManifestStore) read(path string) (*Manifest, error) {
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return nil, err
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return &m, nil
}

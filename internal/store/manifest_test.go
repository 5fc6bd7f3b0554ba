package store

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManifestStore_SaveLoad(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := NewManifestStore(fs, testDir)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	_, ok, err := s.Load("logs")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Save(&Manifest{
		Bucket:       "logs",
		Status:       StatusInProgress,
		NextSequence: 2,
		Checkpoint:   "tok",
		Records:      10,
		RunID:        "run-1",
	}))

	m, ok, err := s.Load("logs")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, StatusInProgress, m.Status)
	assert.Equal(t, 2, m.NextSequence)
	assert.Equal(t, "tok", m.Checkpoint)
	assert.Equal(t, int64(10), m.Records)
	assert.Equal(t, "run-1", m.RunID)
	assert.True(t, fixed.Equal(m.UpdatedAt))
}

func TestManifestStore_SaveRequiresBucket(t *testing.T) {
	s := NewManifestStore(afero.NewMemMapFs(), testDir)
	assert.Error(t, s.Save(&Manifest{}))
	assert.Error(t, s.Save(nil))
}

func TestManifestStore_Corrupt(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := NewManifestStore(fs, testDir)
	require.NoError(t, afero.WriteFile(fs, s.Path("logs"), []byte("status: [unterminated"), 0644))

	_, _, err := s.Load("logs")
	assert.Error(t, err)
}

func TestManifestStore_List(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := NewManifestStore(fs, testDir)

	for _, b := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, s.Save(&Manifest{Bucket: b, Status: StatusCompleted}))
	}
	touch(t, fs, "fileinfo_alpha_0.csv")

	list, err := s.List()
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "alpha", list[0].Bucket)
	assert.Equal(t, "mid", list[1].Bucket)
	assert.Equal(t, "zeta", list[2].Bucket)
}

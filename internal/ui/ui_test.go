package ui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietdv277/bucketinv/internal/inventory"
	"github.com/vietdv277/bucketinv/internal/store"
	"github.com/vietdv277/bucketinv/pkg/types"
)

func TestPadding(t *testing.T) {
	assert.Equal(t, "ab   ", padRight("ab", 5))
	assert.Equal(t, "   ab", padLeft("ab", 5))
	assert.Equal(t, "ab...", padRight("abcdefgh", 5))
	assert.Equal(t, "日本  ", padRight("日本", 6))
}

func TestRenderManifestTable(t *testing.T) {
	out := RenderManifestTable([]*store.Manifest{
		{Bucket: "logs", Status: store.StatusCompleted, NextSequence: 3, Records: 12, UpdatedAt: time.Now()},
		{Bucket: "media", Status: store.StatusFailed, NextSequence: 1, Records: 5, Error: "access denied\nmore"},
		{Bucket: "tmp", Status: store.StatusInProgress, NextSequence: 2, Records: 10},
	})

	for _, want := range []string{"Bucket", "Status", "logs", "media", "tmp", "completed", "in_progress", "access denied"} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "more")
	assert.Contains(t, out, "3 buckets, 27 records")
	assert.Contains(t, out, "1 completed")
	assert.Contains(t, out, "1 failed")
	assert.Contains(t, out, "1 in progress")

	// top, header, separator, three rows, bottom, summary
	assert.Len(t, strings.Split(strings.TrimRight(out, "\n"), "\n"), 8)
}

func TestRenderRunSummary(t *testing.T) {
	out := RenderRunSummary(&inventory.Summary{
		RunID:     "run-1",
		Completed: []*inventory.Result{{Bucket: "logs", Chunks: 3, Records: 12}},
		Failed:    []*inventory.Result{{Bucket: "media", Err: errors.New("throttled")}},
		Skipped:   []string{"archive"},
	})

	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "3 chunks, 12 records")
	assert.Contains(t, out, "throttled")
	assert.Contains(t, out, "already processed")
	assert.Contains(t, out, "3 buckets")
}

func press(m BucketModel, msgs ...tea.Msg) BucketModel {
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(BucketModel)
	}
	return m
}

func key(t tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: t}
}

func typed(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func names(buckets []types.Bucket) []string {
	out := make([]string, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, b.Name)
	}
	return out
}

func testBuckets() []types.Bucket {
	return []types.Bucket{
		{Name: "app-logs", Region: "us-east-1"},
		{Name: "app-media", Region: "eu-west-1"},
		{Name: "backup"},
	}
}

func TestBucketModel_DefaultsToAll(t *testing.T) {
	m := NewBucketModel(testBuckets())
	assert.Equal(t, []string{"app-logs", "app-media", "backup"}, names(m.Selected()))
}

func TestBucketModel_Toggle(t *testing.T) {
	m := press(NewBucketModel(testBuckets()),
		key(tea.KeyDown),
		key(tea.KeySpace),
	)
	assert.Equal(t, []string{"app-logs", "backup"}, names(m.Selected()))

	m = press(m, key(tea.KeySpace))
	assert.Len(t, m.Selected(), 3)
}

func TestBucketModel_SearchAndToggleAll(t *testing.T) {
	m := press(NewBucketModel(testBuckets()), typed("app"))
	assert.Len(t, m.filtered, 2)

	// clear only the visible matches
	m = press(m, key(tea.KeyCtrlA))
	assert.Equal(t, []string{"backup"}, names(m.Selected()))

	m = press(m, key(tea.KeyBackspace), key(tea.KeyBackspace), key(tea.KeyBackspace))
	assert.Len(t, m.filtered, 3)

	m = press(m, typed("eu-"))
	require.Len(t, m.filtered, 1)
	assert.Equal(t, 1, m.filtered[0])
}

func TestBucketModel_ConfirmAndCancel(t *testing.T) {
	m := press(NewBucketModel(testBuckets()), key(tea.KeyEnter))
	assert.True(t, m.confirmed)
	assert.False(t, m.cancelled)
	assert.Empty(t, m.View())

	m = press(NewBucketModel(testBuckets()), key(tea.KeyEsc))
	assert.True(t, m.cancelled)
}

func TestBucketModel_View(t *testing.T) {
	m := press(NewBucketModel(testBuckets()), tea.WindowSizeMsg{Width: 100, Height: 40})
	view := m.View()

	assert.Contains(t, view, "app-logs")
	assert.Contains(t, view, "eu-west-1")
	assert.Contains(t, view, "[x]")
	assert.Contains(t, view, "3/3 selected")

	m = press(m, typed("zzz"))
	assert.Contains(t, m.View(), "No buckets found")
}

package pipeline

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventLogAppendsToMonthlyFile(t *testing.T) {
	dir := t.TempDir()
	l := NewEventLog(dir)
	l.now = func() time.Time { return time.Date(2025, 7, 14, 8, 0, 0, 0, time.UTC) }

	l.Log("content_generated", map[string]any{"title": "first"})
	l.Log("content_posted", map[string]any{"title": "second"})

	assert.FileExists(t, filepath.Join(dir, "logs", "pipeline_log_202507.json"))

	events, err := l.Recent(10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "content_generated", events[0].EventType)
	assert.Equal(t, "content_posted", events[1].EventType)
	assert.Equal(t, "second", events[1].Data["title"])
}

func TestEventLogRecentLimitsCount(t *testing.T) {
	l := NewEventLog(t.TempDir())
	for i := 0; i < 5; i++ {
		l.Log("tick", map[string]any{"n": i})
	}

	events, err := l.Recent(2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	// Newest last; the limit keeps the tail.
	assert.Equal(t, float64(3), events[0].Data["n"])
	assert.Equal(t, float64(4), events[1].Data["n"])
}

func TestEventLogRecentNoFile(t *testing.T) {
	l := NewEventLog(t.TempDir())
	events, err := l.Recent(10)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestEventLogRollsOverByMonth(t *testing.T) {
	dir := t.TempDir()
	l := NewEventLog(dir)

	l.now = func() time.Time { return time.Date(2025, 7, 31, 23, 0, 0, 0, time.UTC) }
	l.Log("july_event", nil)

	l.now = func() time.Time { return time.Date(2025, 8, 1, 1, 0, 0, 0, time.UTC) }
	l.Log("august_event", nil)

	assert.FileExists(t, filepath.Join(dir, "logs", "pipeline_log_202507.json"))
	assert.FileExists(t, filepath.Join(dir, "logs", "pipeline_log_202508.json"))

	// Recent only reads the current month.
	events, err := l.Recent(10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "august_event", events[0].EventType)
}

func TestEventLogError(t *testing.T) {
	dir := t.TempDir()
	l := NewEventLog(dir)
	l.now = func() time.Time { return time.Date(2025, 7, 14, 8, 0, 0, 0, time.UTC) }

	l.Error("fetch failed")
	l.Error("post failed")

	data, err := os.ReadFile(filepath.Join(dir, "logs", "errors.log"))
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "ERROR: fetch failed")
	assert.Contains(t, content, "ERROR: post failed")
}

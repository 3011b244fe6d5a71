package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddUpdate_PhasePercentTable(t *testing.T) {
	cases := []struct {
		phase   string
		percent int
	}{
		{"Starting", 5},
		{"Ingestion", 15},
		{"Ranking", 25},
		{"Outline", 35},
		{"Scriptwriting", 50},
		{"FactCheck", 60},
		{"Safety", 65},
		{"TTS", 70},
		{"Audio", 85},
		{"Publishing", 95},
		{"Complete", 100},
	}

	for _, c := range cases {
		tr := NewTracker()
		tr.AddUpdate("run-1", c.phase, StatusRunning, "", nil)
		rp, ok := tr.Get("run-1")
		require.True(t, ok)
		assert.Equal(t, c.percent, rp.Percent, "phase %s", c.phase)
	}
}

func TestAddUpdate_CompletesAtFullPercent(t *testing.T) {
	tr := NewTracker()
	tr.AddUpdate("run-1", "Complete", StatusRunning, "done", nil)
	rp, ok := tr.Get("run-1")
	require.True(t, ok)
	assert.Equal(t, StatusCompleted, rp.Status)
}

func TestAddUpdate_FailedStatusSticks(t *testing.T) {
	tr := NewTracker()
	tr.AddUpdate("run-1", "TTS", StatusFailed, "boom", nil)
	rp, ok := tr.Get("run-1")
	require.True(t, ok)
	assert.Equal(t, StatusFailed, rp.Status)
	assert.Equal(t, 70, rp.Percent)
}

func TestAddUpdate_AppendsUpdatesInOrder(t *testing.T) {
	tr := NewTracker()
	tr.AddUpdate("run-1", "Starting", StatusRunning, "begin", nil)
	tr.AddUpdate("run-1", "Ingestion", StatusRunning, "fetching", nil)
	rp, ok := tr.Get("run-1")
	require.True(t, ok)
	require.Len(t, rp.Updates, 2)
	assert.Equal(t, "begin", rp.Updates[0].Message)
	assert.Equal(t, "fetching", rp.Updates[1].Message)
}

func TestGet_UnknownRunReturnsFalse(t *testing.T) {
	tr := NewTracker()
	_, ok := tr.Get("missing")
	assert.False(t, ok)
}

func TestClearOldRuns_EvictsEntriesStartedOverAnHourAgo(t *testing.T) {
	tr := NewTracker()
	tr.AddUpdate("stale", "Starting", StatusRunning, "", nil)
	tr.AddUpdate("fresh", "Starting", StatusRunning, "", nil)

	tr.mu.Lock()
	tr.runs["stale"].StartedAt = time.Now().Add(-2 * time.Hour)
	tr.mu.Unlock()

	tr.ClearOldRuns()

	_, staleOK := tr.Get("stale")
	_, freshOK := tr.Get("fresh")
	assert.False(t, staleOK)
	assert.True(t, freshOK)
}

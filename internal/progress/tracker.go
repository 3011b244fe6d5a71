// Package progress implements the in-memory per-run progress snapshot
// consumed by the status API (spec §4.4).
package progress

import (
	"sync"
	"time"
)

// Status is the lifecycle state of a tracked run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Update is one timestamped progress event.
type Update struct {
	Time    time.Time `json:"time"`
	Phase   string    `json:"phase"`
	Status  Status    `json:"status"`
	Message string    `json:"message"`
	Details any       `json:"details,omitempty"`
}

// RunProgress is the latest snapshot for one run.
type RunProgress struct {
	RunID       string    `json:"run_id"`
	Status      Status    `json:"status"`
	Phase       string    `json:"current_phase"`
	Percent     int       `json:"progress"`
	Updates     []Update  `json:"updates"`
	StartedAt   time.Time `json:"started_at"`
}

// phasePercent is the fixed phase->percent table from spec §4.4.
var phasePercent = map[string]int{
	"Starting":     5,
	"Ingestion":    15,
	"Ranking":      25,
	"Outline":      35,
	"Scriptwriting": 50,
	"FactCheck":    60,
	"Safety":       65,
	"TTS":          70,
	"Audio":        85,
	"Publishing":   95,
	"Complete":     100,
}

// Tracker is the process-local map of run_id -> RunProgress.
type Tracker struct {
	mu   sync.Mutex
	runs map[string]*RunProgress
}

// NewTracker builds an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{runs: make(map[string]*RunProgress)}
}

// AddUpdate appends a timestamped update and recomputes percent/status.
func (t *Tracker) AddUpdate(runID, phase string, status Status, message string, details any) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rp, ok := t.runs[runID]
	if !ok {
		rp = &RunProgress{RunID: runID, StartedAt: time.Now().UTC(), Status: StatusRunning}
		t.runs[runID] = rp
	}

	update := Update{Time: time.Now().UTC(), Phase: phase, Status: status, Message: message, Details: details}
	rp.Updates = append(rp.Updates, update)
	rp.Phase = phase

	if pct, ok := phasePercent[phase]; ok {
		rp.Percent = pct
	}
	if status == StatusFailed || rp.Status == StatusFailed {
		rp.Status = StatusFailed
	} else if rp.Percent >= 100 {
		rp.Status = StatusCompleted
	} else {
		rp.Status = StatusRunning
	}
}

// Get returns the latest snapshot for runID.
func (t *Tracker) Get(runID string) (RunProgress, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rp, ok := t.runs[runID]
	if !ok {
		return RunProgress{}, false
	}
	return *rp, true
}

// ClearOldRuns evicts entries started more than one hour ago.
func (t *Tracker) ClearOldRuns() {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := time.Now().Add(-1 * time.Hour)
	for id, rp := range t.runs {
		if rp.StartedAt.Before(cutoff) {
			delete(t.runs, id)
		}
	}
}

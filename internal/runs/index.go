// Package runs implements the process-singleton concurrency guard and the
// append-only RunsIndex (spec §4.3).
package runs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rohitmangal/daily-news-podcast/internal/model"
	"github.com/rohitmangal/daily-news-podcast/internal/objectstore"
)

const maxIndexEntries = 100

const indexKey = "runs/index.json"

// storedIndex is the on-disk shape of the RunsIndex.
type storedIndex struct {
	Runs        []model.RunSummary `json:"runs"`
	LastUpdated time.Time          `json:"last_updated"`
}

// Index is the append-only run history plus the single-slot concurrency
// guard. The guard is advisory within one process only; cross-process
// exclusion is provided by the date-level idempotency check (§4.13) and,
// optionally, the Redis-backed DedupeStore lock in the orchestrator package.
type Index struct {
	store     objectstore.ObjectStore
	activeRun atomic.Value // string, "" when idle
}

// NewIndex builds an Index backed by store.
func NewIndex(store objectstore.ObjectStore) *Index {
	idx := &Index{store: store}
	idx.activeRun.Store("")
	return idx
}

// StartRun atomically claims the single active-run slot. Returns true if
// this call claimed it, false if a run is already active.
func (idx *Index) StartRun(runID string) bool {
	return idx.activeRun.CompareAndSwap("", runID)
}

// CompleteRun clears the guard (if runID still holds it) and records a
// successful RunSummary.
func (idx *Index) CompleteRun(ctx context.Context, runID string, manifest model.EpisodeManifest, startedAt time.Time) error {
	idx.activeRun.CompareAndSwap(runID, "")
	now := time.Now().UTC()
	durMs := now.Sub(startedAt).Milliseconds()
	storiesCount := len(manifest.Picks)
	summary := model.RunSummary{
		RunID:        runID,
		Date:         manifest.Date,
		Status:       model.RunStatusSuccess,
		StartedAt:    startedAt,
		CompletedAt:  &now,
		DurationMs:   &durMs,
		StoriesCount: &storiesCount,
		EpisodeURL:   manifest.MP3URL,
	}
	return idx.prepend(ctx, summary)
}

// FailRun clears the guard (if runID still holds it) and records a failed
// RunSummary.
func (idx *Index) FailRun(ctx context.Context, runID, date string, startedAt time.Time, cause error) error {
	idx.activeRun.CompareAndSwap(runID, "")
	now := time.Now().UTC()
	durMs := now.Sub(startedAt).Milliseconds()
	summary := model.RunSummary{
		RunID:       runID,
		Date:        date,
		Status:      model.RunStatusFailed,
		StartedAt:   startedAt,
		CompletedAt: &now,
		DurationMs:  &durMs,
		Error:       cause.Error(),
	}
	return idx.prepend(ctx, summary)
}

func (idx *Index) prepend(ctx context.Context, summary model.RunSummary) error {
	stored, err := idx.load(ctx)
	if err != nil {
		// Index corruption/read failure degrades to an empty index rather
		// than blocking the run's completion from being recorded.
		stored = storedIndex{}
	}
	stored.Runs = append([]model.RunSummary{summary}, stored.Runs...)
	if len(stored.Runs) > maxIndexEntries {
		stored.Runs = stored.Runs[:maxIndexEntries]
	}
	stored.LastUpdated = time.Now().UTC()

	buf, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return fmt.Errorf("runs index: marshal: %w", err)
	}
	_, err = idx.store.Put(ctx, indexKey, bytes.NewReader(buf), objectstore.PutOptions{ContentType: "application/json"})
	if err != nil {
		return fmt.Errorf("runs index: save: %w", err)
	}
	return nil
}

func (idx *Index) load(ctx context.Context) (storedIndex, error) {
	r, _, err := idx.store.Get(ctx, indexKey)
	if err != nil {
		if err == objectstore.ErrNotFound {
			return storedIndex{}, nil
		}
		return storedIndex{}, err
	}
	defer r.Close()
	var stored storedIndex
	if err := json.NewDecoder(r).Decode(&stored); err != nil {
		return storedIndex{}, err
	}
	return stored, nil
}

// List returns a page of the RunsIndex, newest first. Read failures degrade
// to an empty list rather than propagating an error.
func (idx *Index) List(ctx context.Context, page, pageSize int) []model.RunSummary {
	stored, err := idx.load(ctx)
	if err != nil {
		return nil
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * pageSize
	if start >= len(stored.Runs) {
		return nil
	}
	end := start + pageSize
	if end > len(stored.Runs) {
		end = len(stored.Runs)
	}
	return stored.Runs[start:end]
}

// Get returns the RunSummary for runID, or false if not present.
func (idx *Index) Get(ctx context.Context, runID string) (model.RunSummary, bool) {
	stored, err := idx.load(ctx)
	if err != nil {
		return model.RunSummary{}, false
	}
	for _, r := range stored.Runs {
		if r.RunID == runID {
			return r, true
		}
	}
	return model.RunSummary{}, false
}

// GetManifest loads the persisted manifest for a run by resolving its date
// from the RunSummary and reading the date-keyed manifest. See DESIGN.md for
// why the canonical manifest key is date, not run_id.
func (idx *Index) GetManifest(ctx context.Context, runID string) (model.EpisodeManifest, error) {
	summary, ok := idx.Get(ctx, runID)
	if !ok {
		return model.EpisodeManifest{}, objectstore.ErrNotFound
	}
	return idx.GetManifestByDate(ctx, summary.Date)
}

// GetManifestByDate loads the persisted manifest keyed by date — the path
// the idempotency check and publication both use.
func (idx *Index) GetManifestByDate(ctx context.Context, date string) (model.EpisodeManifest, error) {
	key := fmt.Sprintf("episodes/%s_manifest.json", date)
	r, _, err := idx.store.Get(ctx, key)
	if err != nil {
		return model.EpisodeManifest{}, err
	}
	defer r.Close()
	var m model.EpisodeManifest
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return model.EpisodeManifest{}, err
	}
	return m, nil
}

// Delete removes runID's mp3, manifest, and index entry (spec §6 DELETE
// /runs/:id). The mp3/manifest removal is best-effort: a missing object is
// not an error, but the index entry itself must be dropped for the call to
// succeed.
func (idx *Index) Delete(ctx context.Context, runID string) error {
	summary, ok := idx.Get(ctx, runID)
	if !ok {
		return objectstore.ErrNotFound
	}

	mp3Key := fmt.Sprintf("episodes/%s_daily_rohit_news.mp3", summary.Date)
	manifestKey := fmt.Sprintf("episodes/%s_manifest.json", summary.Date)
	_ = idx.store.Delete(ctx, mp3Key)
	_ = idx.store.Delete(ctx, manifestKey)

	stored, err := idx.load(ctx)
	if err != nil {
		return fmt.Errorf("runs index: load: %w", err)
	}
	kept := stored.Runs[:0]
	for _, r := range stored.Runs {
		if r.RunID != runID {
			kept = append(kept, r)
		}
	}
	stored.Runs = kept
	stored.LastUpdated = time.Now().UTC()

	buf, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return fmt.Errorf("runs index: marshal: %w", err)
	}
	_, err = idx.store.Put(ctx, indexKey, bytes.NewReader(buf), objectstore.PutOptions{ContentType: "application/json"})
	if err != nil {
		return fmt.Errorf("runs index: save: %w", err)
	}
	return nil
}

package runs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohitmangal/daily-news-podcast/internal/model"
	"github.com/rohitmangal/daily-news-podcast/internal/objectstore"
)

func TestStartRun_GuardsSingleActiveRun(t *testing.T) {
	idx := NewIndex(objectstore.NewMemoryStore())

	require.True(t, idx.StartRun("run-a"))
	assert.False(t, idx.StartRun("run-b"))
}

func TestCompleteRun_RecordsSuccessAndReleasesGuard(t *testing.T) {
	ctx := context.Background()
	idx := NewIndex(objectstore.NewMemoryStore())
	require.True(t, idx.StartRun("run-a"))

	manifest := model.EpisodeManifest{Date: "2026-07-30", RunID: "run-a", Picks: []model.Pick{{}, {}}, MP3URL: "https://x/ep"}
	require.NoError(t, idx.CompleteRun(ctx, "run-a", manifest, time.Now().UTC().Add(-time.Second)))

	assert.True(t, idx.StartRun("run-b"))

	summary, ok := idx.Get(ctx, "run-a")
	require.True(t, ok)
	assert.Equal(t, model.RunStatusSuccess, summary.Status)
	assert.Equal(t, 2, *summary.StoriesCount)
}

func TestFailRun_RecordsFailureWithCause(t *testing.T) {
	ctx := context.Background()
	idx := NewIndex(objectstore.NewMemoryStore())
	require.True(t, idx.StartRun("run-a"))

	require.NoError(t, idx.FailRun(ctx, "run-a", "2026-07-30", time.Now().UTC(), errors.New("boom")))

	summary, ok := idx.Get(ctx, "run-a")
	require.True(t, ok)
	assert.Equal(t, model.RunStatusFailed, summary.Status)
	assert.Equal(t, "boom", summary.Error)
}

func TestList_PaginatesNewestFirst(t *testing.T) {
	ctx := context.Background()
	idx := NewIndex(objectstore.NewMemoryStore())
	for i := 0; i < 3; i++ {
		runID := string(rune('a' + i))
		require.True(t, idx.StartRun(runID))
		require.NoError(t, idx.CompleteRun(ctx, runID, model.EpisodeManifest{Date: runID}, time.Now().UTC()))
	}

	page := idx.List(ctx, 1, 2)
	require.Len(t, page, 2)
	assert.Equal(t, "c", page[0].RunID)
	assert.Equal(t, "b", page[1].RunID)
}

func TestDelete_RemovesArtifactsAndIndexEntry(t *testing.T) {
	ctx := context.Background()
	store := objectstore.NewMemoryStore()
	idx := NewIndex(store)

	require.True(t, idx.StartRun("run-a"))
	manifest := model.EpisodeManifest{Date: "2026-07-30", RunID: "run-a"}
	require.NoError(t, idx.CompleteRun(ctx, "run-a", manifest, time.Now().UTC()))

	require.NoError(t, idx.Delete(ctx, "run-a"))

	_, ok := idx.Get(ctx, "run-a")
	assert.False(t, ok)
}

func TestDelete_UnknownRunReturnsNotFound(t *testing.T) {
	idx := NewIndex(objectstore.NewMemoryStore())
	err := idx.Delete(context.Background(), "missing")
	assert.ErrorIs(t, err, objectstore.ErrNotFound)
}

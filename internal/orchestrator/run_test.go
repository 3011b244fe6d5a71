package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohitmangal/daily-news-podcast/internal/agent"
	"github.com/rohitmangal/daily-news-podcast/internal/config"
	"github.com/rohitmangal/daily-news-podcast/internal/llm"
	"github.com/rohitmangal/daily-news-podcast/internal/model"
	"github.com/rohitmangal/daily-news-podcast/internal/objectstore"
	"github.com/rohitmangal/daily-news-podcast/internal/progress"
	"github.com/rohitmangal/daily-news-podcast/internal/runs"
)

type fakeFetcher struct {
	feed *gofeed.Feed
	err  error
}

func (f *fakeFetcher) Fetch(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.feed, nil
}

type fetchErr string

func (e fetchErr) Error() string { return string(e) }

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	out := make([][]float32, len(inputs))
	for i := range inputs {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

type fakeProvider struct{}

func (fakeProvider) Chat(ctx context.Context, req llm.Request) (string, error) {
	// Every stage (outline/script/factcheck/safety) parses a JSON object;
	// return the superset of fields each one reads and let each stage
	// ignore what it doesn't need.
	return `{
		"opening_hook": "Here's what matters today.",
		"segments": [{"title": "Markets", "target_words": 120, "refs": [0], "connection_type": "common-theme", "bridge": "Next up."}],
		"sections": [{"type": "deep-dive", "text": "The Fed raised rates again [1]."}],
		"revised_text": null,
		"risk_level": "low"
	}`, nil
}

type fakeSynth struct{}

func (fakeSynth) Synthesize(ctx context.Context, unit model.SynthesisUnit) ([]byte, error) {
	return []byte("audio-bytes"), nil
}

func ptrTime(t time.Time) *time.Time { return &t }

func newTestOrchestrator(t *testing.T) (*Orchestrator, objectstore.ObjectStore) {
	t.Helper()
	store := objectstore.NewMemoryStore()
	cfgStore := config.NewStore(store, "")

	now := time.Now().UTC()
	dash := config.DefaultDashboardConfig()
	dash.Topics = []config.TopicConfig{
		{Label: "markets", Weight: 1, Enabled: true, Feeds: []string{"https://feeds.reuters.com/markets"}, Keywords: []string{"fed", "rate"}},
	}
	dash.WindowHours = 36
	dash.MaxStoriesPerDomain = 5
	dash.MinContentLength = 50
	dash.Production.MaxStories = 1
	dash.Production.MinStories = 1
	_, err := cfgStore.Save(context.Background(), dash, "test")
	require.NoError(t, err)

	feed := &gofeed.Feed{Items: []*gofeed.Item{
		{
			Title:           "Fed Raises Interest Rates Again",
			Link:            "https://www.reuters.com/markets/fed-raises-rates",
			Description:     "The Federal Reserve raised interest rates by a quarter point on Wednesday, citing persistent inflation pressure.",
			PublishedParsed: ptrTime(now.Add(-2 * time.Hour)),
		},
	}}

	o := &Orchestrator{
		Store:       store,
		ConfigStore: cfgStore,
		RunsIndex:   runs.NewIndex(store),
		Progress:    progress.NewTracker(),
		Runtime:     agent.NewRuntime(store),
		LLMProvider: fakeProvider{},
		Embedder:    fakeEmbedder{},
		Fetcher:     &fakeFetcher{feed: feed},
		Synth:       fakeSynth{},
		Cfg: config.Config{
			LLM:               config.LLMConfig{Model: "test-model"},
			Podcast:           config.PodcastMetadata{BaseURL: "https://pod.example.com", Title: "Daily News", Description: "d", Author: "A", Email: "a@b.com", Language: "en-us", Category: "News"},
			Timezone:          "UTC",
			TargetDurationSec: 600,
		},
	}
	return o, store
}

func TestOrchestrator_RunProducesManifest(t *testing.T) {
	o, store := newTestOrchestrator(t)

	manifest, err := o.Run(context.Background(), Request{Date: "2026-07-30"})

	require.NoError(t, err)
	assert.Equal(t, "2026-07-30", manifest.Date)
	assert.NotEmpty(t, manifest.MP3URL)
	assert.NotZero(t, manifest.DurationSec)
	assert.Len(t, manifest.Picks, 1)

	_, _, err = store.Get(context.Background(), "episodes/2026-07-30_manifest.json")
	require.NoError(t, err)
	_, _, err = store.Get(context.Background(), "feed.xml")
	require.NoError(t, err)
	_, _, err = store.Get(context.Background(), "memory/listener_profile.json")
	require.NoError(t, err)
}

func TestOrchestrator_IdempotencySkipsRerun(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	ctx := context.Background()

	first, err := o.Run(ctx, Request{Date: "2026-07-30"})
	require.NoError(t, err)

	second, err := o.Run(ctx, Request{Date: "2026-07-30"})
	require.NoError(t, err)
	assert.Equal(t, first.RunID, second.RunID)
}

func TestOrchestrator_ForceOverwriteReruns(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	ctx := context.Background()

	first, err := o.Run(ctx, Request{Date: "2026-07-30"})
	require.NoError(t, err)

	second, err := o.Run(ctx, Request{Date: "2026-07-30", ForceOverwrite: true})
	require.NoError(t, err)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestOrchestrator_AlreadyRunningRejectsConcurrentStart(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	require.True(t, o.RunsIndex.StartRun("in-flight"))

	_, err := o.Run(context.Background(), Request{Date: "2026-07-30"})
	require.Error(t, err)
	assert.IsType(t, AlreadyRunningError{}, err)
}

func TestOrchestrator_PropagatesStageFailure(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	o.Fetcher = &fakeFetcher{err: fetchErr("feed unreachable")}

	_, err := o.Run(context.Background(), Request{Date: "2026-07-30"})
	require.Error(t, err)
}

type fakeDedupeStore struct {
	values map[string]string
}

func newFakeDedupeStore() *fakeDedupeStore { return &fakeDedupeStore{values: map[string]string{}} }

func (f *fakeDedupeStore) Get(ctx context.Context, key string) (string, error) {
	return f.values[key], nil
}

func (f *fakeDedupeStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	f.values[key] = value
	return nil
}

func TestOrchestrator_DedupeLockRejectsConcurrentDate(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	dedupe := newFakeDedupeStore()
	o.Dedupe = dedupe
	dedupe.values["lock:2026-07-30"] = "some-other-run"

	_, err := o.Run(context.Background(), Request{Date: "2026-07-30"})
	require.Error(t, err)
}

func TestOrchestrator_DedupeLockAllowsFirstRun(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	o.Dedupe = newFakeDedupeStore()

	manifest, err := o.Run(context.Background(), Request{Date: "2026-07-30"})
	require.NoError(t, err)
	assert.Equal(t, "2026-07-30", manifest.Date)
}

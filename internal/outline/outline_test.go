package outline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohitmangal/daily-news-podcast/internal/config"
	"github.com/rohitmangal/daily-news-podcast/internal/llm"
	"github.com/rohitmangal/daily-news-podcast/internal/model"
)

type fakeProvider struct{ resp string }

func (f fakeProvider) Chat(ctx context.Context, req llm.Request) (string, error) {
	return f.resp, nil
}

func TestGenerate_RemapsRefsToStableIDs(t *testing.T) {
	picks := []model.Pick{
		{Story: model.Story{ID: "id-a", Title: "Story A"}, Score: 0.9},
		{Story: model.Story{ID: "id-b", Title: "Story B"}, Score: 0.8},
	}
	resp := `{"opening_hook":"hook","segments":[{"title":"Seg1","target_words":100,"refs":[0,1],"connection_type":"common-theme","bridge":"next"}]}`

	out, err := Generate(context.Background(), fakeProvider{resp: resp}, "gpt-4o-mini", Input{Picks: picks, TargetDurationSec: 900})

	require.NoError(t, err)
	assert.Equal(t, "hook", out.OpeningHook)
	require.Len(t, out.Sections, 3) // intro, segment, outro
	assert.Equal(t, []string{"id-a", "id-b"}, out.Sections[1].StoryRefs)
	assert.Equal(t, model.ConnectionCommonTheme, out.Sections[1].ConnectionType)
}

func TestSortedPicks_OrdersByTopicWeightThenScore(t *testing.T) {
	picks := []model.Pick{
		{Story: model.Story{ID: "low-topic-high-score"}, Topic: "sports", Score: 0.99},
		{Story: model.Story{ID: "high-topic-low-score"}, Topic: "markets", Score: 0.1},
		{Story: model.Story{ID: "high-topic-high-score"}, Topic: "markets", Score: 0.8},
	}
	topics := []config.TopicConfig{
		{Label: "sports", Weight: 1},
		{Label: "markets", Weight: 5},
	}

	sorted := sortedPicks(picks, topics, nil)

	require.Len(t, sorted, 3)
	assert.Equal(t, "high-topic-high-score", sorted[0].Story.ID)
	assert.Equal(t, "high-topic-low-score", sorted[1].Story.ID)
	assert.Equal(t, "low-topic-high-score", sorted[2].Story.ID)
}

func TestSortedPicks_DeprioritizesRecentlyCoveredStories(t *testing.T) {
	picks := []model.Pick{
		{Story: model.Story{ID: "covered", URL: "https://x/covered"}, Topic: "markets", Score: 0.9},
		{Story: model.Story{ID: "fresh", URL: "https://x/fresh"}, Topic: "markets", Score: 0.5},
	}

	sorted := sortedPicks(picks, nil, []string{"https://x/covered"})

	require.Len(t, sorted, 2)
	assert.Equal(t, "fresh", sorted[0].Story.ID)
	assert.Equal(t, "covered", sorted[1].Story.ID)
}

func TestGenerate_FiltersInvalidIndices(t *testing.T) {
	picks := []model.Pick{{Story: model.Story{ID: "id-a"}, Score: 1}}
	resp := `{"opening_hook":"h","segments":[{"title":"S","target_words":50,"refs":[0,5,-1],"connection_type":"timeline","bridge":"b"}]}`

	out, err := Generate(context.Background(), fakeProvider{resp: resp}, "gpt-4o-mini", Input{Picks: picks, TargetDurationSec: 600})

	require.NoError(t, err)
	require.Len(t, out.Sections, 3)
	assert.Equal(t, []string{"id-a"}, out.Sections[1].StoryRefs)
}

package ranking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohitmangal/daily-news-podcast/internal/model"
)

// fakeEmbedder returns a deterministic unit vector per input, derived from a
// small fixed vocabulary so cosine similarity behaves predictably in tests.
type fakeEmbedder struct {
	vectors map[string][]float32
}

func (f *fakeEmbedder) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	out := make([][]float32, len(inputs))
	for i, in := range inputs {
		if v, ok := f.vectors[in]; ok {
			out[i] = v
			continue
		}
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func TestRun_EmptyInputShortCircuits(t *testing.T) {
	out, err := Run(context.Background(), &fakeEmbedder{}, Input{})
	require.NoError(t, err)
	assert.Empty(t, out.Picks)
}

func TestRun_ProportionalTargetsAndDiversity(t *testing.T) {
	now := time.Now().UTC()
	markets := model.Story{ID: "m1", Title: "Markets A", Summary: "s", Topic: "markets", Tier: 1, PublishedAt: now.Add(-1 * time.Hour)}
	markets2 := model.Story{ID: "m2", Title: "Markets B", Summary: "s", Topic: "markets", Tier: 1, PublishedAt: now.Add(-2 * time.Hour)}
	tech := model.Story{ID: "t1", Title: "Tech A", Summary: "s", Topic: "tech", Tier: 2, PublishedAt: now.Add(-1 * time.Hour)}

	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"Markets A. s": {1, 0, 0},
		"Markets B. s": {1, 0, 0},
		"Tech A. s":    {0, 1, 0},
		"markets: Markets A; Markets B": {1, 0, 0},
		"tech: Tech A":                  {0, 1, 0},
	}}

	out, err := Run(context.Background(), embedder, Input{
		Stories:      []model.Story{markets, markets2, tech},
		TopicWeights: map[string]float64{"markets": 0.7, "tech": 0.3},
		TargetCount:  2,
		Now:          now,
	})

	require.NoError(t, err)
	assert.Equal(t, 1, out.Report.TopicTargets["markets"]+out.Report.TopicTargets["tech"]-1)
	assert.LessOrEqual(t, len(out.Picks), 2)
}

func TestTopicTargets_SlackGoesToHighestWeight(t *testing.T) {
	targets := topicTargets(map[string]float64{"a": 0.6, "b": 0.25, "c": 0.15}, 5)
	sum := 0
	for _, v := range targets {
		sum += v
	}
	assert.Equal(t, 5, sum)
	assert.GreaterOrEqual(t, targets["a"], 1)
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, cosine([]float32{1, 0}, []float32{1, 0}), 1e-9)
	assert.InDelta(t, 0.0, cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Equal(t, float64(0), cosine(nil, []float32{1}))
}

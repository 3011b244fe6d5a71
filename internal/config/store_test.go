package config

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohitmangal/daily-news-podcast/internal/objectstore"
)

func validTopics() []TopicConfig {
	return []TopicConfig{
		{Label: "markets", Weight: 0.6, Enabled: true},
		{Label: "tech", Weight: 0.4, Enabled: true},
	}
}

func TestValidate_RejectsEmptyTopicList(t *testing.T) {
	cfg := DefaultDashboardConfig()
	err := Validate(cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestValidate_RejectsDuplicateLabels(t *testing.T) {
	cfg := DefaultDashboardConfig()
	cfg.Topics = []TopicConfig{
		{Label: "markets", Weight: 0.5, Enabled: true},
		{Label: "Markets", Weight: 0.5, Enabled: true},
	}
	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestValidate_RejectsWeightsNotSummingToOne(t *testing.T) {
	cfg := DefaultDashboardConfig()
	cfg.Topics = []TopicConfig{
		{Label: "markets", Weight: 0.9, Enabled: true},
		{Label: "tech", Weight: 0.9, Enabled: true},
	}
	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sum to")
}

func TestValidate_AcceptsWeightsSummingToOne(t *testing.T) {
	cfg := DefaultDashboardConfig()
	cfg.Topics = validTopics()
	assert.NoError(t, Validate(cfg))
}

func TestNormalizeWeights_RescalesEnabledTopicsToSumOne(t *testing.T) {
	topics := []TopicConfig{
		{Label: "markets", Weight: 3, Enabled: true},
		{Label: "tech", Weight: 1, Enabled: true},
		{Label: "sports", Weight: 5, Enabled: false},
	}
	normalizeWeights(topics)
	assert.InDelta(t, 0.75, topics[0].Weight, 1e-9)
	assert.InDelta(t, 0.25, topics[1].Weight, 1e-9)
	assert.Equal(t, 5.0, topics[2].Weight) // disabled topics untouched
}

func TestNormalizeWeights_SplitsEvenlyWhenAllZero(t *testing.T) {
	topics := []TopicConfig{
		{Label: "markets", Weight: 0, Enabled: true},
		{Label: "tech", Weight: 0, Enabled: true},
	}
	normalizeWeights(topics)
	assert.InDelta(t, 0.5, topics[0].Weight, 1e-9)
	assert.InDelta(t, 0.5, topics[1].Weight, 1e-9)
}

func TestStore_SaveBumpsVersionMonotonically(t *testing.T) {
	ctx := context.Background()
	store := NewStore(objectstore.NewMemoryStore(), "")

	cfg := DefaultDashboardConfig()
	cfg.Topics = validTopics()

	first, err := store.Save(ctx, cfg, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, first.Version)

	second, err := store.Save(ctx, cfg, "bob")
	require.NoError(t, err)
	assert.Equal(t, 2, second.Version)
}

func TestStore_SaveRejectsInvalidConfig(t *testing.T) {
	ctx := context.Background()
	store := NewStore(objectstore.NewMemoryStore(), "")

	_, err := store.Save(ctx, DashboardConfig{}, "alice")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestStore_LoadReturnsDefaultWhenNothingSaved(t *testing.T) {
	ctx := context.Background()
	store := NewStore(objectstore.NewMemoryStore(), "")

	cfg, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, DefaultDashboardConfig().Timezone, cfg.Timezone)
}

func TestStore_LoadSaveRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewStore(objectstore.NewMemoryStore(), "")

	cfg := DefaultDashboardConfig()
	cfg.Topics = validTopics()
	cfg.Podcast = PodcastMetadata{BaseURL: "https://pod.example.com", Title: "Daily"}

	saved, err := store.Save(ctx, cfg, "alice")
	require.NoError(t, err)

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, saved.Topics, loaded.Topics)
	assert.Equal(t, saved.Podcast, loaded.Podcast)
	assert.Equal(t, saved.Version, loaded.Version)
}

func TestSortedByWeight_OrdersDescendingAndIsStable(t *testing.T) {
	topics := []TopicConfig{
		{Label: "a", Weight: 0.2},
		{Label: "b", Weight: 0.5},
		{Label: "c", Weight: 0.5},
	}
	sorted := SortedByWeight(topics)
	require.Len(t, sorted, 3)
	assert.Equal(t, "b", sorted[0].Label)
	assert.Equal(t, "c", sorted[1].Label)
	assert.Equal(t, "a", sorted[2].Label)
}

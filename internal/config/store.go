package config

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rohitmangal/daily-news-podcast/internal/objectstore"
)

// TopicConfig is one user-configured coverage topic.
type TopicConfig struct {
	Label    string   `json:"label"`
	Weight   float64  `json:"weight"`
	Enabled  bool     `json:"enabled"`
	Feeds    []string `json:"feeds"`
	Keywords []string `json:"keywords"`
}

// ProductionSettings tunes TTS pacing and episode shape.
type ProductionSettings struct {
	PauseShortMs     int    `json:"pause_short_ms"`
	PauseLongMs      int    `json:"pause_long_ms"`
	MinStories       int    `json:"min_stories"`
	MaxStories       int    `json:"max_stories"`
	Style            string `json:"style"`
	IntroMusicKey    string `json:"intro_music_key"`
	OutroMusicKey    string `json:"outro_music_key"`
	EnableIntroOutro bool   `json:"enable_intro_outro"`
}

// DashboardConfig is the user-editable record that parameterizes every run.
// It is the single source of truth resolved at BUILD_CONFIG time (spec
// §4.13). When the stored record cannot be read, BUILD_CONFIG fails; it does
// not fall back to environment variables.
type DashboardConfig struct {
	Version             int                    `json:"version"`
	UpdatedAt           time.Time              `json:"updated_at"`
	UpdatedBy           string                 `json:"updated_by"`
	Topics              []TopicConfig          `json:"topics"`
	Timezone            string                 `json:"timezone"`
	RumorFilter         bool                   `json:"rumor_filter"`
	BannedDomains       []string               `json:"banned_domains"`
	MinContentLength    int                    `json:"min_content_length"`
	MaxStoriesPerDomain int                    `json:"max_stories_per_domain"`
	Voices              map[string]string      `json:"voices"`
	PronunciationGlossary map[string]string    `json:"pronunciation_glossary"`
	Podcast             PodcastMetadata        `json:"podcast"`
	WindowHours         int                    `json:"window_hours"`
	TargetDurationSec   int                    `json:"target_duration_sec"`
	Production          ProductionSettings     `json:"production"`
}

// EnabledTopics returns the topics that are enabled and have weight > 0, in
// their stored order.
// This is the filter spec.md §4.13 calls "the key behavior that honors
// dashboard state" — BUILD_CONFIG must never fall back to a hard-coded
// topic list.
func (c DashboardConfig) EnabledTopics() []TopicConfig {
	out := make([]TopicConfig, 0, len(c.Topics))
	for _, t := range c.Topics {
		if t.Enabled && t.Weight > 0 {
			out = append(out, t)
		}
	}
	return out
}

// Store persists and loads the DashboardConfig through an object store.
type Store struct {
	backend objectstore.ObjectStore
	key     string
}

// NewStore creates a Store writing the dashboard record at key (defaults to
// "config/config.json" when empty).
func NewStore(backend objectstore.ObjectStore, key string) *Store {
	if key == "" {
		key = "config/config.json"
	}
	return &Store{backend: backend, key: key}
}

// Load returns the persisted DashboardConfig, or a default record if none
// has been saved yet. A read error other than not-found is returned to the
// caller; BUILD_CONFIG treats that as fatal per spec §7 (StorageError).
func (s *Store) Load(ctx context.Context) (DashboardConfig, error) {
	r, _, err := s.backend.Get(ctx, s.key)
	if err != nil {
		if err == objectstore.ErrNotFound {
			return DefaultDashboardConfig(), nil
		}
		return DashboardConfig{}, fmt.Errorf("config store: load: %w", err)
	}
	defer r.Close()

	var cfg DashboardConfig
	if err := json.NewDecoder(r).Decode(&cfg); err != nil {
		return DashboardConfig{}, fmt.Errorf("config store: decode: %w", err)
	}
	return cfg, nil
}

// Save validates cfg, bumps its version, stamps updated_at/updated_by,
// normalizes topic weights, and writes it back. The returned config is the
// one actually persisted.
func (s *Store) Save(ctx context.Context, cfg DashboardConfig, updatedBy string) (DashboardConfig, error) {
	normalizeWeights(cfg.Topics)

	if err := Validate(cfg); err != nil {
		return DashboardConfig{}, err
	}

	prev, err := s.Load(ctx)
	if err == nil {
		cfg.Version = prev.Version + 1
	} else {
		cfg.Version = 1
	}
	cfg.UpdatedAt = time.Now().UTC()
	cfg.UpdatedBy = updatedBy

	buf, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return DashboardConfig{}, fmt.Errorf("config store: marshal: %w", err)
	}
	if _, err := s.backend.Put(ctx, s.key, bytes.NewReader(buf), objectstore.PutOptions{ContentType: "application/json"}); err != nil {
		return DashboardConfig{}, fmt.Errorf("config store: save: %w", err)
	}
	return cfg, nil
}

// Validate checks the invariants spec §4.2 requires before a save succeeds.
func Validate(cfg DashboardConfig) error {
	if len(cfg.Topics) == 0 {
		return fmt.Errorf("%w: topic list is empty", ErrValidation)
	}
	seen := make(map[string]bool, len(cfg.Topics))
	var enabledSum float64
	for _, t := range cfg.Topics {
		label := strings.ToLower(strings.TrimSpace(t.Label))
		if label == "" {
			return fmt.Errorf("%w: topic label is empty", ErrValidation)
		}
		if seen[label] {
			return fmt.Errorf("%w: duplicate topic label %q", ErrValidation, t.Label)
		}
		seen[label] = true
		if t.Weight < 0 || t.Weight > 1 {
			return fmt.Errorf("%w: topic %q weight %v out of [0,1]", ErrValidation, t.Label, t.Weight)
		}
		if t.Enabled {
			enabledSum += t.Weight
		}
	}
	if enabledSum > 0 && math.Abs(enabledSum-1) > 1e-3 {
		return fmt.Errorf("%w: enabled topic weights sum to %v, want 1±1e-3", ErrValidation, enabledSum)
	}
	if strings.TrimSpace(cfg.Timezone) == "" {
		return fmt.Errorf("%w: timezone is required", ErrValidation)
	}
	if cfg.Podcast.BaseURL != "" && !strings.HasPrefix(cfg.Podcast.BaseURL, "http") {
		return fmt.Errorf("%w: podcast base url must be http(s)", ErrValidation)
	}
	return nil
}

// normalizeWeights rescales enabled topics' weights to sum to 1, splitting
// evenly when every enabled topic currently has weight 0.
func normalizeWeights(topics []TopicConfig) {
	var sum float64
	enabledCount := 0
	for _, t := range topics {
		if !t.Enabled {
			continue
		}
		sum += t.Weight
		enabledCount++
	}
	if enabledCount == 0 {
		return
	}
	if sum <= 0 {
		even := 1.0 / float64(enabledCount)
		for i := range topics {
			if topics[i].Enabled {
				topics[i].Weight = even
			}
		}
		return
	}
	if math.Abs(sum-1) <= 1e-3 {
		return
	}
	for i := range topics {
		if topics[i].Enabled {
			topics[i].Weight = topics[i].Weight / sum
		}
	}
}

// DefaultDashboardConfig is returned by Load when no record has been saved.
func DefaultDashboardConfig() DashboardConfig {
	return DashboardConfig{
		Version:             0,
		Timezone:            "America/New_York",
		RumorFilter:         true,
		MinContentLength:    100,
		MaxStoriesPerDomain: 2,
		WindowHours:         36,
		TargetDurationSec:   900,
		Voices: map[string]string{
			"host":    "shimmer",
			"analyst": "echo",
			"stinger": "fable",
		},
		Production: ProductionSettings{
			PauseShortMs: 300,
			PauseLongMs:  700,
			MinStories:   5,
			MaxStories:   12,
			Style:        "conversational",
		},
	}
}

// SortedByWeight returns topics ordered by descending weight; ties keep
// their original relative order (stable sort), matching the ranking stage's
// deterministic tie-breaking rule (spec §5).
func SortedByWeight(topics []TopicConfig) []TopicConfig {
	out := make([]TopicConfig, len(topics))
	copy(out, topics)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Weight > out[j].Weight
	})
	return out
}

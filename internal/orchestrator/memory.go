package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/rohitmangal/daily-news-podcast/internal/model"
	"github.com/rohitmangal/daily-news-podcast/internal/objectstore"
	"github.com/rohitmangal/daily-news-podcast/internal/observability"
)

const listenerProfileKey = "memory/listener_profile.json"

// maxRecentStoryURLs bounds how many recently-covered story URLs the
// profile retains — enough to cover the last few episodes without growing
// unboundedly.
const maxRecentStoryURLs = 200

// ListenerProfile tracks cumulative topic engagement across runs, plus a
// bounded list of recently-covered story URLs that OUTLINE reads back to
// avoid re-covering yesterday's stories (spec's memory-hook intent). It is
// a best-effort artifact — a missing or corrupt profile never fails a run.
type ListenerProfile struct {
	TopicEngagement map[string]int `json:"topic_engagement"`
	RecentStoryURLs []string       `json:"recent_story_urls"`
	EpisodeCount    int            `json:"episode_count"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// UpdateListenerProfile loads the existing profile (or starts a fresh one),
// increments topic engagement counters from this run's picks, records their
// URLs for future OUTLINE runs, and saves it back. Any failure is logged at
// warn level and never fails the run.
func UpdateListenerProfile(ctx context.Context, store objectstore.ObjectStore, manifest model.EpisodeManifest) {
	logger := observability.LoggerWithTrace(ctx)

	profile, err := loadListenerProfile(ctx, store)
	if err != nil {
		logger.Warn().Err(err).Msg("memory hook: load listener profile failed")
		profile = ListenerProfile{TopicEngagement: make(map[string]int)}
	}
	if profile.TopicEngagement == nil {
		profile.TopicEngagement = make(map[string]int)
	}

	for _, pick := range manifest.Picks {
		profile.TopicEngagement[pick.Topic]++
		profile.RecentStoryURLs = append(profile.RecentStoryURLs, pick.Story.URL)
	}
	if overflow := len(profile.RecentStoryURLs) - maxRecentStoryURLs; overflow > 0 {
		profile.RecentStoryURLs = profile.RecentStoryURLs[overflow:]
	}
	profile.EpisodeCount++
	profile.UpdatedAt = time.Now().UTC()

	buf, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		logger.Warn().Err(err).Msg("memory hook: marshal listener profile failed")
		return
	}
	if _, err := store.Put(ctx, listenerProfileKey, bytes.NewReader(buf), objectstore.PutOptions{ContentType: "application/json"}); err != nil {
		logger.Warn().Err(err).Msg("memory hook: save listener profile failed")
	}
}

func loadListenerProfile(ctx context.Context, store objectstore.ObjectStore) (ListenerProfile, error) {
	r, _, err := store.Get(ctx, listenerProfileKey)
	if err != nil {
		if err == objectstore.ErrNotFound {
			return ListenerProfile{TopicEngagement: make(map[string]int)}, nil
		}
		return ListenerProfile{}, err
	}
	defer r.Close()
	var p ListenerProfile
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return ListenerProfile{}, err
	}
	return p, nil
}

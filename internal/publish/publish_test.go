package publish

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohitmangal/daily-news-podcast/internal/config"
	"github.com/rohitmangal/daily-news-podcast/internal/model"
	"github.com/rohitmangal/daily-news-podcast/internal/objectstore"
)

func TestPublish_WritesMP3ManifestAndFeed(t *testing.T) {
	store := objectstore.NewMemoryStore()
	meta := config.PodcastMetadata{BaseURL: "https://pod.example.com", Title: "Daily News", Description: "Briefing", Author: "Rohit", Email: "a@b.com", Language: "en-us", Category: "News"}
	manifest := model.EpisodeManifest{Date: "2026-07-30", RunID: "run1", CreatedAt: time.Now().UTC(), DurationSec: 600}

	out, err := Publish(context.Background(), store, Input{Manifest: manifest, MP3: []byte("fake-mp3-bytes"), Meta: meta})

	require.NoError(t, err)
	assert.Contains(t, out.MP3URL, "2026-07-30")

	r, _, err := store.Get(context.Background(), "episodes/2026-07-30_manifest.json")
	require.NoError(t, err)
	defer r.Close()
	var saved model.EpisodeManifest
	require.NoError(t, json.NewDecoder(r).Decode(&saved))
	assert.Equal(t, out.MP3URL, saved.MP3URL)

	feedR, _, err := store.Get(context.Background(), "feed.xml")
	require.NoError(t, err)
	defer feedR.Close()
}

func TestBuildFeedXML_EscapesAndFormatsItems(t *testing.T) {
	meta := config.PodcastMetadata{Title: "Show & Tell", BaseURL: "https://x.com", Description: "d", Language: "en-us", Author: "A", Email: "a@b.com", Category: "News"}
	episodes := []feedEpisode{{Title: "Fed <raises> rates", Description: "d", MP3URL: "https://x.com/e.mp3", PublishedAt: time.Now()}}

	xmlDoc := BuildFeedXML(meta, episodes, time.Now())

	assert.True(t, strings.Contains(xmlDoc, "Show &amp; Tell"))
	assert.True(t, strings.Contains(xmlDoc, "Fed &lt;raises&gt; rates"))
	assert.True(t, strings.Contains(xmlDoc, `<rss version="2.0"`))
}

func TestBuildFeedXML_EmptyEpisodesIsValidChannel(t *testing.T) {
	meta := config.PodcastMetadata{Title: "T", BaseURL: "https://x.com", Description: "d", Language: "en-us", Author: "A", Email: "a@b.com", Category: "News"}
	xmlDoc := BuildFeedXML(meta, nil, time.Now())
	assert.True(t, strings.Contains(xmlDoc, "<channel>"))
	assert.False(t, strings.Contains(xmlDoc, "<item>"))
}

// Package publish writes the finished episode mp3 and manifest to object
// storage, keyed by date, and rebuilds the RSS feed document (spec §4.12).
package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rohitmangal/daily-news-podcast/internal/config"
	"github.com/rohitmangal/daily-news-podcast/internal/model"
	"github.com/rohitmangal/daily-news-podcast/internal/objectstore"
)

const maxRetainedEpisodes = 30

// Input parameterizes one publication.
type Input struct {
	Manifest model.EpisodeManifest
	MP3      []byte
	Meta     config.PodcastMetadata
}

// Output reports where the episode artifacts landed.
type Output struct {
	MP3URL      string
	ManifestKey string
}

// Publish writes the mp3 and manifest keyed by date, then rebuilds feed.xml
// from every manifest currently in the object store (spec §4.12).
func Publish(ctx context.Context, store objectstore.ObjectStore, in Input) (Output, error) {
	date := in.Manifest.Date
	mp3Key := fmt.Sprintf("episodes/%s_daily_rohit_news.mp3", date)
	manifestKey := fmt.Sprintf("episodes/%s_manifest.json", date)

	if _, err := store.Put(ctx, mp3Key, bytes.NewReader(in.MP3), objectstore.PutOptions{ContentType: "audio/mpeg"}); err != nil {
		return Output{}, fmt.Errorf("publish: write mp3: %w", err)
	}

	mp3URL := fmt.Sprintf("%s/podcast/episodes?date=%s", strings.TrimRight(in.Meta.BaseURL, "/"), date)
	manifest := in.Manifest
	manifest.MP3URL = mp3URL

	buf, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return Output{}, fmt.Errorf("publish: marshal manifest: %w", err)
	}
	if _, err := store.Put(ctx, manifestKey, bytes.NewReader(buf), objectstore.PutOptions{ContentType: "application/json"}); err != nil {
		return Output{}, fmt.Errorf("publish: write manifest: %w", err)
	}

	if err := RebuildFeed(ctx, store, in.Meta); err != nil {
		return Output{}, fmt.Errorf("publish: rebuild feed: %w", err)
	}

	return Output{MP3URL: mp3URL, ManifestKey: manifestKey}, nil
}

// RebuildFeed lists every episodes/*_manifest.json, sorts by date
// descending, keeps the most recent maxRetainedEpisodes, and writes feed.xml.
func RebuildFeed(ctx context.Context, store objectstore.ObjectStore, meta config.PodcastMetadata) error {
	listing, err := store.List(ctx, objectstore.ListOptions{Prefix: "episodes/"})
	if err != nil {
		return fmt.Errorf("list episodes: %w", err)
	}

	var manifests []model.EpisodeManifest
	for _, obj := range listing.Objects {
		if !strings.HasSuffix(obj.Key, "_manifest.json") {
			continue
		}
		r, _, err := store.Get(ctx, obj.Key)
		if err != nil {
			continue
		}
		var m model.EpisodeManifest
		decodeErr := json.NewDecoder(r).Decode(&m)
		r.Close()
		if decodeErr != nil {
			continue
		}
		manifests = append(manifests, m)
	}

	sort.Slice(manifests, func(i, j int) bool {
		return manifests[i].Date > manifests[j].Date
	})
	if len(manifests) > maxRetainedEpisodes {
		manifests = manifests[:maxRetainedEpisodes]
	}

	episodes := make([]feedEpisode, len(manifests))
	for i, m := range manifests {
		episodes[i] = manifestToFeedEpisode(m, meta)
	}

	xmlDoc := BuildFeedXML(meta, episodes, time.Now().UTC())
	_, err = store.Put(ctx, "feed.xml", bytes.NewReader([]byte(xmlDoc)), objectstore.PutOptions{ContentType: "application/rss+xml; charset=utf-8"})
	if err != nil {
		return fmt.Errorf("write feed.xml: %w", err)
	}
	return nil
}

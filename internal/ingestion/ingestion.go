// Package ingestion fetches RSS/Atom feeds for enabled topics, normalizes
// items into Stories, and applies the filter chain from spec §4.5.
package ingestion

import (
	"context"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/mmcdole/gofeed"

	"github.com/rohitmangal/daily-news-podcast/internal/config"
	"github.com/rohitmangal/daily-news-podcast/internal/model"
	"github.com/rohitmangal/daily-news-podcast/internal/observability"
)

var spamPhrases = []string{
	"click here", "you won't believe", "shocking", "one weird trick",
}

// SourceScan records one feed fetch outcome for the detailed report.
type SourceScan struct {
	Topic     string `json:"topic"`
	URL       string `json:"url"`
	ItemCount int    `json:"item_count"`
	Status    string `json:"status"`
}

// FilteredItem records why one candidate item was rejected.
type FilteredItem struct {
	Topic  string `json:"topic"`
	URL    string `json:"url"`
	Title  string `json:"title"`
	Reason string `json:"reason"`
}

// Report is the detailed ingestion outcome attached to the pipeline report.
type Report struct {
	Sources        []SourceScan   `json:"sources"`
	TotalItems     int            `json:"total_items"`
	Filtered       []FilteredItem `json:"filtered"`
	TopicBreakdown map[string]int `json:"topic_breakdown"`
	DedupRemoved   []FilteredItem `json:"dedup_removed"`
}

// Input parameterizes one ingestion run.
type Input struct {
	Topics              []config.TopicConfig
	WindowHours         int
	CutoffDate          time.Time
	MaxStoriesPerDomain int
	MinContentLength    int
}

// Output is ingestion's result: accepted Stories plus the detailed report.
type Output struct {
	Stories []model.Story
	Report  Report
}

// Fetcher abstracts feed retrieval so tests can substitute a fake without a
// network round-trip.
type Fetcher interface {
	Fetch(ctx context.Context, feedURL string) (*gofeed.Feed, error)
}

// HTTPFetcher fetches feeds over HTTP with a bounded timeout, routed through
// the shared otel-instrumented client so outbound calls are traced the same
// way as every other external dependency.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher builds a Fetcher with a 15s per-call timeout (spec §4.5).
func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{client: observability.NewHTTPClient(&http.Client{Timeout: 15 * time.Second})}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
	parser := gofeed.NewParser()
	parser.Client = f.client
	return parser.ParseURLWithContext(feedURL, ctx)
}

// Run performs ingestion: fetch all topic feeds, normalize, filter, and
// deduplicate by (domain, topic). A total failure across every source is
// the only fatal condition (spec §4.5/§7); partial fetch failures are
// recorded in the report.
func Run(ctx context.Context, fetcher Fetcher, in Input) (Output, error) {
	report := Report{TopicBreakdown: make(map[string]int)}
	seenURLs := make(map[string]bool)
	var accepted []model.Story
	sourcesAttempted := 0
	sourcesOK := 0

	for _, topic := range in.Topics {
		for _, feedURL := range topic.Feeds {
			sourcesAttempted++
			feed, err := fetcher.Fetch(ctx, feedURL)
			if err != nil {
				report.Sources = append(report.Sources, SourceScan{Topic: topic.Label, URL: feedURL, Status: "error: " + err.Error()})
				continue
			}
			sourcesOK++
			report.Sources = append(report.Sources, SourceScan{Topic: topic.Label, URL: feedURL, ItemCount: len(feed.Items), Status: "ok"})
			report.TotalItems += len(feed.Items)

			for _, item := range feed.Items {
				story, reason := normalizeAndFilter(item, topic, in)
				if reason != "" {
					report.Filtered = append(report.Filtered, FilteredItem{Topic: topic.Label, URL: item.Link, Title: item.Title, Reason: reason})
					continue
				}
				if seenURLs[story.URL] {
					report.Filtered = append(report.Filtered, FilteredItem{Topic: topic.Label, URL: story.URL, Title: story.Title, Reason: "duplicate url"})
					continue
				}
				seenURLs[story.URL] = true
				accepted = append(accepted, story)
				report.TopicBreakdown[topic.Label]++
			}
		}
	}

	if sourcesAttempted > 0 && sourcesOK == 0 {
		return Output{Report: report}, &AllSourcesFailedError{Attempted: sourcesAttempted}
	}

	accepted, removed := dedupeByDomainTopic(accepted, in.MaxStoriesPerDomain)
	report.DedupRemoved = removed

	return Output{Stories: accepted, Report: report}, nil
}

// AllSourcesFailedError is returned when every configured feed failed.
type AllSourcesFailedError struct{ Attempted int }

func (e *AllSourcesFailedError) Error() string {
	return "ingestion: all sources failed"
}

func normalizeAndFilter(item *gofeed.Item, topic config.TopicConfig, in Input) (model.Story, string) {
	if item.Link == "" || item.Title == "" {
		return model.Story{}, "missing url or title"
	}

	published := itemPublished(item)

	isGoogleNews := IsGoogleNewsLink(item.Link)
	domain := NormalizeDomain(hostOf(item.Link))
	if isGoogleNews {
		domain = googleNewsDomain
		if recovered := RecoverGoogleNewsDomain(item.Title); recovered != "" {
			domain = recovered
		}
	}

	story := model.Story{
		ID:          StoryID(item.Link),
		URL:         item.Link,
		Title:       item.Title,
		Source:      domain,
		Domain:      domain,
		PublishedAt: published,
		Summary:     item.Description,
		Topic:       topic.Label,
	}

	if !published.IsZero() && published.Before(in.CutoffDate) {
		return model.Story{}, "too old"
	}

	if !isGoogleNews {
		content := strings.TrimSpace(story.Summary)
		if content == "" {
			content = story.Title
		}
		if len(content) < in.cutoffMinLen() {
			return model.Story{}, "failed quality filter (content too short)"
		}
		lowerTitle := strings.ToLower(story.Title)
		for _, phrase := range spamPhrases {
			if strings.Contains(lowerTitle, phrase) {
				return model.Story{}, "failed quality filter (spam phrase)"
			}
		}
		if nonASCIIRatio(story.Title) > 0.30 {
			return model.Story{}, "failed quality filter (non-ascii)"
		}
	}

	tier := ClassifyTier(domain)
	story.Tier = tier
	if isGoogleNews && domain == googleNewsDomain {
		story.Tier = Tier4
	}
	if story.Tier == Tier3 || story.Tier == Tier5 {
		return model.Story{}, "excluded source tier"
	}

	if !isGoogleNews {
		haystack := strings.ToLower(story.Title + " " + story.Summary)
		if len(topic.Keywords) > 0 && !anyKeywordMatch(haystack, topic.Keywords) {
			return model.Story{}, "no keyword match"
		}
	}

	return story, ""
}

// cutoffMinLen lets Input carry the configured min_content_length without a
// separate field threading through every call site.
func (in Input) cutoffMinLen() int {
	if in.MinContentLength > 0 {
		return in.MinContentLength
	}
	return 100
}

func anyKeywordMatch(haystack string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(haystack, strings.ToLower(k)) {
			return true
		}
	}
	return false
}

func nonASCIIRatio(s string) float64 {
	if s == "" {
		return 0
	}
	nonASCII := 0
	total := 0
	for _, r := range s {
		total++
		if r > unicode.MaxASCII {
			nonASCII++
		}
	}
	return float64(nonASCII) / float64(total)
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}

func itemPublished(item *gofeed.Item) time.Time {
	if item.PublishedParsed != nil {
		return *item.PublishedParsed
	}
	if item.UpdatedParsed != nil {
		return *item.UpdatedParsed
	}
	return time.Time{}
}

// dedupeByDomainTopic keeps at most maxPerDomain stories per (domain, topic)
// pair, preferring the most recent by published_at (spec §4.5).
func dedupeByDomainTopic(stories []model.Story, maxPerDomain int) ([]model.Story, []FilteredItem) {
	if maxPerDomain <= 0 {
		maxPerDomain = 2
	}
	byKey := make(map[string][]model.Story)
	for _, s := range stories {
		key := s.Domain + "|" + s.Topic
		byKey[key] = append(byKey[key], s)
	}

	var kept []model.Story
	var removed []FilteredItem
	for _, group := range byKey {
		sort.Slice(group, func(i, j int) bool {
			return group[i].PublishedAt.After(group[j].PublishedAt)
		})
		for i, s := range group {
			if i < maxPerDomain {
				kept = append(kept, s)
			} else {
				removed = append(removed, FilteredItem{Topic: s.Topic, URL: s.URL, Title: s.Title, Reason: "max stories per domain exceeded"})
			}
		}
	}
	sort.Slice(kept, func(i, j int) bool {
		return kept[i].PublishedAt.After(kept[j].PublishedAt)
	})
	return kept, removed
}

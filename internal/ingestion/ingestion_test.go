package ingestion

import (
	"context"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohitmangal/daily-news-podcast/internal/config"
)

type fakeFetcher struct {
	feeds map[string]*gofeed.Feed
	errs  map[string]error
}

func (f *fakeFetcher) Fetch(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
	if err, ok := f.errs[feedURL]; ok {
		return nil, err
	}
	return f.feeds[feedURL], nil
}

func ptrTime(t time.Time) *time.Time { return &t }

func TestRun_AcceptsQualifyingStory(t *testing.T) {
	now := time.Now().UTC()
	feed := &gofeed.Feed{Items: []*gofeed.Item{
		{
			Title:           "Fed Raises Interest Rates Again",
			Link:            "https://www.reuters.com/markets/fed-raises-rates",
			Description:     "The Federal Reserve raised interest rates by a quarter point on Wednesday, citing persistent inflation pressure across the economy.",
			PublishedParsed: ptrTime(now.Add(-2 * time.Hour)),
		},
	}}
	fetcher := &fakeFetcher{feeds: map[string]*gofeed.Feed{"https://feeds.reuters.com/markets": feed}}

	topic := config.TopicConfig{Label: "markets", Weight: 1, Enabled: true, Feeds: []string{"https://feeds.reuters.com/markets"}, Keywords: []string{"fed", "rate"}}

	out, err := Run(context.Background(), fetcher, Input{
		Topics:              []config.TopicConfig{topic},
		CutoffDate:          now.Add(-36 * time.Hour),
		MaxStoriesPerDomain: 2,
		MinContentLength:    50,
	})

	require.NoError(t, err)
	require.Len(t, out.Stories, 1)
	assert.Equal(t, "reuters.com", out.Stories[0].Domain)
	assert.Equal(t, Tier1, out.Stories[0].Tier)
	assert.Equal(t, 1, out.Report.TopicBreakdown["markets"])
}

func TestRun_RejectsStaleAndKeywordMismatch(t *testing.T) {
	now := time.Now().UTC()
	feed := &gofeed.Feed{Items: []*gofeed.Item{
		{
			Title:           "Old Story About Something Else Entirely That Is Long Enough",
			Link:            "https://www.reuters.com/old-story",
			Description:     "This story is long enough to pass the quality filter but it is far too old to be included in today's window at all.",
			PublishedParsed: ptrTime(now.Add(-72 * time.Hour)),
		},
		{
			Title:           "Unrelated Topic Coverage That Has Nothing To Do With Markets",
			Link:            "https://www.reuters.com/unrelated",
			Description:     "This article is about gardening tips for the summer season and has absolutely nothing to do with finance at all.",
			PublishedParsed: ptrTime(now.Add(-1 * time.Hour)),
		},
	}}
	fetcher := &fakeFetcher{feeds: map[string]*gofeed.Feed{"https://feeds.reuters.com/markets": feed}}
	topic := config.TopicConfig{Label: "markets", Weight: 1, Enabled: true, Feeds: []string{"https://feeds.reuters.com/markets"}, Keywords: []string{"fed", "rate"}}

	out, err := Run(context.Background(), fetcher, Input{
		Topics:              []config.TopicConfig{topic},
		CutoffDate:          now.Add(-36 * time.Hour),
		MaxStoriesPerDomain: 2,
		MinContentLength:    50,
	})

	require.NoError(t, err)
	assert.Empty(t, out.Stories)
	assert.Len(t, out.Report.Filtered, 2)
}

func TestRun_AllSourcesFailedIsError(t *testing.T) {
	fetcher := &fakeFetcher{errs: map[string]error{"https://bad.example/feed": assertErr("boom")}}
	topic := config.TopicConfig{Label: "markets", Weight: 1, Enabled: true, Feeds: []string{"https://bad.example/feed"}}

	_, err := Run(context.Background(), fetcher, Input{Topics: []config.TopicConfig{topic}})
	require.Error(t, err)
}

func TestGoogleNewsDomainRecovery(t *testing.T) {
	assert.Equal(t, "reuters.com", RecoverGoogleNewsDomain("Fed Raises Rates - Reuters"))
	assert.Equal(t, "", RecoverGoogleNewsDomain("No Suffix Here"))
}

func TestDedupeByDomainTopic_CapsPerDomain(t *testing.T) {
	now := time.Now().UTC()
	feed := &gofeed.Feed{Items: []*gofeed.Item{
		{Title: "Story One About The Markets Today", Link: "https://www.reuters.com/a", Description: "A sufficiently long description for story one about today's market movements and trading.", PublishedParsed: ptrTime(now.Add(-1 * time.Hour))},
		{Title: "Story Two About The Markets Today", Link: "https://www.reuters.com/b", Description: "A sufficiently long description for story two about today's market movements and trading.", PublishedParsed: ptrTime(now.Add(-2 * time.Hour))},
		{Title: "Story Three About The Markets Today", Link: "https://www.reuters.com/c", Description: "A sufficiently long description for story three about today's market movements and trading.", PublishedParsed: ptrTime(now.Add(-3 * time.Hour))},
	}}
	fetcher := &fakeFetcher{feeds: map[string]*gofeed.Feed{"https://feeds.reuters.com/markets": feed}}
	topic := config.TopicConfig{Label: "markets", Weight: 1, Enabled: true, Feeds: []string{"https://feeds.reuters.com/markets"}, Keywords: []string{"market"}}

	out, err := Run(context.Background(), fetcher, Input{
		Topics:              []config.TopicConfig{topic},
		CutoffDate:          now.Add(-36 * time.Hour),
		MaxStoriesPerDomain: 2,
		MinContentLength:    50,
	})

	require.NoError(t, err)
	assert.Len(t, out.Stories, 2)
	assert.Len(t, out.Report.DedupRemoved, 1)
}

type assertErr string

func (e assertErr) Error() string { return string(e) }

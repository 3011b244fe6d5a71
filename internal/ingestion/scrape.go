package ingestion

import (
	"net/http"
	"time"

	readability "github.com/go-shiori/go-readability"

	"github.com/rohitmangal/daily-news-podcast/internal/model"
	"github.com/rohitmangal/daily-news-podcast/internal/observability"
)

// thinSummaryThreshold is the Summary length below which a full-text scrape
// is attempted before a story is handed to ranking (spec §4.5).
const thinSummaryThreshold = 280

// Scraper fetches and extracts the main article text for stories whose feed
// summary is too thin to rank or script from.
type Scraper struct {
	client *http.Client
}

// NewScraper builds a Scraper with a bounded per-article timeout.
func NewScraper() *Scraper {
	return &Scraper{client: observability.NewHTTPClient(&http.Client{Timeout: 10 * time.Second})}
}

// EnrichThinSummaries scrapes full article text for any story whose Summary
// is below thinSummaryThreshold, storing the result in ScrapedText. A scrape
// failure for one story never fails the run — it just leaves ScrapedText
// empty and later stages fall back to the feed summary.
func (s *Scraper) EnrichThinSummaries(stories []model.Story) []model.Story {
	out := make([]model.Story, len(stories))
	copy(out, stories)
	for i := range out {
		if len(out[i].Summary) >= thinSummaryThreshold {
			continue
		}
		text, err := s.scrape(out[i].URL)
		if err != nil || text == "" {
			continue
		}
		out[i].ScrapedText = text
	}
	return out
}

func (s *Scraper) scrape(articleURL string) (string, error) {
	resp, err := s.client.Get(articleURL)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	article, err := readability.FromReader(resp.Body, resp.Request.URL)
	if err != nil {
		return "", err
	}
	return article.TextContent, nil
}

package publish

import (
	"fmt"
	"strings"
	"time"

	"github.com/rohitmangal/daily-news-podcast/internal/config"
	"github.com/rohitmangal/daily-news-podcast/internal/model"
)

// feedEpisode is the minimal shape feed building needs from a manifest.
type feedEpisode struct {
	Date        string
	Title       string
	Description string
	MP3URL      string
	LengthBytes int
	DurationSec float64
	PublishedAt time.Time
}

// BuildFeedXML renders the canonical RSS document (spec §6 bit-level spec).
// episodes must already be sorted newest-first and capped to the retained
// count by the caller.
func BuildFeedXML(meta config.PodcastMetadata, episodes []feedEpisode, now time.Time) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<rss version="2.0" xmlns:itunes="http://www.itunes.com/dtds/podcast-1.0.dtd" xmlns:atom="http://www.w3.org/2005/Atom">` + "\n")
	b.WriteString("<channel>\n")
	fmt.Fprintf(&b, "<title>%s</title>\n", escape(meta.Title))
	fmt.Fprintf(&b, "<link>%s</link>\n", meta.BaseURL)
	fmt.Fprintf(&b, "<description>%s</description>\n", escape(meta.Description))
	fmt.Fprintf(&b, "<language>%s</language>\n", escape(meta.Language))
	fmt.Fprintf(&b, "<lastBuildDate>%s</lastBuildDate>\n", now.UTC().Format(time.RFC1123))
	fmt.Fprintf(&b, `<atom:link href="%s/podcast/feed" rel="self" type="application/rss+xml"/>`+"\n", meta.BaseURL)
	fmt.Fprintf(&b, "<itunes:author>%s</itunes:author>\n", escape(meta.Author))
	fmt.Fprintf(&b, "<itunes:summary>%s</itunes:summary>\n", escape(meta.Description))
	b.WriteString("<itunes:owner>\n")
	fmt.Fprintf(&b, "<itunes:name>%s</itunes:name>\n", escape(meta.Author))
	fmt.Fprintf(&b, "<itunes:email>%s</itunes:email>\n", escape(meta.Email))
	b.WriteString("</itunes:owner>\n")
	fmt.Fprintf(&b, `<itunes:image href="%s/static/cover.jpg"/>`+"\n", meta.BaseURL)
	fmt.Fprintf(&b, `<itunes:category text="%s"/>`+"\n", escape(meta.Category))
	b.WriteString("<itunes:explicit>no</itunes:explicit>\n")

	for _, ep := range episodes {
		b.WriteString("<item>\n")
		fmt.Fprintf(&b, "<title>%s</title>\n", escape(ep.Title))
		fmt.Fprintf(&b, "<description>%s</description>\n", escape(ep.Description))
		fmt.Fprintf(&b, "<pubDate>%s</pubDate>\n", ep.PublishedAt.UTC().Format(time.RFC1123))
		fmt.Fprintf(&b, `<enclosure url="%s" length="%d" type="audio/mpeg"/>`+"\n", ep.MP3URL, ep.LengthBytes)
		fmt.Fprintf(&b, `<guid isPermaLink="false">%s</guid>`+"\n", ep.MP3URL)
		fmt.Fprintf(&b, "<itunes:duration>%d</itunes:duration>\n", int(ep.DurationSec))
		b.WriteString("</item>\n")
	}

	b.WriteString("</channel>\n</rss>\n")
	return b.String()
}

// escape applies the spec's five required XML entity substitutions. URLs
// are passed through BuildFeedXML untouched, per spec §6.
func escape(s string) string {
	r := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&apos;",
	)
	return r.Replace(s)
}

// manifestToFeedEpisode adapts a persisted EpisodeManifest into the feed
// builder's input shape.
func manifestToFeedEpisode(m model.EpisodeManifest, meta config.PodcastMetadata) feedEpisode {
	return feedEpisode{
		Date:        m.Date,
		Title:       fmt.Sprintf("%s — %s", meta.Title, m.Date),
		Description: fmt.Sprintf("Daily briefing for %s covering %d stories.", m.Date, len(m.Picks)),
		MP3URL:      m.MP3URL,
		LengthBytes: int(m.DurationSec * bytesPerSecond),
		DurationSec: m.DurationSec,
		PublishedAt: m.CreatedAt,
	}
}

const bytesPerSecond = 16 * 1024

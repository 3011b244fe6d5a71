// Package outline drives the LLM pass that turns a ranked Pick list into a
// thematic segment structure (spec §4.7).
package outline

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/rohitmangal/daily-news-podcast/internal/config"
	"github.com/rohitmangal/daily-news-podcast/internal/llm"
	"github.com/rohitmangal/daily-news-podcast/internal/model"
)

// Input parameterizes one outline generation call.
type Input struct {
	Picks             []model.Pick
	Topics            []config.TopicConfig // used to order picks by topic weight (spec §4.7)
	RecentlyCoveredURLs []string           // from the listener memory hook; deprioritized, not excluded
	TargetDurationSec int
	PauseShortMs      int
	PauseLongMs       int
	MinStories        int
	MaxStories         int
	Style             string
}

type rawSegment struct {
	Title          string   `json:"title"`
	TargetWords    int      `json:"target_words"`
	Refs           []int    `json:"refs"`
	ConnectionType string   `json:"connection_type"`
	Bridge         string   `json:"bridge"`
}

type rawOutline struct {
	OpeningHook string       `json:"opening_hook"`
	Segments    []rawSegment `json:"segments"`
}

var validConnections = map[string]model.ConnectionType{
	"cause-effect":    model.ConnectionCauseEffect,
	"common-theme":    model.ConnectionCommonTheme,
	"contrast":        model.ConnectionContrast,
	"timeline":        model.ConnectionTimeline,
	"industry-impact": model.ConnectionIndustryImpact,
}

// Generate sorts picks by topic weight then score, prompts the model for an
// opening hook plus 2-4 thematic segments, and remaps the model's
// list-position refs into stable story ids.
func Generate(ctx context.Context, provider llm.Provider, modelName string, in Input) (model.Outline, error) {
	sorted := sortedPicks(in.Picks, in.Topics, in.RecentlyCoveredURLs)
	targetWords := int(float64(in.TargetDurationSec) * 2.5)

	prompt := buildPrompt(sorted, targetWords, in)
	resp, err := provider.Chat(ctx, llm.Request{
		Model:    modelName,
		JSONMode: true,
		Messages: []llm.Message{
			{Role: "system", Content: "You are a podcast outline producer. Respond with a single JSON object only."},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return model.Outline{}, fmt.Errorf("outline: llm call: %w", err)
	}

	var raw rawOutline
	if err := json.Unmarshal([]byte(resp), &raw); err != nil {
		return model.Outline{}, fmt.Errorf("outline: parse response: %w", err)
	}

	result := model.Outline{OpeningHook: strings.TrimSpace(raw.OpeningHook)}
	result.Sections = append(result.Sections, model.OutlineSection{Kind: model.SectionIntro, Title: "Intro", TargetWords: targetWords / 10})

	referenced := make(map[string]bool)
	for _, seg := range raw.Segments {
		var ids []string
		for _, idx := range seg.Refs {
			if idx < 0 || idx >= len(sorted) {
				continue // defensively filter invalid indices
			}
			id := sorted[idx].Story.ID
			ids = append(ids, id)
			referenced[id] = true
		}
		if len(ids) == 0 {
			continue
		}
		conn := validConnections[strings.ToLower(seg.ConnectionType)]
		result.Sections = append(result.Sections, model.OutlineSection{
			Kind:           model.SectionSegment,
			Title:          strings.TrimSpace(seg.Title),
			TargetWords:    seg.TargetWords,
			StoryRefs:      ids,
			ConnectionType: conn,
			Bridge:         strings.TrimSpace(seg.Bridge),
		})
	}
	result.Sections = append(result.Sections, model.OutlineSection{Kind: model.SectionOutro, Title: "Outro", TargetWords: targetWords / 10})

	return result, nil
}

// sortedPicks orders picks by topic weight (descending), then by whether
// the listener memory hook has already covered the story, then by score
// (descending) within a topic, per spec §4.7. Topic rank comes from
// config.SortedByWeight so ties between equal-weight topics resolve by the
// dashboard's own topic ordering rather than an arbitrary float comparison.
// Recently-covered stories are deprioritized, not excluded, so a slow news
// day can still fall back to them.
func sortedPicks(picks []model.Pick, topics []config.TopicConfig, recentlyCoveredURLs []string) []model.Pick {
	rankOf := make(map[string]int, len(topics))
	for i, t := range config.SortedByWeight(topics) {
		rankOf[strings.ToLower(t.Label)] = i
	}
	topicRank := func(topic string) int {
		if r, ok := rankOf[strings.ToLower(topic)]; ok {
			return r
		}
		return len(rankOf) // unknown topics sort last
	}

	covered := make(map[string]bool, len(recentlyCoveredURLs))
	for _, url := range recentlyCoveredURLs {
		covered[url] = true
	}

	out := make([]model.Pick, len(picks))
	copy(out, picks)
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := topicRank(out[i].Topic), topicRank(out[j].Topic)
		if ri != rj {
			return ri < rj
		}
		ci, cj := covered[out[i].Story.URL], covered[out[j].Story.URL]
		if ci != cj {
			return !ci
		}
		return out[i].Score > out[j].Score
	})
	return out
}

func buildPrompt(sorted []model.Pick, targetWords int, in Input) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Target word count: %d. Style: %s.\n", targetWords, in.Style)
	fmt.Fprintf(&b, "Pause budget: short=%dms, long=%dms. Produce 2-4 thematic segments plus an opening_hook.\n", in.PauseShortMs, in.PauseLongMs)
	b.WriteString("Stories (index: title | topic | source | summary):\n")
	for i, p := range sorted {
		fmt.Fprintf(&b, "%d: %s | %s | %s | %s\n", i, p.Story.Title, p.Story.Topic, p.Story.Source, truncate(p.Story.Summary, 240))
	}
	b.WriteString("\nRespond as JSON: {\"opening_hook\": string, \"segments\": [{\"title\": string, \"target_words\": int, \"refs\": [int], \"connection_type\": string, \"bridge\": string}]}")
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Package script drives the single batched LLM call that turns an Outline
// and its referenced Stories into narratable sections with inline
// citations (spec §4.8).
package script

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/rohitmangal/daily-news-podcast/internal/llm"
	"github.com/rohitmangal/daily-news-podcast/internal/model"
)

// Input parameterizes one script generation call.
type Input struct {
	Outline model.Outline
	Picks   []model.Pick // indexed by story id, used to resolve section refs
}

type rawSection struct {
	Type               string `json:"type"`
	Text               string `json:"text"`
	DurationEstimateSec float64 `json:"duration_estimate_sec,omitempty"`
	WordCount          int    `json:"word_count,omitempty"`
}

type rawScript struct {
	Sections []rawSection `json:"sections"`
}

var citationRe = regexp.MustCompile(`\[(\d+)\]`)

// Generate builds the sources list from the outline's referenced stories,
// prompts for a single JSON object of narratable sections, and extracts
// inline citation numbers from each section's text.
func Generate(ctx context.Context, provider llm.Provider, modelName string, in Input) (model.Script, error) {
	storyByID := make(map[string]model.Story, len(in.Picks))
	for _, p := range in.Picks {
		storyByID[p.Story.ID] = p.Story
	}

	sources := buildSources(in.Outline, storyByID)
	prompt := buildPrompt(in.Outline, storyByID, sources)

	resp, err := provider.Chat(ctx, llm.Request{
		Model:    modelName,
		JSONMode: true,
		Messages: []llm.Message{
			{Role: "system", Content: "You are a podcast scriptwriter. Cite sources inline as [n]. Respond with a single JSON object only."},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return model.Script{}, fmt.Errorf("script: llm call: %w", err)
	}

	var raw rawScript
	if err := json.Unmarshal([]byte(resp), &raw); err != nil {
		return model.Script{}, fmt.Errorf("script: parse response: %w", err)
	}

	var sections []model.ScriptSection
	var allText []string
	for _, rs := range raw.Sections {
		text := strings.TrimSpace(rs.Text)
		sections = append(sections, model.ScriptSection{
			Kind:      model.SectionKind(rs.Type),
			Text:      text,
			Citations: extractCitations(text, len(sources)),
		})
		allText = append(allText, text)
	}

	return model.Script{
		Sections:  sections,
		Sources:   sources,
		WordCount: countWords(strings.Join(allText, " ")),
	}, nil
}

func buildSources(outline model.Outline, storyByID map[string]model.Story) []model.SourceRef {
	var ids []string
	seen := make(map[string]bool)
	for _, sec := range outline.Sections {
		for _, id := range sec.StoryRefs {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	sort.Strings(ids) // deterministic ordering given identical inputs (spec §4 ordering guarantee)

	sources := make([]model.SourceRef, 0, len(ids))
	for i, id := range ids {
		story := storyByID[id]
		sources = append(sources, model.SourceRef{Number: i + 1, Title: story.Title, URL: story.URL})
	}
	return sources
}

func buildPrompt(outline model.Outline, storyByID map[string]model.Story, sources []model.SourceRef) string {
	numberByID := make(map[string]int, len(sources))
	for _, src := range sources {
		for id, story := range storyByID {
			if story.URL == src.URL {
				numberByID[id] = src.Number
			}
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Opening hook: %s\n\n", outline.OpeningHook)
	for _, sec := range outline.Sections {
		fmt.Fprintf(&b, "Section [%s] %q (target %d words):\n", sec.Kind, sec.Title, sec.TargetWords)
		if sec.Bridge != "" {
			fmt.Fprintf(&b, "  bridge: %s\n", sec.Bridge)
		}
		for _, id := range sec.StoryRefs {
			story := storyByID[id]
			fmt.Fprintf(&b, "  - [%d] %s | %s | %s: %s\n", numberByID[id], story.Title, story.Topic, story.Source, truncate(story.Summary, 300))
		}
	}
	b.WriteString("\nSources:\n")
	for _, src := range sources {
		fmt.Fprintf(&b, "[%d] %s (%s)\n", src.Number, src.Title, src.URL)
	}
	b.WriteString("\nRespond as JSON: {\"sections\": [{\"type\": string, \"text\": string, \"duration_estimate_sec\": number, \"word_count\": int}]}")
	return b.String()
}

// extractCitations pulls [n] markers out of text, dropping duplicates and
// anything outside [1, sourceCount] — the model sometimes cites a source
// number that doesn't exist, and Testable Property #6 requires the
// extracted set stay a subset of {1..sources.length}.
func extractCitations(text string, sourceCount int) []int {
	matches := citationRe.FindAllStringSubmatch(text, -1)
	seen := make(map[int]bool)
	var out []int
	for _, m := range matches {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if n < 1 || n > sourceCount {
			continue
		}
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}

func countWords(s string) int {
	return len(strings.Fields(s))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Package factcheck drives the two batched LLM passes that revise script
// section text for factual accuracy and safety (spec §4.9).
package factcheck

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rohitmangal/daily-news-podcast/internal/llm"
	"github.com/rohitmangal/daily-news-podcast/internal/model"
)

// RiskLevel is the aggregated safety risk for a run.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

var riskRank = map[RiskLevel]int{RiskLow: 0, RiskMedium: 1, RiskHigh: 2}

type rawVerdict struct {
	RevisedText *string  `json:"revised_text"`
	Edits       []string `json:"edits"`
	Changes     []string `json:"changes"`
	Flags       []string `json:"flags"`
	RiskLevel   string   `json:"risk_level"`
}

type rawBatch struct {
	Sections []rawVerdict `json:"sections"`
}

// Result is the outcome of one pass (fact-check or safety) over a script.
type Result struct {
	Script    model.Script
	Edits     []string
	RiskLevel RiskLevel // empty for the fact-check pass, set for safety
}

// RunFactCheck sends every non-intro/outro section in one batched call and
// replaces section text wherever the model returns a non-null revision.
func RunFactCheck(ctx context.Context, provider llm.Provider, modelName string, script model.Script) (Result, error) {
	return runPass(ctx, provider, modelName, script, factCheckSystemPrompt, false)
}

// RunSafety sends every non-intro/outro section in one batched call,
// applying revisions the same way, and aggregates the returned risk levels
// as max over {low, medium, high}.
func RunSafety(ctx context.Context, provider llm.Provider, modelName string, script model.Script) (Result, error) {
	return runPass(ctx, provider, modelName, script, safetySystemPrompt, true)
}

const factCheckSystemPrompt = "You are a fact-checking editor. For each numbered section, verify claims against the provided sources and return a revision only if a factual error is found. Respond with a single JSON object only."
const safetySystemPrompt = "You are a safety/sensitivity editor. For each numbered section, flag and revise any unsafe, defamatory, or unverifiable claims, and return a risk_level of low, medium, or high. Respond with a single JSON object only."

func runPass(ctx context.Context, provider llm.Provider, modelName string, script model.Script, systemPrompt string, wantRisk bool) (Result, error) {
	editableIdx := editableSectionIndices(script)
	if len(editableIdx) == 0 {
		res := Result{Script: script}
		if wantRisk {
			res.RiskLevel = RiskLow
		}
		return res, nil
	}

	prompt := buildPrompt(script, editableIdx)
	resp, err := provider.Chat(ctx, llm.Request{
		Model:    modelName,
		JSONMode: true,
		Messages: []llm.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return Result{}, fmt.Errorf("factcheck: llm call: %w", err)
	}

	var raw rawBatch
	if err := json.Unmarshal([]byte(resp), &raw); err != nil {
		return Result{}, fmt.Errorf("factcheck: parse response: %w", err)
	}

	out := script
	out.Sections = append([]model.ScriptSection(nil), script.Sections...)
	var edits []string
	risk := RiskLow

	for i, secIdx := range editableIdx {
		if i >= len(raw.Sections) {
			break
		}
		verdict := raw.Sections[i]
		if verdict.RevisedText != nil && strings.TrimSpace(*verdict.RevisedText) != "" {
			out.Sections[secIdx].Text = strings.TrimSpace(*verdict.RevisedText)
			edits = append(edits, verdict.Edits...)
			edits = append(edits, verdict.Changes...)
		}
		if wantRisk {
			level := RiskLevel(strings.ToLower(verdict.RiskLevel))
			if riskRank[level] > riskRank[risk] {
				risk = level
			}
		}
	}

	result := Result{Script: out, Edits: edits}
	if wantRisk {
		result.RiskLevel = risk
	}
	return result, nil
}

// editableSectionIndices returns the indices of sections eligible for
// fact-check/safety review — intro and outro sections are skipped.
func editableSectionIndices(script model.Script) []int {
	var idx []int
	for i, sec := range script.Sections {
		if sec.Kind == model.SectionIntro || sec.Kind == model.SectionOutro {
			continue
		}
		idx = append(idx, i)
	}
	return idx
}

func buildPrompt(script model.Script, editableIdx []int) string {
	var b strings.Builder
	b.WriteString("Sources:\n")
	for _, src := range script.Sources {
		fmt.Fprintf(&b, "[%d] %s (%s)\n", src.Number, src.Title, src.URL)
	}
	b.WriteString("\nSections:\n")
	for i, secIdx := range editableIdx {
		fmt.Fprintf(&b, "%d: %s\n", i, script.Sections[secIdx].Text)
	}
	b.WriteString("\nRespond as JSON: {\"sections\": [{\"revised_text\": string|null, \"edits\": [string], \"risk_level\": \"low\"|\"medium\"|\"high\"}]} with one entry per input section in order.")
	return b.String()
}

// MaxRisk returns the higher of two risk levels.
func MaxRisk(a, b RiskLevel) RiskLevel {
	if riskRank[b] > riskRank[a] {
		return b
	}
	return a
}

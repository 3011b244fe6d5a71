// Package ttsplan turns a finished Script into a SynthesisPlan: voice
// assignment, tone-driven pacing, stage-direction stripping, and
// sentence-boundary chunking (spec §4.10).
package ttsplan

import (
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/rohitmangal/daily-news-podcast/internal/model"
)

// voice map is fixed; identifiers are opaque strings passed to the TTS
// provider (spec §4.10).
const (
	voiceHost    = "shimmer"
	voiceAnalyst = "echo"
	voiceStinger = "fable"
)

const maxUnitChars = 4000

var (
	parenRe     = regexp.MustCompile(`\([^)]*\)`)
	beatRe      = regexp.MustCompile(`\[beat \d+ms\]`)
	pauseRe     = regexp.MustCompile(`\[pause\]`)
	whitespaceRe = regexp.MustCompile(`\s+`)
	sentenceRe  = regexp.MustCompile(`[^.!?]+[.!?]+`)
)

var excitingWords = []string{"surge", "soar", "breakthrough", "record", "skyrocket", "explosive"}
var seriousWords = []string{"crisis", "death", "warning", "collapse", "investigation", "lawsuit"}
var positiveWords = []string{"win", "growth", "celebrate", "success", "milestone", "recovery"}

// EmptyPlanError is returned when no synthesis units could be produced —
// a fatal condition that short-circuits before synthesis (spec §4.10).
type EmptyPlanError struct{}

func (EmptyPlanError) Error() string { return "ttsplan: empty synthesis plan" }

// Build converts every script section into one or more SynthesisUnits.
func Build(script model.Script) (model.SynthesisPlan, error) {
	var units []model.SynthesisUnit

	for _, sec := range script.Sections {
		role := roleFor(sec.Kind)
		voice := voiceFor(role)
		speed := speedFor(sec.Text)
		cleaned := clean(sec.Text)
		if cleaned == "" {
			continue
		}
		for _, chunk := range chunk(cleaned) {
			units = append(units, model.SynthesisUnit{
				ID:                uuid.NewString(),
				Role:              role,
				Voice:             voice,
				Text:              chunk,
				Speed:             speed,
				ExpectedDurationS: estimateDurationSec(chunk),
			})
		}
	}

	if len(units) == 0 {
		return model.SynthesisPlan{}, EmptyPlanError{}
	}
	return model.SynthesisPlan{Units: units}, nil
}

// roleFor selects the speaking role by section kind (spec §4.10): intro,
// outro, cold-open, and sign-off map to host; deep-dive maps to analyst;
// everything else defaults to host.
func roleFor(kind model.SectionKind) model.SynthesisRole {
	switch strings.ToLower(string(kind)) {
	case "deep-dive":
		return model.RoleAnalyst
	default:
		return model.RoleHost
	}
}

func voiceFor(role model.SynthesisRole) string {
	switch role {
	case model.RoleAnalyst:
		return voiceAnalyst
	case model.RoleStinger:
		return voiceStinger
	default:
		return voiceHost
	}
}

// speedFor detects tone from keywords and maps it to one of the five fixed
// speed values (spec §4.10).
func speedFor(text string) float64 {
	lower := strings.ToLower(text)
	switch {
	case containsAny(lower, excitingWords):
		return 1.00
	case containsAny(lower, seriousWords):
		return 0.90
	case containsAny(lower, positiveWords):
		return 0.97
	case strings.Contains(text, "!"):
		return 0.93
	default:
		return 0.95
	}
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// clean strips parenthetical stage directions, maps beat/pause markers to
// ellipses, and collapses whitespace.
func clean(text string) string {
	out := parenRe.ReplaceAllString(text, "")
	out = beatRe.ReplaceAllString(out, "...")
	out = pauseRe.ReplaceAllString(out, "...")
	out = whitespaceRe.ReplaceAllString(out, " ")
	return strings.TrimSpace(out)
}

// chunk splits text at sentence boundaries, packing greedily up to
// maxUnitChars per unit; text already within the limit is returned as a
// single unit.
func chunk(text string) []string {
	if len(text) <= maxUnitChars {
		return []string{text}
	}

	sentences := sentenceRe.FindAllString(text, -1)
	if len(sentences) == 0 {
		return []string{text}
	}

	var out []string
	var current strings.Builder
	for _, s := range sentences {
		s = strings.TrimSpace(s)
		if current.Len() > 0 && current.Len()+len(s)+1 > maxUnitChars {
			out = append(out, strings.TrimSpace(current.String()))
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(s)
	}
	if current.Len() > 0 {
		out = append(out, strings.TrimSpace(current.String()))
	}
	return out
}

// estimateDurationSec is a rough words-per-minute estimate used only to
// seed expected_duration_sec before real synthesis measures actual length.
func estimateDurationSec(text string) float64 {
	words := len(strings.Fields(text))
	return float64(words) / (150.0 / 60.0)
}

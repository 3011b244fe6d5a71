// Package model holds the data types shared across every pipeline stage:
// the candidate Story, the selected Pick, the Outline/Script/SynthesisPlan
// intermediate artifacts, and the per-run manifest and summary records.
package model

import "time"

// Story is a candidate article surfaced by ingestion.
type Story struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Source      string    `json:"source"`
	Domain      string    `json:"domain"`
	PublishedAt time.Time `json:"published_at"`
	Summary     string    `json:"summary,omitempty"`
	ScrapedText string    `json:"scraped_text,omitempty"`
	Topic       string    `json:"topic"`
	Tier        int       `json:"tier"`
}

// Pick is a Story chosen by ranking, with its topic assignment and score.
type Pick struct {
	Story     Story   `json:"story"`
	Topic     string  `json:"topic"`
	Score     float64 `json:"score"`
	Rationale string  `json:"rationale"`
}

// ConnectionType describes how a segment's stories relate to one another.
type ConnectionType string

const (
	ConnectionCauseEffect   ConnectionType = "cause-effect"
	ConnectionCommonTheme   ConnectionType = "common-theme"
	ConnectionContrast      ConnectionType = "contrast"
	ConnectionTimeline      ConnectionType = "timeline"
	ConnectionIndustryImpact ConnectionType = "industry-impact"
)

// SectionKind tags an Outline/Script section's role in the show.
type SectionKind string

const (
	SectionIntro   SectionKind = "intro"
	SectionSegment SectionKind = "segment"
	SectionOutro   SectionKind = "outro"
)

// OutlineSection is one planned segment of the show.
type OutlineSection struct {
	Kind           SectionKind    `json:"kind"`
	Title          string         `json:"title"`
	TargetWords    int            `json:"target_words"`
	StoryRefs      []string       `json:"story_refs"` // Story IDs
	ConnectionType ConnectionType `json:"connection_type,omitempty"`
	Bridge         string         `json:"bridge,omitempty"`
}

// Outline is the thematic structure produced by the outline stage.
type Outline struct {
	OpeningHook string           `json:"opening_hook"`
	Sections    []OutlineSection `json:"sections"`
}

// ScriptSection is one narratable block of final text.
type ScriptSection struct {
	Kind      SectionKind `json:"kind"`
	Text      string      `json:"text"`
	Citations []int       `json:"citations,omitempty"`
}

// SourceRef is one numbered citation target in the Script's sources list.
type SourceRef struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	URL    string `json:"url"`
}

// Script is the full narratable text plus its citation sources.
type Script struct {
	Sections  []ScriptSection `json:"sections"`
	Sources   []SourceRef     `json:"sources"`
	WordCount int             `json:"word_count"`
}

// SynthesisRole selects the voice a synthesis unit is read in.
type SynthesisRole string

const (
	RoleHost    SynthesisRole = "host"
	RoleAnalyst SynthesisRole = "analyst"
	RoleStinger SynthesisRole = "stinger"
)

// SynthesisUnit is one voice+text chunk ready for TTS.
type SynthesisUnit struct {
	ID                string        `json:"id"`
	Role              SynthesisRole `json:"role"`
	Voice             string        `json:"voice"`
	Text              string        `json:"text"`
	Speed             float64       `json:"speed"`
	ExpectedDurationS float64       `json:"expected_duration_sec"`
}

// SynthesisPlan is the ordered set of units audio assembly will synthesize.
type SynthesisPlan struct {
	Units []SynthesisUnit `json:"units"`
}

// StageTiming records how long one pipeline stage took.
type StageTiming struct {
	Stage      string `json:"stage"`
	DurationMs int64  `json:"duration_ms"`
}

// PipelineReport aggregates per-stage summaries attached to the manifest.
type PipelineReport struct {
	IngestionSourcesScanned int              `json:"ingestion_sources_scanned"`
	IngestionItemsTotal     int              `json:"ingestion_items_total"`
	IngestionAccepted       int              `json:"ingestion_accepted"`
	TopicBreakdown          map[string]int   `json:"topic_breakdown"`
	RankingTopPicks         []string         `json:"ranking_top_picks"` // Story titles
	OutlineSections         int              `json:"outline_sections"`
	ScriptWordCount         int              `json:"script_word_count"`
	FactCheckEdits          int              `json:"fact_check_edits"`
	SafetyEdits             int              `json:"safety_edits"`
	SafetyRiskLevel         string           `json:"safety_risk_level"`
	Timings                 []StageTiming    `json:"timings"`
}

// EpisodeManifest is the durable per-run record binding picks, content
// hashes, and publication metadata.
type EpisodeManifest struct {
	Date          string         `json:"date"`
	RunID         string         `json:"run_id"`
	Picks         []Pick         `json:"picks"`
	OutlineHash   string         `json:"outline_hash"`
	ScriptHash    string         `json:"script_hash"`
	AudioHash     string         `json:"audio_hash"`
	MP3URL        string         `json:"mp3_url"`
	DurationSec   float64        `json:"duration_sec"`
	WordCount     int            `json:"word_count"`
	PipelineReport PipelineReport `json:"pipeline_report"`
	CreatedAt     time.Time      `json:"created_at"`
}

// RunStatus is the lifecycle state of one orchestrator run.
type RunStatus string

const (
	RunStatusRunning RunStatus = "running"
	RunStatusSuccess RunStatus = "success"
	RunStatusFailed  RunStatus = "failed"
)

// RunSummary is one entry in the RunsIndex.
type RunSummary struct {
	RunID        string     `json:"run_id"`
	Date         string     `json:"date"`
	Status       RunStatus  `json:"status"`
	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	DurationMs   *int64     `json:"duration_ms,omitempty"`
	StoriesCount *int       `json:"stories_count,omitempty"`
	EpisodeURL   string     `json:"episode_url,omitempty"`
	Error        string     `json:"error,omitempty"`
}

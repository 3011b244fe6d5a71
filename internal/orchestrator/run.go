// Package orchestrator implements the run state machine that sequences
// every stage from ingestion through publication (spec §4.13).
package orchestrator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rohitmangal/daily-news-podcast/internal/agent"
	"github.com/rohitmangal/daily-news-podcast/internal/audio"
	"github.com/rohitmangal/daily-news-podcast/internal/config"
	"github.com/rohitmangal/daily-news-podcast/internal/errs"
	"github.com/rohitmangal/daily-news-podcast/internal/factcheck"
	"github.com/rohitmangal/daily-news-podcast/internal/ingestion"
	"github.com/rohitmangal/daily-news-podcast/internal/llm"
	"github.com/rohitmangal/daily-news-podcast/internal/model"
	"github.com/rohitmangal/daily-news-podcast/internal/objectstore"
	"github.com/rohitmangal/daily-news-podcast/internal/observability"
	"github.com/rohitmangal/daily-news-podcast/internal/outline"
	"github.com/rohitmangal/daily-news-podcast/internal/progress"
	"github.com/rohitmangal/daily-news-podcast/internal/publish"
	"github.com/rohitmangal/daily-news-podcast/internal/ranking"
	"github.com/rohitmangal/daily-news-podcast/internal/runs"
	"github.com/rohitmangal/daily-news-podcast/internal/script"
	"github.com/rohitmangal/daily-news-podcast/internal/ttsplan"
)

// Request parameterizes one orchestrator invocation (spec §6 POST /run body).
type Request struct {
	Date           string
	ForceOverwrite bool
	WindowHours    int
}

// AlreadyRunningError is returned when the process-singleton guard is held.
type AlreadyRunningError struct{}

func (AlreadyRunningError) Error() string { return "orchestrator: a run is already active" }

// Orchestrator wires every stage dependency and drives the run state
// machine end to end.
type Orchestrator struct {
	Store       objectstore.ObjectStore
	ConfigStore *config.Store
	RunsIndex   *runs.Index
	Progress    *progress.Tracker
	Runtime     *agent.Runtime

	LLMProvider llm.Provider
	Embedder    ranking.Embedder
	Fetcher     ingestion.Fetcher
	Scraper     *ingestion.Scraper
	Synth       audio.Synthesizer
	Events      *EventPublisher

	// Dedupe is an optional cross-instance lock supplementing the
	// date-level idempotency check when multiple orchestrator processes
	// share one object store (spec §5's "cross-instance" guarantee leans
	// on object-store existence alone; this narrows the race window
	// between two processes both observing a missing mp3Key).
	Dedupe DedupeStore

	Cfg config.Config

	lastPhase string
}

const dedupeLockTTL = 10 * time.Minute

// acquireDateLock returns false if another instance already holds the lock
// for date. A nil Dedupe makes this a no-op that always succeeds.
func (o *Orchestrator) acquireDateLock(ctx context.Context, date, runID string) (bool, error) {
	if o.Dedupe == nil {
		return true, nil
	}
	held, err := o.Dedupe.Get(ctx, "lock:"+date)
	if err != nil {
		return false, err
	}
	if held != "" && held != runID {
		return false, nil
	}
	if err := o.Dedupe.Set(ctx, "lock:"+date, runID, dedupeLockTTL); err != nil {
		return false, err
	}
	return true, nil
}

// Run drives BUILD_CONFIG -> IDEMPOTENCY_CHECK -> the sequential stage
// chain -> PUBLISH -> MEMORY -> DONE, exactly as spec §4.13 describes. Any
// stage failure transitions to FAILED and records a failed RunSummary.
func (o *Orchestrator) Run(ctx context.Context, req Request) (model.EpisodeManifest, error) {
	runID := uuid.NewString()
	startedAt := time.Now().UTC()

	if !o.RunsIndex.StartRun(runID) {
		return model.EpisodeManifest{}, AlreadyRunningError{}
	}

	logger := observability.LoggerWithTrace(ctx)
	o.Progress.AddUpdate(runID, "Starting", progress.StatusRunning, "run started", nil)

	manifest, err := o.run(ctx, runID, req, startedAt)
	if err != nil {
		o.Progress.AddUpdate(runID, o.lastPhase, progress.StatusFailed, err.Error(), nil)
		date := req.Date
		if date == "" {
			date = resolveDate(req.Date, o.Cfg.Timezone)
		}
		if failErr := o.RunsIndex.FailRun(ctx, runID, date, startedAt, err); failErr != nil {
			logger.Warn().Err(failErr).Msg("orchestrator: failed to record failed run")
		}
		return model.EpisodeManifest{}, err
	}

	o.Progress.AddUpdate(runID, "Complete", progress.StatusCompleted, "run completed", nil)
	if err := o.RunsIndex.CompleteRun(ctx, runID, manifest, startedAt); err != nil {
		logger.Warn().Err(err).Msg("orchestrator: failed to record completed run")
	}
	return manifest, nil
}

func (o *Orchestrator) run(ctx context.Context, runID string, req Request, startedAt time.Time) (model.EpisodeManifest, error) {
	logger := observability.LoggerWithTrace(ctx)
	report := model.PipelineReport{TopicBreakdown: make(map[string]int)}

	// BUILD_CONFIG
	o.phase("BuildConfig")
	dash, err := o.ConfigStore.Load(ctx)
	if err != nil {
		return model.EpisodeManifest{}, fmt.Errorf("build_config: %w", err)
	}
	date := resolveDate(req.Date, dash.Timezone)
	windowHours := req.WindowHours
	if windowHours == 0 {
		windowHours = dash.WindowHours
	}
	targetDurationSec := dash.TargetDurationSec
	if targetDurationSec == 0 {
		targetDurationSec = o.Cfg.TargetDurationSec
	}
	enabledTopics := dash.EnabledTopics()
	if len(enabledTopics) == 0 {
		return model.EpisodeManifest{}, errs.New("build_config", errs.KindValidationError, "no enabled topics in dashboard config", nil)
	}
	topicWeights := make(map[string]float64, len(enabledTopics))
	var topicConfigs []config.TopicConfig
	for _, t := range enabledTopics {
		topicWeights[strings.ToLower(t.Label)] = t.Weight
		topicConfigs = append(topicConfigs, t)
	}

	// IDEMPOTENCY_CHECK
	o.phase("IdempotencyCheck")
	mp3Key := fmt.Sprintf("episodes/%s_daily_rohit_news.mp3", date)
	if !req.ForceOverwrite {
		exists, existsErr := o.Store.Exists(ctx, mp3Key)
		if existsErr == nil && exists {
			existing, loadErr := o.RunsIndex.GetManifestByDate(ctx, date)
			if loadErr == nil {
				logger.Info().Str("date", date).Msg("idempotency check: returning existing episode")
				return existing, nil
			}
		}
		acquired, lockErr := o.acquireDateLock(ctx, date, runID)
		if lockErr != nil {
			logger.Warn().Err(lockErr).Msg("idempotency check: dedupe lock unavailable, continuing without it")
		} else if !acquired {
			return model.EpisodeManifest{}, fmt.Errorf("idempotency_check: another instance is already building %s", date)
		}
	}

	cutoff := time.Now().UTC().Add(-time.Duration(windowHours) * time.Hour)

	// INGEST
	o.phase("Ingestion")
	timings := []model.StageTiming{}
	t0 := time.Now()
	ingestOut, err := ingestion.Run(ctx, o.Fetcher, ingestion.Input{
		Topics:              topicConfigs,
		WindowHours:         windowHours,
		CutoffDate:          cutoff,
		MaxStoriesPerDomain: dash.MaxStoriesPerDomain,
		MinContentLength:    dash.MinContentLength,
	})
	timings = append(timings, model.StageTiming{Stage: "Ingestion", DurationMs: time.Since(t0).Milliseconds()})
	if err != nil {
		return model.EpisodeManifest{}, fmt.Errorf("ingestion: %w", err)
	}
	stories := ingestOut.Stories
	if o.Scraper != nil {
		stories = o.Scraper.EnrichThinSummaries(stories)
	}
	report.IngestionSourcesScanned = len(ingestOut.Report.Sources)
	report.IngestionItemsTotal = ingestOut.Report.TotalItems
	report.IngestionAccepted = len(stories)
	o.Progress.AddUpdate(runID, "Ingestion", progress.StatusRunning, fmt.Sprintf("%d stories accepted", len(stories)), ingestOut.Report)

	// RANK
	o.phase("Ranking")
	t0 = time.Now()
	targetCount := dash.Production.MaxStories
	if targetCount == 0 {
		targetCount = 8
	}
	rankOut, err := ranking.Run(ctx, o.Embedder, ranking.Input{
		Stories:      stories,
		TopicWeights: topicWeights,
		TargetCount:  targetCount,
	})
	timings = append(timings, model.StageTiming{Stage: "Ranking", DurationMs: time.Since(t0).Milliseconds()})
	if err != nil {
		return model.EpisodeManifest{}, fmt.Errorf("ranking: %w", err)
	}
	for topic := range rankOut.Report.TopicDistribution {
		report.TopicBreakdown[topic] = rankOut.Report.TopicDistribution[topic]
	}
	for _, p := range rankOut.Picks {
		report.RankingTopPicks = append(report.RankingTopPicks, p.Story.Title)
	}
	o.Progress.AddUpdate(runID, "Ranking", progress.StatusRunning, fmt.Sprintf("%d picks selected", len(rankOut.Picks)), rankOut.Report)

	// OUTLINE
	o.phase("Outline")
	t0 = time.Now()
	listenerProfile, profileErr := loadListenerProfile(ctx, o.Store)
	if profileErr != nil {
		logger.Warn().Err(profileErr).Msg("outline: listener profile unavailable, proceeding without recency bias")
	}
	outlineOut, err := agent.Execute(ctx, o.Runtime, "Outline", runID, outline.Input{
		Picks:               rankOut.Picks,
		Topics:              topicConfigs,
		RecentlyCoveredURLs: listenerProfile.RecentStoryURLs,
		TargetDurationSec: targetDurationSec,
		PauseShortMs:      dash.Production.PauseShortMs,
		PauseLongMs:       dash.Production.PauseLongMs,
		MinStories:        dash.Production.MinStories,
		MaxStories:        dash.Production.MaxStories,
		Style:             dash.Production.Style,
	}, agent.DefaultLLMRetryPolicy, func(cctx context.Context, in outline.Input, counter *agent.APICounter) (model.Outline, error) {
		counter.Inc()
		return outline.Generate(cctx, o.LLMProvider, o.Cfg.LLM.Model, in)
	})
	timings = append(timings, model.StageTiming{Stage: "Outline", DurationMs: time.Since(t0).Milliseconds()})
	if err != nil {
		return model.EpisodeManifest{}, fmt.Errorf("outline: %w", err)
	}
	report.OutlineSections = len(outlineOut.Sections)
	o.Progress.AddUpdate(runID, "Outline", progress.StatusRunning, fmt.Sprintf("%d sections", len(outlineOut.Sections)), nil)

	// SCRIPT
	o.phase("Scriptwriting")
	t0 = time.Now()
	scriptOut, err := agent.Execute(ctx, o.Runtime, "Script", runID, script.Input{
		Outline: outlineOut,
		Picks:   rankOut.Picks,
	}, agent.DefaultLLMRetryPolicy, func(cctx context.Context, in script.Input, counter *agent.APICounter) (model.Script, error) {
		counter.Inc()
		return script.Generate(cctx, o.LLMProvider, o.Cfg.LLM.Model, in)
	})
	timings = append(timings, model.StageTiming{Stage: "Scriptwriting", DurationMs: time.Since(t0).Milliseconds()})
	if err != nil {
		return model.EpisodeManifest{}, fmt.Errorf("script: %w", err)
	}
	report.ScriptWordCount = scriptOut.WordCount
	o.Progress.AddUpdate(runID, "Scriptwriting", progress.StatusRunning, fmt.Sprintf("%d words", scriptOut.WordCount), nil)

	// FACTCHECK
	o.phase("FactCheck")
	t0 = time.Now()
	factOut, err := agent.Execute(ctx, o.Runtime, "FactCheck", runID, scriptOut, agent.DefaultLLMRetryPolicy, func(cctx context.Context, in model.Script, counter *agent.APICounter) (factcheck.Result, error) {
		counter.Inc()
		return factcheck.RunFactCheck(cctx, o.LLMProvider, o.Cfg.LLM.Model, in)
	})
	timings = append(timings, model.StageTiming{Stage: "FactCheck", DurationMs: time.Since(t0).Milliseconds()})
	if err != nil {
		return model.EpisodeManifest{}, fmt.Errorf("factcheck: %w", err)
	}
	report.FactCheckEdits = len(factOut.Edits)
	o.Progress.AddUpdate(runID, "FactCheck", progress.StatusRunning, fmt.Sprintf("%d edits", len(factOut.Edits)), nil)

	// SAFETY
	o.phase("Safety")
	t0 = time.Now()
	safetyOut, err := agent.Execute(ctx, o.Runtime, "Safety", runID, factOut.Script, agent.DefaultLLMRetryPolicy, func(cctx context.Context, in model.Script, counter *agent.APICounter) (factcheck.Result, error) {
		counter.Inc()
		return factcheck.RunSafety(cctx, o.LLMProvider, o.Cfg.LLM.Model, in)
	})
	timings = append(timings, model.StageTiming{Stage: "Safety", DurationMs: time.Since(t0).Milliseconds()})
	if err != nil {
		return model.EpisodeManifest{}, fmt.Errorf("safety: %w", err)
	}
	report.SafetyEdits = len(safetyOut.Edits)
	report.SafetyRiskLevel = string(safetyOut.RiskLevel)
	if safetyOut.RiskLevel == factcheck.RiskHigh {
		logger.Warn().Str("run_id", runID).Msg("safety: high risk level, continuing without abort")
	}
	o.Progress.AddUpdate(runID, "Safety", progress.StatusRunning, fmt.Sprintf("risk level %s", safetyOut.RiskLevel), nil)

	finalScript := safetyOut.Script

	// TTS_PLAN
	o.phase("TTS")
	t0 = time.Now()
	plan, err := ttsplan.Build(finalScript)
	timings = append(timings, model.StageTiming{Stage: "TTS", DurationMs: time.Since(t0).Milliseconds()})
	if err != nil {
		return model.EpisodeManifest{}, fmt.Errorf("tts_plan: %w", err)
	}
	o.Progress.AddUpdate(runID, "TTS", progress.StatusRunning, fmt.Sprintf("%d synthesis units", len(plan.Units)), nil)

	// AUDIO
	o.phase("Audio")
	t0 = time.Now()
	assembly, err := agent.Execute(ctx, o.Runtime, "Audio", runID, plan, agent.DefaultHTTPRetryPolicy, func(cctx context.Context, in model.SynthesisPlan, counter *agent.APICounter) (audio.Assembly, error) {
		counter.Inc()
		return audio.Assemble(cctx, o.Synth, o.Store, in, dash.Production.IntroMusicKey, dash.Production.OutroMusicKey, dash.Production.EnableIntroOutro)
	})
	timings = append(timings, model.StageTiming{Stage: "Audio", DurationMs: time.Since(t0).Milliseconds()})
	if err != nil {
		return model.EpisodeManifest{}, fmt.Errorf("audio: %w", err)
	}
	o.Progress.AddUpdate(runID, "Audio", progress.StatusRunning, fmt.Sprintf("%.1fs audio assembled", assembly.DurationSec), nil)

	manifest := model.EpisodeManifest{
		Date:           date,
		RunID:          runID,
		Picks:          rankOut.Picks,
		OutlineHash:    hashJSON(outlineOut),
		ScriptHash:     hashJSON(finalScript),
		AudioHash:      hashBytes(assembly.MP3),
		DurationSec:    assembly.DurationSec,
		WordCount:      finalScript.WordCount,
		PipelineReport: report,
		CreatedAt:      time.Now().UTC(),
	}
	manifest.PipelineReport.Timings = timings

	// PUBLISH
	o.phase("Publishing")
	t0 = time.Now()
	pubOut, err := agent.Execute(ctx, o.Runtime, "Publish", runID, manifest, agent.DefaultHTTPRetryPolicy, func(cctx context.Context, in model.EpisodeManifest, counter *agent.APICounter) (publish.Output, error) {
		counter.Inc()
		return publish.Publish(cctx, o.Store, publish.Input{Manifest: in, MP3: assembly.MP3, Meta: o.Cfg.Podcast})
	})
	timings = append(timings, model.StageTiming{Stage: "Publishing", DurationMs: time.Since(t0).Milliseconds()})
	if err != nil {
		return model.EpisodeManifest{}, fmt.Errorf("publish: %w", err)
	}
	manifest.MP3URL = pubOut.MP3URL
	manifest.PipelineReport.Timings = timings

	// MEMORY (C14, best-effort)
	o.phase("Memory")
	UpdateListenerProfile(ctx, o.Store, manifest)

	// C15 event publisher (best-effort)
	o.Events.PublishEpisode(ctx, runID, manifest)

	return manifest, nil
}

func (o *Orchestrator) phase(name string) {
	o.lastPhase = name
}

// hashJSON returns the hex sha256 of v's JSON encoding, used for the
// manifest's content-hash fields so two runs over identical stage output
// are detectably identical without diffing full payloads.
func hashJSON(v any) string {
	buf, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return hashBytes(buf)
}

func hashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func resolveDate(requested, timezone string) string {
	if requested != "" {
		return requested
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.UTC
	}
	return time.Now().In(loc).Format("2006-01-02")
}


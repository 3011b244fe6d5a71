// Command podcastd serves the daily podcast orchestrator's HTTP surface
// (spec §6): triggering runs, inspecting progress and run history, serving
// the RSS feed and episode audio, and reading/writing the dashboard config.
package main

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rohitmangal/daily-news-podcast/internal/agent"
	"github.com/rohitmangal/daily-news-podcast/internal/audio"
	"github.com/rohitmangal/daily-news-podcast/internal/config"
	"github.com/rohitmangal/daily-news-podcast/internal/ingestion"
	"github.com/rohitmangal/daily-news-podcast/internal/llm/providers"
	"github.com/rohitmangal/daily-news-podcast/internal/objectstore"
	"github.com/rohitmangal/daily-news-podcast/internal/observability"
	"github.com/rohitmangal/daily-news-podcast/internal/orchestrator"
	"github.com/rohitmangal/daily-news-podcast/internal/progress"
	"github.com/rohitmangal/daily-news-podcast/internal/publish"
	"github.com/rohitmangal/daily-news-podcast/internal/ranking"
	"github.com/rohitmangal/daily-news-podcast/internal/runs"
)

func main() {
	observability.InitLogger("podcastd.log", "info")

	cfg := config.Load()

	shutdown, err := observability.InitTracing(context.Background(), "podcastd", "0.1.0", envOr("ENVIRONMENT", "development"))
	if err != nil {
		log.Warn().Err(err).Msg("tracing init failed, continuing without it")
	}
	if shutdown != nil {
		defer func() { _ = shutdown(context.Background()) }()
	}

	store, err := buildStore(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize object store")
	}

	llmProvider, err := providers.Build(context.Background(), cfg.LLM)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build llm provider")
	}

	var dedupe orchestrator.DedupeStore
	if cfg.Redis.Addr != "" {
		d, err := orchestrator.NewRedisDedupeStore(cfg.Redis.Addr)
		if err != nil {
			log.Warn().Err(err).Msg("redis dedupe store unavailable, falling back to process-local guard only")
		} else {
			dedupe = d
		}
	}

	orch := &orchestrator.Orchestrator{
		Store:       store,
		ConfigStore: config.NewStore(store, cfg.ConfigPath),
		RunsIndex:   runs.NewIndex(store),
		Progress:    progress.NewTracker(),
		Runtime:     agent.NewRuntime(store),
		LLMProvider: llmProvider,
		Embedder:    ranking.ConfigEmbedder{Cfg: cfg.Embedding},
		Fetcher:     ingestion.NewHTTPFetcher(),
		Scraper:     ingestion.NewScraper(),
		Synth:       audio.NewHTTPSynthesizer(cfg.TTS),
		Events:      orchestrator.NewEventPublisher(cfg.Kafka),
		Dedupe:      dedupe,
		Cfg:         cfg,
	}

	go sweepStaleProgress(orch.Progress)

	srv := &server{cfg: cfg, store: store, orch: orch}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", srv.handleHealth)
	mux.HandleFunc("POST /run", srv.withTrace(srv.requireCronSecret(srv.handleRun)))
	mux.HandleFunc("GET /runs", srv.withTrace(srv.handleListRuns))
	mux.HandleFunc("DELETE /runs/{id}", srv.withTrace(srv.requireBearer(srv.handleDeleteRun)))
	mux.HandleFunc("GET /progress", srv.withTrace(srv.handleProgress))
	mux.HandleFunc("GET /podcast/feed", srv.withTrace(srv.handleFeed))
	mux.HandleFunc("GET /podcast/episodes", srv.withTrace(srv.handleEpisode))
	mux.HandleFunc("GET /config", srv.withTrace(srv.handleGetConfig))
	mux.HandleFunc("PUT /config", srv.withTrace(srv.requireBearer(srv.handlePutConfig)))

	addr := envOr("LISTEN_ADDR", ":8090")
	log.Info().Str("addr", addr).Msg("podcastd listening")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal().Err(err).Msg("http server exited")
	}
}

// sweepStaleProgress periodically evicts progress entries for runs started
// over an hour ago (spec §4.4), so a long-running daemon's in-memory
// tracker doesn't grow unboundedly across days of runs.
func sweepStaleProgress(tracker *progress.Tracker) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		tracker.ClearOldRuns()
	}
}

func buildStore(ctx context.Context, cfg config.Config) (objectstore.ObjectStore, error) {
	if cfg.StorageBackend == "memory" {
		return objectstore.NewMemoryStore(), nil
	}
	return objectstore.NewS3Store(ctx, cfg.S3)
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

type server struct {
	cfg   config.Config
	store objectstore.ObjectStore
	orch  *orchestrator.Orchestrator
}

// withTrace wraps a handler with the same request-scoped logger every
// stage uses, so HTTP-layer logs carry the same trace correlation.
func (s *server) withTrace(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		logger := observability.LoggerWithTrace(r.Context())
		next(w, r)
		logger.Info().Str("method", r.Method).Str("path", r.URL.Path).Dur("elapsed", time.Since(start)).Msg("request handled")
	}
}

// requireBearer enforces the dashboard token on PUT /config and DELETE
// /runs/:id, the two mutating routes spec §6 calls out as authenticated.
func (s *server) requireBearer(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.DashboardToken == "" {
			next(w, r)
			return
		}
		got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.cfg.DashboardToken)) != 1 {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// requireCronSecret enforces the optional CRON_SECRET header on POST /run;
// spec §6 only requires this check in production, so an unset secret is a
// no-op.
func (s *server) requireCronSecret(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.CronSecret == "" {
			next(w, r)
			return
		}
		if subtle.ConstantTimeCompare([]byte(r.Header.Get("X-Cron-Secret")), []byte(s.cfg.CronSecret)) != 1 {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	health := map[string]any{
		"status":          "ok",
		"has_llm_key":     s.cfg.LLM.APIKey != "",
		"has_tts_key":     s.cfg.TTS.APIKey != "",
		"has_embed_key":   s.cfg.Embedding.APIKey != "",
		"storage_backend": s.cfg.StorageBackend,
	}
	if err := pingStore(ctx, s.store); err != nil {
		health["status"] = "degraded"
		health["object_store_error"] = err.Error()
	}
	listing, err := s.store.List(ctx, objectstore.ListOptions{Prefix: "episodes/", MaxKeys: 200})
	if err == nil {
		episodeCount := 0
		for _, obj := range listing.Objects {
			if strings.HasSuffix(obj.Key, "_manifest.json") {
				episodeCount++
			}
		}
		health["episode_count"] = episodeCount
	}
	writeJSON(w, http.StatusOK, health)
}

type pinger interface {
	Ping(ctx context.Context) error
}

func pingStore(ctx context.Context, store objectstore.ObjectStore) error {
	if p, ok := store.(pinger); ok {
		return p.Ping(ctx)
	}
	_, err := store.Exists(ctx, "health-check-probe")
	return err
}

func (s *server) handleRun(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Date           string `json:"date"`
		ForceOverwrite bool   `json:"force_overwrite"`
		WindowHours    int    `json:"window_hours"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}
	if body.Date == "" {
		body.Date = r.URL.Query().Get("date")
	}

	manifest, err := s.orch.Run(r.Context(), orchestrator.Request{
		Date:           body.Date,
		ForceOverwrite: body.ForceOverwrite,
		WindowHours:    body.WindowHours,
	})
	if err != nil {
		status := http.StatusInternalServerError
		var alreadyRunning orchestrator.AlreadyRunningError
		if errors.As(err, &alreadyRunning) {
			status = http.StatusConflict
		}
		writeJSON(w, status, map[string]any{"success": false, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "manifest": manifest})
}

func (s *server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if runID := r.URL.Query().Get("runId"); runID != "" {
		summary, ok := s.orch.RunsIndex.Get(r.Context(), runID)
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		manifest, _ := s.orch.RunsIndex.GetManifest(r.Context(), runID)
		writeJSON(w, http.StatusOK, map[string]any{"summary": summary, "manifest": manifest})
		return
	}

	page := atoiOr(r.URL.Query().Get("page"), 1)
	pageSize := atoiOr(r.URL.Query().Get("pageSize"), 20)
	writeJSON(w, http.StatusOK, s.orch.RunsIndex.List(r.Context(), page, pageSize))
}

func (s *server) handleDeleteRun(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.orch.RunsIndex.Delete(r.Context(), id); err != nil {
		if errors.Is(err, objectstore.ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleProgress(w http.ResponseWriter, r *http.Request) {
	runID := r.URL.Query().Get("runId")
	if runID == "" {
		http.Error(w, "runId is required", http.StatusBadRequest)
		return
	}
	p, ok := s.orch.Progress.Get(runID)
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *server) handleFeed(w http.ResponseWriter, r *http.Request) {
	rc, attrs, err := s.store.Get(r.Context(), "feed.xml")
	maxAge := "3600"
	if err != nil {
		if !errors.Is(err, objectstore.ErrNotFound) {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		// Nothing stored yet: rebuild feed.xml from the episode manifests
		// already in the object store; the RunsIndex is not consulted.
		if rebuildErr := publish.RebuildFeed(r.Context(), s.store, s.cfg.Podcast); rebuildErr != nil {
			http.Error(w, rebuildErr.Error(), http.StatusInternalServerError)
			return
		}
		rc, attrs, err = s.store.Get(r.Context(), "feed.xml")
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		maxAge = "300"
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age="+maxAge)
	w.Header().Set("Content-Length", strconv.FormatInt(attrs.Size, 10))
	_, _ = io.Copy(w, rc)
}

func (s *server) handleEpisode(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		http.Error(w, "date is required", http.StatusBadRequest)
		return
	}
	key := fmt.Sprintf("episodes/%s_daily_rohit_news.mp3", date)
	rc, attrs, err := s.store.Get(r.Context(), key)
	if err != nil {
		if errors.Is(err, objectstore.ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer rc.Close()

	// http.ServeContent needs an io.ReadSeeker for Range support; the
	// ObjectStore interface only returns a stream, so buffer it once.
	data, err := io.ReadAll(rc)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "audio/mpeg")
	http.ServeContent(w, r, key, attrs.LastModified, bytes.NewReader(data))
}

func (s *server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	dash, err := s.orch.ConfigStore.Load(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, dash)
}

func (s *server) handlePutConfig(w http.ResponseWriter, r *http.Request) {
	var dash config.DashboardConfig
	if err := json.NewDecoder(r.Body).Decode(&dash); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	updatedBy := r.Header.Get("X-User")
	if updatedBy == "" {
		updatedBy = "api"
	}
	saved, err := s.orch.ConfigStore.Save(r.Context(), dash, updatedBy)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func atoiOr(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

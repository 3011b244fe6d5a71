package orchestrator

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/rohitmangal/daily-news-podcast/internal/config"
	"github.com/rohitmangal/daily-news-podcast/internal/model"
	"github.com/rohitmangal/daily-news-podcast/internal/observability"
)

// EpisodePublishedEvent is the best-effort event emitted after a successful
// publish (spec SPEC_FULL.md C15).
type EpisodePublishedEvent struct {
	RunID       string  `json:"run_id"`
	Date        string  `json:"date"`
	MP3URL      string  `json:"mp3_url"`
	DurationSec float64 `json:"duration_sec"`
	PicksCount  int     `json:"picks_count"`
}

// EventPublisher emits episode.published events to Kafka. A nil/unconfigured
// publisher is a no-op so wiring it is always safe.
type EventPublisher struct {
	writer *kafka.Writer
	topic  string
}

// NewEventPublisher returns nil when cfg.Brokers is empty — callers should
// check for nil and skip publishing rather than branching on config
// themselves.
func NewEventPublisher(cfg config.KafkaConfig) *EventPublisher {
	if len(cfg.Brokers) == 0 || cfg.Topic == "" {
		return nil
	}
	return &EventPublisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(cfg.Brokers...),
			Topic:    cfg.Topic,
			Balancer: &kafka.LeastBytes{},
		},
		topic: cfg.Topic,
	}
}

// PublishEpisode sends one episode.published event. Failures are logged and
// swallowed — this path never fails the run.
func (p *EventPublisher) PublishEpisode(ctx context.Context, runID string, manifest model.EpisodeManifest) {
	if p == nil {
		return
	}
	logger := observability.LoggerWithTrace(ctx)

	event := EpisodePublishedEvent{
		RunID:       runID,
		Date:        manifest.Date,
		MP3URL:      manifest.MP3URL,
		DurationSec: manifest.DurationSec,
		PicksCount:  len(manifest.Picks),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		logger.Warn().Err(err).Msg("event publisher: marshal failed")
		return
	}

	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := p.writer.WriteMessages(cctx, kafka.Message{Key: []byte(manifest.Date), Value: payload}); err != nil {
		logger.Warn().Err(err).Msg("event publisher: write failed")
	}
}

// Close releases the underlying writer.
func (p *EventPublisher) Close() error {
	if p == nil {
		return nil
	}
	return p.writer.Close()
}

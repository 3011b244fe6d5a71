// Package audio synthesizes SynthesisUnits into mp3 bytes and assembles the
// final episode buffer (spec §4.11). Synthesis uses the same
// OpenAI-compatible /v1/audio/speech endpoint the teacher's TTS tool called,
// reduced to the single batched request shape this pipeline needs.
package audio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rohitmangal/daily-news-podcast/internal/config"
	"github.com/rohitmangal/daily-news-podcast/internal/model"
	"github.com/rohitmangal/daily-news-podcast/internal/objectstore"
	"github.com/rohitmangal/daily-news-podcast/internal/observability"
)

// Synthesizer turns one SynthesisUnit into mp3 bytes.
type Synthesizer interface {
	Synthesize(ctx context.Context, unit model.SynthesisUnit) ([]byte, error)
}

// HTTPSynthesizer calls an OpenAI-compatible /v1/audio/speech endpoint.
type HTTPSynthesizer struct {
	cfg    config.TTSConfig
	client *http.Client
}

func NewHTTPSynthesizer(cfg config.TTSConfig) *HTTPSynthesizer {
	return &HTTPSynthesizer{cfg: cfg, client: observability.NewHTTPClient(&http.Client{Timeout: 60 * time.Second})}
}

type speechRequest struct {
	Model string  `json:"model"`
	Voice string  `json:"voice"`
	Input string  `json:"input"`
	Speed float64 `json:"speed,omitempty"`
	Format string `json:"response_format,omitempty"`
}

// EmptyAudioError is returned when a synthesis call produced zero bytes — a
// fatal condition for the run (spec §4.11).
type EmptyAudioError struct{ UnitID string }

func (e EmptyAudioError) Error() string {
	return fmt.Sprintf("audio: empty synthesis result for unit %s", e.UnitID)
}

func (s *HTTPSynthesizer) Synthesize(ctx context.Context, unit model.SynthesisUnit) ([]byte, error) {
	body, err := json.Marshal(speechRequest{
		Model:  s.cfg.Model,
		Voice:  unit.Voice,
		Input:  unit.Text,
		Speed:  unit.Speed,
		Format: "mp3",
	})
	if err != nil {
		return nil, fmt.Errorf("audio: marshal request: %w", err)
	}

	base := strings.TrimRight(s.cfg.BaseURL, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/v1/audio/speech", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("audio: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("audio: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
		return nil, fmt.Errorf("audio: server error %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("audio: read response: %w", err)
	}
	if len(data) == 0 {
		return nil, EmptyAudioError{UnitID: unit.ID}
	}
	return data, nil
}

const bytesPerSecond = 16 * 1024 // 128kbps ≈ 16 KB/s

// ttsConcurrency and ttsBatchDelay implement spec §5's "default 2
// concurrent TTS calls with a 500ms inter-batch delay to respect provider
// rate limits."
const (
	ttsConcurrency = 2
	ttsBatchDelay  = 500 * time.Millisecond
)

// Assembly is the final synthesized episode.
type Assembly struct {
	MP3         []byte
	DurationSec float64
}

// Assemble synthesizes every unit in order, concatenates the resulting mp3
// byte buffers (naive byte-concat — the codec produces self-framed frames),
// optionally prepends/appends intro/outro music, and estimates duration.
func Assemble(ctx context.Context, synth Synthesizer, store objectstore.ObjectStore, plan model.SynthesisPlan, introKey, outroKey string, enableIntroOutro bool) (Assembly, error) {
	if len(plan.Units) == 0 {
		return Assembly{}, fmt.Errorf("audio: empty synthesis plan")
	}

	var buf bytes.Buffer

	if enableIntroOutro && introKey != "" {
		appendObjectOrSkip(ctx, store, introKey, &buf)
	}

	clips, err := synthesizeBatched(ctx, synth, plan.Units)
	if err != nil {
		return Assembly{}, err
	}
	for _, clip := range clips {
		buf.Write(clip)
	}

	if enableIntroOutro && outroKey != "" {
		appendObjectOrSkip(ctx, store, outroKey, &buf)
	}

	normalized := normalizeLoudness(buf.Bytes())
	return Assembly{
		MP3:         normalized,
		DurationSec: float64(len(normalized)) / bytesPerSecond,
	}, nil
}

// synthesizeBatched runs synth.Synthesize over units in fixed-size batches
// of ttsConcurrency, each batch fanned out via errgroup, waiting
// ttsBatchDelay between batches. Results are returned in unit order
// regardless of completion order within a batch.
func synthesizeBatched(ctx context.Context, synth Synthesizer, units []model.SynthesisUnit) ([][]byte, error) {
	clips := make([][]byte, len(units))

	for start := 0; start < len(units); start += ttsConcurrency {
		end := start + ttsConcurrency
		if end > len(units) {
			end = len(units)
		}

		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			i := i
			unit := units[i]
			g.Go(func() error {
				data, err := synth.Synthesize(gctx, unit)
				if err != nil {
					return fmt.Errorf("audio: synthesize unit %s: %w", unit.ID, err)
				}
				clips[i] = data
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		if end < len(units) {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(ttsBatchDelay):
			}
		}
	}

	return clips, nil
}

// appendObjectOrSkip fetches an intro/outro music file and appends it to
// buf; a fetch error is logged and the file is skipped, never failing the
// run (spec §4.11).
func appendObjectOrSkip(ctx context.Context, store objectstore.ObjectStore, key string, buf *bytes.Buffer) {
	r, _, err := store.Get(ctx, key)
	if err != nil {
		observability.LoggerWithTrace(ctx).Warn().Err(err).Str("key", key).Msg("audio: music file unavailable, skipping")
		return
	}
	defer r.Close()
	io.Copy(buf, r)
}

// normalizeLoudness is a placeholder loudness-normalize pass; identity is
// acceptable per spec §4.11 until a real normalizer is wired in.
func normalizeLoudness(data []byte) []byte {
	return data
}

// Package agent implements the common envelope every pipeline stage runs
// under: typed input/output, retry with exponential backoff, timing, error
// capture, and artifact persistence (spec §4.1).
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rohitmangal/daily-news-podcast/internal/errs"
	"github.com/rohitmangal/daily-news-podcast/internal/objectstore"
)

// Envelope wraps one stage's execution for persistence and reporting.
type Envelope[I, O any] struct {
	Agent        string    `json:"agent"`
	RunID        string    `json:"run_id"`
	Timestamp    time.Time `json:"timestamp"`
	Input        I         `json:"input"`
	Output       O         `json:"output,omitempty"`
	Errors       []string  `json:"errors,omitempty"`
	ArtifactRefs []string  `json:"artifact_refs,omitempty"`
	DurationMs   int64     `json:"duration_ms"`
	APICalls     int       `json:"api_calls"`
}

// Process is the single operation every stage implements.
type Process[I, O any] func(ctx context.Context, input I, counter *APICounter) (O, error)

// RetryPolicy controls execute's backoff loop.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultLLMRetryPolicy matches spec §4.1: up to 3 additional attempts,
// 1s/2s/4s backoff capped at 10s.
var DefaultLLMRetryPolicy = RetryPolicy{MaxAttempts: 4, BaseDelay: time.Second, MaxDelay: 10 * time.Second}

// DefaultHTTPRetryPolicy is used for feed/HTTP-bound stages (§4.1 [ADD]).
var DefaultHTTPRetryPolicy = RetryPolicy{MaxAttempts: 4, BaseDelay: time.Second, MaxDelay: 30 * time.Second}

// APICounter is incremented once per outbound LLM/provider call made inside
// a Process function, so the envelope's APICalls field is exact.
type APICounter struct {
	mu    sync.Mutex
	count int
}

// Inc records one API call.
func (c *APICounter) Inc() {
	c.mu.Lock()
	c.count++
	c.mu.Unlock()
}

func (c *APICounter) value() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// Runtime executes stages under the envelope and maintains the process-wide
// (run_id -> agent -> count) reporting table.
type Runtime struct {
	store objectstore.ObjectStore

	mu      sync.Mutex
	counts  map[string]map[string]int
}

// NewRuntime builds a Runtime persisting envelopes through store.
func NewRuntime(store objectstore.ObjectStore) *Runtime {
	return &Runtime{store: store, counts: make(map[string]map[string]int)}
}

// Execute runs process under policy, persists the resulting envelope to
// runs/<run_id>/agents/<agentName>.json, and returns the output.
func Execute[I, O any](ctx context.Context, rt *Runtime, agentName, runID string, input I, policy RetryPolicy, process Process[I, O]) (O, error) {
	var zero O
	counter := &APICounter{}
	start := time.Now()

	env := Envelope[I, O]{Agent: agentName, RunID: runID, Timestamp: start, Input: input}

	var out O
	var lastErr error
	attempts := policy.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	for attempt := 0; attempt < attempts; attempt++ {
		out, lastErr = process(ctx, input, counter)
		if lastErr == nil {
			break
		}
		env.Errors = append(env.Errors, lastErr.Error())
		kind := errs.ClassifyHTTPLike(lastErr)
		if !errs.Retryable(kind) || attempt == attempts-1 {
			break
		}
		delay := backoffDelay(policy, attempt)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			lastErr = ctx.Err()
			attempt = attempts // force exit
		}
	}

	env.DurationMs = time.Since(start).Milliseconds()
	env.APICalls = counter.value()
	if lastErr == nil {
		env.Output = out
	}

	rt.recordCount(runID, agentName, env.APICalls)

	if perr := rt.persist(ctx, runID, agentName, env); perr != nil {
		// Persistence failures don't mask the real stage result, but they
		// are worth surfacing distinctly if the stage itself succeeded.
		if lastErr == nil {
			return out, fmt.Errorf("agent runtime: persist envelope: %w", perr)
		}
	}

	if lastErr != nil {
		return zero, lastErr
	}
	return out, nil
}

func backoffDelay(policy RetryPolicy, attempt int) time.Duration {
	base := policy.BaseDelay
	if base <= 0 {
		base = time.Second
	}
	d := base << uint(attempt)
	if policy.MaxDelay > 0 && d > policy.MaxDelay {
		d = policy.MaxDelay
	}
	jitter := time.Duration(rand.Int63n(int64(d) / 3 + 1))
	return d - jitter/2 + jitter
}

func (rt *Runtime) recordCount(runID, agentName string, calls int) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	m, ok := rt.counts[runID]
	if !ok {
		m = make(map[string]int)
		rt.counts[runID] = m
	}
	m[agentName] += calls
}

// Counts returns a copy of the per-agent call counts recorded for runID.
func (rt *Runtime) Counts(runID string) map[string]int {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	out := make(map[string]int, len(rt.counts[runID]))
	for k, v := range rt.counts[runID] {
		out[k] = v
	}
	return out
}

func (rt *Runtime) persist(ctx context.Context, runID, agentName string, env any) error {
	buf, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return err
	}
	key := fmt.Sprintf("runs/%s/agents/%s.json", runID, agentName)
	_, err = rt.store.Put(ctx, key, bytes.NewReader(buf), objectstore.PutOptions{ContentType: "application/json"})
	return err
}

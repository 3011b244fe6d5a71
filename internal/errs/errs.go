// Package errs defines the error-kind taxonomy stages and the agent runtime
// use to decide what's retryable.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a stage or provider error for retry/propagation purposes.
type Kind string

const (
	KindTransientNetwork Kind = "transient_network"
	KindRateLimit        Kind = "rate_limit"
	KindProviderQuota    Kind = "provider_quota"
	KindProviderAuth     Kind = "provider_auth"
	KindParseError       Kind = "parse_error"
	KindValidationError  Kind = "validation_error"
	KindEmptyResult      Kind = "empty_result"
	KindStorageError     Kind = "storage_error"
	KindFatal            Kind = "fatal"
)

// Error wraps an underlying error with its Kind and the stage it came from.
type Error struct {
	Kind  Kind
	Stage string
	Msg   string
	Err   error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Stage, e.Msg, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Stage, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a stage error of the given kind.
func New(stage string, kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Stage: stage, Msg: msg, Err: cause}
}

// Retryable reports whether an error of this kind should be retried by the
// agent runtime's backoff loop.
func Retryable(kind Kind) bool {
	switch kind {
	case KindTransientNetwork, KindRateLimit, KindParseError:
		return true
	default:
		return false
	}
}

// ClassifyHTTPLike falls back to substring matching over a raw error's text
// when the provider SDK doesn't surface a structured status. This mirrors
// the heuristic many provider clients use internally when their own SDK
// error types don't round-trip a clean status code.
func ClassifyHTTPLike(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	s := strings.ToLower(err.Error())
	switch {
	case strings.Contains(s, "429") || strings.Contains(s, "rate limit") || strings.Contains(s, "too many requests"):
		return KindRateLimit
	case strings.Contains(s, "401") || strings.Contains(s, "403") || strings.Contains(s, "unauthorized") || strings.Contains(s, "forbidden"):
		return KindProviderAuth
	case strings.Contains(s, "quota") || strings.Contains(s, "insufficient_quota"):
		return KindProviderQuota
	case strings.Contains(s, "timeout") || strings.Contains(s, "temporary") || strings.Contains(s, "connection reset") || strings.Contains(s, "eof"):
		return KindTransientNetwork
	default:
		return KindFatal
	}
}

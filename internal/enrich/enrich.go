// Package enrich rewrites verdict explanations into friendlier prose using an
// optional generative backend. The engine never depends on this package;
// callers ask for an explanation after a verdict exists and always get one
// back, falling back to the locally rendered text on any failure.
package enrich

import (
	"aquasync/internal/core"
	"aquasync/pkg/domain"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Explainer produces a prose explanation for a verdict.
type Explainer interface {
	Explain(ctx context.Context, v domain.Verdict) (string, error)
}

// Source names where an explanation came from.
type Source string

// Explanation sources.
const (
	SourceLocal      Source = "local"
	SourceGenerative Source = "generative"
)

// Explanation is the text returned to callers.
type Explanation struct {
	Pair    domain.PairKey `json:"pair"`
	Level   domain.Level   `json:"level"`
	Text    string         `json:"text"`
	Source  Source         `json:"source"`
	Verdict domain.Verdict `json:"verdict"`
}

// Config bounds calls to the generative backend.
type Config struct {
	Timeout time.Duration `json:"timeout" yaml:"timeout" validate:"gte=0"`
	// RatePerSecond and Burst size the token bucket; zero rate disables the
	// backend entirely.
	RatePerSecond float64 `json:"rate_per_second" yaml:"rate_per_second" validate:"gte=0"`
	Burst         int     `json:"burst" yaml:"burst" validate:"gte=0"`
}

// DefaultConfig allows one call per second with a five second timeout.
func DefaultConfig() Config {
	return Config{Timeout: 5 * time.Second, RatePerSecond: 1, Burst: 3}
}

// ErrRateLimited is reported (and swallowed) when the bucket is empty.
var ErrRateLimited = errors.New("enrichment rate limit exceeded")

// Enricher wraps an Explainer with a timeout, a rate limiter and the local
// fallback.
type Enricher struct {
	explainer Explainer
	limiter   *rate.Limiter
	timeout   time.Duration
	logger    *slog.Logger
}

// New builds an Enricher. A nil explainer always yields local text.
func New(explainer Explainer, cfg Config, logger *slog.Logger) *Enricher {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RatePerSecond <= 0 {
		explainer = nil
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Enricher{
		explainer: explainer,
		limiter:   rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst),
		timeout:   cfg.Timeout,
		logger:    logger,
	}
}

// Explain never fails: backend errors, timeouts and throttling all degrade
// to the local explanation.
func (e *Enricher) Explain(ctx context.Context, v domain.Verdict) Explanation {
	out := Explanation{Pair: v.Pair, Level: v.Level, Text: Local(v), Source: SourceLocal, Verdict: v}
	if e == nil || e.explainer == nil {
		return out
	}
	text, err := e.generate(ctx, v)
	if err != nil {
		e.logger.Warn("explanation enrichment failed",
			"pair", v.Pair.String(), "class", core.ClassEnrichment.String(), "error", err)
		return out
	}
	out.Text = text
	out.Source = SourceGenerative
	return out
}

func (e *Enricher) generate(ctx context.Context, v domain.Verdict) (string, error) {
	if !e.limiter.Allow() {
		return "", ErrRateLimited
	}
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	text, err := e.explainer.Explain(ctx, v)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("empty explanation")
	}
	return text, nil
}

// Local renders the verdict's reasons and conditions as one paragraph.
func Local(v domain.Verdict) string {
	a, b := v.Pair.A, v.Pair.B
	switch v.Level {
	case domain.LevelCompatible:
		if len(v.Reasons) == 0 {
			return fmt.Sprintf("%s and %s are compatible tankmates.", a, b)
		}
		return fmt.Sprintf("%s and %s are compatible tankmates. Note: %s.", a, b, joinSentences(v.Reasons))
	case domain.LevelConditional:
		text := fmt.Sprintf("%s and %s can share a tank if you %s.", a, b, joinSentences(v.Conditions))
		if len(v.Reasons) > 0 {
			text += " " + capitalize(joinSentences(v.Reasons)) + "."
		}
		return text
	case domain.LevelIncompatible:
		if len(v.Reasons) == 0 {
			return fmt.Sprintf("%s and %s should not be kept together.", a, b)
		}
		return fmt.Sprintf("%s and %s should not be kept together: %s.", a, b, joinSentences(v.Reasons))
	default:
		return fmt.Sprintf("No compatibility information for %s and %s.", a, b)
	}
}

func joinSentences(items []string) string {
	trimmed := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimRight(strings.TrimSpace(item), ".")
		if item != "" {
			trimmed = append(trimmed, item)
		}
	}
	return strings.Join(trimmed, "; ")
}

func capitalize(s string) string {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}

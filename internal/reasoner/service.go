// Package reasoner produces textual rationales for scores and simulations,
// deterministically or through an optional language-model delegate.
package reasoner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/opensource-finance/harrier/internal/domain"
)

// Provider names.
const (
	ProviderDeterministic = "deterministic"
	ProviderLLM           = "llm"
)

var (
	// ErrNoDelegate is returned when the llm provider is selected without
	// an endpoint or model.
	ErrNoDelegate = errors.New("reasoner: llm provider requires endpoint and model")

	// ErrDelegateResponse wraps unusable delegate replies.
	ErrDelegateResponse = errors.New("reasoner: invalid delegate response")
)

const defaultTimeout = 10 * time.Second

// Service tries the delegate first and falls back to the deterministic
// reasoner on error or timeout. It never returns an error itself.
type Service struct {
	delegate domain.Reasoner
	fallback *Deterministic
	timeout  time.Duration
}

// New creates a reasoner for the configured provider.
func New(cfg domain.ReasonerConfig, tr domain.Translator) (*Service, error) {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	switch strings.ToLower(cfg.Provider) {
	case "", ProviderDeterministic:
		return NewService(nil, tr, timeout), nil
	case ProviderLLM:
		if cfg.Endpoint == "" || cfg.Model == "" {
			return nil, ErrNoDelegate
		}
		slog.Info("reasoner delegate enabled", "endpoint", cfg.Endpoint, "model", cfg.Model)
		return NewService(NewLLMDelegate(cfg.Endpoint, cfg.Model, cfg.APIKey, timeout), tr, timeout), nil
	default:
		return nil, fmt.Errorf("unsupported reasoner provider: %s", cfg.Provider)
	}
}

// NewService wraps delegate, which may be nil.
func NewService(delegate domain.Reasoner, tr domain.Translator, timeout time.Duration) *Service {
	return &Service{
		delegate: delegate,
		fallback: NewDeterministic(tr),
		timeout:  timeout,
	}
}

// Explain implements domain.Reasoner.
func (s *Service) Explain(ctx context.Context, req domain.ExplainRequest) (domain.Reasoning, error) {
	if s.delegate != nil {
		dctx, cancel := context.WithTimeout(ctx, s.timeout)
		r, err := s.delegate.Explain(dctx, req)
		cancel()
		if err == nil {
			r.Confidence = domain.Clamp01(r.Confidence)
			r.Source = domain.ReasoningDelegate
			return r, nil
		}
		slog.Warn("reasoner delegate failed, using deterministic explanation", "error", err)
	}
	return s.fallback.Explain(ctx, req)
}

// ExplainScenario implements domain.Reasoner.
func (s *Service) ExplainScenario(ctx context.Context, req domain.ExplainScenarioRequest) (domain.ScenarioExplanation, error) {
	if s.delegate != nil {
		dctx, cancel := context.WithTimeout(ctx, s.timeout)
		r, err := s.delegate.ExplainScenario(dctx, req)
		cancel()
		if err == nil {
			r.Source = domain.ReasoningDelegate
			return r, nil
		}
		slog.Warn("reasoner delegate failed, using deterministic scenario explanation", "error", err)
	}
	return s.fallback.ExplainScenario(ctx, req)
}

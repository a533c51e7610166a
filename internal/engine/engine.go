// Package engine runs the scoring pipeline: sanitize, parse, region,
// context, climate, network, FAHP, TOPSIS, unified scoring, profile and
// reasoning, in that order.
package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/opensource-finance/harrier/internal/climate"
	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/fahp"
	"github.com/opensource-finance/harrier/internal/input"
	"github.com/opensource-finance/harrier/internal/metrics"
	"github.com/opensource-finance/harrier/internal/network"
	"github.com/opensource-finance/harrier/internal/reasoner"
	"github.com/opensource-finance/harrier/internal/region"
	"github.com/opensource-finance/harrier/internal/sanitize"
	"github.com/opensource-finance/harrier/internal/scoring"
	"github.com/opensource-finance/harrier/internal/topsis"
)

// Version is stamped on every assessment.
const Version = "harrier-2.0"

// Stage names, used for spans and latency metrics.
const (
	StageSanitize = "sanitize"
	StageParse    = "parse"
	StageRegion   = "region"
	StageContext  = "context"
	StageClimate  = "climate"
	StageNetwork  = "network"
	StageFAHP     = "fahp"
	StageTOPSIS   = "topsis"
	StageFuse     = "fuse"
	StageProfile  = "profile"
	StageReason   = "reason"
)

var tracer = otel.Tracer("harrier-engine")

// Engine scores shipments. It holds only read-only collaborators, so one
// Engine serves concurrent requests.
type Engine struct {
	detector *region.Detector
	solver   *fahp.Solver
	climate  *climate.Model
	profiles *scoring.ProfileBuilder
	reasoner domain.Reasoner

	cache    domain.Cache
	cacheTTL time.Duration
	archive  domain.AssessmentRepository
	metrics  *metrics.Metrics

	group singleflight.Group
	now   func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the clock used for month derivation and timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithReasoner replaces the deterministic reasoner.
func WithReasoner(r domain.Reasoner) Option {
	return func(e *Engine) { e.reasoner = r }
}

// WithClimateModel replaces the neutral-ENSO climate model.
func WithClimateModel(m *climate.Model) Option {
	return func(e *Engine) { e.climate = m }
}

// WithSolver replaces the FAHP solver.
func WithSolver(s *fahp.Solver) Option {
	return func(e *Engine) { e.solver = s }
}

// WithCache serves repeated requests from c for ttl.
func WithCache(c domain.Cache, ttl time.Duration) Option {
	return func(e *Engine) {
		e.cache = c
		e.cacheTTL = ttl
	}
}

// WithArchive stores every fresh assessment in repo.
func WithArchive(repo domain.AssessmentRepository) Option {
	return func(e *Engine) { e.archive = repo }
}

// WithMetrics records stage latencies and assessment counts.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// New creates an engine that words its output through tr.
func New(tr domain.Translator, opts ...Option) *Engine {
	e := &Engine{
		detector: region.NewDetector(),
		solver:   fahp.NewSolver(),
		climate:  climate.NewModel(climate.ENSONeutral),
		profiles: scoring.NewProfileBuilder(tr),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.reasoner == nil {
		e.reasoner = reasoner.NewDeterministic(tr)
	}
	return e
}

// Score sanitizes and parses a raw request mapping, then scores it. An
// empty lang uses the language carried in the mapping.
func (e *Engine) Score(ctx context.Context, raw map[string]any, lang string) (*domain.Assessment, error) {
	var clean map[string]any
	if err := e.stage(ctx, StageSanitize, func(context.Context) error {
		clean = sanitize.Map(raw)
		return nil
	}); err != nil {
		return nil, err
	}

	var s domain.Shipment
	if err := e.stage(ctx, StageParse, func(context.Context) error {
		s = input.Parse(clean)
		return nil
	}); err != nil {
		return nil, err
	}

	return e.ScoreShipment(ctx, s, lang)
}

// ScoreShipment scores an already-parsed shipment. Identical requests are
// served from the cache and concurrent identical requests share one run.
func (e *Engine) ScoreShipment(ctx context.Context, s domain.Shipment, lang string) (*domain.Assessment, error) {
	s.Language = e.language(s, lang)
	month := climate.MonthOf(s.ETD, e.now)
	key := Fingerprint(s, month, e.climate.ENSOState())

	var a *domain.Assessment
	if res := e.lookup(ctx, key); res != nil {
		a = e.assessment(res, true)
	} else {
		res, err := e.shared(ctx, key, s, month)
		if err != nil {
			return nil, err
		}
		a = e.assessment(res, false)
	}

	if e.archive != nil {
		if err := e.archive.SaveAssessment(ctx, a); err != nil {
			slog.Warn("failed to archive assessment", "assessment_id", a.ID, "error", err)
		}
	}
	return a, nil
}

// shared runs one evaluation per fingerprint. The run is detached from the
// caller's cancellation so one caller leaving does not fail the others;
// each caller still stops waiting when its own context ends.
func (e *Engine) shared(ctx context.Context, key string, s domain.Shipment, month int) (*domain.ScoredResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ch := e.group.DoChan(key, func() (any, error) {
		runCtx := context.WithoutCancel(ctx)
		res, err := e.evaluate(runCtx, s, month)
		if err != nil {
			return nil, err
		}
		if e.cache != nil {
			if err := e.cache.SetResult(runCtx, key, res, e.cacheTTL); err != nil {
				slog.Warn("failed to cache assessment", "fingerprint", key, "error", err)
			}
		}
		e.metrics.ObserveAssessment(string(res.Level), string(res.Region))
		return res, nil
	})

	select {
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(*domain.ScoredResult), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Evaluate runs the pipeline without the cache, deriving the month from
// the shipment ETD and the engine clock.
func (e *Engine) Evaluate(ctx context.Context, s domain.Shipment, lang string) (*domain.ScoredResult, error) {
	s.Language = e.language(s, lang)
	return e.evaluate(ctx, s, climate.MonthOf(s.ETD, e.now))
}

func (e *Engine) evaluate(ctx context.Context, s domain.Shipment, month int) (*domain.ScoredResult, error) {
	var (
		match     domain.RegionMatch
		factors   domain.RiskFactors
		cr        domain.ClimateRisk
		nr        domain.NetworkRisk
		ws        domain.WeightSet
		weights   map[domain.Factor]float64
		closeness float64
		fused     scoring.Fused
		missing   []string
		profile   domain.RiskProfile
		reasoning domain.Reasoning
	)

	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{StageRegion, func(context.Context) error {
			match = e.detector.DetectShipment(s)
			return nil
		}},
		{StageContext, func(context.Context) error {
			factors = scoring.Context(s)
			return nil
		}},
		{StageClimate, func(context.Context) error {
			cr = e.climate.Assess(climate.Lane{
				Route:  s.Route,
				POL:    s.POL,
				POD:    s.POD,
				Region: match.Code,
				Month:  month,
			})
			factors[domain.FactorClimate] = cr.Overall
			factors = factors.Clone()
			return nil
		}},
		{StageNetwork, func(context.Context) error {
			nr = network.Assess(network.Lane{
				POL:               s.POL,
				POD:               s.POD,
				Carrier:           s.Carrier,
				Origin:            match.Origin,
				Destination:       match.Destination,
				PropagationFactor: match.Profile.NetworkPropagationFactor,
			})
			return nil
		}},
		{StageFAHP, func(context.Context) error {
			ws = e.solver.Solve(factors)
			weights = fahp.ApplyRegion(ws.Weights, match.Profile)
			return nil
		}},
		{StageTOPSIS, func(context.Context) error {
			closeness = topsis.Closeness(factors, weights)
			return nil
		}},
		{StageFuse, func(context.Context) error {
			var penalty float64
			penalty, missing = scoring.MissingPenalty(s)
			fused = scoring.Fuse(scoring.FuseInput{
				Factors:     factors,
				Closeness:   closeness,
				Climate:     cr.Overall,
				Network:     nr.Overall,
				Operational: scoring.Operational(s),
				Penalty:     penalty,
				Profile:     match.Profile,
			})
			return nil
		}},
		{StageProfile, func(context.Context) error {
			profile = e.profiles.Build(fused.Score, factors, s.CargoValue, s.Language)
			return nil
		}},
		{StageReason, func(ctx context.Context) error {
			var err error
			reasoning, err = e.reasoner.Explain(ctx, domain.ExplainRequest{
				Factors:    factors,
				Weights:    weights,
				Score:      fused.Score,
				Profile:    profile,
				RegionCode: match.Code,
				Language:   s.Language,
			})
			return err
		}},
	}

	for _, st := range steps {
		if err := e.stage(ctx, st.name, st.fn); err != nil {
			return nil, err
		}
	}

	return &domain.ScoredResult{
		Score:           fused.Score,
		Level:           profile.Level,
		Confidence:      reasoning.Confidence,
		Factors:         factors,
		Components:      fused.Components,
		Matrix:          profile.Matrix,
		Drivers:         profile.Drivers,
		Recommendations: profile.Recommendations,
		Reasoning:       reasoning,
		Region:          match.Code,
		Details: domain.Details{
			FAHP:          ws,
			Weights:       weights,
			Closeness:     closeness,
			Climate:       cr,
			Network:       nr,
			RegionProfile: match.Profile,
			BaseScore:     fused.BaseScore,
			ScaledScore:   fused.Scaled,
			MissingFields: missing,
			EngineVersion: Version,
		},
		Input:    s,
		Language: s.Language,
	}, nil
}

// stage runs fn inside a span after checking for cancellation.
func (e *Engine) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ctx, span := tracer.Start(ctx, "harrier."+name,
		trace.WithAttributes(attribute.String("harrier.stage", name)),
	)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	e.metrics.ObserveStage(name, time.Since(start))
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("stage %s: %w", name, err)
	}
	return nil
}

func (e *Engine) lookup(ctx context.Context, key string) *domain.ScoredResult {
	if e.cache == nil {
		return nil
	}
	res, err := e.cache.GetResult(ctx, key)
	if err != nil {
		slog.Warn("assessment cache lookup failed", "fingerprint", key, "error", err)
		return nil
	}
	e.metrics.ObserveCacheLookup(res != nil)
	return res
}

func (e *Engine) assessment(res *domain.ScoredResult, cached bool) *domain.Assessment {
	return &domain.Assessment{
		ID:            uuid.New().String(),
		CreatedAt:     e.now().UTC(),
		EngineVersion: Version,
		Cached:        cached,
		Result:        res,
	}
}

func (e *Engine) language(s domain.Shipment, lang string) domain.Language {
	if lang == "" {
		return domain.NormalizeLanguage(string(s.Language))
	}
	return domain.NormalizeLanguage(lang)
}

// Fingerprint identifies everything that determines a result: the parsed
// shipment (language included), the climate month and the ENSO phase.
func Fingerprint(s domain.Shipment, month int, enso string) string {
	data, _ := json.Marshal(struct {
		Shipment domain.Shipment `json:"shipment"`
		Month    int             `json:"month"`
		ENSO     string          `json:"enso"`
		Version  string          `json:"version"`
	}{s, month, enso, Version})

	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Package scenario re-scores a baseline under factor adjustments, compares
// the outcome against the baseline and runs presets and stored scenarios.
package scenario

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/fahp"
	"github.com/opensource-finance/harrier/internal/metrics"
	"github.com/opensource-finance/harrier/internal/reasoner"
	"github.com/opensource-finance/harrier/internal/rules"
	"github.com/opensource-finance/harrier/internal/scoring"
	"github.com/opensource-finance/harrier/internal/topsis"
)

var (
	// ErrNoBaseline is returned when Simulate or Delta is called without a
	// baseline result.
	ErrNoBaseline = errors.New("scenario: baseline result is required")

	// ErrUnknownPreset is returned for a preset name not in the catalogue.
	ErrUnknownPreset = errors.New("scenario: unknown preset")

	// ErrUnknownScenario is returned when a stored scenario does not exist.
	ErrUnknownScenario = errors.New("scenario: unknown scenario")

	// ErrNoStore is returned by stored-scenario operations without a store.
	ErrNoStore = errors.New("scenario: no scenario store configured")
)

// SimulateOptions tunes a simulation.
type SimulateOptions struct {
	// Inputs replaces the baseline shipment for the operational component.
	Inputs *domain.Shipment

	// KeepBaselineWeights reuses the baseline FAHP weights instead of
	// deriving them again from the adjusted factors.
	KeepBaselineWeights bool

	// Language overrides the baseline language for the wording.
	Language domain.Language
}

// Simulator runs the scenario engine.
type Simulator struct {
	solver   *fahp.Solver
	profiles *scoring.ProfileBuilder
	reasoner domain.Reasoner
	rules    *rules.Engine
	tr       domain.Translator
	store    domain.ScenarioStore
	bus      domain.EventBus
	metrics  *metrics.Metrics
	now      func() time.Time
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithSolver replaces the FAHP solver.
func WithSolver(s *fahp.Solver) Option {
	return func(sim *Simulator) { sim.solver = s }
}

// WithStore enables stored scenarios.
func WithStore(store domain.ScenarioStore) Option {
	return func(sim *Simulator) { sim.store = store }
}

// WithEventBus publishes completed runs on domain.TopicScenarioSimulated.
func WithEventBus(bus domain.EventBus) Option {
	return func(sim *Simulator) { sim.bus = bus }
}

// WithMetrics counts runs.
func WithMetrics(m *metrics.Metrics) Option {
	return func(sim *Simulator) { sim.metrics = m }
}

// WithClock sets the clock used to stamp stored runs.
func WithClock(now func() time.Time) Option {
	return func(sim *Simulator) { sim.now = now }
}

// NewSimulator creates a simulator. A nil reasoner uses the deterministic
// one; a nil rules engine loads the built-in mitigation catalogue.
func NewSimulator(tr domain.Translator, r domain.Reasoner, engine *rules.Engine, opts ...Option) (*Simulator, error) {
	if r == nil {
		r = reasoner.NewDeterministic(tr)
	}
	if engine == nil {
		var err error
		if engine, err = rules.NewDefaultEngine(); err != nil {
			return nil, err
		}
	}

	sim := &Simulator{
		solver:   fahp.NewSolver(),
		profiles: scoring.NewProfileBuilder(tr),
		reasoner: r,
		rules:    engine,
		tr:       tr,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(sim)
	}
	return sim, nil
}

// Simulate applies adjustments to the baseline factors and re-runs FAHP,
// TOPSIS, unified scoring, the profile builder and the reasoner. The climate
// component follows the adjusted climate factor; the network component
// follows the baseline unless a network key is adjusted. Keys are applied in
// sorted order and unknown keys are reported in IgnoredAdjustments.
func (s *Simulator) Simulate(ctx context.Context, baseline *domain.ScoredResult, adj domain.Adjustments, opts SimulateOptions) (*domain.SimulationResult, error) {
	if baseline == nil {
		return nil, ErrNoBaseline
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	original := baseline.Factors.Clone()
	factors := baseline.Factors.Clone()
	network := domain.Clamp01(baseline.Components.NetworkRisk)

	touched := make(map[string]bool)
	var ignored []string
	for _, key := range sortedKeys(adj) {
		delta := adj[key]
		name, sign, ok := Resolve(key)
		if !ok || math.IsNaN(delta) || math.IsInf(delta, 0) {
			ignored = append(ignored, key)
			continue
		}
		touched[name] = true
		if name == domain.NetworkAdjustment {
			network = domain.Clamp01(network + sign*delta)
			continue
		}
		f := domain.Factor(name)
		factors[f] = domain.Clamp01(factors[f] + sign*delta)
	}
	if len(ignored) > 0 {
		slog.Debug("ignored unknown scenario adjustments", "keys", ignored)
	}

	var changes []domain.DriverChange
	for _, f := range domain.Factors {
		if touched[string(f)] {
			changes = append(changes, domain.DriverChange{
				Driver:   string(f),
				Baseline: original[f],
				Scenario: factors[f],
				Delta:    factors[f] - original[f],
			})
		}
	}
	if touched[domain.NetworkAdjustment] {
		changes = append(changes, domain.DriverChange{
			Driver:   domain.NetworkAdjustment,
			Baseline: baseline.Components.NetworkRisk,
			Scenario: network,
			Delta:    network - baseline.Components.NetworkRisk,
		})
	}

	profile := baseline.Details.RegionProfile
	ws := baseline.Details.FAHP
	weights := baseline.Details.Weights
	if !opts.KeepBaselineWeights || len(weights) == 0 {
		ws = s.solver.Solve(factors)
		weights = fahp.ApplyRegion(ws.Weights, profile)
	}
	closeness := topsis.Closeness(factors, weights)

	input := baseline.Input
	operational := baseline.Components.OperationalRisk
	if opts.Inputs != nil {
		input = *opts.Inputs
		operational = scoring.Operational(input)
	}

	fused := scoring.Fuse(scoring.FuseInput{
		Factors:     factors,
		Closeness:   closeness,
		Climate:     factors[domain.FactorClimate],
		Network:     network,
		Operational: operational,
		Penalty:     baseline.Components.MissingDataPenalty,
		Profile:     profile,
	})

	lang := baseline.Language
	if opts.Language != "" {
		lang = domain.NormalizeLanguage(string(opts.Language))
	}

	riskProfile := s.profiles.Build(fused.Score, factors, input.CargoValue, lang)
	reasoning, err := s.reasoner.Explain(ctx, domain.ExplainRequest{
		Factors:    factors,
		Weights:    weights,
		Score:      fused.Score,
		Profile:    riskProfile,
		RegionCode: baseline.Region,
		Language:   lang,
	})
	if err != nil {
		return nil, err
	}

	details := baseline.Details
	details.FAHP = ws
	details.Weights = weights
	details.Closeness = closeness
	details.Climate.Overall = fused.Components.ClimateRisk
	details.Network.Overall = fused.Components.NetworkRisk
	details.BaseScore = fused.BaseScore
	details.ScaledScore = fused.Scaled

	return &domain.SimulationResult{
		ScoredResult: domain.ScoredResult{
			Score:           fused.Score,
			Level:           riskProfile.Level,
			Confidence:      reasoning.Confidence,
			Factors:         factors,
			Components:      fused.Components,
			Matrix:          riskProfile.Matrix,
			Drivers:         riskProfile.Drivers,
			Recommendations: riskProfile.Recommendations,
			Reasoning:       reasoning,
			Region:          baseline.Region,
			Details:         details,
			Input:           input,
			Language:        lang,
		},
		SimulationScore:     fused.Score,
		BaselineScore:       baseline.Score,
		DeltaFromBaseline:   fused.Score - baseline.Score,
		DriversChanged:      changes,
		Adjustments:         adj.Clone(),
		IgnoredAdjustments:  ignored,
		KeepBaselineWeights: opts.KeepBaselineWeights,
	}, nil
}

// Negate returns the adjustments with every delta sign-flipped.
func Negate(adj domain.Adjustments) domain.Adjustments {
	out := make(domain.Adjustments, len(adj))
	for k, v := range adj {
		out[k] = -v
	}
	return out
}

func sortedKeys(adj domain.Adjustments) []string {
	keys := make([]string, 0, len(adj))
	for k := range adj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

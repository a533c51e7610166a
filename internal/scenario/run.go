package scenario

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/opensource-finance/harrier/internal/domain"
)

// Run sources.
const (
	SourceAdhoc  = "adhoc"
	SourcePreset = "preset"
	SourceStored = "stored"
)

// Run is a simulation together with its delta record and explanation.
type Run struct {
	ID          string                     `json:"id"`
	Name        string                     `json:"name,omitempty"`
	Source      string                     `json:"source"`
	Simulation  *domain.SimulationResult   `json:"simulation"`
	Delta       *domain.DeltaRecord        `json:"delta"`
	Explanation domain.ScenarioExplanation `json:"explanation"`
}

// Run simulates adj against baseline, computes the delta record and asks
// the reasoner for a scenario explanation.
func (s *Simulator) Run(ctx context.Context, baseline *domain.ScoredResult, adj domain.Adjustments, opts SimulateOptions) (*Run, error) {
	return s.run(ctx, baseline, adj, opts, "", SourceAdhoc)
}

// RunPreset runs a catalogued preset.
func (s *Simulator) RunPreset(ctx context.Context, baseline *domain.ScoredResult, name string, opts SimulateOptions) (*Run, error) {
	p, ok := LookupPreset(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPreset, name)
	}
	return s.run(ctx, baseline, p.Adjustments, opts, p.Name, SourcePreset)
}

// RunStored runs a stored scenario and records the outcome on it.
func (s *Simulator) RunStored(ctx context.Context, baseline *domain.ScoredResult, name string, opts SimulateOptions) (*Run, error) {
	if s.store == nil {
		return nil, ErrNoStore
	}

	sc, err := s.store.Load(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to load scenario: %w", err)
	}
	if sc == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownScenario, name)
	}

	r, err := s.run(ctx, baseline, sc.Adjustments, opts, sc.Name, SourceStored)
	if err != nil {
		return nil, err
	}

	summary := domain.ScenarioRunSummary{
		SimulationScore:   r.Simulation.SimulationScore,
		DeltaFromBaseline: r.Simulation.DeltaFromBaseline,
		RiskLevel:         r.Delta.ScenarioLevel,
	}
	if err := s.store.RecordRun(ctx, sc.Name, s.now().UTC(), summary); err != nil {
		return nil, fmt.Errorf("failed to record scenario run: %w", err)
	}
	return r, nil
}

func (s *Simulator) run(ctx context.Context, baseline *domain.ScoredResult, adj domain.Adjustments, opts SimulateOptions, name, source string) (*Run, error) {
	sim, err := s.Simulate(ctx, baseline, adj, opts)
	if err != nil {
		return nil, err
	}

	delta, err := s.Delta(ctx, baseline, &sim.ScoredResult, sim.Language)
	if err != nil {
		return nil, err
	}

	explanation, err := s.reasoner.ExplainScenario(ctx, domain.ExplainScenarioRequest{
		Baseline: baseline,
		Scenario: sim,
		Deltas:   delta,
		Language: sim.Language,
	})
	if err != nil {
		return nil, err
	}

	r := &Run{
		ID:          uuid.New().String(),
		Name:        name,
		Source:      source,
		Simulation:  sim,
		Delta:       delta,
		Explanation: explanation,
	}

	s.metrics.ObserveScenarioRun(source)
	s.publish(ctx, r)
	return r, nil
}

// publish announces a run; failures are logged and never fail the run.
func (s *Simulator) publish(ctx context.Context, r *Run) {
	if s.bus == nil {
		return
	}

	payload, err := json.Marshal(map[string]any{
		"id":             r.ID,
		"name":           r.Name,
		"source":         r.Source,
		"baseline_score": r.Simulation.BaselineScore,
		"scenario_score": r.Simulation.SimulationScore,
		"shift":          r.Delta.RiskLevelShift,
		"timestamp":      s.now().UTC(),
	})
	if err != nil {
		slog.Warn("failed to encode scenario event", "error", err)
		return
	}
	if err := s.bus.Publish(ctx, domain.TopicScenarioSimulated, payload); err != nil {
		slog.Warn("failed to publish scenario event", "run_id", r.ID, "error", err)
	}
}

// Package rules provides the CEL-Go based mitigation rule engine used by the
// delta engine.
package rules

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"

	"github.com/opensource-finance/harrier/internal/domain"
)

// ErrInvalidExpression is returned when a rule does not compile to a
// boolean expression over the delta variables.
var ErrInvalidExpression = errors.New("rules: invalid mitigation expression")

// deltaVariables are the numeric variables every rule can reference.
var deltaVariables = []string{
	"score_delta",
	"climate_delta",
	"port_delta",
	"carrier_delta",
	"delay_delta",
	"equipment_delta",
	"esg_delta",
	"network_delta",
}

// Engine is the CEL-based mitigation rule engine.
type Engine struct {
	mu            sync.RWMutex
	env           *cel.Env
	compiledRules map[string]*CompiledRule
	order         []string
	maxWorkers    int
}

// CompiledRule holds a pre-compiled CEL program.
type CompiledRule struct {
	Config  *domain.MitigationRule
	Program cel.Program
}

// NewEngine creates a new rule engine.
func NewEngine(maxWorkers int) (*Engine, error) {
	if maxWorkers <= 0 {
		maxWorkers = 4
	}

	opts := make([]cel.EnvOption, 0, len(deltaVariables)+3)
	for _, v := range deltaVariables {
		opts = append(opts, cel.Variable(v, cel.DoubleType))
	}
	opts = append(opts,
		cel.Variable("risk_shift", cel.StringType),
		cel.Variable("baseline_level", cel.StringType),
		cel.Variable("scenario_level", cel.StringType),
	)

	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Engine{
		env:           env,
		compiledRules: make(map[string]*CompiledRule),
		maxWorkers:    maxWorkers,
	}, nil
}

// NewDefaultEngine creates an engine loaded with the built-in catalogue.
func NewDefaultEngine() (*Engine, error) {
	e, err := NewEngine(0)
	if err != nil {
		return nil, err
	}
	if err := e.LoadRules(BuiltinMitigations()); err != nil {
		return nil, err
	}
	return e, nil
}

// ValidateRule compiles a rule without loading it.
func (e *Engine) ValidateRule(cfg *domain.MitigationRule) error {
	if cfg == nil {
		return fmt.Errorf("%w: rule is required", ErrInvalidExpression)
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	_, err := e.compileRule(cfg)
	return err
}

// LoadRule compiles and loads a rule, replacing any rule with the same ID.
func (e *Engine) LoadRule(cfg *domain.MitigationRule) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	compiled, err := e.compileRule(cfg)
	if err != nil {
		return err
	}

	if _, exists := e.compiledRules[cfg.ID]; !exists {
		e.order = append(e.order, cfg.ID)
	}
	e.compiledRules[cfg.ID] = compiled
	return nil
}

// LoadRules compiles and loads the enabled rules in order.
func (e *Engine) LoadRules(configs []*domain.MitigationRule) error {
	for _, cfg := range configs {
		if cfg.Enabled {
			if err := e.LoadRule(cfg); err != nil {
				return err
			}
		}
	}
	return nil
}

// ReloadRules atomically replaces every loaded rule.
func (e *Engine) ReloadRules(configs []*domain.MitigationRule) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	newRules := make(map[string]*CompiledRule)
	var order []string
	for _, cfg := range configs {
		if !cfg.Enabled {
			continue
		}
		compiled, err := e.compileRule(cfg)
		if err != nil {
			return err
		}
		if _, exists := newRules[cfg.ID]; !exists {
			order = append(order, cfg.ID)
		}
		newRules[cfg.ID] = compiled
	}

	e.compiledRules = newRules
	e.order = order
	return nil
}

// DeltaInput is the activation for one delta evaluation.
type DeltaInput struct {
	ScoreDelta float64
	// FactorDeltas is keyed by factor name plus "network"; absent keys are 0
	FactorDeltas  map[string]float64
	RiskShift     string
	BaselineLevel string
	ScenarioLevel string
}

// Match is a rule that fired.
type Match struct {
	RuleID     string
	MessageKey string
	Priority   int
}

// Evaluate runs every loaded rule in parallel and returns the matches in
// priority order, ties in load order. Evaluation errors are logged per rule
// and never fail the whole evaluation.
func (e *Engine) Evaluate(ctx context.Context, in DeltaInput) ([]Match, error) {
	e.mu.RLock()
	rules := make([]*CompiledRule, 0, len(e.order))
	for _, id := range e.order {
		rules = append(rules, e.compiledRules[id])
	}
	e.mu.RUnlock()

	if len(rules) == 0 {
		return nil, nil
	}

	activation := map[string]any{
		"score_delta":    in.ScoreDelta,
		"risk_shift":     in.RiskShift,
		"baseline_level": in.BaselineLevel,
		"scenario_level": in.ScenarioLevel,
	}
	for _, v := range deltaVariables[1:] {
		name := v[:len(v)-len("_delta")]
		activation[v] = in.FactorDeltas[name]
	}

	// Parallel evaluation using worker pool pattern
	fired := make([]bool, len(rules))
	var wg sync.WaitGroup
	sem := make(chan struct{}, e.maxWorkers)

	for i, rule := range rules {
		wg.Add(1)
		go func(idx int, r *CompiledRule) {
			defer wg.Done()

			sem <- struct{}{}        // Acquire
			defer func() { <-sem }() // Release

			fired[idx] = evaluateRule(r, activation)
		}(i, rule)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var matches []Match
	for i, r := range rules {
		if fired[i] {
			matches = append(matches, Match{
				RuleID:     r.Config.ID,
				MessageKey: r.Config.MessageKey,
				Priority:   r.Config.Priority,
			})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Priority < matches[j].Priority
	})
	return matches, nil
}

func evaluateRule(rule *CompiledRule, activation map[string]any) bool {
	out, _, err := rule.Program.Eval(activation)
	if err != nil {
		slog.Debug("mitigation rule evaluation failed", "rule_id", rule.Config.ID, "error", err)
		return false
	}
	return toBool(out)
}

// toBool converts a CEL value to a match decision.
func toBool(val ref.Val) bool {
	switch v := val.(type) {
	case types.Bool:
		return bool(v)
	default:
		return false
	}
}

// RulesCount returns the number of loaded rules.
func (e *Engine) RulesCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.compiledRules)
}

// GetLoadedRules returns the loaded rule configurations in load order.
func (e *Engine) GetLoadedRules() []*domain.MitigationRule {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]*domain.MitigationRule, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, e.compiledRules[id].Config)
	}
	return out
}

// Close cleans up the engine.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.compiledRules = make(map[string]*CompiledRule)
	e.order = nil
	return nil
}

func (e *Engine) compileRule(cfg *domain.MitigationRule) (*CompiledRule, error) {
	if cfg.ID == "" || cfg.MessageKey == "" {
		return nil, fmt.Errorf("%w: rule requires id and message_key", ErrInvalidExpression)
	}

	ast, issues := e.env.Compile(cfg.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("%w: rule %s: %v", ErrInvalidExpression, cfg.ID, issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("%w: rule %s must return bool, got %s", ErrInvalidExpression, cfg.ID, ast.OutputType())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program for rule %s: %w", cfg.ID, err)
	}

	return &CompiledRule{
		Config:  cfg,
		Program: program,
	}, nil
}

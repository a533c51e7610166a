package rules

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/opensource-finance/harrier/internal/domain"
)

func keys(matches []Match) []string {
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.MessageKey
	}
	return out
}

func TestEngineCreation(t *testing.T) {
	engine, err := NewEngine(5)
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	defer engine.Close()

	if engine.RulesCount() != 0 {
		t.Errorf("expected 0 rules, got %d", engine.RulesCount())
	}

	matches, err := engine.Evaluate(context.Background(), DeltaInput{ScoreDelta: 50})
	if err != nil || len(matches) != 0 {
		t.Errorf("empty engine should match nothing, got %v %v", matches, err)
	}
}

func TestLoadRule(t *testing.T) {
	engine, _ := NewEngine(5)
	defer engine.Close()

	rule := &domain.MitigationRule{
		ID:         "test-rule-001",
		Name:       "Test Rule",
		Expression: "port_delta > 0.2",
		MessageKey: "mitigation.alternative_ports",
		Enabled:    true,
	}
	if err := engine.LoadRule(rule); err != nil {
		t.Fatalf("failed to load rule: %v", err)
	}
	if engine.RulesCount() != 1 {
		t.Errorf("expected 1 rule, got %d", engine.RulesCount())
	}

	// same ID replaces
	if err := engine.LoadRule(rule); err != nil {
		t.Fatalf("failed to reload rule: %v", err)
	}
	if engine.RulesCount() != 1 || len(engine.GetLoadedRules()) != 1 {
		t.Errorf("reloading an ID should not duplicate it")
	}
}

func TestLoadInvalidRule(t *testing.T) {
	engine, _ := NewEngine(5)
	defer engine.Close()

	tests := []struct {
		name string
		rule *domain.MitigationRule
	}{
		{"Syntax", &domain.MitigationRule{ID: "r", MessageKey: "k", Expression: "this is not valid CEL !!!"}},
		{"NonBool", &domain.MitigationRule{ID: "r", MessageKey: "k", Expression: "score_delta * 2.0"}},
		{"UnknownVariable", &domain.MitigationRule{ID: "r", MessageKey: "k", Expression: "amount > 1.0"}},
		{"MissingKey", &domain.MitigationRule{ID: "r", Expression: "score_delta > 1.0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := engine.LoadRule(tt.rule)
			if !errors.Is(err, ErrInvalidExpression) {
				t.Errorf("expected ErrInvalidExpression, got %v", err)
			}
			if err := engine.ValidateRule(tt.rule); !errors.Is(err, ErrInvalidExpression) {
				t.Errorf("ValidateRule: expected ErrInvalidExpression, got %v", err)
			}
		})
	}

	if engine.RulesCount() != 0 {
		t.Errorf("invalid rules must not load, got %d", engine.RulesCount())
	}
}

func TestBuiltinMitigations(t *testing.T) {
	engine, err := NewDefaultEngine()
	if err != nil {
		t.Fatalf("builtin catalogue should compile: %v", err)
	}
	defer engine.Close()

	if engine.RulesCount() != 7 {
		t.Fatalf("expected 7 builtin rules, got %d", engine.RulesCount())
	}

	ctx := context.Background()

	t.Run("PortStrike", func(t *testing.T) {
		matches, err := engine.Evaluate(ctx, DeltaInput{
			ScoreDelta: 21.9,
			FactorDeltas: map[string]float64{
				"port": 0.4, "delay": 0.3, "carrier": 0.15, "network": 0.25,
			},
			RiskShift: "Low-Medium → Medium-High",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []string{
			"mitigation.alternative_routing",
			"mitigation.alternative_ports",
			"mitigation.backup_carrier",
			"mitigation.alternative_paths",
			"mitigation.contingency_plan",
		}
		got := keys(matches)
		if fmt.Sprint(got) != fmt.Sprint(want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("Reduction", func(t *testing.T) {
		matches, _ := engine.Evaluate(ctx, DeltaInput{
			ScoreDelta:   -1.2,
			FactorDeltas: map[string]float64{"climate": -0.2},
			RiskShift:    "Medium → Medium",
		})
		got := keys(matches)
		if len(got) != 1 || got[0] != "mitigation.risk_reduction" {
			t.Errorf("got %v", got)
		}
	})

	t.Run("Threshold", func(t *testing.T) {
		matches, _ := engine.Evaluate(ctx, DeltaInput{
			ScoreDelta:   10,
			FactorDeltas: map[string]float64{"climate": 0.1},
		})
		if len(matches) != 0 {
			t.Errorf("thresholds are strict, got %v", keys(matches))
		}
	})
}

func TestPriorityOrdering(t *testing.T) {
	engine, _ := NewEngine(2)
	defer engine.Close()

	engine.LoadRules([]*domain.MitigationRule{
		{ID: "late", MessageKey: "b", Expression: "score_delta > 0.0", Priority: 9, Enabled: true},
		{ID: "early", MessageKey: "a", Expression: "score_delta > 0.0", Priority: 1, Enabled: true},
		{ID: "tie", MessageKey: "c", Expression: "score_delta > 0.0", Priority: 9, Enabled: true},
		{ID: "off", MessageKey: "d", Expression: "score_delta > 0.0", Priority: 0, Enabled: false},
	})

	matches, _ := engine.Evaluate(context.Background(), DeltaInput{ScoreDelta: 1})
	if got := fmt.Sprint(keys(matches)); got != "[a b c]" {
		t.Errorf("got %s, want [a b c]", got)
	}
}

func TestParallelExecution(t *testing.T) {
	engine, _ := NewEngine(3)
	defer engine.Close()

	for i := 0; i < 10; i++ {
		engine.LoadRule(&domain.MitigationRule{
			ID:         fmt.Sprintf("rule-%d", i),
			MessageKey: fmt.Sprintf("key-%d", i),
			Expression: "delay_delta >= 0.0",
			Priority:   i,
			Enabled:    true,
		})
	}
	if engine.RulesCount() != 10 {
		t.Fatalf("expected 10 rules, got %d", engine.RulesCount())
	}

	matches, err := engine.Evaluate(context.Background(), DeltaInput{})
	if err != nil {
		t.Fatalf("parallel evaluation failed: %v", err)
	}
	if len(matches) != 10 {
		t.Fatalf("expected 10 matches, got %d", len(matches))
	}
	for i, m := range matches {
		if m.RuleID != fmt.Sprintf("rule-%d", i) {
			t.Errorf("match %d out of order: %s", i, m.RuleID)
		}
	}
}

func TestReloadRules(t *testing.T) {
	engine, _ := NewDefaultEngine()
	defer engine.Close()

	err := engine.ReloadRules([]*domain.MitigationRule{
		{ID: "only", MessageKey: "k", Expression: `scenario_level == "Critical"`, Enabled: true},
	})
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if engine.RulesCount() != 1 {
		t.Errorf("expected 1 rule after reload, got %d", engine.RulesCount())
	}

	// a bad catalogue leaves the current one in place
	err = engine.ReloadRules([]*domain.MitigationRule{
		{ID: "bad", MessageKey: "k", Expression: "1.0", Enabled: true},
	})
	if !errors.Is(err, ErrInvalidExpression) {
		t.Errorf("expected ErrInvalidExpression, got %v", err)
	}
	if engine.GetLoadedRules()[0].ID != "only" {
		t.Error("failed reload must not replace rules")
	}

	matches, _ := engine.Evaluate(context.Background(), DeltaInput{ScenarioLevel: "Critical"})
	if len(matches) != 1 {
		t.Errorf("expected match on scenario level, got %v", matches)
	}
}

func TestEvaluateCanceled(t *testing.T) {
	engine, _ := NewDefaultEngine()
	defer engine.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := engine.Evaluate(ctx, DeltaInput{ScoreDelta: 20}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

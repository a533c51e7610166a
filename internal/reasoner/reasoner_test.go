package reasoner

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/i18n"
)

func explainRequest(region domain.RegionCode, port float64, score float64) domain.ExplainRequest {
	factors := domain.RiskFactors{
		domain.FactorDelay: 0.67, domain.FactorPort: port, domain.FactorClimate: 0.3,
		domain.FactorCarrier: 0.5, domain.FactorESG: 0.3, domain.FactorEquipment: 0.5,
	}
	return domain.ExplainRequest{
		Factors:    factors,
		Weights:    map[domain.Factor]float64{domain.FactorPort: 0.1234567},
		Score:      score,
		RegionCode: region,
		Language:   domain.LanguageEnglish,
		Profile: domain.RiskProfile{
			Drivers:         []domain.Factor{domain.FactorDelay, domain.FactorPort, domain.FactorCarrier},
			Recommendations: []string{"Add schedule buffer to the delivery plan"},
			Matrix:          domain.RiskMatrix{Quadrant: 5},
		},
	}
}

func TestDeterministicExplain(t *testing.T) {
	d := NewDeterministic(i18n.MustNew())
	ctx := context.Background()

	tests := []struct {
		name   string
		region domain.RegionCode
		port   float64
		phrase string
	}{
		{"SEA", domain.RegionSEA, 0.6, "Singapore PSA"},
		{"CN", domain.RegionCN, 0.6, "Golden Week"},
		{"US", domain.RegionUS, 0.4, "ILWU"},
		{"EU", domain.RegionEU, 0.45, "Rotterdam"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := d.Explain(ctx, explainRequest(tt.region, tt.port, 50))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.Contains(r.Explanation, tt.phrase) {
				t.Errorf("explanation %q should mention %q", r.Explanation, tt.phrase)
			}
			if r.Source != domain.ReasoningDeterministic {
				t.Errorf("source = %q", r.Source)
			}
			if len(r.KeyDrivers) != 3 || r.KeyDrivers[0] != "Transit delay" {
				t.Errorf("key drivers = %v", r.KeyDrivers)
			}
			if r.BusinessJustification == "" {
				t.Error("expected a business justification")
			}
		})
	}

	t.Run("BelowThresholdNoNote", func(t *testing.T) {
		r, _ := d.Explain(ctx, explainRequest(domain.RegionCN, 0.4, 50))
		if strings.Contains(r.Explanation, "Golden Week") {
			t.Errorf("CN note should need port >= 0.5: %q", r.Explanation)
		}
	})

	t.Run("Localized", func(t *testing.T) {
		req := explainRequest(domain.RegionUS, 0.4, 50)
		req.Language = domain.LanguageVietnamese
		r, _ := d.Explain(ctx, req)
		if !strings.Contains(r.Explanation, "ILWU") || !strings.Contains(r.Explanation, "rủi ro") {
			t.Errorf("vietnamese explanation = %q", r.Explanation)
		}
	})
}

func TestConfidence(t *testing.T) {
	tests := []struct {
		count int
		score float64
		want  float64
	}{
		{6, 50, 0.8},
		{3, 50, 0.72},
		{6, 10, 0.76},
		{6, 95, 0.76},
		{2, 5, 0.684},
	}
	for _, tt := range tests {
		if got := Confidence(tt.count, tt.score); got != tt.want {
			t.Errorf("Confidence(%d, %v) = %v, want %v", tt.count, tt.score, got, tt.want)
		}
	}
}

func TestDeterministicExplainScenario(t *testing.T) {
	d := NewDeterministic(i18n.MustNew())
	baseline := &domain.ScoredResult{Score: 49.9}
	scenario := &domain.SimulationResult{SimulationScore: 71.8}
	deltas := &domain.DeltaRecord{
		AbsoluteDelta:    21.9,
		PercentageChange: 43.9,
		RiskLevelShift:   "Low-Medium → Medium-High",
		DominantFactorChanges: []domain.FactorChange{
			{Factor: "port", Baseline: 0.6, Scenario: 1, Delta: 0.4},
		},
		RecommendedMitigations: []string{"Secure a backup carrier"},
	}

	out, err := d.ExplainScenario(context.Background(), domain.ExplainScenarioRequest{
		Baseline: baseline, Scenario: scenario, Deltas: deltas, Language: domain.LanguageEnglish,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.Summary, "49.9") || !strings.Contains(out.Summary, "71.8") {
		t.Errorf("summary = %q", out.Summary)
	}
	if !strings.Contains(out.Impact, "increases") {
		t.Errorf("impact = %q", out.Impact)
	}
	if len(out.Drivers) != 1 || !strings.Contains(out.Drivers[0], "Port congestion") {
		t.Errorf("drivers = %v", out.Drivers)
	}
	if out.RiskLevelShift != deltas.RiskLevelShift || out.ScoreChange != 21.9 {
		t.Errorf("delta fields not carried: %+v", out)
	}
}

func chatServer(t *testing.T, status int, content string, seen *string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if seen != nil {
			body, _ := io.ReadAll(r.Body)
			*seen = string(body)
		}
		w.WriteHeader(status)
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": content}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestLLMDelegate(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		var body string
		srv := chatServer(t, http.StatusOK, "```json\n{\"explanation\":\"Port risk dominates.\",\"key_drivers\":[\"port\"],\"confidence\":1.4,\"suggestions\":[\"book early\"],\"business_justification\":\"worth it\"}\n```", &body)
		defer srv.Close()

		l := NewLLMDelegate(srv.URL+"/", "test-model", "secret", time.Second)
		r, err := l.Explain(ctx, explainRequest(domain.RegionSEA, 0.6, 50))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if r.Explanation != "Port risk dominates." || r.Source != domain.ReasoningDelegate {
			t.Errorf("reasoning = %+v", r)
		}
		if r.Confidence != 1 {
			t.Errorf("confidence should be clamped, got %v", r.Confidence)
		}
		if strings.Contains(body, "0.1234567") || strings.Contains(strings.ToLower(body), "weight") {
			t.Errorf("prompt leaked internal weights: %s", body)
		}
		if !strings.Contains(body, "test-model") {
			t.Errorf("model not sent: %s", body)
		}
	})

	t.Run("BadStatus", func(t *testing.T) {
		srv := chatServer(t, http.StatusInternalServerError, "{}", nil)
		defer srv.Close()

		_, err := NewLLMDelegate(srv.URL, "m", "", time.Second).Explain(ctx, explainRequest(domain.RegionSEA, 0.6, 50))
		if !errors.Is(err, ErrDelegateResponse) {
			t.Errorf("expected ErrDelegateResponse, got %v", err)
		}
	})

	t.Run("APIKey", func(t *testing.T) {
		var auth string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth = r.Header.Get("Authorization")
			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"{\"summary\":\"ok\"}"}}]}`)
		}))
		defer srv.Close()

		l := NewLLMDelegate(srv.URL, "m", "secret", time.Second)
		out, err := l.ExplainScenario(ctx, domain.ExplainScenarioRequest{
			Baseline: &domain.ScoredResult{Score: 40},
			Scenario: &domain.SimulationResult{SimulationScore: 55},
			Deltas:   &domain.DeltaRecord{AbsoluteDelta: 15, RecommendedMitigations: []string{"Book early"}},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if auth != "Bearer secret" {
			t.Errorf("authorization = %q", auth)
		}
		if out.Summary != "ok" || len(out.Recommendations) != 1 || out.ScoreChange != 15 {
			t.Errorf("scenario explanation = %+v", out)
		}
	})

	t.Run("NotJSON", func(t *testing.T) {
		srv := chatServer(t, http.StatusOK, "I think it is risky.", nil)
		defer srv.Close()

		_, err := NewLLMDelegate(srv.URL, "m", "", time.Second).Explain(ctx, explainRequest(domain.RegionSEA, 0.6, 50))
		if !errors.Is(err, ErrDelegateResponse) {
			t.Errorf("expected ErrDelegateResponse, got %v", err)
		}
	})
}

type failingDelegate struct{ delay time.Duration }

func (f failingDelegate) Explain(ctx context.Context, _ domain.ExplainRequest) (domain.Reasoning, error) {
	select {
	case <-time.After(f.delay):
		return domain.Reasoning{}, errors.New("boom")
	case <-ctx.Done():
		return domain.Reasoning{}, ctx.Err()
	}
}

func (f failingDelegate) ExplainScenario(ctx context.Context, _ domain.ExplainScenarioRequest) (domain.ScenarioExplanation, error) {
	return domain.ScenarioExplanation{}, errors.New("boom")
}

func TestService(t *testing.T) {
	tr := i18n.MustNew()
	ctx := context.Background()

	t.Run("FallbackOnError", func(t *testing.T) {
		s := NewService(failingDelegate{}, tr, time.Second)
		r, err := s.Explain(ctx, explainRequest(domain.RegionUS, 0.4, 50))
		if err != nil {
			t.Fatalf("service should not fail: %v", err)
		}
		if r.Source != domain.ReasoningDeterministic {
			t.Errorf("source = %q", r.Source)
		}
	})

	t.Run("FallbackOnTimeout", func(t *testing.T) {
		s := NewService(failingDelegate{delay: time.Second}, tr, 20*time.Millisecond)
		start := time.Now()
		r, _ := s.Explain(ctx, explainRequest(domain.RegionUS, 0.4, 50))
		if time.Since(start) > 500*time.Millisecond {
			t.Error("timeout not honored")
		}
		if r.Source != domain.ReasoningDeterministic {
			t.Errorf("source = %q", r.Source)
		}
	})

	t.Run("ScenarioFallback", func(t *testing.T) {
		s := NewService(failingDelegate{}, tr, time.Second)
		out, err := s.ExplainScenario(ctx, domain.ExplainScenarioRequest{Deltas: &domain.DeltaRecord{AbsoluteDelta: -3}})
		if err != nil || out.Source != domain.ReasoningDeterministic {
			t.Errorf("out=%+v err=%v", out, err)
		}
	})

	t.Run("Factory", func(t *testing.T) {
		if _, err := New(domain.ReasonerConfig{Provider: "llm"}, tr); !errors.Is(err, ErrNoDelegate) {
			t.Errorf("expected ErrNoDelegate, got %v", err)
		}
		if _, err := New(domain.ReasonerConfig{Provider: "oracle"}, tr); err == nil {
			t.Error("expected error for unknown provider")
		}
		s, err := New(domain.ReasonerConfig{}, tr)
		if err != nil || s.delegate != nil {
			t.Errorf("default provider should be deterministic: %v", err)
		}
	})
}

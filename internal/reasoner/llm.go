package reasoner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/opensource-finance/harrier/internal/domain"
)

var languageNames = map[domain.Language]string{
	domain.LanguageEnglish:    "English",
	domain.LanguageVietnamese: "Vietnamese",
	domain.LanguageChinese:    "Simplified Chinese",
}

// LLMDelegate calls an OpenAI-compatible chat completions endpoint.
type LLMDelegate struct {
	client openai.Client
	model  string
}

// NewLLMDelegate creates a delegate for endpoint (the API base URL).
func NewLLMDelegate(endpoint, model, apiKey string, timeout time.Duration) *LLMDelegate {
	opts := []option.RequestOption{
		option.WithBaseURL(strings.TrimRight(endpoint, "/") + "/"),
		option.WithRequestTimeout(timeout),
		// the service falls back instead of retrying
		option.WithMaxRetries(0),
	}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	return &LLMDelegate{
		client: openai.NewClient(opts...),
		model:  model,
	}
}

// Explain asks the model for a shipment rationale. Only business-facing
// factor names, the rounded score and the profile are sent.
func (l *LLMDelegate) Explain(ctx context.Context, req domain.ExplainRequest) (domain.Reasoning, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Shipment risk score: %.1f/100 (%s).\n", req.Score, domain.LevelForScore(req.Score))
	fmt.Fprintf(&b, "Trade region: %s.\n", req.RegionCode)
	b.WriteString("Risk factors (0 = no risk, 1 = maximum):\n")
	for _, f := range domain.Factors {
		if v, ok := req.Factors[f]; ok {
			fmt.Fprintf(&b, "- %s: %.2f\n", f, round2(v))
		}
	}
	fmt.Fprintf(&b, "Probability/severity quadrant: %d of 9 (%s).\n", req.Profile.Matrix.Quadrant, req.Profile.Matrix.Description)
	b.WriteString(`Respond with a JSON object with keys "explanation", "key_drivers" (array), ` +
		`"confidence" (0-1), "suggestions" (array) and "business_justification".`)

	var out struct {
		Explanation           string   `json:"explanation"`
		KeyDrivers            []string `json:"key_drivers"`
		Confidence            float64  `json:"confidence"`
		Suggestions           []string `json:"suggestions"`
		BusinessJustification string   `json:"business_justification"`
	}
	if err := l.complete(ctx, req.Language, b.String(), &out); err != nil {
		return domain.Reasoning{}, err
	}
	if strings.TrimSpace(out.Explanation) == "" {
		return domain.Reasoning{}, fmt.Errorf("%w: empty explanation", ErrDelegateResponse)
	}

	return domain.Reasoning{
		Explanation:           out.Explanation,
		KeyDrivers:            out.KeyDrivers,
		Confidence:            domain.Clamp01(out.Confidence),
		Suggestions:           out.Suggestions,
		BusinessJustification: out.BusinessJustification,
		Source:                domain.ReasoningDelegate,
	}, nil
}

// ExplainScenario asks the model to summarize a simulation.
func (l *LLMDelegate) ExplainScenario(ctx context.Context, req domain.ExplainScenarioRequest) (domain.ScenarioExplanation, error) {
	if req.Baseline == nil || req.Scenario == nil || req.Deltas == nil {
		return domain.ScenarioExplanation{}, fmt.Errorf("%w: incomplete scenario request", ErrDelegateResponse)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Baseline risk score: %.1f. Scenario risk score: %.1f.\n", req.Baseline.Score, req.Scenario.SimulationScore)
	fmt.Fprintf(&b, "Risk level shift: %s.\n", req.Deltas.RiskLevelShift)
	b.WriteString("Factor changes:\n")
	for _, c := range req.Deltas.DominantFactorChanges {
		fmt.Fprintf(&b, "- %s: %.2f -> %.2f\n", c.Factor, round2(c.Baseline), round2(c.Scenario))
	}
	b.WriteString(`Respond with a JSON object with keys "summary", "drivers" (array), "impact" and "recommendations" (array).`)

	var out struct {
		Summary         string   `json:"summary"`
		Drivers         []string `json:"drivers"`
		Impact          string   `json:"impact"`
		Recommendations []string `json:"recommendations"`
	}
	if err := l.complete(ctx, req.Language, b.String(), &out); err != nil {
		return domain.ScenarioExplanation{}, err
	}
	if strings.TrimSpace(out.Summary) == "" {
		return domain.ScenarioExplanation{}, fmt.Errorf("%w: empty summary", ErrDelegateResponse)
	}

	// mitigations from the rules engine are kept alongside the model's ideas
	recs := mergeUnique(req.Deltas.RecommendedMitigations, out.Recommendations)

	return domain.ScenarioExplanation{
		Summary:          out.Summary,
		Drivers:          out.Drivers,
		Impact:           out.Impact,
		Recommendations:  recs,
		RiskLevelShift:   req.Deltas.RiskLevelShift,
		ScoreChange:      req.Deltas.AbsoluteDelta,
		PercentageChange: req.Deltas.PercentageChange,
		Source:           domain.ReasoningDelegate,
	}, nil
}

func (l *LLMDelegate) complete(ctx context.Context, lang domain.Language, prompt string, out any) error {
	name, ok := languageNames[lang]
	if !ok {
		name = languageNames[domain.LanguageEnglish]
	}

	resp, err := l.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: shared.ChatModel(l.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage("You are a logistics risk analyst. Answer in " + name + ". Be concise and practical."),
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(0.2),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return fmt.Errorf("%w: status %d", ErrDelegateResponse, apiErr.StatusCode)
		}
		return fmt.Errorf("delegate request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return fmt.Errorf("%w: no choices", ErrDelegateResponse)
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), out); err != nil {
		return fmt.Errorf("%w: content is not JSON: %v", ErrDelegateResponse, err)
	}
	return nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func mergeUnique(lists ...[]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, l := range lists {
		for _, s := range l {
			if s = strings.TrimSpace(s); s != "" && !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	return out
}

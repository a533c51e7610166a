package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/input"
	"github.com/opensource-finance/harrier/internal/repository"
	"github.com/opensource-finance/harrier/internal/sanitize"
	"github.com/opensource-finance/harrier/internal/scenario"
)

// BaselineSource names where a simulation baseline comes from. Exactly one
// of the fields is used, in field order.
type BaselineSource struct {
	AssessmentID string               `json:"assessment_id,omitempty"`
	Baseline     *domain.ScoredResult `json:"baseline,omitempty"`
	Shipment     map[string]any       `json:"shipment,omitempty"`
}

// SimulateRequest is the body of POST /simulate.
type SimulateRequest struct {
	BaselineSource

	Adjustments         domain.Adjustments `json:"adjustments,omitempty"`
	Preset              string             `json:"preset,omitempty"`
	Inputs              map[string]any     `json:"inputs,omitempty"`
	KeepBaselineWeights bool               `json:"keep_baseline_weights"`
	Language            string             `json:"language,omitempty"`
}

// RunScenarioRequest is the body of POST /scenarios/{name}/run.
type RunScenarioRequest struct {
	BaselineSource

	Inputs              map[string]any `json:"inputs,omitempty"`
	KeepBaselineWeights bool           `json:"keep_baseline_weights"`
	Language            string         `json:"language,omitempty"`
}

// DeltaRequest is the body of POST /delta.
type DeltaRequest struct {
	Baseline *domain.ScoredResult `json:"baseline"`
	Scenario *domain.ScoredResult `json:"scenario"`
	Language string               `json:"language,omitempty"`
}

// ScenarioRequest is the body of POST /scenarios and PUT /scenarios/{name}.
type ScenarioRequest struct {
	Name          string             `json:"name"`
	Adjustments   domain.Adjustments `json:"adjustments"`
	Description   *string            `json:"description,omitempty"`
	BaselineScore *float64           `json:"baseline_score,omitempty"`
}

// Simulate handles POST /simulate with either adjustments or a preset.
func (h *Handler) Simulate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req SimulateRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Preset != "" && len(req.Adjustments) > 0 {
		writeError(w, http.StatusBadRequest, "adjustments and preset are mutually exclusive")
		return
	}
	if err := validateAdjustments(req.Adjustments); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	opts := h.simulateOptions(ctx, req.Inputs, req.KeepBaselineWeights, req.Language)
	baseline, status, err := h.resolveBaseline(ctx, req.BaselineSource, opts.Language)
	if err != nil {
		writeError(w, status, err.Error())
		return
	}

	var run *scenario.Run
	if req.Preset != "" {
		run, err = h.deps.Simulator.RunPreset(ctx, baseline, req.Preset, opts)
	} else {
		run, err = h.deps.Simulator.Run(ctx, baseline, req.Adjustments, opts)
	}
	if err != nil {
		writeServiceError(w, "simulation failed", err)
		return
	}

	writeJSON(w, http.StatusOK, run)
}

// Delta handles POST /delta, comparing two scored results.
func (h *Handler) Delta(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req DeltaRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Baseline == nil || req.Scenario == nil {
		writeError(w, http.StatusBadRequest, "baseline and scenario are required")
		return
	}

	lang := h.language(ctx, req.Language)
	if lang == "" {
		lang = req.Baseline.Language
	}

	d, err := h.deps.Simulator.Delta(ctx, req.Baseline, req.Scenario, lang)
	if err != nil {
		writeServiceError(w, "delta computation failed", err)
		return
	}

	writeJSON(w, http.StatusOK, d)
}

// ListPresets returns the preset catalogue, optionally filtered by
// ?category=.
func (h *Handler) ListPresets(w http.ResponseWriter, r *http.Request) {
	presets := scenario.Presets()
	if category := r.URL.Query().Get("category"); category != "" {
		presets = scenario.PresetsByCategory(category)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"presets": presets,
		"count":   len(presets),
	})
}

// GetPreset returns one preset.
func (h *Handler) GetPreset(w http.ResponseWriter, r *http.Request) {
	p, ok := scenario.LookupPreset(urlParam(r, "name"))
	if !ok {
		writeError(w, http.StatusNotFound, "preset not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// ListScenarios returns stored scenario summaries.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	if !h.requireStore(w) {
		return
	}

	list, err := h.deps.Scenarios.List(r.Context())
	if err != nil {
		writeServiceError(w, "failed to list scenarios", err)
		return
	}
	if list == nil {
		list = []domain.ScenarioSummary{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"scenarios": list,
		"count":     len(list),
	})
}

// CreateScenario stores a new named scenario.
func (h *Handler) CreateScenario(w http.ResponseWriter, r *http.Request) {
	if !h.requireStore(w) {
		return
	}

	var req ScenarioRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if err := validateAdjustments(req.Adjustments); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sc := &domain.Scenario{
		Name:          strings.TrimSpace(req.Name),
		Adjustments:   req.Adjustments,
		BaselineScore: req.BaselineScore,
	}
	if req.Description != nil {
		sc.Description = *req.Description
	}

	if err := h.deps.Scenarios.Save(r.Context(), sc); err != nil {
		writeServiceError(w, "failed to save scenario", err)
		return
	}

	stored, err := h.deps.Scenarios.Load(r.Context(), sc.Name)
	if err != nil || stored == nil {
		stored = sc
	}
	writeJSON(w, http.StatusCreated, stored)
}

// GetScenario returns a stored scenario.
func (h *Handler) GetScenario(w http.ResponseWriter, r *http.Request) {
	if !h.requireStore(w) {
		return
	}

	sc, err := h.deps.Scenarios.Load(r.Context(), urlParam(r, "name"))
	if err != nil {
		writeServiceError(w, "failed to load scenario", err)
		return
	}
	if sc == nil {
		writeError(w, http.StatusNotFound, "scenario not found")
		return
	}

	writeJSON(w, http.StatusOK, sc)
}

// UpdateScenario replaces the fields given in the body; omitted fields
// keep their stored values.
func (h *Handler) UpdateScenario(w http.ResponseWriter, r *http.Request) {
	if !h.requireStore(w) {
		return
	}
	ctx := r.Context()
	name := urlParam(r, "name")

	var req ScenarioRequest
	if !decode(w, r, &req) {
		return
	}

	sc, err := h.deps.Scenarios.Load(ctx, name)
	if err != nil {
		writeServiceError(w, "failed to load scenario", err)
		return
	}
	if sc == nil {
		writeError(w, http.StatusNotFound, "scenario not found")
		return
	}

	if req.Adjustments != nil {
		if err := validateAdjustments(req.Adjustments); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		sc.Adjustments = req.Adjustments
	}
	if req.Description != nil {
		sc.Description = *req.Description
	}
	if req.BaselineScore != nil {
		sc.BaselineScore = req.BaselineScore
	}

	if err := h.deps.Scenarios.Update(ctx, sc); err != nil {
		writeServiceError(w, "failed to update scenario", err)
		return
	}

	writeJSON(w, http.StatusOK, sc)
}

// DeleteScenario removes a stored scenario.
func (h *Handler) DeleteScenario(w http.ResponseWriter, r *http.Request) {
	if !h.requireStore(w) {
		return
	}

	if err := h.deps.Scenarios.Delete(r.Context(), urlParam(r, "name")); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "scenario not found")
			return
		}
		writeServiceError(w, "failed to delete scenario", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RunScenario runs a stored scenario against the given baseline.
func (h *Handler) RunScenario(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req RunScenarioRequest
	if !decode(w, r, &req) {
		return
	}

	opts := h.simulateOptions(ctx, req.Inputs, req.KeepBaselineWeights, req.Language)
	baseline, status, err := h.resolveBaseline(ctx, req.BaselineSource, opts.Language)
	if err != nil {
		writeError(w, status, err.Error())
		return
	}

	run, err := h.deps.Simulator.RunStored(ctx, baseline, urlParam(r, "name"), opts)
	if err != nil {
		writeServiceError(w, "scenario run failed", err)
		return
	}

	writeJSON(w, http.StatusOK, run)
}

func (h *Handler) requireStore(w http.ResponseWriter) bool {
	if h.deps.Scenarios == nil {
		writeError(w, http.StatusServiceUnavailable, scenario.ErrNoStore.Error())
		return false
	}
	return true
}

// resolveBaseline loads, accepts or scores the baseline named by src.
func (h *Handler) resolveBaseline(ctx context.Context, src BaselineSource, lang domain.Language) (*domain.ScoredResult, int, error) {
	switch {
	case src.AssessmentID != "":
		a, status, err := h.loadAssessment(ctx, src.AssessmentID)
		if err != nil {
			return nil, status, err
		}
		return a.Result, http.StatusOK, nil

	case src.Baseline != nil:
		return src.Baseline, http.StatusOK, nil

	case src.Shipment != nil:
		a, err := h.deps.Engine.Score(ctx, src.Shipment, string(lang))
		if err != nil {
			return nil, http.StatusInternalServerError, fmt.Errorf("baseline scoring failed: %w", err)
		}
		return a.Result, http.StatusOK, nil

	default:
		return nil, http.StatusBadRequest, errors.New("one of assessment_id, baseline or shipment is required")
	}
}

func (h *Handler) simulateOptions(ctx context.Context, inputs map[string]any, keepWeights bool, lang string) scenario.SimulateOptions {
	opts := scenario.SimulateOptions{
		KeepBaselineWeights: keepWeights,
		Language:            h.language(ctx, lang),
	}
	if inputs != nil {
		s := input.Parse(sanitize.Map(inputs))
		opts.Inputs = &s
	}
	return opts
}

// language prefers an explicit body field over the negotiated language.
// An empty result leaves the choice to the baseline.
func (h *Handler) language(ctx context.Context, explicit string) domain.Language {
	if explicit != "" {
		return domain.NormalizeLanguage(explicit)
	}
	return GetLanguage(ctx)
}

// validateAdjustments rejects keys that name no factor, sub-model or alias.
func validateAdjustments(adj domain.Adjustments) error {
	var unknown []string
	for k := range adj {
		if _, _, ok := scenario.Resolve(k); !ok {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return fmt.Errorf("unknown adjustment keys: %s", strings.Join(unknown, ", "))
}

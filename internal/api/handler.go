package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/region"
	"github.com/opensource-finance/harrier/internal/repository"
	"github.com/opensource-finance/harrier/internal/scenario"
	"github.com/opensource-finance/harrier/internal/worker"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Handler holds dependencies for API handlers.
type Handler struct {
	deps Dependencies
}

// NewHandler creates a new API handler.
func NewHandler(deps Dependencies) *Handler {
	if deps.Version == "" {
		deps.Version = "dev"
	}
	return &Handler{deps: deps}
}

// AcceptedResponse is returned by POST /score?async=true.
type AcceptedResponse struct {
	RequestID string `json:"request_id"`
	Topic     string `json:"topic"`
}

// Score handles POST /score. The body is the raw shipment mapping. With
// async=true the shipment is published for the worker instead.
func (h *Handler) Score(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var raw map[string]any
	if !decode(w, r, &raw) {
		return
	}
	lang := h.scoreLanguage(ctx, raw)

	if r.URL.Query().Get("async") == "true" {
		h.submit(w, r, raw, lang)
		return
	}

	a, err := h.deps.Engine.Score(ctx, raw, lang)
	if err != nil {
		writeServiceError(w, "scoring failed", err)
		return
	}

	writeJSON(w, http.StatusOK, a)
}

// scoreLanguage picks the negotiated language, then the language field of
// the shipment, then the server default.
func (h *Handler) scoreLanguage(ctx context.Context, raw map[string]any) string {
	if lang := GetLanguage(ctx); lang != "" {
		return string(lang)
	}
	for k := range raw {
		if strings.EqualFold(strings.TrimSpace(k), "language") {
			return ""
		}
	}
	return string(h.deps.DefaultLanguage)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request, raw map[string]any, lang string) {
	if h.deps.Bus == nil {
		writeError(w, http.StatusServiceUnavailable, "event bus not available")
		return
	}

	requestID := GetRequestID(r.Context())
	if requestID == "" {
		requestID = uuid.New().String()
	}

	payload, err := json.Marshal(worker.ShipmentMessage{
		RequestID: requestID,
		Language:  lang,
		Shipment:  raw,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, "shipment cannot be encoded")
		return
	}

	if err := h.deps.Bus.Publish(r.Context(), domain.TopicShipmentSubmitted, payload); err != nil {
		slog.Error("failed to submit shipment", "request_id", requestID, "error", err)
		writeError(w, http.StatusServiceUnavailable, "failed to submit shipment")
		return
	}

	writeJSON(w, http.StatusAccepted, AcceptedResponse{
		RequestID: requestID,
		Topic:     domain.TopicShipmentSubmitted,
	})
}

// GetAssessment retrieves an archived assessment by ID.
func (h *Handler) GetAssessment(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")

	a, status, err := h.loadAssessment(r.Context(), id)
	if err != nil {
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, a)
}

func (h *Handler) loadAssessment(ctx context.Context, id string) (*domain.Assessment, int, error) {
	if h.deps.Archive == nil {
		return nil, http.StatusServiceUnavailable, errors.New("assessment archive not available")
	}

	a, err := h.deps.Archive.GetAssessment(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, http.StatusNotFound, errors.New("assessment not found")
	}
	if err != nil {
		slog.Error("failed to load assessment", "id", id, "error", err)
		return nil, http.StatusInternalServerError, errors.New("failed to load assessment")
	}
	return a, http.StatusOK, nil
}

// ListRegions returns the region profiles.
func (h *Handler) ListRegions(w http.ResponseWriter, r *http.Request) {
	profiles := region.Profiles()
	writeJSON(w, http.StatusOK, map[string]any{
		"regions": profiles,
		"count":   len(profiles),
	})
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	checks := map[string]string{}

	check := func(name string, ping func(context.Context) error) {
		if err := ping(ctx); err != nil {
			slog.Warn("health check failed", "component", name, "error", err)
			checks[name] = "down"
			return
		}
		checks[name] = "up"
	}

	if h.deps.Archive != nil {
		check("archive", h.deps.Archive.Ping)
	}
	if h.deps.Scenarios != nil {
		check("scenarios", h.deps.Scenarios.Ping)
	}
	if h.deps.Cache != nil {
		check("cache", h.deps.Cache.Ping)
	}
	if h.deps.Bus != nil {
		check("bus", h.deps.Bus.Ping)
	}

	status := "healthy"
	for _, v := range checks {
		if v != "up" {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":     status,
		"version":    h.deps.Version,
		"components": checks,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.deps.Engine == nil || h.deps.Simulator == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"ready": "false",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

// urlParam returns the unescaped route parameter. Preset and scenario
// names may contain spaces.
func urlParam(r *http.Request, key string) string {
	v := chi.URLParam(r, key)
	if u, err := url.PathUnescape(v); err == nil {
		return u
	}
	return v
}

// decode reads a JSON body, writing a 400 on failure.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps scoring and scenario errors to HTTP statuses.
func writeServiceError(w http.ResponseWriter, msg string, err error) {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "request canceled")
	case errors.Is(err, scenario.ErrUnknownPreset), errors.Is(err, scenario.ErrUnknownScenario):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, scenario.ErrNoBaseline), errors.Is(err, repository.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, repository.ErrDuplicate):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, scenario.ErrNoStore):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		slog.Error(msg, "error", err)
		writeError(w, http.StatusInternalServerError, msg)
	}
}

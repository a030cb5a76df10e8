package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/opensource-finance/claimdesk/internal/adjudication"
	"github.com/opensource-finance/claimdesk/internal/domain"
	"github.com/opensource-finance/claimdesk/internal/repository"
)

// Handler holds dependencies for API handlers.
type Handler struct {
	svc     *adjudication.Service
	repo    domain.Repository
	cache   domain.Cache
	bus     domain.EventBus
	version string
}

// NewHandler creates a new API handler. repo, cache and bus are only used for health checks.
func NewHandler(svc *adjudication.Service, repo domain.Repository, cache domain.Cache, bus domain.EventBus, version string) *Handler {
	return &Handler{
		svc:     svc,
		repo:    repo,
		cache:   cache,
		bus:     bus,
		version: version,
	}
}

// FNOLRequest wraps an FNOL payload, as sent by the intake UI.
type FNOLRequest struct {
	FNOL *domain.FNOL `json:"fnol"`
}

// SaveFNOLResponse is the response for POST /fnol.
type SaveFNOLResponse struct {
	ClaimID string `json:"claim_id"`
	Created bool   `json:"created"`
	Message string `json:"message"`
}

// DamageAssessmentRequest carries either model output produced elsewhere
// or image URLs for the configured model service.
type DamageAssessmentRequest struct {
	Damages  []string `json:"damages"`
	Severity string   `json:"severity"`
	Images   []string `json:"images"`
}

func decodeFNOL(w http.ResponseWriter, r *http.Request) (*domain.FNOL, bool) {
	var req FNOLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return nil, false
	}
	if req.FNOL == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "fnol is required",
		})
		return nil, false
	}
	return req.FNOL, true
}

// SaveFNOL handles POST /fnol.
func (h *Handler) SaveFNOL(w http.ResponseWriter, r *http.Request) {
	fnol, ok := decodeFNOL(w, r)
	if !ok {
		return
	}

	created, err := h.svc.SaveFNOL(r.Context(), fnol, GetIdentity(r.Context()).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	status, msg := http.StatusOK, "FNOL updated"
	if created {
		status, msg = http.StatusCreated, "FNOL saved"
	}
	writeJSON(w, status, SaveFNOLResponse{ClaimID: fnol.ClaimID, Created: created, Message: msg})
}

// ListClaims handles GET /fnol.
func (h *Handler) ListClaims(w http.ResponseWriter, r *http.Request) {
	claims, err := h.svc.ListClaims(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"claims": claims,
		"count":  len(claims),
	})
}

// GetClaim handles GET /fnol/{id}.
func (h *Handler) GetClaim(w http.ResponseWriter, r *http.Request) {
	claim, err := h.svc.GetClaim(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, claim)
}

// EvaluateClaim handles POST /claims/evaluate. Nothing is persisted.
func (h *Handler) EvaluateClaim(w http.ResponseWriter, r *http.Request) {
	fnol, ok := decodeFNOL(w, r)
	if !ok {
		return
	}

	result, err := h.svc.Evaluate(r.Context(), fnol)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// RunFraudDetection handles POST /fnol/{id}/fraud-detection.
func (h *Handler) RunFraudDetection(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.RunFraudDetection(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GetEvaluation handles GET /fnol/{id}/evaluation.
func (h *Handler) GetEvaluation(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.LatestEvaluation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// DamageAssessment handles POST /fnol/{id}/damage-assessment.
func (h *Handler) DamageAssessment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claimID := chi.URLParam(r, "id")

	var req DamageAssessmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	var (
		out *adjudication.AssessmentOutcome
		err error
	)
	switch {
	case len(req.Images) > 0:
		out, err = h.svc.AssessAndApply(ctx, claimID, req.Images)
	case req.Damages != nil || strings.TrimSpace(req.Severity) != "":
		out, err = h.svc.ApplyAssessment(ctx, claimID, domain.DamageAssessment{
			ClaimID:      claimID,
			DamageLabels: req.Damages,
			Severity:     req.Severity,
		})
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "either images or damages/severity are required",
		})
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// ListFraudClaims handles GET /fraud/claims.
func (h *Handler) ListFraudClaims(w http.ResponseWriter, r *http.Request) {
	queue, err := h.svc.ListFraudClaims(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"claims": queue,
		"count":  len(queue),
	})
}

// ListClaimStatuses handles GET /claim-statuses.
func (h *Handler) ListClaimStatuses(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.svc.ListClaimStatuses(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"statuses": statuses,
		"count":    len(statuses),
	})
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}
	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}
	if h.bus != nil {
		if err := h.bus.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

// writeError maps service errors to status codes. Unknown errors are logged
// and reported as 500 without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, repository.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, repository.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, adjudication.ErrRulesUnavailable):
		slog.Error("rule tables unavailable", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "rule tables unavailable"})
	default:
		slog.Error("request failed", "path", r.URL.Path, "trace_id", GetTraceID(r.Context()), "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

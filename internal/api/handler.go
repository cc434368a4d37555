package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"tradelens/config"
	"tradelens/internal/app"
	"tradelens/models"
	"tradelens/observability"
)

// UserIDHeader carries the authenticated caller's id, set by the upstream gateway
const UserIDHeader = "X-User-ID"

const maxBodyBytes = 1 << 16

// Handler handles HTTP API requests
type Handler struct {
	app    *app.App
	cfg    *config.Config
	health *HealthCache
}

// NewHandler creates a new Handler
func NewHandler(application *app.App, cfg *config.Config) *Handler {
	return &Handler{
		app:    application,
		cfg:    cfg,
		health: NewHealthCache(DefaultHealthCacheTTL),
	}
}

// HandleHealth returns the health status of the application
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status": "ok",
	}
	servicesStatus := map[string]string{}

	if h.app.Repo() != nil {
		healthy, valid := h.health.Get()
		if !valid {
			healthy = h.app.Repo().Health(r.Context()) == nil
			h.health.Set(healthy)
		}
		if healthy {
			servicesStatus["database"] = "connected"
		} else {
			servicesStatus["database"] = "disconnected"
			status["status"] = "degraded"
		}
	} else {
		servicesStatus["database"] = "not_configured"
	}
	status["services"] = servicesStatus

	if breakers := h.app.Breakers(); breakers != nil {
		status["circuit_breakers"] = breakers.Status()
		if len(breakers.OpenBreakers()) > 0 {
			status["status"] = "degraded"
		}
	}

	h.jsonResponse(w, http.StatusOK, status)
}

// HandleAnalyze runs a ticker analysis for the calling user
func (h *Handler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.Header.Get(UserIDHeader))
	if userID == "" {
		h.appError(w, models.NewAppError(models.CodeMissingCredential, "caller identity is required", nil))
		return
	}

	var req AnalyzeRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			h.appError(w, models.NewAppError(models.CodeMissingParameter, "request body is required", err))
			return
		}
		h.appError(w, models.NewAppError(models.CodeInvalidParameter, "request body must be valid JSON", err))
		return
	}

	analysisReq, err := req.Validate()
	if err != nil {
		h.appError(w, err)
		return
	}

	resp, err := h.app.Analyze(r.Context(), userID, analysisReq)
	if err != nil {
		h.appError(w, err)
		return
	}

	h.jsonResponse(w, http.StatusOK, resp)
}

// ErrorBody is the error envelope returned to callers
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries a stable code and a safe message
type ErrorDetail struct {
	Code    models.ErrorCode `json:"code"`
	Message string           `json:"message"`
}

// StatusFor maps an error code to an HTTP status
func StatusFor(code models.ErrorCode) int {
	switch code {
	case models.CodeMissingParameter, models.CodeInvalidTicker, models.CodeInvalidParameter, models.CodeMissingCredential:
		return http.StatusBadRequest
	case models.CodeInvalidCredential:
		return http.StatusUnauthorized
	case models.CodeTooManyRequests:
		return http.StatusTooManyRequests
	case models.CodeInsufficientResults:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) appError(w http.ResponseWriter, err error) {
	appErr := models.AsAppError(err)
	status := StatusFor(appErr.Code)
	if status >= http.StatusInternalServerError {
		observability.Error("request failed", "code", appErr.Code, "error", err)
	} else {
		observability.Debug("request rejected", "code", appErr.Code, "error", err)
	}
	h.jsonResponse(w, status, ErrorBody{Error: ErrorDetail{Code: appErr.Code, Message: appErr.Message}})
}

func (h *Handler) jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

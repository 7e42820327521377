// internal/httpapi/handlers.go
package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	apperrors "credit-lifecycle/internal/common/errors"
	"credit-lifecycle/internal/common/logger"
	"credit-lifecycle/internal/lifecycle"
	"credit-lifecycle/internal/models"
	"credit-lifecycle/internal/store"

	"github.com/redis/go-redis/v9"
)

// Handlers implements the REST endpoints over the lifecycle service.
type Handlers struct {
	service *lifecycle.Service
	db      *sql.DB
	cache   *redis.Client
	logger  logger.Logger
}

func NewHandlers(service *lifecycle.Service, db *sql.DB, cache *redis.Client, log logger.Logger) *Handlers {
	return &Handlers{
		service: service,
		db:      db,
		cache:   cache,
		logger:  log.WithFields(map[string]interface{}{"component": "http-handlers"}),
	}
}

// ==========================
// Application endpoints
// ==========================

func (h *Handlers) CreateApplication(w http.ResponseWriter, r *http.Request) {
	var input lifecycle.CreateInput
	if !h.decode(w, r, &input) {
		return
	}
	actor := r.Header.Get("X-Actor-Id")

	app, err := h.service.Create(r.Context(), input, actor)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, app)
}

func (h *Handlers) ListApplications(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.ListFilter{
		ProjectID:     q.Get("projectId"),
		TenantID:      q.Get("tenantId"),
		MethodologyID: q.Get("methodologyId"),
	}
	if raw := q.Get("status"); raw != "" {
		status := models.Status(raw)
		if !status.Valid() {
			h.writeError(w, apperrors.NewValidationError("unknown status "+raw))
			return
		}
		filter.Status = status
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.writeError(w, apperrors.NewValidationError("limit must be a non-negative integer"))
			return
		}
		filter.Limit = n
	}
	if raw := q.Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.writeError(w, apperrors.NewValidationError("offset must be a non-negative integer"))
			return
		}
		filter.Offset = n
	}

	apps, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"applications": apps,
		"count":        len(apps),
	})
}

func (h *Handlers) GetApplication(w http.ResponseWriter, r *http.Request) {
	app, err := h.service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, app)
}

func (h *Handlers) UpdateApplication(w http.ResponseWriter, r *http.Request) {
	var patch lifecycle.UpdateInput
	if !h.decode(w, r, &patch) {
		return
	}

	app, err := h.service.Update(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, app)
}

func (h *Handlers) RemoveApplication(w http.ResponseWriter, r *http.Request) {
	app, err := h.service.Remove(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, app)
}

func (h *Handlers) SubmitApplication(w http.ResponseWriter, r *http.Request) {
	var input lifecycle.SubmitInput
	if r.ContentLength != 0 {
		if !h.decode(w, r, &input) {
			return
		}
	}

	app, err := h.service.Submit(r.Context(), r.PathValue("id"), input)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, app)
}

type statusRequest struct {
	Status models.Status `json:"status"`
	Reason string        `json:"reason,omitempty"`
	Notes  string        `json:"notes,omitempty"`
}

func (h *Handlers) UpdateApplicationStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Status == "" {
		h.writeError(w, apperrors.NewValidationError("status is required"))
		return
	}

	app, err := h.service.UpdateStatus(r.Context(), r.PathValue("id"), req.Status, req.Reason, req.Notes)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, app)
}

func (h *Handlers) ApproveApplication(w http.ResponseWriter, r *http.Request) {
	var input lifecycle.ApproveInput
	if !h.decode(w, r, &input) {
		return
	}

	app, err := h.service.Approve(r.Context(), r.PathValue("id"), input)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, app)
}

func (h *Handlers) GetHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.GetHistory(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"history": entries,
		"count":   len(entries),
	})
}

func (h *Handlers) GetAnalytics(w http.ResponseWriter, r *http.Request) {
	analytics, err := h.service.GetAnalytics(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, analytics)
}

func (h *Handlers) GetDashboard(w http.ResponseWriter, r *http.Request) {
	tenantID := r.URL.Query().Get("tenantId")
	if tenantID == "" {
		h.writeError(w, apperrors.NewValidationError("tenantId query parameter is required"))
		return
	}

	stats, err := h.service.GetDashboard(r.Context(), tenantID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}

// ==========================
// Operational endpoints
// ==========================

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}

	// A cache outage degrades methodology lookups but does not take the
	// service down.
	cache := "ok"
	if h.cache != nil {
		if err := h.cache.Ping(ctx).Err(); err != nil {
			cache = "unavailable"
		}
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "cache": cache})
}

// ==========================
// Helpers
// ==========================

func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.writeError(w, apperrors.NewValidationError("invalid request body: "+err.Error()))
		return false
	}
	return true
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("response encoding failed", map[string]interface{}{"error": err})
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, err error) {
	stdErr := apperrors.AsStandard(err)
	status := apperrors.HTTPStatus(stdErr.Code)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", map[string]interface{}{
			"code":  stdErr.Code,
			"error": err,
		})
	}
	h.writeJSON(w, status, map[string]interface{}{"error": stdErr})
}

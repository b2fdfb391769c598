package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/gatherline/fulfil/internal/domain/entity"
	"github.com/gatherline/fulfil/internal/domain/fulfilment"
	"github.com/gatherline/fulfil/internal/service"
)

// Handler exposes the fulfilment engine as a JSON API.
type Handler struct {
	engine   *fulfilment.Service
	stats    *service.StatsService
	metrics  *Metrics
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler creates a Handler for the given engine service.
func NewHandler(engine *fulfilment.Service, stats *service.StatsService, metrics *Metrics, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		engine:   engine,
		stats:    stats,
		metrics:  metrics,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}
}

// Routes registers all session routes on a new mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/sessions", h.timed("init_session", h.initSession))
	mux.HandleFunc("GET /api/v1/sessions/{id}", h.timed("get_session_info", h.getSessionInfo))
	mux.HandleFunc("DELETE /api/v1/sessions/{id}", h.timed("delete_session", h.deleteSession))
	mux.HandleFunc("POST /api/v1/sessions/{id}/next", h.timed("next_entity", h.nextEntity))
	mux.HandleFunc("POST /api/v1/sessions/{id}/prev", h.timed("prev_entity", h.prevEntity))
	mux.HandleFunc("PUT /api/v1/sessions/{id}/payment", h.timed("update_payment", h.updatePayment))
	mux.HandleFunc("PUT /api/v1/sessions/{id}/delayed-payment", h.timed("update_delayed_payment", h.updateDelayedPayment))
	mux.HandleFunc("PUT /api/v1/sessions/{id}/form-response", h.timed("update_form_response", h.updateFormResponse))
	mux.HandleFunc("PUT /api/v1/sessions/{id}/waitlist", h.timed("update_waitlist", h.updateWaitlist))
	mux.HandleFunc("GET /api/v1/stats", h.getStats)

	return mux
}

// timed wraps a handler with a request duration observation.
func (h *Handler) timed(operation string, next http.HandlerFunc) http.HandlerFunc {
	if h.metrics == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next(w, r)
		h.metrics.RequestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}

// Request and response bodies.

type initSessionRequest struct {
	ResourceID  string   `json:"resource_id" validate:"required"`
	Quantity    int      `json:"quantity" validate:"required,min=1"`
	EntityTypes []string `json:"entity_types" validate:"required,min=1"`
}

type entityView struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	Completed bool   `json:"completed"`
}

type sessionInfoResponse struct {
	SessionID    string       `json:"session_id"`
	ResourceID   string       `json:"resource_id"`
	Quantity     int          `json:"quantity"`
	CurrentIndex int          `json:"current_index"`
	Entities     []entityView `json:"entities"`
	ExpiresAt    time.Time    `json:"expires_at"`
}

type indexResponse struct {
	CurrentIndex int `json:"current_index"`
}

type updatePaymentRequest struct {
	EntityID    string `json:"entity_id" validate:"required"`
	CheckoutRef string `json:"checkout_ref" validate:"required"`
}

type updateFormResponseRequest struct {
	EntityID   string `json:"entity_id" validate:"required"`
	FormID     string `json:"form_id" validate:"required"`
	ResponseID string `json:"response_id" validate:"required"`
}

type updateWaitlistRequest struct {
	EntityID string `json:"entity_id" validate:"required"`
	FullName string `json:"full_name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
}

type updateResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

// Handlers.

func (h *Handler) initSession(w http.ResponseWriter, r *http.Request) {
	var req initSessionRequest
	if !h.decode(w, r, &req) {
		return
	}

	kinds := make([]entity.Kind, 0, len(req.EntityTypes))
	for _, tag := range req.EntityTypes {
		kind, err := entity.ParseKind(tag)
		if err != nil {
			h.writeError(w, r, fmt.Errorf("%w: %v", fulfilment.ErrInvalidArgument, err))
			return
		}
		kinds = append(kinds, kind)
	}

	session, err := h.engine.Init(r.Context(), req.ResourceID, req.Quantity, kinds)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if h.metrics != nil {
		h.metrics.SessionsCreated.Inc()
	}
	h.writeJSON(w, http.StatusCreated, sessionView(session))
}

func (h *Handler) getSessionInfo(w http.ResponseWriter, r *http.Request) {
	session, err := h.engine.GetInfo(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, sessionView(session))
}

func (h *Handler) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Delete(r.Context(), r.PathValue("id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	if h.metrics != nil {
		h.metrics.SessionsDeleted.Inc()
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) nextEntity(w http.ResponseWriter, r *http.Request) {
	idx, err := h.engine.Next(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, fulfilment.ErrInvalidTransition) && h.metrics != nil {
			h.metrics.TransitionsDenied.Inc()
		}
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, indexResponse{CurrentIndex: idx})
}

func (h *Handler) prevEntity(w http.ResponseWriter, r *http.Request) {
	idx, err := h.engine.Prev(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, indexResponse{CurrentIndex: idx})
}

func (h *Handler) updatePayment(w http.ResponseWriter, r *http.Request) {
	var req updatePaymentRequest
	if !h.decode(w, r, &req) {
		return
	}
	err := h.engine.UpdatePaymentData(r.Context(), r.PathValue("id"), req.EntityID,
		entity.PaymentData{CheckoutRef: req.CheckoutRef})
	h.finishUpdate(w, r, entity.KindPayment, err)
}

func (h *Handler) updateDelayedPayment(w http.ResponseWriter, r *http.Request) {
	var req updatePaymentRequest
	if !h.decode(w, r, &req) {
		return
	}
	err := h.engine.UpdateDelayedPaymentData(r.Context(), r.PathValue("id"), req.EntityID,
		entity.PaymentData{CheckoutRef: req.CheckoutRef})
	h.finishUpdate(w, r, entity.KindDelayedPayment, err)
}

func (h *Handler) updateFormResponse(w http.ResponseWriter, r *http.Request) {
	var req updateFormResponseRequest
	if !h.decode(w, r, &req) {
		return
	}
	err := h.engine.UpdateFormSubmissionData(r.Context(), r.PathValue("id"), req.EntityID,
		entity.FormSubmissionData{FormID: req.FormID, ResponseID: req.ResponseID})
	h.finishUpdate(w, r, entity.KindFormSubmission, err)
}

func (h *Handler) updateWaitlist(w http.ResponseWriter, r *http.Request) {
	var req updateWaitlistRequest
	if !h.decode(w, r, &req) {
		return
	}
	err := h.engine.UpdateWaitlistData(r.Context(), r.PathValue("id"), req.EntityID,
		entity.WaitlistData{FullName: req.FullName, Email: req.Email})
	h.finishUpdate(w, r, entity.KindWaitlist, err)
}

func (h *Handler) getStats(w http.ResponseWriter, r *http.Request) {
	if h.stats == nil {
		h.writeJSON(w, http.StatusOK, service.Stats{})
		return
	}
	h.writeJSON(w, http.StatusOK, h.stats.GetStats())
}

// finishUpdate writes the shared step-update response.
func (h *Handler) finishUpdate(w http.ResponseWriter, r *http.Request, kind entity.Kind, err error) {
	if err != nil {
		if errors.Is(err, fulfilment.ErrTypeMismatch) && h.metrics != nil {
			h.metrics.TypeMismatches.Inc()
		}
		h.writeError(w, r, err)
		return
	}
	if h.metrics != nil {
		h.metrics.StepsCompleted.WithLabelValues(string(kind)).Inc()
	}
	h.writeJSON(w, http.StatusOK, updateResponse{
		Success: true,
		Message: fmt.Sprintf("%s step completed", kind),
	})
}

// decode parses and validates a JSON request body.
// Writes an invalid_argument response and returns false on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		h.writeError(w, r, fmt.Errorf("%w: malformed JSON body: %v", fulfilment.ErrInvalidArgument, err))
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		h.writeError(w, r, fmt.Errorf("%w: %v", fulfilment.ErrInvalidArgument, err))
		return false
	}
	return true
}

func sessionView(session *fulfilment.Session) sessionInfoResponse {
	entities := make([]entityView, len(session.Entities))
	for i, rec := range session.Entities {
		entities[i] = entityView{
			ID:        rec.ID,
			Kind:      string(rec.Kind),
			Completed: rec.Completed,
		}
	}
	return sessionInfoResponse{
		SessionID:    session.ID,
		ResourceID:   session.ResourceID,
		Quantity:     session.Quantity,
		CurrentIndex: session.CurrentIndex,
		Entities:     entities,
		ExpiresAt:    session.ExpiresAt,
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

// writeError maps a domain error to its HTTP status and error code.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := http.StatusInternalServerError, "internal"
	switch {
	case errors.Is(err, fulfilment.ErrSessionNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, fulfilment.ErrInvalidArgument):
		status, code = http.StatusBadRequest, "invalid_argument"
	case errors.Is(err, fulfilment.ErrInvalidTransition):
		status, code = http.StatusConflict, "invalid_transition"
	case errors.Is(err, fulfilment.ErrTypeMismatch):
		status, code = http.StatusConflict, "type_mismatch"
	}

	logger := LoggerFromContext(r.Context())
	if status == http.StatusInternalServerError {
		logger.Error("request failed", "error", err)
	} else {
		logger.Debug("request rejected", "code", code, "error", err)
	}

	h.writeJSON(w, status, errorResponse{Error: errorBody{Code: code, Message: err.Error()}})
}

package order

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/bubblebox/bubblebox-api/internal/middleware"
	"github.com/bubblebox/bubblebox-api/internal/pkg/logger"
	"github.com/bubblebox/bubblebox-api/internal/pkg/response"
	"github.com/bubblebox/bubblebox-api/internal/pkg/validator"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Create places a new order.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}

	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	userID := middleware.GetUserID(r.Context())

	o, err := h.svc.Create(r.Context(), userID, &req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.Created(w, o)
}

// List returns the caller's orders, newest first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	orders, err := h.svc.List(r.Context(), userID, limit, offset)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.OK(w, orders)
}

// Get returns one order with its items, preferences, addons, payment
// and status history.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid order id")
		return
	}

	userID := middleware.GetUserID(r.Context())
	role := middleware.GetRole(r.Context())

	o, err := h.svc.Get(r.Context(), orderID, userID, role)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.OK(w, o)
}

// Cancel is the customer cancellation endpoint.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid order id")
		return
	}

	userID := middleware.GetUserID(r.Context())

	o, err := h.svc.Cancel(r.Context(), orderID, userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.OK(w, o)
}

type setStatusRequest struct {
	Status string `json:"status" validate:"required,max=32"`
	Note   string `json:"note" validate:"omitempty,max=500"`
}

// SetStatus is the staff-facing status setter.
func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid order id")
		return
	}

	var req setStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}

	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	changedBy := middleware.GetUserID(r.Context())

	o, err := h.svc.SetStatus(r.Context(), orderID, Status(req.Status), req.Note, changedBy)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.OK(w, o)
}

type assignDriverRequest struct {
	DriverID *uuid.UUID `json:"driver_id"`
}

// AssignDriver sets or clears the order's driver.
func (h *Handler) AssignDriver(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid order id")
		return
	}

	var req assignDriverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}

	var driverID uuid.NullUUID
	if req.DriverID != nil {
		driverID = uuid.NullUUID{UUID: *req.DriverID, Valid: true}
	}

	assignedBy := middleware.GetUserID(r.Context())

	o, err := h.svc.AssignDriver(r.Context(), orderID, driverID, assignedBy)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.OK(w, o)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var rejected *RejectedError
	if errors.As(err, &rejected) {
		response.UnprocessableEntity(w, "REJECTED", rejected.Reason)
		return
	}

	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFound(w, "order not found")
	case errors.Is(err, ErrForbidden):
		response.Forbidden(w, "you do not have access to this order")
	case errors.Is(err, ErrInvalidTransition):
		response.Conflict(w, "this status change is not allowed")
	case errors.Is(err, ErrNotCancellable):
		response.Conflict(w, "this order can no longer be cancelled")
	case errors.Is(err, ErrNoItems), errors.Is(err, ErrInvalidService), errors.Is(err, ErrInvalidAddon):
		response.BadRequest(w, err.Error())
	default:
		logger.FromContext(r.Context()).Error().Err(err).Msg("Order operation failed")
		response.InternalError(w)
	}
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)

	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/cancel", h.Cancel)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireDriver())
		r.Patch("/{id}/status", h.SetStatus)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin())
		r.Patch("/{id}/driver", h.AssignDriver)
	})

	return r
}

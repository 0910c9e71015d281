package subscription

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bubblebox/bubblebox-api/internal/middleware"
	"github.com/bubblebox/bubblebox-api/internal/pkg/response"
	"github.com/bubblebox/bubblebox-api/internal/pkg/validator"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) ListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.svc.ListPlans(r.Context())
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, plans)
}

func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req SubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}

	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	sub, err := h.svc.Subscribe(r.Context(), middleware.GetUserID(r.Context()), &req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Created(w, sub)
}

func (h *Handler) Current(w http.ResponseWriter, r *http.Request) {
	sub, err := h.svc.Current(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.OK(w, sub)
}

func (h *Handler) Pause(w http.ResponseWriter, r *http.Request) {
	sub, err := h.svc.Pause(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.OK(w, sub)
}

func (h *Handler) Resume(w http.ResponseWriter, r *http.Request) {
	sub, err := h.svc.Resume(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.OK(w, sub)
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	sub, err := h.svc.Cancel(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.OK(w, sub)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFound(w, "no active subscription")
	case errors.Is(err, ErrPlanNotFound):
		response.NotFound(w, "plan not found")
	case errors.Is(err, ErrPlanInactive):
		response.UnprocessableEntity(w, "PLAN_INACTIVE", "this plan is not available")
	case errors.Is(err, ErrAlreadySubscribed):
		response.Conflict(w, "you already have a subscription")
	case errors.Is(err, ErrNotActive):
		response.Conflict(w, "subscription is not in the right state")
	default:
		response.InternalError(w)
	}
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)

	r.Get("/plans", h.ListPlans)
	r.Get("/", h.Current)
	r.Post("/", h.Subscribe)
	r.Post("/pause", h.Pause)
	r.Post("/resume", h.Resume)
	r.Delete("/", h.Cancel)

	return r
}

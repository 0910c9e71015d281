package referral

import (
	"encoding/json"
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

// MyCode returns the caller's referral code, generating one on first
// access.
func (h *Handler) MyCode(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	code, err := h.svc.IssueCode(r.Context(), userID)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, code)
}

type validateRequest struct {
	Code string `json:"code" validate:"required,max=32"`
}

// Validate checks a referral code before signup. Open endpoint: the
// prospective user is not authenticated yet.
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}

	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	result, err := h.svc.ValidateCode(r.Context(), req.Code)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, result)
}

type applyRequest struct {
	Code string `json:"code" validate:"required,max=32"`
}

// Apply applies a referral code for the authenticated user.
func (h *Handler) Apply(w http.ResponseWriter, r *http.Request) {
	var req applyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}

	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	userID := middleware.GetUserID(r.Context())

	result, err := h.svc.Apply(r.Context(), req.Code, userID)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, result)
}

// List returns the referral records where the caller is the referrer.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	referrals, err := h.svc.ListReferrals(r.Context(), userID)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, referrals)
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Post("/validate", h.Validate)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/", h.List)
		r.Get("/code", h.MyCode)
		r.Post("/apply", h.Apply)
	})

	return r
}

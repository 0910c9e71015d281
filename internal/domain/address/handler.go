package address

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/bubblebox/bubblebox-api/internal/middleware"
	"github.com/bubblebox/bubblebox-api/internal/pkg/response"
	"github.com/bubblebox/bubblebox-api/internal/pkg/validator"
)

// Handler for the address book API
type Handler struct {
	repo *Repository
}

func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

type upsertRequest struct {
	Label      string `json:"label" validate:"omitempty,max=50"`
	Street     string `json:"street" validate:"required,max=200"`
	City       string `json:"city" validate:"required,max=100"`
	PostalCode string `json:"postal_code" validate:"required,max=20"`
	Notes      string `json:"notes" validate:"omitempty,max=500"`
	IsDefault  bool   `json:"is_default"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req upsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}

	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	a, err := h.repo.Create(r.Context(), &Address{
		UserID:     middleware.GetUserID(r.Context()),
		Label:      req.Label,
		Street:     req.Street,
		City:       req.City,
		PostalCode: req.PostalCode,
		Notes:      req.Notes,
		IsDefault:  req.IsDefault,
	})
	if err != nil {
		response.InternalError(w)
		return
	}

	response.Created(w, a)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	addresses, err := h.repo.ListByUserID(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, addresses)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid address id")
		return
	}

	a, err := h.repo.GetByID(r.Context(), id, middleware.GetUserID(r.Context()))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(w, "address not found")
			return
		}
		response.InternalError(w)
		return
	}

	response.OK(w, a)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid address id")
		return
	}

	var req upsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}

	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	a, err := h.repo.Update(r.Context(), &Address{
		ID:         id,
		UserID:     middleware.GetUserID(r.Context()),
		Label:      req.Label,
		Street:     req.Street,
		City:       req.City,
		PostalCode: req.PostalCode,
		Notes:      req.Notes,
		IsDefault:  req.IsDefault,
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(w, "address not found")
			return
		}
		response.InternalError(w)
		return
	}

	response.OK(w, a)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid address id")
		return
	}

	if err := h.repo.Delete(r.Context(), id, middleware.GetUserID(r.Context())); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(w, "address not found")
			return
		}
		response.InternalError(w)
		return
	}

	response.NoContent(w)
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)

	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)

	return r
}

package settings

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bubblebox/bubblebox-api/internal/middleware"
	"github.com/bubblebox/bubblebox-api/internal/pkg/response"
	"github.com/bubblebox/bubblebox-api/internal/pkg/validator"
)

// Handler exposes the dynamic settings to admin tooling.
type Handler struct {
	repo     Repository
	provider *Provider
}

func NewHandler(repo Repository, provider *Provider) *Handler {
	return &Handler{repo: repo, provider: provider}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.repo.List(r.Context())
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, items)
}

type setRequest struct {
	Key   string `json:"key" validate:"required,max=100"`
	Value string `json:"value" validate:"required,max=500"`
}

// Set upserts one setting and invalidates its cache entry.
func (h *Handler) Set(w http.ResponseWriter, r *http.Request) {
	var req setRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}

	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	if err := h.provider.Set(r.Context(), req.Key, req.Value); err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, map[string]string{"key": req.Key, "value": req.Value})
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Use(middleware.RequireAdmin())

	r.Get("/", h.List)
	r.Put("/", h.Set)

	return r
}

package promo

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/bubblebox/bubblebox-api/internal/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type validateRequest struct {
	Code        string          `json:"code"`
	OrderTotal  decimal.Decimal `json:"order_total"`
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
}

// Validate evaluates a promo code against an order total. Rejections
// are 200s with valid=false; only store failures are 500s.
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}

	result, err := h.svc.Validate(r.Context(), req.Code, req.OrderTotal, req.DeliveryFee)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, result)
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Post("/validate", h.Validate)
	return r
}

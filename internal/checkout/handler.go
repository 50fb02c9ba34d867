package checkout

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/chinarbooks/storefront/internal/domain"
)

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

func (h *Handler) HandlePlace(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.CartID == "" || req.Email == "" {
		h.writeError(w, http.StatusBadRequest, "cart_id and email are required")
		return
	}
	if req.ShippingAddress.State == "" {
		h.writeError(w, http.StatusBadRequest, "shipping address state is required")
		return
	}

	order, err := h.service.Place(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrCartNotFound):
			h.writeError(w, http.StatusNotFound, "cart not found")
		case errors.Is(err, domain.ErrEmptyCart), errors.Is(err, ErrInvalidPaymentMethod):
			h.writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrProductNotFound):
			h.writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, domain.ErrStockChanged):
			h.writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, domain.ErrCouponNotFound),
			errors.Is(err, domain.ErrCouponExpired),
			errors.Is(err, domain.ErrMinimumNotMet),
			errors.Is(err, domain.ErrUsageExhausted):
			h.writeError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			h.logger.Error("checkout failed", "error", err, "cart_id", req.CartID)
			h.writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, order)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

package cart

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/chinarbooks/storefront/internal/domain"
	"github.com/chinarbooks/storefront/internal/pricing"
)

type Handler struct {
	repo      *Repository
	service   *Service
	homeState string
	logger    *slog.Logger
}

func NewHandler(repo *Repository, service *Service, homeState string, logger *slog.Logger) *Handler {
	return &Handler{
		repo:      repo,
		service:   service,
		homeState: homeState,
		logger:    logger,
	}
}

type createCartRequest struct {
	CustomerID string `json:"customer_id"`
	SessionID  string `json:"session_id"`
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createCartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c, err := h.repo.Create(r.Context(), req.CustomerID, req.SessionID)
	if err != nil {
		h.logger.Error("failed to create cart", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("cart created", "cart_id", c.ID)
	h.writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.respondError(w, err, "get cart")
		return
	}
	h.writeJSON(w, http.StatusOK, c)
}

type addLineRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

func (h *Handler) HandleAddLine(w http.ResponseWriter, r *http.Request) {
	cartID := r.PathValue("id")

	var req addLineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.service.Add(r.Context(), cartID, req.ProductID, req.Quantity); err != nil {
		h.respondError(w, err, "add to cart")
		return
	}

	c, err := h.service.Get(r.Context(), cartID)
	if err != nil {
		h.respondError(w, err, "reload cart")
		return
	}

	h.logger.Info("cart line added", "cart_id", cartID, "product_id", req.ProductID, "quantity", req.Quantity)
	h.writeJSON(w, http.StatusOK, c)
}

type setQuantityRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) HandleSetQuantity(w http.ResponseWriter, r *http.Request) {
	cartID := r.PathValue("id")
	productID := r.PathValue("productId")

	var req setQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.service.SetQuantity(r.Context(), cartID, productID, req.Quantity); err != nil {
		h.respondError(w, err, "set quantity")
		return
	}

	c, err := h.service.Get(r.Context(), cartID)
	if err != nil {
		h.respondError(w, err, "reload cart")
		return
	}
	h.writeJSON(w, http.StatusOK, c)
}

func (h *Handler) HandleRemoveLine(w http.ResponseWriter, r *http.Request) {
	cartID := r.PathValue("id")
	productID := r.PathValue("productId")

	if err := h.service.Remove(r.Context(), cartID, productID); err != nil {
		h.respondError(w, err, "remove line")
		return
	}

	c, err := h.service.Get(r.Context(), cartID)
	if err != nil {
		h.respondError(w, err, "reload cart")
		return
	}
	h.writeJSON(w, http.StatusOK, c)
}

type applyCouponRequest struct {
	Code string `json:"code"`
}

func (h *Handler) HandleApplyCoupon(w http.ResponseWriter, r *http.Request) {
	cartID := r.PathValue("id")

	var req applyCouponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		h.writeError(w, http.StatusBadRequest, "coupon code is required")
		return
	}

	if err := h.service.ApplyCoupon(r.Context(), cartID, req.Code); err != nil {
		h.respondError(w, err, "apply coupon")
		return
	}

	h.logger.Info("coupon applied", "cart_id", cartID, "code", req.Code)
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "applied"})
}

func (h *Handler) HandleRemoveCoupon(w http.ResponseWriter, r *http.Request) {
	cartID := r.PathValue("id")

	if err := h.service.RemoveCoupon(r.Context(), cartID); err != nil {
		h.respondError(w, err, "remove coupon")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

func (h *Handler) HandleTotals(w http.ResponseWriter, r *http.Request) {
	cartID := r.PathValue("id")

	// The tier comes from the destination state; without one the quote uses
	// the rest-of-country rate.
	region := pricing.TierFor(h.homeState, r.URL.Query().Get("state"))

	totals, err := h.service.Totals(r.Context(), cartID, region)
	if err != nil {
		h.respondError(w, err, "compute totals")
		return
	}
	h.writeJSON(w, http.StatusOK, totals)
}

func (h *Handler) respondError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, domain.ErrCartNotFound):
		h.writeError(w, http.StatusNotFound, "cart not found")
	case errors.Is(err, domain.ErrProductNotFound):
		h.writeError(w, http.StatusNotFound, "product not found")
	case errors.Is(err, domain.ErrInvalidQuantity):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrOutOfStock):
		h.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrCouponNotFound),
		errors.Is(err, domain.ErrCouponExpired),
		errors.Is(err, domain.ErrMinimumNotMet),
		errors.Is(err, domain.ErrUsageExhausted):
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.logger.Error("cart operation failed", "op", op, "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
	}
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

package orders

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/chinarbooks/storefront/internal/domain"
)

type Handler struct {
	repo      *Repository
	lifecycle *Lifecycle
	logger    *slog.Logger
}

func NewHandler(repo *Repository, lifecycle *Lifecycle, logger *slog.Logger) *Handler {
	return &Handler{
		repo:      repo,
		lifecycle: lifecycle,
		logger:    logger,
	}
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	order, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get order", "error", err, "id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if order == nil {
		h.writeError(w, http.StatusNotFound, "order not found")
		return
	}

	h.writeJSON(w, http.StatusOK, order)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	status := domain.OrderStatus(r.URL.Query().Get("status"))

	orders, err := h.repo.List(r.Context(), status)
	if err != nil {
		h.logger.Error("failed to list orders", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if orders == nil {
		orders = []domain.Order{}
	}
	h.writeJSON(w, http.StatusOK, orders)
}

type updateStatusRequest struct {
	Status     domain.OrderStatus `json:"status"`
	Carrier    string             `json:"carrier,omitempty"`
	TrackingNo string             `json:"tracking_no,omitempty"`
}

// HandleUpdateStatus is the admin transition endpoint. The target status
// picks the lifecycle operation; anything the state machine forbids comes
// back as a conflict.
func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var order *domain.Order
	var err error

	switch req.Status {
	case domain.OrderStatusCancelled:
		order, err = h.lifecycle.Cancel(r.Context(), id)
	case domain.OrderStatusRefunded:
		order, err = h.lifecycle.Refund(r.Context(), id)
	case domain.OrderStatusPacked, domain.OrderStatusShipped, domain.OrderStatusDelivered:
		var shipment *domain.Shipment
		if req.Status == domain.OrderStatusShipped {
			shipment = &domain.Shipment{Carrier: req.Carrier, TrackingNo: req.TrackingNo}
		}
		order, err = h.lifecycle.Advance(r.Context(), id, req.Status, shipment)
	default:
		h.writeError(w, http.StatusBadRequest, "unsupported target status")
		return
	}

	if err != nil {
		switch {
		case errors.Is(err, domain.ErrOrderNotFound):
			h.writeError(w, http.StatusNotFound, "order not found")
		case errors.Is(err, domain.ErrInvalidTransition):
			h.writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, domain.ErrRefundFailed):
			h.logger.Error("refund failed", "error", err, "id", id)
			h.writeError(w, http.StatusBadGateway, err.Error())
		default:
			h.logger.Error("failed to update order status", "error", err, "id", id)
			h.writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	h.logger.Info("order status updated", "order_id", order.ID, "status", order.Status)
	h.writeJSON(w, http.StatusOK, order)
}

type paymentCallbackRequest struct {
	GatewayOrderRef string `json:"gateway_order_ref"`
	PaymentID       string `json:"payment_id"`
	Signature       string `json:"signature"`
	AmountPaisa     int64  `json:"amount_paisa"`
}

// HandlePaymentCallback is the gateway webhook. A bad signature or a
// captured amount that does not match the order total leaves the order
// pending and returns 400; the gateway will retry or a human will reconcile.
func (h *Handler) HandlePaymentCallback(w http.ResponseWriter, r *http.Request) {
	var req paymentCallbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.GatewayOrderRef == "" || req.PaymentID == "" || req.Signature == "" || req.AmountPaisa <= 0 {
		h.writeError(w, http.StatusBadRequest, "gateway_order_ref, payment_id, signature and amount_paisa are required")
		return
	}

	order, err := h.lifecycle.MarkPaid(r.Context(), req.GatewayOrderRef, req.PaymentID, req.Signature, req.AmountPaisa)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrOrderNotFound):
			h.writeError(w, http.StatusNotFound, "order not found")
		case errors.Is(err, domain.ErrPaymentVerificationFailed):
			h.writeError(w, http.StatusBadRequest, "payment verification failed")
		case errors.Is(err, domain.ErrInvalidTransition):
			h.writeError(w, http.StatusConflict, "order is not awaiting payment")
		default:
			h.logger.Error("payment callback failed", "error", err)
			h.writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	h.writeJSON(w, http.StatusOK, order)
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

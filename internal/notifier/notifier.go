package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/chinarbooks/storefront/internal/domain"
)

// EmailSender is the delivery boundary. The lifecycle only guarantees that
// events reach this point; delivery itself is best effort.
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Handler turns order events into customer emails. It is the consumer-side
// half of the notification collaborator.
type Handler struct {
	sender EmailSender
	logger *slog.Logger
}

func NewHandler(sender EmailSender, logger *slog.Logger) *Handler {
	return &Handler{
		sender: sender,
		logger: logger,
	}
}

func (h *Handler) Handle(ctx context.Context, payload []byte) error {
	var event domain.OrderEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("unmarshal order event: %w", err)
	}

	subject, body, ok := render(event)
	if !ok {
		// Unknown kinds are skipped, not retried; a poison message must
		// not wedge the consumer group.
		h.logger.Warn("skipping order event of unknown kind", "kind", event.Kind, "order_id", event.OrderID)
		return nil
	}

	if err := h.sender.Send(ctx, event.Email, subject, body); err != nil {
		return fmt.Errorf("send %s notification for order %s: %w", event.Kind, event.OrderID, err)
	}

	h.logger.Info("notification sent", "order_id", event.OrderID, "kind", event.Kind, "to", event.Email)
	return nil
}

func render(event domain.OrderEvent) (subject, body string, ok bool) {
	amount := fmt.Sprintf("₹%d.%02d", event.TotalPaisa/100, event.TotalPaisa%100)

	switch event.Kind {
	case domain.EventOrderPlaced:
		return "Order received: " + event.OrderID,
			fmt.Sprintf("We have received your order of %d item(s) totalling %s.", event.ItemCount, amount), true
	case domain.EventOrderPaid:
		return "Payment confirmed: " + event.OrderID,
			fmt.Sprintf("Your payment of %s has been confirmed. We are preparing your books.", amount), true
	case domain.EventOrderPacked:
		return "Order packed: " + event.OrderID,
			"Your order has been packed and will ship shortly.", true
	case domain.EventOrderShipped:
		return "Order shipped: " + event.OrderID,
			fmt.Sprintf("Your order is on its way. Tracking number: %s.", event.TrackingNo), true
	case domain.EventOrderDelivered:
		return "Order delivered: " + event.OrderID,
			"Your order has been delivered. Happy reading!", true
	case domain.EventOrderCancelled:
		return "Order cancelled: " + event.OrderID,
			"Your order has been cancelled. Any payment will be reimbursed.", true
	case domain.EventOrderRefunded:
		return "Refund processed: " + event.OrderID,
			fmt.Sprintf("A refund of %s has been issued to your payment method.", amount), true
	default:
		return "", "", false
	}
}

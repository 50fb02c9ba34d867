package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/chinarbooks/storefront/internal/domain"
)

type recordingSender struct {
	to      string
	subject string
	body    string
	calls   int
	err     error
}

func (s *recordingSender) Send(ctx context.Context, to, subject, body string) error {
	s.calls++
	s.to = to
	s.subject = subject
	s.body = body
	return s.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func marshal(t *testing.T, event domain.OrderEvent) []byte {
	t.Helper()
	payload, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return payload
}

func TestHandle(t *testing.T) {
	t.Run("placed event sends a receipt", func(t *testing.T) {
		sender := &recordingSender{}
		h := NewHandler(sender, testLogger())

		event := domain.OrderEvent{
			Kind:       domain.EventOrderPlaced,
			OrderID:    "ord-1",
			Email:      "reader@example.com",
			TotalPaisa: 117000,
			ItemCount:  3,
			Timestamp:  time.Now().UTC(),
		}

		if err := h.Handle(context.Background(), marshal(t, event)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if sender.to != "reader@example.com" {
			t.Errorf("sent to %q", sender.to)
		}
		if !strings.Contains(sender.subject, "ord-1") {
			t.Errorf("subject %q does not name the order", sender.subject)
		}
		if !strings.Contains(sender.body, "₹1170.00") {
			t.Errorf("body %q does not carry the amount", sender.body)
		}
	})

	t.Run("shipped event carries tracking number", func(t *testing.T) {
		sender := &recordingSender{}
		h := NewHandler(sender, testLogger())

		event := domain.OrderEvent{
			Kind:       domain.EventOrderShipped,
			OrderID:    "ord-2",
			Email:      "reader@example.com",
			TrackingNo: "TRK-42",
		}

		if err := h.Handle(context.Background(), marshal(t, event)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(sender.body, "TRK-42") {
			t.Errorf("body %q does not carry the tracking number", sender.body)
		}
	})

	t.Run("every lifecycle kind renders", func(t *testing.T) {
		kinds := []domain.OrderEventKind{
			domain.EventOrderPlaced,
			domain.EventOrderPaid,
			domain.EventOrderPacked,
			domain.EventOrderShipped,
			domain.EventOrderDelivered,
			domain.EventOrderCancelled,
			domain.EventOrderRefunded,
		}

		for _, kind := range kinds {
			sender := &recordingSender{}
			h := NewHandler(sender, testLogger())

			event := domain.OrderEvent{Kind: kind, OrderID: "ord-3", Email: "reader@example.com"}
			if err := h.Handle(context.Background(), marshal(t, event)); err != nil {
				t.Errorf("kind %s: unexpected error: %v", kind, err)
			}
			if sender.calls != 1 {
				t.Errorf("kind %s: expected one send, got %d", kind, sender.calls)
			}
		}
	})

	t.Run("unknown kind is skipped without error", func(t *testing.T) {
		sender := &recordingSender{}
		h := NewHandler(sender, testLogger())

		event := domain.OrderEvent{Kind: "order.teleported", OrderID: "ord-4"}

		if err := h.Handle(context.Background(), marshal(t, event)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if sender.calls != 0 {
			t.Errorf("expected no send, got %d", sender.calls)
		}
	})

	t.Run("malformed payload errors", func(t *testing.T) {
		h := NewHandler(&recordingSender{}, testLogger())

		if err := h.Handle(context.Background(), []byte("{not json")); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("sender failure propagates", func(t *testing.T) {
		sender := &recordingSender{err: errors.New("smtp down")}
		h := NewHandler(sender, testLogger())

		event := domain.OrderEvent{Kind: domain.EventOrderPaid, OrderID: "ord-5", Email: "reader@example.com"}

		if err := h.Handle(context.Background(), marshal(t, event)); err == nil {
			t.Error("expected error")
		}
	})
}

package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/chinarbooks/storefront/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sign(secret, gatewayOrderRef, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(gatewayOrderRef + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	g := NewRazorpayGateway("http://gateway.invalid", "key_test", "secret_test", testLogger())

	t.Run("valid signature", func(t *testing.T) {
		sig := sign("secret_test", "order_ref_1", "pay_1")

		if !g.VerifySignature("order_ref_1", "pay_1", sig) {
			t.Error("expected signature to verify")
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		sig := sign("some_other_secret", "order_ref_1", "pay_1")

		if g.VerifySignature("order_ref_1", "pay_1", sig) {
			t.Error("expected verification failure")
		}
	})

	t.Run("tampered payment id", func(t *testing.T) {
		sig := sign("secret_test", "order_ref_1", "pay_1")

		if g.VerifySignature("order_ref_1", "pay_2", sig) {
			t.Error("expected verification failure")
		}
	})

	t.Run("empty signature", func(t *testing.T) {
		if g.VerifySignature("order_ref_1", "pay_1", "") {
			t.Error("expected verification failure")
		}
	})
}

func TestInitiate(t *testing.T) {
	order := &domain.Order{
		ID:     "ord-1",
		Totals: domain.Totals{TotalPaisa: 117000},
	}

	t.Run("creates gateway order", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || r.URL.Path != "/orders" {
				t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			}

			var body map[string]any
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body["amount"] != float64(117000) {
				t.Errorf("expected amount 117000, got %v", body["amount"])
			}
			if body["currency"] != "INR" {
				t.Errorf("expected currency INR, got %v", body["currency"])
			}

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{"id": "rzp_order_123"})
		}))
		defer srv.Close()

		g := NewRazorpayGateway(srv.URL, "key_test", "secret_test", testLogger())

		ref, err := g.Initiate(context.Background(), order)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ref != "rzp_order_123" {
			t.Errorf("expected rzp_order_123, got %q", ref)
		}
	})

	t.Run("gateway error status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		g := NewRazorpayGateway(srv.URL, "key_test", "secret_test", testLogger())

		if _, err := g.Initiate(context.Background(), order); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("missing order reference", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]string{})
		}))
		defer srv.Close()

		g := NewRazorpayGateway(srv.URL, "key_test", "secret_test", testLogger())

		if _, err := g.Initiate(context.Background(), order); err == nil {
			t.Error("expected error")
		}
	})
}

func TestRefund(t *testing.T) {
	order := &domain.Order{
		ID:               "ord-1",
		GatewayPaymentID: "pay_123",
		Totals:           domain.Totals{TotalPaisa: 117000},
	}

	t.Run("refund accepted", func(t *testing.T) {
		var gotPath string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		g := NewRazorpayGateway(srv.URL, "key_test", "secret_test", testLogger())

		if err := g.Refund(context.Background(), order); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if gotPath != "/payments/pay_123/refund" {
			t.Errorf("unexpected path %q", gotPath)
		}
	})

	t.Run("gateway failure wraps ErrRefundFailed", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		g := NewRazorpayGateway(srv.URL, "key_test", "secret_test", testLogger())

		err := g.Refund(context.Background(), order)
		if !errors.Is(err, domain.ErrRefundFailed) {
			t.Errorf("expected ErrRefundFailed, got %v", err)
		}
	})

	t.Run("breaker opens after repeated failures", func(t *testing.T) {
		var calls int
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		g := NewRazorpayGateway(srv.URL, "key_test", "secret_test", testLogger())

		for i := 0; i < 10; i++ {
			if err := g.Refund(context.Background(), order); !errors.Is(err, domain.ErrRefundFailed) {
				t.Fatalf("attempt %d: expected ErrRefundFailed, got %v", i, err)
			}
		}
		if calls >= 10 {
			t.Errorf("expected the breaker to stop forwarding calls, gateway saw %d", calls)
		}
	})
}

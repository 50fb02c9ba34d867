package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/contrib/instrumentation/runtime"

	"github.com/chinarbooks/storefront/internal/cart"
	"github.com/chinarbooks/storefront/internal/catalog"
	"github.com/chinarbooks/storefront/internal/checkout"
	"github.com/chinarbooks/storefront/internal/config"
	"github.com/chinarbooks/storefront/internal/coupon"
	"github.com/chinarbooks/storefront/internal/messaging"
	"github.com/chinarbooks/storefront/internal/orders"
	"github.com/chinarbooks/storefront/internal/payments"
	"github.com/chinarbooks/storefront/internal/pricing"
	"github.com/chinarbooks/storefront/internal/telemetry"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	cfg := config.Load()

	if cfg.PostgresURL == "" {
		logger.Error("POSTGRES_URL environment variable is required")
		os.Exit(1)
	}

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, "storefront", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider("storefront", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize meter", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(ctx) }()

	if err := runtime.Start(); err != nil {
		logger.Error("failed to start runtime instrumentation", "error", err)
		os.Exit(1)
	}

	db, err := telemetry.OpenDB(cfg.PostgresURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	var producer *messaging.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer = messaging.NewProducer(cfg.KafkaBrokers, cfg.OrderTopic)
		defer func() { _ = producer.Close() }()
	}

	rate := pricing.TieredRates(
		cfg.InRegionShippingPaisa,
		cfg.RestOfCountryShippingPaisa,
		cfg.FreeShippingThresholdPaisa,
	)

	gateway := payments.NewRazorpayGateway(cfg.GatewayBaseURL, cfg.GatewayKeyID, cfg.GatewayKeySecret, logger)

	productRepo := catalog.NewRepository(db)
	couponRepo := coupon.NewRepository(db)
	validator := coupon.NewValidator(couponRepo)
	cartRepo := cart.NewRepository(db)
	cartSvc := cart.NewService(cartRepo, productRepo, validator, rate)
	orderRepo := orders.NewRepository(db)
	lifecycle := orders.NewLifecycle(db, orderRepo, productRepo, gateway, publisher(producer), logger)
	checkoutSvc := checkout.NewService(db, cartRepo, cartSvc, productRepo, validator, orderRepo, gateway, publisher(producer), rate, cfg.HomeState, logger)

	catalogHandler := catalog.NewHandler(productRepo, logger)
	cartHandler := cart.NewHandler(cartRepo, cartSvc, cfg.HomeState, logger)
	couponHandler := coupon.NewHandler(couponRepo, logger)
	checkoutHandler := checkout.NewHandler(checkoutSvc, logger)
	orderHandler := orders.NewHandler(orderRepo, lifecycle, logger)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /products", telemetry.WithHTTPRoute(catalogHandler.HandleList))
	mux.HandleFunc("GET /products/{id}", telemetry.WithHTTPRoute(catalogHandler.HandleGet))

	mux.HandleFunc("POST /carts", telemetry.WithHTTPRoute(cartHandler.HandleCreate))
	mux.HandleFunc("GET /carts/{id}", telemetry.WithHTTPRoute(cartHandler.HandleGet))
	mux.HandleFunc("POST /carts/{id}/items", telemetry.WithHTTPRoute(cartHandler.HandleAddLine))
	mux.HandleFunc("PATCH /carts/{id}/items/{productId}", telemetry.WithHTTPRoute(cartHandler.HandleSetQuantity))
	mux.HandleFunc("DELETE /carts/{id}/items/{productId}", telemetry.WithHTTPRoute(cartHandler.HandleRemoveLine))
	mux.HandleFunc("POST /carts/{id}/coupon", telemetry.WithHTTPRoute(cartHandler.HandleApplyCoupon))
	mux.HandleFunc("DELETE /carts/{id}/coupon", telemetry.WithHTTPRoute(cartHandler.HandleRemoveCoupon))
	mux.HandleFunc("GET /carts/{id}/totals", telemetry.WithHTTPRoute(cartHandler.HandleTotals))

	mux.HandleFunc("POST /checkout", telemetry.WithHTTPRoute(checkoutHandler.HandlePlace))
	mux.HandleFunc("GET /orders/{id}", telemetry.WithHTTPRoute(orderHandler.HandleGet))
	mux.HandleFunc("POST /payments/callback", telemetry.WithHTTPRoute(orderHandler.HandlePaymentCallback))

	mux.HandleFunc("POST /admin/products", telemetry.WithHTTPRoute(catalogHandler.HandleCreate))
	mux.HandleFunc("PUT /admin/products/{id}", telemetry.WithHTTPRoute(catalogHandler.HandleUpdate))
	mux.HandleFunc("POST /admin/products/{id}/stock", telemetry.WithHTTPRoute(catalogHandler.HandleAdjustStock))
	mux.HandleFunc("GET /admin/products/low-stock", telemetry.WithHTTPRoute(catalogHandler.HandleLowStock))
	mux.HandleFunc("GET /admin/orders", telemetry.WithHTTPRoute(orderHandler.HandleList))
	mux.HandleFunc("POST /admin/orders/{id}/status", telemetry.WithHTTPRoute(orderHandler.HandleUpdateStatus))
	mux.HandleFunc("POST /admin/coupons", telemetry.WithHTTPRoute(couponHandler.HandleCreate))
	mux.HandleFunc("GET /admin/coupons/{code}", telemetry.WithHTTPRoute(couponHandler.HandleGet))

	mux.Handle("GET /metrics", metricsHandler)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			http.Error(w, "database unreachable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: otelhttp.NewHandler(mux, "storefront",
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				if r.Pattern != "" {
					return r.Pattern
				}
				return r.Method + " " + r.URL.Path
			}),
		),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("starting storefront service", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}

// publisher keeps a typed nil *messaging.Producer from sneaking into the
// Publisher interface as a non-nil value.
func publisher(p *messaging.Producer) orders.Publisher {
	if p == nil {
		return nil
	}
	return p
}

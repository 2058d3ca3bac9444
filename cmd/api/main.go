package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"tortaskeia-api/internal/config"
	"tortaskeia-api/internal/db"
	"tortaskeia-api/internal/gateway/mercadopago"
	"tortaskeia-api/internal/httpserver"
	"tortaskeia-api/internal/migrate"
	cartrepo "tortaskeia-api/internal/repository/cart"
	orderrepo "tortaskeia-api/internal/repository/order"
	productrepo "tortaskeia-api/internal/repository/product"
	userrepo "tortaskeia-api/internal/repository/user"
	"tortaskeia-api/internal/service/auth"
	cartsvc "tortaskeia-api/internal/service/cart"
	"tortaskeia-api/internal/service/catalog"
	ordersvc "tortaskeia-api/internal/service/order"
	"tortaskeia-api/internal/service/payment"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

func main() {
	logger := log.New(os.Stdout, "[api] ", log.LstdFlags|log.LUTC)

	_ = godotenv.Load()
	cfg := config.FromEnv()

	// Money renders as a JSON number, not a quoted string.
	decimal.MarshalJSONWithoutQuotes = true

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatalf("connect database: %v", err)
	}
	defer pool.Close()

	if err := migrate.Apply(ctx, pool); err != nil {
		logger.Fatalf("apply migrations: %v", err)
	}

	users := userrepo.NewPostgres(pool, logger)
	products := productrepo.NewPostgres(pool, logger)
	carts := cartrepo.NewPostgres(pool, logger)
	orders := orderrepo.NewPostgres(pool, logger)

	authSvc := auth.New(users, cfg.JWTSecret, cfg.AccessTokenTTL)
	catalogSvc := catalog.New(products)
	cartSvc := cartsvc.New(carts, catalogSvc)
	orderSvc := ordersvc.New(orders, carts, nil, cfg.DailyCapacity, logger)

	var gateway payment.Gateway
	if cfg.MPAccessToken != "" {
		gateway = mercadopago.New(cfg.MPAccessToken, cfg.GatewayTimeout, logger)
	} else {
		logger.Printf("mercadopago: no access token configured, payment creation disabled")
	}
	paymentSvc := payment.New(orders, gateway, payment.Config{
		WebhookSecret:   cfg.MPWebhookSecret,
		Currency:        cfg.Currency,
		SuccessURL:      cfg.MPSuccessURL,
		FailureURL:      cfg.MPFailureURL,
		PendingURL:      cfg.MPPendingURL,
		NotificationURL: cfg.PublicBaseURL + "/api/payments/webhook",
	}, logger)

	server := httpserver.New(cfg, httpserver.Deps{
		Auth:     authSvc,
		Catalog:  catalogSvc,
		Cart:     cartSvc,
		Orders:   orderSvc,
		Payments: paymentSvc,
		DB:       pool,
	}, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Fatalf("http server: %v", err)
		}
	case <-ctx.Done():
		logger.Printf("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Printf("shutdown: %v", err)
		}
	}
}

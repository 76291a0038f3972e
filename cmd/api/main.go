package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"payflow/internal/config"
	"payflow/internal/gateway"
	"payflow/internal/gateway/cardstream"
	"payflow/internal/gateway/redirectpay"
	httpx "payflow/internal/http"
	"payflow/internal/services/merchant"
	"payflow/internal/services/purchase"
	"payflow/internal/services/refund"
	"payflow/internal/services/token"
	"payflow/internal/services/webhook"
	"payflow/internal/store/postgres"
	redisstore "payflow/internal/store/redis"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init DB
	pool := postgres.MustOpen(ctx, cfg.DB.DSN)
	defer pool.Close()

	payments := postgres.NewPaymentRepository(pool)
	invoices := postgres.NewInvoiceRepository(pool)
	customers := postgres.NewCustomerRepository(pool)
	methods := postgres.NewMethodRepository(pool)
	configs := postgres.NewGatewayConfigRepository(pool, cfg.Sec.AESKey)
	accounts := postgres.NewAccountRepository(pool)
	events := postgres.NewEventRepository(pool)

	// Init Redis for checkout sessions
	rdb := goredis.NewClient(&goredis.Options{Addr: cfg.Redis.Addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Msg("redis ping fail")
	}
	sessions := redisstore.NewSessionStore(rdb, time.Duration(cfg.Checkout.SessionTTLMinutes)*time.Minute)

	// Gateway adapters
	registry := gateway.NewRegistry()
	registry.Register(gateway.ProviderCardstream, cardstream.New())
	registry.Register(gateway.ProviderRedirectPay, redirectpay.New())

	// Services
	tokenSvc := token.NewService(customers, methods)
	purchaseSvc := purchase.NewService(cfg, registry, payments, invoices, configs, sessions, tokenSvc)
	refundSvc := refund.NewService(registry, payments, invoices, configs)
	merchantSvc := merchant.NewService(cfg, accounts, configs, registry)
	webhookProc := webhook.NewProcessor(configs, events, registry, purchaseSvc)

	// Router
	r := httpx.NewRouter(httpx.RouterDependencies{
		Config:           cfg,
		PurchaseService:  purchaseSvc,
		RefundService:    refundSvc,
		TokenService:     tokenSvc,
		MerchantService:  merchantSvc,
		WebhookProcessor: webhookProc,
		GatewayRegistry:  registry,
		Accounts:         accounts,
		Payments:         payments,
		Events:           events,
		GatewayConfigs:   configs,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info().Msgf("PayFlow API listening on :%s", cfg.App.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	cancel()
	ctx2, cancel2 := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	_ = rdb.Close()
	log.Info().Msg("server stopped")
}

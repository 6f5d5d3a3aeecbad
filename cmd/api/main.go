package main

import (
	"context"
	"errors"
	"github.com/ariefcatur/go-shop-orders/internal/account"
	"github.com/ariefcatur/go-shop-orders/internal/auth"
	"github.com/ariefcatur/go-shop-orders/internal/cart"
	"github.com/ariefcatur/go-shop-orders/internal/catalog"
	"github.com/ariefcatur/go-shop-orders/internal/checkout"
	"github.com/ariefcatur/go-shop-orders/internal/config"
	"github.com/ariefcatur/go-shop-orders/internal/gateway"
	"github.com/ariefcatur/go-shop-orders/internal/httpx"
	kafkax "github.com/ariefcatur/go-shop-orders/internal/kafka"
	"github.com/ariefcatur/go-shop-orders/internal/logging"
	"github.com/ariefcatur/go-shop-orders/internal/metrics"
	"github.com/ariefcatur/go-shop-orders/internal/payment"
	"github.com/ariefcatur/go-shop-orders/internal/postgres"
	"github.com/ariefcatur/go-shop-orders/internal/reconcile"
	"github.com/ariefcatur/go-shop-orders/internal/redisx"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logging.MustNew(cfg.ServiceName, cfg.Env)
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid_config", zap.Error(err))
	}
	if cfg.Gateway.WebhookToken == "" {
		log.Warn("webhook_token_missing", zap.String("detail", "payment notifications are accepted without verification"))
	}
	if err := cfg.Gateway.Check(); err != nil {
		log.Warn("gateway_inactive", zap.String("mode", cfg.Gateway.Mode()), zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// DB
	db, err := postgres.ConnectRetry(ctx, cfg.PostgresDSN, 8, log)
	if err != nil {
		log.Fatal("db_connect", zap.Error(err))
	}
	defer db.Close()
	if cfg.MigrateOnStart {
		if err := postgres.Migrate(cfg.PostgresDSN); err != nil {
			log.Fatal("migrate", zap.Error(err))
		}
	}
	store := &postgres.Store{DB: db}

	// Redis: optional for correctness, checkout and status polling degrade without it
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()
	if err := redisx.Ping(ctx, rdb); err != nil {
		log.Warn("redis_unavailable", zap.String("addr", cfg.RedisAddr), zap.Error(err))
	}

	// Kafka producer
	prodCtx, stopProducer := context.WithCancel(context.Background())
	defer stopProducer()
	prod := kafkax.NewProducer(cfg.KafkaBrokers, 1024, log)
	prod.Start(prodCtx)
	events := kafkax.NewEventPublisher(prod, cfg.ServiceName)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	tokens, err := auth.NewTokenMaker(cfg.JWTSecret, cfg.TokenTTL, cfg.ServiceName)
	if err != nil {
		log.Fatal("token_maker", zap.Error(err))
	}

	statusCache := &redisx.StatusCache{RDB: rdb}
	co := checkout.New(store, events, statusCache, m)
	co.Idem = &redisx.CheckoutKeys{RDB: rdb}

	srv := &httpx.Server{
		Log:      log,
		Tokens:   tokens,
		Accounts: account.New(store, tokens),
		Catalog:  catalog.New(store),
		Carts:    cart.New(store),
		Checkout: co,
		Payments: payment.New(store, gateway.New(cfg.Gateway, m)),
		Webhooks: reconcile.New(store, cfg.Gateway.WebhookToken, events, statusCache, m),
		Gateway:  cfg.Gateway,
		Dependencies: map[string]httpx.Dependency{
			"database": {Check: db.Ping},
			"redis":    {Check: func(ctx context.Context) error { return redisx.Ping(ctx, rdb) }, Optional: true},
		},
		Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}
	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpx.NewRouter(srv),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http_listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting_down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	waitErr := g.Wait()
	if waitErr != nil {
		log.Error("server_exit", zap.Error(waitErr))
	}

	prod.Close()      // tutup inbox -> flush & close writer
	prod.WaitClosed() // drain
	stopProducer()

	if waitErr != nil {
		os.Exit(1)
	}
}

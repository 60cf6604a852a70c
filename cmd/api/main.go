package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ariefcatur/go-shop-backend/internal/auth"
	"github.com/ariefcatur/go-shop-backend/internal/catalog"
	"github.com/ariefcatur/go-shop-backend/internal/config"
	"github.com/ariefcatur/go-shop-backend/internal/httpx"
	kafkax "github.com/ariefcatur/go-shop-backend/internal/kafka"
	"github.com/ariefcatur/go-shop-backend/internal/metrics"
	"github.com/ariefcatur/go-shop-backend/internal/orders"
	"github.com/ariefcatur/go-shop-backend/internal/postgres"
	"github.com/ariefcatur/go-shop-backend/internal/redisx"
	"github.com/ariefcatur/go-shop-backend/internal/users"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := config.NewLogger(os.Stdout, cfg.LogLevel, cfg.ServiceName)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	if cfg.MigrateOnStart {
		if err := postgres.Migrate(cfg.PostgresDSN); err != nil {
			log.Error("migrate", "err", err)
			os.Exit(1)
		}
	}
	db, err := postgres.Connect(ctx, cfg.PostgresDSN, cfg.PGMaxConns)
	if err != nil {
		log.Error("db connect", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producer
	prod := kafkax.NewProducer(cfg.KafkaBrokers, 1024, log)
	prod.Start(ctx)

	reg := metrics.NewRegistry()
	sessions := &auth.RedisSessions{Client: rdb}

	orderSvc := &orders.Service{
		Store:       &orders.PgStore{DB: db},
		Publisher:   prod,
		Cache:       &redisx.StatusCache{Client: rdb},
		Idempotency: &redisx.Idempotency{Client: rdb},
		Metrics:     reg,
		Log:         log,
		ServiceName: cfg.ServiceName,
	}
	catalogSvc := &catalog.Service{Repo: &catalog.PgRepo{DB: db}, Log: log}
	userSvc := &users.Service{Repo: &users.PgRepo{DB: db}, Log: log}

	router := httpx.NewRouter(log, reg, reg.Handler())
	(&httpx.OrdersHandler{Svc: orderSvc, Sessions: sessions, Log: log, Timeout: cfg.RequestTimeout}).Register(router)
	(&httpx.CatalogHandler{Svc: catalogSvc, Sessions: sessions, Log: log, Timeout: cfg.RequestTimeout}).Register(router)
	(&httpx.UsersHandler{Svc: userSvc, Sessions: sessions, Log: log, Timeout: cfg.RequestTimeout}).Register(router)

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Info("HTTP listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("listen", "err", err)
			os.Exit(1)
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel2()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Error("http shutdown", "err", err)
	}
	prod.Close() // flush queued events, then close the writer
	prod.WaitClosed()
	cancel()
}

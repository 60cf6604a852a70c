package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ariefcatur/go-shop-backend/internal/config"
	kafkax "github.com/ariefcatur/go-shop-backend/internal/kafka"
	"github.com/ariefcatur/go-shop-backend/internal/metrics"
	"github.com/ariefcatur/go-shop-backend/internal/orders"
	"github.com/ariefcatur/go-shop-backend/internal/projector"
	"github.com/ariefcatur/go-shop-backend/internal/redisx"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	name := cfg.ServiceName + "-projector"
	log := config.NewLogger(os.Stdout, cfg.LogLevel, name)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	reg := metrics.NewRegistry()
	svc := &projector.Service{
		Redis:       rdb,
		Cache:       &redisx.StatusCache{Client: rdb},
		Metrics:     reg,
		Log:         log,
		ServiceName: name,
	}

	// metrics only; the projector serves no API
	mux := http.NewServeMux()
	mux.Handle("/metrics", reg.Handler())
	srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics listen", "err", err)
		}
	}()

	// Consumer
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.ProjectorGroup, orders.Topics, cfg.ProjectorWorkers, log)
	done := make(chan struct{})
	go func() {
		defer close(done)
		log.Info("projector consumer started", "group", cfg.ProjectorGroup, "topics", orders.Topics, "workers", cfg.ProjectorWorkers)
		if err := cons.Start(ctx, svc.HandleEvent); err != nil {
			log.Error("consumer exit", "err", err)
			cancel()
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	log.Info("shutting down consumer")
	cancel()
	<-done

	ctx2, cancel2 := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
}

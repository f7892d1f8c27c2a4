package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/baharkarakas/point-ledger/internal/api"
	"github.com/baharkarakas/point-ledger/internal/api/handlers"
	"github.com/baharkarakas/point-ledger/internal/config"
	"github.com/baharkarakas/point-ledger/internal/events"
	"github.com/baharkarakas/point-ledger/internal/lock"
	"github.com/baharkarakas/point-ledger/internal/logger"
	"github.com/baharkarakas/point-ledger/internal/metrics"
	"github.com/baharkarakas/point-ledger/internal/middleware"
	repo "github.com/baharkarakas/point-ledger/internal/repository"
	"github.com/baharkarakas/point-ledger/internal/services"
	"github.com/baharkarakas/point-ledger/internal/worker"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env, cfg.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	metrics.Init()

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.close(); err != nil {
			log.Error("close stores", "err", err)
		}
	}()
	balances, histories := repo.WithLatency(st.balances, st.histories, repo.RandomDelay(cfg.StoreLatencyMax))

	pub, err := newPublisher(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := pub.Close(); err != nil {
			log.Error("close publisher", "err", err)
		}
	}()

	// the pool drains before the publisher closes
	wp := worker.NewPool(cfg.EventWorkers, 1024)
	defer wp.Stop()

	locks := lock.NewRegistry()
	locks.OnWait = func(_ int64, waited time.Duration) {
		metrics.LockWaitSeconds.Observe(waited.Seconds())
	}
	locks.OnNewKey = func(int) {
		// concurrent installs may report totals out of order
		metrics.LockKeys.Set(float64(locks.Len()))
	}

	pointSvc := services.NewPointService(locks, balances, histories,
		services.WithLogger(log),
		services.WithNotifier(events.NewDispatcher(pub, wp, log)),
	)

	limiter := middleware.NewLimiterStore(cfg.RateRPS, cfg.RateBurst)
	limiter.StartJanitor(ctx, 2*time.Minute)

	r := api.NewRouter(api.RouterDeps{
		Points:  handlers.NewPointHandler(pointSvc, log),
		Limiter: limiter,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting",
			"port", cfg.HTTPPort,
			"store", cfg.StoreBackend,
			"events", cfg.EventsDriver,
			"store_latency_max", cfg.StoreLatencyMax,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// Package app wires the query service and the ingest jobs from configuration.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/amrdc/awsapi/internal/controllers/restserver"
	"github.com/amrdc/awsapi/internal/database"
	"github.com/amrdc/awsapi/internal/log"
	"github.com/amrdc/awsapi/internal/metrics"
	"github.com/amrdc/awsapi/internal/query"
	"github.com/amrdc/awsapi/internal/storage"
	"github.com/amrdc/awsapi/internal/warehouse"
	"github.com/amrdc/awsapi/pkg/config"
)

// App is the HTTP query service.
type App struct {
	cfg    *config.ConfigData
	logger *zap.SugaredLogger
}

// New creates a new application instance.
func New(cfg *config.ConfigData, logger *zap.SugaredLogger) *App {
	return &App{cfg: cfg, logger: logger}
}

// Run serves until SIGINT, SIGTERM or ctx ends.
func (a *App) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	metrics.Register(nil)

	pool, err := database.NewPgxPool(ctx, database.PoolConfig{
		ConnectionString: a.cfg.Database.ConnectionString,
		MinConns:         a.cfg.Database.MinConns,
		MaxConns:         a.cfg.Database.MaxConns,
		MaxConnIdleTime:  a.cfg.Database.MaxConnIdleTime,
	})
	if err != nil {
		return fmt.Errorf("opening query pool: %w", err)
	}
	defer pool.Close()
	registerPoolGauges(pool)

	compiler, err := query.NewCompiler(a.cfg.Database.ReadingsTable)
	if err != nil {
		return err
	}
	svc := warehouse.New(database.NewExecutor(pool, log.Named("executor")), compiler, log.Named("warehouse"))

	health := storage.NewHealthManager()
	wg.Add(1)
	go func() {
		defer wg.Done()
		health.Monitor(ctx, "query-pool", pool, a.cfg.REST.HealthInterval, log.Named("health"))
	}()

	ctrl, err := restserver.NewController(ctx, &wg, a.cfg.REST, svc, health, log.Named("rest"))
	if err != nil {
		return err
	}
	if err := ctrl.StartController(); err != nil {
		return err
	}

	a.logger.Infow("application started", "addr", ctrl.Server.Addr, "max_conns", a.cfg.Database.MaxConns)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	select {
	case <-sigs:
		a.logger.Info("shutdown signal received, initiating graceful shutdown...")
	case <-ctx.Done():
		a.logger.Info("context cancelled, shutting down...")
	}

	cancel()
	a.logger.Info("waiting for all workers to terminate...")
	wg.Wait()
	a.logger.Info("shutdown complete")
	return nil
}

var poolGaugesOnce sync.Once

func registerPoolGauges(p database.Pool) {
	poolGaugesOnce.Do(func() {
		gauge := func(name, help string, f func(database.PoolStats) float64) prometheus.Collector {
			return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Namespace: "awsapi",
				Subsystem: "pool",
				Name:      name,
				Help:      help,
			}, func() float64 { return f(p.Stats()) })
		}
		prometheus.MustRegister(
			gauge("acquired_conns", "Connections currently checked out", func(s database.PoolStats) float64 { return float64(s.Acquired) }),
			gauge("idle_conns", "Idle connections", func(s database.PoolStats) float64 { return float64(s.Idle) }),
			gauge("max_conns", "Configured pool size", func(s database.PoolStats) float64 { return float64(s.Max) }),
		)
	})
}

package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/amrdc/awsapi/internal/ingest"
	"github.com/amrdc/awsapi/internal/log"
	"github.com/amrdc/awsapi/internal/metrics"
	"github.com/amrdc/awsapi/internal/storage"
	"github.com/amrdc/awsapi/internal/storage/readings"
	"github.com/amrdc/awsapi/pkg/config"
)

// Ingest holds the feed jobs and the store they write to.
type Ingest struct {
	Realtime   *ingest.RealtimeJob
	Historical *ingest.HistoricalJob
	store      *readings.Storage
	cfg        config.IngestData
	logger     *zap.SugaredLogger
}

// NewIngest opens the writer connection, migrates the schema and builds the
// jobs.
func NewIngest(ctx context.Context, cfg *config.ConfigData, logger *zap.SugaredLogger) (*Ingest, error) {
	if cfg.Database.WriterConnectionString == "" {
		return nil, errors.New("database writer-connection-string is required for ingest")
	}
	metrics.Register(nil)

	store, err := readings.New(ctx, cfg.Database.WriterConnectionString, cfg.Database.ReaderRole)
	if err != nil {
		return nil, fmt.Errorf("opening readings store: %w", err)
	}

	fetcher := ingest.NewFetcher(
		&http.Client{Timeout: cfg.Ingest.RequestTimeout},
		ingest.RetryConfig{MaxElapsedTime: cfg.Ingest.MaxRetryElapsed, PerAttemptTimeout: cfg.Ingest.RequestTimeout},
		log.Named("fetch"),
	)

	return &Ingest{
		Realtime: &ingest.RealtimeJob{
			Fetcher:     fetcher,
			Writer:      store,
			URLTemplate: cfg.Ingest.RealtimeURL,
			Concurrency: cfg.Ingest.Concurrency,
			Logger:      log.Named("realtime"),
		},
		Historical: &ingest.HistoricalJob{
			Fetcher:     fetcher,
			Writer:      store,
			CatalogURL:  cfg.Ingest.CatalogURL,
			Concurrency: cfg.Ingest.Concurrency,
			Logger:      log.Named("historical"),
		},
		store:  store,
		cfg:    cfg.Ingest,
		logger: logger,
	}, nil
}

// Schedule runs both jobs on their configured intervals until ctx ends, while
// monitoring the writer connection.
func (i *Ingest) Schedule(ctx context.Context) {
	health := storage.NewHealthManager()
	go health.Monitor(ctx, "writer", i.store, 0, log.Named("health"))

	ingest.NewScheduler(i.logger,
		ingest.Schedule{Job: i.Realtime, Interval: i.cfg.RealtimeInterval, RunAtStart: true},
		ingest.Schedule{Job: i.Historical, Interval: i.cfg.HistoricalInterval},
	).Run(ctx)
}

// Close releases the writer connection.
func (i *Ingest) Close() error {
	return i.store.Close()
}

// Package config loads the service configuration.
package config

import (
	"errors"
	"fmt"
	"time"
)

// ConfigProvider is a source of configuration.
type ConfigProvider interface {
	LoadConfig() (*ConfigData, error)
	Close() error
}

// ConfigData is the complete configuration.
type ConfigData struct {
	Database DatabaseData
	REST     RESTServerData
	Ingest   IngestData
}

// DatabaseData configures the query pool and the ingest writer.
type DatabaseData struct {
	// ConnectionString is used by the read-only query pool.
	ConnectionString string
	// WriterConnectionString is used by ingestion.
	WriterConnectionString string
	// ReaderRole, when set, is granted SELECT on the readings tables at migration.
	ReaderRole      string
	MinConns        int32
	MaxConns        int32
	MaxConnIdleTime time.Duration
	ReadingsTable   string
}

// RESTServerData configures the HTTP API.
type RESTServerData struct {
	ListenAddr         string
	Port               int
	StaticDir          string
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	HealthInterval     time.Duration
	AllowedOrigins     []string
	DisableCompression bool
}

// IngestData configures the feed loaders.
type IngestData struct {
	RealtimeInterval   time.Duration
	HistoricalInterval time.Duration
	Concurrency        int
	RealtimeURL        string
	CatalogURL         string
	RequestTimeout     time.Duration
	MaxRetryElapsed    time.Duration
}

// Defaults.
const (
	DefaultListenAddr         = "0.0.0.0"
	DefaultPort               = 8080
	DefaultMinConns           = 1
	DefaultMaxConns           = 100
	DefaultReadingsTable      = "aws_10min"
	DefaultRealtimeInterval   = 10 * time.Minute
	DefaultHistoricalInterval = 24 * time.Hour
	DefaultConcurrency        = 8
	DefaultRequestTimeout     = 30 * time.Second
	DefaultMaxRetryElapsed    = 2 * time.Minute
	DefaultRealtimeURL        = "https://amrc.ssec.wisc.edu/data/surface/awstext/%d.txt"
	DefaultCatalogURL         = `https://amrdcdata.ssec.wisc.edu/api/action/package_search?q=title:"quality-controlled+observational+data"&rows=1000`
)

// ApplyDefaults fills unset fields.
func (c *ConfigData) ApplyDefaults() {
	if c.Database.MinConns == 0 {
		c.Database.MinConns = DefaultMinConns
	}
	if c.Database.MaxConns == 0 {
		c.Database.MaxConns = DefaultMaxConns
	}
	if c.Database.ReadingsTable == "" {
		c.Database.ReadingsTable = DefaultReadingsTable
	}
	if c.Database.WriterConnectionString == "" {
		c.Database.WriterConnectionString = c.Database.ConnectionString
	}

	if c.REST.ListenAddr == "" {
		c.REST.ListenAddr = DefaultListenAddr
	}
	if c.REST.Port == 0 {
		c.REST.Port = DefaultPort
	}
	if c.REST.ReadTimeout == 0 {
		c.REST.ReadTimeout = 30 * time.Second
	}
	if c.REST.WriteTimeout == 0 {
		// Downloads of the full row cap take a while.
		c.REST.WriteTimeout = 10 * time.Minute
	}
	if c.REST.HealthInterval == 0 {
		c.REST.HealthInterval = time.Minute
	}
	if len(c.REST.AllowedOrigins) == 0 {
		c.REST.AllowedOrigins = []string{"*"}
	}

	if c.Ingest.RealtimeInterval == 0 {
		c.Ingest.RealtimeInterval = DefaultRealtimeInterval
	}
	if c.Ingest.HistoricalInterval == 0 {
		c.Ingest.HistoricalInterval = DefaultHistoricalInterval
	}
	if c.Ingest.Concurrency == 0 {
		c.Ingest.Concurrency = DefaultConcurrency
	}
	if c.Ingest.RealtimeURL == "" {
		c.Ingest.RealtimeURL = DefaultRealtimeURL
	}
	if c.Ingest.CatalogURL == "" {
		c.Ingest.CatalogURL = DefaultCatalogURL
	}
	if c.Ingest.RequestTimeout == 0 {
		c.Ingest.RequestTimeout = DefaultRequestTimeout
	}
	if c.Ingest.MaxRetryElapsed == 0 {
		c.Ingest.MaxRetryElapsed = DefaultMaxRetryElapsed
	}
}

// Validate reports configuration that cannot work.
func (c *ConfigData) Validate() error {
	var errs []error
	if c.Database.ConnectionString == "" {
		errs = append(errs, errors.New("database connection-string is required"))
	}
	if c.Database.MinConns < 0 || c.Database.MaxConns < 0 {
		errs = append(errs, errors.New("database pool sizes must not be negative"))
	}
	if c.Database.MaxConns > 0 && c.Database.MinConns > c.Database.MaxConns {
		errs = append(errs, fmt.Errorf("database min-conns (%d) exceeds max-conns (%d)", c.Database.MinConns, c.Database.MaxConns))
	}
	if c.REST.Port < 0 || c.REST.Port > 65535 {
		errs = append(errs, fmt.Errorf("rest port %d out of range", c.REST.Port))
	}
	if c.Ingest.Concurrency < 0 {
		errs = append(errs, errors.New("ingest concurrency must not be negative"))
	}
	return errors.Join(errs...)
}

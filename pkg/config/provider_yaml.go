package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// YAMLProvider reads configuration from a YAML file and applies environment
// overrides on top.
type YAMLProvider struct {
	filename string
	envFiles []string
}

// NewYAMLProvider returns a provider for filename. envFiles are optional dotenv
// files loaded before environment overrides are applied.
func NewYAMLProvider(filename string, envFiles ...string) *YAMLProvider {
	return &YAMLProvider{filename: filename, envFiles: envFiles}
}

// LoadConfig reads the file, applies environment overrides and defaults, and
// validates the result.
func (y *YAMLProvider) LoadConfig() (*ConfigData, error) {
	var cfg *ConfigData
	if y.filename == "" {
		cfg = &ConfigData{}
	} else {
		raw, err := os.ReadFile(y.filename)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		cfg, err = ParseYAML(raw)
		if err != nil {
			return nil, err
		}
	}

	if err := LoadEnvFiles(y.envFiles...); err != nil {
		return nil, err
	}
	ApplyEnv(cfg, os.Getenv)
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Close is a no-op.
func (y *YAMLProvider) Close() error {
	return nil
}

// ParseYAML decodes a configuration document without applying defaults.
func ParseYAML(raw []byte) (*ConfigData, error) {
	var doc struct {
		Database DatabaseYAML   `yaml:"database"`
		REST     RESTServerYAML `yaml:"rest"`
		Ingest   IngestYAML     `yaml:"ingest"`
	}
	if err := yaml.UnmarshalStrict(raw, &doc); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	d := durations{}
	cfg := &ConfigData{
		Database: DatabaseData{
			ConnectionString:       doc.Database.ConnectionString,
			WriterConnectionString: doc.Database.WriterConnectionString,
			ReaderRole:             doc.Database.ReaderRole,
			MinConns:               doc.Database.MinConns,
			MaxConns:               doc.Database.MaxConns,
			MaxConnIdleTime:        d.parse("database.max-conn-idle-time", doc.Database.MaxConnIdleTime),
			ReadingsTable:          doc.Database.ReadingsTable,
		},
		REST: RESTServerData{
			ListenAddr:         doc.REST.ListenAddr,
			Port:               doc.REST.Port,
			StaticDir:          doc.REST.StaticDir,
			ReadTimeout:        d.parse("rest.read-timeout", doc.REST.ReadTimeout),
			WriteTimeout:       d.parse("rest.write-timeout", doc.REST.WriteTimeout),
			HealthInterval:     d.parse("rest.health-interval", doc.REST.HealthInterval),
			AllowedOrigins:     doc.REST.AllowedOrigins,
			DisableCompression: doc.REST.DisableCompression,
		},
		Ingest: IngestData{
			RealtimeInterval:   d.parse("ingest.realtime-interval", doc.Ingest.RealtimeInterval),
			HistoricalInterval: d.parse("ingest.historical-interval", doc.Ingest.HistoricalInterval),
			Concurrency:        doc.Ingest.Concurrency,
			RealtimeURL:        doc.Ingest.RealtimeURL,
			CatalogURL:         doc.Ingest.CatalogURL,
			RequestTimeout:     d.parse("ingest.request-timeout", doc.Ingest.RequestTimeout),
			MaxRetryElapsed:    d.parse("ingest.max-retry-elapsed", doc.Ingest.MaxRetryElapsed),
		},
	}
	if d.err != nil {
		return nil, d.err
	}
	return cfg, nil
}

// durations parses duration strings, keeping the first failure.
type durations struct {
	err error
}

func (d *durations) parse(field, s string) time.Duration {
	if s == "" || d.err != nil {
		return 0
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		d.err = fmt.Errorf("parsing %s: %w", field, err)
		return 0
	}
	return v
}

// DatabaseYAML is the YAML form of DatabaseData.
type DatabaseYAML struct {
	ConnectionString       string `yaml:"connection-string,omitempty"`
	WriterConnectionString string `yaml:"writer-connection-string,omitempty"`
	ReaderRole             string `yaml:"reader-role,omitempty"`
	MinConns               int32  `yaml:"min-conns,omitempty"`
	MaxConns               int32  `yaml:"max-conns,omitempty"`
	MaxConnIdleTime        string `yaml:"max-conn-idle-time,omitempty"`
	ReadingsTable          string `yaml:"readings-table,omitempty"`
}

// RESTServerYAML is the YAML form of RESTServerData.
type RESTServerYAML struct {
	ListenAddr         string   `yaml:"listen-addr,omitempty"`
	Port               int      `yaml:"port,omitempty"`
	StaticDir          string   `yaml:"static-dir,omitempty"`
	ReadTimeout        string   `yaml:"read-timeout,omitempty"`
	WriteTimeout       string   `yaml:"write-timeout,omitempty"`
	HealthInterval     string   `yaml:"health-interval,omitempty"`
	AllowedOrigins     []string `yaml:"allowed-origins,omitempty"`
	DisableCompression bool     `yaml:"disable-compression,omitempty"`
}

// IngestYAML is the YAML form of IngestData.
type IngestYAML struct {
	RealtimeInterval   string `yaml:"realtime-interval,omitempty"`
	HistoricalInterval string `yaml:"historical-interval,omitempty"`
	Concurrency        int    `yaml:"concurrency,omitempty"`
	RealtimeURL        string `yaml:"realtime-url,omitempty"`
	CatalogURL         string `yaml:"catalog-url,omitempty"`
	RequestTimeout     string `yaml:"request-timeout,omitempty"`
	MaxRetryElapsed    string `yaml:"max-retry-elapsed,omitempty"`
}

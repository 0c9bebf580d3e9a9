package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"

	"github.com/joho/godotenv"
)

// Environment variables understood by ApplyEnv.
const (
	EnvHost           = "POSTGRES_HOST"
	EnvPort           = "POSTGRES_PORT"
	EnvDatabase       = "POSTGRES_DB"
	EnvClientUser     = "CLIENT_USER"
	EnvClientPassword = "CLIENT_PASSWORD"
	EnvWriterUser     = "POSTGRES_USER"
	EnvWriterPassword = "POSTGRES_PASSWORD"
	EnvListenPort     = "AWSAPI_PORT"
)

// LoadEnvFiles loads dotenv files into the process environment without
// overriding variables that are already set. Missing files are skipped.
func LoadEnvFiles(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv builds connection strings from the POSTGRES_* and CLIENT_* variables
// when the configuration does not name them. The query pool connects as the
// client user; ingestion as the postgres user.
func ApplyEnv(c *ConfigData, getenv func(string) string) {
	host := getenv(EnvHost)
	if host != "" {
		port := getenv(EnvPort)
		if port == "" {
			port = "5432"
		}
		db := getenv(EnvDatabase)

		if c.Database.ConnectionString == "" && getenv(EnvClientUser) != "" {
			c.Database.ConnectionString = connString(host, port, db, getenv(EnvClientUser), getenv(EnvClientPassword))
		}
		if c.Database.WriterConnectionString == "" && getenv(EnvWriterUser) != "" {
			c.Database.WriterConnectionString = connString(host, port, db, getenv(EnvWriterUser), getenv(EnvWriterPassword))
		}
		if c.Database.ReaderRole == "" && getenv(EnvClientUser) != "" {
			c.Database.ReaderRole = getenv(EnvClientUser)
		}
	}

	if p := getenv(EnvListenPort); p != "" {
		var port int
		if _, err := fmt.Sscanf(p, "%d", &port); err == nil {
			c.REST.Port = port
		}
	}
}

func connString(host, port, db, user, password string) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(user, password),
		Host:   net.JoinHostPort(host, port),
		Path:   "/" + db,
	}
	return u.String()
}

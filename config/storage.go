package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/syssam/entmeta/dialect"
	"github.com/syssam/entmeta/dialect/sql"
)

// Storage is the connection of one storage.
type Storage struct {
	// Dialect is mysql, postgres or sqlite.
	Dialect string `yaml:"dialect"`
	// DSN is the data source name, in the format of the dialect driver.
	DSN string `yaml:"dsn"`
	// SlowQuery enables query statistics; queries slower than it are
	// logged.
	SlowQuery SlowQuery `yaml:"slow_query,omitempty"`
}

// Database validates the DSN and returns the database it names: the
// schema for mysql, the dbname for postgres and the file for sqlite.
func (s *Storage) Database() (string, error) {
	switch dialect.Normalize(s.Dialect) {
	case dialect.MySQL:
		cfg, err := mysql.ParseDSN(s.DSN)
		if err != nil {
			return "", err
		}
		if cfg.DBName == "" {
			return "", fmt.Errorf("mysql dsn %q names no database", s.DSN)
		}
		return cfg.DBName, nil
	case dialect.Postgres:
		return postgresDatabase(s.DSN)
	case dialect.SQLite:
		return sqliteFile(s.DSN)
	}
	return "", fmt.Errorf("unsupported dialect %q", s.Dialect)
}

// postgresDatabase reads dbname from a URL or a key/value connection
// string.
func postgresDatabase(dsn string) (string, error) {
	kv := dsn
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		var err error
		if kv, err = pq.ParseURL(dsn); err != nil {
			return "", err
		}
	}
	for _, f := range strings.Fields(kv) {
		k, v, ok := strings.Cut(f, "=")
		if ok && k == "dbname" {
			return strings.Trim(v, "'"), nil
		}
	}
	return "", fmt.Errorf("postgres dsn %q names no database", dsn)
}

func sqliteFile(dsn string) (string, error) {
	file, _, _ := strings.Cut(strings.TrimPrefix(dsn, "file:"), "?")
	if file == "" {
		return "", fmt.Errorf("sqlite dsn %q names no file", dsn)
	}
	if u, err := url.PathUnescape(file); err == nil {
		file = u
	}
	return file, nil
}

// driverName returns the database/sql driver registered for the dialect.
func (s *Storage) driverName() string {
	switch d := dialect.Normalize(s.Dialect); d {
	case dialect.MySQL, dialect.SQLite:
		return d
	}
	return "postgres"
}

// Open connects to the storage called name. With SlowQuery set, the driver
// counts statements and logs the slow ones to logger.
func (s *Storage) Open(name string, logger *slog.Logger) (dialect.Driver, error) {
	if _, err := s.Database(); err != nil {
		return nil, err
	}
	drv, err := sql.Open(s.driverName(), s.DSN)
	if err != nil {
		return nil, err
	}
	if s.SlowQuery <= 0 {
		return drv, nil
	}
	return sql.NewStatsDriver(drv,
		sql.WithSlowThreshold(time.Duration(s.SlowQuery)),
		sql.WithStatsLogger(logger),
		sql.WithStorageName(name),
	), nil
}

// Open connects to the named storage.
func (c *Config) Open(name string, logger *slog.Logger) (dialect.Driver, error) {
	s, ok := c.Storages[name]
	if !ok || s == nil {
		return nil, fmt.Errorf("config: storage %q is not configured", name)
	}
	drv, err := s.Open(name, logger)
	if err != nil {
		return nil, fmt.Errorf("config: storage %q: %w", name, err)
	}
	return drv, nil
}

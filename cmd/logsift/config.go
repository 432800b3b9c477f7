package main

import (
	"time"

	"github.com/tinytelemetry/logsift/internal/duckdb"
	"github.com/tinytelemetry/logsift/internal/httpserver"
	"github.com/tinytelemetry/logsift/internal/model"
)

const (
	defaultBindHost            = model.DefaultBindHost
	defaultTCPPort             = model.DefaultTCPPort
	defaultAPIPort             = model.DefaultAPIPort
	defaultAPIMaxBody          = httpserver.DefaultMaxBody
	defaultQueryTimeout        = model.DefaultQueryTimeout
	defaultMaxConcurrentReads  = 8
	defaultInsertBatchSize     = 256
	defaultInsertFlushInterval = 500 * time.Millisecond
	defaultInsertFlushQueue    = duckdb.DefaultFlushQueueSize
	defaultHistoryRetention    = 30 // days, 0 = keep forever
)

// appConfig is internal runtime configuration.
// It is package-private to keep defaults and shape local to the CLI entrypoint.
type appConfig struct {
	TCPPort           int           `mapstructure:"tcp-port"`
	TCPAddr           string        `mapstructure:"tcp-addr"`
	TCPMaxConnections int           `mapstructure:"tcp-max-connections"`
	TCPReadTimeout    time.Duration `mapstructure:"tcp-read-timeout"`
	TCPMaxPayload     int64         `mapstructure:"tcp-max-payload"`

	APIEnabled     bool   `mapstructure:"api-enabled"`
	APIPort        int    `mapstructure:"api-port"`
	APIAddr        string `mapstructure:"api-addr"`
	APIMaxBody     int64  `mapstructure:"api-max-body"`
	MetricsEnabled bool   `mapstructure:"metrics-enabled"`

	HistoryEnabled      bool          `mapstructure:"history-enabled"`
	DBPath              string        `mapstructure:"db-path"`
	HistoryRetention    int           `mapstructure:"history-retention"`
	QueryTimeout        time.Duration `mapstructure:"query-timeout"`
	MaxConcurrentReads  int           `mapstructure:"max-concurrent-queries"`
	InsertBatchSize     int           `mapstructure:"insert-batch-size"`
	InsertFlushInterval time.Duration `mapstructure:"insert-flush-interval"`
	InsertFlushQueue    int           `mapstructure:"insert-flush-queue-size"`

	ConfigPath string `mapstructure:"-"` // not from config file
}

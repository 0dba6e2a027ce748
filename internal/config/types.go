// Package config loads the server configuration from defaults, a YAML file,
// MODELGRAPH_* environment variables and command line flags, and validates it.
package config

import (
	"time"

	"modelgraph/internal/naming"
	"modelgraph/internal/observability"
)

// Config holds the application configuration.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Schema        SchemaConfig        `mapstructure:"schema"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port               int           `mapstructure:"port"`
	GraphQLPath        string        `mapstructure:"graphql_path"`
	GraphiQLEnabled    bool          `mapstructure:"graphiql_enabled"`
	ReadTimeout        time.Duration `mapstructure:"read_timeout"`
	WriteTimeout       time.Duration `mapstructure:"write_timeout"`
	IdleTimeout        time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout    time.Duration `mapstructure:"shutdown_timeout"`
	HealthCheckTimeout time.Duration `mapstructure:"health_check_timeout"`
	CORS               CORSConfig    `mapstructure:"cors"`
}

// CORSConfig holds the cross-origin policy of the GraphQL endpoint.
type CORSConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposeHeaders    []string `mapstructure:"expose_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// PoolConfig holds connection pool parameters.
type PoolConfig struct {
	MaxOpen     int           `mapstructure:"max_open"`
	MaxIdle     int           `mapstructure:"max_idle"`
	MaxLifetime time.Duration `mapstructure:"max_lifetime"`
}

// DatabaseConfig holds database connection parameters.
type DatabaseConfig struct {
	// Driver is mysql, sqlite or postgres.
	Driver string `mapstructure:"driver"`
	// ConnectionString is a complete driver DSN. When set it overrides the
	// discrete fields below.
	ConnectionString string `mapstructure:"dsn"`

	Host string `mapstructure:"host"`
	// Port 0 selects the driver's default port.
	Port int    `mapstructure:"port"`
	User string `mapstructure:"user"`
	// Password is ignored when PasswordFile is set. PasswordFile "-" reads
	// stdin, prompting without echo on a terminal.
	Password     string `mapstructure:"password"`
	PasswordFile string `mapstructure:"password_file"`
	// Database is the schema name, or the file path for sqlite.
	Database string `mapstructure:"database"`
	// SSLMode is passed to postgres as sslmode.
	SSLMode string `mapstructure:"sslmode"`

	Pool PoolConfig `mapstructure:"pool"`

	ConnectionTimeout       time.Duration `mapstructure:"connection_timeout"`
	ConnectionRetryInterval time.Duration `mapstructure:"connection_retry_interval"`

	// Bootstrap creates the catalog tables at startup; Seed inserts the
	// example rows after that.
	Bootstrap bool `mapstructure:"bootstrap"`
	Seed      bool `mapstructure:"seed"`
}

// SchemaConfig controls how the GraphQL schema is generated and executed.
type SchemaConfig struct {
	// EagerStrategy is joined or selectin.
	EagerStrategy   string            `mapstructure:"eager_strategy"`
	BatchSize       int               `mapstructure:"batch_size"`
	PluralOverrides map[string]string `mapstructure:"plural_overrides"`
}

// Naming returns the naming configuration for the schema.
func (s SchemaConfig) Naming() naming.Config {
	cfg := naming.DefaultConfig()
	for singular, plural := range s.PluralOverrides {
		cfg.PluralOverrides[singular] = plural
	}
	return cfg
}

// LoggingConfig holds logging parameters.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
	// ExportsEnabled also sends records to the OTLP log exporter.
	ExportsEnabled bool `mapstructure:"exports_enabled"`
}

// ObservabilityConfig holds metrics and tracing parameters.
type ObservabilityConfig struct {
	ServiceName      string     `mapstructure:"service_name"`
	ServiceVersion   string     `mapstructure:"service_version"`
	Environment      string     `mapstructure:"environment"`
	MetricsEnabled   bool       `mapstructure:"metrics_enabled"`
	TracingEnabled   bool       `mapstructure:"tracing_enabled"`
	TraceSampleRatio float64    `mapstructure:"trace_sample_ratio"`
	OTLP             OTLPConfig `mapstructure:"otlp"`
}

// OTLPConfig holds the exporter settings shared by traces and logs.
type OTLPConfig struct {
	Endpoint     string            `mapstructure:"endpoint"`
	Protocol     string            `mapstructure:"protocol"` // grpc, http/protobuf
	Insecure     bool              `mapstructure:"insecure"`
	CAFile       string            `mapstructure:"ca_file"`
	Headers      map[string]string `mapstructure:"headers"`
	Timeout      time.Duration     `mapstructure:"timeout"`
	Compression  string            `mapstructure:"compression"` // none, gzip
	RetryEnabled bool              `mapstructure:"retry_enabled"`
}

// Telemetry converts the section into the observability package's settings.
func (o ObservabilityConfig) Telemetry() observability.Config {
	return observability.Config{
		ServiceName:      o.ServiceName,
		ServiceVersion:   o.ServiceVersion,
		Environment:      o.Environment,
		TraceSampleRatio: o.TraceSampleRatio,
		OTLP: observability.OTLPConfig{
			Endpoint:    o.OTLP.Endpoint,
			Protocol:    o.OTLP.Protocol,
			Insecure:    o.OTLP.Insecure,
			CAFile:      o.OTLP.CAFile,
			Headers:     o.OTLP.Headers,
			Timeout:     o.OTLP.Timeout,
			Compression: o.OTLP.Compression,
			Retry:       o.OTLP.RetryEnabled,
		},
	}
}

package config

import (
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"modelgraph/internal/compiler"
	"modelgraph/internal/sqlutil"
)

// ValidationError is a fatal configuration problem.
type ValidationError struct {
	Field   string
	Message string
	Hint    string
}

func (e ValidationError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s: %s (hint: %s)", e.Field, e.Message, e.Hint)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationWarning is a configuration issue the server can run with.
type ValidationWarning struct {
	Field   string
	Message string
	Hint    string
}

// ValidationResult collects validation errors and warnings.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationWarning
}

// HasErrors reports whether any error was found.
func (r *ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// Error joins all error messages.
func (r *ValidationResult) Error() string {
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

func (r *ValidationResult) fail(field, hint, format string, args ...any) {
	r.Errors = append(r.Errors, ValidationError{Field: field, Message: fmt.Sprintf(format, args...), Hint: hint})
}

func (r *ValidationResult) warn(field, hint, format string, args ...any) {
	r.Warnings = append(r.Warnings, ValidationWarning{Field: field, Message: fmt.Sprintf(format, args...), Hint: hint})
}

// Validate checks every section of the configuration.
func (c *Config) Validate() *ValidationResult {
	result := &ValidationResult{}
	c.Server.validate(result)
	c.Database.validate(result)
	c.Schema.validate(result)
	c.Logging.validate(result)
	c.Observability.validate(result, c.Logging.ExportsEnabled)
	return result
}

func (s *ServerConfig) validate(result *ValidationResult) {
	if s.Port < 1 || s.Port > 65535 {
		result.fail("server.port", "", "port %d is out of valid range (1-65535)", s.Port)
	}
	switch {
	case !strings.HasPrefix(s.GraphQLPath, "/"):
		result.fail("server.graphql_path", "use an absolute path such as /graphql", "path %q must start with /", s.GraphQLPath)
	case s.GraphQLPath == "/health" || s.GraphQLPath == "/metrics":
		result.fail("server.graphql_path", "", "path %q is reserved", s.GraphQLPath)
	}
	for field, d := range map[string]int64{
		"server.read_timeout":         int64(s.ReadTimeout),
		"server.write_timeout":        int64(s.WriteTimeout),
		"server.idle_timeout":         int64(s.IdleTimeout),
		"server.shutdown_timeout":     int64(s.ShutdownTimeout),
		"server.health_check_timeout": int64(s.HealthCheckTimeout),
	} {
		if d < 0 {
			result.fail(field, "", "timeout cannot be negative")
		}
	}

	if !s.CORS.Enabled {
		return
	}
	if len(s.CORS.AllowedOrigins) == 0 {
		result.warn("server.cors.allowed_origins", "list the browser origins that call the API", "CORS is enabled but no origins are allowed")
	}
	for _, origin := range s.CORS.AllowedOrigins {
		if strings.TrimSpace(origin) == "*" && s.CORS.AllowCredentials {
			result.warn("server.cors.allow_credentials", "list explicit origins to allow credentials", "credentials are never sent with a wildcard origin")
		}
	}
	if s.CORS.MaxAge < 0 {
		result.fail("server.cors.max_age", "", "max_age cannot be negative")
	}
}

func (d *DatabaseConfig) validate(result *ValidationResult) {
	dialect, err := d.Dialect()
	if err != nil {
		result.fail("database.driver", "use mysql, sqlite or postgres", "%v", err)
		return
	}

	if dialect != sqlutil.SQLite && d.ConnectionString == "" {
		if strings.TrimSpace(d.Host) == "" {
			result.fail("database.host", "set database.host or database.dsn", "host is required for %s", dialect)
		}
		if d.Port < 0 || d.Port > 65535 {
			result.fail("database.port", "", "port %d is out of valid range (1-65535)", d.Port)
		}
		if strings.TrimSpace(d.User) == "" {
			result.warn("database.user", "", "no database user configured")
		}
		if strings.TrimSpace(d.Database) == "" || d.Database == ":memory:" {
			result.fail("database.database", "set database.database or include it in database.dsn", "no database name configured for %s", dialect)
		}
	}
	if dialect == sqlutil.MySQL && d.ConnectionString != "" {
		if _, err := mysql.ParseDSN(d.ConnectionString); err != nil {
			result.fail("database.dsn", "use the user:pass@tcp(host:port)/db form", "invalid MySQL DSN: %v", err)
		}
	}
	if d.Password != "" && d.PasswordFile != "" {
		result.warn("database.password", "", "password_file overrides password")
	}

	if d.Pool.MaxOpen < 0 {
		result.fail("database.pool.max_open", "", "max_open cannot be negative")
	}
	if d.Pool.MaxIdle < 0 {
		result.fail("database.pool.max_idle", "", "max_idle cannot be negative")
	}
	if d.Pool.MaxIdle > d.Pool.MaxOpen && d.Pool.MaxOpen > 0 {
		result.warn("database.pool.max_idle", "idle connections will be limited to max_open", "max_idle is greater than max_open")
	}
	if d.InMemory() && d.Pool.MaxOpen != 1 {
		result.warn("database.pool.max_open", "", "in-memory sqlite always uses a single connection")
	}

	if d.ConnectionTimeout < 0 {
		result.fail("database.connection_timeout", "", "connection_timeout cannot be negative")
	}
	if d.ConnectionRetryInterval < 0 {
		result.fail("database.connection_retry_interval", "", "connection_retry_interval cannot be negative")
	}
	if d.ConnectionTimeout > 0 && d.ConnectionRetryInterval == 0 {
		result.fail("database.connection_retry_interval",
			"set a retry interval such as 2s, or set connection_timeout to 0 to disable retries",
			"connection_retry_interval must be greater than 0 when connection_timeout is set")
	}
	if d.ConnectionTimeout > 0 && d.ConnectionRetryInterval > d.ConnectionTimeout {
		result.warn("database.connection_retry_interval", "only one connection attempt will be made",
			"connection_retry_interval is greater than connection_timeout")
	}

	if d.Seed && !d.Bootstrap {
		result.warn("database.seed", "enable database.bootstrap unless the tables already exist", "seed runs without bootstrap")
	}
	if d.InMemory() && !d.Bootstrap {
		result.warn("database.bootstrap", "", "an in-memory database without bootstrap has no tables")
	}
}

func (s *SchemaConfig) validate(result *ValidationResult) {
	if _, err := compiler.ParseStrategy(s.EagerStrategy); err != nil {
		result.fail("schema.eager_strategy", "use joined or selectin", "%v", err)
	}
	if s.BatchSize < 1 {
		result.fail("schema.batch_size", "", "batch_size must be at least 1")
	}
	for singular, plural := range s.PluralOverrides {
		if strings.TrimSpace(singular) == "" || strings.TrimSpace(plural) == "" {
			result.fail("schema.plural_overrides", "", "override %q -> %q has an empty side", singular, plural)
		}
	}
}

func (l *LoggingConfig) validate(result *ValidationResult) {
	switch strings.ToLower(strings.TrimSpace(l.Level)) {
	case "debug", "info", "warn", "warning", "error":
	default:
		result.fail("logging.level", "use debug, info, warn or error", "unknown log level %q", l.Level)
	}
	switch l.Format {
	case "json", "text":
	default:
		result.fail("logging.format", "use json or text", "unknown log format %q", l.Format)
	}
}

func (o *ObservabilityConfig) validate(result *ValidationResult, logExports bool) {
	if o.TraceSampleRatio < 0 || o.TraceSampleRatio > 1 {
		result.fail("observability.trace_sample_ratio", "", "ratio %v must be between 0 and 1", o.TraceSampleRatio)
	}
	if strings.TrimSpace(o.ServiceName) == "" {
		result.warn("observability.service_name", "", "empty service name; %q is used", "modelgraph")
	}
	if !o.TracingEnabled && !logExports {
		return
	}
	if strings.TrimSpace(o.OTLP.Endpoint) == "" {
		result.fail("observability.otlp.endpoint", "set the collector address, e.g. localhost:4317", "endpoint is required when OTLP export is enabled")
	}
	switch strings.ToLower(o.OTLP.Protocol) {
	case "", "grpc", "http", "http/protobuf":
	default:
		result.fail("observability.otlp.protocol", "use grpc or http/protobuf", "unsupported protocol %q", o.OTLP.Protocol)
	}
	switch o.OTLP.Compression {
	case "", "none", "gzip":
	default:
		result.fail("observability.otlp.compression", "use none or gzip", "unsupported compression %q", o.OTLP.Compression)
	}
	if o.OTLP.Timeout < 0 {
		result.fail("observability.otlp.timeout", "", "timeout cannot be negative")
	}
	if o.OTLP.Insecure && o.OTLP.CAFile != "" {
		result.warn("observability.otlp.ca_file", "", "ca_file is ignored when insecure is set")
	}
}

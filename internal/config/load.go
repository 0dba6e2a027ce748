package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

// EnvPrefix prefixes every environment variable, e.g. MODELGRAPH_SERVER_PORT.
const EnvPrefix = "MODELGRAPH"

// stdinPath selects stdin for password_file.
const stdinPath = "-"

// ErrHelp is returned when the arguments asked for usage.
var ErrHelp = pflag.ErrHelp

// Options carries the flags that are not configuration keys.
type Options struct {
	ConfigFile  string
	ShowVersion bool
}

// Load reads configuration with the following precedence, highest first:
// explicitly set flags, MODELGRAPH_* environment variables, the config file,
// and defaults.
func Load(args []string) (*Config, Options, error) {
	return load(args, os.Stdin)
}

func load(args []string, stdin *os.File) (*Config, Options, error) {
	var opts Options
	v := viper.New()
	setDefaults(v)

	flags := newFlagSet()
	if err := flags.Parse(args); err != nil {
		return nil, opts, err
	}
	opts.ConfigFile, _ = flags.GetString("config")
	opts.ShowVersion, _ = flags.GetBool("version")
	if opts.ShowVersion {
		return nil, opts, nil
	}

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigName("modelgraph")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/modelgraph/")
		v.AddConfigPath("$HOME/.modelgraph")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.ConfigFile != "" || !errors.As(err, &notFound) {
			return nil, opts, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	bindChangedFlags(v, flags)

	if path := strings.TrimSpace(v.GetString("database.password_file")); path != "" {
		pwd, err := readSecret(path, stdin)
		if err != nil {
			return nil, opts, fmt.Errorf("failed to read database password: %w", err)
		}
		v.Set("database.password", pwd)
	}

	var cfg Config
	if err := v.UnmarshalExact(&cfg, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			stringToStringSliceHookFunc(","),
		),
	)); err != nil {
		return nil, opts, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, opts, nil
}

// bindChangedFlags copies only flags set on the command line into v, so an
// unset flag's zero value never shadows env or file settings.
func bindChangedFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.Visit(func(f *pflag.Flag) {
		if f.Name == "config" || f.Name == "version" {
			return
		}
		switch f.Value.Type() {
		case "int":
			val, _ := flags.GetInt(f.Name)
			v.Set(f.Name, val)
		case "bool":
			val, _ := flags.GetBool(f.Name)
			v.Set(f.Name, val)
		case "float64":
			val, _ := flags.GetFloat64(f.Name)
			v.Set(f.Name, val)
		case "duration":
			val, _ := flags.GetDuration(f.Name)
			v.Set(f.Name, val)
		case "stringSlice":
			val, _ := flags.GetStringSlice(f.Name)
			v.Set(f.Name, val)
		default:
			v.Set(f.Name, f.Value.String())
		}
	})
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("modelgraph", pflag.ContinueOnError)

	fs.StringP("config", "c", "", "Config file path")
	fs.Bool("version", false, "Print version and exit")

	fs.String("database.driver", "", "Database driver (mysql, sqlite, postgres)")
	fs.String("database.dsn", "", "Complete driver DSN; overrides the discrete connection flags")
	fs.String("database.host", "", "Database host")
	fs.Int("database.port", 0, "Database port (0 = driver default)")
	fs.String("database.user", "", "Database user")
	fs.String("database.password", "", "Database password")
	fs.String("database.password_file", "", "File holding the database password (- reads stdin)")
	fs.String("database.database", "", "Database name, or file path for sqlite")
	fs.String("database.sslmode", "", "Postgres sslmode")
	fs.Int("database.pool.max_open", 0, "Maximum open database connections")
	fs.Int("database.pool.max_idle", 0, "Maximum idle database connections")
	fs.Duration("database.pool.max_lifetime", 0, "Connection max lifetime")
	fs.Duration("database.connection_timeout", 0, "Max time to wait for the database on startup (0 = fail immediately)")
	fs.Duration("database.connection_retry_interval", 0, "Initial interval between connection retries")
	fs.Bool("database.bootstrap", false, "Create the catalog tables at startup")
	fs.Bool("database.seed", false, "Insert the example catalog rows at startup")

	fs.String("schema.eager_strategy", "", "Eager loading strategy (joined, selectin)")
	fs.Int("schema.batch_size", 0, "Maximum keys per selectin batch")

	fs.Int("server.port", 0, "HTTP server port")
	fs.String("server.graphql_path", "", "Path of the GraphQL endpoint")
	fs.Bool("server.graphiql_enabled", false, "Serve GraphiQL on GET requests to the GraphQL endpoint")
	fs.Duration("server.read_timeout", 0, "HTTP server read timeout")
	fs.Duration("server.write_timeout", 0, "HTTP server write timeout")
	fs.Duration("server.idle_timeout", 0, "HTTP server idle timeout")
	fs.Duration("server.shutdown_timeout", 0, "Graceful shutdown timeout")
	fs.Duration("server.health_check_timeout", 0, "Database ping timeout for /health")
	fs.Bool("server.cors.enabled", false, "Enable CORS")
	fs.StringSlice("server.cors.allowed_origins", nil, "Allowed CORS origins")

	fs.String("logging.level", "", "Log level (debug, info, warn, error)")
	fs.String("logging.format", "", "Log format (json, text)")
	fs.Bool("logging.exports_enabled", false, "Export logs over OTLP")

	fs.String("observability.service_name", "", "service.name resource attribute")
	fs.String("observability.environment", "", "deployment.environment resource attribute")
	fs.Bool("observability.metrics_enabled", false, "Serve Prometheus metrics on /metrics")
	fs.Bool("observability.tracing_enabled", false, "Export traces over OTLP")
	fs.Float64("observability.trace_sample_ratio", 0, "Trace sampling ratio from 0.0 to 1.0")
	fs.String("observability.otlp.endpoint", "", "OTLP endpoint")
	fs.String("observability.otlp.protocol", "", "OTLP protocol (grpc, http/protobuf)")
	fs.Bool("observability.otlp.insecure", false, "Disable TLS for OTLP")

	return fs
}

// setDefaults sets default values (lowest precedence). The defaults serve the
// example catalog from an in-memory SQLite database.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.graphql_path", "/graphql")
	v.SetDefault("server.graphiql_enabled", false)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.health_check_timeout", 2*time.Second)
	v.SetDefault("server.cors.enabled", false)
	v.SetDefault("server.cors.allowed_origins", []string{})
	v.SetDefault("server.cors.allowed_methods", []string{"GET", "POST", "OPTIONS"})
	v.SetDefault("server.cors.allowed_headers", []string{"Content-Type", "X-Request-ID"})
	v.SetDefault("server.cors.expose_headers", []string{"X-Request-ID"})
	v.SetDefault("server.cors.allow_credentials", false)
	v.SetDefault("server.cors.max_age", 86400)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 0)
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.password_file", "")
	v.SetDefault("database.database", ":memory:")
	v.SetDefault("database.sslmode", "")
	v.SetDefault("database.pool.max_open", 25)
	v.SetDefault("database.pool.max_idle", 5)
	v.SetDefault("database.pool.max_lifetime", 5*time.Minute)
	v.SetDefault("database.connection_timeout", 60*time.Second)
	v.SetDefault("database.connection_retry_interval", 2*time.Second)
	v.SetDefault("database.bootstrap", true)
	v.SetDefault("database.seed", true)

	v.SetDefault("schema.eager_strategy", "joined")
	v.SetDefault("schema.batch_size", 1000)
	v.SetDefault("schema.plural_overrides", map[string]string{})

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.exports_enabled", false)

	v.SetDefault("observability.service_name", "modelgraph")
	v.SetDefault("observability.service_version", "")
	v.SetDefault("observability.environment", "development")
	v.SetDefault("observability.metrics_enabled", true)
	v.SetDefault("observability.tracing_enabled", false)
	v.SetDefault("observability.trace_sample_ratio", 1.0)
	v.SetDefault("observability.otlp.endpoint", "localhost:4317")
	v.SetDefault("observability.otlp.protocol", "grpc")
	v.SetDefault("observability.otlp.insecure", false)
	v.SetDefault("observability.otlp.ca_file", "")
	v.SetDefault("observability.otlp.headers", map[string]string{})
	v.SetDefault("observability.otlp.timeout", 10*time.Second)
	v.SetDefault("observability.otlp.compression", "gzip")
	v.SetDefault("observability.otlp.retry_enabled", true)
}

// readSecret reads a trimmed secret from path, or from in when path is "-".
// A terminal on in is prompted without echo.
func readSecret(path string, in *os.File) (string, error) {
	if path != stdinPath {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(data)), nil
	}

	if fd := int(in.Fd()); term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, "Enter database password: ")
		pwd, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return string(pwd), nil
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func stringToStringSliceHookFunc(sep string) mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if from.Kind() != reflect.String || to != reflect.TypeOf([]string{}) {
			return data, nil
		}
		raw := strings.TrimSpace(data.(string))
		if raw == "" {
			return []string{}, nil
		}
		parts := strings.Split(raw, sep)
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts, nil
	}
}

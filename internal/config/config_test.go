package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modelgraph/internal/sqlutil"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, opts, err := load([]string{"--config", writeFile(t, "modelgraph.yaml", "{}\n")}, nil)
	require.NoError(t, err)
	assert.False(t, opts.ShowVersion)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "/graphql", cfg.Server.GraphQLPath)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, ":memory:", cfg.Database.Database)
	assert.True(t, cfg.Database.Bootstrap)
	assert.True(t, cfg.Database.Seed)
	assert.Equal(t, "joined", cfg.Schema.EagerStrategy)
	assert.Equal(t, 1000, cfg.Schema.BatchSize)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, []string{"GET", "POST", "OPTIONS"}, cfg.Server.CORS.AllowedMethods)
	assert.Equal(t, "grpc", cfg.Observability.OTLP.Protocol)
}

func TestLoad_Precedence(t *testing.T) {
	file := writeFile(t, "modelgraph.yaml", `
server:
  port: 7000
  graphql_path: /api/graphql
database:
  driver: postgres
  host: db.internal
  database: films
  pool:
    max_open: 10
schema:
  eager_strategy: selectin
  plural_overrides:
    Person: People
logging:
  level: debug
`)
	t.Setenv("MODELGRAPH_SERVER_PORT", "7100")
	t.Setenv("MODELGRAPH_DATABASE_POOL_MAX_OPEN", "12")
	t.Setenv("MODELGRAPH_SERVER_CORS_ALLOWED_ORIGINS", "http://a.example, http://b.example")

	cfg, _, err := load([]string{"--config", file, "--server.port=7200", "--schema.batch_size", "50"}, nil)
	require.NoError(t, err)

	assert.Equal(t, 7200, cfg.Server.Port, "flag beats env")
	assert.Equal(t, 12, cfg.Database.Pool.MaxOpen, "env beats file")
	assert.Equal(t, "/api/graphql", cfg.Server.GraphQLPath, "file beats default")
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "selectin", cfg.Schema.EagerStrategy)
	assert.Equal(t, 50, cfg.Schema.BatchSize)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.Server.CORS.AllowedOrigins)
	assert.Equal(t, "People", cfg.Schema.Naming().PluralOverrides["person"], "viper folds map keys")
}

func TestLoad_Errors(t *testing.T) {
	t.Run("unknown key", func(t *testing.T) {
		file := writeFile(t, "modelgraph.yaml", "server:\n  portt: 1\n")
		_, _, err := load([]string{"--config", file}, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to unmarshal config")
	})

	t.Run("missing explicit file", func(t *testing.T) {
		_, _, err := load([]string{"--config", filepath.Join(t.TempDir(), "absent.yaml")}, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read config file")
	})

	t.Run("unknown flag", func(t *testing.T) {
		_, _, err := load([]string{"--no-such-flag"}, nil)
		require.Error(t, err)
	})

	t.Run("help", func(t *testing.T) {
		_, _, err := load([]string{"--help"}, nil)
		require.ErrorIs(t, err, ErrHelp)
	})
}

func TestLoad_Version(t *testing.T) {
	cfg, opts, err := load([]string{"--version"}, nil)
	require.NoError(t, err)
	assert.Nil(t, cfg)
	assert.True(t, opts.ShowVersion)
}

func TestLoad_PasswordFile(t *testing.T) {
	t.Run("file", func(t *testing.T) {
		secret := writeFile(t, "password", "s3cret\n")
		cfg, _, err := load([]string{
			"--config", writeFile(t, "modelgraph.yaml", "{}\n"),
			"--database.password=ignored",
			"--database.password_file", secret,
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, "s3cret", cfg.Database.Password)
	})

	t.Run("stdin", func(t *testing.T) {
		in, err := os.Open(writeFile(t, "stdin", "  piped-password \n"))
		require.NoError(t, err)
		defer in.Close()

		cfg, _, err := load([]string{
			"--config", writeFile(t, "modelgraph.yaml", "{}\n"),
			"--database.password_file=-",
		}, in)
		require.NoError(t, err)
		assert.Equal(t, "piped-password", cfg.Database.Password)
	})

	t.Run("missing file", func(t *testing.T) {
		_, _, err := load([]string{
			"--config", writeFile(t, "modelgraph.yaml", "{}\n"),
			"--database.password_file", filepath.Join(t.TempDir(), "absent"),
		}, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read database password")
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Run("mysql discrete fields", func(t *testing.T) {
		d := DatabaseConfig{Driver: "mysql", Host: "db.example.com", User: "admin", Password: "p@ss:w0rd!", Database: "films"}
		dsn, err := d.DSN()
		require.NoError(t, err)

		parsed, err := mysql.ParseDSN(dsn)
		require.NoError(t, err)
		assert.Equal(t, "admin", parsed.User)
		assert.Equal(t, "p@ss:w0rd!", parsed.Passwd)
		assert.Equal(t, "db.example.com:3306", parsed.Addr)
		assert.Equal(t, "films", parsed.DBName)
		assert.True(t, parsed.ParseTime)
	})

	t.Run("mysql dsn gets parseTime", func(t *testing.T) {
		d := DatabaseConfig{Driver: "mysql", ConnectionString: "root@tcp(localhost:4000)/test"}
		dsn, err := d.DSN()
		require.NoError(t, err)
		parsed, err := mysql.ParseDSN(dsn)
		require.NoError(t, err)
		assert.True(t, parsed.ParseTime)
		assert.Equal(t, "localhost:4000", parsed.Addr)
	})

	t.Run("mysql invalid dsn", func(t *testing.T) {
		d := DatabaseConfig{Driver: "mysql", ConnectionString: "not a dsn"}
		_, err := d.DSN()
		require.Error(t, err)
	})

	tests := []struct {
		name string
		cfg  DatabaseConfig
		want string
	}{
		{
			name: "postgres discrete fields",
			cfg:  DatabaseConfig{Driver: "postgres", Host: "pg", Port: 6543, User: "app", Password: "pw", Database: "films", SSLMode: "disable"},
			want: "postgres://app:pw@pg:6543/films?sslmode=disable",
		},
		{
			name: "postgres default port without password",
			cfg:  DatabaseConfig{Driver: "postgresql", Host: "pg", User: "app", Database: "films"},
			want: "postgres://app@pg:5432/films",
		},
		{
			name: "postgres dsn",
			cfg:  DatabaseConfig{Driver: "postgres", ConnectionString: "host=pg dbname=films"},
			want: "host=pg dbname=films",
		},
		{
			name: "sqlite file",
			cfg:  DatabaseConfig{Driver: "sqlite", Database: "/var/lib/films.db"},
			want: "/var/lib/films.db",
		},
		{
			name: "sqlite empty is memory",
			cfg:  DatabaseConfig{Driver: "sqlite3"},
			want: ":memory:",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cfg.DSN()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDatabaseConfig_DialectAndMemory(t *testing.T) {
	d := DatabaseConfig{Driver: "SQLite", Database: ":memory:"}
	dialect, err := d.Dialect()
	require.NoError(t, err)
	assert.Equal(t, sqlutil.SQLite, dialect)
	assert.True(t, d.InMemory())

	assert.True(t, (&DatabaseConfig{Driver: "sqlite", ConnectionString: "file:films?mode=memory&cache=shared"}).InMemory())
	assert.False(t, (&DatabaseConfig{Driver: "sqlite", Database: "films.db"}).InMemory())
	assert.False(t, (&DatabaseConfig{Driver: "mysql"}).InMemory())

	_, err = (&DatabaseConfig{Driver: "oracle"}).Dialect()
	require.Error(t, err)
}

func TestObservabilityConfig_Telemetry(t *testing.T) {
	o := ObservabilityConfig{
		ServiceName:      "films",
		TraceSampleRatio: 0.25,
		OTLP:             OTLPConfig{Endpoint: "collector:4317", Protocol: "grpc", RetryEnabled: true, Timeout: time.Second},
	}
	got := o.Telemetry()
	assert.Equal(t, "films", got.ServiceName)
	assert.Equal(t, 0.25, got.TraceSampleRatio)
	assert.Equal(t, "collector:4317", got.OTLP.Endpoint)
	assert.True(t, got.OTLP.Retry)
	assert.Equal(t, time.Second, got.OTLP.Timeout)
}

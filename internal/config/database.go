package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"modelgraph/internal/sqlutil"
)

var defaultPorts = map[sqlutil.Dialect]int{
	sqlutil.MySQL:    3306,
	sqlutil.Postgres: 5432,
}

// Dialect returns the validated SQL dialect of the configured driver.
func (d *DatabaseConfig) Dialect() (sqlutil.Dialect, error) {
	return sqlutil.ParseDialect(d.Driver)
}

// InMemory reports whether the database is an in-memory SQLite database.
// Every connection to one sees its own database, so the pool must hold one.
func (d *DatabaseConfig) InMemory() bool {
	dialect, err := d.Dialect()
	if err != nil || dialect != sqlutil.SQLite {
		return false
	}
	target := d.ConnectionString
	if target == "" {
		target = d.Database
	}
	return target == "" || strings.Contains(target, ":memory:") || strings.Contains(target, "mode=memory")
}

// DSN returns the data source name for the configured driver. A configured
// ConnectionString is used as given, except that MySQL always gets parseTime.
func (d *DatabaseConfig) DSN() (string, error) {
	dialect, err := d.Dialect()
	if err != nil {
		return "", err
	}

	switch dialect {
	case sqlutil.MySQL:
		return d.mysqlDSN()
	case sqlutil.Postgres:
		if d.ConnectionString != "" {
			return d.ConnectionString, nil
		}
		return d.postgresDSN(), nil
	default:
		if d.ConnectionString != "" {
			return d.ConnectionString, nil
		}
		if d.Database == "" {
			return ":memory:", nil
		}
		return d.Database, nil
	}
}

func (d *DatabaseConfig) mysqlDSN() (string, error) {
	if d.ConnectionString != "" {
		parsed, err := mysql.ParseDSN(d.ConnectionString)
		if err != nil {
			return "", fmt.Errorf("database.dsn is invalid: %w", err)
		}
		parsed.ParseTime = true
		return parsed.FormatDSN(), nil
	}

	cfg := mysql.NewConfig()
	cfg.User = d.User
	cfg.Passwd = d.Password
	cfg.Net = "tcp"
	cfg.Addr = d.address(sqlutil.MySQL)
	cfg.DBName = d.Database
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN(), nil
}

func (d *DatabaseConfig) postgresDSN() string {
	u := url.URL{
		Scheme: "postgres",
		Host:   d.address(sqlutil.Postgres),
		Path:   "/" + d.Database,
	}
	switch {
	case d.User != "" && d.Password != "":
		u.User = url.UserPassword(d.User, d.Password)
	case d.User != "":
		u.User = url.User(d.User)
	}
	if d.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {d.SSLMode}}.Encode()
	}
	return u.String()
}

func (d *DatabaseConfig) address(dialect sqlutil.Dialect) string {
	port := d.Port
	if port == 0 {
		port = defaultPorts[dialect]
	}
	return net.JoinHostPort(d.Host, strconv.Itoa(port))
}

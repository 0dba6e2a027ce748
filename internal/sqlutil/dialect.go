package sqlutil

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

// Dialect names a supported SQL backend.
type Dialect string

const (
	MySQL    Dialect = "mysql"
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

// NullsOrder places NULL values within an ordering.
type NullsOrder int

const (
	NullsDefault NullsOrder = iota
	NullsFirst
	NullsLast
)

// ParseDialect validates a dialect name.
func ParseDialect(name string) (Dialect, error) {
	switch d := Dialect(strings.ToLower(strings.TrimSpace(name))); d {
	case MySQL, SQLite, Postgres:
		return d, nil
	case "sqlite3":
		return SQLite, nil
	case "postgresql":
		return Postgres, nil
	}
	return "", fmt.Errorf("unsupported database driver %q (expected mysql, sqlite or postgres)", name)
}

// DriverName returns the database/sql driver registered for the dialect.
func (d Dialect) DriverName() string {
	return string(d)
}

// QuoteIdentifier quotes an identifier for the dialect.
func (d Dialect) QuoteIdentifier(name string) string {
	if d == Postgres {
		return QuoteIdentifierANSI(name)
	}
	return QuoteIdentifier(name)
}

// Qualify returns alias.column with the column quoted.
func (d Dialect) Qualify(alias, column string) string {
	return alias + "." + d.QuoteIdentifier(column)
}

// Placeholder returns the squirrel placeholder format for the dialect.
func (d Dialect) Placeholder() sq.PlaceholderFormat {
	if d == Postgres {
		return sq.Dollar
	}
	return sq.Question
}

// SetContains returns a predicate testing that a comma-joined collection
// column contains one element bound to a single placeholder.
func (d Dialect) SetContains(column string) string {
	switch d {
	case MySQL:
		return fmt.Sprintf("FIND_IN_SET(?, %s) > 0", column)
	case Postgres:
		return fmt.Sprintf("? = ANY(string_to_array(%s, ','))", column)
	default:
		return fmt.Sprintf("instr(',' || %s || ',', ',' || ? || ',') > 0", column)
	}
}

// OrderTerms renders ORDER BY terms for expr. MySQL has no NULLS FIRST/LAST,
// so an IS NULL key is emitted ahead of the column instead.
func (d Dialect) OrderTerms(expr string, desc bool, nulls NullsOrder) []string {
	dir := "ASC"
	if desc {
		dir = "DESC"
	}
	if nulls == NullsDefault {
		return []string{expr + " " + dir}
	}

	if d == MySQL {
		nullKey := expr + " IS NULL ASC"
		if nulls == NullsFirst {
			nullKey = expr + " IS NULL DESC"
		}
		return []string{nullKey, expr + " " + dir}
	}

	suffix := " NULLS LAST"
	if nulls == NullsFirst {
		suffix = " NULLS FIRST"
	}
	return []string{expr + " " + dir + suffix}
}

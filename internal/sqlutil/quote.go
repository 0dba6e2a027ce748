// Package sqlutil provides SQL dialect helpers: identifier quoting,
// placeholder formats and the dialect-specific fragments used by compiled queries.
package sqlutil

import "strings"

// QuoteIdentifier quotes a SQL identifier (table name, column name, etc.)
// with backticks and escapes any backticks within the identifier.
func QuoteIdentifier(name string) string {
	escaped := strings.ReplaceAll(name, "`", "``")
	return "`" + escaped + "`"
}

// QuoteIdentifierANSI quotes an identifier with double quotes.
func QuoteIdentifierANSI(name string) string {
	escaped := strings.ReplaceAll(name, `"`, `""`)
	return `"` + escaped + `"`
}

// EscapeLike escapes LIKE wildcards in s using LikeEscapeChar.
func EscapeLike(s string) string {
	r := strings.NewReplacer(
		LikeEscapeChar, LikeEscapeChar+LikeEscapeChar,
		"%", LikeEscapeChar+"%",
		"_", LikeEscapeChar+"_",
	)
	return r.Replace(s)
}

// LikeEscapeChar is accepted by every supported dialect in an ESCAPE clause.
const LikeEscapeChar = "!"

// Package naming derives generated GraphQL type, field and query names and
// table names from model names, including pluralization and reserved words.
package naming

// Config holds naming customization options
type Config struct {
	// PluralOverrides maps singular -> custom plural
	// Example: {"Person": "People", "Status": "Statuses"}
	PluralOverrides map[string]string `mapstructure:"plural_overrides"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		PluralOverrides: make(map[string]string),
	}
}

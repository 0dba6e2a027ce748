package naming

import (
	"fmt"
	"strings"
	"unicode"

	"modelgraph/internal/schemaerr"
	"modelgraph/internal/typeclass"
)

// Namer derives every generated GraphQL and SQL name from model names.
// All methods are deterministic for a given Config.
type Namer struct {
	config Config
}

// New creates a Namer with the given configuration
func New(cfg Config) *Namer {
	if cfg.PluralOverrides == nil {
		cfg.PluralOverrides = make(map[string]string)
	}
	return &Namer{config: cfg}
}

// Default returns a Namer with default configuration
func Default() *Namer {
	return New(DefaultConfig())
}

// TypeName validates and returns the GraphQL object type name for a model.
// Example: "movie" -> "Movie"
func (n *Namer) TypeName(modelName string) (string, error) {
	name := capitalize(modelName)
	if name == "" {
		return "", schemaerr.Configf("empty type name")
	}
	if isReservedTypeName(name) {
		return "", schemaerr.Configf("type name %q is reserved", name)
	}
	return name, nil
}

// FieldName converts a column or Go attribute name to a GraphQL field name (camelCase).
// Example: "imdb_rating" -> "imdbRating", "DirectorID" -> "directorId"
func (n *Namer) FieldName(name string) (string, error) {
	out := toCamelCase(ToSnakeCase(name))
	if out == "" {
		return "", schemaerr.Configf("empty field name")
	}
	if isReservedFieldName(out) {
		return "", schemaerr.Configf("field name %q is reserved", out)
	}
	return out, nil
}

// TableName derives a table name from a model type name.
// Example: "Movie" -> "movies", "UserAddress" -> "user_addresses"
func (n *Namer) TableName(typeName string) string {
	snake := ToSnakeCase(typeName)
	idx := strings.LastIndex(snake, "_")
	return snake[:idx+1] + n.Pluralize(snake[idx+1:])
}

// RootQueryName returns the root list field for an entity type.
// Example: "Movie" -> "all_Movies"
func (n *Namer) RootQueryName(typeName string) string {
	return "all_" + n.Pluralize(capitalize(typeName))
}

// SelectColumnEnumName returns the selectable-column enum name for an entity type.
// Example: "Movie" -> "MoviesSelectColumn"
func (n *Namer) SelectColumnEnumName(typeName string) string {
	return n.Pluralize(capitalize(typeName)) + "SelectColumn"
}

// OrderByTypeName returns the order-by input name for an entity type.
func (n *Namer) OrderByTypeName(typeName string) string {
	return capitalize(typeName) + "OrderBy"
}

// FilterTypeName returns the filter input name for a declared type.
// Collection wrappers contribute their element first, so [string] becomes
// StringListFilter and {int} becomes IntSetFilter. Optionality is ignored.
func FilterTypeName(t typeclass.Type) (string, error) {
	cls, err := typeclass.Classify(t)
	if err != nil {
		return "", err
	}

	switch cls.Kind {
	case typeclass.FilterEntity:
		return capitalize(cls.Base.Name) + "Filter", nil
	case typeclass.FilterCollection:
		container := "List"
		if _, ok := cls.Container.(typeclass.Set); ok {
			container = "Set"
		}
		return capitalize(cls.Base.Name) + container + "Filter", nil
	case typeclass.FilterBool, typeclass.FilterInt, typeclass.FilterFloat, typeclass.FilterString:
		return capitalize(cls.Base.Name) + "Filter", nil
	}
	return "", fmt.Errorf("no filter name for %s", t)
}

// ToSnakeCase converts PascalCase, camelCase or snake_case to snake_case,
// keeping acronyms together.
// Example: "ImageURL" -> "image_url", "DirectorID" -> "director_id"
func ToSnakeCase(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && runes[i-1] != '_' {
				prevLower := unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1])
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if prevLower || (nextLower && unicode.IsUpper(runes[i-1])) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// toCamelCase converts snake_case to camelCase
func toCamelCase(s string) string {
	parts := strings.Split(s, "_")
	for i := 1; i < len(parts); i++ {
		if len(parts[i]) > 0 {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return strings.Join(parts, "")
}

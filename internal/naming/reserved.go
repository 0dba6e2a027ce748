package naming

import "strings"

// graphqlReservedTypeWords contains GraphQL keywords, built-in types and the
// names of shared generated types.
var graphqlReservedTypeWords = map[string]bool{
	// GraphQL language keywords
	"query":        true,
	"mutation":     true,
	"subscription": true,
	"type":         true,
	"schema":       true,
	"scalar":       true,
	"enum":         true,
	"input":        true,
	"interface":    true,
	"union":        true,
	"fragment":     true,
	"directive":    true,
	"extend":       true,
	"implements":   true,
	"on":           true,

	// Built-in scalar types
	"int":     true,
	"float":   true,
	"string":  true,
	"boolean": true,
	"id":      true,

	// Boolean literals
	"true":  true,
	"false": true,
	"null":  true,

	// Shared generated types
	"orderbyenum": true,
}

// isReservedTypeName checks if a type name is reserved.
func isReservedTypeName(name string) bool {
	lowerName := strings.ToLower(name)
	if strings.HasPrefix(lowerName, "__") {
		return true
	}
	return graphqlReservedTypeWords[lowerName]
}

// isReservedFieldName checks if a field name is reserved.
func isReservedFieldName(name string) bool {
	return strings.HasPrefix(name, "__")
}

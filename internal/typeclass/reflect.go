package typeclass

import (
	"fmt"
	"reflect"
	"strings"
)

// FromReflect maps a Go type to a declared type expression.
//
// Pointers become Optional, slices become List and map[K]struct{} or
// map[K]bool become Set. Structs are entities named after the Go type.
func FromReflect(rt reflect.Type) (Type, error) {
	if rt == nil {
		return nil, fmt.Errorf("nil type")
	}

	switch rt.Kind() {
	case reflect.Pointer:
		elem, err := FromReflect(rt.Elem())
		if err != nil {
			return nil, err
		}
		return Optional{Elem: elem}, nil
	case reflect.Slice, reflect.Array:
		if rt.Elem().Kind() == reflect.Uint8 {
			return nil, fmt.Errorf("byte slices are not supported: %s", rt)
		}
		elem, err := FromReflect(rt.Elem())
		if err != nil {
			return nil, err
		}
		return List{Elem: elem}, nil
	case reflect.Map:
		switch rt.Elem().Kind() {
		case reflect.Struct:
			if rt.Elem().NumField() != 0 {
				return nil, fmt.Errorf("map values must be struct{} or bool: %s", rt)
			}
		case reflect.Bool:
		default:
			return nil, fmt.Errorf("map values must be struct{} or bool: %s", rt)
		}
		elem, err := FromReflect(rt.Key())
		if err != nil {
			return nil, err
		}
		return Set{Elem: elem}, nil
	case reflect.Bool:
		return Bool, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return Int, nil
	case reflect.Float32, reflect.Float64:
		return Float, nil
	case reflect.String:
		return String, nil
	case reflect.Struct:
		if rt.Name() == "" {
			return nil, fmt.Errorf("anonymous structs are not supported")
		}
		return Entity(rt.Name()), nil
	}
	return nil, fmt.Errorf("unsupported field type %s", rt)
}

// Parse reads the textual type form used in struct tag overrides.
//
//	int          named primitive
//	string?      optional
//	[int]        list
//	{string}     set
//	int|null     union
//	Movie        entity
func Parse(expr string) (Type, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, fmt.Errorf("empty type expression")
	}

	if alts := splitTopLevel(expr, '|'); len(alts) > 1 {
		union := Union{Alts: make([]Type, 0, len(alts))}
		for _, alt := range alts {
			parsed, err := Parse(alt)
			if err != nil {
				return nil, err
			}
			union.Alts = append(union.Alts, parsed)
		}
		return union, nil
	}

	if strings.HasSuffix(expr, "?") {
		elem, err := Parse(strings.TrimSuffix(expr, "?"))
		if err != nil {
			return nil, err
		}
		return Optional{Elem: elem}, nil
	}

	if strings.HasPrefix(expr, "[") {
		if !strings.HasSuffix(expr, "]") {
			return nil, fmt.Errorf("unterminated list in %q", expr)
		}
		elem, err := Parse(expr[1 : len(expr)-1])
		if err != nil {
			return nil, err
		}
		return List{Elem: elem}, nil
	}

	if strings.HasPrefix(expr, "{") {
		if !strings.HasSuffix(expr, "}") {
			return nil, fmt.Errorf("unterminated set in %q", expr)
		}
		elem, err := Parse(expr[1 : len(expr)-1])
		if err != nil {
			return nil, err
		}
		return Set{Elem: elem}, nil
	}

	switch expr {
	case "null":
		return Null{}, nil
	case "bool", "boolean":
		return Bool, nil
	case "int", "integer":
		return Int, nil
	case "float":
		return Float, nil
	case "string", "str":
		return String, nil
	}

	for _, r := range expr {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return nil, fmt.Errorf("invalid type name %q", expr)
		}
	}
	return Entity(expr), nil
}

func splitTopLevel(s string, sep rune) []string {
	var parts []string
	depth := 0
	start := 0
	for i, r := range s {
		switch r {
		case '[', '{':
			depth++
		case ']', '}':
			depth--
		case sep:
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

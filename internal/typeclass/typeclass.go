// Package typeclass classifies declared model field types.
//
// A declared type is a small expression tree of wrappers (optional, list, set,
// union) around named base types. The classifier answers whether a field is a
// column (scalar) or a relationship and which filter operators apply to it.
package typeclass

import (
	"errors"
	"fmt"
	"strings"
)

// ErrAmbiguousUnion is returned when a type wraps more than one non-null alternative.
var ErrAmbiguousUnion = errors.New("ambiguous union type")

// Kind identifies a named base type.
type Kind int

const (
	KindInvalid Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindEntity
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindEntity:
		return "entity"
	default:
		return "invalid"
	}
}

// IsPrimitive reports whether the kind is one of bool, int, float or string.
func (k Kind) IsPrimitive() bool {
	switch k {
	case KindBool, KindInt, KindFloat, KindString:
		return true
	}
	return false
}

// Type is a declared field type expression.
type Type interface {
	String() string
	isType()
}

// Named is a bare base type.
type Named struct {
	Name string
	Kind Kind
}

// Optional wraps a type that may be null.
type Optional struct {
	Elem Type
}

// List wraps an ordered collection.
type List struct {
	Elem Type
}

// Set wraps an unordered collection.
type Set struct {
	Elem Type
}

// Union is a set of alternatives. A union containing Null is optional.
type Union struct {
	Alts []Type
}

// Null is the null alternative of a union.
type Null struct{}

func (Named) isType()    {}
func (Optional) isType() {}
func (List) isType()     {}
func (Set) isType()      {}
func (Union) isType()    {}
func (Null) isType()     {}

func (n Named) String() string    { return n.Name }
func (o Optional) String() string { return o.Elem.String() + "?" }
func (l List) String() string     { return "[" + l.Elem.String() + "]" }
func (s Set) String() string      { return "{" + s.Elem.String() + "}" }
func (Null) String() string       { return "null" }

func (u Union) String() string {
	parts := make([]string, len(u.Alts))
	for i, alt := range u.Alts {
		parts[i] = alt.String()
	}
	return strings.Join(parts, "|")
}

// Primitive named types.
var (
	Bool   = Named{Name: "bool", Kind: KindBool}
	Int    = Named{Name: "int", Kind: KindInt}
	Float  = Named{Name: "float", Kind: KindFloat}
	String = Named{Name: "string", Kind: KindString}
)

// Entity returns a named composite type.
func Entity(name string) Named {
	return Named{Name: name, Kind: KindEntity}
}

// IsOptional reports whether t admits null.
func IsOptional(t Type) bool {
	switch v := t.(type) {
	case Optional:
		return true
	case Union:
		for _, alt := range v.Alts {
			if _, ok := alt.(Null); ok {
				return true
			}
		}
	}
	return false
}

// IsCollection reports whether t is a list or set wrapper.
func IsCollection(t Type) bool {
	switch t.(type) {
	case List, Set:
		return true
	}
	return false
}

// Unwrap strips optional, collection and nullable-union wrappers until a bare
// named type remains. Unwrapping a bare type returns it unchanged.
func Unwrap(t Type) (Named, error) {
	for {
		switch v := t.(type) {
		case Named:
			return v, nil
		case Optional:
			t = v.Elem
		case List:
			t = v.Elem
		case Set:
			t = v.Elem
		case Union:
			inner, err := nonNullAlternative(v)
			if err != nil {
				return Named{}, err
			}
			t = inner
		case Null:
			return Named{}, fmt.Errorf("type %s has no non-null alternative", v)
		default:
			return Named{}, fmt.Errorf("unsupported type expression %T", t)
		}
	}
}

func nonNullAlternative(u Union) (Type, error) {
	var found Type
	for _, alt := range u.Alts {
		if _, ok := alt.(Null); ok {
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("%w: %s", ErrAmbiguousUnion, u)
		}
		found = alt
	}
	if found == nil {
		return nil, fmt.Errorf("union %s has no non-null alternative", u)
	}
	return found, nil
}

// IsScalar reports whether the fully unwrapped type is a primitive.
// A collection of primitives is scalar.
func IsScalar(t Type) (bool, error) {
	base, err := Unwrap(t)
	if err != nil {
		return false, err
	}
	return base.Kind.IsPrimitive(), nil
}

// FilterKind selects the operator table for a field.
type FilterKind int

const (
	FilterInvalid FilterKind = iota
	FilterBool
	FilterInt
	FilterFloat
	FilterString
	FilterCollection
	FilterEntity
)

func (k FilterKind) String() string {
	switch k {
	case FilterBool:
		return "bool"
	case FilterInt:
		return "int"
	case FilterFloat:
		return "float"
	case FilterString:
		return "string"
	case FilterCollection:
		return "collection"
	case FilterEntity:
		return "entity"
	default:
		return "invalid"
	}
}

// Classification is the filter-relevant shape of a declared type.
type Classification struct {
	Kind FilterKind
	// Base is the fully unwrapped named type.
	Base Named
	// Container is the collection wrapper of a collection field: List or Set.
	Container Type
}

// Classify strips optionality and reports the filter kind of t.
// A collection of entities is an entity (relationship) classification.
func Classify(t Type) (Classification, error) {
	base, err := Unwrap(t)
	if err != nil {
		return Classification{}, err
	}
	if base.Kind == KindEntity {
		return Classification{Kind: FilterEntity, Base: base}, nil
	}

	inner, err := StripOptional(t)
	if err != nil {
		return Classification{}, err
	}
	if IsCollection(inner) {
		return Classification{Kind: FilterCollection, Base: base, Container: inner}, nil
	}

	switch base.Kind {
	case KindBool:
		return Classification{Kind: FilterBool, Base: base}, nil
	case KindInt:
		return Classification{Kind: FilterInt, Base: base}, nil
	case KindFloat:
		return Classification{Kind: FilterFloat, Base: base}, nil
	case KindString:
		return Classification{Kind: FilterString, Base: base}, nil
	}
	return Classification{}, fmt.Errorf("type %s has no filter kind", t)
}

// StripOptional removes optional and nullable-union wrappers from t.
func StripOptional(t Type) (Type, error) {
	for {
		switch v := t.(type) {
		case Optional:
			t = v.Elem
		case Union:
			inner, err := nonNullAlternative(v)
			if err != nil {
				return nil, err
			}
			t = inner
		default:
			return t, nil
		}
	}
}

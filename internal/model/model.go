// Package model holds the field-descriptor tree for declarative models.
//
// Descriptors are built once per model, either by reflecting over a tagged Go
// struct (Reflect) or directly (NewEntity). They are immutable afterwards and
// are the only view of a model the schema and query layers consume.
package model

import (
	"errors"
	"fmt"
	"reflect"

	"modelgraph/internal/schemaerr"
	"modelgraph/internal/typeclass"
)

// ErrUnknownField is returned when a GraphQL field name has no backing attribute.
var ErrUnknownField = errors.New("unknown field")

// Entity describes one model class and its backing table.
type Entity struct {
	Name   string
	Table  string
	Fields []*Field
	// GoType is the reflected struct type, if any.
	GoType reflect.Type

	byGraphQL map[string]*Field
	byColumn  map[string]*Field
	pk        *Field
}

// Field describes one declared model attribute.
type Field struct {
	// Name is the model attribute name.
	Name        string
	GraphQLName string
	// Column is empty for relationship fields.
	Column       string
	Type         typeclass.Type
	Class        typeclass.Classification
	PrimaryKey   bool
	Relationship *Relationship
}

// Relationship describes a one-hop association to another entity's rows.
// Rows match when local.LocalColumn = target.RemoteColumn.
type Relationship struct {
	Target       string
	LocalColumn  string
	RemoteColumn string
	Many         bool
}

// IsRelationship reports whether the field is a relationship property.
func (f *Field) IsRelationship() bool {
	return f.Relationship != nil
}

// IsOptional reports whether the field admits null.
func (f *Field) IsOptional() bool {
	return typeclass.IsOptional(f.Type)
}

// NewEntity indexes and validates a descriptor.
func NewEntity(name, table string, fields []*Field) (*Entity, error) {
	e := &Entity{
		Name:      name,
		Table:     table,
		Fields:    fields,
		byGraphQL: make(map[string]*Field, len(fields)),
		byColumn:  make(map[string]*Field, len(fields)),
	}
	if name == "" || table == "" {
		return nil, schemaerr.Configf("entity requires a name and a table")
	}

	for _, f := range fields {
		if err := e.addField(f); err != nil {
			return nil, err
		}
	}

	if e.pk == nil {
		return nil, schemaerr.Configf("entity %s has no primary key", name)
	}

	for _, f := range e.Relationships() {
		local, ok := e.byColumn[f.Relationship.LocalColumn]
		if !ok {
			return nil, schemaerr.Configf("relationship %s.%s references unknown local column %q",
				name, f.Name, f.Relationship.LocalColumn)
		}
		if local.Class.Kind == typeclass.FilterCollection {
			return nil, schemaerr.Configf("relationship %s.%s cannot join on collection column %q",
				name, f.Name, local.Column)
		}
	}
	return e, nil
}

func (e *Entity) addField(f *Field) error {
	if f == nil || f.GraphQLName == "" {
		return schemaerr.Configf("entity %s has a field without a GraphQL name", e.Name)
	}
	if _, dup := e.byGraphQL[f.GraphQLName]; dup {
		return schemaerr.Configf("entity %s declares field %q twice", e.Name, f.GraphQLName)
	}

	cls, err := typeclass.Classify(f.Type)
	if err != nil {
		return schemaerr.Wrap(schemaerr.KindConfig, err, fmt.Sprintf("field %s.%s", e.Name, f.Name))
	}
	f.Class = cls

	isEntity := cls.Kind == typeclass.FilterEntity
	switch {
	case isEntity && f.Relationship == nil:
		return schemaerr.Configf("field %s.%s has entity type %s but no relationship", e.Name, f.Name, f.Type)
	case !isEntity && f.Relationship != nil:
		return schemaerr.Configf("relationship %s.%s must have an entity type, got %s", e.Name, f.Name, f.Type)
	case isEntity:
		if f.Relationship.Target == "" {
			f.Relationship.Target = cls.Base.Name
		}
		inner, err := typeclass.StripOptional(f.Type)
		if err != nil {
			return schemaerr.Wrap(schemaerr.KindConfig, err, fmt.Sprintf("field %s.%s", e.Name, f.Name))
		}
		f.Relationship.Many = typeclass.IsCollection(inner)
	default:
		if f.Column == "" {
			return schemaerr.Configf("field %s.%s has no column", e.Name, f.Name)
		}
		if _, dup := e.byColumn[f.Column]; dup {
			return schemaerr.Configf("entity %s maps column %q twice", e.Name, f.Column)
		}
		e.byColumn[f.Column] = f
	}

	if f.PrimaryKey {
		if f.IsRelationship() || cls.Kind == typeclass.FilterCollection {
			return schemaerr.Configf("primary key %s.%s must be a single scalar column", e.Name, f.Name)
		}
		if e.pk != nil {
			return schemaerr.Configf("entity %s declares more than one primary key", e.Name)
		}
		e.pk = f
	}

	e.byGraphQL[f.GraphQLName] = f
	return nil
}

// Field resolves a GraphQL field name to its backing attribute.
func (e *Entity) Field(graphqlName string) (*Field, error) {
	if f, ok := e.byGraphQL[graphqlName]; ok {
		return f, nil
	}
	return nil, &schemaerr.Error{
		Kind: schemaerr.KindConfig,
		Msg:  fmt.Sprintf("type %s has no attribute for GraphQL field %q", e.Name, graphqlName),
		Err:  ErrUnknownField,
	}
}

// ColumnField returns the scalar field mapped to column.
func (e *Entity) ColumnField(column string) (*Field, bool) {
	f, ok := e.byColumn[column]
	return f, ok
}

// PrimaryKey returns the primary key field.
func (e *Entity) PrimaryKey() *Field {
	return e.pk
}

// ScalarFields returns column-backed fields in declaration order.
func (e *Entity) ScalarFields() []*Field {
	out := make([]*Field, 0, len(e.Fields))
	for _, f := range e.Fields {
		if !f.IsRelationship() {
			out = append(out, f)
		}
	}
	return out
}

// Relationships returns relationship fields in declaration order.
func (e *Entity) Relationships() []*Field {
	var out []*Field
	for _, f := range e.Fields {
		if f.IsRelationship() {
			out = append(out, f)
		}
	}
	return out
}

// FieldNames returns GraphQL field names in declaration order.
func (e *Entity) FieldNames() []string {
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = f.GraphQLName
	}
	return names
}

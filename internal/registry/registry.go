// Package registry is the schema generation context: the single place that
// maps GraphQL type names to model descriptors and owns every synthesized
// input type.
//
// A Registry is built once from the ordered root-queryable entities, eagerly
// synthesizes all filter, order-by and select-column types, and is then
// frozen. After New returns it is read-only and safe for concurrent use.
package registry

import (
	"errors"
	"fmt"

	"modelgraph/internal/filtergen"
	"modelgraph/internal/model"
	"modelgraph/internal/naming"
	"modelgraph/internal/schemaerr"
	"modelgraph/internal/typeclass"
)

// ErrUnknownType is returned when a type name has no registered entity.
var ErrUnknownType = errors.New("unknown type")

// Option configures a Registry.
type Option func(*Registry)

// WithNamer overrides the default naming rules.
func WithNamer(n *naming.Namer) Option {
	return func(r *Registry) {
		if n != nil {
			r.namer = n
		}
	}
}

// Registry holds the generation context for one schema.
type Registry struct {
	namer    *naming.Namer
	entities []*model.Entity
	byName   map[string]*model.Entity
	types    *filtergen.Types

	filters  map[string]*filtergen.EntityFilter
	orderBys map[string]*filtergen.OrderBy
	selects  map[string]*filtergen.SelectColumns
}

// New validates the entities, synthesizes their input types and freezes the
// result. Entity order is kept for root fields.
func New(entities []*model.Entity, opts ...Option) (*Registry, error) {
	r := &Registry{
		namer:    naming.Default(),
		byName:   make(map[string]*model.Entity, len(entities)),
		filters:  make(map[string]*filtergen.EntityFilter, len(entities)),
		orderBys: make(map[string]*filtergen.OrderBy, len(entities)),
		selects:  make(map[string]*filtergen.SelectColumns, len(entities)),
	}
	for _, opt := range opts {
		opt(r)
	}

	if len(entities) == 0 {
		return nil, schemaerr.Configf("no entities to register")
	}
	for _, e := range entities {
		if e == nil {
			return nil, schemaerr.Configf("nil entity")
		}
		if _, dup := r.byName[e.Name]; dup {
			return nil, schemaerr.Configf("type %s registered twice", e.Name)
		}
		r.byName[e.Name] = e
		r.entities = append(r.entities, e)
	}

	if err := r.validateRelationships(); err != nil {
		return nil, err
	}

	r.types = filtergen.NewTypes(r.namer, r)
	if err := r.synthesize(); err != nil {
		return nil, err
	}
	r.types.Freeze()
	return r, nil
}

func (r *Registry) validateRelationships() error {
	for _, e := range r.entities {
		for _, f := range e.Relationships() {
			target, err := r.TargetOf(f.Relationship)
			if err != nil {
				return fmt.Errorf("relationship %s.%s: %w", e.Name, f.GraphQLName, err)
			}
			remote, ok := target.ColumnField(f.Relationship.RemoteColumn)
			if !ok {
				return schemaerr.Configf("relationship %s.%s references unknown column %s.%s",
					e.Name, f.GraphQLName, target.Table, f.Relationship.RemoteColumn)
			}
			if remote.Class.Kind == typeclass.FilterCollection {
				return schemaerr.Configf("relationship %s.%s cannot join on collection column %s.%s",
					e.Name, f.GraphQLName, target.Table, remote.Column)
			}
		}
	}
	return nil
}

func (r *Registry) synthesize() error {
	for _, e := range r.entities {
		// Object type names share the namespace with generated inputs.
		if err := r.types.Reserve(e.Name, fmt.Sprintf("object(%s@%p)", e.Name, e), e); err != nil {
			return err
		}
	}
	for _, e := range r.entities {
		ef, err := r.types.EntityFilter(e)
		if err != nil {
			return err
		}
		ob, err := r.types.OrderBy(e)
		if err != nil {
			return err
		}
		sc, err := r.types.SelectColumns(e)
		if err != nil {
			return err
		}
		r.filters[e.Name] = ef
		r.orderBys[e.Name] = ob
		r.selects[e.Name] = sc
	}
	return nil
}

// Namer returns the naming rules the registry was built with.
func (r *Registry) Namer() *naming.Namer {
	return r.namer
}

// Types returns the frozen generated-type registry.
func (r *Registry) Types() *filtergen.Types {
	return r.types
}

// Entities returns the registered entities in registration order.
func (r *Registry) Entities() []*model.Entity {
	return append([]*model.Entity(nil), r.entities...)
}

// Model returns the entity registered under a GraphQL type name.
func (r *Registry) Model(typeName string) (*model.Entity, error) {
	if e, ok := r.byName[typeName]; ok {
		return e, nil
	}
	return nil, &schemaerr.Error{
		Kind: schemaerr.KindConfig,
		Msg:  fmt.Sprintf("type %q is not registered", typeName),
		Err:  ErrUnknownType,
	}
}

// Fields returns the field metadata of a type in declaration order.
func (r *Registry) Fields(typeName string) ([]*model.Field, error) {
	e, err := r.Model(typeName)
	if err != nil {
		return nil, err
	}
	return e.Fields, nil
}

// Field maps a GraphQL field name of a type to its model attribute.
func (r *Registry) Field(typeName, graphqlName string) (*model.Field, error) {
	e, err := r.Model(typeName)
	if err != nil {
		return nil, err
	}
	return e.Field(graphqlName)
}

// TargetOf returns the entity a relationship points at.
func (r *Registry) TargetOf(rel *model.Relationship) (*model.Entity, error) {
	if rel == nil {
		return nil, schemaerr.Configf("nil relationship")
	}
	return r.Model(rel.Target)
}

// Filter returns the synthesized filter for a type.
func (r *Registry) Filter(typeName string) (*filtergen.EntityFilter, error) {
	if _, err := r.Model(typeName); err != nil {
		return nil, err
	}
	return r.filters[typeName], nil
}

// OrderBy returns the synthesized order-by input for a type.
func (r *Registry) OrderBy(typeName string) (*filtergen.OrderBy, error) {
	if _, err := r.Model(typeName); err != nil {
		return nil, err
	}
	return r.orderBys[typeName], nil
}

// SelectColumns returns the synthesized column enum for a type.
func (r *Registry) SelectColumns(typeName string) (*filtergen.SelectColumns, error) {
	if _, err := r.Model(typeName); err != nil {
		return nil, err
	}
	return r.selects[typeName], nil
}

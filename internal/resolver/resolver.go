// Package resolver builds the read-only GraphQL schema for registered models
// and the resolvers behind it.
//
// Root list fields compile their whole selection into one query and run it on
// the request session. Every nested field reads the already-loaded parent row.
package resolver

import (
	"fmt"
	"sync"

	"github.com/graphql-go/graphql"

	"modelgraph/internal/compiler"
	"modelgraph/internal/model"
	"modelgraph/internal/registry"
	"modelgraph/internal/schemaerr"
	"modelgraph/internal/sqltype"
	"modelgraph/internal/sqlutil"
)

// Resolver builds the schema for a registry and resolves its fields.
type Resolver struct {
	reg       *registry.Registry
	dialect   sqlutil.Dialect
	strategy  compiler.Strategy
	batchSize int

	mu        sync.RWMutex
	typeCache map[string]*graphql.Object
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithDialect sets the SQL dialect queries are rendered for.
func WithDialect(d sqlutil.Dialect) Option {
	return func(r *Resolver) { r.dialect = d }
}

// WithStrategy sets the eager-loading strategy.
func WithStrategy(s compiler.Strategy) Option {
	return func(r *Resolver) { r.strategy = s }
}

// WithBatchSize caps selectin IN lists.
func WithBatchSize(n int) Option {
	return func(r *Resolver) { r.batchSize = n }
}

// NewResolver creates a resolver over reg.
func NewResolver(reg *registry.Registry, opts ...Option) *Resolver {
	r := &Resolver{
		reg:       reg,
		dialect:   sqlutil.SQLite,
		strategy:  compiler.StrategyJoined,
		batchSize: compiler.DefaultBatchSize,
		typeCache: make(map[string]*graphql.Object),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Registry returns the registry the schema is built from.
func (r *Resolver) Registry() *registry.Registry {
	return r.reg
}

func (r *Resolver) compileOptions() []compiler.Option {
	return []compiler.Option{
		compiler.WithDialect(r.dialect),
		compiler.WithStrategy(r.strategy),
		compiler.WithBatchSize(r.batchSize),
	}
}

// BuildGraphQLSchema creates the schema: one all_<Plural> root list per
// registered entity and one object type per entity.
func (r *Resolver) BuildGraphQLSchema() (graphql.Schema, error) {
	if r.reg == nil {
		return graphql.Schema{}, schemaerr.Configf("no registry")
	}

	entities := r.reg.Entities()
	specs := make(map[string][]fieldSpec, len(entities))
	for _, e := range entities {
		fs, err := r.fieldSpecs(e)
		if err != nil {
			return graphql.Schema{}, err
		}
		specs[e.Name] = fs
	}
	for _, e := range entities {
		r.buildGraphQLType(e, specs[e.Name])
	}

	queryFields := graphql.Fields{}
	for _, e := range entities {
		args, err := r.listArgs(e)
		if err != nil {
			return graphql.Schema{}, err
		}
		queryFields[r.reg.Namer().RootQueryName(e.Name)] = &graphql.Field{
			Type:        graphql.NewList(graphql.NewNonNull(r.objectType(e.Name))),
			Description: fmt.Sprintf("Lists %s rows.", e.Name),
			Args:        args,
			Resolve:     r.makeListResolver(e, compiler.RootQuery, nil),
		}
	}

	schema, err := graphql.NewSchema(graphql.SchemaConfig{
		Query: graphql.NewObject(graphql.ObjectConfig{
			Name:   "Query",
			Fields: queryFields,
		}),
	})
	if err != nil {
		return graphql.Schema{}, fmt.Errorf("failed to build schema: %w", err)
	}
	return schema, nil
}

// fieldSpec is one object field with everything that can fail resolved up front.
type fieldSpec struct {
	field  *model.Field
	scalar graphql.Output
	target *model.Entity
	args   graphql.FieldConfigArgument
}

func (r *Resolver) fieldSpecs(e *model.Entity) ([]fieldSpec, error) {
	specs := make([]fieldSpec, 0, len(e.Fields))
	for _, f := range e.Fields {
		if !f.IsRelationship() {
			out, err := sqltype.OutputType(f.Type)
			if err != nil {
				return nil, fmt.Errorf("field %s.%s: %w", e.Name, f.GraphQLName, err)
			}
			specs = append(specs, fieldSpec{field: f, scalar: out})
			continue
		}

		target, err := r.reg.TargetOf(f.Relationship)
		if err != nil {
			return nil, err
		}
		spec := fieldSpec{field: f, target: target}
		if f.Relationship.Many {
			spec.args, err = r.listArgs(target)
			if err != nil {
				return nil, err
			}
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// listArgs returns the argument set shared by root lists and many relationships.
func (r *Resolver) listArgs(e *model.Entity) (graphql.FieldConfigArgument, error) {
	where, err := r.reg.Filter(e.Name)
	if err != nil {
		return nil, err
	}
	orderBy, err := r.reg.OrderBy(e.Name)
	if err != nil {
		return nil, err
	}
	columns, err := r.reg.SelectColumns(e.Name)
	if err != nil {
		return nil, err
	}
	return graphql.FieldConfigArgument{
		"where":      &graphql.ArgumentConfig{Type: where.Input},
		"limit":      &graphql.ArgumentConfig{Type: graphql.Int},
		"offset":     &graphql.ArgumentConfig{Type: graphql.Int},
		"orderBy":    &graphql.ArgumentConfig{Type: orderBy.Input},
		"distinctOn": &graphql.ArgumentConfig{Type: graphql.NewList(graphql.NewNonNull(columns.Enum))},
	}, nil
}

func (r *Resolver) objectType(name string) *graphql.Object {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.typeCache[name]
}

func (r *Resolver) buildGraphQLType(e *model.Entity, specs []fieldSpec) *graphql.Object {
	r.mu.RLock()
	if cached, ok := r.typeCache[e.Name]; ok {
		r.mu.RUnlock()
		return cached
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if cached, ok := r.typeCache[e.Name]; ok {
		return cached
	}

	obj := graphql.NewObject(graphql.ObjectConfig{
		Name: e.Name,
		Fields: graphql.FieldsThunk(func() graphql.Fields {
			fields := graphql.Fields{}
			for _, spec := range specs {
				fields[spec.field.GraphQLName] = r.objectField(spec)
			}
			return fields
		}),
	})
	r.typeCache[e.Name] = obj
	return obj
}

func (r *Resolver) objectField(spec fieldSpec) *graphql.Field {
	f := spec.field
	if spec.target == nil {
		return &graphql.Field{
			Type:    spec.scalar,
			Resolve: makeAttributeResolver(f),
		}
	}

	target := r.objectType(spec.target.Name)
	if f.Relationship.Many {
		return &graphql.Field{
			Type:    graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(target))),
			Args:    spec.args,
			Resolve: r.makeListResolver(spec.target, compiler.NestedAttributeAccess, f),
		}
	}
	var out graphql.Output = target
	if !f.IsOptional() {
		out = graphql.NewNonNull(target)
	}
	return &graphql.Field{
		Type:    out,
		Resolve: makeAttributeResolver(f),
	}
}

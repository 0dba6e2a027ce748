package resolver

import (
	"context"
	"log/slog"

	"github.com/graphql-go/graphql"
	"go.opentelemetry.io/otel/attribute"

	"modelgraph/internal/compiler"
	"modelgraph/internal/filter"
	"modelgraph/internal/logging"
	"modelgraph/internal/model"
	"modelgraph/internal/observability"
	"modelgraph/internal/registry"
	"modelgraph/internal/schemaerr"
	"modelgraph/internal/session"
)

// Arguments accepted for signature compatibility but not applied to results.
var ignoredListArgs = []string{"limit", "offset", "distinctOn"}

// makeListResolver builds the resolver behind every list field. RootQuery
// lists compile and execute the selection; NestedAttributeAccess lists
// return the rows the root statement already loaded onto the parent.
func (r *Resolver) makeListResolver(e *model.Entity, mode compiler.Mode, via *model.Field) graphql.FieldResolveFn {
	if mode == compiler.NestedAttributeAccess {
		return func(p graphql.ResolveParams) (interface{}, error) {
			for _, name := range []string{"where", "orderBy"} {
				if v, ok := p.Args[name]; ok && v != nil {
					return nil, graphQLError(schemaerr.NotImplementedf("%s on nested relationship %s", name, via.GraphQLName))
				}
			}
			v, err := compiler.Attribute(p.Source, via)
			if err != nil {
				return nil, graphQLError(err)
			}
			return v, nil
		}
	}

	return func(p graphql.ResolveParams) (result interface{}, err error) {
		ctx, span := startResolverSpan(p.Context, "graphql.resolve.list",
			attribute.String("graphql.field.name", p.Info.FieldName),
			attribute.String("graphql.type", e.Name),
			attribute.String("graphql.resolver.mode", mode.String()),
		)
		defer func() {
			finishResolverSpan(span, err, "")
			span.End()
		}()

		reg, err := session.RegistryFromContext(ctx)
		if err != nil {
			return nil, graphQLError(err)
		}
		sess, err := session.FromContext(ctx)
		if err != nil {
			return nil, graphQLError(err)
		}

		q, err := r.planFromParams(reg, e, mode, p)
		if err != nil {
			return nil, graphQLError(err)
		}
		setQueryPlanAttributes(span, q)

		rows, err := q.Execute(ctx, sess)
		if err != nil {
			logging.FromContext(ctx).Debug("root query failed",
				slog.String("field", p.Info.FieldName),
				slog.String("error", err.Error()),
			)
			return nil, graphQLError(err)
		}

		span.SetAttributes(attribute.Int("graphql.resolver.rows", len(rows)))
		if metrics := observability.QueryMetricsFromContext(ctx); metrics != nil {
			metrics.RecordResultsCount(ctx, int64(len(rows)), "query")
			metrics.RecordEagerLoads(ctx, int64(countEagerLoads(q.EagerLoads())), string(q.Strategy()))
		}
		return rows, nil
	}
}

// planFromParams compiles the field's selection and applies where and orderBy.
func (r *Resolver) planFromParams(reg *registry.Registry, e *model.Entity, mode compiler.Mode, p graphql.ResolveParams) (*compiler.Query, error) {
	q, err := compiler.Compile(reg, e.Name, compiler.Selection{
		Fields:    p.Info.FieldASTs,
		Fragments: p.Info.Fragments,
	}, append(r.compileOptions(), compiler.WithMode(mode))...)
	if err != nil {
		return nil, err
	}

	if raw, ok := p.Args["where"].(map[string]interface{}); ok {
		desc, err := reg.Filter(e.Name)
		if err != nil {
			return nil, err
		}
		where, err := filter.Decode(desc, raw)
		if err != nil {
			return nil, err
		}
		if q, err = filter.Apply(q, where); err != nil {
			return nil, err
		}
	}

	if raw, ok := p.Args["orderBy"].(map[string]interface{}); ok {
		desc, err := reg.OrderBy(e.Name)
		if err != nil {
			return nil, err
		}
		terms, err := compiler.ParseOrderBy(desc, raw)
		if err != nil {
			return nil, err
		}
		q = q.OrderBy(terms...)
	}

	// TODO: apply limit and offset once root pagination no longer has to
	// survive the LEFT JOIN row fan-out of the joined strategy.
	for _, name := range ignoredListArgs {
		if v, ok := p.Args[name]; ok && v != nil {
			logging.FromContext(p.Context).Debug("list argument not applied",
				slog.String("field", p.Info.FieldName),
				slog.String("argument", name),
			)
		}
	}
	return q, nil
}

// makeAttributeResolver reads a scalar or single relationship from the parent row.
func makeAttributeResolver(f *model.Field) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		v, err := compiler.Attribute(p.Source, f)
		if err != nil {
			return nil, graphQLError(err)
		}
		return v, nil
	}
}

func countEagerLoads(loads []*compiler.EagerLoad) int {
	n := len(loads)
	for _, l := range loads {
		n += countEagerLoads(l.Children)
	}
	return n
}

// ResolveContext attaches the session and registry resolvers read.
func ResolveContext(ctx context.Context, sess *session.Session, reg *registry.Registry) context.Context {
	return session.WithRegistry(session.WithSession(ctx, sess), reg)
}

// Package compiler turns a GraphQL selection tree into one relational query
// with eager-loading directives for every selected relationship.
//
// A Query is immutable: every builder method returns a new value and leaves
// the receiver untouched, so partially built queries can be shared safely.
package compiler

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"modelgraph/internal/filtergen"
	"modelgraph/internal/model"
	"modelgraph/internal/schemaerr"
	"modelgraph/internal/sqlutil"
)

// Mode tells a compiled resolver whether it owns query execution.
type Mode int

const (
	// RootQuery builds and executes the query.
	RootQuery Mode = iota + 1
	// NestedAttributeAccess reads eager-loaded values from the parent row and
	// never executes anything.
	NestedAttributeAccess
)

func (m Mode) String() string {
	switch m {
	case RootQuery:
		return "root"
	case NestedAttributeAccess:
		return "nested"
	default:
		return "invalid"
	}
}

// Strategy selects how eager-load directives become SQL.
type Strategy string

const (
	// StrategyJoined loads everything with LEFT JOINs in one statement.
	StrategyJoined Strategy = "joined"
	// StrategySelectIn runs the root statement and then one IN batch per directive level.
	StrategySelectIn Strategy = "selectin"
)

// ParseStrategy validates a strategy name. Empty selects StrategyJoined.
func ParseStrategy(name string) (Strategy, error) {
	switch s := Strategy(strings.ToLower(strings.TrimSpace(name))); s {
	case "":
		return StrategyJoined, nil
	case StrategyJoined, StrategySelectIn:
		return s, nil
	}
	return "", schemaerr.Configf("unknown eager strategy %q (expected joined or selectin)", name)
}

// DefaultBatchSize caps the IN list of one selectin batch.
const DefaultBatchSize = 1000

const rootAlias = "t0"

// EagerLoad is one relationship directive. Children chain onto it.
type EagerLoad struct {
	// Path is the GraphQL field path from the root type.
	Path   []string
	Field  *model.Field
	Target *model.Entity
	// Fields are the scalar fields selected on Target.
	Fields   []*model.Field
	Children []*EagerLoad
}

// Option configures a Query.
type Option func(*Query)

// WithDialect sets the SQL dialect. The default is SQLite.
func WithDialect(d sqlutil.Dialect) Option {
	return func(q *Query) { q.dialect = d }
}

// WithStrategy sets the eager-load strategy.
func WithStrategy(s Strategy) Option {
	return func(q *Query) {
		if s != "" {
			q.strategy = s
		}
	}
}

// WithBatchSize sets the selectin chunk size.
func WithBatchSize(n int) Option {
	return func(q *Query) {
		if n > 0 {
			q.batchSize = n
		}
	}
}

// WithMode tags the query with the resolver mode it was compiled for.
func WithMode(m Mode) Option {
	return func(q *Query) { q.mode = m }
}

// Query is an immutable select over one root entity.
type Query struct {
	entity    *model.Entity
	targets   filtergen.TargetResolver
	dialect   sqlutil.Dialect
	strategy  Strategy
	batchSize int
	mode      Mode

	fields []*model.Field
	loads  []*EagerLoad
	where  []sq.Sqlizer
	order  []OrderTerm
}

// New starts an empty query over entity. Relationship targets are resolved
// through targets.
func New(entity *model.Entity, targets filtergen.TargetResolver, opts ...Option) *Query {
	q := &Query{
		entity:    entity,
		targets:   targets,
		dialect:   sqlutil.SQLite,
		strategy:  StrategyJoined,
		batchSize: DefaultBatchSize,
		mode:      RootQuery,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

func (q *Query) Entity() *model.Entity    { return q.entity }
func (q *Query) Dialect() sqlutil.Dialect { return q.dialect }
func (q *Query) Strategy() Strategy       { return q.strategy }
func (q *Query) Mode() Mode               { return q.mode }

// Fields returns the selected root scalars.
func (q *Query) Fields() []*model.Field {
	return append([]*model.Field(nil), q.fields...)
}

// EagerLoads returns the top-level directive tree.
func (q *Query) EagerLoads() []*EagerLoad {
	return append([]*EagerLoad(nil), q.loads...)
}

// Column returns the qualified column expression of a root field, for use in predicates.
func (q *Query) Column(f *model.Field) string {
	return q.dialect.Qualify(rootAlias, f.Column)
}

// Select adds root scalar fields by GraphQL name.
func (q *Query) Select(fields ...string) (*Query, error) {
	merged, err := mergeFields(q.entity, q.fields, fields)
	if err != nil {
		return nil, err
	}
	c := q.clone()
	c.fields = merged
	return c, nil
}

// WithEagerLoad attaches the directive chain for a relationship path. Each
// element after the first chains onto the previous directive. A path that is
// already attached is not attached twice.
func (q *Query) WithEagerLoad(path ...string) (*Query, error) {
	return q.SelectAt(path)
}

// SelectAt attaches the directive chain for path and adds scalar fields to
// its last directive. An empty path selects root fields.
func (q *Query) SelectAt(path []string, fields ...string) (*Query, error) {
	if len(path) == 0 {
		return q.Select(fields...)
	}
	loads, err := q.attach(q.loads, q.entity, nil, path, fields)
	if err != nil {
		return nil, err
	}
	c := q.clone()
	c.loads = loads
	return c, nil
}

// Where ANDs a predicate onto the root statement.
func (q *Query) Where(pred sq.Sqlizer) *Query {
	c := q.clone()
	c.where = append(q.where[:len(q.where):len(q.where)], pred)
	return c
}

// OrderBy appends ordering terms. The root primary key is always added as a
// final tie-breaker when the statement is built.
func (q *Query) OrderBy(terms ...OrderTerm) *Query {
	c := q.clone()
	c.order = append(q.order[:len(q.order):len(q.order)], terms...)
	return c
}

func (q *Query) clone() *Query {
	c := *q
	return &c
}

// attach returns a copy of loads with the path chained in. Nodes along the
// path are copied; untouched siblings are shared.
func (q *Query) attach(loads []*EagerLoad, parent *model.Entity, prefix, rest []string, fields []string) ([]*EagerLoad, error) {
	f, err := parent.Field(rest[0])
	if err != nil {
		return nil, err
	}
	if !f.IsRelationship() {
		return nil, schemaerr.Configf("%s.%s is not a relationship", parent.Name, f.GraphQLName)
	}

	out := make([]*EagerLoad, len(loads), len(loads)+1)
	copy(out, loads)

	idx := -1
	for i, l := range loads {
		if l.Field == f {
			idx = i
			break
		}
	}

	var node *EagerLoad
	if idx >= 0 {
		existing := *loads[idx]
		node = &existing
	} else {
		if q.targets == nil {
			return nil, schemaerr.Configf("no target resolver for %s.%s", parent.Name, f.GraphQLName)
		}
		target, err := q.targets.TargetOf(f.Relationship)
		if err != nil {
			return nil, err
		}
		path := make([]string, len(prefix)+1)
		copy(path, prefix)
		path[len(prefix)] = f.GraphQLName
		node = &EagerLoad{Path: path, Field: f, Target: target}
		out = append(out, node)
		idx = len(out) - 1
	}

	if len(rest) > 1 {
		children, err := q.attach(node.Children, node.Target, node.Path, rest[1:], fields)
		if err != nil {
			return nil, err
		}
		node.Children = children
	} else if len(fields) > 0 {
		merged, err := mergeFields(node.Target, node.Fields, fields)
		if err != nil {
			return nil, err
		}
		node.Fields = merged
	}

	out[idx] = node
	return out, nil
}

// mergeFields returns existing plus the named scalars, without duplicates.
func mergeFields(e *model.Entity, existing []*model.Field, names []string) ([]*model.Field, error) {
	out := append([]*model.Field(nil), existing...)
	for _, name := range names {
		f, err := e.Field(name)
		if err != nil {
			return nil, err
		}
		if f.IsRelationship() {
			return nil, schemaerr.Configf("%s.%s is a relationship, not a column", e.Name, name)
		}
		if containsField(out, f) {
			continue
		}
		out = append(out, f)
	}
	return out, nil
}

func containsField(fields []*model.Field, f *model.Field) bool {
	for _, candidate := range fields {
		if candidate == f {
			return true
		}
	}
	return false
}

// String renders the directive path for logs and span attributes.
func (l *EagerLoad) String() string {
	return fmt.Sprintf("%s->%s", strings.Join(l.Path, "."), l.Target.Name)
}

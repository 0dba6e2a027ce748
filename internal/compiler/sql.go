package compiler

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"modelgraph/internal/model"
	"modelgraph/internal/schemaerr"
	"modelgraph/internal/sqlutil"
)

// planNode is one aliased table of a compiled statement.
type planNode struct {
	alias  string
	entity *model.Entity
	// field is the relationship that reached this node; nil at the root.
	field    *model.Field
	columns  []*model.Field
	pkIndex  int
	offset   int
	children []*planNode
}

// plan assigns aliases depth-first and fixes the column list of every node.
// Columns always include the primary key and join keys, in declaration order.
func (q *Query) plan() (*planNode, error) {
	if q.entity == nil {
		return nil, schemaerr.Configf("query has no root entity")
	}
	next := 0
	var build func(e *model.Entity, field *model.Field, selected []*model.Field, loads []*EagerLoad, remote string) (*planNode, error)
	build = func(e *model.Entity, field *model.Field, selected []*model.Field, loads []*EagerLoad, remote string) (*planNode, error) {
		n := &planNode{alias: fmt.Sprintf("t%d", next), entity: e, field: field}
		next++

		want := make(map[*model.Field]bool, len(selected)+2)
		for _, f := range selected {
			want[f] = true
		}
		want[e.PrimaryKey()] = true
		if remote != "" {
			f, ok := e.ColumnField(remote)
			if !ok {
				return nil, schemaerr.Configf("%s has no column %q", e.Name, remote)
			}
			want[f] = true
		}
		for _, l := range loads {
			f, ok := e.ColumnField(l.Field.Relationship.LocalColumn)
			if !ok {
				return nil, schemaerr.Configf("%s has no column %q", e.Name, l.Field.Relationship.LocalColumn)
			}
			want[f] = true
		}
		for _, f := range e.ScalarFields() {
			if !want[f] {
				continue
			}
			if f == e.PrimaryKey() {
				n.pkIndex = len(n.columns)
			}
			n.columns = append(n.columns, f)
		}

		for _, l := range loads {
			child, err := build(l.Target, l.Field, l.Fields, l.Children, l.Field.Relationship.RemoteColumn)
			if err != nil {
				return nil, err
			}
			n.children = append(n.children, child)
		}
		return n, nil
	}
	return build(q.entity, nil, q.fields, q.loads, "")
}

// walk visits n and its descendants depth-first.
func (n *planNode) walk(fn func(*planNode)) {
	fn(n)
	for _, c := range n.children {
		c.walk(fn)
	}
}

func (n *planNode) selectColumns(d sqlutil.Dialect) []string {
	cols := make([]string, len(n.columns))
	for i, f := range n.columns {
		cols[i] = d.Qualify(n.alias, f.Column) + " AS " + d.QuoteIdentifier(n.alias+"_"+f.Column)
	}
	return cols
}

func (n *planNode) pkColumn(d sqlutil.Dialect) string {
	return d.Qualify(n.alias, n.entity.PrimaryKey().Column)
}

func (q *Query) orderTerms() []string {
	var terms []string
	for _, t := range q.order {
		terms = append(terms, q.dialect.OrderTerms(q.Column(t.Field), t.Direction.Desc, t.Direction.Nulls)...)
	}
	return terms
}

// ToSQL renders the root statement. Under the joined strategy this is the
// whole query; under selectin the directive batches are rendered at execution.
func (q *Query) ToSQL() (string, []interface{}, error) {
	root, err := q.plan()
	if err != nil {
		return "", nil, err
	}
	if q.strategy == StrategySelectIn {
		return q.rootStatement(root).ToSql()
	}
	return q.joinedStatement(root).ToSql()
}

func (q *Query) from(n *planNode) string {
	return q.dialect.QuoteIdentifier(n.entity.Table) + " AS " + n.alias
}

func (q *Query) rootStatement(root *planNode) sq.SelectBuilder {
	sb := sq.Select(root.selectColumns(q.dialect)...).From(q.from(root))
	for _, pred := range q.where {
		sb = sb.Where(pred)
	}
	order := append(q.orderTerms(), root.pkColumn(q.dialect)+" ASC")
	return sb.OrderBy(order...).PlaceholderFormat(q.dialect.Placeholder())
}

// joinedStatement renders every directive as a LEFT JOIN. Offsets of each
// node's columns in the result row are recorded on the plan.
func (q *Query) joinedStatement(root *planNode) sq.SelectBuilder {
	var cols []string
	root.walk(func(n *planNode) {
		n.offset = len(cols)
		cols = append(cols, n.selectColumns(q.dialect)...)
	})

	sb := sq.Select(cols...).From(q.from(root))
	var join func(parent *planNode)
	join = func(parent *planNode) {
		for _, c := range parent.children {
			rel := c.field.Relationship
			sb = sb.LeftJoin(fmt.Sprintf("%s ON %s = %s",
				q.from(c),
				q.dialect.Qualify(c.alias, rel.RemoteColumn),
				q.dialect.Qualify(parent.alias, rel.LocalColumn),
			))
			join(c)
		}
	}
	join(root)

	for _, pred := range q.where {
		sb = sb.Where(pred)
	}

	order := append(q.orderTerms(), root.pkColumn(q.dialect)+" ASC")
	for _, c := range root.children {
		c.walk(func(n *planNode) {
			order = append(order, n.pkColumn(q.dialect)+" ASC")
		})
	}
	return sb.OrderBy(order...).PlaceholderFormat(q.dialect.Placeholder())
}

// batchStatement loads one directive level for a chunk of parent join values.
func (q *Query) batchStatement(n *planNode, values []interface{}) sq.SelectBuilder {
	remote := q.dialect.Qualify(n.alias, n.field.Relationship.RemoteColumn)
	return sq.Select(n.selectColumns(q.dialect)...).
		From(q.from(n)).
		Where(sq.Eq{remote: values}).
		OrderBy(remote+" ASC", n.pkColumn(q.dialect)+" ASC").
		PlaceholderFormat(q.dialect.Placeholder())
}

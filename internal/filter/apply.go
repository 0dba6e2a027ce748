package filter

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"modelgraph/internal/compiler"
	"modelgraph/internal/filtergen"
	"modelgraph/internal/model"
	"modelgraph/internal/schemaerr"
	"modelgraph/internal/sqlutil"
	"modelgraph/internal/typeclass"
)

type predicateBuilder func(d sqlutil.Dialect, column string, value interface{}) (sq.Sqlizer, error)

var scalarPredicates = map[filtergen.Op]predicateBuilder{
	filtergen.OpEq: func(_ sqlutil.Dialect, column string, value interface{}) (sq.Sqlizer, error) {
		return sq.Eq{column: value}, nil
	},
	filtergen.OpNeq: func(_ sqlutil.Dialect, column string, value interface{}) (sq.Sqlizer, error) {
		return sq.NotEq{column: value}, nil
	},
	filtergen.OpLt: func(_ sqlutil.Dialect, column string, value interface{}) (sq.Sqlizer, error) {
		return sq.Lt{column: value}, nil
	},
	filtergen.OpLte: func(_ sqlutil.Dialect, column string, value interface{}) (sq.Sqlizer, error) {
		return sq.LtOrEq{column: value}, nil
	},
	filtergen.OpGt: func(_ sqlutil.Dialect, column string, value interface{}) (sq.Sqlizer, error) {
		return sq.Gt{column: value}, nil
	},
	filtergen.OpGte: func(_ sqlutil.Dialect, column string, value interface{}) (sq.Sqlizer, error) {
		return sq.GtOrEq{column: value}, nil
	},
	filtergen.OpIn: func(_ sqlutil.Dialect, column string, value interface{}) (sq.Sqlizer, error) {
		values, err := listValue(value)
		if err != nil {
			return nil, err
		}
		return sq.Eq{column: values}, nil
	},
	filtergen.OpNotIn: func(_ sqlutil.Dialect, column string, value interface{}) (sq.Sqlizer, error) {
		values, err := listValue(value)
		if err != nil {
			return nil, err
		}
		return sq.NotEq{column: values}, nil
	},
	filtergen.OpContains: func(_ sqlutil.Dialect, column string, value interface{}) (sq.Sqlizer, error) {
		return likePredicate(column, "LIKE", value)
	},
	filtergen.OpNotContains: func(_ sqlutil.Dialect, column string, value interface{}) (sq.Sqlizer, error) {
		return likePredicate(column, "NOT LIKE", value)
	},
	filtergen.OpIsNull: isNullPredicate,
}

// Collection columns hold comma-joined text, so membership goes through the
// dialect's set-contains fragment once per requested element.
var collectionPredicates = map[filtergen.Op]predicateBuilder{
	filtergen.OpContains: func(d sqlutil.Dialect, column string, value interface{}) (sq.Sqlizer, error) {
		return membership(d, column, value, "%s")
	},
	filtergen.OpNotContains: func(d sqlutil.Dialect, column string, value interface{}) (sq.Sqlizer, error) {
		return membership(d, column, value, "NOT (%s)")
	},
	filtergen.OpIsNull: isNullPredicate,
}

// Apply ANDs every scalar condition of where onto q. Boolean composition and
// relationship filters are not implemented.
func Apply(q *compiler.Query, where *CompositeFilter) (*compiler.Query, error) {
	if where == nil {
		return q, nil
	}
	if where.And != nil {
		return nil, schemaerr.NotImplementedf("%s filter composition", filtergen.AndField)
	}
	if where.Or != nil {
		return nil, schemaerr.NotImplementedf("%s filter composition", filtergen.OrField)
	}

	for _, ff := range where.Fields {
		switch ff.Variant {
		case filtergen.VariantScalar:
			var err error
			q, err = ApplyScalar(q, ff.Field, ff.Scalar)
			if err != nil {
				return nil, err
			}
		case filtergen.VariantComposite:
			return nil, schemaerr.NotImplementedf("filtering on relationship %s", ff.Field.GraphQLName)
		default:
			return nil, schemaerr.Configf("filter slot %s has variant %s", ff.Field.GraphQLName, ff.Variant)
		}
	}
	return q, nil
}

// ApplyScalar ANDs the conditions of one column filter onto q.
func ApplyScalar(q *compiler.Query, field *model.Field, f *ScalarFilter) (*compiler.Query, error) {
	if f == nil {
		return q, nil
	}
	if field.IsRelationship() {
		return nil, schemaerr.NotImplementedf("scalar filter on relationship %s", field.GraphQLName)
	}
	column := q.Column(field)
	for _, cond := range f.Conditions {
		pred, err := predicate(q.Dialect(), f.Kind, column, cond)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", field.GraphQLName, err)
		}
		q = q.Where(pred)
	}
	return q, nil
}

func predicate(d sqlutil.Dialect, kind typeclass.FilterKind, column string, cond Condition) (sq.Sqlizer, error) {
	if !filtergen.Applicable(kind, cond.Op) {
		return nil, schemaerr.UnknownOperatorf("operator %q does not apply to %s fields", cond.Op, kind)
	}
	table := scalarPredicates
	if kind == typeclass.FilterCollection {
		table = collectionPredicates
	}
	build, ok := table[cond.Op]
	if !ok {
		return nil, schemaerr.UnknownOperatorf("no predicate for operator %q on %s fields", cond.Op, kind)
	}
	return build(d, column, cond.Value)
}

func isNullPredicate(_ sqlutil.Dialect, column string, value interface{}) (sq.Sqlizer, error) {
	isNull, ok := value.(bool)
	if !ok {
		return nil, schemaerr.Dataf("is_null expects a boolean, got %T", value)
	}
	if isNull {
		return sq.Eq{column: nil}, nil
	}
	return sq.NotEq{column: nil}, nil
}

func likePredicate(column, op string, value interface{}) (sq.Sqlizer, error) {
	s, ok := value.(string)
	if !ok {
		return nil, schemaerr.Dataf("contains expects a string, got %T", value)
	}
	pattern := "%" + sqlutil.EscapeLike(s) + "%"
	return sq.Expr(fmt.Sprintf("%s %s ? ESCAPE '%s'", column, op, sqlutil.LikeEscapeChar), pattern), nil
}

func membership(d sqlutil.Dialect, column string, value interface{}, wrap string) (sq.Sqlizer, error) {
	values, err := listValue(value)
	if err != nil {
		return nil, err
	}
	and := sq.And{}
	for _, v := range values {
		and = append(and, sq.Expr(fmt.Sprintf(wrap, d.SetContains(column)), fmt.Sprint(v)))
	}
	return and, nil
}

func listValue(value interface{}) ([]interface{}, error) {
	switch v := value.(type) {
	case []interface{}:
		return v, nil
	case []string:
		out := make([]interface{}, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out, nil
	case []int:
		out := make([]interface{}, len(v))
		for i, n := range v {
			out[i] = n
		}
		return out, nil
	}
	return nil, schemaerr.Dataf("expected a list, got %T", value)
}

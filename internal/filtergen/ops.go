package filtergen

import (
	"fmt"

	"modelgraph/internal/sqlutil"
	"modelgraph/internal/typeclass"
)

// Op is a filter operator name as exposed on filter input types.
type Op string

const (
	OpEq          Op = "eq"
	OpNeq         Op = "neq"
	OpLt          Op = "lt"
	OpLte         Op = "lte"
	OpGt          Op = "gt"
	OpGte         Op = "gte"
	OpIn          Op = "in_"
	OpNotIn       Op = "not_in"
	OpContains    Op = "contains"
	OpNotContains Op = "not_contains"
	OpIsNull      Op = "is_null"
)

// Composition slot names present on every entity filter.
const (
	AndField = "and_"
	OrField  = "or_"
)

var (
	comparisonOps = []Op{OpEq, OpNeq, OpLt, OpLte, OpGt, OpGte}
	inclusionOps  = []Op{OpIn, OpNotIn}
	containsOps   = []Op{OpContains, OpNotContains}
)

// operatorTable is the fixed set of applicable operators per field kind,
// excluding is_null which every scalar filter carries.
var operatorTable = map[typeclass.FilterKind][]Op{
	typeclass.FilterBool:       {OpEq, OpNeq},
	typeclass.FilterInt:        concatOps(comparisonOps, inclusionOps),
	typeclass.FilterFloat:      concatOps(comparisonOps, inclusionOps),
	typeclass.FilterString:     concatOps(comparisonOps, inclusionOps, containsOps),
	typeclass.FilterCollection: containsOps,
}

func concatOps(groups ...[]Op) []Op {
	var out []Op
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// Operators returns the operators synthesized for a scalar kind, is_null last.
func Operators(kind typeclass.FilterKind) ([]Op, error) {
	ops, ok := operatorTable[kind]
	if !ok {
		return nil, fmt.Errorf("no operators for %s fields", kind)
	}
	out := make([]Op, 0, len(ops)+1)
	out = append(out, ops...)
	return append(out, OpIsNull), nil
}

// Applicable reports whether op is part of kind's operator set.
func Applicable(kind typeclass.FilterKind, op Op) bool {
	if op == OpIsNull {
		_, ok := operatorTable[kind]
		return ok
	}
	for _, candidate := range operatorTable[kind] {
		if candidate == op {
			return true
		}
	}
	return false
}

// IsInclusion reports whether op takes a list of values.
func IsInclusion(op Op) bool {
	return op == OpIn || op == OpNotIn
}

// Direction is a parsed OrderByEnum value.
type Direction struct {
	Desc  bool
	Nulls sqlutil.NullsOrder
}

// orderDirections are the OrderByEnum values in declaration order.
var orderDirections = []struct {
	name string
	dir  Direction
}{
	{"asc", Direction{}},
	{"asc_nulls_first", Direction{Nulls: sqlutil.NullsFirst}},
	{"asc_nulls_last", Direction{Nulls: sqlutil.NullsLast}},
	{"desc", Direction{Desc: true}},
	{"desc_nulls_first", Direction{Desc: true, Nulls: sqlutil.NullsFirst}},
	{"desc_nulls_last", Direction{Desc: true, Nulls: sqlutil.NullsLast}},
}

// ParseDirection converts an OrderByEnum value to a Direction.
func ParseDirection(value string) (Direction, error) {
	for _, d := range orderDirections {
		if d.name == value {
			return d.dir, nil
		}
	}
	return Direction{}, fmt.Errorf("invalid order direction %q", value)
}

// DirectionNames returns the OrderByEnum value names in declaration order.
func DirectionNames() []string {
	names := make([]string, len(orderDirections))
	for i, d := range orderDirections {
		names[i] = d.name
	}
	return names
}

package compiler

import (
	"fmt"

	"modelgraph/internal/filtergen"
	"modelgraph/internal/model"
	"modelgraph/internal/schemaerr"
)

// OrderTerm orders the root statement by one scalar field.
type OrderTerm struct {
	Field     *model.Field
	Direction filtergen.Direction
}

// ParseOrderBy converts an orderBy argument into terms. Terms follow field
// declaration order, since GraphQL input objects are unordered. Ordering by a
// relationship field is not implemented.
func ParseOrderBy(desc *filtergen.OrderBy, raw map[string]interface{}) ([]OrderTerm, error) {
	if desc == nil || len(raw) == 0 {
		return nil, nil
	}
	e := desc.Entity
	for name := range raw {
		if _, err := e.Field(name); err != nil {
			return nil, err
		}
	}

	var terms []OrderTerm
	for _, f := range e.Fields {
		value, ok := raw[f.GraphQLName]
		if !ok || value == nil {
			continue
		}
		if f.IsRelationship() {
			return nil, schemaerr.NotImplementedf("ordering by relationship %s.%s", e.Name, f.GraphQLName)
		}
		name, ok := value.(string)
		if !ok {
			return nil, schemaerr.Configf("orderBy.%s: expected a direction, got %T", f.GraphQLName, value)
		}
		dir, err := filtergen.ParseDirection(name)
		if err != nil {
			return nil, schemaerr.Wrap(schemaerr.KindConfig, err, fmt.Sprintf("orderBy.%s", f.GraphQLName))
		}
		terms = append(terms, OrderTerm{Field: f, Direction: dir})
	}
	return terms, nil
}

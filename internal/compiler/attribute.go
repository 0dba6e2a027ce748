package compiler

import (
	"modelgraph/internal/model"
	"modelgraph/internal/schemaerr"
)

// Attribute reads a field from an eager-loaded parent row. It is the whole of
// NestedAttributeAccess: no query is built or executed.
func Attribute(source interface{}, f *model.Field) (interface{}, error) {
	row, ok := source.(map[string]interface{})
	if !ok {
		return nil, schemaerr.Dataf("expected a loaded row for %s, got %T", f.GraphQLName, source)
	}
	v, ok := row[f.GraphQLName]
	if !ok && f.IsRelationship() && f.Relationship.Many {
		return nil, schemaerr.Dataf("relationship %s was not eager-loaded", f.GraphQLName)
	}
	return v, nil
}

package compiler

import (
	"github.com/graphql-go/graphql/language/ast"

	"modelgraph/internal/model"
	"modelgraph/internal/registry"
	"modelgraph/internal/schemaerr"
)

// Selection is the part of a resolve call the compiler reads: the field ASTs
// of the root field and the operation's fragment definitions.
type Selection struct {
	Fields    []*ast.Field
	Fragments map[string]ast.Definition
}

// Compile builds the query for a root field of typeName. Scalars are selected
// on their level, and every relationship becomes an eager-load directive
// chained onto its parent's. Unknown field names are a hard error.
func Compile(reg *registry.Registry, typeName string, sel Selection, opts ...Option) (*Query, error) {
	if reg == nil {
		return nil, schemaerr.Configf("no registry")
	}
	entity, err := reg.Model(typeName)
	if err != nil {
		return nil, err
	}

	var selections []ast.Selection
	for _, f := range sel.Fields {
		if f != nil && f.SelectionSet != nil {
			selections = append(selections, f.SelectionSet.Selections...)
		}
	}

	c := &compilation{reg: reg, fragments: sel.Fragments}
	return c.level(New(entity, reg, opts...), entity, nil, selections)
}

type compilation struct {
	reg       *registry.Registry
	fragments map[string]ast.Definition
}

// relSelection gathers every occurrence of one relationship field on a level.
type relSelection struct {
	field      *model.Field
	selections []ast.Selection
}

func (c *compilation) level(q *Query, e *model.Entity, path []string, selections []ast.Selection) (*Query, error) {
	scalars, rels, err := c.partition(e, selections)
	if err != nil {
		return nil, err
	}

	if len(path) == 0 {
		q, err = q.Select(scalars...)
	} else {
		q, err = q.SelectAt(path, scalars...)
	}
	if err != nil {
		return nil, err
	}

	for _, rel := range rels {
		childPath := append(path[:len(path):len(path)], rel.field.GraphQLName)
		q, err = q.WithEagerLoad(childPath...)
		if err != nil {
			return nil, err
		}
		target, err := c.reg.TargetOf(rel.field.Relationship)
		if err != nil {
			return nil, err
		}
		q, err = c.level(q, target, childPath, rel.selections)
		if err != nil {
			return nil, err
		}
	}
	return q, nil
}

// partition splits a selection set into scalar names and relationships,
// walking inline fragments and fragment spreads.
func (c *compilation) partition(e *model.Entity, selections []ast.Selection) ([]string, []*relSelection, error) {
	var scalars []string
	var rels []*relSelection
	byField := make(map[*model.Field]*relSelection)
	visited := make(map[string]struct{})

	var visit func(selections []ast.Selection) error
	visit = func(selections []ast.Selection) error {
		for _, selection := range selections {
			switch sel := selection.(type) {
			case *ast.Field:
				if sel.Name == nil || sel.Name.Value == "__typename" {
					continue
				}
				f, err := e.Field(sel.Name.Value)
				if err != nil {
					return err
				}
				if !f.IsRelationship() {
					scalars = append(scalars, f.GraphQLName)
					continue
				}
				rs, ok := byField[f]
				if !ok {
					rs = &relSelection{field: f}
					byField[f] = rs
					rels = append(rels, rs)
				}
				if sel.SelectionSet != nil {
					rs.selections = append(rs.selections, sel.SelectionSet.Selections...)
				}
			case *ast.InlineFragment:
				if sel.SelectionSet != nil {
					if err := visit(sel.SelectionSet.Selections); err != nil {
						return err
					}
				}
			case *ast.FragmentSpread:
				if c.fragments == nil || sel.Name == nil {
					continue
				}
				name := sel.Name.Value
				if _, seen := visited[name]; seen {
					continue
				}
				visited[name] = struct{}{}
				def, ok := c.fragments[name].(*ast.FragmentDefinition)
				if !ok || def.SelectionSet == nil {
					continue
				}
				if err := visit(def.SelectionSet.Selections); err != nil {
					return err
				}
			}
		}
		return nil
	}

	if err := visit(selections); err != nil {
		return nil, nil, err
	}
	return scalars, rels, nil
}

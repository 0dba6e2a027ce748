package compiler

import (
	"context"
	"fmt"

	"modelgraph/internal/dbexec"
	"modelgraph/internal/schemaerr"
)

// Execute runs the query and returns one row per root entity, keyed by
// GraphQL field name, with every eager-loaded relationship already attached.
// Many relationships hold []interface{} (empty when nothing matched); single
// relationships hold a row or nil.
func (q *Query) Execute(ctx context.Context, exec dbexec.QueryExecutor) ([]map[string]interface{}, error) {
	if q.mode != RootQuery {
		return nil, schemaerr.Configf("%s query over %s cannot execute; nested fields read the parent row", q.mode, q.entity.Name)
	}
	if exec == nil {
		return nil, schemaerr.Configf("no query executor")
	}
	root, err := q.plan()
	if err != nil {
		return nil, err
	}
	if q.strategy == StrategySelectIn {
		return q.executeSelectIn(ctx, exec, root)
	}
	return q.executeJoined(ctx, exec, root)
}

func (q *Query) executeJoined(ctx context.Context, exec dbexec.QueryExecutor, root *planNode) ([]map[string]interface{}, error) {
	query, args, err := q.joinedStatement(root).ToSql()
	if err != nil {
		return nil, err
	}

	width := 0
	root.walk(func(n *planNode) { width += len(n.columns) })

	m := &materializer{seen: make(map[string]map[string]interface{})}
	err = scan(ctx, exec, query, args, width, func(values []interface{}) error {
		return m.visit(root, "", nil, values)
	})
	if err != nil {
		return nil, err
	}
	if m.roots == nil {
		m.roots = []map[string]interface{}{}
	}
	return m.roots, nil
}

func (q *Query) executeSelectIn(ctx context.Context, exec dbexec.QueryExecutor, root *planNode) ([]map[string]interface{}, error) {
	query, args, err := q.rootStatement(root).ToSql()
	if err != nil {
		return nil, err
	}

	rows := []map[string]interface{}{}
	err = scan(ctx, exec, query, args, len(root.columns), func(values []interface{}) error {
		obj, err := root.object(values)
		if err != nil {
			return err
		}
		rows = append(rows, obj)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := q.loadChildren(ctx, exec, root, rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// loadChildren runs one chunked IN batch per child directive of parent and
// attaches the results, then descends a level.
func (q *Query) loadChildren(ctx context.Context, exec dbexec.QueryExecutor, parent *planNode, parents []map[string]interface{}) error {
	for _, child := range parent.children {
		rel := child.field.Relationship
		local, _ := parent.entity.ColumnField(rel.LocalColumn)
		remote, _ := child.entity.ColumnField(rel.RemoteColumn)

		grouped := make(map[string][]map[string]interface{})
		var loaded []map[string]interface{}
		for _, chunk := range chunkValues(uniqueParentValues(parents, local.GraphQLName), q.batchSize) {
			query, args, err := q.batchStatement(child, chunk).ToSql()
			if err != nil {
				return err
			}
			err = scan(ctx, exec, query, args, len(child.columns), func(values []interface{}) error {
				obj, err := child.object(values)
				if err != nil {
					return err
				}
				key := fmt.Sprint(obj[remote.GraphQLName])
				grouped[key] = append(grouped[key], obj)
				loaded = append(loaded, obj)
				return nil
			})
			if err != nil {
				return err
			}
		}

		name := child.field.GraphQLName
		for _, p := range parents {
			matches := grouped[fmt.Sprint(p[local.GraphQLName])]
			if p[local.GraphQLName] == nil {
				matches = nil
			}
			if rel.Many {
				list := make([]interface{}, len(matches))
				for i, m := range matches {
					list[i] = m
				}
				p[name] = list
				continue
			}
			if len(matches) > 0 {
				p[name] = matches[0]
			} else {
				p[name] = nil
			}
		}

		if len(loaded) > 0 {
			if err := q.loadChildren(ctx, exec, child, loaded); err != nil {
				return err
			}
		}
	}
	return nil
}

func scan(ctx context.Context, exec dbexec.QueryExecutor, query string, args []interface{}, width int, fn func([]interface{}) error) error {
	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		values := make([]interface{}, width)
		ptrs := make([]interface{}, width)
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return err
		}
		if err := fn(values); err != nil {
			return err
		}
	}
	return rows.Err()
}

// materializer folds joined rows into de-duplicated entity trees.
type materializer struct {
	seen  map[string]map[string]interface{}
	roots []map[string]interface{}
}

func (m *materializer) visit(n *planNode, parentKey string, parent map[string]interface{}, values []interface{}) error {
	pk := values[n.offset+n.pkIndex]
	if pk == nil {
		if parent == nil {
			return schemaerr.Dataf("%s row without primary key", n.entity.Name)
		}
		// No match on this LEFT JOIN.
		return nil
	}

	pkValue, err := coerceValue(n.entity.PrimaryKey(), pk)
	if err != nil {
		return err
	}
	key := fmt.Sprintf("%s/%s:%v", parentKey, n.alias, pkValue)
	obj, ok := m.seen[key]
	if !ok {
		obj, err = n.object(values[n.offset : n.offset+len(n.columns)])
		if err != nil {
			return err
		}
		m.seen[key] = obj
		if parent == nil {
			m.roots = append(m.roots, obj)
		} else if n.field.Relationship.Many {
			parent[n.field.GraphQLName] = append(parent[n.field.GraphQLName].([]interface{}), obj)
		} else {
			parent[n.field.GraphQLName] = obj
		}
	}

	for _, c := range n.children {
		if err := m.visit(c, key, obj, values); err != nil {
			return err
		}
	}
	return nil
}

// object builds one row from the node's columns and initializes every loaded
// relationship slot.
func (n *planNode) object(values []interface{}) (map[string]interface{}, error) {
	obj := make(map[string]interface{}, len(n.columns)+len(n.children))
	for i, f := range n.columns {
		v, err := coerceValue(f, values[i])
		if err != nil {
			return nil, err
		}
		obj[f.GraphQLName] = v
	}
	for _, c := range n.children {
		if c.field.Relationship.Many {
			obj[c.field.GraphQLName] = []interface{}{}
		} else {
			obj[c.field.GraphQLName] = nil
		}
	}
	return obj, nil
}

func uniqueParentValues(rows []map[string]interface{}, key string) []interface{} {
	seen := make(map[string]struct{})
	values := make([]interface{}, 0, len(rows))
	for _, row := range rows {
		raw := row[key]
		if raw == nil {
			continue
		}
		normalized := fmt.Sprint(raw)
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		values = append(values, raw)
	}
	return values
}

func chunkValues(values []interface{}, max int) [][]interface{} {
	if len(values) == 0 {
		return nil
	}
	if max <= 0 || len(values) <= max {
		return [][]interface{}{values}
	}
	chunks := make([][]interface{}, 0, (len(values)+max-1)/max)
	for start := 0; start < len(values); start += max {
		end := start + max
		if end > len(values) {
			end = len(values)
		}
		chunks = append(chunks, values[start:end])
	}
	return chunks
}

package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/graphql-go/graphql/language/ast"
	"github.com/graphql-go/graphql/language/parser"
	"github.com/graphql-go/graphql/language/source"
)

// queryMetadata is the static shape of the operation a request executes.
type queryMetadata struct {
	operationType  string
	fieldCount     int
	selectionDepth int
	variableCount  int
}

// extractGraphQLRequest returns the query text and operation name of r. A POST
// body is read and restored so the GraphQL handler can read it again.
func extractGraphQLRequest(r *http.Request) (query, operationName string) {
	switch r.Method {
	case http.MethodGet:
		values := r.URL.Query()
		return values.Get("query"), values.Get("operationName")
	case http.MethodPost:
	default:
		return "", ""
	}
	if r.Body == nil {
		return "", ""
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return "", ""
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	if strings.Contains(r.Header.Get("Content-Type"), "application/graphql") {
		return string(body), ""
	}
	var payload struct {
		Query         string `json:"query"`
		OperationName string `json:"operationName"`
	}
	if json.Unmarshal(body, &payload) != nil {
		return "", ""
	}
	return payload.Query, payload.OperationName
}

// extractQueryMetadata parses query and measures the selected operation. It
// returns nil without error when query is empty or names no known operation.
func extractQueryMetadata(query, operationName string) (*queryMetadata, error) {
	if query == "" {
		return nil, nil
	}
	doc, err := parser.Parse(parser.ParseParams{
		Source: source.NewSource(&source.Source{Body: []byte(query), Name: "graphql"}),
	})
	if err != nil {
		return nil, err
	}

	op, fragments := selectOperation(doc, operationName)
	if op == nil {
		return nil, nil
	}

	meta := &queryMetadata{
		operationType: string(op.Operation),
		variableCount: len(op.VariableDefinitions),
	}
	if op.SelectionSet != nil {
		meta.fieldCount, meta.selectionDepth = countFieldsAndDepth(op.SelectionSet, fragments, 1, map[string]bool{}, map[string]bool{})
	}
	return meta, nil
}

// selectOperation picks the named operation, or the first one when name is
// empty, and indexes the document's fragments.
func selectOperation(doc *ast.Document, name string) (*ast.OperationDefinition, map[string]*ast.FragmentDefinition) {
	fragments := make(map[string]*ast.FragmentDefinition)
	var selected *ast.OperationDefinition
	for _, def := range doc.Definitions {
		switch d := def.(type) {
		case *ast.FragmentDefinition:
			fragments[d.Name.Value] = d
		case *ast.OperationDefinition:
			if selected != nil {
				continue
			}
			if name == "" || (d.Name != nil && d.Name.Value == name) {
				selected = d
			}
		}
	}
	return selected, fragments
}

// countFieldsAndDepth counts the fields under set and the deepest level
// reached. Fragments and inline fragments do not add depth. Each named
// fragment is expanded once per document, which also stops spread cycles.
func countFieldsAndDepth(set *ast.SelectionSet, fragments map[string]*ast.FragmentDefinition, depth int, visited, inFlight map[string]bool) (fields, maxDepth int) {
	if set == nil {
		return 0, depth - 1
	}
	maxDepth = depth

	descend := func(child *ast.SelectionSet, childDepth int) {
		n, d := countFieldsAndDepth(child, fragments, childDepth, visited, inFlight)
		fields += n
		maxDepth = max(maxDepth, d)
	}

	for _, selection := range set.Selections {
		switch sel := selection.(type) {
		case *ast.Field:
			fields++
			if sel.SelectionSet != nil {
				descend(sel.SelectionSet, depth+1)
			}
		case *ast.InlineFragment:
			if sel.SelectionSet != nil {
				descend(sel.SelectionSet, depth)
			}
		case *ast.FragmentSpread:
			name := sel.Name.Value
			if inFlight[name] || visited[name] {
				continue
			}
			inFlight[name], visited[name] = true, true
			if frag, ok := fragments[name]; ok && frag.SelectionSet != nil {
				descend(frag.SelectionSet, depth)
			}
			delete(inFlight, name)
		}
	}
	return fields, maxDepth
}

package compiler

import (
	"context"
	"database/sql"
	"testing"

	"github.com/graphql-go/graphql/language/ast"
	"github.com/graphql-go/graphql/language/parser"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"modelgraph/internal/dbexec"
	"modelgraph/internal/filtergen"
	"modelgraph/internal/model"
	"modelgraph/internal/naming"
	"modelgraph/internal/registry"
)

type Director struct {
	ID     int     `db:"id,pk"`
	Name   string  `db:"name"`
	Movies []Movie `rel:"id,director_id"`
}

type Movie struct {
	ID         int       `db:"id,pk"`
	Title      string    `db:"title"`
	Year       int       `db:"year"`
	Rating     float64   `db:"rating"`
	Released   bool      `db:"released"`
	Genres     []string  `db:"genres"`
	Tagline    *string   `db:"tagline"`
	DirectorID int       `db:"director_id"`
	Director   *Director `rel:"director_id,id"`
}

var fixtureSQL = []string{
	`CREATE TABLE directors (id INTEGER PRIMARY KEY, name TEXT NOT NULL)`,
	`CREATE TABLE movies (
		id INTEGER PRIMARY KEY,
		title TEXT NOT NULL,
		year INTEGER NOT NULL,
		rating REAL NOT NULL,
		released BOOLEAN NOT NULL,
		genres TEXT NOT NULL,
		tagline TEXT,
		director_id INTEGER NOT NULL
	)`,
	`INSERT INTO directors (id, name) VALUES (1, 'Christopher Nolan'), (2, 'Denis Villeneuve'), (3, 'Greta Gerwig')`,
	`INSERT INTO movies (id, title, year, rating, released, genres, tagline, director_id) VALUES
		(1, 'Inception', 2010, 8.8, 1, 'scifi,thriller', 'Your mind is the scene of the crime', 1),
		(2, 'Interstellar', 2014, 8.6, 1, 'scifi', NULL, 1),
		(3, 'Dune', 2021, 8.0, 1, 'scifi,adventure', NULL, 2),
		(4, 'Dune: Part Three', 2026, 0, 0, '', NULL, 2)`,
}

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	entities, err := model.ReflectAll(naming.Default(), Director{}, Movie{})
	require.NoError(t, err)
	reg, err := registry.New(entities)
	require.NoError(t, err)
	return reg
}

func openFixtureDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	for _, stmt := range fixtureSQL {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
	return db
}

// countingExecutor counts statements and keeps their text.
type countingExecutor struct {
	dbexec.QueryExecutor
	statements []string
}

func newCountingExecutor(db *sql.DB) *countingExecutor {
	c := &countingExecutor{}
	c.QueryExecutor = dbexec.Observe(dbexec.NewStandardExecutor(db), func(_ context.Context, st dbexec.Statement) {
		c.statements = append(c.statements, st.Query)
	})
	return c
}

// parseSelection returns the first root field of query and its fragments.
func parseSelection(t *testing.T, query string) Selection {
	t.Helper()
	doc, err := parser.Parse(parser.ParseParams{Source: query})
	require.NoError(t, err)

	sel := Selection{Fragments: map[string]ast.Definition{}}
	for _, def := range doc.Definitions {
		switch d := def.(type) {
		case *ast.OperationDefinition:
			if len(sel.Fields) == 0 {
				sel.Fields = append(sel.Fields, d.SelectionSet.Selections[0].(*ast.Field))
			}
		case *ast.FragmentDefinition:
			sel.Fragments[d.Name.Value] = d
		}
	}
	require.NotEmpty(t, sel.Fields)
	return sel
}

func titles(rows []interface{}) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.(map[string]interface{})["title"].(string)
	}
	return out
}

func filtergenDesc() filtergen.Direction {
	return filtergen.Direction{Desc: true}
}

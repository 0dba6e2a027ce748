package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modelgraph/internal/naming"
	"modelgraph/internal/schemaerr"
	"modelgraph/internal/typeclass"
)

type testDirector struct {
	ID     int         `db:"id,pk"`
	Name   string      `db:"name"`
	Movies []testMovie `rel:"id,director_id"`
}

func (testDirector) TableName() string { return "directors" }

type testMovie struct {
	ID         int           `db:"id,pk"`
	Title      string        `db:"title"`
	ImdbRating float64       `db:"imdb_rating"`
	Genres     []string      `db:"genres"`
	Tagline    *string       `db:"tagline"`
	DirectorID int           `db:"director_id"`
	Director   *testDirector `rel:"director_id,id" gql:"director"`
	internal   string
	Cached     string `gql:"-"`
}

func (*testMovie) TableName() string { return "movies" }

type testAddress struct {
	ID      int `db:",pk"`
	Street  string
	ZipCode string
}

func TestReflect(t *testing.T) {
	movie, err := Reflect(testMovie{}, nil)
	require.NoError(t, err)

	assert.Equal(t, "TestMovie", movie.Name)
	assert.Equal(t, "movies", movie.Table)
	assert.Equal(t, []string{"id", "title", "imdbRating", "genres", "tagline", "directorId", "director"}, movie.FieldNames())

	pk := movie.PrimaryKey()
	require.NotNil(t, pk)
	assert.Equal(t, "id", pk.Column)

	rating, err := movie.Field("imdbRating")
	require.NoError(t, err)
	assert.Equal(t, "ImdbRating", rating.Name)
	assert.Equal(t, "imdb_rating", rating.Column)
	assert.Equal(t, typeclass.FilterFloat, rating.Class.Kind)
	assert.False(t, rating.IsRelationship())

	genres, err := movie.Field("genres")
	require.NoError(t, err)
	assert.Equal(t, typeclass.FilterCollection, genres.Class.Kind)

	tagline, err := movie.Field("tagline")
	require.NoError(t, err)
	assert.True(t, tagline.IsOptional())

	director, err := movie.Field("director")
	require.NoError(t, err)
	require.True(t, director.IsRelationship())
	assert.Equal(t, "TestDirector", director.Relationship.Target)
	assert.Equal(t, "director_id", director.Relationship.LocalColumn)
	assert.Equal(t, "id", director.Relationship.RemoteColumn)
	assert.False(t, director.Relationship.Many)
	assert.Empty(t, director.Column)

	assert.Len(t, movie.ScalarFields(), 6)
	assert.Len(t, movie.Relationships(), 1)
}

func TestReflect_ManyRelationship(t *testing.T) {
	director, err := Reflect(&testDirector{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "directors", director.Table)

	movies, err := director.Field("movies")
	require.NoError(t, err)
	assert.True(t, movies.Relationship.Many)
	assert.Equal(t, "TestMovie", movies.Relationship.Target)
}

func TestReflect_DefaultColumnsAndTable(t *testing.T) {
	address, err := Reflect(testAddress{}, naming.Default())
	require.NoError(t, err)

	assert.Equal(t, "test_addresses", address.Table)
	assert.Equal(t, []string{"id", "street", "zipCode"}, address.FieldNames())
	f, ok := address.ColumnField("zip_code")
	require.True(t, ok)
	assert.Equal(t, "ZipCode", f.Name)
}

func TestReflect_Errors(t *testing.T) {
	type noPK struct {
		Name string `db:"name"`
	}
	type ambiguous struct {
		ID    int `db:"id,pk"`
		Score any `db:"score" type:"int|string"`
	}
	type missingRel struct {
		ID       int `db:"id,pk"`
		Director *testDirector
	}
	type badLocal struct {
		ID       int           `db:"id,pk"`
		Director *testDirector `rel:"director_id,id"`
	}
	type badRelTag struct {
		ID       int           `db:"id,pk"`
		Director *testDirector `rel:"director_id"`
	}
	type twoPK struct {
		ID  int `db:"id,pk"`
		Alt int `db:"alt,pk"`
	}

	cases := []struct {
		name  string
		model any
	}{
		{name: "no primary key", model: noPK{}},
		{name: "ambiguous union", model: ambiguous{}},
		{name: "entity without rel", model: missingRel{}},
		{name: "unknown local column", model: badLocal{}},
		{name: "malformed rel tag", model: badRelTag{}},
		{name: "two primary keys", model: twoPK{}},
		{name: "not a struct", model: 42},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Reflect(tc.model, nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, schemaerr.ErrConfig)
		})
	}

	t.Run("ambiguous union keeps cause", func(t *testing.T) {
		_, err := Reflect(ambiguous{}, nil)
		assert.ErrorIs(t, err, typeclass.ErrAmbiguousUnion)
	})
}

func TestEntityField_Unknown(t *testing.T) {
	movie, err := Reflect(testMovie{}, nil)
	require.NoError(t, err)

	_, err = movie.Field("budget")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownField)
	assert.ErrorIs(t, err, schemaerr.ErrConfig)
}

func TestNewEntity(t *testing.T) {
	fields := []*Field{
		{Name: "ID", GraphQLName: "id", Column: "id", Type: typeclass.Int, PrimaryKey: true},
		{Name: "Age", GraphQLName: "age", Column: "age", Type: typeclass.Optional{Elem: typeclass.Int}},
	}
	user, err := NewEntity("User", "users", fields)
	require.NoError(t, err)
	assert.Equal(t, "id", user.PrimaryKey().GraphQLName)

	_, err = NewEntity("User", "users", []*Field{
		{Name: "ID", GraphQLName: "id", Column: "id", Type: typeclass.Int, PrimaryKey: true},
		{Name: "Other", GraphQLName: "id", Column: "other", Type: typeclass.Int},
	})
	assert.ErrorIs(t, err, schemaerr.ErrConfig)
}

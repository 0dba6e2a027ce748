package naming

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modelgraph/internal/schemaerr"
	"modelgraph/internal/typeclass"
)

func TestTypeName(t *testing.T) {
	namer := Default()

	name, err := namer.TypeName("movie")
	require.NoError(t, err)
	assert.Equal(t, "Movie", name)

	for _, reserved := range []string{"Query", "Int", "string", "__Schema", "OrderByEnum", ""} {
		t.Run("reserved "+reserved, func(t *testing.T) {
			_, err := namer.TypeName(reserved)
			require.Error(t, err)
			assert.ErrorIs(t, err, schemaerr.ErrConfig)
		})
	}
}

func TestFieldName(t *testing.T) {
	namer := Default()

	tests := []struct {
		input    string
		expected string
	}{
		{"imdb_rating", "imdbRating"},
		{"ImdbRating", "imdbRating"},
		{"DirectorID", "directorId"},
		{"ImageURL", "imageUrl"},
		{"ID", "id"},
		{"id", "id"},
		{"movies", "movies"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result, err := namer.FieldName(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}

	_, err := namer.FieldName("__typename")
	assert.ErrorIs(t, err, schemaerr.ErrConfig)
}

func TestToSnakeCase(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Movie", "movie"},
		{"UserAddress", "user_address"},
		{"ImageURL", "image_url"},
		{"HTTPServer", "http_server"},
		{"imdb_rating", "imdb_rating"},
		{"Address2Line", "address2_line"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ToSnakeCase(tt.input))
		})
	}
}

func TestTableName(t *testing.T) {
	namer := Default()
	assert.Equal(t, "movies", namer.TableName("Movie"))
	assert.Equal(t, "directors", namer.TableName("Director"))
	assert.Equal(t, "addresses", namer.TableName("Address"))
	assert.Equal(t, "user_addresses", namer.TableName("UserAddress"))
}

func TestRootQueryName(t *testing.T) {
	namer := Default()

	tests := []struct {
		input    string
		expected string
	}{
		{"Movie", "all_Movies"},
		{"Director", "all_Directors"},
		{"User", "all_Users"},
		{"Address", "all_Addresses"},
		{"person", "all_People"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, namer.RootQueryName(tt.input))
		})
	}
}

func TestPluralizeWithOverrides(t *testing.T) {
	namer := New(Config{PluralOverrides: map[string]string{"Cactus": "Cacti"}})

	assert.Equal(t, "all_Cacti", namer.RootQueryName("Cactus"))
	assert.Equal(t, "CactiSelectColumn", namer.SelectColumnEnumName("Cactus"))
	assert.Equal(t, "Movies", namer.Pluralize("Movie"))

	folded := New(Config{PluralOverrides: map[string]string{"person": "People"}})
	assert.Equal(t, "all_People", folded.RootQueryName("Person"))
}

func TestGeneratedTypeNames(t *testing.T) {
	namer := Default()
	assert.Equal(t, "MovieOrderBy", namer.OrderByTypeName("Movie"))
	assert.Equal(t, "MoviesSelectColumn", namer.SelectColumnEnumName("Movie"))
}

func TestFilterTypeName(t *testing.T) {
	tests := []struct {
		name     string
		typ      typeclass.Type
		expected string
	}{
		{"bool", typeclass.Bool, "BoolFilter"},
		{"optional int", typeclass.Optional{Elem: typeclass.Int}, "IntFilter"},
		{"float", typeclass.Float, "FloatFilter"},
		{"string", typeclass.String, "StringFilter"},
		{"string list", typeclass.List{Elem: typeclass.String}, "StringListFilter"},
		{"int set", typeclass.Set{Elem: typeclass.Int}, "IntSetFilter"},
		{"entity", typeclass.Entity("Movie"), "MovieFilter"},
		{"entity list", typeclass.List{Elem: typeclass.Entity("Movie")}, "MovieFilter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, err := FilterTypeName(tt.typ)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, name)
		})
	}

	_, err := FilterTypeName(typeclass.Union{Alts: []typeclass.Type{typeclass.Int, typeclass.String}})
	assert.ErrorIs(t, err, typeclass.ErrAmbiguousUnion)
}

package registry

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modelgraph/internal/filtergen"
	"modelgraph/internal/model"
	"modelgraph/internal/naming"
	"modelgraph/internal/schemaerr"
	"modelgraph/internal/typeclass"
)

type Director struct {
	ID     int     `db:"id,pk"`
	Name   string  `db:"name"`
	Movies []Movie `rel:"id,director_id"`
}

type Movie struct {
	ID         int       `db:"id,pk"`
	Title      string    `db:"title"`
	DirectorID int       `db:"director_id"`
	Director   *Director `rel:"director_id,id"`
}

type Address struct {
	ID     int    `db:"id,pk"`
	Street string `db:"street"`
}

func reflectAll(t *testing.T, models ...any) []*model.Entity {
	t.Helper()
	entities, err := model.ReflectAll(naming.Default(), models...)
	require.NoError(t, err)
	return entities
}

func TestNew(t *testing.T) {
	reg, err := New(reflectAll(t, Director{}, Movie{}, Address{}))
	require.NoError(t, err)

	names := make([]string, 0)
	for _, e := range reg.Entities() {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"Director", "Movie", "Address"}, names)

	movie, err := reg.Model("Movie")
	require.NoError(t, err)
	assert.Equal(t, "movies", movie.Table)

	fields, err := reg.Fields("Movie")
	require.NoError(t, err)
	assert.Len(t, fields, 4)

	f, err := reg.Field("Movie", "directorId")
	require.NoError(t, err)
	assert.Equal(t, "DirectorID", f.Name)
	assert.Equal(t, "director_id", f.Column)

	rel, err := reg.Field("Director", "movies")
	require.NoError(t, err)
	target, err := reg.TargetOf(rel.Relationship)
	require.NoError(t, err)
	assert.Same(t, movie, target)
}

func TestNew_SynthesizesEagerly(t *testing.T) {
	reg, err := New(reflectAll(t, Director{}, Movie{}, Address{}))
	require.NoError(t, err)

	expected := []string{
		"Address", "AddressFilter", "AddressOrderBy", "AddressesSelectColumn",
		"Director", "DirectorFilter", "DirectorOrderBy", "DirectorsSelectColumn",
		"IntFilter",
		"Movie", "MovieFilter", "MovieOrderBy", "MoviesSelectColumn",
		"OrderByEnum", "StringFilter",
	}
	assert.Equal(t, expected, reg.Types().Names())

	mf, err := reg.Filter("Movie")
	require.NoError(t, err)
	assert.Equal(t, "MovieFilter", mf.Name)

	ob, err := reg.OrderBy("Director")
	require.NoError(t, err)
	assert.Equal(t, "DirectorOrderBy", ob.Name)

	sc, err := reg.SelectColumns("Address")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "street"}, sc.Values)
}

func TestNew_Frozen(t *testing.T) {
	reg, err := New(reflectAll(t, Address{}))
	require.NoError(t, err)

	// Cached types are still served.
	_, err = reg.Types().ScalarFilter(typeclass.Int)
	require.NoError(t, err)

	_, err = reg.Types().ScalarFilter(typeclass.Float)
	assert.ErrorIs(t, err, filtergen.ErrFrozen)

	type Studio struct {
		ID int `db:"id,pk"`
	}
	studio := reflectAll(t, Studio{})[0]
	_, err = reg.Types().EntityFilter(studio)
	assert.ErrorIs(t, err, filtergen.ErrFrozen)

	director := reflectAll(t, Director{})[0]
	_, err = reg.Types().OrderBy(director)
	assert.ErrorIs(t, err, filtergen.ErrNameCollision)
}

func TestNew_Errors(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		_, err := New(nil)
		assert.ErrorIs(t, err, schemaerr.ErrConfig)
	})

	t.Run("duplicate type", func(t *testing.T) {
		entities := reflectAll(t, Address{}, Address{})
		_, err := New(entities)
		assert.ErrorIs(t, err, schemaerr.ErrConfig)
	})

	t.Run("unregistered target", func(t *testing.T) {
		_, err := New(reflectAll(t, Movie{}))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnknownType)
		assert.ErrorIs(t, err, schemaerr.ErrConfig)
	})

	t.Run("unknown remote column", func(t *testing.T) {
		type Owner struct {
			ID    int       `db:"id,pk"`
			Pets  []Address `rel:"id,owner_id"`
			Label string    `db:"label"`
		}
		_, err := New(reflectAll(t, Owner{}, Address{}))
		require.Error(t, err)
		assert.ErrorIs(t, err, schemaerr.ErrConfig)
		assert.Contains(t, err.Error(), "owner_id")
	})
}

func TestLookups_Unknown(t *testing.T) {
	reg, err := New(reflectAll(t, Address{}))
	require.NoError(t, err)

	_, err = reg.Model("Nope")
	assert.ErrorIs(t, err, ErrUnknownType)
	_, err = reg.Filter("Nope")
	assert.ErrorIs(t, err, ErrUnknownType)
	_, err = reg.OrderBy("Nope")
	assert.ErrorIs(t, err, ErrUnknownType)
	_, err = reg.SelectColumns("Nope")
	assert.ErrorIs(t, err, ErrUnknownType)

	_, err = reg.Field("Address", "zip")
	assert.ErrorIs(t, err, model.ErrUnknownField)
}

func TestConcurrentReads(t *testing.T) {
	reg, err := New(reflectAll(t, Director{}, Movie{}))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				ef, err := reg.Filter("Director")
				assert.NoError(t, err)
				again, err := reg.Types().EntityFilter(ef.Entity)
				assert.NoError(t, err)
				assert.Same(t, ef, again)
			}
		}()
	}
	wg.Wait()
}

package catalog

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"modelgraph/internal/dbexec"
	"modelgraph/internal/model"
	"modelgraph/internal/naming"
	"modelgraph/internal/registry"
	"modelgraph/internal/sqlutil"
)

func entityByName(t *testing.T, entities []*model.Entity, name string) *model.Entity {
	t.Helper()
	for _, e := range entities {
		if e.Name == name {
			return e
		}
	}
	t.Fatalf("entity %s not found", name)
	return nil
}

func TestEntities_FormARegistry(t *testing.T) {
	entities, err := Entities(naming.Default())
	require.NoError(t, err)
	require.Len(t, entities, 4)

	reg, err := registry.New(entities)
	require.NoError(t, err)

	movie, err := reg.Model("Movie")
	require.NoError(t, err)
	assert.Equal(t, "movies", movie.Table)

	director, err := movie.Field("director")
	require.NoError(t, err)
	assert.True(t, director.IsOptional())
	assert.False(t, director.Relationship.Many)

	users, err := reg.Field("Address", "users")
	require.NoError(t, err)
	assert.True(t, users.Relationship.Many)
	assert.Equal(t, "address_id", users.Relationship.RemoteColumn)

	_, err = movie.Field("imdbRatingCount")
	require.NoError(t, err)
}

func TestCreateTableSQL(t *testing.T) {
	entities, err := Entities(naming.Default())
	require.NoError(t, err)
	director := entityByName(t, entities, "Director")
	user := entityByName(t, entities, "User")

	tests := []struct {
		name     string
		dialect  sqlutil.Dialect
		entity   *model.Entity
		expected string
	}{
		{
			name:     "sqlite director",
			dialect:  sqlutil.SQLite,
			entity:   director,
			expected: "CREATE TABLE IF NOT EXISTS `directors` (`id` INTEGER PRIMARY KEY, `name` TEXT NOT NULL)",
		},
		{
			name:     "mysql director",
			dialect:  sqlutil.MySQL,
			entity:   director,
			expected: "CREATE TABLE IF NOT EXISTS `directors` (`id` BIGINT PRIMARY KEY, `name` VARCHAR(255) NOT NULL)",
		},
		{
			name:    "postgres user keeps nullable columns",
			dialect: sqlutil.Postgres,
			entity:  user,
			expected: `CREATE TABLE IF NOT EXISTS "users" ("id" BIGINT PRIMARY KEY, "age" BIGINT NOT NULL, ` +
				`"password" TEXT, "address_id" BIGINT)`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CreateTableSQL(tt.dialect, tt.entity))
		})
	}
}

func TestBootstrapAndSeed(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	defer db.Close()

	entities, err := Entities(naming.Default())
	require.NoError(t, err)

	ctx := context.Background()
	exec := dbexec.NewStandardExecutor(db)
	require.NoError(t, Bootstrap(ctx, exec, sqlutil.SQLite, entities))
	// Tables are created only when missing.
	require.NoError(t, Bootstrap(ctx, exec, sqlutil.SQLite, entities))
	require.NoError(t, Seed(ctx, exec, sqlutil.SQLite, entities))
	// Populated tables are skipped on a second run.
	require.NoError(t, Seed(ctx, exec, sqlutil.SQLite, entities))

	counts := map[string]int{"directors": len(SeedDirectors), "movies": len(SeedMovies), "addresses": len(SeedAddresses), "users": len(SeedUsers)}
	for table, want := range counts {
		var got int
		require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&got))
		assert.Equal(t, want, got, table)
	}

	var genres string
	require.NoError(t, db.QueryRow("SELECT genres FROM movies WHERE id = 3").Scan(&genres))
	assert.Equal(t, "action,crime,drama", genres)

	var director sql.NullInt64
	require.NoError(t, db.QueryRow("SELECT director_id FROM movies WHERE id = 5").Scan(&director))
	assert.False(t, director.Valid)
}

func TestInsert_SQLShape(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	entities, err := Entities(naming.Default())
	require.NoError(t, err)
	user := entityByName(t, entities, "User")

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "users" ("id","age","password","address_id") VALUES ($1,$2,$3,$4),($5,$6,$7,$8)`)).
		WithArgs(1, 10, nil, 1, 2, 18, "hunter2", 1).
		WillReturnResult(sqlmock.NewResult(0, 2))

	err = Insert(context.Background(), dbexec.NewStandardExecutor(db), sqlutil.Postgres, user, SeedUsers[0], &SeedUsers[1])
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsert_Errors(t *testing.T) {
	entities, err := Entities(naming.Default())
	require.NoError(t, err)
	user := entityByName(t, entities, "User")
	movie := entityByName(t, entities, "Movie")

	ctx := context.Background()
	exec := dbexec.NewStandardExecutor(nil)

	t.Run("wrong type", func(t *testing.T) {
		err := Insert(ctx, exec, sqlutil.SQLite, user, SeedDirectors[0])
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot insert catalog.Director")
	})

	t.Run("separator in collection", func(t *testing.T) {
		m := SeedMovies[0]
		m.Genres = []string{"drama,crime"}
		err := Insert(ctx, exec, sqlutil.SQLite, movie, m)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "contains")
	})

	t.Run("no rows is a no-op", func(t *testing.T) {
		require.NoError(t, Insert(ctx, exec, sqlutil.SQLite, movie))
	})

	t.Run("descriptor without Go type", func(t *testing.T) {
		bare, err := model.NewEntity("Bare", "bare", []*model.Field{{Name: "ID", GraphQLName: "id", Column: "id", Type: user.PrimaryKey().Type, Class: user.PrimaryKey().Class, PrimaryKey: true}})
		require.NoError(t, err)
		require.Error(t, Insert(ctx, exec, sqlutil.SQLite, bare, SeedUsers[0]))
	})
}

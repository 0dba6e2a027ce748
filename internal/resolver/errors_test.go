package resolver

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/graphql-go/graphql/gqlerrors"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modelgraph/internal/schemaerr"
)

func TestNormalizeQueryError(t *testing.T) {
	plain := errors.New("connection reset")

	tests := []struct {
		name     string
		err      error
		code     string
		sentinel error
	}{
		{name: "mysql table access", err: &mysql.MySQLError{Number: 1142, Message: "SELECT command denied"}, code: codeAccessDenied, sentinel: errAccessDenied},
		{name: "mysql db access", err: fmt.Errorf("query: %w", &mysql.MySQLError{Number: 1044}), code: codeAccessDenied, sentinel: errAccessDenied},
		{name: "mysql missing table", err: &mysql.MySQLError{Number: 1146, Message: "Table 'app.movies' doesn't exist"}, code: codeSchemaMismatch, sentinel: errSchemaMismatch},
		{name: "postgres privilege", err: &pq.Error{Code: "42501"}, code: codeAccessDenied, sentinel: errAccessDenied},
		{name: "postgres undefined column", err: &pq.Error{Code: "42703", Message: `column "imdb_id" does not exist`}, code: codeSchemaMismatch, sentinel: errSchemaMismatch},
		{name: "sqlite missing table", err: errors.New("SQL logic error: no such table: movies (1)"), code: codeSchemaMismatch, sentinel: errSchemaMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeQueryError(tt.err)
			var re *resolverError
			require.ErrorAs(t, got, &re)
			assert.Equal(t, tt.code, re.code)
			assert.ErrorIs(t, got, tt.sentinel)
		})
	}

	t.Run("unrelated errors pass through", func(t *testing.T) {
		assert.Same(t, plain, normalizeQueryError(plain))
		other := &mysql.MySQLError{Number: 1064}
		assert.Equal(t, error(other), normalizeQueryError(other))
	})

	t.Run("access denied hides driver detail", func(t *testing.T) {
		got := normalizeQueryError(&mysql.MySQLError{Number: 1142, Message: "SELECT command denied to user 'app'@'%' for table 'users'"})
		assert.Equal(t, "access denied", got.Error())
	})
}

func TestGraphQLError(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		assert.NoError(t, graphQLError(nil))
	})

	t.Run("classified errors keep their code through wrapping", func(t *testing.T) {
		cause := schemaerr.Dataf("cannot read age")
		err := graphQLError(fmt.Errorf("row 3: %w", cause))

		ext, ok := err.(gqlerrors.ExtendedError)
		require.True(t, ok)
		assert.Equal(t, "DATA_ERROR", ext.Extensions()["code"])
		assert.ErrorIs(t, err, schemaerr.ErrData)
		assert.Equal(t, "row 3: data error: cannot read age", err.Error())
	})

	t.Run("unwrapped classified errors are returned as is", func(t *testing.T) {
		cause := schemaerr.NotImplementedf("and_")
		assert.Same(t, cause, graphQLError(cause))
	})

	t.Run("driver errors gain a code", func(t *testing.T) {
		err := graphQLError(fmt.Errorf("list users: %w", &pq.Error{Code: "42P01"}))
		ext, ok := err.(gqlerrors.ExtendedError)
		require.True(t, ok)
		assert.Equal(t, codeSchemaMismatch, ext.Extensions()["code"])
	})

	t.Run("unclassified errors have no code", func(t *testing.T) {
		_, ok := graphQLError(errors.New("boom")).(gqlerrors.ExtendedError)
		assert.False(t, ok)
	})
}

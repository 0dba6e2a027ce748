package catalog

import (
	"context"
	"fmt"
	"reflect"

	sq "github.com/Masterminds/squirrel"

	"modelgraph/internal/compiler"
	"modelgraph/internal/dbexec"
	"modelgraph/internal/model"
	"modelgraph/internal/schemaerr"
	"modelgraph/internal/sqlutil"
)

// Insert writes one row per value into e's table. Values must be of e's Go
// type. Collections are stored comma-joined and nil pointers become NULL.
func Insert(ctx context.Context, exec dbexec.QueryExecutor, d sqlutil.Dialect, e *model.Entity, values ...any) error {
	if len(values) == 0 {
		return nil
	}
	if e.GoType == nil {
		return schemaerr.Configf("entity %s has no Go type to insert from", e.Name)
	}

	fields := e.ScalarFields()
	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = d.QuoteIdentifier(f.Column)
	}

	builder := sq.Insert(d.QuoteIdentifier(e.Table)).
		Columns(columns...).
		PlaceholderFormat(d.Placeholder())
	for _, v := range values {
		row, err := rowValues(e, fields, v)
		if err != nil {
			return err
		}
		builder = builder.Values(row...)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return err
	}
	if _, err := exec.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert into %s: %w", e.Table, err)
	}
	return nil
}

func rowValues(e *model.Entity, fields []*model.Field, v any) ([]interface{}, error) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	if rv.Type() != e.GoType {
		return nil, schemaerr.Configf("cannot insert %T into %s", v, e.Table)
	}

	row := make([]interface{}, len(fields))
	for i, f := range fields {
		fv := rv.FieldByName(f.Name)
		switch {
		case !fv.IsValid():
			return nil, schemaerr.Configf("%s has no attribute %s", e.Name, f.Name)
		case fv.Kind() == reflect.Pointer:
			if fv.IsNil() {
				row[i] = nil
			} else {
				row[i] = fv.Elem().Interface()
			}
		case fv.Kind() == reflect.Slice:
			elems := make([]interface{}, fv.Len())
			for j := range elems {
				elems[j] = fv.Index(j).Interface()
			}
			text, err := compiler.EncodeCollection(elems)
			if err != nil {
				return nil, err
			}
			row[i] = text
		default:
			row[i] = fv.Interface()
		}
	}
	return row, nil
}

func intPtr(v int) *int          { return &v }
func stringPtr(v string) *string { return &v }

// SeedDirectors and the other seed sets are the rows Seed inserts.
var (
	SeedDirectors = []Director{
		{ID: 1, Name: "Christopher Nolan"},
		{ID: 2, Name: "Frank Darabont"},
		{ID: 3, Name: "Francis Ford Coppola"},
		{ID: 4, Name: "Greta Gerwig"},
	}

	SeedMovies = []Movie{
		{ID: 1, Title: "The Shawshank Redemption", ImdbID: "tt0111161", Year: 1994, ImageURL: "https://m.media-amazon.com/images/M/shawshank.jpg", ImdbRating: 9.2, ImdbRatingCount: "2341586", Genres: []string{"drama"}, DirectorID: intPtr(2)},
		{ID: 2, Title: "The Godfather", ImdbID: "tt0068646", Year: 1972, ImageURL: "https://m.media-amazon.com/images/M/godfather.jpg", ImdbRating: 9.1, ImdbRatingCount: "1614366", Genres: []string{"crime", "drama"}, DirectorID: intPtr(3)},
		{ID: 3, Title: "The Dark Knight", ImdbID: "tt0468569", Year: 2008, ImageURL: "https://m.media-amazon.com/images/M/dark_knight.jpg", ImdbRating: 9.0, ImdbRatingCount: "2300000", Genres: []string{"action", "crime", "drama"}, DirectorID: intPtr(1)},
		{ID: 4, Title: "Inception", ImdbID: "tt1375666", Year: 2010, ImageURL: "https://m.media-amazon.com/images/M/inception.jpg", ImdbRating: 8.8, ImdbRatingCount: "2074359", Genres: []string{"action", "scifi"}, DirectorID: intPtr(1)},
		{ID: 5, Title: "12 Angry Men", ImdbID: "tt0050083", Year: 1957, ImageURL: "https://m.media-amazon.com/images/M/12_angry_men.jpg", ImdbRating: 9.0, ImdbRatingCount: "689845", Genres: []string{"drama"}},
	}

	SeedAddresses = []Address{
		{ID: 1, Street: "1 Main St", State: "CA", Country: "US", Zip: "94105"},
		{ID: 2, Street: "22 High St", State: "OX", Country: "UK", Zip: "OX1 4AJ"},
	}

	SeedUsers = []User{
		{ID: 1, Age: 10, AddressID: intPtr(1)},
		{ID: 2, Age: 18, Password: stringPtr("hunter2"), AddressID: intPtr(1)},
		{ID: 3, Age: 25, Password: stringPtr("correct horse"), AddressID: intPtr(2)},
	}
)

// Seed inserts the catalog rows. Entities are looked up by model name, so
// callers may pass any subset of the catalog. Tables that already hold rows
// are left alone, which makes seeding a persistent database repeatable.
func Seed(ctx context.Context, exec dbexec.QueryExecutor, d sqlutil.Dialect, entities []*model.Entity) error {
	byName := make(map[string]*model.Entity, len(entities))
	for _, e := range entities {
		byName[e.Name] = e
	}

	sets := []struct {
		name string
		rows []any
	}{
		{"Director", toAny(SeedDirectors)},
		{"Movie", toAny(SeedMovies)},
		{"Address", toAny(SeedAddresses)},
		{"User", toAny(SeedUsers)},
	}
	for _, set := range sets {
		e, ok := byName[set.name]
		if !ok {
			continue
		}
		populated, err := hasRows(ctx, exec, d, e)
		if err != nil {
			return err
		}
		if populated {
			continue
		}
		if err := Insert(ctx, exec, d, e, set.rows...); err != nil {
			return err
		}
	}
	return nil
}

func hasRows(ctx context.Context, exec dbexec.QueryExecutor, d sqlutil.Dialect, e *model.Entity) (bool, error) {
	query, args, err := sq.Select("1").From(d.QuoteIdentifier(e.Table)).Limit(1).
		PlaceholderFormat(d.Placeholder()).ToSql()
	if err != nil {
		return false, err
	}
	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to probe %s: %w", e.Table, err)
	}
	defer rows.Close()
	found := rows.Next()
	return found, rows.Err()
}

func toAny[T any](rows []T) []any {
	out := make([]any, len(rows))
	for i := range rows {
		out[i] = rows[i]
	}
	return out
}

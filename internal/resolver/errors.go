package resolver

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"

	"modelgraph/internal/schemaerr"
)

const (
	codeAccessDenied   = "ACCESS_DENIED"
	codeSchemaMismatch = "SCHEMA_MISMATCH"
)

var (
	errAccessDenied   = errors.New("access denied")
	errSchemaMismatch = errors.New("model does not match the database schema")
)

// resolverError carries an extensions code through graphql-go, which only
// inspects the error a resolver returns and not its chain.
type resolverError struct {
	code string
	err  error
}

func (e *resolverError) Error() string { return e.err.Error() }

func (e *resolverError) Unwrap() error { return e.err }

func (e *resolverError) Extensions() map[string]interface{} {
	return map[string]interface{}{"code": e.code}
}

// graphQLError prepares a resolver failure for the response. Classified
// errors keep their kind's code even when wrapped.
func graphQLError(err error) error {
	if err == nil {
		return nil
	}
	err = normalizeQueryError(err)

	var re *resolverError
	if errors.As(err, &re) {
		if re == err {
			return err
		}
		return &resolverError{code: re.code, err: err}
	}
	var se *schemaerr.Error
	if errors.As(err, &se) {
		if se == err {
			return err
		}
		return &resolverError{code: se.Kind.Code(), err: err}
	}
	return err
}

// normalizeQueryError maps driver errors onto stable codes.
func normalizeQueryError(err error) error {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case 1044, 1142, 1143, 1227:
			return &resolverError{code: codeAccessDenied, err: errAccessDenied}
		case 1054, 1146:
			return &resolverError{code: codeSchemaMismatch, err: fmt.Errorf("%w: %w", errSchemaMismatch, err)}
		}
		return err
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "42501":
			return &resolverError{code: codeAccessDenied, err: errAccessDenied}
		case "42P01", "42703":
			return &resolverError{code: codeSchemaMismatch, err: fmt.Errorf("%w: %w", errSchemaMismatch, err)}
		}
		return err
	}

	msg := err.Error()
	if strings.Contains(msg, "no such table") || strings.Contains(msg, "no such column") {
		return &resolverError{code: codeSchemaMismatch, err: fmt.Errorf("%w: %w", errSchemaMismatch, err)}
	}
	return err
}

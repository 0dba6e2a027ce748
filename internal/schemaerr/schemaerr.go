// Package schemaerr defines the error taxonomy shared by schema generation,
// query compilation and filter application.
//
// Errors carry a Kind that maps to a GraphQL extensions code, so the serving
// layer can convert them into protocol-level error responses unchanged.
package schemaerr

import (
	"errors"
	"fmt"
)

// Kind classifies an error.
type Kind int

const (
	// KindConfig marks schema configuration and programming errors.
	KindConfig Kind = iota + 1
	// KindNotImplemented marks recognized but unsupported request shapes.
	KindNotImplemented
	// KindUnknownOperator marks filter operators with no predicate for a field kind.
	KindUnknownOperator
	// KindData marks values that cannot be coerced to a field's type.
	KindData
)

// Sentinels for errors.Is matching.
var (
	ErrConfig          = errors.New("configuration error")
	ErrNotImplemented  = errors.New("not implemented")
	ErrUnknownOperator = errors.New("unknown filter operator")
	ErrData            = errors.New("data error")
)

// Code returns the GraphQL extensions code for the kind.
func (k Kind) Code() string {
	switch k {
	case KindConfig:
		return "CONFIGURATION_ERROR"
	case KindNotImplemented:
		return "NOT_IMPLEMENTED"
	case KindUnknownOperator:
		return "UNKNOWN_OPERATOR"
	case KindData:
		return "DATA_ERROR"
	default:
		return "INTERNAL_ERROR"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindConfig:
		return ErrConfig
	case KindNotImplemented:
		return ErrNotImplemented
	case KindUnknownOperator:
		return ErrUnknownOperator
	case KindData:
		return ErrData
	default:
		return nil
	}
}

// Error is a classified error.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	prefix := "error"
	if s := e.Kind.sentinel(); s != nil {
		prefix = s.Error()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind.
func (e *Error) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

// Extensions implements graphql-go's gqlerrors.ExtendedError.
func (e *Error) Extensions() map[string]interface{} {
	return map[string]interface{}{"code": e.Kind.Code()}
}

// Configf returns a configuration error.
func Configf(format string, args ...any) error {
	return &Error{Kind: KindConfig, Msg: fmt.Sprintf(format, args...)}
}

// NotImplementedf returns an unsupported-feature error.
func NotImplementedf(format string, args ...any) error {
	return &Error{Kind: KindNotImplemented, Msg: fmt.Sprintf(format, args...)}
}

// UnknownOperatorf returns an operator lookup error.
func UnknownOperatorf(format string, args ...any) error {
	return &Error{Kind: KindUnknownOperator, Msg: fmt.Sprintf(format, args...)}
}

// Dataf returns a value coercion error.
func Dataf(format string, args ...any) error {
	return &Error{Kind: KindData, Msg: fmt.Sprintf(format, args...)}
}

// Wrap classifies err under kind. A nil err returns nil.
func Wrap(kind Kind, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf returns the kind of the first classified error in err's chain.
func KindOf(err error) (Kind, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind, true
	}
	return 0, false
}

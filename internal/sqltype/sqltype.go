// Package sqltype provides a shared mapping from field kinds to GraphQL scalars
// and SQL column types. This keeps schema generation, value decoding and
// table bootstrap consistent with each other.
package sqltype

import (
	"github.com/graphql-go/graphql"

	"modelgraph/internal/sqlutil"
	"modelgraph/internal/typeclass"
)

// GraphQLType represents the category of GraphQL scalar type for a field.
type GraphQLType int

const (
	// TypeString is the default type for text and unknown kinds.
	TypeString GraphQLType = iota
	// TypeInt represents integer kinds.
	TypeInt
	// TypeFloat represents floating-point kinds.
	TypeFloat
	// TypeBoolean represents boolean kinds.
	TypeBoolean
)

// FromKind maps a primitive kind to its GraphQL scalar category.
func FromKind(kind typeclass.Kind) GraphQLType {
	switch kind {
	case typeclass.KindInt:
		return TypeInt
	case typeclass.KindFloat:
		return TypeFloat
	case typeclass.KindBool:
		return TypeBoolean
	default:
		return TypeString
	}
}

// String returns the GraphQL scalar type name for schema generation.
func (t GraphQLType) String() string {
	switch t {
	case TypeInt:
		return "Int"
	case TypeFloat:
		return "Float"
	case TypeBoolean:
		return "Boolean"
	default:
		return "String"
	}
}

// Scalar returns the graphql-go scalar for the category.
func (t GraphQLType) Scalar() *graphql.Scalar {
	switch t {
	case TypeInt:
		return graphql.Int
	case TypeFloat:
		return graphql.Float
	case TypeBoolean:
		return graphql.Boolean
	default:
		return graphql.String
	}
}

// OutputType returns the GraphQL output type for a scalar field, including
// list and non-null wrappers.
func OutputType(t typeclass.Type) (graphql.Output, error) {
	cls, err := typeclass.Classify(t)
	if err != nil {
		return nil, err
	}
	scalar := FromKind(cls.Base.Kind).Scalar()

	var out graphql.Output = scalar
	if cls.Kind == typeclass.FilterCollection {
		out = graphql.NewList(graphql.NewNonNull(scalar))
	}
	if !typeclass.IsOptional(t) {
		out = graphql.NewNonNull(out)
	}
	return out, nil
}

// ColumnType returns the DDL column type for a scalar field.
// Collections are stored as comma-joined text.
func ColumnType(d sqlutil.Dialect, cls typeclass.Classification) string {
	if cls.Kind == typeclass.FilterCollection {
		return "TEXT"
	}
	switch cls.Kind {
	case typeclass.FilterInt:
		if d == sqlutil.SQLite {
			return "INTEGER"
		}
		return "BIGINT"
	case typeclass.FilterFloat:
		if d == sqlutil.Postgres {
			return "DOUBLE PRECISION"
		}
		if d == sqlutil.SQLite {
			return "REAL"
		}
		return "DOUBLE"
	case typeclass.FilterBool:
		return "BOOLEAN"
	default:
		if d == sqlutil.MySQL {
			return "VARCHAR(255)"
		}
		return "TEXT"
	}
}

package model

import (
	"fmt"
	"reflect"
	"strings"

	"modelgraph/internal/naming"
	"modelgraph/internal/schemaerr"
	"modelgraph/internal/typeclass"
)

// Tabler lets a model override its derived table name.
type Tabler interface {
	TableName() string
}

// Struct tags read by Reflect:
//
//	db:"column[,pk]"            column-backed field
//	rel:"local_col,remote_col"  relationship to the field's element struct
//	type:"int|null"             declared type override
//	gql:"name" or gql:"-"       GraphQL field name override, or skip
//
// Exported fields without db or rel tags map to a snake_case column.
const (
	tagColumn       = "db"
	tagRelationship = "rel"
	tagType         = "type"
	tagGraphQL      = "gql"
)

// Reflect builds the descriptor for a tagged Go struct.
func Reflect(v any, namer *naming.Namer) (*Entity, error) {
	if namer == nil {
		namer = naming.Default()
	}

	rt := reflect.TypeOf(v)
	for rt != nil && rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	if rt == nil || rt.Kind() != reflect.Struct {
		return nil, schemaerr.Configf("model must be a struct or a pointer to struct, got %T", v)
	}

	name, err := namer.TypeName(rt.Name())
	if err != nil {
		return nil, err
	}

	table := namer.TableName(name)
	if tabler, ok := v.(Tabler); ok {
		table = tabler.TableName()
	} else if tabler, ok := reflect.New(rt).Interface().(Tabler); ok {
		table = tabler.TableName()
	}

	fields := make([]*Field, 0, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if !sf.IsExported() {
			continue
		}
		field, err := reflectField(name, sf, namer)
		if err != nil {
			return nil, err
		}
		if field != nil {
			fields = append(fields, field)
		}
	}

	entity, err := NewEntity(name, table, fields)
	if err != nil {
		return nil, err
	}
	entity.GoType = rt
	return entity, nil
}

// ReflectAll reflects several models in order.
func ReflectAll(namer *naming.Namer, models ...any) ([]*Entity, error) {
	entities := make([]*Entity, 0, len(models))
	for _, m := range models {
		e, err := Reflect(m, namer)
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return entities, nil
}

func reflectField(entity string, sf reflect.StructField, namer *naming.Namer) (*Field, error) {
	gqlTag := sf.Tag.Get(tagGraphQL)
	if gqlTag == "-" {
		return nil, nil
	}

	var (
		declared typeclass.Type
		err      error
	)
	if expr, ok := sf.Tag.Lookup(tagType); ok {
		declared, err = typeclass.Parse(expr)
	} else {
		declared, err = typeclass.FromReflect(sf.Type)
	}
	if err != nil {
		return nil, schemaerr.Wrap(schemaerr.KindConfig, err, fmt.Sprintf("field %s.%s", entity, sf.Name))
	}

	field := &Field{Name: sf.Name, Type: declared}

	if relTag, ok := sf.Tag.Lookup(tagRelationship); ok {
		local, remote, ok := strings.Cut(relTag, ",")
		local, remote = strings.TrimSpace(local), strings.TrimSpace(remote)
		if !ok || local == "" || remote == "" {
			return nil, schemaerr.Configf("field %s.%s: rel tag must be \"local_column,remote_column\"", entity, sf.Name)
		}
		base, err := typeclass.Unwrap(declared)
		if err != nil {
			return nil, schemaerr.Wrap(schemaerr.KindConfig, err, fmt.Sprintf("field %s.%s", entity, sf.Name))
		}
		target, err := namer.TypeName(base.Name)
		if err != nil {
			return nil, err
		}
		field.Relationship = &Relationship{
			Target:       target,
			LocalColumn:  local,
			RemoteColumn: remote,
		}
	} else {
		column, opts, _ := strings.Cut(sf.Tag.Get(tagColumn), ",")
		if column == "" {
			column = naming.ToSnakeCase(sf.Name)
		}
		field.Column = column
		for _, opt := range strings.Split(opts, ",") {
			if strings.TrimSpace(opt) == "pk" {
				field.PrimaryKey = true
			}
		}
	}

	switch {
	case gqlTag != "":
		field.GraphQLName = gqlTag
	case field.Column != "":
		field.GraphQLName, err = namer.FieldName(field.Column)
	default:
		field.GraphQLName, err = namer.FieldName(sf.Name)
	}
	if err != nil {
		return nil, err
	}
	return field, nil
}

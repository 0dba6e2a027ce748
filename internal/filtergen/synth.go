package filtergen

import (
	"fmt"
	"strings"

	"github.com/graphql-go/graphql"

	"modelgraph/internal/model"
	"modelgraph/internal/naming"
	"modelgraph/internal/schemaerr"
	"modelgraph/internal/sqltype"
	"modelgraph/internal/typeclass"
)

const orderByEnumName = "OrderByEnum"

// ScalarFilter returns the filter input for a scalar field type.
func (t *Types) ScalarFilter(typ typeclass.Type) (*ScalarFilter, error) {
	name, key, err := scalarFilterIdentity(typ)
	if err != nil {
		return nil, err
	}
	if v, ok, err := t.cached(name, key); err != nil || ok {
		if err != nil {
			return nil, err
		}
		return v.(*ScalarFilter), nil
	}

	t.buildMu.Lock()
	defer t.buildMu.Unlock()
	return t.scalarFilterLocked(typ)
}

func scalarFilterIdentity(typ typeclass.Type) (name, key string, err error) {
	cls, err := typeclass.Classify(typ)
	if err != nil {
		return "", "", schemaerr.Wrap(schemaerr.KindConfig, err, "scalar filter")
	}
	if cls.Kind == typeclass.FilterEntity {
		return "", "", schemaerr.Configf("type %s is not scalar", typ)
	}
	name, err = naming.FilterTypeName(typ)
	if err != nil {
		return "", "", schemaerr.Wrap(schemaerr.KindConfig, err, "scalar filter")
	}
	key = "scalar(" + cls.Kind.String() + ":" + cls.Base.Name
	if cls.Container != nil {
		key += ":" + containerName(cls.Container)
	}
	return name, key + ")", nil
}

func containerName(t typeclass.Type) string {
	if _, ok := t.(typeclass.Set); ok {
		return "set"
	}
	return "list"
}

func (t *Types) scalarFilterLocked(typ typeclass.Type) (*ScalarFilter, error) {
	name, key, err := scalarFilterIdentity(typ)
	if err != nil {
		return nil, err
	}
	if v, ok, err := t.cached(name, key); err != nil || ok {
		if err != nil {
			return nil, err
		}
		return v.(*ScalarFilter), nil
	}

	cls, _ := typeclass.Classify(typ)
	ops, err := Operators(cls.Kind)
	if err != nil {
		return nil, schemaerr.Wrap(schemaerr.KindConfig, err, name)
	}

	scalar := sqltype.FromKind(cls.Base.Kind).Scalar()
	fields := graphql.InputObjectConfigFieldMap{}
	for _, op := range ops {
		fields[string(op)] = &graphql.InputObjectFieldConfig{Type: operandType(op, cls, scalar)}
	}

	sf := &ScalarFilter{
		Name:  name,
		Class: cls,
		Ops:   ops,
		Input: graphql.NewInputObject(graphql.InputObjectConfig{
			Name:   name,
			Fields: fields,
		}),
	}
	v, err := t.store(name, key, sf)
	if err != nil {
		return nil, err
	}
	return v.(*ScalarFilter), nil
}

// operandType returns the input type an operator accepts.
func operandType(op Op, cls typeclass.Classification, scalar *graphql.Scalar) graphql.Input {
	switch {
	case op == OpIsNull:
		return graphql.Boolean
	case IsInclusion(op):
		return graphql.NewList(graphql.NewNonNull(scalar))
	case cls.Kind == typeclass.FilterCollection:
		return graphql.NewList(graphql.NewNonNull(scalar))
	default:
		return scalar
	}
}

// EntityFilter returns the nested filter input for an entity. Unlike the other
// lookups it always takes buildMu: a filter is bound to its name before its
// slots are filled, so an unlocked read could see it half built.
func (t *Types) EntityFilter(e *model.Entity) (*EntityFilter, error) {
	t.buildMu.Lock()
	defer t.buildMu.Unlock()
	return t.entityFilterLocked(e)
}

func (t *Types) entityFilterLocked(e *model.Entity) (*EntityFilter, error) {
	name, err := naming.FilterTypeName(typeclass.Entity(e.Name))
	if err != nil {
		return nil, schemaerr.Wrap(schemaerr.KindConfig, err, e.Name)
	}
	key := entityKey("filter", e)
	if v, ok, err := t.cached(name, key); err != nil || ok {
		if err != nil {
			return nil, err
		}
		return v.(*EntityFilter), nil
	}

	// Registered before its slots so cyclic relationships resolve to it.
	ef := &EntityFilter{Name: name, Entity: e}
	if _, err := t.store(name, key, ef); err != nil {
		return nil, err
	}
	built := false
	defer func() {
		if !built {
			t.forget(name)
		}
	}()

	for _, field := range e.Fields {
		if !field.IsRelationship() {
			sf, err := t.scalarFilterLocked(field.Type)
			if err != nil {
				return nil, fmt.Errorf("filter for %s.%s: %w", e.Name, field.GraphQLName, err)
			}
			ef.Slots = append(ef.Slots, Slot{Name: field.GraphQLName, Variant: VariantScalar, Field: field, Scalar: sf})
			continue
		}

		if t.targets == nil {
			return nil, schemaerr.Configf("no target resolver for relationship %s.%s", e.Name, field.GraphQLName)
		}
		target, err := t.targets.TargetOf(field.Relationship)
		if err != nil {
			return nil, err
		}
		nested, err := t.entityFilterLocked(target)
		if err != nil {
			return nil, err
		}
		ef.Slots = append(ef.Slots, Slot{Name: field.GraphQLName, Variant: VariantComposite, Field: field, Composite: nested})
	}
	ef.Slots = append(ef.Slots,
		Slot{Name: AndField, Variant: VariantComposition},
		Slot{Name: OrField, Variant: VariantComposition},
	)

	ef.Input = graphql.NewInputObject(graphql.InputObjectConfig{
		Name: name,
		Fields: graphql.InputObjectConfigFieldMapThunk(func() graphql.InputObjectConfigFieldMap {
			fields := graphql.InputObjectConfigFieldMap{}
			for _, slot := range ef.Slots {
				switch slot.Variant {
				case VariantScalar:
					fields[slot.Name] = &graphql.InputObjectFieldConfig{Type: slot.Scalar.Input}
				case VariantComposite:
					fields[slot.Name] = &graphql.InputObjectFieldConfig{Type: slot.Composite.Input}
				case VariantComposition:
					fields[slot.Name] = &graphql.InputObjectFieldConfig{Type: graphql.NewList(graphql.NewNonNull(ef.Input))}
				}
			}
			return fields
		}),
	})
	built = true
	return ef, nil
}

// OrderByEnum returns the shared ordering-direction enum.
func (t *Types) OrderByEnum() (*graphql.Enum, error) {
	if v, ok, err := t.cached(orderByEnumName, "order-direction"); err != nil || ok {
		if err != nil {
			return nil, err
		}
		return v.(*graphql.Enum), nil
	}

	t.buildMu.Lock()
	defer t.buildMu.Unlock()
	return t.orderByEnumLocked()
}

func (t *Types) orderByEnumLocked() (*graphql.Enum, error) {
	values := graphql.EnumValueConfigMap{}
	for _, name := range DirectionNames() {
		values[name] = &graphql.EnumValueConfig{Value: name}
	}
	enum := graphql.NewEnum(graphql.EnumConfig{
		Name:        orderByEnumName,
		Description: "Ordering direction with optional null placement.",
		Values:      values,
	})
	v, err := t.store(orderByEnumName, "order-direction", enum)
	if err != nil {
		return nil, err
	}
	return v.(*graphql.Enum), nil
}

// OrderBy returns the order-by input for an entity: one optional direction per
// declared field. Relationship fields are included and not validated here.
func (t *Types) OrderBy(e *model.Entity) (*OrderBy, error) {
	name := t.namer.OrderByTypeName(e.Name)
	key := entityKey("order-by", e)
	if v, ok, err := t.cached(name, key); err != nil || ok {
		if err != nil {
			return nil, err
		}
		return v.(*OrderBy), nil
	}

	t.buildMu.Lock()
	defer t.buildMu.Unlock()

	enum, err := t.orderByEnumLocked()
	if err != nil {
		return nil, err
	}
	fields := graphql.InputObjectConfigFieldMap{}
	for _, f := range e.Fields {
		fields[f.GraphQLName] = &graphql.InputObjectFieldConfig{Type: enum}
	}
	ob := &OrderBy{
		Name:   name,
		Entity: e,
		Input: graphql.NewInputObject(graphql.InputObjectConfig{
			Name:        name,
			Description: orderByDescription(e),
			Fields:      fields,
		}),
	}
	v, err := t.store(name, key, ob)
	if err != nil {
		return nil, err
	}
	return v.(*OrderBy), nil
}

// orderByDescription tells clients that sort keys follow the model's field
// order, because input object fields carry no order of their own.
func orderByDescription(e *model.Entity) string {
	scalars := e.ScalarFields()
	names := make([]string, len(scalars))
	for i, f := range scalars {
		names[i] = f.GraphQLName
	}
	return fmt.Sprintf("Sort directions for %s rows. When several fields are set they apply in "+
		"field declaration order (%s), not in the order they appear in the request.",
		e.Name, strings.Join(names, ", "))
}

// SelectColumns returns the column enum for an entity: one value per declared field.
func (t *Types) SelectColumns(e *model.Entity) (*SelectColumns, error) {
	name := t.namer.SelectColumnEnumName(e.Name)
	key := entityKey("select-columns", e)
	if v, ok, err := t.cached(name, key); err != nil || ok {
		if err != nil {
			return nil, err
		}
		return v.(*SelectColumns), nil
	}

	t.buildMu.Lock()
	defer t.buildMu.Unlock()

	names := e.FieldNames()
	values := graphql.EnumValueConfigMap{}
	for _, n := range names {
		values[n] = &graphql.EnumValueConfig{Value: n}
	}
	sc := &SelectColumns{
		Name:   name,
		Entity: e,
		Values: names,
		Enum: graphql.NewEnum(graphql.EnumConfig{
			Name:   name,
			Values: values,
		}),
	}
	v, err := t.store(name, key, sc)
	if err != nil {
		return nil, err
	}
	return v.(*SelectColumns), nil
}

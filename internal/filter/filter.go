// Package filter decodes where arguments into a tagged filter tree and applies
// it to a compiled query as ANDed column predicates.
package filter

import (
	"fmt"
	"sort"

	"modelgraph/internal/filtergen"
	"modelgraph/internal/model"
	"modelgraph/internal/schemaerr"
	"modelgraph/internal/typeclass"
)

// Condition is one operator applied to one column.
type Condition struct {
	Op    filtergen.Op
	Value interface{}
}

// ScalarFilter holds the conditions on one column.
type ScalarFilter struct {
	Kind       typeclass.FilterKind
	Conditions []Condition
}

// CompositeFilter is a decoded entity filter. And and Or are non-nil whenever
// the argument carried them, even as empty lists.
type CompositeFilter struct {
	Entity *model.Entity
	Fields []FieldFilter
	And    []*CompositeFilter
	Or     []*CompositeFilter
}

// FieldFilter is one populated slot. Variant says which of Scalar or
// Composite is set.
type FieldFilter struct {
	Variant   filtergen.Variant
	Field     *model.Field
	Scalar    *ScalarFilter
	Composite *CompositeFilter
}

// Decode converts a where argument into a filter tree using the synthesized
// descriptor. Slot variants come from desc and are never re-derived from raw.
func Decode(desc *filtergen.EntityFilter, raw map[string]interface{}) (*CompositeFilter, error) {
	if desc == nil {
		return nil, schemaerr.Configf("no filter descriptor")
	}
	if raw == nil {
		return nil, nil
	}

	keys := make([]string, 0, len(raw))
	for key := range raw {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if _, ok := desc.Slot(key); !ok {
			return nil, &schemaerr.Error{
				Kind: schemaerr.KindConfig,
				Msg:  fmt.Sprintf("%s has no slot %q", desc.Name, key),
				Err:  model.ErrUnknownField,
			}
		}
	}

	out := &CompositeFilter{Entity: desc.Entity}
	for _, slot := range desc.Slots {
		value, ok := raw[slot.Name]
		if !ok || value == nil {
			continue
		}

		switch slot.Variant {
		case filtergen.VariantScalar:
			sf, err := decodeScalar(slot, value)
			if err != nil {
				return nil, err
			}
			out.Fields = append(out.Fields, FieldFilter{Variant: slot.Variant, Field: slot.Field, Scalar: sf})
		case filtergen.VariantComposite:
			nested, ok := value.(map[string]interface{})
			if !ok {
				return nil, schemaerr.Configf("%s.%s: expected an object, got %T", desc.Name, slot.Name, value)
			}
			cf, err := Decode(slot.Composite, nested)
			if err != nil {
				return nil, err
			}
			out.Fields = append(out.Fields, FieldFilter{Variant: slot.Variant, Field: slot.Field, Composite: cf})
		case filtergen.VariantComposition:
			list, err := decodeList(desc, slot.Name, value)
			if err != nil {
				return nil, err
			}
			if slot.Name == filtergen.AndField {
				out.And = list
			} else {
				out.Or = list
			}
		}
	}
	return out, nil
}

func decodeList(desc *filtergen.EntityFilter, name string, value interface{}) ([]*CompositeFilter, error) {
	items, ok := value.([]interface{})
	if !ok {
		return nil, schemaerr.Configf("%s.%s: expected a list, got %T", desc.Name, name, value)
	}
	list := make([]*CompositeFilter, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]interface{})
		if !ok {
			return nil, schemaerr.Configf("%s.%s[%d]: expected an object, got %T", desc.Name, name, i, item)
		}
		cf, err := Decode(desc, m)
		if err != nil {
			return nil, err
		}
		list = append(list, cf)
	}
	return list, nil
}

func decodeScalar(slot filtergen.Slot, value interface{}) (*ScalarFilter, error) {
	ops, ok := value.(map[string]interface{})
	if !ok {
		return nil, schemaerr.Configf("%s: expected an operator object, got %T", slot.Name, value)
	}
	kind := slot.Scalar.Class.Kind
	for op := range ops {
		if !filtergen.Applicable(kind, filtergen.Op(op)) {
			return nil, schemaerr.UnknownOperatorf("%s: operator %q does not apply to %s fields", slot.Name, op, kind)
		}
	}

	sf := &ScalarFilter{Kind: kind}
	for _, op := range slot.Scalar.Ops {
		v, ok := ops[string(op)]
		if !ok || v == nil {
			continue
		}
		sf.Conditions = append(sf.Conditions, Condition{Op: op, Value: v})
	}
	return sf, nil
}

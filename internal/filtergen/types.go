// Package filtergen synthesizes filter, order-by and select-column GraphQL
// input types from model descriptors.
//
// Every generated type is cached in an explicit Types registry under its
// generated name. Synthesis is idempotent: asking again for the same type
// returns the cached definition, and a different definition under an already
// used name is rejected instead of overwriting it.
package filtergen

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/graphql-go/graphql"

	"modelgraph/internal/model"
	"modelgraph/internal/naming"
	"modelgraph/internal/schemaerr"
	"modelgraph/internal/typeclass"
)

var (
	// ErrNameCollision is returned when a generated name is already bound to a different definition.
	ErrNameCollision = errors.New("generated type name collision")
	// ErrFrozen is returned when a new type is requested after the registry was frozen.
	ErrFrozen = errors.New("type registry is frozen")
)

// TargetResolver resolves a relationship to its target entity.
type TargetResolver interface {
	TargetOf(rel *model.Relationship) (*model.Entity, error)
}

// Variant tags a filter slot with the kind of value it accepts.
// It is fixed when the filter type is synthesized.
type Variant int

const (
	// VariantScalar slots hold a scalar filter on one column.
	VariantScalar Variant = iota + 1
	// VariantComposite slots hold a nested entity filter on a relationship.
	VariantComposite
	// VariantComposition slots hold and_/or_ lists of the enclosing filter type.
	VariantComposition
)

func (v Variant) String() string {
	switch v {
	case VariantScalar:
		return "scalar"
	case VariantComposite:
		return "composite"
	case VariantComposition:
		return "composition"
	default:
		return "invalid"
	}
}

// ScalarFilter is a synthesized per-kind filter input.
type ScalarFilter struct {
	Name  string
	Class typeclass.Classification
	Ops   []Op
	Input *graphql.InputObject
}

// Slot is one field of an entity filter.
type Slot struct {
	Name      string
	Variant   Variant
	Field     *model.Field
	Scalar    *ScalarFilter
	Composite *EntityFilter
}

// EntityFilter is a synthesized filter input for one entity.
type EntityFilter struct {
	Name   string
	Entity *model.Entity
	Slots  []Slot
	Input  *graphql.InputObject
}

// Slot returns the slot with the given input field name.
func (f *EntityFilter) Slot(name string) (Slot, bool) {
	for _, s := range f.Slots {
		if s.Name == name {
			return s, true
		}
	}
	return Slot{}, false
}

// OrderBy is a synthesized order-by input for one entity.
type OrderBy struct {
	Name   string
	Entity *model.Entity
	Input  *graphql.InputObject
}

// SelectColumns is a synthesized column enum for one entity.
type SelectColumns struct {
	Name   string
	Entity *model.Entity
	Values []string
	Enum   *graphql.Enum
}

type definition struct {
	key   string
	value any
}

// Types owns every generated type definition.
type Types struct {
	namer   *naming.Namer
	targets TargetResolver

	// buildMu serializes synthesis, which recurses through relationships.
	buildMu sync.Mutex

	mu     sync.RWMutex
	defs   map[string]definition
	frozen bool
}

// NewTypes creates an empty type registry.
func NewTypes(namer *naming.Namer, targets TargetResolver) *Types {
	if namer == nil {
		namer = naming.Default()
	}
	return &Types{
		namer:   namer,
		targets: targets,
		defs:    make(map[string]definition),
	}
}

// Freeze forbids any further new definitions. Cached lookups keep working.
func (t *Types) Freeze() {
	t.mu.Lock()
	t.frozen = true
	t.mu.Unlock()
}

// Lookup returns the definition cached under name.
func (t *Types) Lookup(name string) (any, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	def, ok := t.defs[name]
	return def.value, ok
}

// Names returns all generated names, sorted.
func (t *Types) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	names := make([]string, 0, len(t.defs))
	for name := range t.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Reserve binds name to an externally built definition, such as an object type,
// so generated inputs cannot reuse it.
func (t *Types) Reserve(name, key string, value any) error {
	t.buildMu.Lock()
	defer t.buildMu.Unlock()
	_, err := t.store(name, key, value)
	return err
}

// cached returns the definition under name if its key matches.
func (t *Types) cached(name, key string) (any, bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	def, ok := t.defs[name]
	if !ok {
		return nil, false, nil
	}
	if def.key != key {
		return nil, false, collision(name, def.key, key)
	}
	return def.value, true, nil
}

// store binds name to value unless it is already bound. On a key match the
// existing value is returned.
func (t *Types) store(name, key string, value any) (any, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if def, ok := t.defs[name]; ok {
		if def.key != key {
			return nil, collision(name, def.key, key)
		}
		return def.value, nil
	}
	if t.frozen {
		return nil, &schemaerr.Error{
			Kind: schemaerr.KindConfig,
			Msg:  fmt.Sprintf("cannot define %s", name),
			Err:  ErrFrozen,
		}
	}
	t.defs[name] = definition{key: key, value: value}
	return value, nil
}

func (t *Types) forget(name string) {
	t.mu.Lock()
	delete(t.defs, name)
	t.mu.Unlock()
}

func collision(name, existing, requested string) error {
	return &schemaerr.Error{
		Kind: schemaerr.KindConfig,
		Msg:  fmt.Sprintf("%s is bound to %s, cannot bind %s", name, existing, requested),
		Err:  ErrNameCollision,
	}
}

func entityKey(kind string, e *model.Entity) string {
	return fmt.Sprintf("%s(%s@%p)", kind, e.Name, e)
}

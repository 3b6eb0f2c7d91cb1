// Package metadata discovers and caches the searchable members of entity types.
//
// Members are declared with struct tags:
//
//	type Book struct {
//		ID    string   `searchid:""`
//		Title string   `search:"title"`
//		ISBN  string   `search:"isbn,type=identifier"`
//		Tags  []string `search:"tags"`
//	}
//
// or, for computed values, with descriptors passed to Register.
package metadata

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/hyperjump/fieldmap/internal/indextype"
	"github.com/hyperjump/fieldmap/internal/models"
	"github.com/hyperjump/fieldmap/internal/naming"
	"go.uber.org/zap"
)

// Registry resolves entity metadata once per type and caches it for its lifetime.
// It is safe for concurrent use.
type Registry struct {
	types  *indextype.Registry
	logger *zap.Logger

	cache sync.Map // reflect.Type -> *entry

	mu          sync.Mutex
	descriptors map[reflect.Type][]Descriptor
}

type entry struct {
	once   sync.Once
	entity *Entity
	err    error
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets a logger for debug output on metadata resolution.
func WithLogger(l *zap.Logger) RegistryOption {
	return func(r *Registry) { r.logger = l }
}

// NewRegistry creates a registry that infers index types with types.
// A nil types uses indextype.NewRegistry().
func NewRegistry(types *indextype.Registry, opts ...RegistryOption) *Registry {
	if types == nil {
		types = indextype.NewRegistry()
	}
	r := &Registry{
		types:       types,
		logger:      zap.NewNop(),
		descriptors: make(map[reflect.Type][]Descriptor),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds explicit descriptors for entity type T. It must be called before the
// metadata of T is first requested; afterwards it returns ErrAlreadyResolved.
func Register[T any](r *Registry, descs ...Descriptor) error {
	t := entityTypeOf[T]()
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.cache.Load(t); ok {
		return fmt.Errorf("register %s: %w", TypeName(t), ErrAlreadyResolved)
	}
	r.descriptors[t] = append(r.descriptors[t], descs...)
	return nil
}

// For returns the metadata of entity type t (pointer types are dereferenced).
// Concurrent first calls for the same type all observe the same result.
func (r *Registry) For(t reflect.Type) (*Entity, error) {
	if t == nil {
		return nil, &ConfigError{Reason: "entity type is nil"}
	}
	t = deref(t)
	v, ok := r.cache.Load(t)
	if !ok {
		v, _ = r.cache.LoadOrStore(t, &entry{})
	}
	e := v.(*entry)
	e.once.Do(func() {
		e.entity, e.err = r.build(t)
		if e.err != nil {
			r.logger.Debug("entity metadata rejected", zap.String("type", TypeName(t)), zap.Error(e.err))
			return
		}
		r.logger.Debug("entity metadata resolved",
			zap.String("type", TypeName(t)),
			zap.Int("fields", len(e.entity.fields)),
		)
	})
	return e.entity, e.err
}

// ForValue returns the metadata of entity's dynamic type.
func (r *Registry) ForValue(entity any) (*Entity, error) {
	if entity == nil {
		return nil, &ConfigError{Reason: "entity is nil"}
	}
	return r.For(reflect.TypeOf(entity))
}

func (r *Registry) build(t reflect.Type) (*Entity, error) {
	if t.Kind() != reflect.Struct {
		return nil, &ConfigError{Type: t, Reason: "entity must be a struct"}
	}
	r.mu.Lock()
	descs := append([]Descriptor(nil), r.descriptors[t]...)
	r.mu.Unlock()

	b := &entityBuilder{
		entity: &Entity{
			Type:      t,
			byName:    make(map[string]*Field),
			byEncoded: make(map[string]*Field),
		},
		types: r.types,
	}
	if err := b.walk(t, nil, make(map[reflect.Type]bool)); err != nil {
		return nil, err
	}
	for _, d := range descs {
		if err := b.addDescriptor(d); err != nil {
			return nil, err
		}
	}
	switch len(b.ids) {
	case 0:
		return nil, &ConfigError{Type: t, Reason: "no identifier member declared"}
	case 1:
		if b.ids[0].Multiple {
			return nil, &ConfigError{Type: t, Reason: fmt.Sprintf("identifier member %s cannot be a collection", b.ids[0].Member.Name)}
		}
		b.entity.ID = b.ids[0]
	default:
		names := make([]string, len(b.ids))
		for i, id := range b.ids {
			names[i] = id.Member.Name
		}
		return nil, &ConfigError{Type: t, Reason: "multiple identifier members: " + strings.Join(names, ", ")}
	}
	return b.entity, nil
}

type entityBuilder struct {
	entity *Entity
	types  *indextype.Registry
	ids    []*Field
}

// walk collects the members of t and of its embedded structs. onPath holds the struct
// types currently being walked; an embedded type already on it is skipped, since its
// members are shadowed by the shallower copies.
func (b *entityBuilder) walk(t reflect.Type, prefix []int, onPath map[reflect.Type]bool) error {
	onPath[t] = true
	defer delete(onPath, t)
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		index := append(append([]int(nil), prefix...), i)
		searchTag, hasSearch := sf.Tag.Lookup(TagSearch)
		_, hasID := sf.Tag.Lookup(TagID)

		if sf.Anonymous && !hasSearch && !hasID {
			if et := deref(sf.Type); et.Kind() == reflect.Struct {
				if onPath[et] {
					continue
				}
				if err := b.walk(et, index, onPath); err != nil {
					return err
				}
				continue
			}
		}
		if !sf.IsExported() {
			if hasSearch || hasID {
				return &ConfigError{Type: b.entity.Type, Reason: fmt.Sprintf("member %s is unexported", sf.Name)}
			}
			continue
		}
		member := Member{Name: sf.Name, Index: index}
		get := fieldGetter(index)

		if hasID {
			b.ids = append(b.ids, b.newField(member, sf.Name, sf.Type, models.IndexTypeIdentifier, false, get))
		}
		if !hasSearch || searchTag == "-" {
			continue
		}
		st, err := parseSearchTag(searchTag)
		if err != nil {
			return &ConfigError{Type: b.entity.Type, Reason: fmt.Sprintf("member %s: %v", sf.Name, err)}
		}
		name := st.name
		if name == "" {
			name = sf.Name
		}
		if err := b.add(b.newField(member, name, sf.Type, st.indexType, st.emitNull, get)); err != nil {
			return err
		}
	}
	return nil
}

func (b *entityBuilder) addDescriptor(d Descriptor) error {
	member := Member{Name: d.name, Getter: true}
	f := b.newField(member, d.name, d.static, d.indexType, d.emitNull, d.get)
	if d.id {
		b.ids = append(b.ids, f)
		return nil
	}
	if strings.TrimSpace(d.name) == "" {
		return &ConfigError{Type: b.entity.Type, Reason: "getter descriptor has a blank name"}
	}
	return b.add(f)
}

func (b *entityBuilder) newField(member Member, name string, static reflect.Type, it models.IndexType, emitNull bool, get getterFunc) *Field {
	name = strings.TrimSpace(name)
	elem := static
	multiple := isCollection(deref(static)) && !(it == models.IndexTypeGeoPoint && isCoordinatePair(deref(static)))
	if multiple {
		elem = deref(static).Elem()
	}
	if !it.Resolved() {
		it = b.types.Resolve(elem)
	}
	return &Field{
		EntityType:  b.entity.Type,
		Member:      member,
		Name:        name,
		EncodedName: naming.Encode(name),
		IndexType:   it,
		Type:        static,
		ElemType:    elem,
		Multiple:    multiple,
		EmitNull:    emitNull,
		accessor:    newAccessor(static, multiple, get),
	}
}

func (b *entityBuilder) add(f *Field) error {
	e := b.entity
	if f.EncodedName == "" {
		return &ConfigError{Type: e.Type, Reason: fmt.Sprintf("field name %q has no letters and cannot be encoded", f.Name)}
	}
	if _, dup := e.byName[f.Name]; dup {
		return &ConfigError{Type: e.Type, Reason: fmt.Sprintf("duplicate field name %q", f.Name)}
	}
	if other, dup := e.byEncoded[f.EncodedName]; dup {
		return &ConfigError{Type: e.Type, Reason: fmt.Sprintf("fields %q and %q both encode to %q", other.Name, f.Name, f.EncodedName)}
	}
	e.fields = append(e.fields, f)
	e.byName[f.Name] = f
	e.byEncoded[f.EncodedName] = f
	return nil
}

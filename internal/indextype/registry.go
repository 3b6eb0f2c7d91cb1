// Package indextype resolves the default index type of a Go static type.
package indextype

import (
	"reflect"
	"sync"
	"time"

	"github.com/hyperjump/fieldmap/internal/models"
)

var (
	timeType     = reflect.TypeOf(time.Time{})
	geoPointType = reflect.TypeOf(models.GeoPoint{})
)

// Registry maps static types to index types. Exact registrations take precedence over
// the kind-based defaults; unregistered types fall back to text.
type Registry struct {
	mu    sync.RWMutex
	types map[reflect.Type]models.IndexType
}

// NewRegistry returns a registry seeded with the date and geo point mappings.
func NewRegistry() *Registry {
	return &Registry{
		types: map[reflect.Type]models.IndexType{
			timeType:     models.IndexTypeDate,
			geoPointType: models.IndexTypeGeoPoint,
		},
	}
}

// Register maps t to it, replacing any earlier mapping for t.
// Pointer types are registered under their element type. A nil t is ignored.
func (r *Registry) Register(t reflect.Type, it models.IndexType) {
	if t == nil {
		return
	}
	t = deref(t)
	r.mu.Lock()
	r.types[t] = it
	r.mu.Unlock()
}

// RegisterType is the generic form of Register.
func RegisterType[T any](r *Registry, it models.IndexType) {
	r.Register(reflect.TypeOf((*T)(nil)).Elem(), it)
}

// Resolve returns the index type for t. It never returns models.IndexTypeAuto.
func (r *Registry) Resolve(t reflect.Type) models.IndexType {
	if t == nil {
		return models.IndexTypeText
	}
	t = deref(t)
	r.mu.RLock()
	it, ok := r.types[t]
	r.mu.RUnlock()
	if ok && it.Resolved() {
		return it
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return models.IndexTypeNumber
	default:
		return models.IndexTypeText
	}
}

func deref(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

package schema

import (
	"reflect"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Registry caches one ColumnSchema per entity type. Schemas are built on first use
// and never evicted.
type Registry struct {
	schemas map[reflect.Type]*ColumnSchema
	builder *Builder
	mu      sync.RWMutex
}

// NewRegistry creates a schema registry using builder for cache misses
func NewRegistry(builder *Builder) *Registry {
	if builder == nil {
		builder = NewBuilder(nil, zap.NewNop())
	}
	return &Registry{
		schemas: make(map[reflect.Type]*ColumnSchema),
		builder: builder,
	}
}

// Builder returns the builder used on cache misses
func (r *Registry) Builder() *Builder { return r.builder }

// For returns the schema of t, building it on first use. Two concurrent first
// calls may both build; the schemas are identical and the last one is kept.
func (r *Registry) For(t reflect.Type) (*ColumnSchema, error) {
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if s, ok := r.Get(t); ok {
		return s, nil
	}

	s, err := r.builder.Build(t)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.schemas[s.Type] = s
	r.mu.Unlock()
	return s, nil
}

// Of returns the schema of the type of entity
func (r *Registry) Of(entity interface{}) (*ColumnSchema, error) {
	return r.For(reflect.TypeOf(entity))
}

// Get retrieves an already built schema
func (r *Registry) Get(t reflect.Type) (*ColumnSchema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, exists := r.schemas[t]
	return s, exists
}

// All returns the built schemas ordered by table name
func (r *Registry) All() []*ColumnSchema {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*ColumnSchema, 0, len(r.schemas))
	for _, s := range r.schemas {
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].TableName < result[j].TableName })
	return result
}

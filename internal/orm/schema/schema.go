// Package schema derives the column schema of an entity type from its properties:
// column names by convention plus struct-tag overrides, the insertable and
// updatable column sets, the identifier column and per-property copy behaviors.
package schema

import (
	"reflect"

	"github.com/conduit-lang/rowmap/internal/orm/ormerrors"
	"github.com/conduit-lang/rowmap/internal/orm/property"
)

// Tabler lets an entity choose its table name
type Tabler interface {
	TableName() string
}

// ColumnSchema is the immutable persistence schema of one entity type.
type ColumnSchema struct {
	Type       reflect.Type
	TableName  string
	IDProperty string
	IDColumn   string
	// Warnings raised while building, e.g. a defaulted identifier
	Warnings []string

	properties         *property.Properties
	columns            []string
	columnsByProperty  map[string]string
	propertiesByColumn map[string]string
	insertable         []string
	updatable          []string
	insertableSet      map[string]bool
	updatableSet       map[string]bool
	behaviors          map[string]CopyBehavior
}

// Properties returns the discovered properties of the entity type
func (s *ColumnSchema) Properties() *property.Properties { return s.properties }

// Columns returns every mapped column, sorted
func (s *ColumnSchema) Columns() []string { return append([]string(nil), s.columns...) }

// InsertableColumns returns the columns written by an INSERT, sorted
func (s *ColumnSchema) InsertableColumns() []string { return append([]string(nil), s.insertable...) }

// UpdatableColumns returns the columns an UPDATE may assign, sorted. The
// identifier column is never updatable.
func (s *ColumnSchema) UpdatableColumns() []string { return append([]string(nil), s.updatable...) }

// IsInsertable reports whether column belongs to the insertable set
func (s *ColumnSchema) IsInsertable(column string) bool { return s.insertableSet[column] }

// IsUpdatable reports whether column belongs to the updatable set
func (s *ColumnSchema) IsUpdatable(column string) bool { return s.updatableSet[column] }

// ColumnFor returns the column mapped to a property
func (s *ColumnSchema) ColumnFor(propertyName string) (string, bool) {
	column, ok := s.columnsByProperty[propertyName]
	return column, ok
}

// PropertyFor returns the property mapped to a column
func (s *ColumnSchema) PropertyFor(column string) (*property.Property, bool) {
	name, ok := s.propertiesByColumn[column]
	if !ok {
		return nil, false
	}
	return s.properties.Get(name)
}

// ColumnsByProperty returns a copy of the property -> column mapping
func (s *ColumnSchema) ColumnsByProperty() map[string]string {
	out := make(map[string]string, len(s.columnsByProperty))
	for k, v := range s.columnsByProperty {
		out[k] = v
	}
	return out
}

// CopyBehavior returns the copy behavior of a property
func (s *ColumnSchema) CopyBehavior(propertyName string) CopyBehavior {
	if b, ok := s.behaviors[propertyName]; ok {
		return b
	}
	return MostRecentNonNull
}

// ID returns the identifier property
func (s *ColumnSchema) ID() (*property.Property, bool) {
	return s.properties.Get(s.IDProperty)
}

// IDValue reads the identifier of entity
func (s *ColumnSchema) IDValue(entity interface{}) (interface{}, error) {
	p, ok := s.ID()
	if !ok {
		return nil, &ormerrors.ConfigurationError{Type: s.Type, Property: s.IDProperty, Reason: "identifier property does not exist"}
	}
	return p.Get(entity)
}

// New allocates a zero-valued entity and returns a pointer to it
func (s *ColumnSchema) New() interface{} { return reflect.New(s.Type).Interface() }

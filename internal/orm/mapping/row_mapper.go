// Package mapping turns result rows into entity instances. A RowMapper resolves
// one converter per column the first time it sees a query shape and reuses that
// plan for every later row with the same columns.
package mapping

import (
	"fmt"
	"hash/fnv"
	"reflect"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/conduit-lang/rowmap/internal/orm/convert"
	"github.com/conduit-lang/rowmap/internal/orm/ormerrors"
	"github.com/conduit-lang/rowmap/internal/orm/property"
	"github.com/conduit-lang/rowmap/internal/orm/schema"
	ustrings "github.com/conduit-lang/rowmap/internal/util/strings"
)

// ColumnDescriptor describes one column of a result set as reported by the driver.
type ColumnDescriptor struct {
	Name string
	// ScanType is the Go type the driver produces; nil when unknown
	ScanType     reflect.Type
	DatabaseType string
}

// RowAccessor yields the raw driver value of column i of the current row.
type RowAccessor interface {
	Value(i int) (interface{}, error)
}

// Values is a RowAccessor over an already scanned row
type Values []interface{}

// Value implements RowAccessor
func (v Values) Value(i int) (interface{}, error) {
	if i < 0 || i >= len(v) {
		return nil, fmt.Errorf("column index %d out of range [0,%d)", i, len(v))
	}
	return v[i], nil
}

type columnAction int

const (
	actionSet columnAction = iota
	actionPassThrough
	actionDiscard
)

type columnPlan struct {
	name      string
	action    columnAction
	property  *property.Property
	target    reflect.Type
	source    reflect.Type
	converter convert.Converter
	container string
}

type plan struct {
	columns []columnPlan
}

// RowMapper materializes rows into *T. It is safe for concurrent use.
type RowMapper[T any] struct {
	schema     *schema.ColumnSchema
	converters *convert.Registry
	logger     *zap.Logger
	container  bool

	mu    sync.RWMutex
	plans map[uint64]*plan
}

// NewRowMapper creates a mapper for entity type T
func NewRowMapper[T any](schemas *schema.Registry, converters *convert.Registry, logger *zap.Logger) (*RowMapper[T], error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if converters == nil {
		converters = convert.NewRegistry(convert.WithLogger(logger))
	}
	if schemas == nil {
		schemas = schema.NewRegistry(schema.NewBuilder(nil, logger))
	}

	s, err := schemas.For(reflect.TypeFor[T]())
	if err != nil {
		return nil, err
	}

	return &RowMapper[T]{
		schema:     s,
		converters: converters,
		logger:     logger,
		container:  reflect.PointerTo(s.Type).Implements(containerType),
		plans:      make(map[uint64]*plan),
	}, nil
}

// Schema returns the column schema of T
func (m *RowMapper[T]) Schema() *schema.ColumnSchema { return m.schema }

// MapRow builds a new *T from one row. Null values leave the zero value in place.
// Any conversion or write failure aborts the row.
func (m *RowMapper[T]) MapRow(columns []ColumnDescriptor, row RowAccessor) (*T, error) {
	p := m.planFor(columns)
	instance := new(T)

	for i := range p.columns {
		col := &p.columns[i]

		raw, err := row.Value(i)
		if err != nil {
			return nil, &ormerrors.MappingError{Type: m.schema.Type, Column: col.name, Err: err}
		}
		if convert.IsNull(raw) || col.action == actionDiscard {
			continue
		}

		if col.action == actionPassThrough {
			any(instance).(PropertyContainer).SetProperty(col.container, raw)
			continue
		}

		value, ok, err := m.convertValue(col, raw)
		if err != nil {
			return nil, &ormerrors.MappingError{Type: m.schema.Type, Column: col.name, Value: raw, Err: err}
		}
		if !ok {
			continue
		}

		if err := col.property.Set(instance, value); err != nil {
			return nil, &ormerrors.MappingError{Type: m.schema.Type, Column: col.name, Value: value, Err: err}
		}
	}

	return instance, nil
}

// convertValue converts raw into the property type. ok is false when the value
// must be left unset.
func (m *RowMapper[T]) convertValue(col *columnPlan, raw interface{}) (interface{}, bool, error) {
	rawType := reflect.TypeOf(raw)

	conv := col.converter
	if conv == nil || rawType != col.source {
		// the driver reported a different type than the one planned for
		resolved, found := m.converters.Lookup(rawType, col.target)
		if found {
			conv = resolved
		} else {
			conv = nil
		}
	}

	if conv == nil {
		if rawType.AssignableTo(col.property.Type()) {
			return raw, true, nil
		}
		m.logger.Warn("no converter found, leaving property unset",
			zap.String("type", m.schema.Type.String()),
			zap.String("column", col.name),
			zap.Stringer("from", rawType),
			zap.Stringer("to", col.target),
		)
		return nil, false, nil
	}

	value, err := convert.Apply(conv, raw, col.target)
	if err != nil {
		return nil, false, err
	}
	if value == nil {
		return nil, false, nil
	}
	return value, true, nil
}

func (m *RowMapper[T]) planFor(columns []ColumnDescriptor) *plan {
	key := shapeKey(columns)

	m.mu.RLock()
	p, ok := m.plans[key]
	m.mu.RUnlock()
	if ok {
		return p
	}

	p = m.buildPlan(columns)

	m.mu.Lock()
	m.plans[key] = p
	m.mu.Unlock()
	return p
}

func (m *RowMapper[T]) buildPlan(columns []ColumnDescriptor) *plan {
	p := &plan{columns: make([]columnPlan, len(columns))}

	for i, desc := range columns {
		col := columnPlan{name: desc.Name, source: desc.ScanType}

		prop, ok := m.schema.PropertyFor(desc.Name)
		if !ok {
			prop, ok = m.schema.PropertyFor(strings.ToLower(desc.Name))
		}

		switch {
		case ok:
			col.action = actionSet
			col.property = prop
			col.target = prop.Type()
			if col.target.Kind() == reflect.Ptr {
				col.target = col.target.Elem()
			}
			if desc.ScanType != nil && desc.ScanType.Kind() != reflect.Interface {
				if conv, found := m.converters.Lookup(desc.ScanType, col.target); found {
					col.converter = conv
				}
			}
		case m.container:
			col.action = actionPassThrough
			col.container = ustrings.ToCamelCase(strings.ToLower(desc.Name))
		default:
			col.action = actionDiscard
			m.logger.Warn("discarding unmapped column",
				zap.String("type", m.schema.Type.String()),
				zap.String("column", desc.Name),
			)
		}

		p.columns[i] = col
	}

	return p
}

// shapeKey hashes column names and reported types into a plan cache key.
func shapeKey(columns []ColumnDescriptor) uint64 {
	h := fnv.New64a()
	for _, c := range columns {
		h.Write([]byte(c.Name))
		h.Write([]byte{0})
		if c.ScanType != nil {
			h.Write([]byte(c.ScanType.String()))
		}
		h.Write([]byte{1})
	}
	return h.Sum64()
}

package convert

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/conduit-lang/rowmap/internal/orm/ormerrors"
)

// Identified is implemented by enumeration members that carry a stable integer
// identifier. Such members are stored as their identifier.
type Identified interface {
	Identifier() int64
}

// EnumTable holds the members of one registered enumeration type.
type EnumTable struct {
	typ    reflect.Type
	byName map[string]interface{}
	byID   map[int64]interface{}
	names  map[interface{}]string
	ids    map[interface{}]int64
}

// Type returns the enumeration type
func (t *EnumTable) Type() reflect.Type { return t.typ }

// Names returns the member names in sorted order
func (t *EnumTable) Names() []string {
	names := make([]string, 0, len(t.byName))
	for name := range t.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Identified reports whether members carry integer identifiers
func (t *EnumTable) Identified() bool { return len(t.byID) > 0 }

// ByName finds a member by name, retrying with the upper-cased name
func (t *EnumTable) ByName(name string) (interface{}, bool) {
	if m, ok := t.byName[name]; ok {
		return m, true
	}
	m, ok := t.byName[strings.ToUpper(name)]
	return m, ok
}

// ByID finds a member by identifier
func (t *EnumTable) ByID(id int64) (interface{}, bool) {
	m, ok := t.byID[id]
	return m, ok
}

// NameOf returns the name of member
func (t *EnumTable) NameOf(member interface{}) (string, bool) {
	name, ok := t.names[member]
	return name, ok
}

// Outbound returns the stored form of member: its identifier when the
// enumeration is identified, its name otherwise.
func (t *EnumTable) Outbound(member interface{}) (interface{}, error) {
	if id, ok := t.ids[member]; ok {
		return id, nil
	}
	if name, ok := t.names[member]; ok {
		return name, nil
	}
	return nil, &ormerrors.ConversionError{
		From:  t.typ,
		To:    stringType,
		Value: member,
		Err:   fmt.Errorf("%w: %v is not a registered member of %s", ormerrors.ErrInvalidArgument, member, t.typ),
	}
}

func (t *EnumTable) invalid(from reflect.Type, value interface{}, format string, args ...interface{}) error {
	return &ormerrors.ConversionError{
		From:  from,
		To:    t.typ,
		Value: value,
		Err:   fmt.Errorf("%w: "+format, append([]interface{}{ormerrors.ErrInvalidArgument}, args...)...),
	}
}

// converterFrom builds the converter from source type from into the enumeration.
func (t *EnumTable) converterFrom(from reflect.Type) Converter {
	switch classify(from) {
	case classString:
		return func(value interface{}) (interface{}, error) {
			name := reflect.ValueOf(value).String()
			if m, ok := t.ByName(name); ok {
				return m, nil
			}
			return nil, t.invalid(from, value, "%s has no member named <%s>", t.typ, name)
		}
	case classBytes:
		// text-protocol drivers (lib/pq) deliver enum and unknown-type columns as bytes
		return func(value interface{}) (interface{}, error) {
			name := string(reflect.ValueOf(value).Bytes())
			if m, ok := t.ByName(name); ok {
				return m, nil
			}
			return nil, t.invalid(from, value, "%s has no member named <%s>", t.typ, name)
		}
	case classInt, classUint:
		return func(value interface{}) (interface{}, error) {
			v := reflect.ValueOf(value)
			var id int64
			if v.CanInt() {
				id = v.Int()
			} else {
				id = int64(v.Uint())
			}
			if m, ok := t.ByID(id); ok {
				return m, nil
			}
			// unidentified integer enumerations store the member value itself
			if !t.Identified() && v.Type().ConvertibleTo(t.typ) {
				m := v.Convert(t.typ).Interface()
				if _, ok := t.names[m]; ok {
					return m, nil
				}
			}
			return nil, t.invalid(from, value, "%s has no member with identifier %d", t.typ, id)
		}
	default:
		return func(value interface{}) (interface{}, error) {
			name := fmt.Sprint(value)
			if m, ok := t.ByName(name); ok {
				return m, nil
			}
			return nil, t.invalid(from, value, "%s has no member named <%s>", t.typ, name)
		}
	}
}

// RegisterEnum registers the members of enumeration type T by name. Members that
// implement Identified are also registered by identifier; two members with the
// same identifier are a configuration error.
func RegisterEnum[T comparable](r *Registry, members map[string]T) error {
	typ := reflect.TypeFor[T]()
	table := &EnumTable{
		typ:    typ,
		byName: make(map[string]interface{}, len(members)),
		byID:   make(map[int64]interface{}),
		names:  make(map[interface{}]string, len(members)),
		ids:    make(map[interface{}]int64),
	}

	names := make([]string, 0, len(members))
	for name := range members {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		member := members[name]
		if identified, ok := any(member).(Identified); ok {
			id := identified.Identifier()
			if other, dup := table.byID[id]; dup {
				return &ormerrors.ConfigurationError{
					Type:   typ,
					Reason: fmt.Sprintf("members %s and %s share identifier %d", table.names[other], name, id),
				}
			}
			table.byID[id] = member
			table.ids[member] = id
		}
		table.byName[name] = member
		table.names[member] = name
	}

	r.mu.Lock()
	if _, exists := r.enums[typ]; exists {
		r.logger.Debug("replacing enumeration", zap.Stringer("type", typ))
	}
	r.enums[typ] = table
	r.mu.Unlock()

	r.Register(typ, stringType, func(value interface{}) (interface{}, error) {
		if name, ok := table.NameOf(value); ok {
			return name, nil
		}
		return fmt.Sprint(value), nil
	})
	if table.Identified() {
		r.Register(typ, int64Type, func(value interface{}) (interface{}, error) {
			if id, ok := table.ids[value]; ok {
				return id, nil
			}
			return nil, fmt.Errorf("%w: %v is not a registered member of %s", ormerrors.ErrInvalidArgument, value, typ)
		})
	}
	return nil
}

// Enum returns the table of a registered enumeration type
func (r *Registry) Enum(t reflect.Type) (*EnumTable, bool) {
	table := r.enumTable(t)
	return table, table != nil
}

func (r *Registry) enumTable(t reflect.Type) *EnumTable {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.enums[t]
}

package property

import (
	"reflect"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/conduit-lang/rowmap/internal/orm/ormerrors"
	ustrings "github.com/conduit-lang/rowmap/internal/util/strings"
)

// Tagged lets a type annotate properties that have no backing field (or whose
// field carries no tag). Keys are property names, values raw struct-tag strings.
type Tagged interface {
	PropertyTags() map[string]string
}

// Properties is the ordered set of properties of one struct type.
type Properties struct {
	owner  reflect.Type
	order  []string
	byName map[string]*Property
}

// Owner returns the described struct type
func (ps *Properties) Owner() reflect.Type { return ps.owner }

// Names returns property names in discovery order
func (ps *Properties) Names() []string {
	names := make([]string, len(ps.order))
	copy(names, ps.order)
	return names
}

// Get returns the property with the given name
func (ps *Properties) Get(name string) (*Property, bool) {
	p, ok := ps.byName[name]
	return p, ok
}

// All returns the properties in discovery order
func (ps *Properties) All() []*Property {
	all := make([]*Property, len(ps.order))
	for i, name := range ps.order {
		all[i] = ps.byName[name]
	}
	return all
}

// Len returns the number of properties
func (ps *Properties) Len() int { return len(ps.order) }

// New allocates a zero-valued instance of the owner type and returns a pointer to it
func (ps *Properties) New() interface{} { return reflect.New(ps.owner).Interface() }

func (ps *Properties) add(p *Property) {
	if _, exists := ps.byName[p.name]; exists {
		return
	}
	ps.byName[p.name] = p
	ps.order = append(ps.order, p.name)
}

// Registry caches discovered properties per type for the life of the registry.
type Registry struct {
	mu     sync.RWMutex
	cache  map[reflect.Type]*Properties
	logger *zap.Logger
}

// NewRegistry creates an empty property registry
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		cache:  make(map[reflect.Type]*Properties),
		logger: logger,
	}
}

// Of discovers the properties of the type of v
func (r *Registry) Of(v interface{}) (*Properties, error) {
	return r.Discover(reflect.TypeOf(v))
}

// Discover returns the properties of t (a struct or pointer to struct), computing
// them on first use. Concurrent first calls may both compute; the results are
// identical and the last write wins.
func (r *Registry) Discover(t reflect.Type) (*Properties, error) {
	if t == nil {
		return nil, &ormerrors.ConfigurationError{Reason: "cannot discover properties of nil type"}
	}
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	r.mu.RLock()
	ps, ok := r.cache[t]
	r.mu.RUnlock()
	if ok {
		return ps, nil
	}

	if t.Kind() != reflect.Struct {
		return nil, &ormerrors.ConfigurationError{Type: t, Reason: "properties can only be discovered on struct types"}
	}

	ps = r.discover(t)

	r.mu.Lock()
	r.cache[t] = ps
	r.mu.Unlock()

	r.logger.Debug("discovered properties",
		zap.String("type", t.String()),
		zap.Strings("properties", ps.order),
	)
	return ps, nil
}

type embedded struct {
	typ      reflect.Type
	path     []int
	writable bool
}

func (r *Registry) discover(t reflect.Type) *Properties {
	ps := &Properties{owner: t, byName: make(map[string]*Property)}
	ptrType := reflect.PointerTo(t)
	tags := externalTags(t)

	// Fields, shallowest first, so outer declarations win over embedded ones.
	level := []embedded{{typ: t, writable: true}}
	seen := map[reflect.Type]bool{t: true}
	for len(level) > 0 {
		var next []embedded
		for _, e := range level {
			for i := 0; i < e.typ.NumField(); i++ {
				sf := e.typ.Field(i)
				path := append(append([]int(nil), e.path...), i)

				if sf.Anonymous {
					ft := sf.Type
					isPtr := ft.Kind() == reflect.Ptr
					if isPtr {
						ft = ft.Elem()
					}
					if ft.Kind() == reflect.Struct && !seen[ft] && (sf.IsExported() || !isPtr) {
						seen[ft] = true
						next = append(next, embedded{
							typ:      ft,
							path:     path,
							writable: e.writable && (sf.IsExported() || !isPtr),
						})
						continue
					}
				}

				if p := r.fieldProperty(t, ptrType, sf, path, e.writable, tags); p != nil {
					ps.add(p)
				}
			}
		}
		level = next
	}

	// Accessor-only properties from Get<Name>/Set<Name> methods.
	for i := 0; i < ptrType.NumMethod(); i++ {
		m := ptrType.Method(i)
		var name string
		var getter, setter bool
		switch {
		case strings.HasPrefix(m.Name, "Get") && len(m.Name) > 3 && isGetter(m):
			name, getter = m.Name[3:], true
		case strings.HasPrefix(m.Name, "Set") && len(m.Name) > 3 && isSetter(m):
			name, setter = m.Name[3:], true
		default:
			continue
		}

		p, exists := ps.byName[name]
		if !exists {
			p = &Property{name: name, owner: t, logger: r.logger}
			if raw, ok := tags[name]; ok {
				p.tags = reflect.StructTag(raw)
			}
			ps.add(p)
		}
		if getter && p.getter == nil && (p.typ == nil || m.Type.Out(0) == p.typ) {
			p.getter = &m
		}
		if setter && p.setter == nil && (p.typ == nil || m.Type.In(1) == p.typ) {
			p.setter = &m
		}
		if p.typ == nil {
			if p.getter != nil {
				p.typ = p.getter.Type.Out(0)
			} else {
				p.typ = p.setter.Type.In(1)
			}
		}
	}

	return ps
}

// fieldProperty binds a field with its accessors. Unexported fields are only kept
// when an accessor exists.
func (r *Registry) fieldProperty(
	owner, ptrType reflect.Type,
	sf reflect.StructField,
	path []int,
	writable bool,
	tags map[string]string,
) *Property {
	name := ustrings.Capitalize(sf.Name)

	var getter, setter *reflect.Method
	candidates := []string{"Get" + name}
	if !sf.IsExported() {
		// an exported field cannot share its name with a method
		candidates = append(candidates, name)
	}
	for _, candidate := range candidates {
		if m, ok := ptrType.MethodByName(candidate); ok && isGetter(m) && m.Type.Out(0) == sf.Type {
			getter = &m
			break
		}
	}
	if m, ok := ptrType.MethodByName("Set" + name); ok && isSetter(m) {
		setter = &m
	}

	if !sf.IsExported() && getter == nil && setter == nil {
		return nil
	}

	field := sf
	field.Index = path
	p := &Property{
		name:      name,
		typ:       sf.Type,
		owner:     owner,
		fieldPath: path,
		field:     &field,
		readable:  sf.IsExported(),
		writable:  sf.IsExported() && writable,
		getter:    getter,
		setter:    setter,
		tags:      sf.Tag,
		logger:    r.logger,
	}
	if p.tags == "" {
		if raw, ok := tags[name]; ok {
			p.tags = reflect.StructTag(raw)
		}
	}
	return p
}

func externalTags(t reflect.Type) map[string]string {
	if tagged, ok := reflect.New(t).Interface().(Tagged); ok {
		if tags := tagged.PropertyTags(); tags != nil {
			return tags
		}
	}
	return map[string]string{}
}

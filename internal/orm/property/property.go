// Package property discovers the named properties of a struct type once and
// exposes typed read/write access to them for generic code.
//
// A property is backed by an exported field, by accessor methods, or by both.
// Getters follow Go naming (Name or GetName), setters are SetName. Embedded
// structs contribute their properties after the embedding struct's own, so the
// outer declaration always wins.
package property

import (
	"errors"
	"fmt"
	"reflect"

	"go.uber.org/zap"

	"github.com/conduit-lang/rowmap/internal/orm/ormerrors"
)

var (
	// ErrNotReadable is returned when a property has neither a getter nor a readable field
	ErrNotReadable = errors.New("no getter or readable field")

	// ErrTypeMismatch is returned when a value is not assignable to the property type
	ErrTypeMismatch = errors.New("value type does not match property type")

	// ErrNilEntity is returned when reading or writing through a nil entity
	ErrNilEntity = errors.New("nil entity")

	errorType = reflect.TypeOf((*error)(nil)).Elem()
)

// Property is the accessor triple (field, getter, setter) of one named property.
// It is immutable once discovered.
type Property struct {
	name      string
	typ       reflect.Type
	owner     reflect.Type
	fieldPath []int
	field     *reflect.StructField
	readable  bool // field can be read through reflection
	writable  bool // field can be set through reflection
	getter    *reflect.Method
	setter    *reflect.Method
	tags      reflect.StructTag
	logger    *zap.Logger
}

// Name returns the property name
func (p *Property) Name() string { return p.name }

// Type returns the property value type
func (p *Property) Type() reflect.Type { return p.typ }

// Owner returns the struct type the property belongs to
func (p *Property) Owner() reflect.Type { return p.owner }

// Field returns the backing struct field, or nil for accessor-only properties
func (p *Property) Field() *reflect.StructField { return p.field }

// HasGetter reports whether a getter method was bound
func (p *Property) HasGetter() bool { return p.getter != nil }

// HasSetter reports whether a setter method was bound
func (p *Property) HasSetter() bool { return p.setter != nil }

// CanRead reports whether Get can succeed
func (p *Property) CanRead() bool { return p.getter != nil || p.readable }

// CanWrite reports whether Set changes the entity
func (p *Property) CanWrite() bool { return p.setter != nil || p.writable }

// ReadOnly reports whether writes are silently rejected
func (p *Property) ReadOnly() bool { return !p.CanWrite() }

// Tag returns the annotation payload stored under key
func (p *Property) Tag(key string) (string, bool) { return p.tags.Lookup(key) }

// Tags returns all annotations of the property
func (p *Property) Tags() reflect.StructTag { return p.tags }

func (p *Property) String() string {
	getter, setter := "<none>", "<none>"
	if p.getter != nil {
		getter = p.getter.Name
	}
	if p.setter != nil {
		setter = p.setter.Name
	}
	field := "<none>"
	if p.field != nil {
		field = p.field.Name
	}
	return fmt.Sprintf("Property [name=%s, field=%s, getter=%s, setter=%s]", p.name, field, getter, setter)
}

func (p *Property) accessError(op string, err error) error {
	return &ormerrors.AccessError{Type: p.owner, Property: p.name, Op: op, Err: err}
}

// pointerTo returns an addressable *owner for entity. Non-pointer entities are copied.
func (p *Property) pointerTo(entity interface{}) (reflect.Value, error) {
	if entity == nil {
		return reflect.Value{}, ErrNilEntity
	}
	v := reflect.ValueOf(entity)
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return reflect.Value{}, ErrNilEntity
		}
		if v.Type().Elem() != p.owner {
			return reflect.Value{}, fmt.Errorf("entity of type %s is not a %s", v.Type(), p.owner)
		}
		return v, nil
	}
	if v.Type() != p.owner {
		return reflect.Value{}, fmt.Errorf("entity of type %s is not a %s", v.Type(), p.owner)
	}
	ptr := reflect.New(p.owner)
	ptr.Elem().Set(v)
	return ptr, nil
}

// Get reads the property from entity (a *T or T). The getter is preferred over the field.
func (p *Property) Get(entity interface{}) (value interface{}, err error) {
	ptr, err := p.pointerTo(entity)
	if err != nil {
		return nil, p.accessError("read", err)
	}

	defer func() {
		if r := recover(); r != nil {
			value = nil
			err = p.accessError("read", fmt.Errorf("panic: %v", r))
		}
	}()

	if p.getter != nil {
		out := ptr.Method(p.getter.Index).Call(nil)
		if len(out) == 2 && !out[1].IsNil() {
			return nil, p.accessError("read", out[1].Interface().(error))
		}
		return out[0].Interface(), nil
	}

	if p.readable {
		fv, err := ptr.Elem().FieldByIndexErr(p.fieldPath)
		if err != nil {
			// nil embedded pointer: the property has no value
			return nil, nil
		}
		return fv.Interface(), nil
	}

	return nil, p.accessError("read", ErrNotReadable)
}

// Set writes value into entity, which must be a non-nil *T. A nil value stores the
// zero value. Writing a property without setter or writable field is logged and ignored.
func (p *Property) Set(entity interface{}, value interface{}) (err error) {
	if entity == nil {
		return p.accessError("write", ErrNilEntity)
	}
	ptr := reflect.ValueOf(entity)
	if ptr.Kind() != reflect.Ptr || ptr.IsNil() {
		return p.accessError("write", fmt.Errorf("entity must be a non-nil *%s, got %T", p.owner, entity))
	}
	if ptr.Type().Elem() != p.owner {
		return p.accessError("write", fmt.Errorf("entity of type %s is not a %s", ptr.Type(), p.owner))
	}

	defer func() {
		if r := recover(); r != nil {
			err = p.accessError("write", fmt.Errorf("panic: %v", r))
		}
	}()

	if p.setter != nil {
		argType := p.setter.Type.In(1)
		arg, err := coerce(value, argType)
		if err != nil {
			return p.accessError("write", err)
		}
		out := ptr.Method(p.setter.Index).Call([]reflect.Value{arg})
		if len(out) == 1 && !out[0].IsNil() {
			return p.accessError("write", out[0].Interface().(error))
		}
		return nil
	}

	if p.writable {
		fv := fieldByPathAlloc(ptr.Elem(), p.fieldPath)
		arg, err := coerce(value, fv.Type())
		if err != nil {
			return p.accessError("write", err)
		}
		fv.Set(arg)
		return nil
	}

	p.logger.Warn("attempting to set read-only property",
		zap.String("type", p.owner.String()),
		zap.String("property", p.name),
	)
	return nil
}

// coerce adapts value to t: nil becomes the zero value, pointers are added or
// removed when the element type matches.
func coerce(value interface{}, t reflect.Type) (reflect.Value, error) {
	if value == nil {
		return reflect.Zero(t), nil
	}
	v := reflect.ValueOf(value)
	vt := v.Type()

	switch {
	case vt.AssignableTo(t):
		return v, nil
	case t.Kind() == reflect.Ptr && vt.AssignableTo(t.Elem()):
		ptr := reflect.New(t.Elem())
		ptr.Elem().Set(v)
		return ptr, nil
	case vt.Kind() == reflect.Ptr && v.IsNil():
		return reflect.Zero(t), nil
	case vt.Kind() == reflect.Ptr && vt.Elem().AssignableTo(t):
		return v.Elem(), nil
	}
	return reflect.Value{}, fmt.Errorf("%w: %s is not assignable to %s", ErrTypeMismatch, vt, t)
}

// fieldByPathAlloc walks path, allocating nil embedded pointers so the final field is settable.
func fieldByPathAlloc(v reflect.Value, path []int) reflect.Value {
	for i, idx := range path {
		if i > 0 && v.Kind() == reflect.Ptr {
			if v.IsNil() {
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		v = v.Field(idx)
	}
	return v
}

func isGetter(m reflect.Method) bool {
	// receiver counts as the first input
	if m.Type.NumIn() != 1 {
		return false
	}
	switch m.Type.NumOut() {
	case 1:
		return true
	case 2:
		return m.Type.Out(1) == errorType
	}
	return false
}

func isSetter(m reflect.Method) bool {
	if m.Type.NumIn() != 2 {
		return false
	}
	switch m.Type.NumOut() {
	case 0:
		return true
	case 1:
		return m.Type.Out(0) == errorType
	}
	return false
}

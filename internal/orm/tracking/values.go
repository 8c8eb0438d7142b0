package tracking

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/conduit-lang/rowmap/internal/orm/convert"
	"github.com/conduit-lang/rowmap/internal/orm/property"
)

// normalize dereferences a property value; null values become nil
func normalize(v interface{}) interface{} {
	if convert.IsNull(v) {
		return nil
	}
	return convert.Indirect(v)
}

// trimmed normalizes v and trims string values, empty strings become nil
func trimmed(v interface{}) interface{} {
	v = normalize(v)
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.String {
		return v
	}
	s := strings.TrimSpace(rv.String())
	if s == "" {
		return nil
	}
	return reflect.ValueOf(s).Convert(rv.Type()).Interface()
}

// read returns the normalized value of p in entity; a nil entity reads as nil
func read(p *property.Property, entity interface{}) (interface{}, error) {
	if isNilEntity(entity) {
		return nil, nil
	}
	v, err := p.Get(entity)
	if err != nil {
		return nil, err
	}
	return normalize(v), nil
}

func isNilEntity(entity interface{}) bool {
	if entity == nil {
		return true
	}
	v := reflect.ValueOf(entity)
	return v.Kind() == reflect.Ptr && v.IsNil()
}

func baseType(entity interface{}) reflect.Type {
	if entity == nil {
		return nil
	}
	t := reflect.TypeOf(entity)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}

// entityType resolves the common type of two entity states
func entityType(existing, updated interface{}) (reflect.Type, error) {
	a, b := baseType(existing), baseType(updated)
	switch {
	case a == nil:
		return b, nil
	case b == nil, a == b:
		return a, nil
	}
	return nil, fmt.Errorf("entities have different types: %s and %s", a, b)
}

// valueOf passes a typed nil pointer on as untyped nil
func valueOf[T any](p *T) interface{} {
	if p == nil {
		return nil
	}
	return p
}

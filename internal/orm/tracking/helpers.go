package tracking

import (
	"reflect"

	"github.com/conduit-lang/rowmap/internal/orm/convert"
	"github.com/conduit-lang/rowmap/internal/orm/schema"
)

// CleanUpEmptyStrings trims every string property of entity in place. Values that
// end up empty, or equal to one of nullTokens, are cleared.
func CleanUpEmptyStrings(cs *schema.ColumnSchema, entity interface{}, nullTokens ...string) error {
	if isNilEntity(entity) {
		return nil
	}
	for _, p := range cs.Properties().All() {
		t := p.Type()
		if !p.CanRead() || !p.CanWrite() {
			continue
		}
		if t.Kind() != reflect.String && !(t.Kind() == reflect.Ptr && t.Elem().Kind() == reflect.String) {
			continue
		}

		raw, err := p.Get(entity)
		if err != nil {
			return err
		}
		if convert.IsNull(raw) {
			continue
		}
		value := trimmed(raw)
		if value != nil {
			s := reflect.ValueOf(value).String()
			for _, token := range nullTokens {
				if s == token {
					value = nil
					break
				}
			}
		}
		if err := p.Set(entity, value); err != nil {
			return err
		}
	}
	return nil
}

// Equivalent reports whether two entities of the same type hold equivalent values
// in every readable property.
func Equivalent(cs *schema.ColumnSchema, a, b interface{}) (bool, error) {
	if isNilEntity(a) || isNilEntity(b) {
		return isNilEntity(a) && isNilEntity(b), nil
	}
	if baseType(a) != baseType(b) {
		return false, nil
	}
	for _, p := range cs.Properties().All() {
		if !p.CanRead() {
			continue
		}
		av, err := p.Get(a)
		if err != nil {
			return false, err
		}
		bv, err := p.Get(b)
		if err != nil {
			return false, err
		}
		if !convert.Equivalent(av, bv) {
			return false, nil
		}
	}
	return true, nil
}

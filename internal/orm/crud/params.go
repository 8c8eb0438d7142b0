package crud

import (
	"github.com/conduit-lang/rowmap/internal/orm/convert"
	"github.com/conduit-lang/rowmap/internal/orm/ormerrors"
	"github.com/conduit-lang/rowmap/internal/orm/schema"
	"github.com/conduit-lang/rowmap/internal/orm/tracking"
)

// BuildParameters reads every mapped column of entity and applies the outbound
// conversions, keyed by column name.
func BuildParameters(cs *schema.ColumnSchema, converters *convert.Registry, entity interface{}) (map[string]interface{}, error) {
	params := make(map[string]interface{}, len(cs.Columns()))
	for _, column := range cs.Columns() {
		p, ok := cs.PropertyFor(column)
		if !ok {
			continue
		}
		value, err := p.Get(entity)
		if err == nil {
			value, err = converters.Outbound(value)
		}
		if err != nil {
			return nil, &ormerrors.QueryConstructionError{Type: cs.Type, Property: p.Name(), Updated: entity, Err: err}
		}
		params[column] = value
	}
	return params, nil
}

// ChangeParameters converts the bound values of a change set
func ChangeParameters(cs *schema.ColumnSchema, converters *convert.Registry, changes *tracking.ChangeSet) (map[string]interface{}, error) {
	params := changes.Parameters()
	for name, value := range params {
		converted, err := converters.Outbound(value)
		if err != nil {
			return nil, &ormerrors.QueryConstructionError{Type: cs.Type, Property: name, Err: err}
		}
		params[name] = converted
	}
	return params, nil
}

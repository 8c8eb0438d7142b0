package convert

import (
	"reflect"
)

// parameterTargets lists the automatic conversions applied to statement
// parameters before they reach the driver.
var parameterTargets = map[reflect.Type]reflect.Type{
	dateType:    timeType,
	uuidType:    stringType,
	jsonMapType: bytesType,
}

// Outbound converts a property value into the form handed to the database
// driver. Null values become nil, pointers are dereferenced, enumeration members
// become their identifier or name, and the automatic parameter conversions are
// applied. Everything else passes through unchanged.
func (r *Registry) Outbound(value interface{}) (interface{}, error) {
	if IsNull(value) {
		return nil, nil
	}
	value = Indirect(value)
	typ := reflect.TypeOf(value)

	if table := r.enumTable(typ); table != nil {
		return table.Outbound(value)
	}

	if to, ok := parameterTargets[typ]; ok {
		return r.Convert(value, to)
	}
	return value, nil
}

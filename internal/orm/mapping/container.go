package mapping

import (
	"reflect"
	"sort"
)

// PropertyContainer receives the columns of a row that map to no property.
// Names are the lowerCamel form of the column name (created_at -> createdAt).
type PropertyContainer interface {
	SetProperty(name string, value interface{})
}

var containerType = reflect.TypeOf((*PropertyContainer)(nil)).Elem()

// MapContainer is a PropertyContainer backed by a map. Embed it in an entity to
// keep the extra columns of a query.
type MapContainer struct {
	extra map[string]interface{}
}

// SetProperty stores value under name
func (c *MapContainer) SetProperty(name string, value interface{}) {
	if c.extra == nil {
		c.extra = make(map[string]interface{})
	}
	c.extra[name] = value
}

// Property returns the value stored under name
func (c *MapContainer) Property(name string) (interface{}, bool) {
	v, ok := c.extra[name]
	return v, ok
}

// PropertyNames returns the stored names, sorted
func (c *MapContainer) PropertyNames() []string {
	names := make([]string, 0, len(c.extra))
	for name := range c.extra {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

package tracking

import (
	"github.com/conduit-lang/rowmap/internal/orm/convert"
)

// ChangeSet is the ordered result of a scan, keyed by property name. Iteration
// follows the column order of the scan.
type ChangeSet struct {
	order   []string
	changes map[string]*ColumnChange
}

func newChangeSet() *ChangeSet {
	return &ChangeSet{changes: make(map[string]*ColumnChange)}
}

func (cs *ChangeSet) put(c *ColumnChange) {
	if _, exists := cs.changes[c.Property]; !exists {
		cs.order = append(cs.order, c.Property)
	}
	cs.changes[c.Property] = c
}

// Len returns the number of changes
func (cs *ChangeSet) Len() int { return len(cs.order) }

// HasChanges returns true if any column changed
func (cs *ChangeSet) HasChanges() bool { return len(cs.order) > 0 }

// Keys returns the changed property names in order
func (cs *ChangeSet) Keys() []string { return append([]string(nil), cs.order...) }

// Get returns the change of a property, or nil if it did not change
func (cs *ChangeSet) Get(propertyName string) *ColumnChange { return cs.changes[propertyName] }

// Changed returns true if the property changed
func (cs *ChangeSet) Changed(propertyName string) bool {
	_, ok := cs.changes[propertyName]
	return ok
}

// ChangedTo returns true if the property changed to value
func (cs *ChangeSet) ChangedTo(propertyName string, value interface{}) bool {
	c, ok := cs.changes[propertyName]
	return ok && convert.Equivalent(c.NewValue, value)
}

// ChangedFrom returns true if the property changed from value
func (cs *ChangeSet) ChangedFrom(propertyName string, value interface{}) bool {
	c, ok := cs.changes[propertyName]
	return ok && convert.Equivalent(c.OldValue, value)
}

// Changes returns the changes in order
func (cs *ChangeSet) Changes() []*ColumnChange {
	result := make([]*ColumnChange, 0, len(cs.order))
	for _, name := range cs.order {
		result = append(result, cs.changes[name])
	}
	return result
}

// Assignments returns the SET fragments in order
func (cs *ChangeSet) Assignments() []string {
	result := make([]string, 0, len(cs.order))
	for _, name := range cs.order {
		result = append(result, cs.changes[name].Assignment)
	}
	return result
}

// Parameters returns the new value of every add and update keyed by parameter
// name. Deletes bind nothing.
func (cs *ChangeSet) Parameters() map[string]interface{} {
	result := make(map[string]interface{}, len(cs.order))
	for _, name := range cs.order {
		c := cs.changes[name]
		if c.Kind != Delete {
			result[c.Parameter] = c.NewValue
		}
	}
	return result
}

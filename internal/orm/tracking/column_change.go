// Package tracking computes the column-level difference between two states of an
// entity and merges two states into a new one, following each property's copy
// behavior.
package tracking

import (
	"fmt"
	"strings"
)

// ChangeKind classifies a column change
type ChangeKind int

const (
	// Add sets a column that was null
	Add ChangeKind = iota + 1
	// Delete sets a column to null
	Delete
	// Update replaces a non-null value
	Update
)

// String returns the one-letter code of the kind
func (k ChangeKind) String() string {
	switch k {
	case Add:
		return "A"
	case Delete:
		return "D"
	case Update:
		return "U"
	default:
		return fmt.Sprintf("ChangeKind(%d)", int(k))
	}
}

// ColumnChange is one assignment of a partial UPDATE. Parameter is the bound
// parameter name, always the column name. Assignment is the ready-to-splice
// SET fragment.
type ColumnChange struct {
	Kind       ChangeKind
	Property   string
	Column     string
	Parameter  string
	OldValue   interface{}
	NewValue   interface{}
	Assignment string
}

func newChange(kind ChangeKind, propertyName, column string, oldValue, newValue interface{}) *ColumnChange {
	c := &ColumnChange{
		Kind:      kind,
		Property:  propertyName,
		Column:    column,
		Parameter: column,
		OldValue:  oldValue,
		NewValue:  newValue,
	}
	if kind == Delete {
		c.NewValue = nil
		c.Assignment = column + " = NULL"
	} else {
		c.Assignment = column + " = :" + column
	}
	return c
}

// String renders the change for debug logging
func (c *ColumnChange) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "ColumnChange [kind=%s, column=%s, parameter=%s, old=%v, new=%v, assignment=%s]",
		c.Kind, c.Column, c.Parameter, c.OldValue, c.NewValue, c.Assignment)
	return b.String()
}

// Package fixtures holds entity types shared by the mapping engine tests.
package fixtures

import (
	"github.com/shopspring/decimal"
)

// Grade is a string enumeration
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
)

// Grades lists the members of Grade by name
var Grades = map[string]Grade{"A": GradeA, "B": GradeB}

// Sample covers every mapping rule: convention names, a renamed column, a
// non-updatable column, a transient field and each copy behavior. Nullable
// columns are pointers.
type Sample struct {
	ID                int64 `db:"id,pk"`
	S                 *string
	L                 *int64
	B                 *bool
	I                 int
	O                 *decimal.Decimal
	E                 *Grade
	AlwaysNull        *string `copy:"always_null"`
	Ignore            *string `copy:"ignore"`
	MostRecentNonNull *string `copy:"most_recent_non_null"`
	TakeOriginal      *string `copy:"take_original"`
	TakeUpdated       *string `copy:"take_updated"`
	NotMyColumnName   *string `db:"renamed"`
	ObeysUpdatable    *string `db:"not_updatable,readonly"`
	Scratch           string  `db:"-"`
}

// Clone returns a deep copy of s
func (s *Sample) Clone() *Sample {
	c := *s
	c.S = clonePtr(s.S)
	c.L = clonePtr(s.L)
	c.B = clonePtr(s.B)
	c.O = clonePtr(s.O)
	c.E = clonePtr(s.E)
	c.AlwaysNull = clonePtr(s.AlwaysNull)
	c.Ignore = clonePtr(s.Ignore)
	c.MostRecentNonNull = clonePtr(s.MostRecentNonNull)
	c.TakeOriginal = clonePtr(s.TakeOriginal)
	c.TakeUpdated = clonePtr(s.TakeUpdated)
	c.NotMyColumnName = clonePtr(s.NotMyColumnName)
	c.ObeysUpdatable = clonePtr(s.ObeysUpdatable)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Ptr returns a pointer to v
func Ptr[T any](v T) *T { return &v }

// Dec returns a pointer to the decimal value of i
func Dec(i int64) *decimal.Decimal {
	d := decimal.NewFromInt(i)
	return &d
}

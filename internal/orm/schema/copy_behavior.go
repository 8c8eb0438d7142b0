package schema

import (
	"fmt"
	"strings"
)

// CopyBehavior is the per-property policy deciding how an existing and an
// updated value resolve into a merged value or a column change.
type CopyBehavior int

const (
	// MostRecentNonNull takes the updated value unless it is null. It is the default.
	MostRecentNonNull CopyBehavior = iota
	// Ignore never changes the column and leaves merged values at their zero value
	Ignore
	// TakeUpdated always takes the updated value, null included
	TakeUpdated
	// TakeOriginal always keeps the existing value
	TakeOriginal
	// AlwaysNull clears the column
	AlwaysNull
)

var copyBehaviorNames = map[CopyBehavior]string{
	MostRecentNonNull: "most_recent_non_null",
	Ignore:            "ignore",
	TakeUpdated:       "take_updated",
	TakeOriginal:      "take_original",
	AlwaysNull:        "always_null",
}

func (b CopyBehavior) String() string {
	if name, ok := copyBehaviorNames[b]; ok {
		return name
	}
	return fmt.Sprintf("CopyBehavior(%d)", int(b))
}

// Valid reports whether b is one of the declared behaviors
func (b CopyBehavior) Valid() bool {
	_, ok := copyBehaviorNames[b]
	return ok
}

// ParseCopyBehavior parses the value of a `copy` struct tag. Both snake_case and
// the upper-case constant spelling are accepted.
func ParseCopyBehavior(s string) (CopyBehavior, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	for b, name := range copyBehaviorNames {
		if normalized == name || normalized == strings.ReplaceAll(name, "_", "") {
			return b, nil
		}
	}
	return MostRecentNonNull, fmt.Errorf("unknown copy behavior %q", s)
}

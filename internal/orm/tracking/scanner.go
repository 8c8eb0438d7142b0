package tracking

import (
	"fmt"
	"reflect"

	"go.uber.org/zap"

	"github.com/conduit-lang/rowmap/internal/orm/convert"
	"github.com/conduit-lang/rowmap/internal/orm/ormerrors"
	"github.com/conduit-lang/rowmap/internal/orm/schema"
)

// Scanner computes the partial update between two states of an entity.
type Scanner struct {
	schemas *schema.Registry
	logger  *zap.Logger
}

// NewScanner creates a change scanner over schemas
func NewScanner(schemas *schema.Registry, logger *zap.Logger) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if schemas == nil {
		schemas = schema.NewRegistry(nil)
	}
	return &Scanner{schemas: schemas, logger: logger}
}

// ScanForChanges walks the updatable columns of the entity type in column order
// and returns the changes needed to turn existing into updated. Either state may
// be nil. With deleteOverride a null in updated deletes a non-null existing
// value of a MostRecentNonNull property. Neither state is modified.
func (s *Scanner) ScanForChanges(existing, updated interface{}, deleteOverride bool) (*ChangeSet, error) {
	t, err := entityType(existing, updated)
	if err != nil {
		return nil, &ormerrors.QueryConstructionError{Existing: existing, Updated: updated, Err: err}
	}
	if t == nil {
		return newChangeSet(), nil
	}
	return s.scan(t, existing, updated, deleteOverride)
}

// ScanForChanges is the typed form of Scanner.ScanForChanges
func ScanForChanges[T any](s *Scanner, existing, updated *T, deleteOverride bool) (*ChangeSet, error) {
	return s.scan(reflect.TypeOf((*T)(nil)).Elem(), valueOf(existing), valueOf(updated), deleteOverride)
}

func (s *Scanner) scan(t reflect.Type, existing, updated interface{}, deleteOverride bool) (*ChangeSet, error) {
	cs, err := s.schemas.For(t)
	if err != nil {
		return nil, &ormerrors.QueryConstructionError{Type: t, Existing: existing, Updated: updated, Err: err}
	}

	changes := newChangeSet()
	for _, column := range cs.UpdatableColumns() {
		p, ok := cs.PropertyFor(column)
		if !ok {
			continue
		}
		fail := func(err error) error {
			return &ormerrors.QueryConstructionError{
				Type: t, Property: p.Name(), Existing: existing, Updated: updated, Err: err,
			}
		}

		oldValue, err := read(p, existing)
		if err != nil {
			return nil, fail(err)
		}
		newValue, err := read(p, updated)
		if err != nil {
			return nil, fail(err)
		}
		// both sides compare in trimmed form so an entity never differs from itself
		oldValue, newValue = trimmed(oldValue), trimmed(newValue)

		var change *ColumnChange
		switch behavior := cs.CopyBehavior(p.Name()); behavior {
		case schema.Ignore, schema.TakeOriginal:
		case schema.TakeUpdated:
			if !convert.Equivalent(oldValue, newValue) {
				change = diff(p.Name(), column, oldValue, newValue)
			}
		case schema.MostRecentNonNull:
			switch {
			case newValue != nil:
				if !convert.Equivalent(oldValue, newValue) {
					change = diff(p.Name(), column, oldValue, newValue)
				}
			case deleteOverride && oldValue != nil:
				change = newChange(Delete, p.Name(), column, oldValue, nil)
			}
		case schema.AlwaysNull:
			if oldValue != nil {
				change = newChange(Delete, p.Name(), column, oldValue, nil)
			}
		default:
			return nil, fail(fmt.Errorf("unknown copy behavior %s", behavior))
		}

		if change != nil {
			s.logger.Debug("column change",
				zap.String("type", t.String()),
				zap.Stringer("change", change),
			)
			changes.put(change)
		}
	}
	return changes, nil
}

// diff classifies a change between two values known to differ
func diff(propertyName, column string, oldValue, newValue interface{}) *ColumnChange {
	switch {
	case oldValue == nil:
		return newChange(Add, propertyName, column, nil, newValue)
	case newValue == nil:
		return newChange(Delete, propertyName, column, oldValue, nil)
	default:
		return newChange(Update, propertyName, column, oldValue, newValue)
	}
}

package tracking

import (
	"fmt"
	"reflect"

	"go.uber.org/zap"

	"github.com/conduit-lang/rowmap/internal/orm/ormerrors"
	"github.com/conduit-lang/rowmap/internal/orm/schema"
)

// Merger builds a new entity from an existing and an updated state.
type Merger struct {
	schemas *schema.Registry
	logger  *zap.Logger
}

// NewMerger creates a merger over schemas
func NewMerger(schemas *schema.Registry, logger *zap.Logger) *Merger {
	if logger == nil {
		logger = zap.NewNop()
	}
	if schemas == nil {
		schemas = schema.NewRegistry(nil)
	}
	return &Merger{schemas: schemas, logger: logger}
}

// Merge allocates a new entity and fills each updatable property with the value
// its copy behavior selects. The identifier is taken from existing, or from
// updated when existing has none. Ignored properties keep their zero value.
// The result is a pointer to the entity type.
func (m *Merger) Merge(existing, updated interface{}) (interface{}, error) {
	t, err := entityType(existing, updated)
	if err != nil {
		return nil, &ormerrors.CopyError{Err: err}
	}
	if t == nil {
		return nil, &ormerrors.CopyError{Err: fmt.Errorf("%w: both entities are nil", ormerrors.ErrInvalidArgument)}
	}
	return m.merge(t, existing, updated)
}

// Merge is the typed form of Merger.Merge
func Merge[T any](m *Merger, existing, updated *T) (*T, error) {
	merged, err := m.merge(reflect.TypeOf((*T)(nil)).Elem(), valueOf(existing), valueOf(updated))
	if err != nil {
		return nil, err
	}
	return merged.(*T), nil
}

func (m *Merger) merge(t reflect.Type, existing, updated interface{}) (interface{}, error) {
	cs, err := m.schemas.For(t)
	if err != nil {
		return nil, &ormerrors.CopyError{Type: t, Err: err}
	}
	merged := cs.New()

	if id, ok := cs.ID(); ok {
		value, err := read(id, existing)
		if err == nil && value == nil {
			value, err = read(id, updated)
		}
		if err != nil {
			return nil, &ormerrors.CopyError{Type: t, Property: id.Name(), Err: err}
		}
		if value != nil {
			if err := id.Set(merged, value); err != nil {
				return nil, &ormerrors.CopyError{Type: t, Property: id.Name(), Err: err}
			}
		}
	}

	for _, column := range cs.UpdatableColumns() {
		p, ok := cs.PropertyFor(column)
		if !ok {
			continue
		}
		fail := func(err error) error {
			return &ormerrors.CopyError{Type: t, Property: p.Name(), Err: err}
		}

		oldValue, err := read(p, existing)
		if err != nil {
			return nil, fail(err)
		}
		newValue, err := read(p, updated)
		if err != nil {
			return nil, fail(err)
		}
		newValue = trimmed(newValue)

		var value interface{}
		switch behavior := cs.CopyBehavior(p.Name()); behavior {
		case schema.Ignore:
			m.logger.Debug("ignoring property", zap.String("type", t.String()), zap.String("property", p.Name()))
			continue
		case schema.TakeUpdated:
			value = newValue
		case schema.TakeOriginal:
			value = oldValue
		case schema.MostRecentNonNull:
			value = newValue
			if value == nil {
				value = oldValue
			}
		case schema.AlwaysNull:
			value = nil
		default:
			return nil, fail(fmt.Errorf("unknown copy behavior %s", behavior))
		}

		if value == nil {
			continue
		}
		if err := p.Set(merged, value); err != nil {
			return nil, fail(err)
		}
	}
	return merged, nil
}

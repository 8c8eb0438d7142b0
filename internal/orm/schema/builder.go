package schema

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/conduit-lang/rowmap/internal/orm/ormerrors"
	"github.com/conduit-lang/rowmap/internal/orm/property"
	ustrings "github.com/conduit-lang/rowmap/internal/util/strings"
)

// DefaultIDProperty is the identifier property used when none is marked
const DefaultIDProperty = "ID"

// Builder derives ColumnSchemas from discovered properties
type Builder struct {
	properties *property.Registry
	idProperty string
	strict     bool
	logger     *zap.Logger
}

// NewBuilder creates a schema builder on top of a property registry
func NewBuilder(properties *property.Registry, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if properties == nil {
		properties = property.NewRegistry(logger)
	}
	return &Builder{
		properties: properties,
		idProperty: DefaultIDProperty,
		logger:     logger,
	}
}

// WithIDProperty changes the conventional identifier property name
func (b *Builder) WithIDProperty(name string) *Builder {
	if name != "" {
		b.idProperty = name
	}
	return b
}

// WithStrict turns identifier warnings (none or several marked) into configuration errors
func (b *Builder) WithStrict(strict bool) *Builder {
	b.strict = strict
	return b
}

type mapping struct {
	column     string
	insertable bool
	updatable  bool
}

// Build derives the schema of t (a struct or pointer to struct).
//
// Properties without a db tag are mapped to their snake_case name and are both
// insertable and updatable. Properties with an explicit db tag are mapped in a
// second pass which replaces the first. The first property marked as identifier
// wins; without any marker the conventional ID property is used.
func (b *Builder) Build(t reflect.Type) (*ColumnSchema, error) {
	ps, err := b.properties.Discover(t)
	if err != nil {
		return nil, err
	}
	t = ps.Owner()

	s := &ColumnSchema{
		Type:               t,
		TableName:          tableName(t),
		properties:         ps,
		columnsByProperty:  make(map[string]string),
		propertiesByColumn: make(map[string]string),
		insertableSet:      make(map[string]bool),
		updatableSet:       make(map[string]bool),
		behaviors:          make(map[string]CopyBehavior),
	}

	mapped := make(map[string]mapping)
	tags := make(map[string]columnTag, ps.Len())

	for _, p := range ps.All() {
		tag := parseColumnTag(p)
		tags[p.Name()] = tag
		if tag.transient || tag.explicit {
			continue
		}

		column := ustrings.ToSnakeCase(p.Name())
		if column == "class" {
			continue
		}
		if !p.CanRead() {
			b.logger.Debug("skipping write-only property",
				zap.String("type", t.String()),
				zap.String("property", p.Name()),
			)
			continue
		}
		if !persistable(p.Type()) {
			continue
		}

		b.logger.Debug("automatically mapping",
			zap.String("column", column),
			zap.String("property", t.Name()+"."+p.Name()),
		)
		mapped[p.Name()] = mapping{column: column, insertable: true, updatable: true}
	}

	for _, p := range ps.All() {
		tag := tags[p.Name()]
		if !tag.explicit {
			continue
		}

		column := tag.name
		if column == "" {
			column = ustrings.ToSnakeCase(p.Name())
			b.logger.Info("column tag with no name, using generated name",
				zap.String("type", t.String()),
				zap.String("column", column),
			)
		}
		if !p.CanRead() {
			return nil, &ormerrors.ConfigurationError{
				Type:     t,
				Property: p.Name(),
				Reason:   "mapped property has no getter or readable field",
			}
		}

		b.logger.Debug("manually mapping",
			zap.String("column", column),
			zap.String("property", t.Name()+"."+p.Name()),
		)
		mapped[p.Name()] = mapping{column: column, insertable: tag.insertable(), updatable: tag.updatable()}
	}

	s.IDProperty = b.resolveID(s, ps, tags)
	if b.strict && len(s.Warnings) > 0 {
		return nil, &ormerrors.ConfigurationError{Type: t, Property: s.IDProperty, Reason: s.Warnings[0]}
	}
	if m, ok := mapped[s.IDProperty]; ok {
		s.IDColumn = m.column
	} else {
		s.IDColumn = ustrings.ToSnakeCase(s.IDProperty)
	}

	for _, name := range ps.Names() {
		m, ok := mapped[name]
		if !ok {
			continue
		}
		if other, dup := s.propertiesByColumn[m.column]; dup {
			return nil, &ormerrors.ConfigurationError{
				Type:     t,
				Property: name,
				Reason:   fmt.Sprintf("column %q is already mapped to property %s", m.column, other),
			}
		}

		p, _ := ps.Get(name)
		behavior := MostRecentNonNull
		if raw, ok := p.Tag(tagCopy); ok {
			behavior, err = ParseCopyBehavior(raw)
			if err != nil {
				return nil, &ormerrors.ConfigurationError{Type: t, Property: name, Reason: err.Error()}
			}
		}

		s.columnsByProperty[name] = m.column
		s.propertiesByColumn[m.column] = name
		s.behaviors[name] = behavior
		s.columns = append(s.columns, m.column)
		if m.insertable {
			s.insertable = append(s.insertable, m.column)
			s.insertableSet[m.column] = true
		}
		if m.updatable && m.column != s.IDColumn {
			s.updatable = append(s.updatable, m.column)
			s.updatableSet[m.column] = true
		}
	}

	sort.Strings(s.columns)
	sort.Strings(s.insertable)
	sort.Strings(s.updatable)

	return s, nil
}

func (b *Builder) resolveID(s *ColumnSchema, ps *property.Properties, tags map[string]columnTag) string {
	var marked []string
	for _, name := range ps.Names() {
		if tag := tags[name]; tag.id && !tag.transient {
			marked = append(marked, name)
		}
	}

	switch len(marked) {
	case 0:
		name := b.conventionalID(ps, tags)
		s.Warnings = append(s.Warnings, fmt.Sprintf("no identifier marked on %s, using %s", s.Type, name))
		b.logger.Warn("no identifier marked, using conventional property",
			zap.String("type", s.Type.String()),
			zap.String("property", name),
		)
		return name
	case 1:
		return marked[0]
	default:
		s.Warnings = append(s.Warnings, fmt.Sprintf("multiple identifiers marked on %s, using %s", s.Type, marked[0]))
		b.logger.Warn("multiple identifiers marked, using the first",
			zap.String("type", s.Type.String()),
			zap.Strings("marked", marked),
			zap.String("property", marked[0]),
		)
		return marked[0]
	}
}

// conventionalID prefers an exact match on the configured name, then a case-insensitive one,
// so an unexported id field exposed as "Id" still counts.
func (b *Builder) conventionalID(ps *property.Properties, tags map[string]columnTag) string {
	if _, ok := ps.Get(b.idProperty); ok {
		return b.idProperty
	}
	for _, name := range ps.Names() {
		if strings.EqualFold(name, b.idProperty) && !tags[name].transient {
			return name
		}
	}
	return b.idProperty
}

func tableName(t reflect.Type) string {
	if tabler, ok := reflect.New(t).Interface().(Tabler); ok {
		if name := tabler.TableName(); name != "" {
			return name
		}
	}
	return ustrings.ToTableName(t.Name())
}

func persistable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return false
	}
	return true
}

// Package rowmap is the public entry point of the row mapping engine. An Engine
// owns one property registry, one schema registry and one converter registry;
// everything derived from it (row mappers, change scanners, mergers,
// repositories) shares those caches.
//
// Engines are safe for concurrent use. Tests should create a fresh Engine each.
package rowmap

import (
	"database/sql"
	"reflect"

	"go.uber.org/zap"

	"github.com/conduit-lang/rowmap/internal/orm/convert"
	"github.com/conduit-lang/rowmap/internal/orm/crud"
	"github.com/conduit-lang/rowmap/internal/orm/mapping"
	"github.com/conduit-lang/rowmap/internal/orm/property"
	"github.com/conduit-lang/rowmap/internal/orm/schema"
	"github.com/conduit-lang/rowmap/internal/orm/tracking"
)

// Engine ties the registries and the change tracking services together
type Engine struct {
	properties *property.Registry
	schemas    *schema.Registry
	converters *convert.Registry
	scanner    *tracking.Scanner
	merger     *tracking.Merger
	logger     *zap.Logger
}

type options struct {
	logger      *zap.Logger
	dateLayouts []string
	idProperty  string
	strict      bool
}

// Option configures an Engine
type Option func(*options)

// WithLogger sets the logger shared by every component of the engine
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithDateLayouts replaces the layouts used to parse textual dates
func WithDateLayouts(layouts ...string) Option {
	return func(o *options) { o.dateLayouts = layouts }
}

// WithIDProperty changes the conventional identifier property name
func WithIDProperty(name string) Option {
	return func(o *options) { o.idProperty = name }
}

// WithStrict rejects entity types without exactly one marked identifier
func WithStrict(strict bool) Option {
	return func(o *options) { o.strict = strict }
}

// New creates an engine with fresh registries
func New(opts ...Option) *Engine {
	o := &options{logger: zap.NewNop(), idProperty: schema.DefaultIDProperty}
	for _, opt := range opts {
		opt(o)
	}

	properties := property.NewRegistry(o.logger)
	builder := schema.NewBuilder(properties, o.logger).
		WithIDProperty(o.idProperty).
		WithStrict(o.strict)
	schemas := schema.NewRegistry(builder)

	return &Engine{
		properties: properties,
		schemas:    schemas,
		converters: convert.NewRegistry(convert.WithLogger(o.logger), convert.WithDateLayouts(o.dateLayouts...)),
		scanner:    tracking.NewScanner(schemas, o.logger),
		merger:     tracking.NewMerger(schemas, o.logger),
		logger:     o.logger,
	}
}

// Config holds the mapping settings usually read from a configuration file
type Config struct {
	DateLayouts []string
	IDProperty  string
	Strict      bool
}

// NewFromConfig creates an engine from mapping settings
func NewFromConfig(cfg Config, logger *zap.Logger) *Engine {
	return New(
		WithLogger(logger),
		WithDateLayouts(cfg.DateLayouts...),
		WithIDProperty(cfg.IDProperty),
		WithStrict(cfg.Strict),
	)
}

// Properties returns the property registry
func (e *Engine) Properties() *property.Registry { return e.properties }

// Schemas returns the schema registry
func (e *Engine) Schemas() *schema.Registry { return e.schemas }

// Converters returns the converter registry
func (e *Engine) Converters() *convert.Registry { return e.converters }

// Scanner returns the change scanner
func (e *Engine) Scanner() *tracking.Scanner { return e.scanner }

// Merger returns the entity merger
func (e *Engine) Merger() *tracking.Merger { return e.merger }

// Logger returns the engine logger
func (e *Engine) Logger() *zap.Logger { return e.logger }

// Convert runs value through the converter registry to type to
func (e *Engine) Convert(value interface{}, to reflect.Type) (interface{}, error) {
	return e.converters.Convert(value, to)
}

// SchemaOf returns the column schema of T
func SchemaOf[T any](e *Engine) (*schema.ColumnSchema, error) {
	return e.schemas.For(reflect.TypeFor[T]())
}

// MapperFor returns a row mapper producing *T
func MapperFor[T any](e *Engine) (*mapping.RowMapper[T], error) {
	return mapping.NewRowMapper[T](e.schemas, e.converters, e.logger)
}

// ScanForChanges compares existing with updated and returns the column changes
func ScanForChanges[T any](e *Engine, existing, updated *T, deleteOverride bool) (*tracking.ChangeSet, error) {
	return tracking.ScanForChanges(e.scanner, existing, updated, deleteOverride)
}

// Merge returns a new entity combining existing and updated by copy behavior
func Merge[T any](e *Engine, existing, updated *T) (*T, error) {
	return tracking.Merge(e.merger, existing, updated)
}

// Parameters returns the outbound value of every mapped column of entity
func Parameters[T any](e *Engine, entity *T) (map[string]interface{}, error) {
	cs, err := SchemaOf[T](e)
	if err != nil {
		return nil, err
	}
	return crud.BuildParameters(cs, e.converters, entity)
}

// RegisterEnum registers the members of enumeration type T by name
func RegisterEnum[T comparable](e *Engine, members map[string]T) error {
	return convert.RegisterEnum(e.converters, members)
}

// RepositoryFor returns a repository of T over db sharing the engine registries
func RepositoryFor[T any](e *Engine, db *sql.DB, dialect crud.Dialect) (*crud.Repository[T], error) {
	return crud.NewRepository[T](crud.Config{
		DB:         db,
		Dialect:    dialect,
		Schemas:    e.schemas,
		Converters: e.converters,
		Logger:     e.logger,
	})
}

// Package crud executes the statements of an entity type against database/sql:
// it renders literal SQL from a column schema, binds outbound parameters, maps
// result rows and runs partial and merged updates.
package crud

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"

	"go.uber.org/zap"

	"github.com/conduit-lang/rowmap/internal/orm/convert"
	"github.com/conduit-lang/rowmap/internal/orm/mapping"
	"github.com/conduit-lang/rowmap/internal/orm/ormerrors"
	"github.com/conduit-lang/rowmap/internal/orm/schema"
	"github.com/conduit-lang/rowmap/internal/orm/tracking"
	"github.com/conduit-lang/rowmap/internal/orm/transaction"
)

// querier is satisfied by *sql.DB and *sql.Tx
type querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Repository reads and writes entities of type T
type Repository[T any] struct {
	db         *sql.DB
	dialect    Dialect
	tx         *transaction.Manager
	schema     *schema.ColumnSchema
	statements Statements
	converters *convert.Registry
	mapper     *mapping.RowMapper[T]
	scanner    *tracking.Scanner
	merger     *tracking.Merger
	logger     *zap.Logger
}

// Config carries the collaborators of a repository. Nil registries get fresh
// defaults.
type Config struct {
	DB           *sql.DB
	Dialect      Dialect
	Schemas      *schema.Registry
	Converters   *convert.Registry
	Transactions *transaction.Manager
	Logger       *zap.Logger
}

// NewRepository resolves the schema of T and prepares its statements
func NewRepository[T any](cfg Config) (*Repository[T], error) {
	if cfg.DB == nil {
		return nil, fmt.Errorf("%w: database handle is required", ormerrors.ErrInvalidArgument)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	schemas := cfg.Schemas
	if schemas == nil {
		schemas = schema.NewRegistry(schema.NewBuilder(nil, logger))
	}
	converters := cfg.Converters
	if converters == nil {
		converters = convert.NewRegistry(convert.WithLogger(logger))
	}
	tx := cfg.Transactions
	if tx == nil {
		tx = transaction.NewManager(cfg.DB, transaction.WithLogger(logger))
	}

	mapper, err := mapping.NewRowMapper[T](schemas, converters, logger)
	if err != nil {
		return nil, err
	}
	cs := mapper.Schema()

	return &Repository[T]{
		db:         cfg.DB,
		dialect:    cfg.Dialect,
		tx:         tx,
		schema:     cs,
		statements: BuildStatements(cs),
		converters: converters,
		mapper:     mapper,
		scanner:    tracking.NewScanner(schemas, logger),
		merger:     tracking.NewMerger(schemas, logger),
		logger:     logger.With(zap.String("table", cs.TableName)),
	}, nil
}

// Schema returns the column schema of T
func (r *Repository[T]) Schema() *schema.ColumnSchema { return r.schema }

// Statements returns the rendered statements of T
func (r *Repository[T]) Statements() Statements { return r.statements }

func (r *Repository[T]) bind(query string, params map[string]interface{}) (string, []interface{}, error) {
	sqlText, args, err := r.dialect.Rebind(query, params)
	if err != nil {
		return "", nil, err
	}
	r.logger.Debug("sql out", zap.String("sql", sqlText), zap.Any("args", args))
	return sqlText, args, nil
}

func (r *Repository[T]) idParams(id interface{}) (map[string]interface{}, error) {
	if convert.IsNull(id) {
		return nil, ErrMissingID
	}
	value, err := r.converters.Outbound(id)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{r.schema.IDColumn: value}, nil
}

// FindByID loads the entity with the given identifier. A missing row is ErrNotFound.
func (r *Repository[T]) FindByID(ctx context.Context, id interface{}) (*T, error) {
	return r.findByID(ctx, r.db, id)
}

func (r *Repository[T]) findByID(ctx context.Context, q querier, id interface{}) (*T, error) {
	params, err := r.idParams(id)
	if err != nil {
		return nil, err
	}
	query, args, err := r.bind(r.statements.SelectByID, params)
	if err != nil {
		return nil, err
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to find record: %w", ConvertDBError(err))
	}
	defer rows.Close()

	entity, err := r.mapper.ScanOne(rows)
	if err != nil {
		return nil, ConvertDBError(err)
	}
	return entity, nil
}

// FindAll loads every row of the table
func (r *Repository[T]) FindAll(ctx context.Context) ([]*T, error) {
	rows, err := r.db.QueryContext(ctx, r.statements.SelectAll)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", ConvertDBError(err))
	}
	defer rows.Close()

	return r.mapper.ScanAll(rows)
}

// Insert writes entity and returns its identifier as held by the entity's id
// property. A zero identifier is left to the database and the generated key is
// written back into entity; a supplied identifier of any type is kept.
func (r *Repository[T]) Insert(ctx context.Context, entity *T) (interface{}, error) {
	if entity == nil {
		return nil, fmt.Errorf("%w: nil entity", ormerrors.ErrInvalidArgument)
	}
	params, err := BuildParameters(r.schema, r.converters, entity)
	if err != nil {
		return nil, err
	}

	idValue := params[r.schema.IDColumn]
	generated := idValue == nil || reflect.ValueOf(idValue).IsZero()
	statement := r.statements.InsertWithID
	if generated {
		statement = r.statements.Insert
		delete(params, r.schema.IDColumn)
	}

	var key int64
	err = r.tx.WithTransaction(ctx, func(tx *sql.Tx) error {
		query, args, err := r.bind(statement, params)
		if err != nil {
			return err
		}

		switch {
		case !generated:
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return err
			}
		case r.dialect.supportsReturning():
			if err := tx.QueryRowContext(ctx, query+" RETURNING "+r.schema.IDColumn, args...).Scan(&key); err != nil {
				return err
			}
		default:
			result, err := tx.ExecContext(ctx, query, args...)
			if err != nil {
				return err
			}
			if key, err = result.LastInsertId(); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert record: %w", ConvertDBError(err))
	}

	if generated {
		if err := r.writeID(entity, key); err != nil {
			return key, err
		}
	}
	p, ok := r.schema.ID()
	if !ok {
		if generated {
			return key, nil
		}
		return idValue, nil
	}
	id, err := p.Get(entity)
	if err != nil {
		return nil, err
	}
	return convert.Indirect(id), nil
}

func (r *Repository[T]) writeID(entity *T, id int64) error {
	p, ok := r.schema.ID()
	if !ok {
		return nil
	}
	target := p.Type()
	for target.Kind() == reflect.Ptr {
		target = target.Elem()
	}
	value, err := r.converters.Convert(id, target)
	if err != nil {
		return fmt.Errorf("unable to set id value: %w", err)
	}
	return p.Set(entity, value)
}

// PartialUpdate loads the stored state of updated and writes only the columns
// that changed. It returns the number of rows affected, 0 when nothing changed.
func (r *Repository[T]) PartialUpdate(ctx context.Context, updated *T, deleteOverride bool) (int64, error) {
	id, err := r.idOf(updated)
	if err != nil {
		return 0, err
	}

	var affected int64
	err = r.tx.WithRetry(ctx, func(tx *sql.Tx) error {
		existing, err := r.findByID(ctx, tx, id)
		if err != nil {
			return err
		}

		changes, err := tracking.ScanForChanges(r.scanner, existing, updated, deleteOverride)
		if err != nil {
			return err
		}
		if !changes.HasChanges() {
			r.logger.Debug("entity not changed, ignoring update request", zap.Any("id", id))
			affected = 0
			return nil
		}

		params, err := ChangeParameters(r.schema, r.converters, changes)
		if err != nil {
			return err
		}
		idParams, err := r.idParams(id)
		if err != nil {
			return err
		}
		for k, v := range idParams {
			params[k] = v
		}

		affected, err = r.exec(ctx, tx, r.statements.Partial(changes.Assignments()), params)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to update record: %w", ConvertDBError(err))
	}
	return affected, nil
}

// MergeUpdate loads the stored state of updated, merges both states by copy
// behavior and writes every updatable column of the result.
func (r *Repository[T]) MergeUpdate(ctx context.Context, updated *T) (*T, error) {
	id, err := r.idOf(updated)
	if err != nil {
		return nil, err
	}

	var merged *T
	err = r.tx.WithRetry(ctx, func(tx *sql.Tx) error {
		existing, err := r.findByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if merged, err = tracking.Merge(r.merger, existing, updated); err != nil {
			return err
		}
		params, err := BuildParameters(r.schema, r.converters, merged)
		if err != nil {
			return err
		}
		_, err = r.exec(ctx, tx, r.statements.Update, params)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update record: %w", ConvertDBError(err))
	}
	return merged, nil
}

// DeleteByID removes the row with the given identifier and returns the number of
// rows affected.
func (r *Repository[T]) DeleteByID(ctx context.Context, id interface{}) (int64, error) {
	params, err := r.idParams(id)
	if err != nil {
		return 0, err
	}
	var affected int64
	err = r.tx.WithTransaction(ctx, func(tx *sql.Tx) error {
		affected, err = r.exec(ctx, tx, r.statements.Delete, params)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete record: %w", ConvertDBError(err))
	}
	return affected, nil
}

func (r *Repository[T]) exec(ctx context.Context, q querier, statement string, params map[string]interface{}) (int64, error) {
	query, args, err := r.bind(statement, params)
	if err != nil {
		return 0, err
	}
	result, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *Repository[T]) idOf(entity *T) (interface{}, error) {
	if entity == nil {
		return nil, fmt.Errorf("%w: nil entity", ormerrors.ErrInvalidArgument)
	}
	id, err := r.schema.IDValue(entity)
	if err != nil {
		return nil, err
	}
	if convert.IsNull(id) || reflect.ValueOf(id).IsZero() {
		return nil, fmt.Errorf("%w: can't update %s", ErrMissingID, r.schema.Type)
	}
	return id, nil
}

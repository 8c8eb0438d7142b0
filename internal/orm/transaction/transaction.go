// Package transaction runs repository work inside database/sql transactions and
// retries it when the database reports a deadlock or serialization failure.
package transaction

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

var (
	// ErrDeadlock is returned when retries are exhausted
	ErrDeadlock = errors.New("deadlock detected")
	// ErrNoDatabase is returned by a manager without a database handle
	ErrNoDatabase = errors.New("no database handle")
)

// IsolationLevel represents the transaction isolation level
type IsolationLevel int

const (
	// Default leaves the isolation level to the driver
	Default IsolationLevel = iota
	// ReadCommitted prevents dirty reads (PostgreSQL default)
	ReadCommitted
	// RepeatableRead prevents non-repeatable reads
	RepeatableRead
	// Serializable provides full isolation
	Serializable
)

// String returns the SQL spelling of the isolation level
func (l IsolationLevel) String() string {
	switch l {
	case ReadCommitted:
		return "READ COMMITTED"
	case RepeatableRead:
		return "REPEATABLE READ"
	case Serializable:
		return "SERIALIZABLE"
	default:
		return "DEFAULT"
	}
}

// ToSQLOptions converts IsolationLevel to sql.TxOptions
func (l IsolationLevel) ToSQLOptions() *sql.TxOptions {
	switch l {
	case ReadCommitted:
		return &sql.TxOptions{Isolation: sql.LevelReadCommitted}
	case RepeatableRead:
		return &sql.TxOptions{Isolation: sql.LevelRepeatableRead}
	case Serializable:
		return &sql.TxOptions{Isolation: sql.LevelSerializable}
	default:
		return nil
	}
}

// Manager manages database transactions
type Manager struct {
	db     *sql.DB
	level  IsolationLevel
	retry  *RetryConfig
	logger *zap.Logger
}

// Option configures a Manager
type Option func(*Manager)

// WithIsolation sets the isolation level of every transaction
func WithIsolation(level IsolationLevel) Option {
	return func(m *Manager) { m.level = level }
}

// WithRetryConfig sets the retry policy used by WithRetry
func WithRetryConfig(config *RetryConfig) Option {
	return func(m *Manager) { m.retry = config }
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager creates a new transaction manager
func NewManager(db *sql.DB, opts ...Option) *Manager {
	m := &Manager{db: db, retry: DefaultRetryConfig(), logger: zap.NewNop()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// DB returns the underlying database handle
func (m *Manager) DB() *sql.DB { return m.db }

// WithTransaction executes fn within a transaction. It commits when fn returns
// nil and rolls back otherwise; a panic in fn rolls back and is re-raised.
func (m *Manager) WithTransaction(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	if m.db == nil {
		return ErrNoDatabase
	}

	tx, err := m.db.BeginTx(ctx, m.level.ToSQLOptions())
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction failed: %w, rollback failed: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

package database

import (
	"context"
	"database/sql"
)

// Tx is the slice of a database transaction that services see.  Keeping it
// this small lets service tests run against in-memory fakes.
type Tx interface {
	Commit() error
	Rollback() error
}

// TxManager starts transactions.
type TxManager interface {
	Begin(ctx context.Context) (Tx, error)
}

// SQLTx wraps *sql.Tx so it satisfies Tx.
type SQLTx struct {
	*sql.Tx
}

// SQLTxManager begins transactions on a *sql.DB.
type SQLTxManager struct {
	db *sql.DB
}

func NewTxManager(db *sql.DB) *SQLTxManager {
	return &SQLTxManager{db: db}
}

// Begin opens a READ COMMITTED transaction; row locks taken with
// SELECT ... FOR UPDATE provide the isolation the callers rely on.
func (m *SQLTxManager) Begin(ctx context.Context) (Tx, error) {
	tx, err := m.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	return &SQLTx{Tx: tx}, nil
}

// UnwrapTx returns the *sql.Tx behind tx, or nil if tx came from elsewhere.
func UnwrapTx(tx Tx) *sql.Tx {
	if w, ok := tx.(*SQLTx); ok {
		return w.Tx
	}
	return nil
}

package sqlstore

import (
	"context"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/leafsii/leafsii-cms/internal/db/interfaces"
)

// Transaction implements interfaces.Transaction over a sqlx transaction
type Transaction struct {
	mu        sync.Mutex
	tx        *sqlx.Tx
	dialect   Dialect
	completed bool
}

// Commit commits the transaction
func (t *Transaction) Commit(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.completed {
		return interfaces.ErrTransactionCompleted
	}
	t.completed = true
	return t.dialect.wrapError("commit", t.tx.Commit())
}

// Rollback aborts the transaction
func (t *Transaction) Rollback(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.completed {
		return interfaces.ErrTransactionCompleted
	}
	t.completed = true
	return t.dialect.wrapError("rollback", t.tx.Rollback())
}

// IsCompleted reports whether the transaction was committed or rolled back
func (t *Transaction) IsCompleted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.completed
}

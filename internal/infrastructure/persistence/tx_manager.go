package persistence

import (
	"context"

	"gorm.io/gorm"

	"github.com/ledgerlink/backend/internal/domain/shared"
)

// txKey carries the open transaction through the context so repositories
// inside a WithinTx callback write through it without signature changes.
type txKey struct{}

// txFromContext returns the transaction bound to ctx, or nil outside one
func txFromContext(ctx context.Context) *gorm.DB {
	tx, _ := ctx.Value(txKey{}).(*gorm.DB)
	return tx
}

// GormTransactionManager implements shared.TransactionManager on top of the
// Database wrapper. One WithinTx call maps to one database transaction.
type GormTransactionManager struct {
	db *Database
}

// NewGormTransactionManager creates a new GormTransactionManager
func NewGormTransactionManager(db *Database) *GormTransactionManager {
	return &GormTransactionManager{db: db}
}

// WithinTx runs fn inside a transaction. A nested call joins the transaction
// already on the context instead of opening a second one.
func (m *GormTransactionManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}
	return m.db.Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

var _ shared.TransactionManager = (*GormTransactionManager)(nil)

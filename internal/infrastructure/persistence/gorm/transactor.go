package gorm

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/platewise/v1/internal/ports/outbound"
)

type txKey struct{}

// Transactor implements outbound.Transactor over a gorm connection. The
// transaction handle travels in the context, so every repository in this
// package joins the transaction transparently.
type Transactor struct {
	db *gorm.DB
}

// NewTransactor creates a transactor over the shared connection.
func NewTransactor(db *gorm.DB) *Transactor {
	return &Transactor{db: db}
}

var _ outbound.Transactor = (*Transactor)(nil)

// Transact runs fn inside one transaction. Nested calls join the enclosing
// transaction instead of opening a new one.
func (t *Transactor) Transact(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// dbFrom returns the transaction from the context, or the base connection.
func dbFrom(ctx context.Context, base *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return base.WithContext(ctx)
}

// mapWriteError folds driver-specific conflict signals onto the shared
// sentinels so the application layer can retry without knowing the driver.
func mapWriteError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return outbound.ErrConflict
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "duplicate key"),
		strings.Contains(msg, "UNIQUE constraint failed"),
		strings.Contains(msg, "could not serialize"):
		return outbound.ErrConflict
	}
	return err
}

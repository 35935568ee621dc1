// Package repo holds the connection plumbing shared by repositories over
// tables another system owns (shops, orders). The ledger only reads them.
package repo

import (
	"context"

	"gorm.io/gorm"
)

// Base binds a GORM connection, or the transaction currently in flight.
type Base struct {
	db *gorm.DB
}

func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB returns the connection bound to ctx. A nil ctx yields the raw handle.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// WithTx rebinds the base to tx so reads join the caller's transaction.
// A nil tx keeps the current binding.
func (b Base) WithTx(tx *gorm.DB) Base {
	if tx == nil {
		return b
	}
	return Base{db: tx}
}

// First loads the row matching column = value into dest.
func (b Base) First(ctx context.Context, dest any, column string, value any) error {
	return b.DB(ctx).Where(column+" = ?", value).First(dest).Error
}

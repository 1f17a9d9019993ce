package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, voucher *Voucher) error
	Update(ctx context.Context, db *gorm.DB, voucher *Voucher) error
	// UpdateStatus flips the status only when the stored row still carries
	// the expected one, guarding concurrent lifecycle calls.
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to VoucherStatus) (bool, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Voucher, error)
	List(ctx context.Context, db *gorm.DB, req ListVouchersRequest) ([]*Voucher, error)
	InsertLines(ctx context.Context, db *gorm.DB, lines []VoucherLine) error
	ReplaceLines(ctx context.Context, db *gorm.DB, voucherID snowflake.ID, lines []VoucherLine) error
	FindLines(ctx context.Context, db *gorm.DB, voucherID snowflake.ID) ([]VoucherLine, error)
}

package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	journaldomain "github.com/GymAurCode/rems-ledger/internal/journal/domain"
)

type Repository interface {
	// InsertEntry writes the entry header, skipping the write when an
	// original posting for the voucher already exists. Returns true when the
	// row was inserted.
	InsertEntry(ctx context.Context, db *gorm.DB, entry *journaldomain.JournalEntry) (bool, error)
	InsertLines(ctx context.Context, db *gorm.DB, lines []journaldomain.JournalLine) error
	FindEntryByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*journaldomain.JournalEntry, error)
	// FindPostingByVoucher returns the original (non-reversal) entry for a
	// voucher, if any.
	FindPostingByVoucher(ctx context.Context, db *gorm.DB, voucherID snowflake.ID) (*journaldomain.JournalEntry, error)
	// FindReversalOf returns the reversal entry referencing the given entry,
	// if any.
	FindReversalOf(ctx context.Context, db *gorm.DB, entryID snowflake.ID) (*journaldomain.JournalEntry, error)
	FindLines(ctx context.Context, db *gorm.DB, entryID snowflake.ID) ([]journaldomain.JournalLine, error)
}

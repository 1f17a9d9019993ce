package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	journaldomain "github.com/GymAurCode/rems-ledger/internal/journal/domain"
	"github.com/GymAurCode/rems-ledger/internal/posting/domain"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertEntry(ctx context.Context, db *gorm.DB, entry *journaldomain.JournalEntry) (bool, error) {
	// The partial unique index covers original postings only, so reversals
	// for the same voucher pass through unhindered.
	res := db.WithContext(ctx).Exec(
		`INSERT INTO journal_entries (id, entry_number, voucher_id, voucher_number, date, description, purpose, property_id, deal_id, reverses_entry_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (voucher_id) WHERE reverses_entry_id IS NULL DO NOTHING`,
		entry.ID,
		entry.EntryNumber,
		entry.VoucherID,
		entry.VoucherNumber,
		entry.Date,
		entry.Description,
		entry.Purpose,
		entry.PropertyID,
		entry.DealID,
		entry.ReversesEntryID,
		entry.CreatedAt,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) InsertLines(ctx context.Context, db *gorm.DB, lines []journaldomain.JournalLine) error {
	for _, line := range lines {
		err := db.WithContext(ctx).Exec(
			`INSERT INTO journal_lines (id, journal_entry_id, account_id, debit, credit, description, position, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			line.ID,
			line.JournalEntryID,
			line.AccountID,
			line.Debit,
			line.Credit,
			line.Description,
			line.Position,
			line.CreatedAt,
		).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) FindEntryByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*journaldomain.JournalEntry, error) {
	return r.findEntry(ctx, db, `SELECT * FROM journal_entries WHERE id = ?`, id)
}

func (r *repo) FindPostingByVoucher(ctx context.Context, db *gorm.DB, voucherID snowflake.ID) (*journaldomain.JournalEntry, error) {
	return r.findEntry(ctx, db,
		`SELECT * FROM journal_entries WHERE voucher_id = ? AND reverses_entry_id IS NULL`,
		voucherID,
	)
}

func (r *repo) FindReversalOf(ctx context.Context, db *gorm.DB, entryID snowflake.ID) (*journaldomain.JournalEntry, error) {
	return r.findEntry(ctx, db,
		`SELECT * FROM journal_entries WHERE reverses_entry_id = ?`,
		entryID,
	)
}

func (r *repo) findEntry(ctx context.Context, db *gorm.DB, query string, args ...any) (*journaldomain.JournalEntry, error) {
	var entry journaldomain.JournalEntry
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&entry).Error; err != nil {
		return nil, err
	}
	if entry.ID == 0 {
		return nil, nil
	}
	return &entry, nil
}

func (r *repo) FindLines(ctx context.Context, db *gorm.DB, entryID snowflake.ID) ([]journaldomain.JournalLine, error) {
	var lines []journaldomain.JournalLine
	err := db.WithContext(ctx).Raw(
		`SELECT id, journal_entry_id, account_id, debit, credit, description, position, created_at
		 FROM journal_lines WHERE journal_entry_id = ? ORDER BY position ASC`,
		entryID,
	).Scan(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}

package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// JournalEntry is the immutable header created when a voucher posts. It is
// created exactly once and never updated; reversals create a new entry that
// back-references the original.
type JournalEntry struct {
	ID            snowflake.ID  `gorm:"primaryKey" json:"id"`
	EntryNumber   string        `gorm:"type:text;not null;uniqueIndex:ux_journal_entries_number" json:"entry_number"`
	VoucherID     snowflake.ID  `gorm:"not null;index" json:"voucher_id"`
	VoucherNumber string        `gorm:"type:text;not null" json:"voucher_number"`
	Date          time.Time     `gorm:"not null;index" json:"date"`
	Description   string        `gorm:"type:text" json:"description"`
	Purpose       string        `gorm:"type:text" json:"purpose,omitempty"`
	PropertyID    *snowflake.ID `gorm:"index" json:"property_id,omitempty"`
	DealID        *snowflake.ID `gorm:"index" json:"deal_id,omitempty"`
	// ReversesEntryID links a reversal to the entry it offsets. The unique
	// voucher linkage only applies to original postings, so one voucher can
	// carry at most one posting plus its reversal.
	ReversesEntryID *snowflake.ID `gorm:"index" json:"reverses_entry_id,omitempty"`
	CreatedAt       time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (JournalEntry) TableName() string { return "journal_entries" }

// JournalLine is a double-entry posting line. Exactly one of Debit/Credit is
// non-zero; both are non-negative integer minor units. Journal lines are the
// only input to balance computation.
type JournalLine struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	JournalEntryID snowflake.ID `gorm:"not null;index" json:"journal_entry_id"`
	AccountID      snowflake.ID `gorm:"not null;index" json:"account_id"`
	Debit          int64        `gorm:"not null" json:"debit"`
	Credit         int64        `gorm:"not null" json:"credit"`
	Description    string       `gorm:"type:text" json:"description"`
	Position       int          `gorm:"not null" json:"position"`
	CreatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (JournalLine) TableName() string { return "journal_lines" }

var (
	ErrUnbalanced      = errors.New("unbalanced_entry")
	ErrInvalidLine     = errors.New("invalid_line")
	ErrTooFewLines     = errors.New("too_few_lines")
	ErrEntryNotFound   = errors.New("journal_entry_not_found")
)

// ValidateLines checks the per-line shape: non-negative amounts with exactly
// one side set.
func ValidateLines(lines []JournalLine) error {
	if len(lines) < 2 {
		return ErrTooFewLines
	}
	for _, line := range lines {
		if line.AccountID == 0 {
			return ErrInvalidLine
		}
		if line.Debit < 0 || line.Credit < 0 {
			return ErrInvalidLine
		}
		if (line.Debit == 0) == (line.Credit == 0) {
			return ErrInvalidLine
		}
	}
	return nil
}

// ValidateBalanced checks that debits equal credits exactly, on integer minor
// units.
func ValidateBalanced(lines []JournalLine) error {
	if err := ValidateLines(lines); err != nil {
		return err
	}
	var debits, credits int64
	for _, line := range lines {
		debits += line.Debit
		credits += line.Credit
	}
	if debits != credits {
		return ErrUnbalanced
	}
	return nil
}

// Reversed returns the offsetting lines: each debit becomes a credit and vice
// versa, in the original order.
func Reversed(lines []JournalLine) []JournalLine {
	out := make([]JournalLine, len(lines))
	for i, line := range lines {
		out[i] = JournalLine{
			AccountID:   line.AccountID,
			Debit:       line.Credit,
			Credit:      line.Debit,
			Description: line.Description,
			Position:    line.Position,
		}
	}
	return out
}

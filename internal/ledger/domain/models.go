package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"

	accountdomain "github.com/GymAurCode/rems-ledger/internal/account/domain"
	journaldomain "github.com/GymAurCode/rems-ledger/internal/journal/domain"
)

var ErrInvalidRange = errors.New("invalid_date_range")

// Filter narrows ledger reads to one property or deal dimension.
type Filter struct {
	PropertyID *snowflake.ID `form:"property_id"`
	DealID     *snowflake.ID `form:"deal_id"`
}

// LedgerRow is one posting line in an account ledger, enriched with its entry
// header and a running balance. RunningBalance is signed by the account's
// normal side, so a healthy asset account reads positive.
type LedgerRow struct {
	EntryID          snowflake.ID `json:"entry_id" gorm:"column:entry_id"`
	EntryNumber      string       `json:"entry_number" gorm:"column:entry_number"`
	VoucherNumber    string       `json:"voucher_number" gorm:"column:voucher_number"`
	Date             time.Time    `json:"date" gorm:"column:date"`
	EntryDescription string       `json:"entry_description" gorm:"column:entry_description"`
	LineID           snowflake.ID `json:"line_id" gorm:"column:line_id"`
	Debit            int64        `json:"debit" gorm:"column:debit"`
	Credit           int64        `json:"credit" gorm:"column:credit"`
	LineDescription  string       `json:"line_description" gorm:"column:line_description"`
	Position         int          `json:"position" gorm:"column:position"`
	RunningBalance   int64        `json:"running_balance" gorm:"-"`
}

// AccountLedgerRequest bounds an account ledger read. To is inclusive.
type AccountLedgerRequest struct {
	AccountID snowflake.ID
	From      time.Time
	To        time.Time
	Filter
}

// AccountLedgerResult carries the statement plus the balance brought forward.
type AccountLedgerResult struct {
	Account        accountdomain.Account `json:"account"`
	OpeningBalance int64                 `json:"opening_balance"`
	ClosingBalance int64                 `json:"closing_balance"`
	Rows           []LedgerRow           `json:"rows"`
}

// AccountBalance is the aggregate position of one account. Balance is signed
// by the account's normal side. Zero-activity postable accounts still appear
// in snapshot listings.
type AccountBalance struct {
	AccountID  snowflake.ID                   `json:"account_id" gorm:"column:account_id"`
	Code       string                         `json:"code" gorm:"column:code"`
	Name       string                         `json:"name" gorm:"column:name"`
	Type       accountdomain.AccountType      `json:"type" gorm:"column:type"`
	CashFlow   accountdomain.CashFlowCategory `json:"cash_flow" gorm:"column:cash_flow"`
	IsPostable bool                           `json:"is_postable" gorm:"column:is_postable"`
	Debits     int64                          `json:"debits" gorm:"column:debits"`
	Credits    int64                          `json:"credits" gorm:"column:credits"`
	Balance    int64                          `json:"balance" gorm:"-"`
}

// EntryWithLines is one journal entry and its posting lines, for the company
// ledger view.
type EntryWithLines struct {
	Entry journaldomain.JournalEntry  `json:"entry"`
	Lines []journaldomain.JournalLine `json:"lines"`
}

// CompanyLedgerRequest bounds a company-wide journal read.
type CompanyLedgerRequest struct {
	From time.Time
	To   time.Time
	Filter
}

// Reader serves read-only views over posted journal data. Every method runs
// inside one database transaction so concurrent postings never produce a
// half-applied snapshot.
type Reader interface {
	AccountLedger(ctx context.Context, req AccountLedgerRequest) (AccountLedgerResult, error)
	AccountBalance(ctx context.Context, accountID snowflake.ID, asOf time.Time) (AccountBalance, error)
	// BalancesAsOf returns every account with cumulative activity up to and
	// including asOf.
	BalancesAsOf(ctx context.Context, asOf time.Time, filter Filter) ([]AccountBalance, error)
	// BalancesBetween returns per-account activity within [from, to], for
	// period reports.
	BalancesBetween(ctx context.Context, from, to time.Time, filter Filter) ([]AccountBalance, error)
	CompanyLedger(ctx context.Context, req CompanyLedgerRequest) ([]EntryWithLines, error)
}

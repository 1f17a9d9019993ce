package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"

	accountdomain "github.com/GymAurCode/rems-ledger/internal/account/domain"
	ledgerdomain "github.com/GymAurCode/rems-ledger/internal/ledger/domain"
)

var ErrInvalidRange = errors.New("invalid_date_range")

// Integrity is the mismatch banner. Every posted entry balances by
// construction, so an unbalanced report means a posting defect or partial
// write, never bad user input. Difference is signed minor units.
type Integrity struct {
	Balanced   bool   `json:"balanced"`
	Difference int64  `json:"difference"`
	Message    string `json:"message,omitempty"`
}

// Row is one account amount inside a report section, in minor units.
type Row struct {
	AccountID snowflake.ID `json:"account_id"`
	Code      string       `json:"code"`
	Name      string       `json:"name"`
	Amount    int64        `json:"amount"`
}

// Section groups report rows under a label with their total.
type Section struct {
	Label string `json:"label"`
	Rows  []Row  `json:"rows"`
	Total int64  `json:"total"`
}

// TrialBalanceRow lists one postable account's raw debit/credit totals.
type TrialBalanceRow struct {
	AccountID snowflake.ID              `json:"account_id"`
	Code      string                    `json:"code"`
	Name      string                    `json:"name"`
	Type      accountdomain.AccountType `json:"type"`
	Debits    int64                     `json:"debits"`
	Credits   int64                     `json:"credits"`
	Balance   int64                     `json:"balance"`
}

type TrialBalance struct {
	AsOf         time.Time         `json:"as_of"`
	Rows         []TrialBalanceRow `json:"rows"`
	TotalDebits  int64             `json:"total_debits"`
	TotalCredits int64             `json:"total_credits"`
	Integrity    Integrity         `json:"integrity"`
}

type BalanceSheet struct {
	AsOf               time.Time `json:"as_of"`
	CurrentAssets      Section   `json:"current_assets"`
	FixedAssets        Section   `json:"fixed_assets"`
	CurrentLiabilities Section   `json:"current_liabilities"`
	Equity             Section   `json:"equity"`
	TotalAssets        int64     `json:"total_assets"`
	TotalLiabilities   int64     `json:"total_liabilities"`
	TotalEquity        int64     `json:"total_equity"`
	Integrity          Integrity `json:"integrity"`
}

type ProfitLoss struct {
	From      time.Time       `json:"from"`
	To        time.Time       `json:"to"`
	Revenue   Section         `json:"revenue"`
	Expenses  Section         `json:"expenses"`
	NetProfit int64           `json:"net_profit"`
	// Margin is net profit over revenue as a percentage. 0 when there is no
	// activity at all, -100 when expenses exist against zero revenue.
	Margin decimal.Decimal `json:"margin"`
}

// AgingSide selects which control accounts an aging report covers.
type AgingSide string

const (
	AgingReceivable AgingSide = "receivable"
	AgingPayable    AgingSide = "payable"
)

type AgingBucketTotal struct {
	Label   string `json:"label"`
	MinDays int    `json:"min_days"`
	MaxDays *int   `json:"max_days,omitempty"`
	Total   int64  `json:"total"`
}

type Aging struct {
	AsOf    time.Time          `json:"as_of"`
	Side    AgingSide          `json:"side"`
	Buckets []AgingBucketTotal `json:"buckets"`
	Total   int64              `json:"total"`
}

type PropertyResult struct {
	PropertyID snowflake.ID    `json:"property_id"`
	Revenue    int64           `json:"revenue"`
	Expenses   int64           `json:"expenses"`
	NetProfit  int64           `json:"net_profit"`
	Margin     decimal.Decimal `json:"margin"`
}

type PropertyProfitability struct {
	From       time.Time        `json:"from"`
	To         time.Time        `json:"to"`
	Properties []PropertyResult `json:"properties"`
}

// EscrowViolation is one historical entry that moved funds across the escrow
// boundary without an allowed purpose.
type EscrowViolation struct {
	EntryID     snowflake.ID `json:"entry_id"`
	EntryNumber string       `json:"entry_number"`
	Date        time.Time    `json:"date"`
	Purpose     string       `json:"purpose,omitempty"`
	Amount      int64        `json:"amount"`
}

type Escrow struct {
	AsOf                   time.Time         `json:"as_of"`
	TrustAssets            Section           `json:"trust_assets"`
	ClientLiabilities      Section           `json:"client_liabilities"`
	TotalTrustAssets       int64             `json:"total_trust_assets"`
	TotalClientLiabilities int64             `json:"total_client_liabilities"`
	Violations             []EscrowViolation `json:"violations"`
	Integrity              Integrity         `json:"integrity"`
}

// Generator builds the six financial reports. Pure aggregations over ledger
// snapshots; generators never write.
type Generator interface {
	TrialBalance(ctx context.Context, asOf time.Time) (TrialBalance, error)
	BalanceSheet(ctx context.Context, asOf time.Time) (BalanceSheet, error)
	ProfitLoss(ctx context.Context, from, to time.Time, filter ledgerdomain.Filter) (ProfitLoss, error)
	Aging(ctx context.Context, asOf time.Time, side AgingSide) (Aging, error)
	PropertyProfitability(ctx context.Context, from, to time.Time) (PropertyProfitability, error)
	Escrow(ctx context.Context, asOf time.Time) (Escrow, error)
}

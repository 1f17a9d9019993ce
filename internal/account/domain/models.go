package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// AccountType is the closed classification used for report sectioning.
// Every report switches exhaustively over these values.
type AccountType string

const (
	TypeAsset     AccountType = "asset"
	TypeLiability AccountType = "liability"
	TypeEquity    AccountType = "equity"
	TypeRevenue   AccountType = "revenue"
	TypeExpense   AccountType = "expense"
)

// Types lists every account type, for exhaustive report iteration.
func Types() []AccountType {
	return []AccountType{TypeAsset, TypeLiability, TypeEquity, TypeRevenue, TypeExpense}
}

func ValidType(t AccountType) bool {
	switch t {
	case TypeAsset, TypeLiability, TypeEquity, TypeRevenue, TypeExpense:
		return true
	default:
		return false
	}
}

// DebitNormal reports whether a debit increases the balance of this type.
func (t AccountType) DebitNormal() bool {
	switch t {
	case TypeAsset, TypeExpense:
		return true
	case TypeLiability, TypeEquity, TypeRevenue:
		return false
	default:
		return false
	}
}

// CashFlowCategory classifies accounts for cash-flow and escrow reporting.
type CashFlowCategory string

const (
	CashFlowOperating CashFlowCategory = "operating"
	CashFlowInvesting CashFlowCategory = "investing"
	CashFlowFinancing CashFlowCategory = "financing"
	CashFlowEscrow    CashFlowCategory = "escrow"
	CashFlowNone      CashFlowCategory = "none"
)

func ValidCashFlowCategory(c CashFlowCategory) bool {
	switch c {
	case CashFlowOperating, CashFlowInvesting, CashFlowFinancing, CashFlowEscrow, CashFlowNone:
		return true
	default:
		return false
	}
}

// Account is one row of the chart of accounts. The tree is kept as parent-id
// references in a flat table; ancestry is computed on read, never stored.
type Account struct {
	ID         snowflake.ID     `gorm:"primaryKey" json:"id"`
	Code       string           `gorm:"type:text;not null;uniqueIndex:ux_accounts_code" json:"code"`
	Name       string           `gorm:"type:text;not null" json:"name"`
	Type       AccountType      `gorm:"type:text;not null" json:"type"`
	ParentID   *snowflake.ID    `gorm:"index" json:"parent_id,omitempty"`
	IsPostable bool             `gorm:"not null" json:"is_postable"`
	CashFlow   CashFlowCategory `gorm:"column:cash_flow_category;type:text;not null" json:"cash_flow_category"`
	Disabled   bool             `gorm:"not null;default:false" json:"disabled"`
	CreatedAt  time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Account) TableName() string { return "accounts" }

// IsEscrow reports whether the account holds client trust funds.
func (a Account) IsEscrow() bool { return a.CashFlow == CashFlowEscrow }

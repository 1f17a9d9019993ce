package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// VoucherType is the closed set of financial transaction requests.
type VoucherType string

const (
	TypePayment VoucherType = "payment" // cash out
	TypeReceipt VoucherType = "receipt" // cash in
	TypeContra  VoucherType = "contra"  // bank to bank
	TypeJournal VoucherType = "journal" // manual adjustment
)

func ValidVoucherType(t VoucherType) bool {
	switch t {
	case TypePayment, TypeReceipt, TypeContra, TypeJournal:
		return true
	default:
		return false
	}
}

// NumberPrefix returns the document prefix for sequential voucher numbers.
func (t VoucherType) NumberPrefix() string {
	switch t {
	case TypePayment:
		return "PV"
	case TypeReceipt:
		return "RV"
	case TypeContra:
		return "CV"
	case TypeJournal:
		return "JV"
	default:
		return "XV"
	}
}

// VoucherStatus is the voucher lifecycle state.
type VoucherStatus string

const (
	StatusDraft     VoucherStatus = "draft"
	StatusSubmitted VoucherStatus = "submitted"
	StatusApproved  VoucherStatus = "approved"
	StatusPosted    VoucherStatus = "posted"
	StatusReversed  VoucherStatus = "reversed"
	StatusRejected  VoucherStatus = "rejected"
)

// transitions is the enforced lifecycle table. Anything absent is forbidden,
// including draft -> posted.
var transitions = map[VoucherStatus][]VoucherStatus{
	StatusDraft:     {StatusSubmitted},
	StatusSubmitted: {StatusApproved, StatusRejected},
	StatusApproved:  {StatusPosted},
	StatusPosted:    {StatusReversed},
}

// CanTransition reports whether the lifecycle permits moving from -> to.
func CanTransition(from, to VoucherStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Voucher is a user-facing transaction request. Once posted it is immutable;
// corrections go through the reversal path.
type Voucher struct {
	ID          snowflake.ID  `gorm:"primaryKey" json:"id"`
	Number      string        `gorm:"type:text;not null;uniqueIndex:ux_vouchers_number" json:"number"`
	Type        VoucherType   `gorm:"type:text;not null;index" json:"type"`
	Status      VoucherStatus `gorm:"type:text;not null;index" json:"status"`
	Date        time.Time     `gorm:"not null;index" json:"date"`
	Description string        `gorm:"type:text" json:"description"`
	// Purpose identifies allowed escrow operations, e.g. security_deposit_receipt.
	Purpose    string            `gorm:"type:text" json:"purpose,omitempty"`
	PropertyID *snowflake.ID     `gorm:"index" json:"property_id,omitempty"`
	DealID     *snowflake.ID     `gorm:"index" json:"deal_id,omitempty"`
	Metadata   datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	Lines []VoucherLine `gorm:"-" json:"lines,omitempty"`
}

// TableName sets the database table name.
func (Voucher) TableName() string { return "vouchers" }

// Amount is the voucher total, derived as the sum of debit lines.
func (v *Voucher) Amount() int64 {
	var total int64
	for _, line := range v.Lines {
		total += line.Debit
	}
	return total
}

// VoucherLine is one requested posting line in integer minor units.
type VoucherLine struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	VoucherID   snowflake.ID `gorm:"not null;index" json:"voucher_id"`
	AccountID   snowflake.ID `gorm:"not null;index" json:"account_id"`
	Debit       int64        `gorm:"not null" json:"debit"`
	Credit      int64        `gorm:"not null" json:"credit"`
	Description string       `gorm:"type:text" json:"description"`
	Position    int          `gorm:"not null" json:"position"`
}

// TableName sets the database table name.
func (VoucherLine) TableName() string { return "voucher_lines" }

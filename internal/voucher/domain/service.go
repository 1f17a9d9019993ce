package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"

	"github.com/GymAurCode/rems-ledger/pkg/db/pagination"
)

var (
	ErrNotFound          = errors.New("voucher_not_found")
	ErrInvalidType       = errors.New("invalid_voucher_type")
	ErrInvalidTransition = errors.New("invalid_status_transition")
	ErrNotEditable       = errors.New("voucher_not_editable")
	ErrNoLines           = errors.New("voucher_requires_lines")
	ErrInvalidLine       = errors.New("invalid_voucher_line")
)

// LineInput is one requested line on create or update.
type LineInput struct {
	AccountID   snowflake.ID `json:"account_id"`
	Debit       int64        `json:"debit"`
	Credit      int64        `json:"credit"`
	Description string       `json:"description"`
}

type CreateVoucherRequest struct {
	Type        VoucherType       `json:"type"`
	Date        time.Time         `json:"date"`
	Description string            `json:"description"`
	Purpose     string            `json:"purpose"`
	PropertyID  *snowflake.ID     `json:"property_id"`
	DealID      *snowflake.ID     `json:"deal_id"`
	Metadata    datatypes.JSONMap `json:"metadata"`
	Lines       []LineInput       `json:"lines"`
}

// UpdateVoucherRequest replaces the mutable fields of a draft voucher. Lines,
// when present, replace the existing set wholesale.
type UpdateVoucherRequest struct {
	ID          snowflake.ID      `json:"-"`
	Date        *time.Time        `json:"date"`
	Description *string           `json:"description"`
	Purpose     *string           `json:"purpose"`
	PropertyID  *snowflake.ID     `json:"property_id"`
	DealID      *snowflake.ID     `json:"deal_id"`
	Metadata    datatypes.JSONMap `json:"metadata"`
	Lines       []LineInput       `json:"lines"`
}

type ListVouchersRequest struct {
	Type       VoucherType   `form:"type"`
	Status     VoucherStatus `form:"status"`
	PropertyID *snowflake.ID `form:"property_id"`
	DealID     *snowflake.ID `form:"deal_id"`
	From       *time.Time    `form:"from"`
	To         *time.Time    `form:"to"`

	pagination.Pagination
}

// Workflow manages the voucher lifecycle up to the point of posting. Posting
// itself lives in the posting engine; the workflow only hands over approved
// vouchers.
type Workflow interface {
	Create(ctx context.Context, req CreateVoucherRequest) (Voucher, error)
	Update(ctx context.Context, req UpdateVoucherRequest) (Voucher, error)
	Submit(ctx context.Context, id snowflake.ID) (Voucher, error)
	Approve(ctx context.Context, id snowflake.ID) (Voucher, error)
	Reject(ctx context.Context, id snowflake.ID) (Voucher, error)
	Get(ctx context.Context, id snowflake.ID) (Voucher, error)
	List(ctx context.Context, req ListVouchersRequest) ([]Voucher, *pagination.PageInfo, error)
}

package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type CreateAccountRequest struct {
	Code     string
	Name     string
	Type     AccountType
	ParentID *snowflake.ID
	CashFlow CashFlowCategory

	// Postable defaults to true for leaf accounts; ignored when the account
	// gains children later.
	Postable *bool
}

type ReclassifyRequest struct {
	ID       snowflake.ID
	Name     string
	ParentID *snowflake.ID
	CashFlow CashFlowCategory
}

type ListAccountsRequest struct {
	Type            AccountType
	PostableOnly    bool
	IncludeDisabled bool
}

// Registry is the chart-of-accounts read/write contract. It is injected into
// validation, posting and reports so tests can substitute a fixture chart.
type Registry interface {
	Create(ctx context.Context, req CreateAccountRequest) (Account, error)
	Reclassify(ctx context.Context, req ReclassifyRequest) (Account, error)
	Disable(ctx context.Context, id snowflake.ID) error
	// Delete removes an account that was never posted to. Accounts referenced
	// by any journal line can only be disabled.
	Delete(ctx context.Context, id snowflake.ID) error

	Get(ctx context.Context, id snowflake.ID) (Account, error)
	GetByCode(ctx context.Context, code string) (Account, error)
	List(ctx context.Context, req ListAccountsRequest) ([]Account, error)
	ChildrenOf(ctx context.Context, id snowflake.ID) ([]Account, error)
	// ResolvePath returns the ancestors of id ordered root-first, excluding id.
	ResolvePath(ctx context.Context, id snowflake.ID) ([]Account, error)
	IsPostable(ctx context.Context, id snowflake.ID) (bool, error)
}

var (
	ErrNotFound          = errors.New("account_not_found")
	ErrInvalidHierarchy  = errors.New("invalid_hierarchy")
	ErrInvalidCode       = errors.New("invalid_code")
	ErrInvalidName       = errors.New("invalid_name")
	ErrInvalidType       = errors.New("invalid_type")
	ErrInvalidCashFlow   = errors.New("invalid_cash_flow_category")
	ErrCodeExists        = errors.New("code_exists")
	ErrAccountReferenced = errors.New("account_referenced")
)

package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, account *Account) error
	Update(ctx context.Context, db *gorm.DB, account *Account) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Account, error)
	FindByCode(ctx context.Context, db *gorm.DB, code string) (*Account, error)
	FindChildren(ctx context.Context, db *gorm.DB, parentID snowflake.ID) ([]Account, error)
	List(ctx context.Context, db *gorm.DB, req ListAccountsRequest) ([]Account, error)
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	// HasJournalLines reports whether any posted journal line references the account.
	HasJournalLines(ctx context.Context, db *gorm.DB, accountID snowflake.ID) (bool, error)
}

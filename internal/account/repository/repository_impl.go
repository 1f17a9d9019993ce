package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/GymAurCode/rems-ledger/internal/account/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, account *domain.Account) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO accounts (id, code, name, type, parent_id, is_postable, cash_flow_category, disabled, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		account.ID,
		account.Code,
		account.Name,
		account.Type,
		account.ParentID,
		account.IsPostable,
		account.CashFlow,
		account.Disabled,
		account.CreatedAt,
		account.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, account *domain.Account) error {
	return db.WithContext(ctx).Exec(
		`UPDATE accounts
		 SET name = ?, parent_id = ?, is_postable = ?, cash_flow_category = ?, disabled = ?, updated_at = ?
		 WHERE id = ?`,
		account.Name,
		account.ParentID,
		account.IsPostable,
		account.CashFlow,
		account.Disabled,
		account.UpdatedAt,
		account.ID,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Account, error) {
	var account domain.Account
	err := db.WithContext(ctx).Raw(
		`SELECT id, code, name, type, parent_id, is_postable, cash_flow_category, disabled, created_at, updated_at
		 FROM accounts WHERE id = ?`,
		id,
	).Scan(&account).Error
	if err != nil {
		return nil, err
	}
	if account.ID == 0 {
		return nil, nil
	}
	return &account, nil
}

func (r *repo) FindByCode(ctx context.Context, db *gorm.DB, code string) (*domain.Account, error) {
	var account domain.Account
	err := db.WithContext(ctx).Raw(
		`SELECT id, code, name, type, parent_id, is_postable, cash_flow_category, disabled, created_at, updated_at
		 FROM accounts WHERE code = ?`,
		code,
	).Scan(&account).Error
	if err != nil {
		return nil, err
	}
	if account.ID == 0 {
		return nil, nil
	}
	return &account, nil
}

func (r *repo) FindChildren(ctx context.Context, db *gorm.DB, parentID snowflake.ID) ([]domain.Account, error) {
	var accounts []domain.Account
	err := db.WithContext(ctx).
		Model(&domain.Account{}).
		Where("parent_id = ?", parentID).
		Order("code asc").
		Find(&accounts).Error
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, req domain.ListAccountsRequest) ([]domain.Account, error) {
	stmt := db.WithContext(ctx).Model(&domain.Account{})
	if req.Type != "" {
		stmt = stmt.Where("type = ?", req.Type)
	}
	if req.PostableOnly {
		stmt = stmt.Where("is_postable = ?", true)
	}
	if !req.IncludeDisabled {
		stmt = stmt.Where("disabled = ?", false)
	}

	var accounts []domain.Account
	if err := stmt.Order("code asc").Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(`DELETE FROM accounts WHERE id = ?`, id).Error
}

func (r *repo) HasJournalLines(ctx context.Context, db *gorm.DB, accountID snowflake.ID) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM journal_lines WHERE account_id = ?`,
		accountID,
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

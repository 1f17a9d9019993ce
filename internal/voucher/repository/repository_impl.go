package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/GymAurCode/rems-ledger/internal/voucher/domain"
	"github.com/GymAurCode/rems-ledger/pkg/db/pagination"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, voucher *domain.Voucher) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO vouchers (id, number, type, status, date, description, purpose, property_id, deal_id, metadata, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		voucher.ID,
		voucher.Number,
		voucher.Type,
		voucher.Status,
		voucher.Date,
		voucher.Description,
		voucher.Purpose,
		voucher.PropertyID,
		voucher.DealID,
		voucher.Metadata,
		voucher.CreatedAt,
		voucher.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, voucher *domain.Voucher) error {
	return db.WithContext(ctx).Exec(
		`UPDATE vouchers
		 SET date = ?, description = ?, purpose = ?, property_id = ?, deal_id = ?, metadata = ?, updated_at = ?
		 WHERE id = ?`,
		voucher.Date,
		voucher.Description,
		voucher.Purpose,
		voucher.PropertyID,
		voucher.DealID,
		voucher.Metadata,
		voucher.UpdatedAt,
		voucher.ID,
	).Error
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to domain.VoucherStatus) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE vouchers SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		to,
		time.Now().UTC(),
		id,
		from,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Voucher, error) {
	var voucher domain.Voucher
	err := db.WithContext(ctx).Raw(
		`SELECT id, number, type, status, date, description, purpose, property_id, deal_id, metadata, created_at, updated_at
		 FROM vouchers WHERE id = ?`,
		id,
	).Scan(&voucher).Error
	if err != nil {
		return nil, err
	}
	if voucher.ID == 0 {
		return nil, nil
	}
	return &voucher, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, req domain.ListVouchersRequest) ([]*domain.Voucher, error) {
	stmt := db.WithContext(ctx).Model(&domain.Voucher{})
	if req.Type != "" {
		stmt = stmt.Where("type = ?", req.Type)
	}
	if req.Status != "" {
		stmt = stmt.Where("status = ?", req.Status)
	}
	if req.PropertyID != nil {
		stmt = stmt.Where("property_id = ?", *req.PropertyID)
	}
	if req.DealID != nil {
		stmt = stmt.Where("deal_id = ?", *req.DealID)
	}
	if req.From != nil {
		stmt = stmt.Where("date >= ?", *req.From)
	}
	if req.To != nil {
		stmt = stmt.Where("date < ?", *req.To)
	}
	if req.PageToken != "" {
		cursor, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return nil, err
		}
		stmt = stmt.Where("id < ?", cursor.ID)
	}

	limit := req.PageSize
	if limit <= 0 {
		limit = 50
	}

	var vouchers []*domain.Voucher
	if err := stmt.Order("id desc").Limit(limit + 1).Find(&vouchers).Error; err != nil {
		return nil, err
	}
	return vouchers, nil
}

func (r *repo) InsertLines(ctx context.Context, db *gorm.DB, lines []domain.VoucherLine) error {
	for _, line := range lines {
		err := db.WithContext(ctx).Exec(
			`INSERT INTO voucher_lines (id, voucher_id, account_id, debit, credit, description, position)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			line.ID,
			line.VoucherID,
			line.AccountID,
			line.Debit,
			line.Credit,
			line.Description,
			line.Position,
		).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) ReplaceLines(ctx context.Context, db *gorm.DB, voucherID snowflake.ID, lines []domain.VoucherLine) error {
	if err := db.WithContext(ctx).Exec(
		`DELETE FROM voucher_lines WHERE voucher_id = ?`,
		voucherID,
	).Error; err != nil {
		return err
	}
	return r.InsertLines(ctx, db, lines)
}

func (r *repo) FindLines(ctx context.Context, db *gorm.DB, voucherID snowflake.ID) ([]domain.VoucherLine, error) {
	var lines []domain.VoucherLine
	err := db.WithContext(ctx).Raw(
		`SELECT id, voucher_id, account_id, debit, credit, description, position
		 FROM voucher_lines WHERE voucher_id = ? ORDER BY position ASC`,
		voucherID,
	).Scan(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}

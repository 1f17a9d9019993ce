package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	accountdomain "github.com/GymAurCode/rems-ledger/internal/account/domain"
	journaldomain "github.com/GymAurCode/rems-ledger/internal/journal/domain"
	"github.com/GymAurCode/rems-ledger/internal/ledger/domain"
)

type Params struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	accounts accountdomain.Repository
}

func New(p Params, accounts accountdomain.Repository) domain.Reader {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("ledger.reader"),
		accounts: accounts,
	}
}

func (s *Service) AccountLedger(ctx context.Context, req domain.AccountLedgerRequest) (domain.AccountLedgerResult, error) {
	if !req.To.IsZero() && !req.From.IsZero() && req.To.Before(req.From) {
		return domain.AccountLedgerResult{}, domain.ErrInvalidRange
	}

	var result domain.AccountLedgerResult

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		account, err := s.accounts.FindByID(ctx, tx, req.AccountID)
		if err != nil {
			return err
		}
		if account == nil {
			return accountdomain.ErrNotFound
		}
		result.Account = *account

		opening, err := s.sumBefore(ctx, tx, req.AccountID, req.From, req.Filter)
		if err != nil {
			return err
		}
		result.OpeningBalance = signed(account.Type, opening.debits, opening.credits)

		rows, err := s.ledgerRows(ctx, tx, req)
		if err != nil {
			return err
		}

		running := result.OpeningBalance
		for i := range rows {
			running += signed(account.Type, rows[i].Debit, rows[i].Credit)
			rows[i].RunningBalance = running
		}
		result.Rows = rows
		result.ClosingBalance = running
		return nil
	})
	if err != nil {
		return domain.AccountLedgerResult{}, err
	}
	return result, nil
}

type sums struct {
	debits  int64
	credits int64
}

func (s *Service) sumBefore(ctx context.Context, tx *gorm.DB, accountID snowflake.ID, from time.Time, filter domain.Filter) (sums, error) {
	if from.IsZero() {
		return sums{}, nil
	}

	query := `SELECT COALESCE(SUM(l.debit), 0) AS debits, COALESCE(SUM(l.credit), 0) AS credits
		 FROM journal_lines l
		 JOIN journal_entries e ON e.id = l.journal_entry_id
		 WHERE l.account_id = ? AND e.date < ?`
	args := []any{accountID, from}
	query, args = applyEntryFilter(query, args, filter)

	var row struct {
		Debits  int64 `gorm:"column:debits"`
		Credits int64 `gorm:"column:credits"`
	}
	if err := tx.WithContext(ctx).Raw(query, args...).Scan(&row).Error; err != nil {
		return sums{}, err
	}
	return sums{debits: row.Debits, credits: row.Credits}, nil
}

func (s *Service) ledgerRows(ctx context.Context, tx *gorm.DB, req domain.AccountLedgerRequest) ([]domain.LedgerRow, error) {
	query := `SELECT e.id AS entry_id, e.entry_number, e.voucher_number, e.date,
		        e.description AS entry_description,
		        l.id AS line_id, l.debit, l.credit,
		        l.description AS line_description, l.position
		 FROM journal_lines l
		 JOIN journal_entries e ON e.id = l.journal_entry_id
		 WHERE l.account_id = ?`
	args := []any{req.AccountID}

	if !req.From.IsZero() {
		query += ` AND e.date >= ?`
		args = append(args, req.From)
	}
	if !req.To.IsZero() {
		query += ` AND e.date <= ?`
		args = append(args, req.To)
	}
	query, args = applyEntryFilter(query, args, req.Filter)
	query += ` ORDER BY e.date ASC, e.id ASC, l.position ASC`

	var rows []domain.LedgerRow
	if err := tx.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Service) AccountBalance(ctx context.Context, accountID snowflake.ID, asOf time.Time) (domain.AccountBalance, error) {
	var result domain.AccountBalance

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		account, err := s.accounts.FindByID(ctx, tx, accountID)
		if err != nil {
			return err
		}
		if account == nil {
			return accountdomain.ErrNotFound
		}

		query := `SELECT COALESCE(SUM(l.debit), 0) AS debits, COALESCE(SUM(l.credit), 0) AS credits
			 FROM journal_lines l
			 JOIN journal_entries e ON e.id = l.journal_entry_id
			 WHERE l.account_id = ?`
		args := []any{accountID}
		if !asOf.IsZero() {
			query += ` AND e.date <= ?`
			args = append(args, asOf)
		}

		var row struct {
			Debits  int64 `gorm:"column:debits"`
			Credits int64 `gorm:"column:credits"`
		}
		if err := tx.WithContext(ctx).Raw(query, args...).Scan(&row).Error; err != nil {
			return err
		}

		result = domain.AccountBalance{
			AccountID:  account.ID,
			Code:       account.Code,
			Name:       account.Name,
			Type:       account.Type,
			CashFlow:   account.CashFlow,
			IsPostable: account.IsPostable,
			Debits:     row.Debits,
			Credits:    row.Credits,
			Balance:    signed(account.Type, row.Debits, row.Credits),
		}
		return nil
	})
	if err != nil {
		return domain.AccountBalance{}, err
	}
	return result, nil
}

func (s *Service) BalancesAsOf(ctx context.Context, asOf time.Time, filter domain.Filter) ([]domain.AccountBalance, error) {
	return s.balances(ctx, time.Time{}, asOf, filter)
}

func (s *Service) BalancesBetween(ctx context.Context, from, to time.Time, filter domain.Filter) ([]domain.AccountBalance, error) {
	if !to.IsZero() && !from.IsZero() && to.Before(from) {
		return nil, domain.ErrInvalidRange
	}
	return s.balances(ctx, from, to, filter)
}

// balances aggregates per-account activity. The join is nested so date and
// dimension filters drop lines without dropping zero-activity accounts.
func (s *Service) balances(ctx context.Context, from, to time.Time, filter domain.Filter) ([]domain.AccountBalance, error) {
	inner := `SELECT l.account_id, l.debit, l.credit
		 FROM journal_lines l
		 JOIN journal_entries e ON e.id = l.journal_entry_id
		 WHERE 1 = 1`
	var args []any
	if !from.IsZero() {
		inner += ` AND e.date >= ?`
		args = append(args, from)
	}
	if !to.IsZero() {
		inner += ` AND e.date <= ?`
		args = append(args, to)
	}
	inner, args = applyEntryFilter(inner, args, filter)

	query := `SELECT a.id AS account_id, a.code, a.name, a.type,
		        a.cash_flow_category AS cash_flow, a.is_postable,
		        COALESCE(SUM(j.debit), 0) AS debits, COALESCE(SUM(j.credit), 0) AS credits
		 FROM accounts a
		 LEFT JOIN (` + inner + `) j ON j.account_id = a.id
		 WHERE a.disabled = ?
		 GROUP BY a.id, a.code, a.name, a.type, a.cash_flow_category, a.is_postable
		 ORDER BY a.code ASC`
	args = append(args, false)

	var rows []domain.AccountBalance
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.WithContext(ctx).Raw(query, args...).Scan(&rows).Error
	})
	if err != nil {
		return nil, err
	}

	for i := range rows {
		rows[i].Balance = signed(rows[i].Type, rows[i].Debits, rows[i].Credits)
	}
	return rows, nil
}

func (s *Service) CompanyLedger(ctx context.Context, req domain.CompanyLedgerRequest) ([]domain.EntryWithLines, error) {
	if !req.To.IsZero() && !req.From.IsZero() && req.To.Before(req.From) {
		return nil, domain.ErrInvalidRange
	}

	var out []domain.EntryWithLines

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := `SELECT * FROM journal_entries WHERE 1 = 1`
		var args []any
		if !req.From.IsZero() {
			query += ` AND date >= ?`
			args = append(args, req.From)
		}
		if !req.To.IsZero() {
			query += ` AND date <= ?`
			args = append(args, req.To)
		}
		if req.PropertyID != nil {
			query += ` AND property_id = ?`
			args = append(args, *req.PropertyID)
		}
		if req.DealID != nil {
			query += ` AND deal_id = ?`
			args = append(args, *req.DealID)
		}
		query += ` ORDER BY date ASC, id ASC`

		var entries []journaldomain.JournalEntry
		if err := tx.WithContext(ctx).Raw(query, args...).Scan(&entries).Error; err != nil {
			return err
		}

		out = make([]domain.EntryWithLines, 0, len(entries))
		for _, entry := range entries {
			var lines []journaldomain.JournalLine
			err := tx.WithContext(ctx).Raw(
				`SELECT * FROM journal_lines WHERE journal_entry_id = ? ORDER BY position ASC`,
				entry.ID,
			).Scan(&lines).Error
			if err != nil {
				return err
			}
			out = append(out, domain.EntryWithLines{Entry: entry, Lines: lines})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// applyEntryFilter appends property and deal predicates against the joined
// entries table.
func applyEntryFilter(query string, args []any, filter domain.Filter) (string, []any) {
	if filter.PropertyID != nil {
		query += ` AND e.property_id = ?`
		args = append(args, *filter.PropertyID)
	}
	if filter.DealID != nil {
		query += ` AND e.deal_id = ?`
		args = append(args, *filter.DealID)
	}
	return query, args
}

// signed folds raw debit/credit sums into one figure on the account's normal
// side.
func signed(accType accountdomain.AccountType, debits, credits int64) int64 {
	if accType.DebitNormal() {
		return debits - credits
	}
	return credits - debits
}

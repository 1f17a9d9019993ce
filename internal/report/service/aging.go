package service

import (
	"context"
	"time"

	"github.com/GymAurCode/rems-ledger/internal/report/domain"
)

type agingRow struct {
	Date   time.Time `gorm:"column:date"`
	Debit  int64     `gorm:"column:debit"`
	Credit int64     `gorm:"column:credit"`
}

// Aging buckets outstanding control-account balances by the age of the
// underlying postings. Which codes count as receivable or payable controls
// comes from the accounting policy.
func (s *Service) Aging(ctx context.Context, asOf time.Time, side domain.AgingSide) (domain.Aging, error) {
	policy := s.policy.Get()

	codes := policy.ReceivableAccountCodes
	if side == domain.AgingPayable {
		codes = policy.PayableAccountCodes
	}

	report := domain.Aging{AsOf: asOf, Side: side}
	for _, bucket := range policy.AgingBuckets {
		report.Buckets = append(report.Buckets, domain.AgingBucketTotal{
			Label:   bucket.Label,
			MinDays: bucket.MinDays,
			MaxDays: bucket.MaxDays,
		})
	}
	if len(codes) == 0 {
		return report, nil
	}

	var rows []agingRow
	err := s.db.WithContext(ctx).Raw(
		`SELECT e.date, l.debit, l.credit
		 FROM journal_lines l
		 JOIN journal_entries e ON e.id = l.journal_entry_id
		 JOIN accounts a ON a.id = l.account_id
		 WHERE a.code IN (?) AND e.date <= ?`,
		codes, asOf,
	).Scan(&rows).Error
	if err != nil {
		return domain.Aging{}, err
	}

	for _, row := range rows {
		amount := row.Debit - row.Credit
		if side == domain.AgingPayable {
			amount = row.Credit - row.Debit
		}

		days := int(asOf.Sub(row.Date).Hours() / 24)
		if days < 0 {
			days = 0
		}
		for i := range report.Buckets {
			b := &report.Buckets[i]
			if days < b.MinDays {
				continue
			}
			if b.MaxDays != nil && days > *b.MaxDays {
				continue
			}
			b.Total += amount
			break
		}
		report.Total += amount
	}

	s.metrics.RecordReport(ctx, "aging")
	return report, nil
}

package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"

	accountdomain "github.com/GymAurCode/rems-ledger/internal/account/domain"
	ledgerdomain "github.com/GymAurCode/rems-ledger/internal/ledger/domain"
	"github.com/GymAurCode/rems-ledger/internal/report/domain"
)

// PropertyProfitability computes revenue, expenses and margin per property
// attribution tag within the window. Entries with no property tag are not
// part of this report.
func (s *Service) PropertyProfitability(ctx context.Context, from, to time.Time) (domain.PropertyProfitability, error) {
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return domain.PropertyProfitability{}, domain.ErrInvalidRange
	}

	query := `SELECT DISTINCT property_id FROM journal_entries WHERE property_id IS NOT NULL`
	var args []any
	if !from.IsZero() {
		query += ` AND date >= ?`
		args = append(args, from)
	}
	if !to.IsZero() {
		query += ` AND date <= ?`
		args = append(args, to)
	}
	query += ` ORDER BY property_id ASC`

	var tagged []struct {
		PropertyID snowflake.ID `gorm:"column:property_id"`
	}
	if err := s.db.WithContext(ctx).Raw(query, args...).Scan(&tagged).Error; err != nil {
		return domain.PropertyProfitability{}, err
	}

	report := domain.PropertyProfitability{From: from, To: to}
	for _, row := range tagged {
		propertyID := row.PropertyID
		balances, err := s.ledger.BalancesBetween(ctx, from, to, ledgerdomain.Filter{PropertyID: &propertyID})
		if err != nil {
			return domain.PropertyProfitability{}, err
		}

		var revenue, expenses int64
		for _, b := range balances {
			switch b.Type {
			case accountdomain.TypeRevenue:
				revenue += b.Balance
			case accountdomain.TypeExpense:
				expenses += b.Balance
			}
		}
		netProfit := revenue - expenses
		report.Properties = append(report.Properties, domain.PropertyResult{
			PropertyID: propertyID,
			Revenue:    revenue,
			Expenses:   expenses,
			NetProfit:  netProfit,
			Margin:     margin(revenue, netProfit),
		})
	}

	s.metrics.RecordReport(ctx, "property_profitability")
	return report, nil
}

package service

import (
	"context"
	"time"

	accountdomain "github.com/GymAurCode/rems-ledger/internal/account/domain"
	ledgerdomain "github.com/GymAurCode/rems-ledger/internal/ledger/domain"
	"github.com/GymAurCode/rems-ledger/internal/report/domain"
)

func (s *Service) ProfitLoss(ctx context.Context, from, to time.Time, filter ledgerdomain.Filter) (domain.ProfitLoss, error) {
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return domain.ProfitLoss{}, domain.ErrInvalidRange
	}

	balances, err := s.ledger.BalancesBetween(ctx, from, to, filter)
	if err != nil {
		return domain.ProfitLoss{}, err
	}

	report := domain.ProfitLoss{
		From:     from,
		To:       to,
		Revenue:  domain.Section{Label: "Revenue"},
		Expenses: domain.Section{Label: "Expenses"},
	}
	for _, b := range balances {
		if !b.IsPostable {
			continue
		}
		switch b.Type {
		case accountdomain.TypeRevenue:
			report.Revenue.Rows = append(report.Revenue.Rows, balanceRow(b))
		case accountdomain.TypeExpense:
			report.Expenses.Rows = append(report.Expenses.Rows, balanceRow(b))
		}
	}

	sectionTotal(&report.Revenue)
	sectionTotal(&report.Expenses)
	report.NetProfit = report.Revenue.Total - report.Expenses.Total
	report.Margin = margin(report.Revenue.Total, report.NetProfit)

	s.metrics.RecordReport(ctx, "profit_loss")
	return report, nil
}

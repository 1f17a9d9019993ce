package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	accountdomain "github.com/GymAurCode/rems-ledger/internal/account/domain"
	ledgerdomain "github.com/GymAurCode/rems-ledger/internal/ledger/domain"
	"github.com/GymAurCode/rems-ledger/internal/report/domain"
)

func (s *Service) BalanceSheet(ctx context.Context, asOf time.Time) (domain.BalanceSheet, error) {
	balances, err := s.ledger.BalancesAsOf(ctx, asOf, ledgerdomain.Filter{})
	if err != nil {
		return domain.BalanceSheet{}, err
	}

	policy := s.policy.Get()
	report := domain.BalanceSheet{
		AsOf:               asOf,
		CurrentAssets:      domain.Section{Label: "Current Assets"},
		FixedAssets:        domain.Section{Label: "Fixed Assets"},
		CurrentLiabilities: domain.Section{Label: "Current Liabilities"},
		Equity:             domain.Section{Label: "Equity"},
	}

	var revenueTotal, expenseTotal int64
	for _, b := range balances {
		if !b.IsPostable {
			continue
		}
		switch b.Type {
		case accountdomain.TypeAsset:
			if strings.HasPrefix(b.Code, policy.FixedAssetCodePrefix) {
				report.FixedAssets.Rows = append(report.FixedAssets.Rows, balanceRow(b))
			} else {
				report.CurrentAssets.Rows = append(report.CurrentAssets.Rows, balanceRow(b))
			}
		case accountdomain.TypeLiability:
			report.CurrentLiabilities.Rows = append(report.CurrentLiabilities.Rows, balanceRow(b))
		case accountdomain.TypeEquity:
			report.Equity.Rows = append(report.Equity.Rows, balanceRow(b))
		case accountdomain.TypeRevenue:
			revenueTotal += b.Balance
		case accountdomain.TypeExpense:
			expenseTotal += b.Balance
		}
	}

	// Revenue and expense accounts are never closed out in this core, so the
	// cumulative result to date rolls into equity as one synthetic row.
	profit := revenueTotal - expenseTotal
	report.Equity.Rows = append(report.Equity.Rows, domain.Row{
		Name:   "Net Profit",
		Amount: profit,
	})

	sectionTotal(&report.CurrentAssets)
	sectionTotal(&report.FixedAssets)
	sectionTotal(&report.CurrentLiabilities)
	sectionTotal(&report.Equity)

	report.TotalAssets = report.CurrentAssets.Total + report.FixedAssets.Total
	report.TotalLiabilities = report.CurrentLiabilities.Total
	report.TotalEquity = report.Equity.Total

	difference := report.TotalAssets - (report.TotalLiabilities + report.TotalEquity)
	report.Integrity = domain.Integrity{Balanced: difference == 0, Difference: difference}
	if difference != 0 {
		report.Integrity.Message = fmt.Sprintf("assets differ from liabilities plus equity by %d minor units", difference)
		s.reportIntegrityFailure(ctx, "balance_sheet", difference)
	}

	s.metrics.RecordReport(ctx, "balance_sheet")
	return report, nil
}

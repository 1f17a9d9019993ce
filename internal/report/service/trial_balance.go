package service

import (
	"context"
	"fmt"
	"time"

	ledgerdomain "github.com/GymAurCode/rems-ledger/internal/ledger/domain"
	"github.com/GymAurCode/rems-ledger/internal/report/domain"
)

func (s *Service) TrialBalance(ctx context.Context, asOf time.Time) (domain.TrialBalance, error) {
	balances, err := s.ledger.BalancesAsOf(ctx, asOf, ledgerdomain.Filter{})
	if err != nil {
		return domain.TrialBalance{}, err
	}

	report := domain.TrialBalance{AsOf: asOf}
	for _, b := range balances {
		if !b.IsPostable {
			continue
		}
		report.Rows = append(report.Rows, domain.TrialBalanceRow{
			AccountID: b.AccountID,
			Code:      b.Code,
			Name:      b.Name,
			Type:      b.Type,
			Debits:    b.Debits,
			Credits:   b.Credits,
			Balance:   b.Balance,
		})
		report.TotalDebits += b.Debits
		report.TotalCredits += b.Credits
	}

	difference := report.TotalDebits - report.TotalCredits
	report.Integrity = domain.Integrity{Balanced: difference == 0, Difference: difference}
	if difference != 0 {
		report.Integrity.Message = fmt.Sprintf("debits and credits differ by %d minor units", difference)
		s.reportIntegrityFailure(ctx, "trial_balance", difference)
	}

	s.metrics.RecordReport(ctx, "trial_balance")
	return report, nil
}

package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"

	accountdomain "github.com/GymAurCode/rems-ledger/internal/account/domain"
	ledgerdomain "github.com/GymAurCode/rems-ledger/internal/ledger/domain"
	"github.com/GymAurCode/rems-ledger/internal/report/domain"
)

type escrowCandidate struct {
	ID          snowflake.ID `gorm:"column:id"`
	EntryNumber string       `gorm:"column:entry_number"`
	Date        time.Time    `gorm:"column:date"`
	Purpose     string       `gorm:"column:purpose"`
	Total       int64        `gorm:"column:total"`
}

// Escrow checks that client funds held in trust are fully covered by escrow
// bank balances, and lists every historical entry that crossed the escrow
// boundary without an allowed purpose.
func (s *Service) Escrow(ctx context.Context, asOf time.Time) (domain.Escrow, error) {
	balances, err := s.ledger.BalancesAsOf(ctx, asOf, ledgerdomain.Filter{})
	if err != nil {
		return domain.Escrow{}, err
	}

	report := domain.Escrow{
		AsOf:              asOf,
		TrustAssets:       domain.Section{Label: "Trust Assets"},
		ClientLiabilities: domain.Section{Label: "Client Liabilities"},
	}
	for _, b := range balances {
		if b.CashFlow != accountdomain.CashFlowEscrow || !b.IsPostable {
			continue
		}
		switch b.Type {
		case accountdomain.TypeAsset:
			report.TrustAssets.Rows = append(report.TrustAssets.Rows, balanceRow(b))
		case accountdomain.TypeLiability:
			report.ClientLiabilities.Rows = append(report.ClientLiabilities.Rows, balanceRow(b))
		}
	}
	sectionTotal(&report.TrustAssets)
	sectionTotal(&report.ClientLiabilities)
	report.TotalTrustAssets = report.TrustAssets.Total
	report.TotalClientLiabilities = report.ClientLiabilities.Total

	violations, err := s.escrowViolations(ctx, asOf)
	if err != nil {
		return domain.Escrow{}, err
	}
	report.Violations = violations

	difference := report.TotalTrustAssets - report.TotalClientLiabilities
	report.Integrity = domain.Integrity{Balanced: difference == 0, Difference: difference}
	if difference != 0 {
		report.Integrity.Message = fmt.Sprintf("trust assets differ from client liabilities by %d minor units", difference)
		s.reportIntegrityFailure(ctx, "escrow", difference)
	}

	s.metrics.RecordReport(ctx, "escrow")
	return report, nil
}

// escrowViolations finds entries mixing escrow and non-escrow accounts. The
// purpose allowlist is applied afterwards so a policy change reclassifies
// history without a rescan job.
func (s *Service) escrowViolations(ctx context.Context, asOf time.Time) ([]domain.EscrowViolation, error) {
	var candidates []escrowCandidate
	err := s.db.WithContext(ctx).Raw(
		`SELECT e.id, e.entry_number, e.date, e.purpose, SUM(l.debit) AS total
		 FROM journal_entries e
		 JOIN journal_lines l ON l.journal_entry_id = e.id
		 JOIN accounts a ON a.id = l.account_id
		 WHERE e.date <= ?
		 GROUP BY e.id, e.entry_number, e.date, e.purpose
		 HAVING SUM(CASE WHEN a.cash_flow_category = ? THEN 1 ELSE 0 END) > 0
		    AND SUM(CASE WHEN a.cash_flow_category <> ? THEN 1 ELSE 0 END) > 0`,
		asOf, accountdomain.CashFlowEscrow, accountdomain.CashFlowEscrow,
	).Scan(&candidates).Error
	if err != nil {
		return nil, err
	}

	allowed := make(map[string]struct{})
	for _, purpose := range s.policy.Get().EscrowAllowedPurposes {
		allowed[purpose] = struct{}{}
	}

	var out []domain.EscrowViolation
	for _, c := range candidates {
		if _, ok := allowed[c.Purpose]; ok {
			continue
		}
		out = append(out, domain.EscrowViolation{
			EntryID:     c.ID,
			EntryNumber: c.EntryNumber,
			Date:        c.Date,
			Purpose:     c.Purpose,
			Amount:      c.Total,
		})
	}
	return out, nil
}

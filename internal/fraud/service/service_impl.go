package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/GymAurCode/rems-ledger/internal/clock"
	"github.com/GymAurCode/rems-ledger/internal/config"
	"github.com/GymAurCode/rems-ledger/internal/fraud/domain"
	"github.com/GymAurCode/rems-ledger/internal/observability/metrics"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Clock   clock.Clock
	Policy  *config.AccountingPolicyHolder
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	clock   clock.Clock
	policy  *config.AccountingPolicyHolder
	metrics *metrics.Metrics
}

func New(p Params) domain.Scanner {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("fraud.scanner"),
		clock:   p.Clock,
		policy:  p.Policy,
		metrics: p.Metrics,
	}
}

type scannedEntry struct {
	ID          snowflake.ID `gorm:"column:id"`
	EntryNumber string       `gorm:"column:entry_number"`
	Date        time.Time    `gorm:"column:date"`
	CreatedAt   time.Time    `gorm:"column:created_at"`
	Total       int64        `gorm:"column:total"`
}

type scannedLine struct {
	EntryID     snowflake.ID `gorm:"column:entry_id"`
	EntryNumber string       `gorm:"column:entry_number"`
	Date        time.Time    `gorm:"column:date"`
	AccountID   snowflake.ID `gorm:"column:account_id"`
	Amount      int64        `gorm:"column:amount"`
}

func (s *Service) Scan(ctx context.Context, req domain.ScanRequest) ([]domain.Flag, error) {
	to := req.To
	if to.IsZero() {
		to = s.clock.Now()
	}
	policy := s.policy.Get().Fraud

	entries, err := s.loadEntries(ctx, req.From, to)
	if err != nil {
		return nil, err
	}
	lines, err := s.loadLines(ctx, req.From, to)
	if err != nil {
		return nil, err
	}

	var flags []domain.Flag
	for _, entry := range entries {
		flags = append(flags, s.checkRoundAmount(policy, entry)...)
		flags = append(flags, s.checkBackdated(policy, entry)...)
	}
	flags = append(flags, s.checkLargeAmounts(policy, lines)...)
	flags = append(flags, s.checkDuplicates(policy, lines)...)

	for _, flag := range flags {
		s.metrics.RecordFraudFlag(ctx, string(flag.Type))
	}
	s.log.Info("fraud scan completed",
		zap.Int("entries", len(entries)),
		zap.Int("flags", len(flags)),
	)
	return flags, nil
}

func (s *Service) loadEntries(ctx context.Context, from, to time.Time) ([]scannedEntry, error) {
	query := `SELECT e.id, e.entry_number, e.date, e.created_at, COALESCE(SUM(l.debit), 0) AS total
		 FROM journal_entries e
		 JOIN journal_lines l ON l.journal_entry_id = e.id
		 WHERE e.date <= ?`
	args := []any{to}
	if !from.IsZero() {
		query += ` AND e.date >= ?`
		args = append(args, from)
	}
	query += ` GROUP BY e.id, e.entry_number, e.date, e.created_at ORDER BY e.date ASC`

	var entries []scannedEntry
	if err := s.db.WithContext(ctx).Raw(query, args...).Scan(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *Service) loadLines(ctx context.Context, from, to time.Time) ([]scannedLine, error) {
	query := `SELECT e.id AS entry_id, e.entry_number, e.date, l.account_id,
		        (l.debit + l.credit) AS amount
		 FROM journal_lines l
		 JOIN journal_entries e ON e.id = l.journal_entry_id
		 WHERE e.date <= ?`
	args := []any{to}
	if !from.IsZero() {
		query += ` AND e.date >= ?`
		args = append(args, from)
	}
	query += ` ORDER BY l.account_id ASC, amount ASC, e.date ASC`

	var lines []scannedLine
	if err := s.db.WithContext(ctx).Raw(query, args...).Scan(&lines).Error; err != nil {
		return nil, err
	}
	return lines, nil
}

func (s *Service) checkRoundAmount(policy config.FraudPolicy, entry scannedEntry) []domain.Flag {
	if entry.Total < policy.RoundAmountThreshold {
		return nil
	}
	if entry.Total%policy.RoundAmountUnit != 0 {
		return nil
	}
	return []domain.Flag{{
		Type:        domain.FlagRoundAmount,
		Severity:    domain.SeverityMedium,
		Description: fmt.Sprintf("suspiciously round amount of %d minor units", entry.Total),
		Date:        entry.Date,
		Amount:      entry.Total,
		EntryNumber: entry.EntryNumber,
	}}
}

func (s *Service) checkBackdated(policy config.FraudPolicy, entry scannedEntry) []domain.Flag {
	lag := entry.CreatedAt.Sub(entry.Date)
	if lag <= time.Duration(policy.BackdateDays)*24*time.Hour {
		return nil
	}
	return []domain.Flag{{
		Type:        domain.FlagBackdated,
		Severity:    domain.SeverityMedium,
		Description: fmt.Sprintf("posted %d days after its stated date", int(lag.Hours()/24)),
		Date:        entry.Date,
		Amount:      entry.Total,
		EntryNumber: entry.EntryNumber,
	}}
}

func (s *Service) checkLargeAmounts(policy config.FraudPolicy, lines []scannedLine) []domain.Flag {
	var flags []domain.Flag
	for _, line := range lines {
		if line.Amount < policy.LargeAmountThreshold {
			continue
		}
		flags = append(flags, domain.Flag{
			Type:        domain.FlagLargeAmount,
			Severity:    domain.SeverityHigh,
			Description: fmt.Sprintf("single line of %d minor units breaches the review threshold", line.Amount),
			Date:        line.Date,
			Amount:      line.Amount,
			EntryNumber: line.EntryNumber,
		})
	}
	return flags
}

// checkDuplicates flags repeated account+amount pairs landing within the
// configured window. Lines arrive sorted by account, amount, date, so one
// forward pass covers every pair.
func (s *Service) checkDuplicates(policy config.FraudPolicy, lines []scannedLine) []domain.Flag {
	window := time.Duration(policy.DuplicateWindowDays) * 24 * time.Hour
	var flags []domain.Flag

	for i := 1; i < len(lines); i++ {
		prev, cur := lines[i-1], lines[i]
		if prev.AccountID != cur.AccountID || prev.Amount != cur.Amount {
			continue
		}
		if prev.EntryID == cur.EntryID {
			continue
		}
		if cur.Date.Sub(prev.Date) > window {
			continue
		}
		flags = append(flags, domain.Flag{
			Type:        domain.FlagDuplicate,
			Severity:    domain.SeverityLow,
			Description: fmt.Sprintf("repeats %s on the same account within %d days", prev.EntryNumber, policy.DuplicateWindowDays),
			Date:        cur.Date,
			Amount:      cur.Amount,
			EntryNumber: cur.EntryNumber,
		})
	}
	return flags
}

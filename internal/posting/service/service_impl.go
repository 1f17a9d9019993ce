package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	accountdomain "github.com/GymAurCode/rems-ledger/internal/account/domain"
	"github.com/GymAurCode/rems-ledger/internal/clock"
	"github.com/GymAurCode/rems-ledger/internal/config"
	journaldomain "github.com/GymAurCode/rems-ledger/internal/journal/domain"
	"github.com/GymAurCode/rems-ledger/internal/observability/metrics"
	"github.com/GymAurCode/rems-ledger/internal/posting/domain"
	"github.com/GymAurCode/rems-ledger/internal/sequence"
	voucherdomain "github.com/GymAurCode/rems-ledger/internal/voucher/domain"
)

const (
	entrySequence = "journal_entry"
	entryPrefix   = "JE"

	postingLockTTL = 10 * time.Second
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Policy  *config.AccountingPolicyHolder
	Metrics *metrics.Metrics `optional:"true"`
	Locker  *Locker          `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	policy   *config.AccountingPolicyHolder
	metrics  *metrics.Metrics
	locker   *Locker
	repo     domain.Repository
	vouchers voucherdomain.Repository
	accounts accountdomain.Repository
}

func New(p Params, repo domain.Repository, vouchers voucherdomain.Repository, accounts accountdomain.Repository) domain.Engine {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("posting.engine"),
		genID:    p.GenID,
		clock:    p.Clock,
		policy:   p.Policy,
		metrics:  p.Metrics,
		locker:   p.Locker,
		repo:     repo,
		vouchers: vouchers,
		accounts: accounts,
	}
}

func (s *Service) Post(ctx context.Context, voucherID snowflake.ID) (domain.PostResult, error) {
	release, err := s.acquire(ctx, voucherID)
	if err != nil {
		return domain.PostResult{}, err
	}
	defer release()

	var result domain.PostResult

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		voucher, err := s.vouchers.FindByID(ctx, tx, voucherID)
		if err != nil {
			return err
		}
		if voucher == nil {
			return voucherdomain.ErrNotFound
		}

		// Replayed posts return the original entry untouched.
		if voucher.Status == voucherdomain.StatusPosted || voucher.Status == voucherdomain.StatusReversed {
			existing, err := s.repo.FindPostingByVoucher(ctx, tx, voucherID)
			if err != nil {
				return err
			}
			if existing == nil {
				return journaldomain.ErrEntryNotFound
			}
			return s.fillResult(ctx, tx, &result, existing, true, nil)
		}
		if voucher.Status != voucherdomain.StatusApproved {
			return domain.ErrVoucherNotApproved
		}

		voucher.Lines, err = s.vouchers.FindLines(ctx, tx, voucherID)
		if err != nil {
			return err
		}
		accounts, err := s.loadAccounts(ctx, tx, voucher.Lines)
		if err != nil {
			return err
		}

		findings := CheckVoucher(s.policy.Get(), voucher, accounts)
		if findings.HasErrors() {
			s.recordRejections(ctx, findings)
			return findings
		}

		seq, err := sequence.Next(ctx, tx, entrySequence)
		if err != nil {
			return err
		}
		entry := journaldomain.JournalEntry{
			ID:            s.genID.Generate(),
			EntryNumber:   sequence.Format(entryPrefix, seq),
			VoucherID:     voucher.ID,
			VoucherNumber: voucher.Number,
			Date:          voucher.Date,
			Description:   voucher.Description,
			Purpose:       voucher.Purpose,
			PropertyID:    voucher.PropertyID,
			DealID:        voucher.DealID,
			CreatedAt:     s.clock.Now().UTC(),
		}

		inserted, err := s.repo.InsertEntry(ctx, tx, &entry)
		if err != nil {
			return err
		}
		if !inserted {
			// A concurrent transaction won the unique index race.
			existing, err := s.repo.FindPostingByVoucher(ctx, tx, voucherID)
			if err != nil {
				return err
			}
			if existing == nil {
				return domain.ErrPostingConflict
			}
			return s.fillResult(ctx, tx, &result, existing, true, nil)
		}

		lines := s.buildEntryLines(&entry, voucher.Lines)
		if err := s.repo.InsertLines(ctx, tx, lines); err != nil {
			return err
		}

		moved, err := s.vouchers.UpdateStatus(ctx, tx, voucherID, voucherdomain.StatusApproved, voucherdomain.StatusPosted)
		if err != nil {
			return err
		}
		if !moved {
			return domain.ErrPostingConflict
		}

		result = domain.PostResult{Entry: entry, Lines: lines, Warnings: findings.Warnings()}
		return nil
	})
	if err != nil {
		return domain.PostResult{}, err
	}

	if !result.AlreadyPosted {
		s.metrics.RecordPosting(ctx, s.voucherTypeOf(ctx, voucherID))
		s.log.Info("voucher posted",
			zap.String("entry_number", result.Entry.EntryNumber),
			zap.String("voucher_number", result.Entry.VoucherNumber),
			zap.Int("warnings", len(result.Warnings)),
		)
	}
	return result, nil
}

func (s *Service) Validate(ctx context.Context, voucherID snowflake.ID) (domain.Violations, error) {
	voucher, err := s.vouchers.FindByID(ctx, s.db, voucherID)
	if err != nil {
		return nil, err
	}
	if voucher == nil {
		return nil, voucherdomain.ErrNotFound
	}
	voucher.Lines, err = s.vouchers.FindLines(ctx, s.db, voucherID)
	if err != nil {
		return nil, err
	}
	accounts, err := s.loadAccounts(ctx, s.db, voucher.Lines)
	if err != nil {
		return nil, err
	}
	return CheckVoucher(s.policy.Get(), voucher, accounts), nil
}

func (s *Service) Reverse(ctx context.Context, voucherID snowflake.ID, description string) (domain.PostResult, error) {
	release, err := s.acquire(ctx, voucherID)
	if err != nil {
		return domain.PostResult{}, err
	}
	defer release()

	var result domain.PostResult

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		voucher, err := s.vouchers.FindByID(ctx, tx, voucherID)
		if err != nil {
			return err
		}
		if voucher == nil {
			return voucherdomain.ErrNotFound
		}
		if voucher.Status != voucherdomain.StatusPosted && voucher.Status != voucherdomain.StatusReversed {
			return domain.ErrVoucherNotPosted
		}

		original, err := s.repo.FindPostingByVoucher(ctx, tx, voucherID)
		if err != nil {
			return err
		}
		if original == nil {
			return journaldomain.ErrEntryNotFound
		}

		// Replayed reversals return the existing offsetting entry.
		existing, err := s.repo.FindReversalOf(ctx, tx, original.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return s.fillResult(ctx, tx, &result, existing, true, nil)
		}

		originalLines, err := s.repo.FindLines(ctx, tx, original.ID)
		if err != nil {
			return err
		}

		seq, err := sequence.Next(ctx, tx, entrySequence)
		if err != nil {
			return err
		}
		if description == "" {
			description = "reversal of " + original.EntryNumber
		}
		reversal := journaldomain.JournalEntry{
			ID:              s.genID.Generate(),
			EntryNumber:     sequence.Format(entryPrefix, seq),
			VoucherID:       voucher.ID,
			VoucherNumber:   voucher.Number,
			Date:            s.clock.Now().UTC(),
			Description:     description,
			Purpose:         original.Purpose,
			PropertyID:      original.PropertyID,
			DealID:          original.DealID,
			ReversesEntryID: &original.ID,
			CreatedAt:       s.clock.Now().UTC(),
		}
		if _, err := s.repo.InsertEntry(ctx, tx, &reversal); err != nil {
			return err
		}

		lines := journaldomain.Reversed(originalLines)
		for i := range lines {
			lines[i].ID = s.genID.Generate()
			lines[i].JournalEntryID = reversal.ID
			lines[i].CreatedAt = reversal.CreatedAt
		}
		if err := s.repo.InsertLines(ctx, tx, lines); err != nil {
			return err
		}

		if voucher.Status == voucherdomain.StatusPosted {
			moved, err := s.vouchers.UpdateStatus(ctx, tx, voucherID, voucherdomain.StatusPosted, voucherdomain.StatusReversed)
			if err != nil {
				return err
			}
			if !moved {
				return domain.ErrPostingConflict
			}
		}

		result = domain.PostResult{Entry: reversal, Lines: lines}
		return nil
	})
	if err != nil {
		return domain.PostResult{}, err
	}

	if !result.AlreadyPosted {
		s.metrics.RecordReversal(ctx, s.voucherTypeOf(ctx, voucherID))
		s.log.Info("voucher reversed",
			zap.String("entry_number", result.Entry.EntryNumber),
			zap.String("voucher_number", result.Entry.VoucherNumber),
		)
	}
	return result, nil
}

// acquire takes the cross-process posting lock when a locker is configured.
// Without one the unique index alone enforces at-most-once posting.
func (s *Service) acquire(ctx context.Context, voucherID snowflake.ID) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}
	key := "rems:posting:" + voucherID.String()
	token, ok, err := s.locker.TryLock(ctx, key, postingLockTTL)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrPostingConflict
	}
	return func() {
		if err := s.locker.Release(ctx, key, token); err != nil {
			s.log.Warn("posting lock release failed", zap.Error(err))
		}
	}, nil
}

func (s *Service) fillResult(ctx context.Context, tx *gorm.DB, result *domain.PostResult, entry *journaldomain.JournalEntry, replay bool, warnings []domain.Violation) error {
	lines, err := s.repo.FindLines(ctx, tx, entry.ID)
	if err != nil {
		return err
	}
	*result = domain.PostResult{
		Entry:         *entry,
		Lines:         lines,
		AlreadyPosted: replay,
		Warnings:      warnings,
	}
	return nil
}

func (s *Service) loadAccounts(ctx context.Context, tx *gorm.DB, lines []voucherdomain.VoucherLine) (map[snowflake.ID]accountdomain.Account, error) {
	out := make(map[snowflake.ID]accountdomain.Account, len(lines))
	for _, line := range lines {
		if _, ok := out[line.AccountID]; ok {
			continue
		}
		account, err := s.accounts.FindByID(ctx, tx, line.AccountID)
		if err != nil {
			return nil, err
		}
		if account != nil {
			out[line.AccountID] = *account
		}
	}
	return out, nil
}

func (s *Service) buildEntryLines(entry *journaldomain.JournalEntry, lines []voucherdomain.VoucherLine) []journaldomain.JournalLine {
	out := make([]journaldomain.JournalLine, 0, len(lines))
	for _, line := range lines {
		out = append(out, journaldomain.JournalLine{
			ID:             s.genID.Generate(),
			JournalEntryID: entry.ID,
			AccountID:      line.AccountID,
			Debit:          line.Debit,
			Credit:         line.Credit,
			Description:    line.Description,
			Position:       line.Position,
			CreatedAt:      entry.CreatedAt,
		})
	}
	return out
}

func (s *Service) voucherTypeOf(ctx context.Context, voucherID snowflake.ID) string {
	voucher, err := s.vouchers.FindByID(ctx, s.db, voucherID)
	if err != nil || voucher == nil {
		return ""
	}
	return string(voucher.Type)
}

func (s *Service) recordRejections(ctx context.Context, findings domain.Violations) {
	for _, finding := range findings {
		if finding.Severity == domain.SeverityError {
			s.metrics.RecordPostingRejection(ctx, finding.Code)
		}
	}
}

package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/GymAurCode/rems-ledger/internal/sequence"
	"github.com/GymAurCode/rems-ledger/internal/voucher/domain"
	"github.com/GymAurCode/rems-ledger/pkg/db/pagination"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
}

func New(p Params, repo domain.Repository) domain.Workflow {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("voucher.workflow"),
		genID: p.GenID,
		repo:  repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateVoucherRequest) (domain.Voucher, error) {
	if !domain.ValidVoucherType(req.Type) {
		return domain.Voucher{}, domain.ErrInvalidType
	}
	lines, err := buildLines(req.Lines)
	if err != nil {
		return domain.Voucher{}, err
	}

	date := req.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}

	now := time.Now().UTC()
	voucher := domain.Voucher{
		ID:          s.genID.Generate(),
		Type:        req.Type,
		Status:      domain.StatusDraft,
		Date:        date,
		Description: strings.TrimSpace(req.Description),
		Purpose:     strings.TrimSpace(req.Purpose),
		PropertyID:  req.PropertyID,
		DealID:      req.DealID,
		Metadata:    req.Metadata,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seq, err := sequence.Next(ctx, tx, "voucher_"+string(req.Type))
		if err != nil {
			return err
		}
		voucher.Number = sequence.Format(req.Type.NumberPrefix(), seq)

		if err := s.repo.Insert(ctx, tx, &voucher); err != nil {
			return err
		}
		voucher.Lines = s.assignLineIDs(voucher.ID, lines)
		return s.repo.InsertLines(ctx, tx, voucher.Lines)
	})
	if err != nil {
		return domain.Voucher{}, err
	}

	s.log.Info("voucher created",
		zap.String("number", voucher.Number),
		zap.String("type", string(voucher.Type)),
	)
	return voucher, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateVoucherRequest) (domain.Voucher, error) {
	var updated domain.Voucher

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		voucher, err := s.repo.FindByID(ctx, tx, req.ID)
		if err != nil {
			return err
		}
		if voucher == nil {
			return domain.ErrNotFound
		}
		if voucher.Status != domain.StatusDraft {
			return domain.ErrNotEditable
		}

		if req.Date != nil {
			voucher.Date = *req.Date
		}
		if req.Description != nil {
			voucher.Description = strings.TrimSpace(*req.Description)
		}
		if req.Purpose != nil {
			voucher.Purpose = strings.TrimSpace(*req.Purpose)
		}
		if req.PropertyID != nil {
			voucher.PropertyID = req.PropertyID
		}
		if req.DealID != nil {
			voucher.DealID = req.DealID
		}
		if req.Metadata != nil {
			voucher.Metadata = req.Metadata
		}
		voucher.UpdatedAt = time.Now().UTC()

		if err := s.repo.Update(ctx, tx, voucher); err != nil {
			return err
		}

		if req.Lines != nil {
			lines, err := buildLines(req.Lines)
			if err != nil {
				return err
			}
			voucher.Lines = s.assignLineIDs(voucher.ID, lines)
			if err := s.repo.ReplaceLines(ctx, tx, voucher.ID, voucher.Lines); err != nil {
				return err
			}
		} else {
			voucher.Lines, err = s.repo.FindLines(ctx, tx, voucher.ID)
			if err != nil {
				return err
			}
		}

		updated = *voucher
		return nil
	})
	if err != nil {
		return domain.Voucher{}, err
	}
	return updated, nil
}

func (s *Service) Submit(ctx context.Context, id snowflake.ID) (domain.Voucher, error) {
	return s.transition(ctx, id, domain.StatusSubmitted)
}

func (s *Service) Approve(ctx context.Context, id snowflake.ID) (domain.Voucher, error) {
	return s.transition(ctx, id, domain.StatusApproved)
}

func (s *Service) Reject(ctx context.Context, id snowflake.ID) (domain.Voucher, error) {
	return s.transition(ctx, id, domain.StatusRejected)
}

// transition applies a lifecycle move with a compare-and-set on the stored
// status, so two concurrent approvals resolve to exactly one winner.
func (s *Service) transition(ctx context.Context, id snowflake.ID, to domain.VoucherStatus) (domain.Voucher, error) {
	var result domain.Voucher

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		voucher, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if voucher == nil {
			return domain.ErrNotFound
		}
		if !domain.CanTransition(voucher.Status, to) {
			return domain.ErrInvalidTransition
		}

		moved, err := s.repo.UpdateStatus(ctx, tx, id, voucher.Status, to)
		if err != nil {
			return err
		}
		if !moved {
			return domain.ErrInvalidTransition
		}

		voucher.Status = to
		voucher.Lines, err = s.repo.FindLines(ctx, tx, id)
		if err != nil {
			return err
		}
		result = *voucher
		return nil
	})
	if err != nil {
		return domain.Voucher{}, err
	}

	s.log.Info("voucher transitioned",
		zap.String("number", result.Number),
		zap.String("status", string(to)),
	)
	return result, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (domain.Voucher, error) {
	voucher, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Voucher{}, err
	}
	if voucher == nil {
		return domain.Voucher{}, domain.ErrNotFound
	}
	voucher.Lines, err = s.repo.FindLines(ctx, s.db, id)
	if err != nil {
		return domain.Voucher{}, err
	}
	return *voucher, nil
}

func (s *Service) List(ctx context.Context, req domain.ListVouchersRequest) ([]domain.Voucher, *pagination.PageInfo, error) {
	rows, err := s.repo.List(ctx, s.db, req)
	if err != nil {
		return nil, nil, err
	}

	limit := req.PageSize
	if limit <= 0 {
		limit = 50
	}
	pageInfo, rows := pagination.BuildCursorPageInfo(rows, limit, func(v *domain.Voucher) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{ID: v.ID.String()})
		if err != nil {
			return ""
		}
		return token
	})

	vouchers := make([]domain.Voucher, 0, len(rows))
	for _, row := range rows {
		vouchers = append(vouchers, *row)
	}
	return vouchers, pageInfo, nil
}

func (s *Service) assignLineIDs(voucherID snowflake.ID, lines []domain.VoucherLine) []domain.VoucherLine {
	for i := range lines {
		lines[i].ID = s.genID.Generate()
		lines[i].VoucherID = voucherID
	}
	return lines
}

// buildLines validates the raw line shape. Balance and postability checks are
// deferred to the posting engine so drafts can be saved half-finished.
func buildLines(inputs []domain.LineInput) ([]domain.VoucherLine, error) {
	if len(inputs) == 0 {
		return nil, domain.ErrNoLines
	}
	lines := make([]domain.VoucherLine, 0, len(inputs))
	for i, in := range inputs {
		if in.AccountID == 0 {
			return nil, domain.ErrInvalidLine
		}
		if in.Debit < 0 || in.Credit < 0 {
			return nil, domain.ErrInvalidLine
		}
		if (in.Debit == 0) == (in.Credit == 0) {
			return nil, domain.ErrInvalidLine
		}
		lines = append(lines, domain.VoucherLine{
			AccountID:   in.AccountID,
			Debit:       in.Debit,
			Credit:      in.Credit,
			Description: strings.TrimSpace(in.Description),
			Position:    i,
		})
	}
	return lines, nil
}

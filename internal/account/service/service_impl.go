package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/GymAurCode/rems-ledger/internal/account/domain"
	"github.com/GymAurCode/rems-ledger/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
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

func New(p Params, repo domain.Repository) domain.Registry {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("account.registry"),
		genID: p.GenID,
		repo:  repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateAccountRequest) (domain.Account, error) {
	code := strings.TrimSpace(req.Code)
	if code == "" {
		return domain.Account{}, domain.ErrInvalidCode
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Account{}, domain.ErrInvalidName
	}
	if !domain.ValidType(req.Type) {
		return domain.Account{}, domain.ErrInvalidType
	}
	cashFlow := req.CashFlow
	if cashFlow == "" {
		cashFlow = domain.CashFlowNone
	}
	if !domain.ValidCashFlowCategory(cashFlow) {
		return domain.Account{}, domain.ErrInvalidCashFlow
	}

	postable := true
	if req.Postable != nil {
		postable = *req.Postable
	}

	now := time.Now().UTC()
	account := domain.Account{
		ID:         s.genID.Generate(),
		Code:       code,
		Name:       name,
		Type:       req.Type,
		ParentID:   req.ParentID,
		IsPostable: postable,
		CashFlow:   cashFlow,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if req.ParentID != nil {
			parent, err := s.repo.FindByID(ctx, tx, *req.ParentID)
			if err != nil {
				return err
			}
			if parent == nil {
				return domain.ErrNotFound
			}
			if parent.Type != req.Type {
				return domain.ErrInvalidHierarchy
			}
			// A parent gaining its first child stops being postable.
			if parent.IsPostable {
				parent.IsPostable = false
				parent.UpdatedAt = now
				if err := s.repo.Update(ctx, tx, parent); err != nil {
					return err
				}
			}
		}

		if err := s.repo.Insert(ctx, tx, &account); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return domain.ErrCodeExists
			}
			return err
		}
		return nil
	})
	if err != nil {
		return domain.Account{}, err
	}

	s.log.Info("account created",
		zap.String("code", account.Code),
		zap.String("type", string(account.Type)),
	)
	return account, nil
}

func (s *Service) Reclassify(ctx context.Context, req domain.ReclassifyRequest) (domain.Account, error) {
	var updated domain.Account

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		account, err := s.repo.FindByID(ctx, tx, req.ID)
		if err != nil {
			return err
		}
		if account == nil {
			return domain.ErrNotFound
		}

		now := time.Now().UTC()
		if name := strings.TrimSpace(req.Name); name != "" {
			account.Name = name
		}
		if req.CashFlow != "" {
			if !domain.ValidCashFlowCategory(req.CashFlow) {
				return domain.ErrInvalidCashFlow
			}
			account.CashFlow = req.CashFlow
		}

		if req.ParentID != nil && (account.ParentID == nil || *account.ParentID != *req.ParentID) {
			if err := s.validateNewParent(ctx, tx, account, *req.ParentID); err != nil {
				return err
			}
			parent, err := s.repo.FindByID(ctx, tx, *req.ParentID)
			if err != nil {
				return err
			}
			if parent.IsPostable {
				parent.IsPostable = false
				parent.UpdatedAt = now
				if err := s.repo.Update(ctx, tx, parent); err != nil {
					return err
				}
			}
			account.ParentID = req.ParentID
		}

		account.UpdatedAt = now
		if err := s.repo.Update(ctx, tx, account); err != nil {
			return err
		}
		updated = *account
		return nil
	})
	if err != nil {
		return domain.Account{}, err
	}

	return updated, nil
}

// validateNewParent enforces the hierarchy invariants before re-parenting:
// no cycles, no cross-type nesting, and no moving a summary account that
// already has postable children.
func (s *Service) validateNewParent(ctx context.Context, tx *gorm.DB, account *domain.Account, parentID snowflake.ID) error {
	if parentID == account.ID {
		return domain.ErrInvalidHierarchy
	}

	parent, err := s.repo.FindByID(ctx, tx, parentID)
	if err != nil {
		return err
	}
	if parent == nil {
		return domain.ErrNotFound
	}
	if parent.Type != account.Type {
		return domain.ErrInvalidHierarchy
	}

	children, err := s.repo.FindChildren(ctx, tx, account.ID)
	if err != nil {
		return err
	}
	for _, child := range children {
		if child.IsPostable {
			return domain.ErrInvalidHierarchy
		}
	}

	// Walk the prospective ancestor chain with a visited set. Finding the
	// account itself means the move would create a cycle.
	visited := map[snowflake.ID]struct{}{account.ID: {}}
	current := parent
	for {
		if _, seen := visited[current.ID]; seen {
			return domain.ErrInvalidHierarchy
		}
		visited[current.ID] = struct{}{}
		if current.ParentID == nil {
			return nil
		}
		next, err := s.repo.FindByID(ctx, tx, *current.ParentID)
		if err != nil {
			return err
		}
		if next == nil {
			return nil
		}
		current = next
	}
}

func (s *Service) Disable(ctx context.Context, id snowflake.ID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		account, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if account == nil {
			return domain.ErrNotFound
		}
		if account.Disabled {
			return nil
		}
		account.Disabled = true
		account.UpdatedAt = time.Now().UTC()
		return s.repo.Update(ctx, tx, account)
	})
}

func (s *Service) Delete(ctx context.Context, id snowflake.ID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		account, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if account == nil {
			return domain.ErrNotFound
		}

		referenced, err := s.repo.HasJournalLines(ctx, tx, id)
		if err != nil {
			return err
		}
		if referenced {
			return domain.ErrAccountReferenced
		}

		children, err := s.repo.FindChildren(ctx, tx, id)
		if err != nil {
			return err
		}
		if len(children) > 0 {
			return domain.ErrInvalidHierarchy
		}

		return s.repo.Delete(ctx, tx, id)
	})
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (domain.Account, error) {
	account, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Account{}, err
	}
	if account == nil {
		return domain.Account{}, domain.ErrNotFound
	}
	return *account, nil
}

func (s *Service) GetByCode(ctx context.Context, code string) (domain.Account, error) {
	account, err := s.repo.FindByCode(ctx, s.db, strings.TrimSpace(code))
	if err != nil {
		return domain.Account{}, err
	}
	if account == nil {
		return domain.Account{}, domain.ErrNotFound
	}
	return *account, nil
}

func (s *Service) List(ctx context.Context, req domain.ListAccountsRequest) ([]domain.Account, error) {
	return s.repo.List(ctx, s.db, req)
}

func (s *Service) ChildrenOf(ctx context.Context, id snowflake.ID) ([]domain.Account, error) {
	account, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, domain.ErrNotFound
	}
	return s.repo.FindChildren(ctx, s.db, id)
}

func (s *Service) ResolvePath(ctx context.Context, id snowflake.ID) ([]domain.Account, error) {
	account, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, domain.ErrNotFound
	}

	var path []domain.Account
	visited := map[snowflake.ID]struct{}{account.ID: {}}
	current := account
	for current.ParentID != nil {
		parent, err := s.repo.FindByID(ctx, s.db, *current.ParentID)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			break
		}
		if _, seen := visited[parent.ID]; seen {
			return nil, domain.ErrInvalidHierarchy
		}
		visited[parent.ID] = struct{}{}
		path = append([]domain.Account{*parent}, path...)
		current = parent
	}
	return path, nil
}

func (s *Service) IsPostable(ctx context.Context, id snowflake.ID) (bool, error) {
	account, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return false, err
	}
	if account == nil {
		return false, domain.ErrNotFound
	}
	return account.IsPostable && !account.Disabled, nil
}

package service

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/GymAurCode/rems-ledger/internal/config"
	ledgerdomain "github.com/GymAurCode/rems-ledger/internal/ledger/domain"
	"github.com/GymAurCode/rems-ledger/internal/observability/metrics"
	"github.com/GymAurCode/rems-ledger/internal/report/domain"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Policy  *config.AccountingPolicyHolder
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	policy  *config.AccountingPolicyHolder
	metrics *metrics.Metrics
	ledger  ledgerdomain.Reader
}

func New(p Params, ledger ledgerdomain.Reader) domain.Generator {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("report.generator"),
		policy:  p.Policy,
		metrics: p.Metrics,
		ledger:  ledger,
	}
}

// reportIntegrityFailure logs the mismatch as a system defect and counts it.
// The banner still goes out on the report so operators see the raw numbers.
func (s *Service) reportIntegrityFailure(ctx context.Context, report string, difference int64) {
	s.log.Error("report integrity failure",
		zap.String("report", report),
		zap.Int64("difference", difference),
	)
	s.metrics.RecordIntegrityFailure(ctx, report)
}

// margin computes net profit over revenue as a percentage. The zero-revenue
// boundary is explicit: no activity reads 0, pure loss reads -100.
func margin(revenue, netProfit int64) decimal.Decimal {
	if revenue == 0 {
		if netProfit == 0 {
			return decimal.Zero
		}
		return decimal.NewFromInt(-100)
	}
	return decimal.NewFromInt(netProfit).
		Div(decimal.NewFromInt(revenue)).
		Mul(decimal.NewFromInt(100)).
		Round(2)
}

func balanceRow(b ledgerdomain.AccountBalance) domain.Row {
	return domain.Row{
		AccountID: b.AccountID,
		Code:      b.Code,
		Name:      b.Name,
		Amount:    b.Balance,
	}
}

func sectionTotal(section *domain.Section) {
	var total int64
	for _, row := range section.Rows {
		total += row.Amount
	}
	section.Total = total
}

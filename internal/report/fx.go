package report

import (
	"go.uber.org/fx"

	"github.com/GymAurCode/rems-ledger/internal/report/service"
)

var Module = fx.Module("report.generator",
	fx.Provide(service.New),
)

package fraud

import (
	"go.uber.org/fx"

	"github.com/GymAurCode/rems-ledger/internal/fraud/service"
)

var Module = fx.Module("fraud.scanner",
	fx.Provide(service.New),
)

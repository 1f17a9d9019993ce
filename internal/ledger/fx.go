package ledger

import (
	"go.uber.org/fx"

	"github.com/GymAurCode/rems-ledger/internal/ledger/service"
)

var Module = fx.Module("ledger.reader",
	fx.Provide(service.New),
)

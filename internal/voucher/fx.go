package voucher

import (
	"go.uber.org/fx"

	"github.com/GymAurCode/rems-ledger/internal/voucher/repository"
	"github.com/GymAurCode/rems-ledger/internal/voucher/service"
)

var Module = fx.Module("voucher.workflow",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)

package account

import (
	"github.com/GymAurCode/rems-ledger/internal/account/repository"
	"github.com/GymAurCode/rems-ledger/internal/account/service"
	"go.uber.org/fx"
)

var Module = fx.Module("account.registry",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)

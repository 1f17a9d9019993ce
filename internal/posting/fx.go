package posting

import (
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/GymAurCode/rems-ledger/internal/config"
	"github.com/GymAurCode/rems-ledger/internal/posting/repository"
	"github.com/GymAurCode/rems-ledger/internal/posting/service"
)

// newRedisClient returns nil when no address is configured; the engine then
// runs without the cross-process posting lock.
func newRedisClient(cfg config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
}

var Module = fx.Module("posting.engine",
	fx.Provide(newRedisClient),
	fx.Provide(service.NewLocker),
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)

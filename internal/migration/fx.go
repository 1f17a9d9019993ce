package migration

import (
	"go.uber.org/fx"
	"gorm.io/gorm"

	accountdomain "github.com/GymAurCode/rems-ledger/internal/account/domain"
	"github.com/GymAurCode/rems-ledger/internal/config"
	journaldomain "github.com/GymAurCode/rems-ledger/internal/journal/domain"
	"github.com/GymAurCode/rems-ledger/internal/seed"
	"github.com/GymAurCode/rems-ledger/internal/sequence"
	voucherdomain "github.com/GymAurCode/rems-ledger/internal/voucher/domain"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// Embedded databases used for local development skip the versioned
			// migrations; the partial unique index on journal_entries is the one
			// piece AutoMigrate cannot express.
			if err := conn.AutoMigrate(
				&accountdomain.Account{},
				&sequence.Counter{},
				&voucherdomain.Voucher{},
				&voucherdomain.VoucherLine{},
				&journaldomain.JournalEntry{},
				&journaldomain.JournalLine{},
			); err != nil {
				return err
			}
			if err := conn.Exec(
				`CREATE UNIQUE INDEX IF NOT EXISTS ux_journal_entries_voucher
				 ON journal_entries (voucher_id) WHERE reverses_entry_id IS NULL`,
			).Error; err != nil {
				return err
			}
		}

		return seed.EnsureChartOfAccounts(conn)
	}),
)

package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/GymAurCode/rems-ledger/internal/clock"
	"github.com/GymAurCode/rems-ledger/internal/migration"
	"github.com/GymAurCode/rems-ledger/internal/observability"
	"github.com/GymAurCode/rems-ledger/internal/server"
	"github.com/GymAurCode/rems-ledger/pkg/db"
)

func main() {
	app := fx.New(
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}

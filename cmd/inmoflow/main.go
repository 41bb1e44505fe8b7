package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/inmoflow/inmoflow/internal/clock"
	"github.com/inmoflow/inmoflow/internal/config"
	"github.com/inmoflow/inmoflow/internal/logger"
	"github.com/inmoflow/inmoflow/internal/migration"
	"github.com/inmoflow/inmoflow/internal/observability/metrics"
	"github.com/inmoflow/inmoflow/internal/scheduler"
	"github.com/inmoflow/inmoflow/internal/server"
	"github.com/inmoflow/inmoflow/pkg/db"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		metrics.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		server.Module,
		scheduler.Module,
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

package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"memberd/internal/clock"
	"memberd/internal/config"
	"memberd/internal/logger"
	"memberd/internal/migration"
	"memberd/internal/scheduler"
	"memberd/internal/server"
	"memberd/pkg/db"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
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

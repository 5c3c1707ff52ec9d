// Package main is the entry point of the meal planner web application
package main

import (
	"flag"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/JosephChataignon/hAIckers-team/internal/infrastructure/container"
)

func main() {
	configPath := flag.String("config", "", "Configuration file path (defaults to ./config.yaml when present)")
	flag.Parse()

	app := fx.New(
		container.Module(*configPath),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
	)

	app.Run()
}

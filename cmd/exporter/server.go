package main

import (
	"github.com/quizgenius/backend/internal/deps"
	"go.uber.org/fx"

	_ "github.com/mattn/go-sqlite3"
	_ "github.com/quizgenius/backend/internal/deps/logger"
)

func main() {
	app := fx.New(
		fx.Provide(
			deps.ExporterConfig,
			TelemetryConfig,
			Database,
			PrometheusMetrics,
		),
		fx.Invoke(deps.OTelSDK),
		fx.Invoke(PrometheusHTTPHandler),
	)

	app.Run()
}

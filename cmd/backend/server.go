package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/quizgenius/backend/internal/deps"
	"github.com/quizgenius/backend/internal/workers"
	"go.uber.org/fx"

	_ "github.com/mattn/go-sqlite3"
	_ "github.com/quizgenius/backend/internal/deps/logger"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	app := fx.New(
		deps.FxCommonModule,
		deps.FxServiceModule,
		fx.Invoke(deps.OTelSDK),
		fx.Provide(
			Middlewares,
			GoogleHandler,
			AnnotateService(AuthService),
			AnnotateService(DocumentService),
			AnnotateService(TestService),
			AnnotateService(CatalogService),
			AnnotateService(AttemptService),
			HealthService,
			GqlgenHandler,
			fx.Annotate(
				GinEngine,
				fx.ParamTags(`group:"services"`),
			),
		),
		fx.Invoke(GinLifecycle),
		fx.Invoke(ExpiryLoop),
	)

	if err := app.Start(ctx); err != nil {
		slog.Error("error starting server", "error", err)
		os.Exit(1)
	}

	<-ctx.Done()
	slog.Info("Gracefully shutting down server (Ctrl+C again to force stop)...")
	cancel()

	if err := app.Stop(context.Background()); err != nil {
		slog.Error("error stopping server", "error", err)
	}
	workers.Global.Wait()

	slog.Info("Server stopped")
}

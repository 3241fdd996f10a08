package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"entgo.io/contrib/entgql"
	"github.com/99designs/gqlgen/graphql/handler"
	"github.com/99designs/gqlgen/graphql/handler/extension"
	"github.com/99designs/gqlgen/graphql/handler/lru"
	"github.com/99designs/gqlgen/graphql/handler/transport"
	"github.com/99designs/gqlgen/graphql/playground"
	"github.com/Depado/ginprom"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/quizgenius/backend/ent"
	"github.com/quizgenius/backend/graph"
	"github.com/quizgenius/backend/httpapi"
	attemptservice "github.com/quizgenius/backend/httpapi/attempts"
	authservice "github.com/quizgenius/backend/httpapi/auth"
	catalogservice "github.com/quizgenius/backend/httpapi/catalog"
	documentservice "github.com/quizgenius/backend/httpapi/documents"
	healthservice "github.com/quizgenius/backend/httpapi/health"
	testservice "github.com/quizgenius/backend/httpapi/tests"
	"github.com/quizgenius/backend/internal/attempt"
	"github.com/quizgenius/backend/internal/auth"
	"github.com/quizgenius/backend/internal/config"
	"github.com/quizgenius/backend/internal/documents"
	"github.com/quizgenius/backend/internal/gauth"
	"github.com/quizgenius/backend/internal/httputils"
	"github.com/quizgenius/backend/internal/quiz"
	"github.com/quizgenius/backend/internal/ranking"
	"github.com/quizgenius/backend/internal/statistics"
	"github.com/quizgenius/backend/internal/useraccount"
	"github.com/quizgenius/backend/internal/workers"
	"github.com/ravilushqa/otelgqlgen"
	"github.com/redis/rueidis"
	sloggin "github.com/samber/slog-gin"
	"github.com/vektah/gqlparser/v2/ast"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// expiryInterval is how often attempts past their deadline are finalized.
const expiryInterval = 30 * time.Second

// Middleware is a middleware that can be injected into gin.
type Middleware struct {
	Handler gin.HandlerFunc
}

// AnnotateService annotates a service function to be injected into gin.
func AnnotateService(f any) any {
	return fx.Annotate(
		f,
		fx.As(new(httpapi.Service)),
		fx.ResultTags(`group:"services"`),
	)
}

// Middlewares returns the gin middlewares in the order they run.
//
// Auth comes last so that the requests it rejects are still traced, logged and
// answered with CORS headers.
func Middlewares(telemetry config.TelemetryConfig, server config.ServerConfig, storage auth.Storage) []Middleware {
	return []Middleware{
		TracingMiddleware(telemetry),
		LoggingMiddleware(),
		CorsMiddleware(server),
		MachineMiddleware(),
		AuthMiddleware(storage),
	}
}

// TracingMiddleware creates the otelgin middleware.
func TracingMiddleware(cfg config.TelemetryConfig) Middleware {
	return Middleware{
		Handler: otelgin.Middleware(cfg.ServiceName),
	}
}

// LoggingMiddleware logs every request with slog.
func LoggingMiddleware() Middleware {
	return Middleware{
		Handler: sloggin.NewWithConfig(slog.Default(), sloggin.Config{
			DefaultLevel:     slog.LevelInfo,
			ClientErrorLevel: slog.LevelWarn,
			ServerErrorLevel: slog.LevelError,
			WithTraceID:      true,
			WithSpanID:       true,
		}),
	}
}

// CorsMiddleware creates a cors middleware that can be injected into gin.
func CorsMiddleware(cfg config.ServerConfig) Middleware {
	return Middleware{
		Handler: cors.New(cors.Config{
			AllowOrigins:     cfg.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Authorization", "Content-Type", "User-Agent", "Referer"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
	}
}

// MachineMiddleware creates a machine middleware that can be injected into gin.
func MachineMiddleware() Middleware {
	return Middleware{
		Handler: httputils.MachineMiddleware(),
	}
}

// AuthMiddleware creates an auth.Middleware that can be injected into gin.
func AuthMiddleware(storage auth.Storage) Middleware {
	return Middleware{
		Handler: auth.Middleware(storage),
	}
}

// GoogleHandler creates the Google sign-in handler, or nil when Google sign-in is not configured.
func GoogleHandler(cfg config.GAuthConfig, authConfig config.AuthConfig, states gauth.StateStorage, accounts *useraccount.Context) *authservice.GoogleHandler {
	if !cfg.Enabled() {
		slog.Info("google sign-in is disabled")
		return nil
	}

	exchanger := gauth.NewGoogleExchanger(gauth.BuildOAuthConfig(cfg))
	return authservice.NewGoogleHandler(exchanger, states, accounts, cfg.FrontendURL, authConfig.TokenExpire)
}

// GqlgenHandler creates the handler of the read-only GraphQL API.
func GqlgenHandler(entClient *ent.Client, statistics *statistics.Service, ranking *ranking.Service) *handler.Server {
	srv := handler.New(graph.NewSchema(entClient, statistics, ranking))

	srv.AddTransport(transport.Options{})
	srv.AddTransport(transport.GET{})
	srv.AddTransport(transport.POST{})

	srv.SetQueryCache(lru.New[*ast.QueryDocument](1000))

	srv.Use(otelgqlgen.Middleware())
	srv.Use(entgql.Transactioner{TxOpener: entClient})
	srv.Use(extension.Introspection{})
	srv.Use(extension.AutomaticPersistedQuery{
		Cache: lru.New[string](100),
	})

	srv.SetErrorPresenter(graph.NewErrorPresenter())

	return srv
}

// AuthService creates an auth service.
func AuthService(storage auth.Storage, accounts *useraccount.Context, cfg config.AuthConfig, google *authservice.GoogleHandler) *authservice.AuthService {
	return authservice.NewAuthService(storage, accounts, cfg.TokenExpire, google)
}

func DocumentService(documents *documents.Service) *documentservice.DocumentService {
	return documentservice.NewDocumentService(documents)
}

func TestService(quiz *quiz.Service, attempts *attempt.Service, statistics *statistics.Service, ranking *ranking.Service) *testservice.TestService {
	return testservice.NewTestService(quiz, attempts, statistics, ranking)
}

func CatalogService(quiz *quiz.Service) *catalogservice.CatalogService {
	return catalogservice.NewCatalogService(quiz)
}

func AttemptService(attempts *attempt.Service) *attemptservice.AttemptService {
	return attemptservice.NewAttemptService(attempts)
}

// HealthService checks the database and Redis.
func HealthService(db *gorm.DB, redisClient rueidis.Client) *healthservice.HealthService {
	return healthservice.NewHealthService(map[string]healthservice.Check{
		"database": healthservice.DatabaseCheck(db),
		"redis":    healthservice.RedisCheck(redisClient),
	})
}

// GinEngine creates a gin engine.
func GinEngine(services []httpapi.Service, middlewares []Middleware, health *healthservice.HealthService, gqlgenHandler *handler.Server, cfg config.ServerConfig) *gin.Engine {
	engine := gin.New()

	if err := engine.SetTrustedProxies(cfg.TrustProxies); err != nil {
		slog.Error("error setting trusted proxies", "error", err)
	}

	prometheus := ginprom.New(
		ginprom.Engine(engine),
		ginprom.Namespace("quizgenius"),
		ginprom.Subsystem("gin"),
		ginprom.Path("/metrics"),
	)
	engine.Use(prometheus.Instrument())

	for _, middleware := range middlewares {
		engine.Use(middleware.Handler)
	}

	engine.Use(gin.Recovery())

	health.Register(engine)

	engine.GET("/", func(ctx *gin.Context) {
		handler := playground.Handler("GraphQL playground", "/query")
		handler.ServeHTTP(ctx.Writer, ctx.Request)
	})
	engine.Any("/query", func(ctx *gin.Context) {
		gqlgenHandler.ServeHTTP(ctx.Writer, ctx.Request)
	})

	httpapi.Mount(engine, services...)

	return engine
}

// GinLifecycle starts the gin engine.
func GinLifecycle(lifecycle fx.Lifecycle, engine *gin.Engine, cfg config.ServerConfig) {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			workers.Global.Go(func() {
				slog.Info("gin engine starting", "address", srv.Addr, "proto", cfg.GetProto(), "uri", cfg.URI)

				var err error
				if cfg.CertFile != nil && cfg.KeyFile != nil {
					err = srv.ListenAndServeTLS(*cfg.CertFile, *cfg.KeyFile)
				} else {
					err = srv.ListenAndServe()
				}
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					slog.Error("error running gin engine", "error", err)
				}
			})

			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Shutdown(ctx); err != nil {
				slog.Error("error shutting down gin engine", "error", err)
				return err
			}

			return nil
		},
	})
}

// ExpiryLoop finalizes the attempts whose time limit passed without a submission.
func ExpiryLoop(lifecycle fx.Lifecycle, attempts *attempt.Service) {
	loopCtx, cancel := context.WithCancel(context.Background())

	lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			workers.Global.Go(func() {
				attempts.RunExpiryLoop(loopCtx, expiryInterval)
			})
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}

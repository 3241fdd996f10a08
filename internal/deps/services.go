package deps

import (
	"log/slog"

	"github.com/posthog/posthog-go"
	"github.com/quizgenius/backend/ent"
	"github.com/quizgenius/backend/graph"
	"github.com/quizgenius/backend/internal/attempt"
	"github.com/quizgenius/backend/internal/auth"
	"github.com/quizgenius/backend/internal/config"
	"github.com/quizgenius/backend/internal/documents"
	"github.com/quizgenius/backend/internal/events"
	"github.com/quizgenius/backend/internal/generation"
	"github.com/quizgenius/backend/internal/quiz"
	"github.com/quizgenius/backend/internal/ranking"
	"github.com/quizgenius/backend/internal/ratelimit"
	"github.com/quizgenius/backend/internal/statistics"
	"github.com/quizgenius/backend/internal/useraccount"
	"github.com/redis/rueidis"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// EventService creates the event service. Events are forwarded to PostHog when it is configured.
func EventService(lifecycle fx.Lifecycle, db *gorm.DB, cfg config.PostHogConfig) (*events.EventService, error) {
	handlers := []events.EventHandler{events.MetricsRecorder{}}

	if cfg.Enabled() {
		client, err := posthog.NewWithConfig(cfg.APIKey, posthog.Config{Endpoint: cfg.Host})
		if err != nil {
			slog.Error("error creating posthog client", "error", err)
			return nil, err
		}
		lifecycle.Append(fx.StopHook(client.Close))

		handlers = append(handlers, events.NewPostHogForwarder(client))
	}

	return events.NewEventService(db, handlers...), nil
}

// DocumentStorage creates the object store of the uploaded PDFs.
func DocumentStorage(cfg config.StorageConfig) (documents.Storage, error) {
	switch cfg.Backend {
	case config.StorageBackendS3:
		return documents.NewS3Storage(cfg)
	default:
		return documents.NewFileStorage(cfg.Dir)
	}
}

func DocumentService(db *gorm.DB, storage documents.Storage, eventService *events.EventService, cfg config.StorageConfig) *documents.Service {
	return documents.NewService(db, storage, eventService, cfg.MaxUploadBytes)
}

// Generator creates the question generator backed by Bedrock with a daily quota per instructor.
func Generator(redisClient rueidis.Client, bedrock config.BedrockConfig, cfg config.GenerationConfig) (*generation.Generator, error) {
	model, err := generation.NewBedrockClient(bedrock)
	if err != nil {
		slog.Error("error creating bedrock client", "error", err)
		return nil, err
	}

	quota := ratelimit.NewDailyQuota(redisClient, "generation", cfg.DailyQuota)
	return generation.NewGenerator(model, quota, cfg), nil
}

func QuizService(db *gorm.DB, generator *generation.Generator, documentService *documents.Service, eventService *events.EventService) *quiz.Service {
	return quiz.NewService(db, generator, documentService, eventService)
}

func AttemptService(db *gorm.DB, eventService *events.EventService) *attempt.Service {
	return attempt.NewService(db, eventService)
}

func RankingService(db *gorm.DB) *ranking.Service {
	return ranking.NewService(db)
}

func StatisticsService(db *gorm.DB) *statistics.Service {
	return statistics.NewService(db)
}

func UserAccount(db *gorm.DB, storage auth.Storage, eventService *events.EventService, cfg config.AuthConfig) *useraccount.Context {
	return useraccount.NewContext(db, storage, eventService, cfg)
}

// EntClient opens the ent client of the GraphQL API over the database pool.
func EntClient(db *gorm.DB) (*ent.Client, error) {
	client, err := graph.NewEntClient(db)
	if err != nil {
		slog.Error("error creating ent client", "error", err)
		return nil, err
	}

	return client, nil
}

// FxServiceModule provides the domain services of the backend.
var FxServiceModule = fx.Module("services",
	fx.Provide(EventService),
	fx.Provide(DocumentStorage),
	fx.Provide(DocumentService),
	fx.Provide(Generator),
	fx.Provide(QuizService),
	fx.Provide(AttemptService),
	fx.Provide(StatisticsService),
	fx.Provide(RankingService),
	fx.Provide(UserAccount),
	fx.Provide(EntClient),
)

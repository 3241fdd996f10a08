package testhelper

import (
	"context"
	"fmt"
	"testing"

	"github.com/docker/go-connections/nat"
	"github.com/quizgenius/backend/internal/config"
	"github.com/quizgenius/backend/internal/database"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"
)

// NewPostgresDB starts a PostgreSQL container and returns a migrated database.
//
// The test is skipped when Docker is unavailable.
func NewPostgresDB(t *testing.T) *gorm.DB {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "quizgenius",
			"POSTGRES_PASSWORD": "quizgenius",
			"POSTGRES_DB":       "quizgenius",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
	}
	postgresC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("failed to create PostgreSQL container: %v", err)
	}

	t.Cleanup(func() {
		if err := postgresC.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate PostgreSQL container: %v", err)
		}
	})

	endpoint, err := postgresC.PortEndpoint(ctx, nat.Port("5432/tcp"), "")
	if err != nil {
		t.Skipf("failed to get PostgreSQL container endpoint: %v", err)
	}

	db, err := database.Open(config.DatabaseConfig{
		Driver: config.DatabaseDriverPostgres,
		DSN:    fmt.Sprintf("postgres://quizgenius:quizgenius@%s/quizgenius?sslmode=disable", endpoint),
	})
	if err != nil {
		t.Fatalf("failed to open PostgreSQL database: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close(db)
	})

	if err := database.Migrate(ctx, db); err != nil {
		t.Fatalf("failed to migrate PostgreSQL database: %v", err)
	}

	return db
}

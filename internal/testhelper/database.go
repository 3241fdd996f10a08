package testhelper

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/quizgenius/backend/internal/config"
	"github.com/quizgenius/backend/internal/database"
	"github.com/quizgenius/backend/internal/workers"
	"gorm.io/gorm"
)

var sqliteCounter atomic.Int64

// NewSqliteDB creates a new migrated in-memory SQLite database for testing.
func NewSqliteDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.Open(config.DatabaseConfig{
		Driver: config.DatabaseDriverSQLite,
		DSN:    fmt.Sprintf("file:test%d?mode=memory&cache=private&_fk=1", sqliteCounter.Add(1)),
	})
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}

	if err := database.Migrate(context.Background(), db); err != nil {
		t.Fatalf("Failed to migrate database: %v", err)
	}

	t.Cleanup(func() {
		// must wait the workers to finish
		workers.Global.Wait()

		if err := database.Close(db); err != nil {
			t.Fatalf("Failed to close database: %v", err)
		}
	})

	return db
}

// CreateUser creates a user with the given role for testing.
func CreateUser(t *testing.T, db *gorm.DB, email string, role database.Role) *database.User {
	t.Helper()

	user := &database.User{
		Email: email,
		Name:  email,
		Role:  role,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}

	return user
}

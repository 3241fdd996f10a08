package cli

import (
	"context"

	"github.com/quizgenius/backend/internal/database"
)

// Migrate the database to the latest version.
func (c *Context) Migrate(ctx context.Context) error {
	return database.Migrate(ctx, c.db)
}

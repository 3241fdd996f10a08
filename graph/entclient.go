package graph

import (
	"fmt"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/quizgenius/backend/ent"
	"github.com/quizgenius/backend/internal/database"
	"gorm.io/gorm"
)

// NewEntClient opens an ent client over the connection pool of db. The tables stay
// migrated by gorm. Closing db closes the client.
func NewEntClient(db *gorm.DB) (*ent.Client, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get connection pool: %w", err)
	}

	var driverName string
	switch name := db.Dialector.Name(); name {
	case "sqlite":
		driverName = dialect.SQLite
	case "postgres":
		driverName = dialect.Postgres
	default:
		return nil, fmt.Errorf("%w: %q", database.ErrUnsupportedDriver, name)
	}

	return ent.NewClient(ent.Driver(entsql.OpenDB(driverName, sqlDB))), nil
}

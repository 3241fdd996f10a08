package cli_test

import (
	"testing"

	"github.com/quizgenius/backend/cli"
	"github.com/quizgenius/backend/internal/events"
	"github.com/quizgenius/backend/internal/testhelper"
	"gorm.io/gorm"
)

type TestContext struct {
	db  *gorm.DB
	ctx *cli.Context
}

func NewTestContext(t *testing.T) *TestContext {
	t.Helper()

	db := testhelper.NewSqliteDB(t)

	return &TestContext{
		db:  db,
		ctx: cli.NewContext(db, events.NewEventService(db)),
	}
}

package main

import (
	"context"
	"log"
	"os"

	qgcli "github.com/quizgenius/backend/cli"
	"github.com/quizgenius/backend/internal/database"
	"github.com/quizgenius/backend/internal/deps"
	"github.com/quizgenius/backend/internal/events"

	_ "github.com/mattn/go-sqlite3"
)

func main() {
	cfg, err := deps.CLIConfig()
	if err != nil {
		log.Fatal(err)
	}

	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatal(err)
	}
	defer func() {
		if err := database.Close(db); err != nil {
			log.Println("close database:", err)
		}
	}()

	c := qgcli.NewContext(db, events.NewEventService(db))

	rootCommand := newRootCommand(
		newMigrateCommand(c),
		newPromoteInstructorCommand(c),
		newSeedUsersCommand(c),
		newImportTestCommand(c),
		newExportTestCommand(c),
		newRegradeAttemptsCommand(c),
	)

	if err := rootCommand.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

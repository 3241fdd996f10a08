package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	qgcli "github.com/quizgenius/backend/cli"
	"github.com/urfave/cli/v3"
)

func newMigrateCommand(clictx *qgcli.Context) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Migrate the database to the latest version",
		Action: func(ctx context.Context, c *cli.Command) error {
			fmt.Println("Migrating the database to the latest version…")
			if err := clictx.Migrate(ctx); err != nil {
				return err
			}

			fmt.Println("✅ Migration complete!")
			return nil
		},
	}
}

func newPromoteInstructorCommand(clictx *qgcli.Context) *cli.Command {
	return &cli.Command{
		Name:  "promote-instructor",
		Usage: "Promote a user to an instructor account",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "email",
				Usage:    "The email of the user to promote.",
				Required: true,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			email := c.String("email")
			fmt.Println("Promoting user", email, "to an instructor account.")

			if _, err := clictx.PromoteInstructor(ctx, email); err != nil {
				return err
			}

			fmt.Println("✅ User", email, "is now an instructor. Existing sessions keep the old scopes until they expire.")
			return nil
		},
	}
}

func newSeedUsersCommand(clictx *qgcli.Context) *cli.Command {
	return &cli.Command{
		Name:        "seed-users",
		Usage:       "Seed the users table from a JSON file",
		Description: "Seed the users table from a JSON file. It should be a list of `{email: string, name?: string, role?: string, password?: string}` objects. If role is omitted, the user is a student. Users without a password can only sign in with Google.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "file",
				Usage:    "The JSON file to seed the database with users from.",
				Required: true,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			content, err := os.ReadFile(c.String("file"))
			if err != nil {
				return fmt.Errorf("read file: %w", err)
			}

			fmt.Printf("Seeding the database with users from %q…\n", c.String("file"))

			var userSeedRecords []qgcli.UserSeedRecord
			if err := json.Unmarshal(content, &userSeedRecords); err != nil {
				return fmt.Errorf("unmarshal users seed records: %w", err)
			}

			if err := clictx.SeedUsers(ctx, userSeedRecords); err != nil {
				return err
			}

			fmt.Println("✅ Users seeded!")
			return nil
		},
	}
}

func newImportTestCommand(clictx *qgcli.Context) *cli.Command {
	return &cli.Command{
		Name:  "import-test",
		Usage: "Import a test from a YAML file as an unpublished draft",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "file",
				Usage:    "The YAML file describing the test.",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "owner",
				Usage:    "The email of the instructor who owns the test.",
				Required: true,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			content, err := os.ReadFile(c.String("file"))
			if err != nil {
				return fmt.Errorf("read file: %w", err)
			}

			file, err := qgcli.ParseTestFile(content)
			if err != nil {
				return err
			}

			test, err := clictx.ImportTest(ctx, c.String("owner"), file)
			if err != nil {
				return err
			}

			fmt.Printf("✅ Test %q (ID %d) imported with %d questions.\n", test.Title, test.ID, len(test.Questions))
			return nil
		},
	}
}

func newExportTestCommand(clictx *qgcli.Context) *cli.Command {
	return &cli.Command{
		Name:  "export-test",
		Usage: "Export a test with its answers to a YAML file",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:     "id",
				Usage:    "The ID of the test to export.",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "file",
				Usage:    "The YAML file to write. The file is overwritten.",
				Required: true,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			file, err := clictx.ExportTest(ctx, int(c.Int("id")))
			if err != nil {
				return err
			}

			content, err := file.Marshal()
			if err != nil {
				return fmt.Errorf("marshal test file: %w", err)
			}

			if err := os.WriteFile(c.String("file"), content, 0o644); err != nil {
				return fmt.Errorf("write file: %w", err)
			}

			fmt.Printf("✅ Test %q exported to %q.\n", file.Title, c.String("file"))
			return nil
		},
	}
}

func newRegradeAttemptsCommand(clictx *qgcli.Context) *cli.Command {
	return &cli.Command{
		Name:        "regrade-attempts",
		Usage:       "Grade the closed attempts again with the current answer keys",
		Description: "Grade every submitted or expired attempt again using its stored responses. Use this after fixing the correct answer of a question.",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "test-id",
				Usage: "Only regrade the attempts of this test.",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Compute the new grades without saving them.",
			},
			&cli.BoolFlag{
				Name:  "no-tui",
				Usage: "Print a summary instead of the interactive progress view.",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			testID := int(c.Int("test-id"))
			dryRun := c.Bool("dry-run")

			if !c.Bool("no-tui") {
				return clictx.RegradeAttempts(ctx, testID, dryRun)
			}

			summary, err := clictx.RegradeAll(ctx, testID, dryRun)
			if err != nil {
				return err
			}

			fmt.Printf("✅ Regraded %d attempts: %d changed, %d failed.\n", summary.Total, summary.Changed, summary.Failed)
			if dryRun {
				fmt.Println("This was a dry run. No grades were saved.")
			}
			return nil
		},
	}
}

func newRootCommand(subcommands ...*cli.Command) *cli.Command {
	return &cli.Command{
		Name:     "admin-cli",
		Usage:    "A CLI tool for managing the QuizGenius instance.",
		Commands: subcommands,
	}
}

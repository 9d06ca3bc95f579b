// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/renukaprasadbs454/discord-edtech-bot/internal/chat"
	"github.com/renukaprasadbs454/discord-edtech-bot/internal/config"
	"github.com/renukaprasadbs454/discord-edtech-bot/internal/database"
	"github.com/renukaprasadbs454/discord-edtech-bot/internal/i18n"
	"github.com/renukaprasadbs454/discord-edtech-bot/internal/models"
	"github.com/renukaprasadbs454/discord-edtech-bot/internal/repository"
	"github.com/renukaprasadbs454/discord-edtech-bot/internal/server"
	"github.com/renukaprasadbs454/discord-edtech-bot/internal/services/audit"
	"github.com/renukaprasadbs454/discord-edtech-bot/internal/services/otp"
	"github.com/renukaprasadbs454/discord-edtech-bot/internal/services/provision"
	"github.com/renukaprasadbs454/discord-edtech-bot/internal/services/registry"
	"github.com/renukaprasadbs454/discord-edtech-bot/internal/services/verification"
	"github.com/urfave/cli/v3"
	"github.com/vinovest/sqlx"
)

func studentsCommand() *cli.Command {
	return &cli.Command{
		Name:  "students",
		Usage: "Manage the student registry",
		Flags: config.DatabaseFlags(),
		Commands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Register a student",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Usage: "Student email", Required: true},
					&cli.StringFlag{Name: "name", Usage: "Student name"},
					&cli.StringFlag{Name: "course", Usage: "Course name", Required: true},
					&cli.StringFlag{Name: "batch", Usage: "Batch name"},
					&cli.StringFlag{Name: "university", Usage: "University code, upper-cased on save"},
				},
				Action: addStudent,
			},
			{
				Name:      "import",
				Usage:     "Register students from a JSON array, skipping known emails",
				ArgsUsage: "<file>",
				Action:    importStudents,
			},
			{
				Name:  "list",
				Usage: "List registered students",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "verified", Usage: "Only list bound students"},
					&cli.IntFlag{Name: "limit", Value: 50, Usage: "Maximum number of students"},
				},
				Action: listStudents,
			},
		},
	}
}

// setupLogger sends logs to stderr so command output stays clean.
func setupLogger(cmd *cli.Command) {
	slog.SetDefault(server.NewLogger(os.Stderr, cmd.String("log-level"), cmd.String("log-format")))
}

func openRepository(cmd *cli.Command) (*sqlx.DB, *repository.Repository, error) {
	setupLogger(cmd)
	db, err := database.Open(cmd.String("database-dsn"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, repository.New(db), nil
}

func addStudent(ctx context.Context, cmd *cli.Command) error {
	if err := i18n.Init(); err != nil {
		return fmt.Errorf("failed to init i18n: %w", err)
	}
	db, repo, err := openRepository(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = database.Close(db) }()

	// Adding a student never mails or provisions, so the service runs
	// without a mailer and against an in-memory gateway.
	svc := verification.New(
		registry.New(repo, nil),
		otp.NewLedger(repo, otp.Config{}),
		provision.NewResolver(chat.NewMemoryGateway(), provision.Config{}),
		nil,
		audit.New(repo, nil),
		verification.Config{},
	)
	defer func() { _ = svc.Close() }()

	out := svc.AddStudent(ctx, cmd.String("email"), cmd.String("name"),
		cmd.String("course"), cmd.String("batch"), cmd.String("university"))
	if out.Failed() {
		return errors.New(out.Message)
	}
	fmt.Fprintln(cmd.Root().Writer, out.Message)
	return nil
}

func importStudents(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return errors.New("a JSON file is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	var students []models.Student
	if err := json.Unmarshal(data, &students); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	db, repo, err := openRepository(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = database.Close(db) }()

	added, skipped, err := registry.New(repo, nil).AddMany(ctx, students)
	if err != nil {
		return err
	}
	audit.New(repo, nil).Success(ctx, models.ActionAddStudents, "", "", fmt.Sprintf("added=%d skipped=%d", added, skipped))
	fmt.Fprintf(cmd.Root().Writer, "added: %d\nskipped: %d\n", added, skipped)
	return nil
}

func listStudents(ctx context.Context, cmd *cli.Command) error {
	db, repo, err := openRepository(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = database.Close(db) }()

	reg := registry.New(repo, nil)
	var students []models.Student
	if cmd.Bool("verified") {
		students = reg.ListVerified(ctx)
	} else {
		students = reg.ListAll(ctx, int(cmd.Int("limit")))
	}

	w := tabwriter.NewWriter(cmd.Root().Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "EMAIL\tNAME\tUNIVERSITY\tCOURSE\tBATCH\tACCOUNT")
	for _, s := range students {
		account := "-"
		if s.AccountID != nil {
			account = *s.AccountID
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", s.Email, s.Name, s.University, s.Course, s.Batch, account)
	}
	return w.Flush()
}

func statsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Print registry counters",
		Flags: config.DatabaseFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			db, repo, err := openRepository(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = database.Close(db) }()

			stats := registry.New(repo, nil).Stats(ctx)
			if stats == nil {
				return errors.New("stats unavailable")
			}
			fmt.Fprintf(cmd.Root().Writer, "total: %d\nverified: %d\nunverified: %d\npending otps: %d\n",
				stats.Total, stats.Verified, stats.Unverified, stats.PendingOTPs)
			return nil
		},
	}
}

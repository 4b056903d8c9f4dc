// Package main is the siteadmin operator tool: schema migration, admin
// account repair and settings inspection against the site database.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"github.com/atinyakov/ukarch-cms/internal/auth"
	"github.com/atinyakov/ukarch-cms/internal/cli"
	"github.com/atinyakov/ukarch-cms/internal/config"
	"github.com/atinyakov/ukarch-cms/internal/db"
	"github.com/atinyakov/ukarch-cms/internal/logger"
	"github.com/atinyakov/ukarch-cms/internal/repository"
	"github.com/atinyakov/ukarch-cms/internal/service"
)

var (
	version   string
	buildDate string
)

// main parses flags and dispatches to the requested command.
func main() {
	options, args, err := config.ParseCommand(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if len(args) > 0 && args[0] == "version" {
		fmt.Printf("siteadmin\nVersion: %s\nBuild Date: %s\n", version, buildDate)
		return
	}

	log := logger.New()
	if err := log.Init("warn", options.IsDevelopment()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := run(context.Background(), options, args, log.Log); err != nil {
		fmt.Fprintln(os.Stderr, "siteadmin:", err)
		if errors.Is(err, cli.ErrUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, options *config.Options, args []string, log *zap.Logger) error {
	runner := &cli.Runner{
		Prompt: cli.NewPrompter(os.Stdin, os.Stdout, int(os.Stdin.Fd())),
		Out:    os.Stdout,
	}

	if len(args) == 0 || args[0] == "help" {
		return runner.Run(ctx, args)
	}

	if args[0] == "migrate" {
		conn, err := db.Open(ctx, options.DatabasePath)
		if err != nil {
			return err
		}
		defer conn.Close()
		runner.Migrate = func(ctx context.Context) ([]*goose.MigrationResult, error) {
			return db.Migrate(ctx, conn)
		}
		return runner.Run(ctx, args)
	}

	conn, err := db.InitSQLite(ctx, options.DatabasePath, log)
	if err != nil {
		return err
	}
	defer conn.Close()

	accounts, err := newAccounts(conn, options, log)
	if err != nil {
		return err
	}
	runner.Accounts = accounts
	runner.Settings = service.NewSettingsService(repository.NewSQLiteSettingsRepository(conn), nil, log)
	return runner.Run(ctx, args)
}

func newAccounts(conn *sql.DB, options *config.Options, log *zap.Logger) (*service.AuthService, error) {
	return service.NewAuthService(
		repository.NewSQLiteUserRepository(conn),
		repository.NewSQLiteSessionRepository(conn),
		auth.NewSessionSigner(options.SessionSecret),
		options.SessionTTL, options.BcryptCost, log)
}

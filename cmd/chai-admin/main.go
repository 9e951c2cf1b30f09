package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"chai-api/internal/config"
	"chai-api/internal/database"
	"chai-api/internal/logger"
	"chai-api/internal/repository"
	"chai-api/internal/service"
)

const usage = `Usage: chai-admin <command> [flags]

Commands:
  migrate                                   apply the embedded schema (idempotent)
  create-home -label L -refresh-token T     create a home with default schedules and profiles
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.NewLogger(cfg.Log.Level, "console", "chai-admin")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch os.Args[1] {
	case "migrate":
		err = runMigrate(ctx, cfg, log)
	case "create-home":
		err = runCreateHome(ctx, cfg, log, os.Args[2:])
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		log.Error("command failed", zap.String("command", os.Args[1]), zap.Error(err))
		os.Exit(1)
	}
}

func runMigrate(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		return err
	}
	defer database.Close(db)

	if err := database.Migrate(ctx, db); err != nil {
		return err
	}
	log.Info("Migration completed", zap.Int("statements", len(database.SchemaStatements())), zap.String("db", cfg.Database.Database))
	return nil
}

func runCreateHome(ctx context.Context, cfg *config.Config, log *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("create-home", flag.ContinueOnError)
	label := fs.String("label", "", "unique label of the home")
	refresh := fs.String("refresh-token", "", "refresh token of the home's relay")
	if err := fs.Parse(args); err != nil {
		return err
	}

	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		return err
	}
	defer database.Close(db)

	admin := service.NewAdminService(repository.NewPostgresStore(db), config.DefaultProfiles(), log)
	res, err := admin.CreateHome(ctx, service.CreateHomeRequest{Label: *label, RefreshToken: *refresh})
	if err != nil {
		return err
	}
	log.Info("Home created", zap.Int64("home_id", res.HomeID), zap.Int64("relay_id", res.RelayID), zap.String("label", *label))
	// token 只输出一次，调用方自行保存
	fmt.Println(res.Token)
	return nil
}

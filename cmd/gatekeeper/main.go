// Gatekeeper - authenticated, audited entry into shared containers.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ashureev/gatekeeper/internal/config"
	"github.com/ashureev/gatekeeper/internal/store"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	// Interactive byte streams own stdout; logs go to stderr.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}

	root := &cobra.Command{
		Use:           "gatekeeper",
		Short:         "Authenticated, recorded access to shared containers",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newEnterCmd())
	root.AddCommand(newAdminCmd())
	root.AddCommand(newUserCmd())
	root.AddCommand(newDoctorCmd())

	// An interrupt must still reach the session finalize step, so the
	// signal cancels the context instead of killing the process.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

// openRepo loads configuration and opens the shared datastore.
func openRepo() (*config.Config, *store.SQLiteStore, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	repo, err := store.NewSQLite(cfg.DBPath, cfg.LockWait)
	if err != nil {
		return nil, nil, err
	}
	return cfg, repo, nil
}

func closeRepo(repo *store.SQLiteStore) {
	if err := repo.Close(); err != nil {
		slog.Error("failed to close repository", "error", err)
	}
}

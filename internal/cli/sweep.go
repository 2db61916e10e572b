package cli

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"

	"quiz-attempt-service/internal/config"
	pgstore "quiz-attempt-service/internal/infra/postgres"
	"quiz-attempt-service/internal/janitor"
	"quiz-attempt-service/internal/logging"
)

// NewSweepCmd deletes expired ticket-usage rows once and exits. Meant for
// external cron when the in-process schedule is not running.
func NewSweepCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete expired ticket-usage records",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep(cmd.Context(), *configPath)
		},
	}
}

func runSweep(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}

	log, err := logging.Init(cfg.Log.Dir)
	if err != nil {
		return err
	}
	defer log.Sync()

	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	return janitor.New(pgstore.NewLedger(pool), log).Sweep(ctx)
}

package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/cleaner-scheduler/internal/application/scheduler"
	"github.com/example/cleaner-scheduler/internal/infrastructure/postgres"
	"github.com/example/cleaner-scheduler/internal/interfaces/web"
	"github.com/spf13/cobra"
)

func newServerCmd(envFile *string) *cobra.Command {
	var migrateUp bool

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Run the admin API and, when enabled, the assignment sweeper",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := bootstrap(ctx, *envFile)
			if err != nil {
				return err
			}
			defer a.Close()

			if migrateUp {
				if err := postgres.Migrate(ctx, a.pool, a.log); err != nil {
					return err
				}
			}

			var sweep func(context.Context) error
			if a.cfg.SweepInterval > 0 {
				s := &scheduler.Scheduler{
					Source:   a.repo,
					Engine:   a.engine,
					Policy:   a.retryPolicy(),
					Interval: a.cfg.SweepInterval,
					Batch:    a.cfg.SweepBatch,
					Log:      a.log,
				}
				sweep = s.Run
			}

			ws := &web.Server{Engine: a.engine, Gatherer: a.registry, Log: a.log, Checks: a.checks}
			return serve(ctx, sweep, func(ctx context.Context) error {
				return web.Start(ctx, a.cfg.HTTPAddr, ws.Routes(), a.log)
			}, a.log)
		},
	}

	cmd.Flags().BoolVar(&migrateUp, "migrate", true, "run database migrations on startup")
	return cmd
}

// serve runs sweep next to srv and returns once both have stopped, so the
// caller can release the pool afterwards. sweep may be nil.
func serve(ctx context.Context, sweep, srv func(context.Context) error, log *slog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if sweep == nil {
			return
		}
		if err := sweep(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("sweeper stopped", "err", err)
		}
	}()

	err := srv(ctx)
	cancel()
	<-done
	return err
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/efiling/internal/metrics"
	"github.com/example/efiling/internal/ports/primary"
	"github.com/example/efiling/internal/scheduler"
	"github.com/example/efiling/internal/wire"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the sweeps on their schedules",
		Long: `Run process-files, submit-to-fes and the delayed-submission report on the
cron schedules in the config until interrupted. Serves /metrics when
metrics_addr is set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			timeout, _ := cmd.Flags().GetDuration("job-timeout")

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg := wire.Config()
			log := wire.Logger()
			orchestrator := wire.Orchestrator()
			lifecycle := wire.LifecycleService()

			sched := scheduler.New(log, timeout)
			jobs := []scheduler.Job{
				{
					Name: primary.SweepProcessFiles,
					Spec: cfg.Schedule.ProcessFiles,
					Run: func(ctx context.Context) error {
						_, err := orchestrator.ProcessFiles(ctx)
						return err
					},
				},
				{
					Name: primary.SweepSubmitToFes,
					Spec: cfg.Schedule.SubmitToFes,
					Run: func(ctx context.Context) error {
						_, err := orchestrator.SubmitToFes(ctx)
						return err
					},
				},
				{
					Name: primary.SweepDelayed,
					Spec: cfg.Schedule.DelayedSubmissions,
					Run: func(ctx context.Context) error {
						_, err := lifecycle.HandleDelayedSubmissions(ctx)
						return err
					},
				},
			}
			for _, job := range jobs {
				if err := sched.Add(job); err != nil {
					return err
				}
			}

			if cfg.MetricsAddr != "" {
				srv := &http.Server{Addr: cfg.MetricsAddr, Handler: metricsMux(), ReadHeaderTimeout: 5 * time.Second}
				go func() {
					log.Info("metrics listener started", "addr", cfg.MetricsAddr)
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						log.Error(err, "metrics listener failed")
					}
				}()
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(shutdownCtx)
				}()
			}

			fmt.Printf("✓ Serving %d scheduled sweeps (Ctrl-C to stop)\n", sched.Jobs())
			sched.Run(ctx)
			return nil
		},
	}
	cmd.Flags().Duration("job-timeout", 5*time.Minute, "Maximum duration of one sweep run")
	return cmd
}

func metricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	return mux
}

package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/marmos91/keepfs/internal/logger"
	"github.com/marmos91/keepfs/pkg/scrub"
	"github.com/spf13/cobra"
)

var (
	scrubWatch    bool
	scrubInterval time.Duration
	scrubRate     float64
	scrubBurst    int
)

var scrubCmd = &cobra.Command{
	Use:   "scrub",
	Short: "Verify every hashed file",
	Long: `Verify every registered file against its hash.

Without --watch a single pass is made and the command fails if any file
is corrupted or missing. With --watch passes repeat every --interval until
interrupted, and /metrics is served when metrics are enabled.

Examples:
  # One pass, at most 50 files per second
  keepfs scrub --rate 50

  # Continuous scrubbing
  KEEPFS_METRICS_ENABLED=true keepfs scrub --watch --interval 30m`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, scrubWatch, func(ctx context.Context, s *session) error {
			cfg := scrub.Config{
				Interval: s.cfg.Scrub.Interval,
				Rate:     s.cfg.Scrub.Rate,
				Burst:    s.cfg.Scrub.Burst,
			}
			if cmd.Flags().Changed("interval") {
				cfg.Interval = scrubInterval
			}
			if cmd.Flags().Changed("rate") {
				cfg.Rate = scrubRate
			}
			if cmd.Flags().Changed("burst") {
				cfg.Burst = scrubBurst
			}

			scrubber := scrub.New(s.store, cfg, s.metrics.Scrub)

			if !scrubWatch {
				report, err := scrubber.RunOnce(ctx)
				printReport(cmd.OutOrStdout(), report)
				if err != nil {
					return err
				}
				if !report.Healthy() {
					return fmt.Errorf("scrub found %d unhealthy files",
						len(report.Corrupted)+len(report.Missing)+len(report.Failed))
				}
				return nil
			}

			return watch(ctx, s, scrubber)
		})
	},
}

func init() {
	scrubCmd.Flags().BoolVarP(&scrubWatch, "watch", "w", false, "Keep scrubbing until interrupted")
	scrubCmd.Flags().DurationVar(&scrubInterval, "interval", time.Hour, "Time between passes with --watch")
	scrubCmd.Flags().Float64Var(&scrubRate, "rate", 0, "Maximum files checked per second (0 = unlimited)")
	scrubCmd.Flags().IntVar(&scrubBurst, "burst", 1, "Files checked back to back before the rate applies")
}

// watch runs the scrubber and, if configured, the metrics server until ctx
// is cancelled.
func watch(ctx context.Context, s *session, scrubber *scrub.Scrubber) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	serverDone := make(chan error, 1)
	if s.metrics.Server != nil {
		go func() {
			serverDone <- s.metrics.Server.Start(ctx)
		}()
	} else {
		close(serverDone)
	}

	err := scrubber.Run(ctx)
	cancel()

	if serverErr := <-serverDone; serverErr != nil {
		logger.Error("Metrics server error: %v", serverErr)
	}

	// An interrupt is the normal way to stop watching.
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func printReport(w io.Writer, r *scrub.Report) {
	for _, name := range r.Corrupted {
		_, _ = fmt.Fprintf(w, "corrupted: %s\n", name)
	}
	for _, name := range r.Missing {
		_, _ = fmt.Fprintf(w, "missing: %s\n", name)
	}
	for _, name := range r.Failed {
		_, _ = fmt.Fprintf(w, "failed: %s\n", name)
	}
	_, _ = fmt.Fprintln(w, r.Summary())
}

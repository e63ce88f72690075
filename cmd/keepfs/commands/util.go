package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/marmos91/keepfs/internal/logger"
	"github.com/marmos91/keepfs/pkg/config"
	"github.com/marmos91/keepfs/pkg/filestore"
	"github.com/spf13/cobra"
)

// InitLogger configures the logger from configuration.
func InitLogger(cfg *config.Config) error {
	loggerCfg := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if err := logger.Configure(loggerCfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// session is what a command gets to work with once the store is open.
type session struct {
	cfg     *config.Config
	store   *filestore.Store
	metrics *config.MetricsResult
}

// withStore loads the configuration, opens the file store and runs fn.
// The store and its backends are closed when fn returns, also on error.
//
// When withMetrics is set, Prometheus collectors are created according to
// the metrics section; otherwise collection is disabled.
func withStore(cmd *cobra.Command, withMetrics bool, fn func(ctx context.Context, s *session) error) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return err
	}
	if err := InitLogger(cfg); err != nil {
		return err
	}
	defer func() { _ = logger.Close() }()

	metrics := &config.MetricsResult{}
	if withMetrics {
		metrics = config.InitializeMetrics(cfg)
	}

	store, cleanup, err := config.OpenStore(ctx, cfg, metrics.FileStore)
	if err != nil {
		return err
	}
	defer cleanup()
	defer func() {
		// The index must be flushed even when ctx was cancelled.
		if closeErr := store.Close(context.WithoutCancel(ctx)); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	return fn(ctx, &session{cfg: cfg, store: store, metrics: metrics})
}

// contentFlags selects where a command reads file content from.
type contentFlags struct {
	content string
	file    string
}

func (f *contentFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.content, "content", "", "Content given inline")
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "Read content from a local file (- for stdin)")
	cmd.MarkFlagsMutuallyExclusive("content", "file")
}

// read returns the content selected by the flags. With neither flag set
// the content is read from stdin.
func (f *contentFlags) read(cmd *cobra.Command) ([]byte, error) {
	switch {
	case cmd.Flags().Changed("content"):
		return []byte(f.content), nil
	case f.file != "" && f.file != "-":
		data, err := os.ReadFile(f.file)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", f.file, err)
		}
		return data, nil
	default:
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}
}

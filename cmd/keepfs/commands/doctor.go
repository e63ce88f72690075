package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Report inconsistencies between index, metadata and storage",
	Long: `Report problems a crash or manual tampering can leave behind:

  - metadata records that no registered name owns (orphans)
  - registered files whose bytes are missing from storage

doctor only reports. Missing files can be dropped with "keepfs delete --force".`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, false, func(ctx context.Context, s *session) error {
			out := cmd.OutOrStdout()
			problems := 0

			orphans, err := s.store.Orphans(ctx)
			if err != nil {
				return err
			}
			for _, key := range orphans {
				_, _ = fmt.Fprintf(out, "orphan metadata: %s\n", key)
				problems++
			}

			for _, name := range s.store.List() {
				info, err := s.store.Stat(ctx, name)
				if err != nil {
					return err
				}
				if info.FileMissing {
					_, _ = fmt.Fprintf(out, "missing file: %s (%s)\n", name, info.Path)
					problems++
				}
			}

			if problems > 0 {
				return fmt.Errorf("found %d problems", problems)
			}
			_, _ = fmt.Fprintf(out, "No problems found in %d files\n", len(s.store.List()))
			return nil
		})
	},
}

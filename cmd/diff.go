package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/user/cyberpulse/pkg/engine"
	"github.com/user/cyberpulse/pkg/history"
	"github.com/user/cyberpulse/pkg/report"
)

var diffCmd = &cobra.Command{
	Use:   "diff <baseline> <current>",
	Short: "Compare two runs",
	Long: `Compares two sets of results by control text and reports which controls
improved, regressed, stayed the same, appeared or disappeared.

Each argument is either a snapshot file written with 'evaluate --snapshot'
or the id of a run recorded with --record.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		if output != report.FormatText && output != report.FormatJSON {
			return fmt.Errorf("unsupported output format %q", output)
		}

		src := &snapshotSource{}
		defer src.close()

		baseline, err := src.load(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		current, err := src.load(cmd.Context(), args[1])
		if err != nil {
			return err
		}

		d := engine.CompareSnapshots(baseline, current)
		if output == report.FormatJSON {
			return report.Encode(cmd.OutOrStdout(), output, d)
		}
		return report.Diff(cmd.OutOrStdout(), d)
	},
}

func init() {
	diffCmd.Flags().StringP("output", "o", report.FormatText, "Output format: text or json")
	rootCmd.AddCommand(diffCmd)
}

// snapshotSource resolves arguments to snapshots, opening the history
// database only when an argument is not a file.
type snapshotSource struct {
	store *history.Store
}

func (s *snapshotSource) load(ctx context.Context, ref string) (engine.Snapshot, error) {
	if _, err := os.Stat(ref); err == nil {
		return engine.LoadSnapshot(ref)
	}
	if s.store == nil {
		store, err := openHistory()
		if err != nil {
			return engine.Snapshot{}, fmt.Errorf("%s is not a snapshot file: %w", ref, err)
		}
		s.store = store
	}
	run, err := s.store.Get(ctx, ref)
	if err != nil {
		return engine.Snapshot{}, err
	}
	return engine.Snapshot{RunID: run.ID, Outputs: run.Outputs}, nil
}

func (s *snapshotSource) close() {
	if s.store != nil {
		s.store.Close()
	}
}

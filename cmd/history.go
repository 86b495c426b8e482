package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/user/cyberpulse/pkg/history"
	"github.com/user/cyberpulse/pkg/report"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse runs recorded with --record",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded runs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory()
		if err != nil {
			return err
		}
		defer store.Close()

		limit, _ := cmd.Flags().GetInt("limit")
		runs, err := store.List(cmd.Context(), limit)
		if err != nil {
			return err
		}
		return report.Runs(cmd.OutOrStdout(), runs)
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print the outputs of a recorded run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		if !report.ValidFormat(output) {
			return fmt.Errorf("unsupported output format %q", output)
		}
		store, err := openHistory()
		if err != nil {
			return err
		}
		defer store.Close()

		run, err := store.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if output != report.FormatText {
			return report.Encode(out, output, run)
		}
		fmt.Fprintf(out, "Run %s (%s, crosswalk=%s, policy=%s)\n\n",
			run.ID, run.CreatedAt.Format("2006-01-02 15:04:05"), run.CrosswalkSource, run.Policy)
		return report.Results(out, run.Outputs)
	},
}

func init() {
	historyListCmd.Flags().Int("limit", 20, "Maximum number of runs (0 for all)")
	historyShowCmd.Flags().StringP("output", "o", report.FormatText, "Output format: text, json or yaml")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	rootCmd.AddCommand(historyCmd)
}

// openHistory opens the existing database. Reading commands never create one.
func openHistory() (*history.Store, error) {
	cfg, err := loadRuntimeConfig()
	if err != nil {
		return nil, err
	}
	path, err := cfg.HistoryDBPath()
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("no history at %s, run 'cyberpulse evaluate --record' first", path)
	}
	return history.Open(path)
}

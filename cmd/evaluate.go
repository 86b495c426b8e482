package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/user/cyberpulse/pkg/engine"
	"github.com/user/cyberpulse/pkg/history"
	"github.com/user/cyberpulse/pkg/metrics"
	"github.com/user/cyberpulse/pkg/report"
	"github.com/user/cyberpulse/pkg/runner"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate one control or a batch file",
	Example: `  cyberpulse evaluate --text "All admin accounts must enforce MFA" \
      --evidence https://portal.example.com/mfa.png --framework "ISO 27001"
  cyberpulse evaluate --input controls.yaml --continue-on-fail -o json --record`,
	RunE: runEvaluate,
}

func init() {
	addEvaluateFlags(evaluateCmd)
	rootCmd.AddCommand(evaluateCmd)
}

func addEvaluateFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("text", "", "Control text to evaluate")
	f.StringSlice("evidence", nil, "Evidence URL (repeatable)")
	f.StringSlice("framework", nil, "Framework to map clauses for (repeatable, default from config)")
	f.String("input", "", "Batch file (.yaml/.yml/.json) with crosswalk_url and items")
	f.String("crosswalk-url", "", "URL of a crosswalk JSON document replacing the built-in table")
	f.String("crosswalk-file", "", "Local crosswalk file, or a directory of per-framework YAML files")
	f.Bool("continue-on-fail", false, "Emit failing items with their error instead of aborting the batch")
	f.StringP("output", "o", report.FormatText, "Output format: text, json or yaml")
	f.Bool("record", false, "Store the run in the history database")
	f.String("metrics-file", "", "Write Prometheus metrics for this run to a textfile")
	f.String("snapshot", "", "Save the outputs to a JSON snapshot for 'cyberpulse diff'")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	f := cmd.Flags()
	output, _ := f.GetString("output")
	if !report.ValidFormat(output) {
		return fmt.Errorf("unsupported output format %q", output)
	}

	cfg, err := loadRuntimeConfig()
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}

	batch, err := buildBatch(cmd, cfg.EngineFrameworks(), cfg.CrosswalkURL)
	if err != nil {
		return err
	}

	client, _, err := newMeterClient(cfg, log)
	if err != nil {
		return err
	}
	opts := []runner.Option{runner.WithLogger(log)}

	metricsFile, _ := f.GetString("metrics-file")
	var col *metrics.Collector
	if metricsFile != "" {
		col = metrics.NewCollector(nil)
		opts = append(opts, runner.WithMetrics(col))
	}

	if record, _ := f.GetBool("record"); record {
		path, err := cfg.HistoryDBPath()
		if err != nil {
			return err
		}
		store, err := history.Open(path)
		if err != nil {
			return err
		}
		defer store.Close()
		opts = append(opts, runner.WithRecorder(store))
	}

	rep, runErr := runner.New(client, opts...).Run(cmd.Context(), batch)

	if col != nil {
		if err := col.WriteTextfile(metricsFile); err != nil {
			log.Error("writing metrics file failed", "path", metricsFile, "error", err)
		}
	}
	if runErr != nil {
		var itemErr *engine.ItemError
		if errors.As(runErr, &itemErr) && len(rep.Outputs) > 0 {
			_ = printReport(output, rep)
		}
		return runErr
	}

	if snapshot, _ := f.GetString("snapshot"); snapshot != "" {
		if err := engine.SaveSnapshot(snapshot, engine.Snapshot{RunID: rep.RunID, Outputs: rep.Outputs}); err != nil {
			return fmt.Errorf("saving snapshot: %w", err)
		}
		log.Info("snapshot saved", "path", snapshot)
	}
	return printReport(output, rep)
}

// buildBatch turns the flags into a batch. The crosswalk URL precedence is
// flag, then batch file, then config; --crosswalk-file overrides all three.
func buildBatch(cmd *cobra.Command, defaultFrameworks []engine.Framework, configURL string) (runner.Batch, error) {
	f := cmd.Flags()
	input, _ := f.GetString("input")
	b := runner.Batch{CrosswalkURL: configURL}

	if cont, _ := f.GetBool("continue-on-fail"); cont {
		b.Policy = engine.ContinueOnFailure
	}

	switch {
	case input != "":
		file, err := runner.LoadFile(input)
		if err != nil {
			return b, err
		}
		b.Items = file.Items
		if file.CrosswalkURL != "" {
			b.CrosswalkURL = file.CrosswalkURL
		}
	case f.Changed("text"):
		text, _ := f.GetString("text")
		evidence, _ := f.GetStringSlice("evidence")
		frameworks := defaultFrameworks
		if f.Changed("framework") {
			names, _ := f.GetStringSlice("framework")
			frameworks = make([]engine.Framework, len(names))
			for i, n := range names {
				frameworks[i] = engine.Framework(n)
			}
		}
		if evidence == nil {
			evidence = []string{}
		}
		b.Items = []engine.Item{engine.Input{ControlText: text, EvidenceURLs: evidence, Frameworks: frameworks}.ToItem()}
	default:
		return b, errors.New("either --text or --input is required")
	}

	url, _ := f.GetString("crosswalk-url")
	path, _ := f.GetString("crosswalk-file")
	switch {
	case url != "" && path != "":
		return b, errors.New("--crosswalk-url and --crosswalk-file cannot be used together")
	case url != "":
		b.CrosswalkURL = url
	case path != "":
		cw, err := loadCrosswalkPath(path)
		if err != nil {
			return b, err
		}
		// a local table replaces any URL from the batch file or config
		b.CrosswalkURL = ""
		b.Crosswalk = cw
		b.CrosswalkSource = "file:" + path
	}
	return b, nil
}

// loadCrosswalkPath accepts a single crosswalk file or a directory of
// per-framework profiles.
func loadCrosswalkPath(path string) (engine.Crosswalk, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return engine.LoadCrosswalkDir(path)
	}
	return engine.LoadCrosswalkFile(path)
}

func printReport(format string, rep runner.Report) error {
	out := rootCmd.OutOrStdout()
	if format == report.FormatText {
		return report.Results(out, rep.Outputs)
	}
	return report.Encode(out, format, rep)
}

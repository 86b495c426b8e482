package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/user/cyberpulse/pkg/credentials"
	"github.com/user/cyberpulse/pkg/engine"
	"github.com/user/cyberpulse/pkg/history"
	"github.com/user/cyberpulse/pkg/meter"
	"github.com/user/cyberpulse/pkg/metrics"
	"github.com/user/cyberpulse/pkg/runner"
	"github.com/user/cyberpulse/pkg/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve evaluations over HTTP",
	Long: `Starts an HTTP server with:
  POST /v1/evaluate   evaluate a batch of items
  GET  /v1/crosswalk  the active crosswalk
  GET  /healthz       liveness
  GET  /metrics       Prometheus metrics

With --crosswalk-file the table is reloaded whenever the file changes.
With --schedule and --batch a batch file is re-evaluated on a cron schedule.`,
	RunE: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.String("addr", "", "Listen address (default from config)")
	f.String("crosswalk-file", "", "Crosswalk file to load and watch (default from config)")
	f.Bool("record", false, "Store every run in the history database")
	f.String("schedule", "", "Cron schedule for re-evaluating --batch, e.g. \"@hourly\"")
	f.String("batch", "", "Batch file evaluated on --schedule")
	f.Bool("continue-on-fail", false, "Scheduled runs keep going past failing items")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	f := cmd.Flags()
	ctx := cmd.Context()

	cfg, err := loadRuntimeConfig()
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}

	addr, _ := f.GetString("addr")
	if addr == "" {
		addr = cfg.Server.Addr
	}
	crosswalkFile, _ := f.GetString("crosswalk-file")
	if crosswalkFile == "" {
		crosswalkFile = cfg.Server.CrosswalkFile
	}
	schedule, _ := f.GetString("schedule")
	batchPath, _ := f.GetString("batch")
	if (schedule == "") != (batchPath == "") {
		return fmt.Errorf("--schedule and --batch must be used together")
	}

	col := metrics.NewCollector(nil)
	opts := server.Options{
		Upstream: func(cred credentials.Credential) runner.Upstream {
			return meter.New(cfg.APIBase, cred, meter.WithTimeout(cfg.Timeout), meter.WithLogger(log))
		},
		Credential: cfg.HeaderCredential(),
		Metrics:    col,
		Logger:     log,
	}

	var store *history.Store
	if record, _ := f.GetBool("record"); record {
		path, err := cfg.HistoryDBPath()
		if err != nil {
			return err
		}
		if store, err = history.Open(path); err != nil {
			return err
		}
		defer store.Close()
		opts.Recorder = store
	}

	srv := server.New(opts)

	if crosswalkFile != "" {
		w := server.NewCrosswalkWatcher(crosswalkFile, srv.SetCrosswalk,
			server.WithReloadHook(col.ObserveReload),
			server.WithWatcherLogger(log))
		if err := w.Load(); err != nil {
			return fmt.Errorf("loading crosswalk: %w", err)
		}
		go func() {
			if err := w.Watch(ctx); err != nil {
				log.Error("crosswalk watcher stopped", "error", err)
			}
		}()
	}

	if schedule != "" {
		client, _, err := newMeterClient(cfg, log)
		if err != nil {
			return err
		}
		runOpts := []runner.Option{runner.WithMetrics(col), runner.WithLogger(log)}
		if store != nil {
			runOpts = append(runOpts, runner.WithRecorder(store))
		}
		policy := engine.AbortOnFailure
		if cont, _ := f.GetBool("continue-on-fail"); cont {
			policy = engine.ContinueOnFailure
		}
		sched, err := server.NewScheduler(schedule, batchPath, policy, runner.New(client, runOpts...), srv.Crosswalk, log)
		if err != nil {
			return err
		}
		if err := sched.Start(ctx); err != nil {
			return err
		}
		defer sched.Stop()
	}

	return srv.ListenAndServe(ctx, addr)
}

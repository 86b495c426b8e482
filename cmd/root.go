package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/user/cyberpulse/pkg/config"
	"github.com/user/cyberpulse/pkg/credentials"
	"github.com/user/cyberpulse/pkg/logging"
	"github.com/user/cyberpulse/pkg/meter"
)

var rootCmd = &cobra.Command{
	Use:   "cyberpulse",
	Short: "Compliance control evaluator",
	Long: `CyberPulse scores written security controls and their evidence, maps them
to framework clauses (ISO 27001, NIST CSF, PCI DSS, SOC 2, GDPR, Essential Eight)
and explains the gaps.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	DebugMode  bool
	configPath string
	logFormat  string
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		printError(err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&DebugMode, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.cyberpulse/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: text or json (default from config)")
}

func printError(err error) {
	var opErr *meter.OperationError
	if errors.As(err, &opErr) {
		fmt.Fprintf(os.Stderr, "Error: %s\n", opErr.Message)
		if opErr.Description != "" {
			fmt.Fprintf(os.Stderr, "  %s\n", opErr.Description)
		}
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	if errors.Is(err, credentials.ErrNoCredential) {
		fmt.Fprintln(os.Stderr, "Run 'cyberpulse config set-key' or set CYBERPULSE_API_KEY.")
	}
}

// loadConfigFile reads the config file without environment overrides, for
// commands that edit and save it.
func loadConfigFile() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFrom(configPath)
	}
	return config.LoadConfig()
}

func saveConfigFile(cfg *config.Config) error {
	if configPath != "" {
		return config.SaveTo(configPath, cfg)
	}
	return config.SaveConfig(cfg)
}

// loadRuntimeConfig is the effective configuration: file, then environment
func loadRuntimeConfig() (*config.Config, error) {
	cfg, err := loadConfigFile()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	cfg.ApplyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*slog.Logger, error) {
	format := logFormat
	if format == "" {
		format = cfg.LogFormat
	}
	return logging.New(logging.Options{Debug: DebugMode, Format: format, Writer: os.Stderr})
}

// newMeterClient resolves the configured credential and builds the metered client
func newMeterClient(cfg *config.Config, log *slog.Logger) (*meter.Client, credentials.Credential, error) {
	cred, err := credentials.Resolve(cfg.HeaderCredential())
	if err != nil {
		return nil, cred, err
	}
	log.Debug("using credential", "credential", cred.String(), "api_base", cfg.APIBase)
	return meter.New(cfg.APIBase, cred, meter.WithTimeout(cfg.Timeout), meter.WithLogger(log)), cred, nil
}

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/user/cyberpulse/pkg/adk"
	"github.com/user/cyberpulse/pkg/config"
	"github.com/user/cyberpulse/pkg/credentials"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration (API key, base URL, frameworks, Gemini model)",
}

var setKeyCmd = &cobra.Command{
	Use:   "set-key",
	Short: "Store the CyberPulse API key (sent as x-api-key)",
	RunE: func(cmd *cobra.Command, args []string) error {
		key, _ := cmd.Flags().GetString("key")
		if key == "" {
			return fmt.Errorf("--key is required")
		}
		return updateConfig(func(cfg *config.Config) error {
			cfg.SetCredential(credentials.HeaderAPIKey, key)
			fmt.Printf("API key saved (%s)\n", cfg.HeaderCredential())
			return nil
		})
	},
}

var setHeaderCmd = &cobra.Command{
	Use:     "set-header",
	Short:   "Store a credential under x-api-key or Authorization",
	Example: `  cyberpulse config set-header --name Authorization --value "Bearer abc123"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		value, _ := cmd.Flags().GetString("value")
		if !credentials.SupportedHeader(name) {
			return fmt.Errorf("--name must be %s or %s", credentials.HeaderAPIKey, credentials.HeaderAuthorization)
		}
		if value == "" {
			return fmt.Errorf("--value is required")
		}
		return updateConfig(func(cfg *config.Config) error {
			cfg.SetCredential(name, value)
			fmt.Printf("Credential saved (%s)\n", cfg.HeaderCredential())
			return nil
		})
	},
}

var setGeminiKeyCmd = &cobra.Command{
	Use:   "set-gemini-key",
	Short: "Store the Gemini API key used by 'interactive'",
	RunE: func(cmd *cobra.Command, args []string) error {
		key, _ := cmd.Flags().GetString("key")
		if key == "" {
			return fmt.Errorf("--key is required")
		}
		return updateConfig(func(cfg *config.Config) error {
			cfg.GeminiAPIKey = key
			fmt.Printf("Gemini API key saved (%s)\n", credentials.Mask(key))
			return nil
		})
	},
}

var setBaseURLCmd = &cobra.Command{
	Use:   "set-base-url",
	Short: "Set the CyberPulse API base URL",
	RunE: func(cmd *cobra.Command, args []string) error {
		url, _ := cmd.Flags().GetString("url")
		if url == "" {
			return fmt.Errorf("--url is required")
		}
		return updateConfig(func(cfg *config.Config) error {
			cfg.APIBase = strings.TrimRight(url, "/")
			fmt.Printf("API base set to %s\n", cfg.APIBase)
			return nil
		})
	},
}

var setModelCmd = &cobra.Command{
	Use:   "set-model",
	Short: "Set the Gemini model used by 'interactive'",
	RunE: func(cmd *cobra.Command, args []string) error {
		model, _ := cmd.Flags().GetString("model")
		if model == "" {
			return fmt.Errorf("--model is required")
		}
		return updateConfig(func(cfg *config.Config) error {
			cfg.SelectedModel = model
			fmt.Printf("Model set to %s\n", model)
			return nil
		})
	},
}

var setFrameworksCmd = &cobra.Command{
	Use:     "set-frameworks <framework>...",
	Short:   "Set the default frameworks used when none are given",
	Example: `  cyberpulse config set-frameworks "ISO 27001" "NIST CSF"`,
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return updateConfig(func(cfg *config.Config) error {
			cfg.Frameworks = args
			fmt.Printf("Default frameworks: %s\n", strings.Join(args, ", "))
			return nil
		})
	},
}

var showConfigCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration with secrets masked",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadRuntimeConfig()
		if err != nil {
			return err
		}
		historyPath, _ := cfg.HistoryDBPath()
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "api_base:       %s\n", cfg.APIBase)
		fmt.Fprintf(out, "credential:     %s\n", cfg.HeaderCredential())
		fmt.Fprintf(out, "frameworks:     %s\n", strings.Join(cfg.Frameworks, ", "))
		fmt.Fprintf(out, "crosswalk_url:  %s\n", cfg.CrosswalkURL)
		fmt.Fprintf(out, "timeout:        %s\n", cfg.Timeout)
		fmt.Fprintf(out, "history_path:   %s\n", historyPath)
		fmt.Fprintf(out, "model:          %s\n", cfg.SelectedModel)
		fmt.Fprintf(out, "gemini_api_key: %s\n", credentials.Mask(cfg.GeminiAPIKey))
		fmt.Fprintf(out, "server.addr:    %s\n", cfg.Server.Addr)
		fmt.Fprintf(out, "log_format:     %s\n", cfg.LogFormat)
		return nil
	},
}

var listModelsCmd = &cobra.Command{
	Use:   "list-models",
	Short: "List the Gemini models available to the configured key",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadRuntimeConfig()
		if err != nil {
			return err
		}
		if cfg.GeminiAPIKey == "" {
			return fmt.Errorf("no Gemini API key, run 'cyberpulse config set-gemini-key' or set %s", config.EnvGeminiKey)
		}

		fmt.Println("Fetching Gemini models...")
		p, err := adk.NewGeminiProvider(cmd.Context(), cfg.GeminiAPIKey, "")
		if err != nil {
			return fmt.Errorf("initializing Gemini: %w", err)
		}
		defer p.Close()

		models, err := p.ListModels(cmd.Context())
		if err != nil {
			return fmt.Errorf("fetching models: %w", err)
		}
		fmt.Println("\nAvailable Models:")
		for _, m := range models {
			mark := " "
			if m == cfg.SelectedModel {
				mark = "*"
			}
			fmt.Printf("%s %s\n", mark, m)
		}
		return nil
	},
}

func init() {
	setKeyCmd.Flags().StringP("key", "k", "", "API key")
	setHeaderCmd.Flags().String("name", credentials.HeaderAPIKey, "Header name: x-api-key or Authorization")
	setHeaderCmd.Flags().String("value", "", "Header value")
	setGeminiKeyCmd.Flags().StringP("key", "k", "", "Gemini API key")
	setBaseURLCmd.Flags().String("url", "", "Base URL, e.g. https://api.example.com/prod")
	setModelCmd.Flags().StringP("model", "m", "", "Model name")

	configCmd.AddCommand(setKeyCmd)
	configCmd.AddCommand(setHeaderCmd)
	configCmd.AddCommand(setGeminiKeyCmd)
	configCmd.AddCommand(setBaseURLCmd)
	configCmd.AddCommand(setModelCmd)
	configCmd.AddCommand(setFrameworksCmd)
	configCmd.AddCommand(showConfigCmd)
	configCmd.AddCommand(listModelsCmd)
	rootCmd.AddCommand(configCmd)
}

// updateConfig loads the file, applies fn, validates and saves
func updateConfig(fn func(cfg *config.Config) error) error {
	cfg, err := loadConfigFile()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := fn(cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := saveConfigFile(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	return nil
}

package cmd

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/user/cyberpulse/pkg/adk"
	"github.com/user/cyberpulse/pkg/config"
	"github.com/user/cyberpulse/pkg/engine"
	"github.com/user/cyberpulse/pkg/history"
	"github.com/user/cyberpulse/pkg/runner"
	"github.com/user/cyberpulse/pkg/wrappers"
)

var interactiveCmd = &cobra.Command{
	Use:   "interactive",
	Short: "Chat with an agent that evaluates controls for you",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := loadRuntimeConfig()
		if err != nil {
			return err
		}
		log, err := newLogger(cfg)
		if err != nil {
			return err
		}
		if cfg.GeminiAPIKey == "" {
			return fmt.Errorf("no Gemini API key, run 'cyberpulse config setup' or set %s", config.EnvGeminiKey)
		}
		client, _, err := newMeterClient(cfg, log)
		if err != nil {
			return err
		}

		fmt.Printf("Connecting to Gemini (Model: %s)...\n", cfg.SelectedModel)
		provider, err := adk.NewGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.SelectedModel)
		if err != nil {
			return fmt.Errorf("creating Gemini client: %w", err)
		}
		defer provider.Close()

		runOpts := []runner.Option{runner.WithLogger(log)}
		agent := adk.NewAgent(provider, log)

		// history is optional in a chat session
		if path, err := cfg.HistoryDBPath(); err == nil {
			if store, err := history.Open(path); err != nil {
				log.Warn("history unavailable", "error", err)
			} else {
				defer store.Close()
				runOpts = append(runOpts, runner.WithRecorder(store))
				agent.RegisterTool(&wrappers.RunsWrapper{Store: store})
			}
		}

		agent.RegisterTool(&wrappers.EvaluateWrapper{
			Runner:     runner.New(client, runOpts...),
			Frameworks: cfg.EngineFrameworks(),
		})
		agent.RegisterTool(&wrappers.ClausesWrapper{Crosswalk: engine.DefaultCrosswalk})
		agent.SetSystemPrompt(adk.GetSystemPrompt())

		scanner := bufio.NewScanner(os.Stdin)
		fmt.Println("\n---------------------------------------------------------")
		fmt.Println("CyberPulse Agent Initialized. Ready for commands.")
		fmt.Println("Example: 'Assess: all admin accounts must use MFA, evidence https://wiki/mfa.pdf'")
		fmt.Println("Example: 'Which NIST CSF clauses cover backups?'")
		fmt.Println("Type 'quit' or 'exit' to stop.")
		fmt.Println("---------------------------------------------------------")

		for {
			fmt.Print("\n> ")
			if !scanner.Scan() {
				break
			}
			input := scanner.Text()
			if input == "quit" || input == "exit" {
				break
			}
			if input == "" {
				continue
			}

			fmt.Print("Agent thinking... ")
			resp, err := agent.Chat(ctx, input, func(msg string) {
				fmt.Printf("\r\033[K[Progress]: %s\nAgent thinking... ", msg)
			})
			fmt.Print("\r\033[K")

			if err != nil {
				fmt.Printf("Error: %v\n", err)
			} else {
				fmt.Printf("\n[Agent]: %s\n", resp)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(interactiveCmd)
}

package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/user/cyberpulse/pkg/adk"
	"github.com/user/cyberpulse/pkg/credentials"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive setup wizard",
	RunE: func(cmd *cobra.Command, args []string) error {
		scanner := bufio.NewScanner(os.Stdin)
		prompt := func(label string) string {
			fmt.Print(label)
			scanner.Scan()
			return strings.TrimSpace(scanner.Text())
		}

		cfg, err := loadConfigFile()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		fmt.Println("Welcome to CyberPulse Setup Wizard")
		fmt.Println("----------------------------------")

		// 1. CyberPulse key
		fmt.Println("Step 1: Enter your CyberPulse API key")
		if !cfg.HeaderCredential().Empty() {
			fmt.Printf("Current: %s (leave empty to keep)\n", cfg.HeaderCredential())
		}
		if key := prompt("> "); key != "" {
			cfg.SetCredential(credentials.HeaderAPIKey, key)
		}
		if cfg.HeaderCredential().Empty() {
			return fmt.Errorf("a CyberPulse API key is required")
		}

		// 2. Frameworks
		fmt.Printf("\nStep 2: Default frameworks [%s]\n", strings.Join(cfg.Frameworks, ", "))
		if fws := prompt("Comma separated, empty to keep > "); fws != "" {
			cfg.Frameworks = splitList(fws)
		}

		// 3. Gemini, optional
		fmt.Println("\nStep 3: Gemini API key for 'cyberpulse interactive' (optional)")
		if gk := prompt("> "); gk != "" {
			cfg.GeminiAPIKey = gk
		}
		if cfg.GeminiAPIKey != "" {
			fmt.Println("Validating key and fetching available models...")
			cfg.SelectedModel = chooseModel(cmd, cfg.GeminiAPIKey, cfg.SelectedModel, prompt)
		}

		// 4. Save
		fmt.Println("\nStep 4: Saving Configuration...")
		if err := cfg.Validate(); err != nil {
			return err
		}
		if err := saveConfigFile(cfg); err != nil {
			return fmt.Errorf("saving config: %w", err)
		}

		fmt.Println("----------------------------------")
		fmt.Println("Setup Complete!")
		fmt.Printf("Credential: %s\n", cfg.HeaderCredential())
		fmt.Printf("Frameworks: %s\n", strings.Join(cfg.Frameworks, ", "))
		if cfg.GeminiAPIKey != "" {
			fmt.Printf("Model:      %s\n", cfg.SelectedModel)
		}
		fmt.Println("You can now run 'cyberpulse evaluate --text \"...\"'")
		return nil
	},
}

func init() {
	configCmd.AddCommand(setupCmd)
}

// chooseModel lists the Gemini models and asks for one. current is kept when
// the listing fails and nothing is typed.
func chooseModel(cmd *cobra.Command, apiKey, current string, prompt func(string) string) string {
	p, err := adk.NewGeminiProvider(cmd.Context(), apiKey, "")
	if err != nil {
		fmt.Printf("Warning: could not initialize Gemini: %v\n", err)
		return current
	}
	defer p.Close()

	models, err := p.ListModels(cmd.Context())
	if err != nil || len(models) == 0 {
		fmt.Printf("Warning: could not fetch models: %v\n", err)
		if m := prompt(fmt.Sprintf("Model name [%s] > ", current)); m != "" {
			return m
		}
		return current
	}

	fmt.Printf("Successfully retrieved %d models.\n", len(models))
	for i, m := range models {
		fmt.Printf("%d. %s\n", i+1, m)
	}
	idx, err := strconv.Atoi(prompt("Select Model (number) > "))
	if err != nil || idx < 1 || idx > len(models) {
		fmt.Println("Invalid selection. Using first available model.")
		return models[0]
	}
	return models[idx-1]
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

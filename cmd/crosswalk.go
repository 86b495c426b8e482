package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/user/cyberpulse/pkg/engine"
	"github.com/user/cyberpulse/pkg/report"
)

var crosswalkCmd = &cobra.Command{
	Use:   "crosswalk",
	Short: "Inspect the category to clause crosswalk",
}

var crosswalkShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the clauses mapped for each category",
	RunE: func(cmd *cobra.Command, args []string) error {
		cw, err := crosswalkFromFlags(cmd)
		if err != nil {
			return err
		}
		frameworks := cw.Frameworks()
		if names, _ := cmd.Flags().GetStringSlice("framework"); len(names) > 0 {
			frameworks = make([]engine.Framework, len(names))
			for i, n := range names {
				frameworks[i] = engine.Framework(n)
			}
		}
		return report.Crosswalk(cmd.OutOrStdout(), cw, frameworks)
	},
}

var crosswalkExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the crosswalk as JSON or YAML",
	Long: `Writes the crosswalk in the document format accepted by --crosswalk-url
and --crosswalk-file, as a starting point for a custom table.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		if output != report.FormatJSON && output != report.FormatYAML {
			return fmt.Errorf("unsupported export format %q", output)
		}
		cw, err := crosswalkFromFlags(cmd)
		if err != nil {
			return err
		}
		return report.Encode(cmd.OutOrStdout(), output, cw)
	},
}

var crosswalkFrameworksCmd = &cobra.Command{
	Use:   "frameworks",
	Short: "List the frameworks present in the crosswalk",
	RunE: func(cmd *cobra.Command, args []string) error {
		cw, err := crosswalkFromFlags(cmd)
		if err != nil {
			return err
		}
		for _, fw := range cw.Frameworks() {
			fmt.Fprintln(cmd.OutOrStdout(), fw)
		}
		return nil
	},
}

func init() {
	crosswalkCmd.PersistentFlags().String("file", "", "Crosswalk file or profile directory (default: built-in table)")
	crosswalkShowCmd.Flags().StringSlice("framework", nil, "Only show these frameworks (default: all)")
	crosswalkExportCmd.Flags().StringP("output", "o", report.FormatYAML, "Output format: json or yaml")

	crosswalkCmd.AddCommand(crosswalkShowCmd)
	crosswalkCmd.AddCommand(crosswalkExportCmd)
	crosswalkCmd.AddCommand(crosswalkFrameworksCmd)
	rootCmd.AddCommand(crosswalkCmd)
}

func crosswalkFromFlags(cmd *cobra.Command) (engine.Crosswalk, error) {
	path, _ := cmd.Flags().GetString("file")
	if path == "" {
		return engine.DefaultCrosswalk(), nil
	}
	return loadCrosswalkPath(path)
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/gatherline/fulfil/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML",
	Long: `Print the effective configuration after merging the config file,
environment variables, and defaults. The output is valid fulfild.yaml,
so it can seed a new config file:

  fulfild config > fulfild.yaml`,
	RunE: runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	out, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to render config: %w", err)
	}

	if file := config.ConfigFileUsed(); file != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "# merged from %s\n", file)
	}
	fmt.Fprint(cmd.OutOrStdout(), string(out))
	return nil
}

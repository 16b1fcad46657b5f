package config

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marmos91/excelsior/pkg/config"
)

var showOutput string

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current configuration",
	Long: `Display the effective excelsior configuration after the config file,
environment variables and defaults have been merged.

By default outputs YAML format. Use --output to change format.

Examples:
  # Show the effective configuration as YAML
  excelsior config show

  # Show as JSON
  excelsior config show --output json

  # Show a specific config file merged with the environment
  excelsior config show --config /etc/excelsior/config.yaml`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

func init() {
	showCmd.Flags().StringVarP(&showOutput, "output", "o", "yaml", "Output format (yaml|json)")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch strings.ToLower(showOutput) {
	case "json":
		data, err := json.MarshalIndent(config.Map(cfg), "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	case "yaml", "yml":
		data, err := config.Marshal(cfg)
		if err != nil {
			return err
		}
		_, err = out.Write(data)
		return err
	default:
		return fmt.Errorf("invalid output format: %q (valid: yaml, json)", showOutput)
	}
}

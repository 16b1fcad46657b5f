package config

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/excelsior/pkg/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long: `Write a configuration file holding every setting at its default value.

The file is written to --config when given, otherwise to
$XDG_CONFIG_HOME/excelsior/config.yaml.

Examples:
  excelsior config init
  excelsior config init --config ./excelsior.yaml --force`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = config.GetDefaultConfigPath()
	}

	if _, err := os.Stat(path); err == nil && !initForce {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", path)
	}

	if err := config.SaveConfig(config.GetDefaultConfig(), path); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Configuration file created at: %s\n", path)
	fmt.Fprintln(out, "\nNext steps:")
	fmt.Fprintln(out, "  1. Edit the configuration file to customize your setup")
	fmt.Fprintf(out, "  2. Start the server with: excelsior start --config %s\n", path)
	return nil
}

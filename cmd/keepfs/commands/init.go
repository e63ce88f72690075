package commands

import (
	"fmt"

	"github.com/marmos91/keepfs/pkg/config"
	"github.com/spf13/cobra"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a sample configuration file",
	Long: `Initialize a sample keepfs configuration file.

By default, the configuration file is created at $XDG_CONFIG_HOME/keepfs/config.yaml.
Use --config to specify a custom path.

Examples:
  # Initialize with default location
  keepfs init

  # Initialize with custom path
  keepfs init --config /etc/keepfs/config.yaml

  # Force overwrite existing config
  keepfs init --force`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	configFile := GetConfigFile()

	var configPath string
	var err error

	if configFile != "" {
		err = config.InitConfigToPath(configFile, initForce)
		configPath = configFile
	} else {
		configPath, err = config.InitConfig(initForce)
	}

	if err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Configuration file created at: %s\n", configPath)
	_, _ = fmt.Fprintln(out, "\nNext steps:")
	_, _ = fmt.Fprintln(out, "  1. Edit the configuration file to pick the content and metadata backends")
	_, _ = fmt.Fprintln(out, "  2. Register a file with: keepfs create notes --hash --content 'hello'")
	_, _ = fmt.Fprintf(out, "  3. Or specify custom config: keepfs list --config %s\n", configPath)

	return nil
}

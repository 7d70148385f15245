package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"firestige.xyz/pulse/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Long: `Load the configuration (defaults overlaid with the given file) and
print the effective result as YAML. Useful for pre-checking a file
before deploying it.

Examples:
  pulse config                 # pure defaults
  pulse config -c pulse.yml    # defaults + file`,
	Run: func(cmd *cobra.Command, args []string) {
		runConfigCommand()
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfigCommand() {
	cfg, err := config.Load(configFile)
	if err != nil {
		exitWithError("failed to load config", err)
	}

	out, err := yaml.Marshal(cfg)
	if err != nil {
		exitWithError("failed to render config", err)
	}
	fmt.Print(string(out))
}

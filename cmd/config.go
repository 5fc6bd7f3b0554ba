package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vietdv277/bucketinv/internal/config"
)

var saveConfig bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Long: `Print the configuration resolved from defaults, the config file, the
.env file, BUCKETINV_* environment variables and flags.

With --save the result is written to the config file, so flags given once
become the defaults of later runs.

Examples:
  bucketinv config
  bucketinv config -o /data/inventory --flush-threshold 100000 --save`,
	Args: cobra.NoArgs,
	RunE: runConfig,
}

func init() {
	addRunFlags(configCmd.Flags())
	configCmd.Flags().BoolVar(&saveConfig, "save", false, "write the effective configuration to the config file")
	rootCmd.AddCommand(configCmd)
}

func runConfig(cmd *cobra.Command, args []string) error {
	if saveConfig {
		path := cfgFile
		if path == "" {
			path = config.GetConfigPath()
		}
		if err := config.SaveConfig(path, cfg); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", path)
		return nil
	}

	data, err := cfg.Marshal()
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), string(data))
	return nil
}

package cli

import (
	"fmt"
	"io"

	"tdr-review/vars"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the effective configuration",
	Long: `Configuration hierarchy (highest to lowest priority):
1. Environment variables (PGHOST, ENGINE_API, POLL_TIMEOUT, ...)
2. Config file (--config)
3. Defaults`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML, secrets omitted",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(afero.NewOsFs(), cfgFile)
		if err != nil {
			return err
		}
		return writeConfig(cmd.OutOrStdout(), cfg)
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
}

func writeConfig(w io.Writer, cfg *vars.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	_, err = w.Write(data)
	return err
}

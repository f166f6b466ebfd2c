package cli

import (
	"fmt"
	"os"

	"tdr-review/pkg/logger"
	"tdr-review/vars"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "tdr-review",
	Short: "Extracts the deliverable structure of TDR documents into the project database",
	Long: `tdr-review submits Terms of Reference documents to a document-reasoning API,
waits for the analysis, and stores the deliverables, study sections, document
kinds and minimum-content requirements it finds as a hierarchy per project.

Configuration comes from flags, environment variables (PGHOST, ENGINE_API, ...)
and an optional YAML file passed with --config.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file")
	rootCmd.AddCommand(serveCmd, extractCmd, configCmd)
}

// loadConfig layers defaults, the optional config file and the environment.
func loadConfig(fs afero.Fs, path string) (*vars.Config, error) {
	v := viper.New()
	v.SetFs(fs)
	vars.SetDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	v.AutomaticEnv()

	return vars.Load(v)
}

// setup loads the configuration and installs the process logger.
func setup() (*vars.Config, error) {
	cfg, err := loadConfig(afero.NewOsFs(), cfgFile)
	if err != nil {
		return nil, err
	}
	logger.Init(&logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: os.Stderr})
	return cfg, nil
}

// Package cmd implements the pagecraft command-line interface.
//
// Configuration is read, highest priority first, from command-line flags,
// PAGECRAFT_<SECTION>_<KEY> environment variables, the file named by --config
// or PAGECRAFT_CONFIG_FILE, and finally .pagecraft.yml in the working
// directory.
package cmd

import (
	"fmt"
	"os"

	"github.com/conneroisu/pagecraft/internal/config"
	pcerrors "github.com/conneroisu/pagecraft/internal/errors"
	"github.com/conneroisu/pagecraft/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	// configReadErr holds a failure to read an explicitly named config file.
	configReadErr error
)

var rootCmd = &cobra.Command{
	Use:   "pagecraft",
	Short: "Compile landing pages into self-contained HTML documents",
	Long: `pagecraft compiles a declarative page file (hero, content and
call-to-action sections plus a theme) into one static HTML document with
inline styles and form scripts, then publishes it.

Quick Start:
  pagecraft compile page.yaml        Compile and publish a page
  pagecraft preview page.yaml        Live preview while editing
  pagecraft validate dist/index.html Check a generated document`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is .pagecraft.yml, can also use PAGECRAFT_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")
	viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

func initConfig() {
	explicit := cfgFile
	if explicit == "" {
		explicit = os.Getenv("PAGECRAFT_CONFIG_FILE")
	}

	if explicit != "" {
		viper.SetConfigFile(explicit)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".pagecraft")
	}

	config.BindEnv()

	err := viper.ReadInConfig()
	switch {
	case err == nil:
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	case explicit != "":
		configReadErr = pcerrors.NewConfigError(pcerrors.ErrCodeConfigInvalid, "failed to read config file").
			WithFile(explicit).
			WithContext("cause", err.Error())
	}
}

// loadConfig loads the validated configuration and a logger built from it.
func loadConfig(cmd *cobra.Command) (*config.Config, logging.Logger, error) {
	if configReadErr != nil {
		return nil, nil, configReadErr
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	logCfg := cfg.LoggerConfig()
	logCfg.Output = cmd.ErrOrStderr()
	return cfg, logging.NewLogger(logCfg), nil
}

package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	cfg "github.com/cometbft/flowcontrol/config"
	"github.com/cometbft/flowcontrol/libs/cli"
	cmtflags "github.com/cometbft/flowcontrol/libs/cli/flags"
	"github.com/cometbft/flowcontrol/libs/log"
)

var (
	config = cfg.DefaultConfig()
	logger = log.NewLogger(os.Stdout)
)

func init() {
	registerFlagsRootCmd(RootCmd)
}

func registerFlagsRootCmd(cmd *cobra.Command) {
	cmd.PersistentFlags().String("log_level", config.LogLevel, "log level")
}

// ConfigHome returns the home directory: $FCHOME or $FC_HOME if set, the
// --home flag otherwise.
func ConfigHome(cmd *cobra.Command) (string, error) {
	if home := os.Getenv("FCHOME"); home != "" {
		return home, nil
	}
	// resolved from FC_HOME or --home by cli.PrepareBaseCmd
	if home := viper.GetString(cli.HomeFlag); home != "" {
		return home, nil
	}
	// Default: $HOME/.flowctl
	return cmd.Flags().GetString(cli.HomeFlag)
}

// ParseConfig retrieves the default environment configuration,
// sets up the flowctl root and ensures that the root exists.
func ParseConfig(cmd *cobra.Command) (*cfg.Config, error) {
	conf := cfg.DefaultConfig()
	if err := viper.Unmarshal(conf); err != nil {
		return nil, err
	}

	home, err := ConfigHome(cmd)
	if err != nil {
		return nil, err
	}
	conf.SetRoot(home)
	cfg.EnsureRoot(conf.RootDir)
	if err := conf.ValidateBasic(); err != nil {
		return nil, fmt.Errorf("error in config file: %w", err)
	}
	return conf, nil
}

// RootCmd is the root command for flowctl.
var RootCmd = &cobra.Command{
	Use:   "flowctl",
	Short: "Buffer value flow control for light client request/response protocols",
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) (err error) {
		if cmd.Name() == VersionCmd.Name() {
			return nil
		}

		config, err = ParseConfig(cmd)
		if err != nil {
			return err
		}

		if config.LogFormat == cfg.LogFormatJSON {
			logger = log.NewJSONLogger(os.Stdout)
		} else {
			logger = log.NewLoggerWithColor(os.Stdout, config.LogColors)
		}

		logger, err = cmtflags.ParseLogLevel(config.LogLevel, logger, cfg.DefaultLogLevel)
		if err != nil {
			return err
		}

		if viper.GetBool(cli.TraceFlag) {
			logger = log.NewTracingLogger(logger)
		}

		logger = logger.With("module", "main")
		return nil
	},
}

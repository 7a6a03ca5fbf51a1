package commands

import (
	"path/filepath"

	"github.com/spf13/cobra"

	cfg "github.com/cometbft/flowcontrol/config"
	cmtos "github.com/cometbft/flowcontrol/internal/os"
)

// InitFilesCmd initializes a fresh flowctl home.
var InitFilesCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the flowctl home directory",
	Long: `Writes config/config.toml with the default parameters, if missing, and a
peer parameters file holding the parameters of a peer announcing the same
defaults, so that budget works out of the box.`,
	RunE: initFiles,
}

func initFiles(*cobra.Command, []string) error {
	return initFilesWithConfig(config)
}

func initFilesWithConfig(config *cfg.Config) error {
	configDir := filepath.Join(config.RootDir, cfg.DefaultConfigDir)
	if err := cmtos.EnsureDir(configDir, cfg.DefaultDirPerm); err != nil {
		return err
	}

	configFile := filepath.Join(configDir, cfg.DefaultConfigFileName)
	if cmtos.FileExists(configFile) {
		logger.Info("Found config file", "path", configFile)
	} else {
		cfg.WriteConfigFile(configFile, config)
		logger.Info("Generated config file", "path", configFile)
	}

	peerParamsFile := config.PeerParamsFile()
	if cmtos.FileExists(peerParamsFile) {
		logger.Info("Found peer params file", "path", peerParamsFile)
		return nil
	}
	if err := cmtos.EnsureDir(filepath.Dir(peerParamsFile), cfg.DefaultDirPerm); err != nil {
		return err
	}
	if err := cfg.WritePeerParamsFile(peerParamsFile, cfg.DefaultFlowControlConfig()); err != nil {
		return err
	}
	logger.Info("Generated peer params file", "path", peerParamsFile)
	return nil
}

package main

import (
	"os"
	"path/filepath"

	cmd "github.com/cometbft/flowcontrol/cmd/flowctl/commands"
	cfg "github.com/cometbft/flowcontrol/config"
	"github.com/cometbft/flowcontrol/libs/cli"
)

func main() {
	rootCmd := cmd.RootCmd
	rootCmd.AddCommand(
		cmd.InitFilesCmd,
		cmd.ShowParamsCmd,
		cmd.BudgetCmd,
		cmd.SimulateCmd,
		cmd.VersionCmd,
	)

	cmd := cli.PrepareBaseCmd(rootCmd, "FC", os.ExpandEnv(filepath.Join("$HOME", cfg.DefaultFlowControlDir)))
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

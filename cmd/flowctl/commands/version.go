package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cometbft/flowcontrol/version"
)

var verbose bool

// VersionCmd ...
var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version info",
	Run: func(cmd *cobra.Command, _ []string) {
		fcVersion := version.FCSemVer
		if version.FCGitCommitHash != "" {
			fcVersion += "+" + version.FCGitCommitHash
		}

		if verbose {
			values, err := json.MarshalIndent(struct {
				FlowCtl     string `json:"flowctl"`
				LESProtocol uint64 `json:"les_protocol"`
			}{
				FlowCtl:     fcVersion,
				LESProtocol: version.LESProtocol,
			}, "", "  ")
			if err != nil {
				panic(fmt.Sprintf("failed to marshal version info: %v", err))
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(values))
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), fcVersion)
		}
	},
}

func init() {
	VersionCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show protocol version")
}

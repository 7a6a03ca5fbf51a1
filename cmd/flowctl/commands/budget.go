package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	cfg "github.com/cometbft/flowcontrol/config"
	"github.com/cometbft/flowcontrol/flowcontrol"
	"github.com/cometbft/flowcontrol/p2p/mock"
	cmttime "github.com/cometbft/flowcontrol/types/time"
)

var (
	budgetKind    string
	budgetBV      int64
	budgetElapsed time.Duration
)

// BudgetCmd computes how much can be requested from a peer that announced
// the parameters in the peer params file.
var BudgetCmd = &cobra.Command{
	Use:   "budget [count]",
	Short: "Compute the request budget for a peer",
	Long: `Computes how many items can be requested from a peer that announced the
parameters in the peer params file and last reported buffer value --bv,
--elapsed ago. Without --bv the peer is assumed to have a full buffer.

If count is given, also prints how long to wait before count items can be
requested.`,
	Example: `flowctl budget --bv 50000 --elapsed 2s 120`,
	Args:    cobra.MaximumNArgs(1),
	RunE:    budget,
}

func init() {
	BudgetCmd.Flags().StringVar(&budgetKind, "kind", cfg.DefaultMessageKind, "message kind")
	BudgetCmd.Flags().Int64Var(&budgetBV, "bv", -1, "buffer value the peer last reported (-1 for none)")
	BudgetCmd.Flags().DurationVar(&budgetElapsed, "elapsed", 0, "time since the peer reported --bv")
}

func budget(cmd *cobra.Command, args []string) error {
	var count int64 = -1
	if len(args) == 1 {
		var err error
		if count, err = strconv.ParseInt(args[0], 10, 64); err != nil {
			return fmt.Errorf("invalid count %q: %w", args[0], err)
		}
	}

	section, err := cfg.LoadPeerParamsFile(config.PeerParamsFile())
	if err != nil {
		return err
	}
	announced, err := flowcontrol.ParamsFromConfig(section)
	if err != nil {
		return err
	}
	local, err := flowcontrol.ParamsFromConfig(config.FlowControl)
	if err != nil {
		return err
	}

	clock := cmttime.NewMockableSource(cmttime.Now())
	fc, err := flowcontrol.NewFlowController(local,
		flowcontrol.WithTimeSource(clock),
		flowcontrol.WithLogger(logger.With("module", "flowcontrol")),
	)
	if err != nil {
		return err
	}

	peer := mock.NewPeer("")
	flowcontrol.SetPeerParams(peer, announced)
	if budgetBV >= 0 {
		fc.RecordAnnouncement(peer.ID(), budgetBV)
	}
	clock.Advance(budgetElapsed)

	n, err := fc.MaxRequestCount(peer, budgetKind)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "max_request_count: %d\n", n)

	if count >= 0 {
		wait, err := fc.WaitTime(peer, budgetKind, count)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wait: %s\n", wait)
	}
	return nil
}

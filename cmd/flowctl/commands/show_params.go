package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	cfg "github.com/cometbft/flowcontrol/config"
	"github.com/cometbft/flowcontrol/flowcontrol"
)

var showPeerParams bool

// ShowParamsCmd prints the effective flow control parameters.
var ShowParamsCmd = &cobra.Command{
	Use:     "show-params",
	Aliases: []string{"show_params"},
	Short:   "Show the flow control parameters this node announces",
	RunE:    showParams,
}

func init() {
	ShowParamsCmd.Flags().BoolVar(&showPeerParams, "peer", false, "show the parameters from the peer params file instead")
}

func showParams(cmd *cobra.Command, _ []string) error {
	section := config.FlowControl
	if showPeerParams {
		var err error
		if section, err = cfg.LoadPeerParamsFile(config.PeerParamsFile()); err != nil {
			return err
		}
	}
	params, err := flowcontrol.ParamsFromConfig(section)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(paramsJSON(params), "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

type messageCostJSON struct {
	Base    int64 `json:"base"`
	PerItem int64 `json:"per_item"`
}

type flowControlParamsJSON struct {
	BufferLimit  int64                      `json:"buffer_limit"`
	RechargeRate int64                      `json:"recharge_rate"`
	MessageCosts map[string]messageCostJSON `json:"message_costs"`
}

func paramsJSON(p *flowcontrol.Params) flowControlParamsJSON {
	costs := make(map[string]messageCostJSON, len(p.MessageCosts))
	for kind, mc := range p.MessageCosts {
		costs[kind] = messageCostJSON{Base: mc.Base, PerItem: mc.PerItem}
	}
	return flowControlParamsJSON{
		BufferLimit:  p.BufferLimit,
		RechargeRate: p.RechargeRate,
		MessageCosts: costs,
	}
}

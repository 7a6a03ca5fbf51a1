package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	cmtos "github.com/cometbft/flowcontrol/internal/os"
)

// LoadPeerParamsFile decodes parameters a peer announced in its handshake
// from a standalone TOML file laid out like the [flow_control] section:
//
//	buffer_limit = 300000000
//	recharge_rate = 10000
//
//	[[message_costs]]
//	kind = "GetBlockHeaders"
//	base = 1000
//	per_item = 1000
//
// Unknown keys are rejected so that a typo can't silently fall back to zero.
func LoadPeerParamsFile(path string) (*FlowControlConfig, error) {
	var params FlowControlConfig
	md, err := toml.DecodeFile(path, &params)
	if err != nil {
		return nil, fmt.Errorf("decoding peer params %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, fmt.Errorf("peer params %s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	if err := params.ValidateBasic(); err != nil {
		return nil, fmt.Errorf("peer params %s: %w", path, err)
	}
	return &params, nil
}

// WritePeerParamsFile encodes params to path in the LoadPeerParamsFile layout.
func WritePeerParamsFile(path string, params *FlowControlConfig) error {
	var sb strings.Builder
	if err := toml.NewEncoder(&sb).Encode(params); err != nil {
		return err
	}
	return cmtos.WriteFile(path, []byte(sb.String()), 0o644)
}

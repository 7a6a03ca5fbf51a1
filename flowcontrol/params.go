package flowcontrol

import (
	"fmt"
	"math"
	"sort"

	"golang.org/x/exp/maps"

	"github.com/cometbft/flowcontrol/config"
)

// MessageCost prices one kind of request.
type MessageCost struct {
	Base    int64
	PerItem int64
}

// Cost returns Base + PerItem*count, saturating at math.MaxInt64.
func (mc MessageCost) Cost(count int64) int64 {
	if count > 0 && mc.PerItem > 0 && count > (math.MaxInt64-mc.Base)/mc.PerItem {
		return math.MaxInt64
	}
	return mc.Base + mc.PerItem*count
}

// Params are the credit parameters of one side of a connection: our own for
// the outbound ledger, the ones a peer announced for the inbound ledger.
type Params struct {
	// Maximum balance a ledger entry may hold.
	BufferLimit int64
	// Credits recovered per millisecond.
	RechargeRate int64
	// Message kind -> cost.
	MessageCosts map[string]MessageCost
}

// DefaultParams returns the parameters of config.DefaultFlowControlConfig.
func DefaultParams() *Params {
	params, err := ParamsFromConfig(config.DefaultFlowControlConfig())
	if err != nil {
		panic(err)
	}
	return params
}

// ParamsFromConfig builds validated Params from a config section or a
// decoded peer params file.
func ParamsFromConfig(cfg *config.FlowControlConfig) (*Params, error) {
	if err := cfg.ValidateBasic(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}
	p := &Params{
		BufferLimit:  cfg.BufferLimit,
		RechargeRate: cfg.RechargeRate,
		MessageCosts: make(map[string]MessageCost, len(cfg.MessageCosts)),
	}
	for _, mc := range cfg.MessageCosts {
		p.MessageCosts[mc.Kind] = MessageCost{Base: mc.Base, PerItem: mc.PerItem}
	}
	return p, nil
}

// ToConfig is the inverse of ParamsFromConfig. Message costs are sorted by
// kind.
func (p *Params) ToConfig() *config.FlowControlConfig {
	cfg := &config.FlowControlConfig{
		BufferLimit:  p.BufferLimit,
		RechargeRate: p.RechargeRate,
		MessageCosts: make([]config.MessageCostConfig, 0, len(p.MessageCosts)),
	}
	for _, kind := range p.Kinds() {
		mc := p.MessageCosts[kind]
		cfg.MessageCosts = append(cfg.MessageCosts, config.MessageCostConfig{
			Kind:    kind,
			Base:    mc.Base,
			PerItem: mc.PerItem,
		})
	}
	return cfg
}

// ValidateBasic performs basic validation. The checks are those of
// config.FlowControlConfig.ValidateBasic.
func (p *Params) ValidateBasic() error {
	if err := p.ToConfig().ValidateBasic(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}
	return nil
}

// MessageCost looks up the cost of kind.
func (p *Params) MessageCost(kind string) (MessageCost, bool) {
	mc, ok := p.MessageCosts[kind]
	return mc, ok
}

// Kinds returns the priced message kinds in lexical order.
func (p *Params) Kinds() []string {
	kinds := maps.Keys(p.MessageCosts)
	sort.Strings(kinds)
	return kinds
}

// Copy returns a deep copy.
func (p *Params) Copy() *Params {
	cp := *p
	cp.MessageCosts = maps.Clone(p.MessageCosts)
	return &cp
}

package config

import (
	"errors"
	"fmt"
	"path/filepath"
)

const (
	// LogFormatPlain is a format for colored text.
	LogFormatPlain = "plain"
	// LogFormatJSON is a format for json output.
	LogFormatJSON = "json"

	// DefaultLogLevel defines a default log level as INFO.
	DefaultLogLevel = "info"

	// DefaultMessageKind is the header fetch request, the only kind every
	// peer is expected to price.
	DefaultMessageKind = "GetBlockHeaders"

	DefaultFlowControlDir = ".flowctl"
	DefaultConfigDir      = "config"
	DefaultDataDir        = "data"

	DefaultConfigFileName     = "config.toml"
	DefaultPeerParamsFileName = "peer_params.toml"
)

var (
	defaultConfigFilePath     = filepath.Join(DefaultConfigDir, DefaultConfigFileName)
	defaultPeerParamsFilePath = filepath.Join(DefaultConfigDir, DefaultPeerParamsFileName)
)

// Config defines the top level configuration for a flowctl node.
type Config struct {
	// Top level options use an anonymous struct
	BaseConfig `mapstructure:",squash"`

	// Options for services
	FlowControl     *FlowControlConfig     `mapstructure:"flow_control"`
	Instrumentation *InstrumentationConfig `mapstructure:"instrumentation"`
}

// DefaultConfig returns a default configuration for a flowctl node.
func DefaultConfig() *Config {
	return &Config{
		BaseConfig:      DefaultBaseConfig(),
		FlowControl:     DefaultFlowControlConfig(),
		Instrumentation: DefaultInstrumentationConfig(),
	}
}

// TestConfig returns a configuration that can be used for testing.
func TestConfig() *Config {
	return &Config{
		BaseConfig:      TestBaseConfig(),
		FlowControl:     TestFlowControlConfig(),
		Instrumentation: TestInstrumentationConfig(),
	}
}

// SetRoot sets the RootDir for all Config structs.
func (cfg *Config) SetRoot(root string) *Config {
	cfg.BaseConfig.RootDir = root
	return cfg
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *Config) ValidateBasic() error {
	if err := cfg.BaseConfig.ValidateBasic(); err != nil {
		return err
	}
	if err := cfg.FlowControl.ValidateBasic(); err != nil {
		return ErrInSection{Section: "flow_control", Err: err}
	}
	if err := cfg.Instrumentation.ValidateBasic(); err != nil {
		return ErrInSection{Section: "instrumentation", Err: err}
	}
	return nil
}

// -----------------------------------------------------------------------------
// BaseConfig

// BaseConfig defines the base configuration for a flowctl node.
type BaseConfig struct {
	// The root directory for all data.
	// This should be set in viper so it can unmarshal into this struct
	RootDir string `mapstructure:"home"`

	// A custom human readable name for this node
	Moniker string `mapstructure:"moniker"`

	// Output level for logging
	LogLevel string `mapstructure:"log_level"`

	// Output format: 'plain' (colored text) or 'json'
	LogFormat string `mapstructure:"log_format"`

	// Colored log output. Only used with the plain format.
	LogColors bool `mapstructure:"log_colors"`

	// Path to a TOML file holding the parameters a remote peer announced
	// during its handshake.
	PeerParams string `mapstructure:"peer_params_file"`
}

// DefaultBaseConfig returns a default base configuration for a flowctl node.
func DefaultBaseConfig() BaseConfig {
	return BaseConfig{
		Moniker:    "anonymous",
		LogLevel:   DefaultLogLevel,
		LogFormat:  LogFormatPlain,
		LogColors:  true,
		PeerParams: defaultPeerParamsFilePath,
	}
}

// TestBaseConfig returns a base configuration for testing a flowctl node.
func TestBaseConfig() BaseConfig {
	cfg := DefaultBaseConfig()
	cfg.Moniker = "test"
	cfg.LogColors = false
	return cfg
}

// PeerParamsFile returns the full path to the peer parameters file.
func (cfg BaseConfig) PeerParamsFile() string {
	return rootify(cfg.PeerParams, cfg.RootDir)
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg BaseConfig) ValidateBasic() error {
	switch cfg.LogFormat {
	case LogFormatPlain, LogFormatJSON:
	default:
		return ErrUnknownLogFormat
	}
	return nil
}

// -----------------------------------------------------------------------------
// FlowControlConfig

// MessageCostConfig prices one kind of request: a fixed Base plus PerItem for
// every requested item.
type MessageCostConfig struct {
	Kind    string `mapstructure:"kind" toml:"kind"`
	Base    int64  `mapstructure:"base" toml:"base"`
	PerItem int64  `mapstructure:"per_item" toml:"per_item"`
}

// FlowControlConfig holds the credit parameters. The same shape is used for
// the local node's own parameters and for parameters a peer announced.
type FlowControlConfig struct {
	// Maximum buffer value any peer ledger can hold.
	BufferLimit int64 `mapstructure:"buffer_limit" toml:"buffer_limit"`

	// Credits recovered per millisecond.
	RechargeRate int64 `mapstructure:"recharge_rate" toml:"recharge_rate"`

	// Cost table. Kinds are matched case sensitively.
	MessageCosts []MessageCostConfig `mapstructure:"message_costs" toml:"message_costs"`
}

// DefaultFlowControlConfig returns the parameters a light client server
// announces by default.
func DefaultFlowControlConfig() *FlowControlConfig {
	return &FlowControlConfig{
		BufferLimit:  300_000_000,
		RechargeRate: 10_000,
		MessageCosts: []MessageCostConfig{
			{Kind: DefaultMessageKind, Base: 1000, PerItem: 1000},
		},
	}
}

// TestFlowControlConfig returns a small buffer so that tests can exhaust it
// with a handful of requests.
func TestFlowControlConfig() *FlowControlConfig {
	return &FlowControlConfig{
		BufferLimit:  100_000,
		RechargeRate: 10,
		MessageCosts: []MessageCostConfig{
			{Kind: DefaultMessageKind, Base: 1000, PerItem: 1000},
		},
	}
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *FlowControlConfig) ValidateBasic() error {
	if cfg.BufferLimit <= 0 {
		return errors.New("buffer_limit must be positive")
	}
	if cfg.RechargeRate < 0 {
		return errors.New("recharge_rate can't be negative")
	}
	if len(cfg.MessageCosts) == 0 {
		return ErrEmptyMessageCosts
	}
	seen := make(map[string]struct{}, len(cfg.MessageCosts))
	for i, mc := range cfg.MessageCosts {
		if mc.Kind == "" {
			return fmt.Errorf("message_costs[%d]: empty kind", i)
		}
		if _, ok := seen[mc.Kind]; ok {
			return ErrDuplicateMessageKind{Kind: mc.Kind}
		}
		seen[mc.Kind] = struct{}{}
		if mc.Base < 0 {
			return fmt.Errorf("message_costs[%d] (%s): base can't be negative", i, mc.Kind)
		}
		if mc.PerItem <= 0 {
			return fmt.Errorf("message_costs[%d] (%s): per_item must be positive", i, mc.Kind)
		}
	}
	return nil
}

// -----------------------------------------------------------------------------
// InstrumentationConfig

// InstrumentationConfig defines the configuration for metrics reporting.
type InstrumentationConfig struct {
	// When true, Prometheus metrics are served under /metrics on
	// PrometheusListenAddr.
	// Check out the documentation for the list of available metrics.
	Prometheus bool `mapstructure:"prometheus"`

	// Address to listen for Prometheus collector(s) connections.
	PrometheusListenAddr string `mapstructure:"prometheus_listen_addr"`

	// Instrumentation namespace.
	Namespace string `mapstructure:"namespace"`
}

// DefaultInstrumentationConfig returns a default configuration for metrics
// reporting.
func DefaultInstrumentationConfig() *InstrumentationConfig {
	return &InstrumentationConfig{
		Prometheus:           false,
		PrometheusListenAddr: ":26660",
		Namespace:            "flowctl",
	}
}

// TestInstrumentationConfig returns a default configuration for metrics
// reporting.
func TestInstrumentationConfig() *InstrumentationConfig {
	return DefaultInstrumentationConfig()
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *InstrumentationConfig) ValidateBasic() error {
	if cfg.Prometheus && cfg.PrometheusListenAddr == "" {
		return errors.New("prometheus_listen_addr can't be empty when prometheus is enabled")
	}
	return nil
}

// IsPrometheusEnabled returns true if Prometheus metrics are enabled.
func (cfg *InstrumentationConfig) IsPrometheusEnabled() bool {
	return cfg.Prometheus && cfg.PrometheusListenAddr != ""
}

// -----------------------------------------------------------------------------
// Utils

// helper function to make config creation independent of root dir.
func rootify(path, root string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}

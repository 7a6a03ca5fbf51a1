package flowcontrol

import (
	"github.com/go-kit/kit/metrics"
)

const (
	// MetricsSubsystem is a subsystem shared by all metrics exposed by this
	// package.
	MetricsSubsystem = "flowcontrol"
)

//go:generate go run ../scripts/metricsgen -struct=Metrics

// Metrics contains metrics exposed by this package.
type Metrics struct {
	// Number of peers with an entry in the inbound or outbound ledger.
	Peers metrics.Gauge `metrics_labels:"ledger"`
	// Credits charged to peers for the requests we served.
	ChargedCredits metrics.Counter `metrics_labels:"message_kind"`
	// Number of times a peer went over its buffer value and had to be
	// dropped.
	DroppedPeers metrics.Counter
	// Number of request budget queries that allowed zero items.
	ExhaustedBudgets metrics.Counter `metrics_labels:"message_kind"`
}

package flowcontrol

import (
	"fmt"
	"time"

	"github.com/cometbft/flowcontrol/libs/log"
	"github.com/cometbft/flowcontrol/p2p"
	cmttime "github.com/cometbft/flowcontrol/types/time"
)

const (
	ledgerInbound  = "inbound"
	ledgerOutbound = "outbound"
)

// FlowController keeps the outbound and inbound buffer value ledgers of every
// connected peer. It is safe for concurrent use.
type FlowController struct {
	params *Params

	// credit we grant peers for the requests they send us
	out *ledger
	// credit we estimate peers have left for requests we send them
	in *ledger

	timeSource cmttime.Source
	logger     log.Logger
	metrics    *Metrics
}

// Option sets an optional parameter on the FlowController.
type Option func(*FlowController)

// WithTimeSource sets the clock recharges are measured with.
func WithTimeSource(source cmttime.Source) Option {
	return func(fc *FlowController) { fc.timeSource = source }
}

// WithLogger sets the logger.
func WithLogger(logger log.Logger) Option {
	return func(fc *FlowController) { fc.logger = logger }
}

// WithMetrics sets the metrics.
func WithMetrics(metrics *Metrics) Option {
	return func(fc *FlowController) { fc.metrics = metrics }
}

// NewFlowController returns a controller serving peers with the given local
// params. The params are copied.
func NewFlowController(params *Params, options ...Option) (*FlowController, error) {
	if err := params.ValidateBasic(); err != nil {
		return nil, err
	}
	fc := &FlowController{
		params:     params.Copy(),
		out:        newLedger(),
		in:         newLedger(),
		timeSource: cmttime.DefaultSource{},
		logger:     log.NewNopLogger(),
		metrics:    NopMetrics(),
	}
	for _, option := range options {
		option(fc)
	}
	return fc, nil
}

// Params returns a copy of the local params.
func (fc *FlowController) Params() *Params {
	return fc.params.Copy()
}

// RecordAnnouncement overwrites our estimate of peerID's buffer value with bv,
// the value the peer reported in a reply. No recharge is applied: the
// announced value supersedes whatever we computed locally.
func (fc *FlowController) RecordAnnouncement(peerID p2p.ID, bv int64) {
	now := fc.timeSource.Now()

	e := fc.in.acquire(peerID, func() *ledgerEntry { return newLedgerEntry(bv) })
	e.balance = bv
	e.touch(now)
	e.mtx.Unlock()

	fc.logger.Debug("Recorded announced buffer value", "peer", peerID, "bv", bv)
	fc.updatePeersGauge()
}

// MaxRequestCount returns how many items of kind we may request from peer
// right now without exceeding its estimated buffer value. The estimate is
// recharged with the params the peer announced (see SetPeerParams) and the
// recharge is persisted.
//
// A zero result means the peer is about exhausted. Enforcing it is up to the
// caller.
func (fc *FlowController) MaxRequestCount(peer Peer, kind string) (int64, error) {
	params, mc, err := fc.announcedCost(peer, kind)
	if err != nil {
		return 0, err
	}

	balance := fc.refreshInbound(peer.ID(), params)
	if balance <= mc.Base {
		fc.metrics.ExhaustedBudgets.With("message_kind", kind).Add(1)
		return 0, nil
	}
	return (balance - mc.Base) / mc.PerItem, nil
}

// WaitTime returns how long to wait before count items of kind can be
// requested from peer, zero if they can be requested right away. It refreshes
// the estimate like MaxRequestCount does.
func (fc *FlowController) WaitTime(peer Peer, kind string, count int64) (time.Duration, error) {
	if count < 0 {
		return 0, ErrNegativeItemCount
	}
	params, mc, err := fc.announcedCost(peer, kind)
	if err != nil {
		return 0, err
	}
	cost := mc.Cost(count)
	if cost > params.BufferLimit {
		return 0, fmt.Errorf("%w: %d items of %s cost %d, peer %s limit is %d",
			ErrCostExceedsLimit, count, kind, cost, peer.ID(), params.BufferLimit)
	}

	balance := fc.refreshInbound(peer.ID(), params)
	if balance >= cost {
		return 0, nil
	}
	if params.RechargeRate == 0 {
		return 0, fmt.Errorf("%w: peer %s never recharges", ErrCostExceedsLimit, peer.ID())
	}
	return timeToRecharge(uint64(cost)-uint64(balance), params.RechargeRate), nil
}

func (fc *FlowController) announcedCost(peer Peer, kind string) (*Params, MessageCost, error) {
	params, err := PeerParams(peer)
	if err != nil {
		return nil, MessageCost{}, fmt.Errorf("peer %s: %w", peer.ID(), err)
	}
	mc, ok := params.MessageCost(kind)
	if !ok {
		return nil, MessageCost{}, ErrUnknownKind{Kind: kind, Peer: peer.ID()}
	}
	return params, mc, nil
}

// refreshInbound recharges the inbound entry of peerID up to now, creating a
// full one if there is none, and returns the balance.
func (fc *FlowController) refreshInbound(peerID p2p.ID, params *Params) int64 {
	now := fc.timeSource.Now()

	e := fc.in.acquire(peerID, func() *ledgerEntry { return newLedgerEntry(params.BufferLimit) })
	e.balance = e.recharged(now, params.RechargeRate, params.BufferLimit)
	e.touch(now)
	balance := e.balance
	e.mtx.Unlock()

	fc.updatePeersGauge()
	return balance
}

// ChargeRequest charges peerID for a request of count items of kind that we
// are about to serve, and returns the peer's new buffer value.
//
// A negative return value means the peer went over the budget we granted it
// and must be disconnected; its entry has already been removed, so if it
// ever comes back it starts with a full buffer. The controller doesn't
// disconnect anyone itself.
func (fc *FlowController) ChargeRequest(peerID p2p.ID, kind string, count int64) (int64, error) {
	if count < 0 {
		return 0, ErrNegativeItemCount
	}
	mc, ok := fc.params.MessageCost(kind)
	if !ok {
		return 0, ErrUnknownKind{Kind: kind}
	}
	cost := mc.Cost(count)
	now := fc.timeSource.Now()

	e := fc.out.acquire(peerID, func() *ledgerEntry { return newLedgerEntry(fc.params.BufferLimit) })
	// a brand new entry has no timestamp and is not recharged
	bv := e.recharged(now, fc.params.RechargeRate, fc.params.BufferLimit) - cost
	e.balance = bv
	e.touch(now)
	if bv < 0 {
		fc.out.drop(peerID, e)
	}
	e.mtx.Unlock()

	fc.metrics.ChargedCredits.With("message_kind", kind).Add(float64(cost))
	if bv < 0 {
		fc.metrics.DroppedPeers.Add(1)
		fc.logger.Info("Peer exceeded its buffer value", "peer", peerID, "kind", kind, "count", count, "bv", bv)
	} else {
		fc.logger.Debug("Charged request", "peer", peerID, "kind", kind, "count", count, "cost", cost, "bv", bv)
	}
	fc.updatePeersGauge()
	return bv, nil
}

// BufferValue returns the outbound buffer value of peerID as of now, the
// value to report back to the peer in a reply. It does not modify the
// ledger. A peer without an entry has a full buffer and ok is false.
func (fc *FlowController) BufferValue(peerID p2p.ID) (bv int64, ok bool) {
	now := fc.timeSource.Now()

	e := fc.out.peek(peerID)
	if e == nil {
		return fc.params.BufferLimit, false
	}
	defer e.mtx.Unlock()
	return e.recharged(now, fc.params.RechargeRate, fc.params.BufferLimit), true
}

// RemovePeer forgets everything about peerID. It must be called when a peer
// disconnects, otherwise its entries linger until the process exits.
func (fc *FlowController) RemovePeer(peerID p2p.ID) {
	removedOut := fc.out.remove(peerID)
	removedIn := fc.in.remove(peerID)
	if removedOut || removedIn {
		fc.logger.Debug("Removed peer", "peer", peerID)
	}
	fc.updatePeersGauge()
}

// NumPeers returns the number of entries in each ledger.
func (fc *FlowController) NumPeers() (inbound, outbound int) {
	return fc.in.size(), fc.out.size()
}

func (fc *FlowController) updatePeersGauge() {
	in, out := fc.NumPeers()
	fc.metrics.Peers.With("ledger", ledgerInbound).Set(float64(in))
	fc.metrics.Peers.With("ledger", ledgerOutbound).Set(float64(out))
}

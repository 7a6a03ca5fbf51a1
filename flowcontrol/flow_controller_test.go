package flowcontrol

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cometbft/flowcontrol/config"
	"github.com/cometbft/flowcontrol/p2p"
	"github.com/cometbft/flowcontrol/p2p/mock"
	cmttime "github.com/cometbft/flowcontrol/types/time"
	"github.com/cometbft/flowcontrol/types/time/mocks"
)

const headers = config.DefaultMessageKind

var genesisTime = time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestController(t *testing.T) (*FlowController, *cmttime.MockableSource) {
	t.Helper()
	clock := cmttime.NewMockableSource(genesisTime)
	fc, err := NewFlowController(DefaultParams(), WithTimeSource(clock))
	require.NoError(t, err)
	return fc, clock
}

func newAnnouncingPeer(params *Params) *mock.Peer {
	peer := mock.NewPeer("")
	SetPeerParams(peer, params)
	return peer
}

func TestMaxRequestCountFreshPeer(t *testing.T) {
	fc, _ := newTestController(t)
	peer := newAnnouncingPeer(DefaultParams())

	n, err := fc.MaxRequestCount(peer, headers)
	require.NoError(t, err)
	// (300,000,000 - 1000) / 1000
	assert.EqualValues(t, 299_999, n)

	in, out := fc.NumPeers()
	assert.Equal(t, 1, in, "querying creates the inbound entry")
	assert.Equal(t, 0, out)
}

func TestMaxRequestCountIsIdempotentWithoutElapsedTime(t *testing.T) {
	fc, _ := newTestController(t)
	peer := newAnnouncingPeer(DefaultParams())

	fc.RecordAnnouncement(peer.ID(), 123_456)
	first, err := fc.MaxRequestCount(peer, headers)
	require.NoError(t, err)
	second, err := fc.MaxRequestCount(peer, headers)
	require.NoError(t, err)

	assert.EqualValues(t, 122, first)
	assert.Equal(t, first, second)
}

func TestRecordAnnouncementOverridesEstimate(t *testing.T) {
	fc, clock := newTestController(t)
	params := DefaultParams()
	peer := newAnnouncingPeer(params)

	_, err := fc.MaxRequestCount(peer, headers)
	require.NoError(t, err)

	// No recharge is applied on announcement, however long ago the last
	// estimate was made.
	clock.Advance(time.Hour)
	fc.RecordAnnouncement(peer.ID(), 5000)
	n, err := fc.MaxRequestCount(peer, headers)
	require.NoError(t, err)
	assert.EqualValues(t, 4, n)

	// 1ms later the peer recharged 10,000 credits
	clock.Advance(time.Millisecond)
	n, err = fc.MaxRequestCount(peer, headers)
	require.NoError(t, err)
	assert.EqualValues(t, 14, n)
}

func TestMaxRequestCountNeverNegative(t *testing.T) {
	fc, _ := newTestController(t)
	peer := newAnnouncingPeer(DefaultParams())

	for _, bv := range []int64{1000, 999, 0, -1_000_000} {
		fc.RecordAnnouncement(peer.ID(), bv)
		n, err := fc.MaxRequestCount(peer, headers)
		require.NoError(t, err)
		assert.Zero(t, n, "bv %d", bv)
	}
}

func TestMaxRequestCountUsesAnnouncedParams(t *testing.T) {
	fc, clock := newTestController(t)

	announced := &Params{
		BufferLimit:  50_000,
		RechargeRate: 1,
		MessageCosts: map[string]MessageCost{headers: {Base: 100, PerItem: 10}},
	}
	peer := newAnnouncingPeer(announced)

	n, err := fc.MaxRequestCount(peer, headers)
	require.NoError(t, err)
	assert.EqualValues(t, (50_000-100)/10, n)

	fc.RecordAnnouncement(peer.ID(), 100)
	clock.Advance(200 * time.Millisecond)
	n, err = fc.MaxRequestCount(peer, headers)
	require.NoError(t, err)
	assert.EqualValues(t, 20, n, "recharged at the announced rate of 1 credit/ms")

	// a week later the estimate is capped at the announced limit, not ours
	clock.Advance(7 * 24 * time.Hour)
	n, err = fc.MaxRequestCount(peer, headers)
	require.NoError(t, err)
	assert.EqualValues(t, (50_000-100)/10, n)
}

func TestMaxRequestCountErrors(t *testing.T) {
	fc, _ := newTestController(t)

	_, err := fc.MaxRequestCount(mock.NewPeer(""), headers)
	require.ErrorIs(t, err, ErrNoAnnouncedParams)

	peer := newAnnouncingPeer(DefaultParams())
	_, err = fc.MaxRequestCount(peer, "GetReceipts")
	require.ErrorIs(t, err, ErrUnknownMessageKind)

	var kindErr ErrUnknownKind
	require.True(t, errors.As(err, &kindErr))
	assert.Equal(t, "GetReceipts", kindErr.Kind)
	assert.Equal(t, peer.ID(), kindErr.Peer)

	in, _ := fc.NumPeers()
	assert.Zero(t, in, "failed queries must not create entries")
}

func TestInvalidAnnouncedParamsAreRejected(t *testing.T) {
	testCases := map[string]*Params{
		"zero per item": {
			BufferLimit:  1000,
			RechargeRate: 1,
			MessageCosts: map[string]MessageCost{headers: {Base: 10, PerItem: 0}},
		},
		"negative per item": {
			BufferLimit:  1000,
			RechargeRate: 1,
			MessageCosts: map[string]MessageCost{headers: {Base: 10, PerItem: -5}},
		},
		"zero limit": {
			MessageCosts: map[string]MessageCost{headers: {Base: 10, PerItem: 1}},
		},
		"no costs": {BufferLimit: 1000},
	}
	for name, announced := range testCases {
		t.Run(name, func(t *testing.T) {
			fc, _ := newTestController(t)
			peer := newAnnouncingPeer(announced)

			require.NotPanics(t, func() {
				_, err := fc.MaxRequestCount(peer, headers)
				assert.ErrorIs(t, err, ErrInvalidParams)

				_, err = fc.WaitTime(peer, headers, 5)
				assert.ErrorIs(t, err, ErrInvalidParams)
			})

			in, _ := fc.NumPeers()
			assert.Zero(t, in)
		})
	}
}

func TestChargeRequestFreshPeer(t *testing.T) {
	fc, _ := newTestController(t)
	id := p2p.RandomID()

	bv, err := fc.ChargeRequest(id, headers, 100)
	require.NoError(t, err)
	assert.EqualValues(t, 300_000_000-1000-100_000, bv)

	got, ok := fc.BufferValue(id)
	require.True(t, ok)
	assert.EqualValues(t, 299_899_000, got)
}

func TestChargeRequestDropThenReset(t *testing.T) {
	fc, _ := newTestController(t)
	id := p2p.RandomID()

	bv, err := fc.ChargeRequest(id, headers, 300_000)
	require.NoError(t, err)
	assert.EqualValues(t, 300_000_000-1000-300_000_000, bv)
	assert.Negative(t, bv)

	_, ok := fc.BufferValue(id)
	assert.False(t, ok, "entry must be removed on a negative balance")
	_, out := fc.NumPeers()
	assert.Zero(t, out)

	// The next charge starts from a full buffer, not from the negative value.
	bv, err = fc.ChargeRequest(id, headers, 100)
	require.NoError(t, err)
	assert.EqualValues(t, 299_899_000, bv)
}

func TestChargeRequestDeductsFromRechargedBalance(t *testing.T) {
	fc, clock := newTestController(t)
	id := p2p.RandomID()

	bv, err := fc.ChargeRequest(id, headers, 10_000)
	require.NoError(t, err)
	require.EqualValues(t, 300_000_000-1000-10_000_000, bv)

	clock.Advance(50 * time.Millisecond) // +500,000
	bv2, err := fc.ChargeRequest(id, headers, 1)
	require.NoError(t, err)
	assert.EqualValues(t, bv+500_000-2000, bv2)
}

func TestChargeRequestZeroBalanceIsKept(t *testing.T) {
	clock := cmttime.NewMockableSource(genesisTime)
	fc, err := NewFlowController(&Params{
		BufferLimit:  10_000,
		RechargeRate: 1,
		MessageCosts: map[string]MessageCost{headers: {Base: 0, PerItem: 1000}},
	}, WithTimeSource(clock))
	require.NoError(t, err)
	id := p2p.RandomID()

	bv, err := fc.ChargeRequest(id, headers, 10)
	require.NoError(t, err)
	require.Zero(t, bv)

	// An exactly exhausted buffer is not a violation and keeps recharging
	// from zero rather than restarting full.
	clock.Advance(3 * time.Millisecond)
	got, ok := fc.BufferValue(id)
	require.True(t, ok)
	assert.EqualValues(t, 3, got)
}

func TestRechargeThenRecover(t *testing.T) {
	fc, clock := newTestController(t)
	params := fc.Params()
	id := p2p.RandomID()

	// 1000 + 99,999*1000 = 100,000,000 credits, 10,000ms worth of recharge
	bv, err := fc.ChargeRequest(id, headers, 99_999)
	require.NoError(t, err)
	require.EqualValues(t, 200_000_000, bv)

	deficit := params.BufferLimit - bv
	require.Zero(t, deficit%params.RechargeRate)
	clock.Advance(time.Duration(deficit/params.RechargeRate)*time.Millisecond - time.Millisecond)
	got, _ := fc.BufferValue(id)
	require.Equal(t, params.BufferLimit-params.RechargeRate, got)

	clock.Advance(time.Millisecond)
	got, ok := fc.BufferValue(id)
	require.True(t, ok)
	assert.Equal(t, params.BufferLimit, got)

	clock.Advance(time.Hour)
	got, _ = fc.BufferValue(id)
	assert.Equal(t, params.BufferLimit, got, "never exceeds the buffer limit")
}

func TestBufferValueDoesNotMutate(t *testing.T) {
	fc, clock := newTestController(t)
	id := p2p.RandomID()

	_, err := fc.ChargeRequest(id, headers, 1000)
	require.NoError(t, err)

	clock.Advance(10 * time.Millisecond)
	first, _ := fc.BufferValue(id)
	second, _ := fc.BufferValue(id)
	assert.Equal(t, first, second)

	// the charge recharges from the last charge, not from the peek
	bv, err := fc.ChargeRequest(id, headers, 0)
	require.NoError(t, err)
	assert.Equal(t, first-1000, bv)

	bv, ok := fc.BufferValue(p2p.RandomID())
	assert.False(t, ok)
	assert.EqualValues(t, 300_000_000, bv)
}

func TestChargeRequestErrors(t *testing.T) {
	fc, _ := newTestController(t)
	id := p2p.RandomID()

	_, err := fc.ChargeRequest(id, "GetReceipts", 1)
	require.ErrorIs(t, err, ErrUnknownMessageKind)
	var kindErr ErrUnknownKind
	require.True(t, errors.As(err, &kindErr))
	assert.Empty(t, kindErr.Peer)

	_, err = fc.ChargeRequest(id, headers, -1)
	require.ErrorIs(t, err, ErrNegativeItemCount)

	_, out := fc.NumPeers()
	assert.Zero(t, out)
}

func TestChargeRequestHugeCountSaturates(t *testing.T) {
	fc, _ := newTestController(t)
	id := p2p.RandomID()

	bv, err := fc.ChargeRequest(id, headers, 1<<62)
	require.NoError(t, err)
	assert.Negative(t, bv)
}

func TestClockMovingBackwards(t *testing.T) {
	fc, clock := newTestController(t)
	id := p2p.RandomID()

	bv, err := fc.ChargeRequest(id, headers, 1000)
	require.NoError(t, err)

	clock.Advance(-time.Minute)
	bv2, err := fc.ChargeRequest(id, headers, 0)
	require.NoError(t, err)
	assert.Equal(t, bv-1000, bv2, "no recharge and no penalty when time goes back")

	// lastUpdate stayed at the later time, so the minute is not credited twice
	clock.Advance(time.Minute + time.Millisecond)
	bv3, err := fc.ChargeRequest(id, headers, 0)
	require.NoError(t, err)
	assert.Equal(t, bv2+10_000-1000, bv3)
}

func TestRemovePeer(t *testing.T) {
	fc, _ := newTestController(t)
	peer := newAnnouncingPeer(DefaultParams())

	fc.RecordAnnouncement(peer.ID(), 10)
	_, err := fc.ChargeRequest(peer.ID(), headers, 1)
	require.NoError(t, err)

	in, out := fc.NumPeers()
	require.Equal(t, 1, in)
	require.Equal(t, 1, out)

	fc.RemovePeer(peer.ID())
	in, out = fc.NumPeers()
	assert.Zero(t, in)
	assert.Zero(t, out)

	// idempotent
	fc.RemovePeer(peer.ID())

	n, err := fc.MaxRequestCount(peer, headers)
	require.NoError(t, err)
	assert.EqualValues(t, 299_999, n, "a removed peer starts over with a full buffer")
}

func TestWaitTime(t *testing.T) {
	fc, clock := newTestController(t)
	peer := newAnnouncingPeer(DefaultParams())

	d, err := fc.WaitTime(peer, headers, 100)
	require.NoError(t, err)
	assert.Zero(t, d)

	fc.RecordAnnouncement(peer.ID(), 0)
	// 101,000 credits at 10,000/ms
	d, err = fc.WaitTime(peer, headers, 100)
	require.NoError(t, err)
	assert.Equal(t, 10100*time.Microsecond, d)

	clock.Advance(d)
	n, err := fc.MaxRequestCount(peer, headers)
	require.NoError(t, err)
	assert.EqualValues(t, 100, n)

	_, err = fc.WaitTime(peer, headers, 300_000)
	require.ErrorIs(t, err, ErrCostExceedsLimit)

	_, err = fc.WaitTime(peer, headers, -1)
	require.ErrorIs(t, err, ErrNegativeItemCount)
}

func TestWaitTimeWithoutRecharge(t *testing.T) {
	fc, _ := newTestController(t)
	params := DefaultParams()
	params.RechargeRate = 0
	peer := newAnnouncingPeer(params)

	fc.RecordAnnouncement(peer.ID(), 0)
	_, err := fc.WaitTime(peer, headers, 1)
	require.ErrorIs(t, err, ErrCostExceedsLimit)
}

func TestParamsAreCopied(t *testing.T) {
	params := DefaultParams()
	fc, err := NewFlowController(params)
	require.NoError(t, err)

	params.MessageCosts[headers] = MessageCost{Base: 1, PerItem: 1}
	got := fc.Params()
	assert.Equal(t, MessageCost{Base: 1000, PerItem: 1000}, got.MessageCosts[headers])
}

func TestNewFlowControllerRejectsInvalidParams(t *testing.T) {
	_, err := NewFlowController(&Params{BufferLimit: 0})
	require.ErrorIs(t, err, ErrInvalidParams)
}

func TestChargeRequestReadsClockOnce(t *testing.T) {
	source := mocks.NewSource(t)
	source.On("Now").Return(genesisTime).Once()

	fc, err := NewFlowController(DefaultParams(), WithTimeSource(source))
	require.NoError(t, err)

	_, err = fc.ChargeRequest(p2p.RandomID(), headers, 1)
	require.NoError(t, err)
}

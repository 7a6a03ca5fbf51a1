package flowcontrol

import (
	"fmt"

	"github.com/cometbft/flowcontrol/p2p"
)

// PeerParamsKey is the key under which handshake code stores the *Params a
// peer announced, using p2p.Peer.Set.
const PeerParamsKey = "FlowControl.announcedParams"

// Peer is the part of p2p.Peer the flow controller reads.
type Peer interface {
	ID() p2p.ID
	Get(key string) any
}

// SetPeerParams attaches params announced by peer during its handshake.
func SetPeerParams(peer p2p.Peer, params *Params) {
	peer.Set(PeerParamsKey, params)
}

// PeerParams returns the params attached with SetPeerParams. Params the peer
// announced are untrusted and are validated on every read.
func PeerParams(peer Peer) (*Params, error) {
	params, ok := peer.Get(PeerParamsKey).(*Params)
	if !ok || params == nil {
		return nil, ErrNoAnnouncedParams
	}
	if err := params.ValidateBasic(); err != nil {
		return nil, fmt.Errorf("announced params: %w", err)
	}
	return params, nil
}

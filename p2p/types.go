package p2p

import (
	"github.com/cometbft/flowcontrol/p2p/internal/nodekey"
)

// ID is the unique identifier for a peer.
type ID = nodekey.ID

// RandomID returns a fresh, well formed peer ID.
func RandomID() ID { return nodekey.RandomID() }

// Peer is the part of a connected peer the flow control layer needs: a stable
// identity and the key/value store handshake code attaches peer data to.
type Peer interface {
	ID() ID

	Get(key string) any
	Set(key string, value any)
}

package flowcontrol

import (
	"errors"
	"fmt"

	"github.com/cometbft/flowcontrol/p2p"
)

var (
	// ErrUnknownMessageKind is returned when a message kind has no entry in
	// the cost table that applies to the request.
	ErrUnknownMessageKind = errors.New("unknown message kind")
	// ErrNoAnnouncedParams is returned when the inbound ledger is queried
	// for a peer whose handshake parameters were never attached.
	ErrNoAnnouncedParams = errors.New("peer has not announced flow control parameters")
	ErrInvalidParams     = errors.New("invalid flow control parameters")
	ErrNegativeItemCount = errors.New("negative item count")
	// ErrCostExceedsLimit is returned by WaitTime when a request can never
	// fit the peer's buffer no matter how long we wait.
	ErrCostExceedsLimit = errors.New("request cost exceeds buffer limit")
)

// ErrUnknownKind carries the kind that could not be priced and, for the
// inbound ledger, the peer whose cost table lacks it.
type ErrUnknownKind struct {
	Kind string
	Peer p2p.ID
}

func (e ErrUnknownKind) Error() string {
	if e.Peer == "" {
		return fmt.Sprintf("unknown message kind %q in local cost table", e.Kind)
	}
	return fmt.Sprintf("unknown message kind %q in cost table announced by peer %s", e.Kind, e.Peer)
}

func (ErrUnknownKind) Unwrap() error {
	return ErrUnknownMessageKind
}

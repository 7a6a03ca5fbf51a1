package nodekey

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	cmtrand "github.com/cometbft/flowcontrol/libs/rand"
)

// ID is a hex-encoded node address.
type ID string

// IDByteLength is the length of a node address.
const IDByteLength = 20

// ErrEmptyID is returned by Validate for an empty ID.
var ErrEmptyID = errors.New("no ID")

// Validate checks that id is the lowercase hex encoding of an address of
// IDByteLength bytes.
func (id ID) Validate() error {
	if len(id) == 0 {
		return ErrEmptyID
	}
	if strings.ToLower(string(id)) != string(id) {
		return fmt.Errorf("invalid hex: ID %q must be lowercase", id)
	}
	idBytes, err := hex.DecodeString(string(id))
	if err != nil {
		return fmt.Errorf("invalid hex: %w", err)
	}
	if len(idBytes) != IDByteLength {
		return fmt.Errorf("invalid hex length - got %d, expected %d", len(idBytes), IDByteLength)
	}
	return nil
}

// RandomID returns a well formed ID not tied to any key. Used by the
// simulator and tests.
func RandomID() ID {
	return ID(hex.EncodeToString(cmtrand.Bytes(IDByteLength)))
}

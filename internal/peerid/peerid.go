// Package peerid generates the client's 20-byte BitTorrent peer-id and
// a per-run session id used only for log correlation.
package peerid

import (
	"crypto/rand"
	"fmt"

	"github.com/google/uuid"
)

// clientPrefix identifies this client per the Azureus-style
// convention: a dash, a two-letter client code, a four-digit version,
// a dash.
const clientPrefix = "-BL0001-"

// Generate returns a fresh random 20-byte peer-id.
func Generate() ([20]byte, error) {
	var id [20]byte
	copy(id[:], clientPrefix)

	tail := id[len(clientPrefix):]
	if _, err := rand.Read(tail); err != nil {
		return id, fmt.Errorf("peerid: generating random suffix: %w", err)
	}
	return id, nil
}

// NewSessionID returns a UUID used only to tag log lines for a single
// run of the engine; it has no meaning on the wire.
func NewSessionID() string {
	return uuid.NewString()
}

package wire

import "errors"

var (
	// ErrHandshakeMismatch is returned when the remote's handshake
	// carries a different info-hash than the one we sent.
	ErrHandshakeMismatch = errors.New("wire: handshake info-hash mismatch")

	// ErrProtocol covers any framing or message-level violation of the
	// peer wire protocol: unknown message ids, truncated fields, or an
	// unrecognized handshake preamble.
	ErrProtocol = errors.New("wire: protocol error")
)

package wire

import (
	"bytes"
	"fmt"
	"io"
)

const (
	protocolName  = "BitTorrent protocol"
	handshakeSize = 1 + len(protocolName) + 8 + 20 + 20
)

// Handshake is the fixed 68-byte preamble exchanged before any framed
// message. Reserved is always eight zero bytes in this client; it is
// kept so a received handshake can be inspected.
type Handshake struct {
	Reserved [8]byte
	InfoHash [20]byte
	PeerID   [20]byte
}

// Encode renders the handshake exactly as specified: length-prefixed
// protocol name, reserved bytes, info-hash, peer-id.
func (h Handshake) Encode() []byte {
	buf := make([]byte, 0, handshakeSize)
	buf = append(buf, byte(len(protocolName)))
	buf = append(buf, protocolName...)
	buf = append(buf, h.Reserved[:]...)
	buf = append(buf, h.InfoHash[:]...)
	buf = append(buf, h.PeerID[:]...)
	return buf
}

// WriteHandshake writes the 68-byte handshake to w.
func WriteHandshake(w io.Writer, infoHash, peerID [20]byte) error {
	h := Handshake{InfoHash: infoHash, PeerID: peerID}
	_, err := w.Write(h.Encode())
	return err
}

// ReadHandshake reads exactly 68 bytes from r and validates the
// protocol name and the returned info-hash against want. The
// remote's advertised peer-id is returned but never validated against
// a tracker-supplied value, since trackers may serve stale ids.
func ReadHandshake(r io.Reader, want [20]byte) (remotePeerID [20]byte, err error) {
	buf := make([]byte, handshakeSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return remotePeerID, fmt.Errorf("reading handshake: %w", err)
	}

	if buf[0] != byte(len(protocolName)) || !bytes.Equal(buf[1:1+len(protocolName)], []byte(protocolName)) {
		return remotePeerID, fmt.Errorf("%w: unrecognized protocol preamble", ErrProtocol)
	}

	var gotHash [20]byte
	copy(gotHash[:], buf[28:48])
	if gotHash != want {
		return remotePeerID, fmt.Errorf("%w: info-hash mismatch", ErrHandshakeMismatch)
	}

	copy(remotePeerID[:], buf[48:68])
	return remotePeerID, nil
}

// Package peer implements one peer wire-protocol session: handshake,
// framed message codec, and the per-peer reaction table that
// translates wire events into picker commands and picker commands
// into Request frames.
package peer

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"time"

	"bitleech/internal/bitfield"
	"bitleech/internal/bterr"
	"bitleech/internal/picker"
	"bitleech/internal/wire"
)

const (
	dialTimeout = 10 * time.Second
	ioDeadline  = 2 * time.Minute
)

// sessionState mirrors the four choke/interest flags from the design.
// We start unchoked+interested toward the peer; the peer starts
// choked+not-interested toward us.
type sessionState struct {
	amChoked       bool
	amInterested   bool
	peerChoked     bool
	peerInterested bool
}

func newSessionState() sessionState {
	return sessionState{
		amChoked:     false,
		amInterested: true,
		peerChoked:   true,
	}
}

// Session owns one TCP connection to one peer and runs as an
// independent goroutine. It terminates on any socket, handshake or
// protocol error without affecting any other session or the picker.
type Session struct {
	addr     string
	infoHash [20]byte
	clientID [20]byte
	numPieces int

	picker *picker.Picker
	log    *slog.Logger

	conn  net.Conn
	peer  netip.AddrPort
	state sessionState
}

// New constructs a session for a not-yet-connected peer address.
func New(addr string, infoHash, clientID [20]byte, numPieces int, pk *picker.Picker, log *slog.Logger) *Session {
	return &Session{
		addr:      addr,
		infoHash:  infoHash,
		clientID:  clientID,
		numPieces: numPieces,
		picker:    pk,
		log:       log,
		state:     newSessionState(),
	}
}

// Run dials the peer, performs the handshake, and services the wire
// protocol until the connection ends or a protocol error occurs. It
// never returns a fatal error to the caller: every failure here is
// local to this one peer, per the design's error-handling rules. The
// error is still returned so the supervisor can log it.
func (s *Session) Run() error {
	conn, err := net.DialTimeout("tcp", s.addr, dialTimeout)
	if err != nil {
		return bterr.Network(fmt.Errorf("dialing %s: %w", s.addr, err))
	}
	defer conn.Close()
	s.conn = conn

	if tcpAddr, ok := conn.RemoteAddr().(*net.TCPAddr); ok {
		s.peer = tcpAddr.AddrPort()
	} else {
		ap, parseErr := netip.ParseAddrPort(conn.RemoteAddr().String())
		if parseErr != nil {
			return bterr.Network(fmt.Errorf("resolving remote address %s: %w", s.addr, parseErr))
		}
		s.peer = ap
	}

	if err := s.handshake(); err != nil {
		return err
	}

	defer s.picker.PeerGone(s.peer)

	return s.loop()
}

func (s *Session) handshake() error {
	s.conn.SetDeadline(time.Now().Add(ioDeadline))
	if err := wire.WriteHandshake(s.conn, s.infoHash, s.clientID); err != nil {
		return bterr.Network(fmt.Errorf("sending handshake to %s: %w", s.addr, err))
	}

	remoteID, err := wire.ReadHandshake(s.conn, s.infoHash)
	if err != nil {
		if errors.Is(err, wire.ErrProtocol) || errors.Is(err, wire.ErrHandshakeMismatch) {
			return bterr.Protocol(fmt.Errorf("handshake with %s: %w", s.addr, err))
		}
		return bterr.Network(fmt.Errorf("handshake with %s: %w", s.addr, err))
	}

	s.log.Info("handshake ok", "peer", s.addr, "remote_peer_id", fmt.Sprintf("%x", remoteID))
	return nil
}

func (s *Session) loop() error {
	for {
		s.conn.SetReadDeadline(time.Now().Add(ioDeadline))
		msg, err := wire.ReadMessage(s.conn)
		if err != nil {
			if errors.Is(err, wire.ErrProtocol) {
				return bterr.Protocol(fmt.Errorf("reading from %s: %w", s.addr, err))
			}
			return bterr.Network(fmt.Errorf("reading from %s: %w", s.addr, err))
		}
		if msg == nil {
			continue // keep-alive
		}

		if err := s.react(msg); err != nil {
			return err
		}
	}
}

// react implements the per-peer reaction table from the design.
func (s *Session) react(msg *wire.Message) error {
	switch msg.ID {
	case wire.Bitfield:
		bf := bitfield.FromBytes(msg.Bits, s.numPieces)
		s.picker.NotifyBitfield(s.peer, bf)
		return s.send(wire.Message{ID: wire.Interested})

	case wire.Unchoke:
		s.state.peerChoked = false
		blocks := s.picker.PickInitial(s.peer)
		for _, b := range blocks {
			if b == nil {
				continue
			}
			if err := s.sendRequest(b); err != nil {
				return err
			}
		}
		return nil

	case wire.Choke:
		s.state.peerChoked = true
		return nil

	case wire.Interested:
		s.state.peerInterested = true
		return nil

	case wire.NotInterested:
		s.state.peerInterested = false
		return nil

	case wire.Have:
		s.picker.NotifyHave(s.peer, int(msg.Index))
		return nil

	case wire.Piece:
		s.picker.DeliverBlock(s.peer, int(msg.Index), msg.Begin, msg.Block)
		if b := s.picker.PickOne(s.peer); b != nil {
			return s.sendRequest(b)
		}
		return nil

	case wire.Request, wire.Cancel:
		// We never upload: ignored per the design (seeding is out of scope).
		return nil

	default:
		return bterr.Protocol(fmt.Errorf("unexpected message id %s from %s", msg.ID, s.addr))
	}
}

func (s *Session) sendRequest(b *picker.Block) error {
	return s.send(wire.Message{ID: wire.Request, Index: uint32(b.Piece), Begin: b.Begin, Length: b.Length})
}

func (s *Session) send(msg wire.Message) error {
	s.conn.SetWriteDeadline(time.Now().Add(ioDeadline))
	if err := wire.WriteMessage(s.conn, msg); err != nil {
		return bterr.Network(fmt.Errorf("writing %s to %s: %w", msg.ID, s.addr, err))
	}
	return nil
}

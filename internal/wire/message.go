package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// ID identifies a framed peer message.
type ID byte

const (
	Choke         ID = 0
	Unchoke       ID = 1
	Interested    ID = 2
	NotInterested ID = 3
	Have          ID = 4
	Bitfield      ID = 5
	Request       ID = 6
	Piece         ID = 7
	Cancel        ID = 8
)

// MaxMessageLength bounds a single frame to keep a misbehaving peer
// from forcing an unbounded allocation.
const MaxMessageLength = 1 << 20

// Message is a decoded frame. Only the fields relevant to ID are
// populated; callers switch on ID the way the reaction table in the
// design does.
type Message struct {
	ID     ID
	Index  uint32
	Begin  uint32
	Length uint32
	Bits   []byte // Bitfield
	Block  []byte // Piece
}

func (id ID) String() string {
	switch id {
	case Choke:
		return "Choke"
	case Unchoke:
		return "Unchoke"
	case Interested:
		return "Interested"
	case NotInterested:
		return "NotInterested"
	case Have:
		return "Have"
	case Bitfield:
		return "Bitfield"
	case Request:
		return "Request"
	case Piece:
		return "Piece"
	case Cancel:
		return "Cancel"
	default:
		return fmt.Sprintf("ID(%d)", byte(id))
	}
}

// Encode serializes the message as a length-prefixed frame: a 4-byte
// big-endian length followed by the id byte and any payload.
func (m Message) Encode() []byte {
	var payload []byte

	switch m.ID {
	case Choke, Unchoke, Interested, NotInterested:
		payload = nil
	case Have:
		payload = make([]byte, 4)
		binary.BigEndian.PutUint32(payload, m.Index)
	case Bitfield:
		payload = m.Bits
	case Request, Cancel:
		payload = make([]byte, 12)
		binary.BigEndian.PutUint32(payload[0:4], m.Index)
		binary.BigEndian.PutUint32(payload[4:8], m.Begin)
		binary.BigEndian.PutUint32(payload[8:12], m.Length)
	case Piece:
		payload = make([]byte, 8+len(m.Block))
		binary.BigEndian.PutUint32(payload[0:4], m.Index)
		binary.BigEndian.PutUint32(payload[4:8], m.Begin)
		copy(payload[8:], m.Block)
	}

	buf := make([]byte, 4+1+len(payload))
	binary.BigEndian.PutUint32(buf[0:4], uint32(1+len(payload)))
	buf[4] = byte(m.ID)
	copy(buf[5:], payload)
	return buf
}

// ReadMessage reads one frame from r. A zero-length frame (keep-alive)
// is reported by returning a nil *Message with a nil error; the
// caller simply loops again.
func ReadMessage(r io.Reader) (*Message, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	length := binary.BigEndian.Uint32(lenBuf[:])
	if length == 0 {
		return nil, nil
	}
	if length > MaxMessageLength {
		return nil, fmt.Errorf("%w: frame length %d exceeds maximum", ErrProtocol, length)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}

	return decode(ID(payload[0]), payload[1:])
}

func decode(id ID, payload []byte) (*Message, error) {
	switch id {
	case Choke, Unchoke, Interested, NotInterested:
		return &Message{ID: id}, nil
	case Have:
		if len(payload) != 4 {
			return nil, fmt.Errorf("%w: Have payload length %d, want 4", ErrProtocol, len(payload))
		}
		return &Message{ID: id, Index: binary.BigEndian.Uint32(payload)}, nil
	case Bitfield:
		bits := make([]byte, len(payload))
		copy(bits, payload)
		return &Message{ID: id, Bits: bits}, nil
	case Request, Cancel:
		if len(payload) != 12 {
			return nil, fmt.Errorf("%w: %s payload length %d, want 12", ErrProtocol, id, len(payload))
		}
		return &Message{
			ID:     id,
			Index:  binary.BigEndian.Uint32(payload[0:4]),
			Begin:  binary.BigEndian.Uint32(payload[4:8]),
			Length: binary.BigEndian.Uint32(payload[8:12]),
		}, nil
	case Piece:
		if len(payload) < 8 {
			return nil, fmt.Errorf("%w: Piece payload length %d, want >= 8", ErrProtocol, len(payload))
		}
		block := make([]byte, len(payload)-8)
		copy(block, payload[8:])
		return &Message{
			ID:    id,
			Index: binary.BigEndian.Uint32(payload[0:4]),
			Begin: binary.BigEndian.Uint32(payload[4:8]),
			Block: block,
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown message id %d", ErrProtocol, byte(id))
	}
}

// WriteMessage frames and writes m to w.
func WriteMessage(w io.Writer, m Message) error {
	_, err := w.Write(m.Encode())
	return err
}

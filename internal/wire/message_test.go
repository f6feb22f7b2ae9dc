package wire

import (
	"bytes"
	"testing"
)

func TestEncodeLiteralVectors(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want []byte
	}{
		{
			name: "Request",
			msg:  Message{ID: Request, Index: 309, Begin: 0, Length: 16384},
			want: []byte{0, 0, 0, 13, 6, 0, 0, 1, 53, 0, 0, 0, 0, 0, 0, 64, 0},
		},
		{
			name: "Piece",
			msg:  Message{ID: Piece, Index: 442, Begin: 23, Block: []byte{0, 125, 39, 84, 64}},
			want: []byte{0, 0, 0, 14, 7, 0, 0, 1, 186, 0, 0, 0, 23, 0, 125, 39, 84, 64},
		},
		{
			name: "Have",
			msg:  Message{ID: Have, Index: 10},
			want: []byte{0, 0, 0, 5, 4, 0, 0, 0, 10},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.msg.Encode()
			if !bytes.Equal(got, tc.want) {
				t.Fatalf("Encode() = %v, want %v", got, tc.want)
			}

			decoded, err := ReadMessage(bytes.NewReader(got))
			if err != nil {
				t.Fatalf("ReadMessage: %v", err)
			}
			if decoded.Encode()[0] != tc.want[0] {
				t.Fatalf("round trip mismatch")
			}
		})
	}
}

func TestRoundTripAllVariants(t *testing.T) {
	msgs := []Message{
		{ID: Choke},
		{ID: Unchoke},
		{ID: Interested},
		{ID: NotInterested},
		{ID: Have, Index: 7},
		{ID: Bitfield, Bits: []byte{0xFF, 0x80}},
		{ID: Request, Index: 1, Begin: 2, Length: 3},
		{ID: Piece, Index: 1, Begin: 2, Block: []byte("hello")},
		{ID: Cancel, Index: 1, Begin: 2, Length: 3},
	}

	for _, m := range msgs {
		encoded := m.Encode()
		decoded, err := ReadMessage(bytes.NewReader(encoded))
		if err != nil {
			t.Fatalf("ReadMessage(%v): %v", m.ID, err)
		}
		reEncoded := decoded.Encode()
		if !bytes.Equal(encoded, reEncoded) {
			t.Fatalf("%s: encode(parse(b)) != b: %v != %v", m.ID, reEncoded, encoded)
		}
	}
}

func TestKeepAliveSkipped(t *testing.T) {
	buf := bytes.NewReader([]byte{0, 0, 0, 0})
	msg, err := ReadMessage(buf)
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if msg != nil {
		t.Fatalf("expected nil message for keep-alive, got %+v", msg)
	}
}

func TestUnknownMessageID(t *testing.T) {
	buf := bytes.NewReader([]byte{0, 0, 0, 1, 99})
	_, err := ReadMessage(buf)
	if err == nil {
		t.Fatalf("expected error for unknown message id")
	}
}

func TestTruncatedHavePayload(t *testing.T) {
	buf := bytes.NewReader([]byte{0, 0, 0, 3, 4, 0, 0})
	_, err := ReadMessage(buf)
	if err == nil {
		t.Fatalf("expected error for truncated Have payload")
	}
}

package wire

import (
	"bytes"
	"testing"
)

func TestHandshakeEncodeLiteralVector(t *testing.T) {
	var infoHash [20]byte
	var peerID [20]byte
	for i := range peerID {
		peerID[i] = 0xFF
	}

	h := Handshake{InfoHash: infoHash, PeerID: peerID}
	got := h.Encode()

	want := append([]byte{19}, []byte(protocolName)...)
	want = append(want, make([]byte, 8)...)
	want = append(want, infoHash[:]...)
	want = append(want, peerID[:]...)

	if !bytes.Equal(got, want) {
		t.Fatalf("Encode() = %v, want %v", got, want)
	}
	if len(got) != 68 {
		t.Fatalf("len(Encode()) = %d, want 68", len(got))
	}
}

func TestReadHandshakeMismatch(t *testing.T) {
	var sent, want [20]byte
	want[0] = 1
	h := Handshake{InfoHash: sent}
	buf := bytes.NewReader(h.Encode())

	_, err := ReadHandshake(buf, want)
	if err == nil {
		t.Fatalf("expected mismatch error")
	}
}

func TestReadHandshakeOK(t *testing.T) {
	var hash [20]byte
	hash[0] = 7
	var peerID [20]byte
	peerID[0] = 9

	h := Handshake{InfoHash: hash, PeerID: peerID}
	buf := bytes.NewReader(h.Encode())

	got, err := ReadHandshake(buf, hash)
	if err != nil {
		t.Fatalf("ReadHandshake: %v", err)
	}
	if got != peerID {
		t.Fatalf("got peer id %v, want %v", got, peerID)
	}
}

package picker

import (
	"net/netip"

	"bitleech/internal/bitfield"
)

// Block is a single block allocation returned by the picker: request
// this piece/begin/length from the peer that asked.
type Block struct {
	Piece  int
	Begin  uint32
	Length uint32
}

// VerifiedPiece is a fully reconstructed, digest-verified piece ready
// for the disk writer.
type VerifiedPiece struct {
	Index int
	Data  []byte
}

type eventKind int

const (
	evBitfieldReceived eventKind = iota
	evHave
	evPickInitial
	evPickPiece
	evDownloadedBlock
	evPeerGone
)

// event is the single type flowing through the picker's inbox. The
// reply fields implement the "event with enclosed reply handle"
// pattern: a one-shot channel embedded in the event itself, so the
// picker's inbox stays a plain FIFO while each caller awaits only its
// own answer.
type event struct {
	kind eventKind

	peer  netip.AddrPort
	bits  bitfield.Bitfield
	index int
	begin uint32
	data  []byte

	replyBlock   chan *Block
	replyInitial chan []*Block
}

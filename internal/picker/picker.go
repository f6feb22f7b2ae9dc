// Package picker implements the rarest-first piece picker: a single
// goroutine owns all availability and assembly state and serves
// typed events from a bounded inbox, eliminating locks entirely. Peer
// sessions interact with it only through the exported methods, which
// send an event and, where a reply is expected, block on a one-shot
// channel embedded in that event.
package picker

import (
	"crypto/sha1"
	"log/slog"
	"net/netip"

	"bitleech/internal/bitfield"
)

// Picker owns all piece-availability and block-assembly state. Every
// field below is touched only from the goroutine running Run; callers
// never reach in directly.
type Picker struct {
	n           int
	pieceLength int64
	totalLength int64
	hashes      [][sha1.Size]byte

	avail       *availability
	peerBits    map[netip.AddrPort]bitfield.Bitfield
	downloading map[int]*downloadingPiece
	downloaded  map[int]*downloadedPiece

	events   chan event
	verified chan<- VerifiedPiece
	log      *slog.Logger
}

// New builds a Picker for a torrent of the given shape. verified is
// the channel the disk writer reads from; the picker closes it when
// its own inbox is drained and closed, so the writer's lifetime is
// tied to the picker's.
func New(totalLength, pieceLength int64, hashes [][sha1.Size]byte, verified chan<- VerifiedPiece, log *slog.Logger) *Picker {
	n := len(hashes)
	return &Picker{
		n:           n,
		pieceLength: pieceLength,
		totalLength: totalLength,
		hashes:      hashes,
		avail:       newAvailability(n),
		peerBits:    make(map[netip.AddrPort]bitfield.Bitfield),
		downloading: make(map[int]*downloadingPiece),
		downloaded:  make(map[int]*downloadedPiece),
		events:      make(chan event, 256),
		verified:    verified,
		log:         log,
	}
}

// Close closes the picker's inbox. Only the supervisor calls this,
// after every peer session's goroutine has returned.
func (p *Picker) Close() {
	close(p.events)
}

// Run drains the inbox until it is closed, processing events one at a
// time. It is the picker's only suspension point: it never performs
// I/O itself.
func (p *Picker) Run() {
	for ev := range p.events {
		p.dispatch(ev)
	}
	close(p.verified)
}

func (p *Picker) dispatch(ev event) {
	switch ev.kind {
	case evBitfieldReceived:
		p.registerBitfield(ev.peer, ev.bits)
	case evHave:
		p.have(ev.peer, ev.index)
	case evPickInitial:
		blocks := make([]*Block, 0, 5)
		for i := 0; i < 5; i++ {
			b := p.pickPiece(ev.peer)
			if b == nil {
				break
			}
			blocks = append(blocks, b)
		}
		ev.replyInitial <- blocks
	case evPickPiece:
		ev.replyBlock <- p.pickPiece(ev.peer)
	case evDownloadedBlock:
		p.depositBlock(ev.peer, ev.index, ev.begin, ev.data)
	case evPeerGone:
		p.peerGone(ev.peer)
	}
}

// pieceLenAt returns the actual length of piece i: pieceLength for
// every piece but the last, whose length is the remainder.
func (p *Picker) pieceLenAt(i int) int64 {
	if i == p.n-1 {
		return p.totalLength - int64(p.n-1)*p.pieceLength
	}
	return p.pieceLength
}

// --- public API, called from peer session goroutines ---

// NotifyBitfield registers a peer's full bitfield.
func (p *Picker) NotifyBitfield(peer netip.AddrPort, bits bitfield.Bitfield) {
	p.events <- event{kind: evBitfieldReceived, peer: peer, bits: bits}
}

// NotifyHave records that a peer now advertises a single piece.
func (p *Picker) NotifyHave(peer netip.AddrPort, index int) {
	p.events <- event{kind: evHave, peer: peer, index: index}
}

// PickInitial asks for up to five block allocations right after the
// peer unchokes us, to pipeline the first batch of requests.
func (p *Picker) PickInitial(peer netip.AddrPort) []*Block {
	reply := make(chan []*Block, 1)
	p.events <- event{kind: evPickInitial, peer: peer, replyInitial: reply}
	return <-reply
}

// PickOne asks for a single block allocation; a nil result means
// NoPiece, a normal outcome rather than an error.
func (p *Picker) PickOne(peer netip.AddrPort) *Block {
	reply := make(chan *Block, 1)
	p.events <- event{kind: evPickPiece, peer: peer, replyBlock: reply}
	return <-reply
}

// DeliverBlock hands a downloaded block's payload to the picker for
// assembly and, once a piece completes, digest verification.
func (p *Picker) DeliverBlock(peer netip.AddrPort, index int, begin uint32, data []byte) {
	p.events <- event{kind: evDownloadedBlock, peer: peer, index: index, begin: begin, data: data}
}

// PeerGone tells the picker a peer disconnected, so its advertised
// availability can be backed out.
func (p *Picker) PeerGone(peer netip.AddrPort) {
	p.events <- event{kind: evPeerGone, peer: peer}
}

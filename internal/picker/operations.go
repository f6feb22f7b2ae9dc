package picker

import (
	"bytes"
	"crypto/sha1"
	"net/netip"

	"bitleech/internal/bitfield"
)

// registerBitfield stores a peer's full bitfield and folds every set
// bit into the availability table. A peer that reconnects under the
// same (ip, port) simply overwrites its previous entry; the picker is
// keyed on the TCP remote address rather than the tracker-advertised
// peer-id, since distinct peers can in principle share one.
func (p *Picker) registerBitfield(peer netip.AddrPort, bits bitfield.Bitfield) {
	padded := bitfield.FromBytes(bits, p.n)
	p.peerBits[peer] = padded

	for i := 0; i < p.n; i++ {
		if padded.Has(i) {
			p.avail.increment(i)
		}
	}
}

// have folds a single Have announcement into a peer's bitfield and
// the availability table, ignoring duplicates and out-of-range indices.
func (p *Picker) have(peer netip.AddrPort, index int) {
	if index < 0 || index >= p.n {
		return
	}
	bits, ok := p.peerBits[peer]
	if !ok {
		bits = bitfield.New(p.n)
		p.peerBits[peer] = bits
	}
	if bits.Has(index) {
		return
	}
	bits.Set(index)
	p.avail.increment(index)
}

// peerGone backs out every piece the departing peer advertised and
// forgets its bitfield.
func (p *Picker) peerGone(peer netip.AddrPort) {
	bits, ok := p.peerBits[peer]
	if !ok {
		return
	}
	for i := 0; i < p.n; i++ {
		if bits.Has(i) {
			p.avail.decrement(i)
		}
	}
	delete(p.peerBits, peer)
}

// pickPiece walks the rarity permutation for the first piece the peer
// has with at least one Open block, marks that block Requested, and
// promotes the piece to the front of the permutation so later picks
// prefer to finish it.
func (p *Picker) pickPiece(peer netip.AddrPort) *Block {
	bits, ok := p.peerBits[peer]
	if !ok {
		return nil
	}

	for pos := 0; pos < p.n; pos++ {
		idx := p.avail.pieces[pos]
		if !bits.Has(idx) {
			continue
		}

		dp := p.downloading[idx]
		if dp == nil {
			dp = newDownloadingPiece(idx, p.pieceLenAt(idx))
			p.downloading[idx] = dp
		}

		blockIdx := firstOpenBlock(dp)
		if blockIdx < 0 {
			continue
		}

		dp.blocks[blockIdx] = blockRequested
		p.avail.prioritizeDownloading(p.avail.pieceMap[idx].position)

		return &Block{
			Piece:  idx,
			Begin:  uint32(blockIdx) * BlockSize,
			Length: uint32(blockLength(blockIdx, dp.length)),
		}
	}

	return nil
}

func firstOpenBlock(dp *downloadingPiece) int {
	for i, st := range dp.blocks {
		if st == blockOpen {
			return i
		}
	}
	return -1
}

// depositBlock stores a delivered block's payload, and once every
// block of the piece has arrived, verifies the reconstructed piece
// against its expected digest. On success the piece is forwarded to
// the disk writer; on mismatch its blocks are reset to Open so it can
// be re-requested, per the design's integrity-error handling.
func (p *Picker) depositBlock(peer netip.AddrPort, index int, begin uint32, data []byte) {
	if index < 0 || index >= p.n {
		return
	}

	dp := p.downloaded[index]
	if dp == nil {
		dp = newDownloadedPiece(index, p.pieceLenAt(index))
		p.downloaded[index] = dp
	}

	blockIdx := int(begin / BlockSize)
	if blockIdx < 0 || blockIdx >= len(dp.blocks) {
		return
	}
	dp.blocks[blockIdx] = data

	if dl := p.downloading[index]; dl != nil && blockIdx < len(dl.blocks) {
		dl.blocks[blockIdx] = blockWriting
	}

	if !dp.complete() {
		return
	}

	payload := dp.concat()
	sum := sha1.Sum(payload)

	if !bytes.Equal(sum[:], p.hashes[index][:]) {
		p.log.Warn("piece failed digest verification, resetting for retry", "piece", index)
		delete(p.downloaded, index)
		if dl := p.downloading[index]; dl != nil {
			dl.reset()
		}
		return
	}

	if dl := p.downloading[index]; dl != nil {
		for i := range dl.blocks {
			dl.blocks[i] = blockFinished
		}
		delete(p.downloading, index)
	}
	delete(p.downloaded, index)

	p.verified <- VerifiedPiece{Index: index, Data: payload}
}

package picker

// BlockSize is the fixed size of a request/piece exchange unit. The
// final block of a piece may be shorter when the piece length is not
// a multiple of BlockSize.
const BlockSize = 16384

// blockState tracks one block of a piece being downloaded.
type blockState int

const (
	blockOpen blockState = iota
	blockRequested
	blockWriting
	blockFinished
)

// downloadingPiece is lazily created the first time any block of a
// piece is requested. It only tracks per-block state, not payload.
type downloadingPiece struct {
	index  int
	length int64
	blocks []blockState
}

func newDownloadingPiece(index int, length int64) *downloadingPiece {
	n := blockCount(length)
	return &downloadingPiece{
		index:  index,
		length: length,
		blocks: make([]blockState, n),
	}
}

func (p *downloadingPiece) reset() {
	for i := range p.blocks {
		p.blocks[i] = blockOpen
	}
}

// downloadedPiece accumulates block payloads as they are delivered.
// complete is true exactly when every block buffer is non-empty.
type downloadedPiece struct {
	index  int
	length int64
	blocks [][]byte
}

func newDownloadedPiece(index int, length int64) *downloadedPiece {
	return &downloadedPiece{
		index:  index,
		length: length,
		blocks: make([][]byte, blockCount(length)),
	}
}

func (p *downloadedPiece) complete() bool {
	for _, b := range p.blocks {
		if len(b) == 0 {
			return false
		}
	}
	return true
}

func (p *downloadedPiece) concat() []byte {
	out := make([]byte, 0, p.length)
	for _, b := range p.blocks {
		out = append(out, b...)
	}
	return out
}

// blockCount returns the number of BlockSize blocks (the last one
// possibly shorter) that make up a piece of the given length.
func blockCount(pieceLength int64) int {
	return int((pieceLength + BlockSize - 1) / BlockSize)
}

// blockLength returns the length in bytes of block blockIdx within a
// piece of the given length.
func blockLength(blockIdx int, pieceLength int64) int64 {
	begin := int64(blockIdx) * BlockSize
	remaining := pieceLength - begin
	if remaining > BlockSize {
		return BlockSize
	}
	return remaining
}

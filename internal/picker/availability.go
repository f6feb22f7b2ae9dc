package picker

// piecePos is the availability-table entry for one piece: how many
// connected peers advertise it and its position within the pieces
// permutation.
type piecePos struct {
	peerCount int
	position  int
}

// availability is the hand-rolled bucketed priority queue described
// in the design: pieces is a permutation of [0,N), piece_map[i] names
// the bucket (peerCount) and position of piece i, and boundaries[a]
// is the index in pieces of the first piece with peerCount > a.
//
// Unlike the static MAX_AVAIL=50 cap in the original design, the
// boundaries slice here grows on demand so an arbitrary number of
// peers can connect without an out-of-range write.
type availability struct {
	pieces     []int
	pieceMap   []piecePos
	boundaries []int
}

func newAvailability(n int) *availability {
	pieces := make([]int, n)
	pieceMap := make([]piecePos, n)
	for i := 0; i < n; i++ {
		pieces[i] = i
		pieceMap[i] = piecePos{position: i}
	}

	// One boundary bucket is enough until increment() is asked to grow
	// it; boundaries[0] == n means "every piece currently has
	// peerCount <= 0".
	return &availability{
		pieces:     pieces,
		pieceMap:   pieceMap,
		boundaries: []int{n},
	}
}

func (a *availability) ensureBucket(bucket int) {
	n := len(a.pieces)
	for len(a.boundaries) <= bucket {
		a.boundaries = append(a.boundaries, n)
	}
}

func (a *availability) swap(pi, pj int) {
	if pi == pj {
		return
	}
	a.pieces[pi], a.pieces[pj] = a.pieces[pj], a.pieces[pi]
	a.pieceMap[a.pieces[pi]].position = pi
	a.pieceMap[a.pieces[pj]].position = pj
}

// increment moves piece i from bucket peerCount to bucket
// peerCount+1: the piece currently sits in the region of pieces
// indexed below boundaries[peerCount]; swap it to the last slot of
// that region and shrink the boundary by one. The bucket above is
// created too, so the last boundary always equals len(pieces).
func (a *availability) increment(i int) {
	bucket := a.pieceMap[i].peerCount
	a.ensureBucket(bucket + 1)

	a.boundaries[bucket]--
	j := a.boundaries[bucket]
	a.swap(a.pieceMap[i].position, j)
	a.pieceMap[i].peerCount++
}

// decrement is the exact inverse of increment.
func (a *availability) decrement(i int) {
	if a.pieceMap[i].peerCount == 0 {
		return
	}
	bucket := a.pieceMap[i].peerCount - 1
	a.ensureBucket(bucket)

	j := a.boundaries[bucket]
	a.swap(a.pieceMap[i].position, j)
	a.boundaries[bucket]++
	a.pieceMap[i].peerCount--
}

// prioritizeDownloading moves the piece currently at permutation
// position pos to the front, so that subsequent picks prefer to
// finish a piece already in progress. Every boundary at or below pos
// shifts up by one to keep the partition consistent with pieces
// having moved one slot to the right.
func (a *availability) prioritizeDownloading(pos int) {
	if pos == 0 {
		return
	}

	idx := a.pieces[pos]
	copy(a.pieces[1:pos+1], a.pieces[0:pos])
	a.pieces[0] = idx

	for k := 0; k <= pos; k++ {
		a.pieceMap[a.pieces[k]].position = k
	}
	for b := range a.boundaries {
		if a.boundaries[b] <= pos {
			a.boundaries[b]++
		}
	}
}

// Package metainfo decodes a single-file .torrent descriptor and
// computes its info-hash. This sits outside the download core's
// invariants (spec §1 out-of-scope collaborator) but is required to
// produce the TorrentDescriptor the core consumes.
package metainfo

import (
	"bytes"
	"crypto/sha1"
	"fmt"
	"os"
	"strconv"

	"github.com/jackpal/bencode-go"
)

const hashSize = sha1.Size

// rawInfo mirrors the bencoded "info" dictionary of a single-file
// torrent. Multi-file torrents (a "files" list instead of "length")
// are rejected: multi-file layout is out of scope.
type rawInfo struct {
	PieceLength int64  `bencode:"piece length"`
	Pieces      string `bencode:"pieces"`
	Name        string `bencode:"name"`
	Length      int64  `bencode:"length"`
}

type rawFile struct {
	Announce string  `bencode:"announce"`
	Info     rawInfo `bencode:"info"`
}

// Info is the immutable TorrentDescriptor the download core consumes:
// display name, total length, nominal piece length, ordered piece
// digests and the 20-byte info-hash.
type Info struct {
	Name        string
	Announce    string
	Length      int64
	PieceLength int64
	PieceHashes [][hashSize]byte
	InfoHash    [hashSize]byte
}

// NumPieces returns the number of pieces, equal to len(PieceHashes).
func (i *Info) NumPieces() int {
	return len(i.PieceHashes)
}

// PieceLen returns the actual length of piece idx: PieceLength for
// every piece except the last, whose length is
// Length - (NumPieces-1)*PieceLength.
func (i *Info) PieceLen(idx int) int64 {
	if idx == i.NumPieces()-1 {
		return i.Length - int64(i.NumPieces()-1)*i.PieceLength
	}
	return i.PieceLength
}

// Load reads and parses the .torrent file at path, populating Info
// including the computed info-hash.
func Load(path string) (*Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("metainfo: reading %q: %w", path, err)
	}

	var raw rawFile
	if err := bencode.Unmarshal(bytes.NewReader(data), &raw); err != nil {
		return nil, fmt.Errorf("metainfo: decoding %q: %w", path, err)
	}

	if raw.Info.Length <= 0 {
		return nil, fmt.Errorf("metainfo: %q: missing or non-positive length (multi-file torrents are not supported)", path)
	}
	if raw.Info.PieceLength <= 0 {
		return nil, fmt.Errorf("metainfo: %q: missing piece length", path)
	}
	if raw.Announce == "" {
		return nil, fmt.Errorf("metainfo: %q: missing announce URL", path)
	}
	if len(raw.Info.Pieces)%hashSize != 0 {
		return nil, fmt.Errorf("metainfo: %q: pieces field length %d is not a multiple of %d", path, len(raw.Info.Pieces), hashSize)
	}

	infoBytes, err := extractInfoDict(data)
	if err != nil {
		return nil, fmt.Errorf("metainfo: %q: %w", path, err)
	}
	infoHash := sha1.Sum(infoBytes)

	n := len(raw.Info.Pieces) / hashSize
	hashes := make([][hashSize]byte, n)
	for idx := range hashes {
		copy(hashes[idx][:], raw.Info.Pieces[idx*hashSize:(idx+1)*hashSize])
	}

	return &Info{
		Name:        raw.Info.Name,
		Announce:    raw.Announce,
		Length:      raw.Info.Length,
		PieceLength: raw.Info.PieceLength,
		PieceHashes: hashes,
		InfoHash:    infoHash,
	}, nil
}

// extractInfoDict locates the raw bencoded bytes of the "4:info"
// dictionary so its SHA-1 can be computed independent of how the
// surrounding fields were decoded.
func extractInfoDict(data []byte) ([]byte, error) {
	idx := bytes.Index(data, []byte("4:info"))
	if idx < 0 {
		return nil, fmt.Errorf("no \"4:info\" key found")
	}
	start := idx + len("4:info")

	depth := 0
	for i := start; i < len(data); i++ {
		switch b := data[i]; b {
		case 'd', 'l':
			depth++
		case 'e':
			depth--
			if depth == 0 {
				return data[start : i+1], nil
			}
		case 'i':
			j := i + 1
			for j < len(data) && data[j] != 'e' {
				j++
			}
			if j >= len(data) {
				return nil, fmt.Errorf("unterminated integer at offset %d", i)
			}
			i = j
		default:
			if b >= '0' && b <= '9' {
				j := i
				for j < len(data) && data[j] >= '0' && data[j] <= '9' {
					j++
				}
				if j < len(data) && data[j] == ':' {
					length, err := strconv.Atoi(string(data[i:j]))
					if err != nil {
						return nil, fmt.Errorf("invalid string length at offset %d: %w", i, err)
					}
					i = j + length
				}
			}
		}
	}
	return nil, fmt.Errorf("unterminated info dictionary")
}

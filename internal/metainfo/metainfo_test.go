package metainfo

import (
	"crypto/sha1"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// buildTorrent hand-assembles a minimal valid bencoded single-file
// torrent with one piece.
func buildTorrent(t *testing.T, pieceData []byte, pieceLength int) string {
	t.Helper()

	hash := sha1.Sum(pieceData)
	info := fmt.Sprintf("d6:lengthi%de12:piece lengthi%de6:pieces20:%s4:name4:filee",
		len(pieceData), pieceLength, string(hash[:]))

	full := fmt.Sprintf("d8:announce17:http://tracker.io4:info%se", info)

	dir := t.TempDir()
	path := filepath.Join(dir, "test.torrent")
	if err := os.WriteFile(path, []byte(full), 0o644); err != nil {
		t.Fatalf("writing torrent fixture: %v", err)
	}
	return path
}

func TestLoadSingleFileTorrent(t *testing.T) {
	data := []byte("hello world")
	path := buildTorrent(t, data, 11)

	info, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if info.Name != "file" {
		t.Errorf("Name = %q, want %q", info.Name, "file")
	}
	if info.Length != int64(len(data)) {
		t.Errorf("Length = %d, want %d", info.Length, len(data))
	}
	if info.NumPieces() != 1 {
		t.Fatalf("NumPieces() = %d, want 1", info.NumPieces())
	}

	want := sha1.Sum(data)
	if info.PieceHashes[0] != want {
		t.Errorf("PieceHashes[0] = %x, want %x", info.PieceHashes[0], want)
	}
}

func TestLoadRejectsMissingAnnounce(t *testing.T) {
	data := []byte("x")
	hash := sha1.Sum(data)
	info := fmt.Sprintf("d6:lengthi1e12:piece lengthi1e6:pieces20:%s4:name1:xe", string(hash[:]))
	full := fmt.Sprintf("d4:info%se", info)

	dir := t.TempDir()
	path := filepath.Join(dir, "noannounce.torrent")
	os.WriteFile(path, []byte(full), 0o644)

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for missing announce URL")
	}
}

func TestPieceLenLastPieceIsRemainder(t *testing.T) {
	info := &Info{Length: 25, PieceLength: 10, PieceHashes: make([][20]byte, 3)}
	if got := info.PieceLen(0); got != 10 {
		t.Errorf("PieceLen(0) = %d, want 10", got)
	}
	if got := info.PieceLen(2); got != 5 {
		t.Errorf("PieceLen(2) = %d, want 5", got)
	}
}

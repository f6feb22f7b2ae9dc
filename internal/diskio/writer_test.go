package diskio

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"bitleech/internal/picker"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWriterCommitsAtOffset(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.bin")

	w, err := New(path, 5, 2, testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ch := make(chan picker.VerifiedPiece, 2)
	ch <- picker.VerifiedPiece{Index: 1, Data: []byte("world")}
	ch <- picker.VerifiedPiece{Index: 0, Data: []byte("hello")}
	close(ch)

	if err := w.Run(ch); err != nil {
		t.Fatalf("Run: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if string(got) != "helloworld" {
		t.Fatalf("got %q, want %q", got, "helloworld")
	}
	if w.Completed() != 2 {
		t.Fatalf("Completed() = %d, want 2", w.Completed())
	}
}

func TestWriterReportsIncompleteDownload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.bin")

	w, err := New(path, 5, 2, testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ch := make(chan picker.VerifiedPiece, 1)
	ch <- picker.VerifiedPiece{Index: 0, Data: []byte("hello")}
	close(ch)

	if err := w.Run(ch); err == nil {
		t.Fatal("expected incomplete-download error")
	}
}

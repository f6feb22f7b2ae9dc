// Package diskio implements the single-tasked disk writer: it
// receives verified pieces in any order and commits their bytes to
// the output file at their correct absolute offset.
package diskio

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/schollz/progressbar/v3"

	"bitleech/internal/bterr"
	"bitleech/internal/picker"
)

// Writer owns the output file exclusively; no other goroutine ever
// touches its file descriptor.
type Writer struct {
	file        *os.File
	pieceLength int64
	totalPieces int
	completed   int
	bar         *progressbar.ProgressBar
	log         *slog.Logger
}

// New creates (truncating) the output file at path and returns a
// Writer ready to receive verified pieces.
func New(path string, pieceLength int64, totalPieces int, log *slog.Logger) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, bterr.Disk(fmt.Errorf("creating output file %q: %w", path, err))
	}

	bar := progressbar.NewOptions(totalPieces,
		progressbar.OptionSetDescription(path),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	return &Writer{
		file:        f,
		pieceLength: pieceLength,
		totalPieces: totalPieces,
		bar:         bar,
		log:         log,
	}, nil
}

// Run drains verified until it is closed (by the picker, once its own
// inbox is drained), performing one positioned write per piece. A
// write failure is logged and the piece is dropped; there is no
// retry, since ordering of deliveries is irrelevant to a positioned
// write.
func (w *Writer) Run(verified <-chan picker.VerifiedPiece) error {
	defer w.file.Close()

	for piece := range verified {
		offset := int64(piece.Index) * w.pieceLength
		if _, err := w.file.WriteAt(piece.Data, offset); err != nil {
			w.log.Error("positioned write failed, piece dropped", "piece", piece.Index, "err", err)
			continue
		}

		w.completed++
		w.bar.Add(1)
		w.log.Info("piece committed", "piece", piece.Index, "completed", w.completed, "total", w.totalPieces)
	}

	if w.completed != w.totalPieces {
		return bterr.Disk(fmt.Errorf("download incomplete: %d/%d pieces written", w.completed, w.totalPieces))
	}
	return nil
}

// Completed returns the number of pieces successfully committed.
func (w *Writer) Completed() int { return w.completed }

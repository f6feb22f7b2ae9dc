// Package engine is the supervisor: it builds the descriptor's
// runtime state, spawns one peer session per tracker-supplied peer
// plus the picker and disk-writer goroutines, and waits for all of
// them to finish.
package engine

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"bitleech/internal/bterr"
	"bitleech/internal/diskio"
	"bitleech/internal/metainfo"
	"bitleech/internal/peer"
	"bitleech/internal/picker"
	"bitleech/internal/tracker"
)

// Run drives a single torrent: it spawns a session per peer, the
// picker, and the disk writer, and returns once every session has
// ended and the writer has drained (or a fatal setup error occurs).
// The result is nil only if every piece was verified and written.
func Run(info *metainfo.Info, peers []tracker.Peer, clientID [20]byte, outDir string, log *slog.Logger) error {
	if len(peers) == 0 {
		return bterr.Config(fmt.Errorf("no peers to connect to"))
	}

	verifiedCh := make(chan picker.VerifiedPiece, 64)
	pk := picker.New(info.Length, info.PieceLength, info.PieceHashes, verifiedCh, log)

	outPath := filepath.Join(outDir, info.Name)
	writer, err := diskio.New(outPath, info.PieceLength, info.NumPieces(), log)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	var writerErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		writerErr = writer.Run(verifiedCh)
	}()

	go pk.Run()

	var sessionGroup errgroup.Group
	for _, p := range peers {
		p := p
		sessionGroup.Go(func() error {
			sess := peer.New(p.String(), info.InfoHash, clientID, info.NumPieces(), pk, log)
			if err := sess.Run(); err != nil {
				log.Warn("peer session ended", "peer", p.String(), "err", err)
			}
			return nil
		})
	}

	// Awaiting the group blocks until every session goroutine has
	// returned and therefore stopped holding a send handle on the
	// picker's inbox; only then is it safe to close it.
	_ = sessionGroup.Wait()

	pk.Close()
	wg.Wait()

	return writerErr
}

// Command bitleech downloads a single-file torrent given its metainfo
// descriptor, speaking the peer wire protocol with every peer the
// tracker hands back until the file is fully downloaded and verified.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/mitchellh/colorstring"
	"golang.org/x/term"

	"bitleech/internal/bterr"
	"bitleech/internal/engine"
	"bitleech/internal/metainfo"
	"bitleech/internal/peerid"
	"bitleech/internal/tracker"
)

func main() {
	outDir := flag.String("out", ".", "directory to write the downloaded file into")
	port := flag.Uint("port", 6881, "port advertised to the tracker")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: bitleech [flags] <path-to-torrent-file>\n")
		flag.PrintDefaults()
		os.Exit(2)
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	sessionID := peerid.NewSessionID()
	log = log.With("session", sessionID)

	if err := run(flag.Arg(0), *outDir, uint16(*port), log); err != nil {
		printError(err)
		os.Exit(1)
	}
}

func run(torrentPath, outDir string, port uint16, log *slog.Logger) error {
	info, err := metainfo.Load(torrentPath)
	if err != nil {
		return bterr.Config(err)
	}
	log.Info("loaded torrent", "name", info.Name, "length", info.Length, "pieces", info.NumPieces())

	clientID, err := peerid.Generate()
	if err != nil {
		return bterr.Config(err)
	}

	peers, err := tracker.Announce(info, clientID, port, log)
	if err != nil {
		return bterr.Config(err)
	}
	log.Info("tracker returned peers", "count", len(peers))

	if err := engine.Run(info, peers, clientID, outDir, log); err != nil {
		return err
	}

	status("download complete: " + info.Name)
	return nil
}

func status(msg string) {
	if term.IsTerminal(int(os.Stdout.Fd())) {
		colorstring.Println("[green]" + msg)
		return
	}
	fmt.Println(msg)
}

func printError(err error) {
	msg := fmt.Sprintf("fatal: %v", err)
	if term.IsTerminal(int(os.Stderr.Fd())) {
		colorstring.Fprintln(os.Stderr, "[red]"+msg)
		return
	}
	fmt.Fprintln(os.Stderr, msg)
}

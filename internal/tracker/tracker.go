// Package tracker announces to a torrent's tracker(s) and parses the
// compact peer list from the response. It is an out-of-scope
// collaborator (spec §1): the download core only consumes the []Peer
// it produces.
package tracker

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jackpal/bencode-go"

	"bitleech/internal/metainfo"
)

// Peer is a tracker-supplied endpoint: ip:port plus a 20-byte peer-id
// field. Peers parsed from a compact peer list, the only format this
// package requests, carry no peer-id, so PeerID is left zero.
type Peer struct {
	IP     string
	Port   uint16
	PeerID [20]byte
}

func (p Peer) String() string {
	return fmt.Sprintf("%s:%d", p.IP, p.Port)
}

type httpResponse struct {
	Failure  string `bencode:"failure reason"`
	Interval int    `bencode:"interval"`
	Peers    string `bencode:"peers"`
}

// Announce contacts the torrent's HTTP(S) announce URL and returns the
// peers it handed back. UDP trackers are an explicit non-goal.
func Announce(info *metainfo.Info, clientID [20]byte, listenPort uint16, log *slog.Logger) ([]Peer, error) {
	urls := candidateURLs(info.Announce)

	seen := make(map[string]Peer)
	for _, u := range urls {
		if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
			continue
		}

		peers, err := announceHTTP(u, info, clientID, listenPort)
		if err != nil {
			log.Warn("tracker announce failed", "tracker", u, "err", err)
			continue
		}
		log.Info("tracker announce ok", "tracker", u, "peers", len(peers))
		for _, p := range peers {
			seen[p.String()] = p
		}
	}

	if len(seen) == 0 {
		return nil, fmt.Errorf("tracker: no peers received from any tracker")
	}

	result := make([]Peer, 0, len(seen))
	for _, p := range seen {
		result = append(result, p)
	}
	return result, nil
}

func candidateURLs(primary string) []string {
	urls := make([]string, 0, 1)
	if primary != "" {
		urls = append(urls, primary)
	}
	return urls
}

func announceHTTP(announceURL string, info *metainfo.Info, clientID [20]byte, port uint16) ([]Peer, error) {
	u, err := url.Parse(announceURL)
	if err != nil {
		return nil, fmt.Errorf("parsing announce url: %w", err)
	}

	q := url.Values{}
	q.Set("info_hash", string(info.InfoHash[:]))
	q.Set("peer_id", string(clientID[:]))
	q.Set("port", fmt.Sprintf("%d", port))
	q.Set("uploaded", "0")
	q.Set("downloaded", "0")
	q.Set("left", fmt.Sprintf("%d", info.Length))
	q.Set("compact", "1")
	q.Set("event", "started")
	u.RawQuery = q.Encode()

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Get(u.String())
	if err != nil {
		return nil, fmt.Errorf("requesting tracker: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tracker returned status %d", resp.StatusCode)
	}

	var tr httpResponse
	if err := bencode.Unmarshal(resp.Body, &tr); err != nil {
		return nil, fmt.Errorf("decoding tracker response: %w", err)
	}
	if tr.Failure != "" {
		return nil, fmt.Errorf("tracker failure: %s", tr.Failure)
	}

	return parseCompactPeers([]byte(tr.Peers))
}

// parseCompactPeers decodes a compact peer list: 6 bytes per peer,
// 4 bytes of IPv4 address followed by a 2-byte big-endian port.
func parseCompactPeers(raw []byte) ([]Peer, error) {
	if len(raw)%6 != 0 {
		return nil, fmt.Errorf("tracker: compact peer list length %d is not a multiple of 6", len(raw))
	}

	peers := make([]Peer, 0, len(raw)/6)
	for i := 0; i < len(raw); i += 6 {
		ip := net.IPv4(raw[i], raw[i+1], raw[i+2], raw[i+3]).String()
		port := binary.BigEndian.Uint16(raw[i+4 : i+6])
		peers = append(peers, Peer{IP: ip, Port: port})
	}
	return peers, nil
}

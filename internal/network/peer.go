package network

import (
	"sort"
	"sync"
	"time"

	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"
)

// Peer is a connected remote participant as seen by the local node.
type Peer struct {
	ID          string        `json:"id"`
	Address     string        `json:"address"`
	ConnectedAt time.Time     `json:"connected_at"`
	LastPingAt  time.Time     `json:"last_ping_at,omitempty"`
	LastRTT     time.Duration `json:"last_rtt_ns,omitempty"`
	LastError   string        `json:"last_error,omitempty"`
}

// PeerBook tracks connected peers. The session loop writes to it; the status
// server reads snapshots concurrently.
type PeerBook struct {
	mu             sync.RWMutex
	connectedPeers map[peer.ID]*Peer
}

func NewPeerBook() *PeerBook {
	return &PeerBook{connectedPeers: make(map[peer.ID]*Peer)}
}

// Connected records a peer. It reports false if the peer was already known.
func (b *PeerBook) Connected(id peer.ID, addr ma.Multiaddr, at time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.connectedPeers[id]; ok {
		return false
	}
	p := &Peer{ID: id.String(), ConnectedAt: at}
	if addr != nil {
		p.Address = addr.String()
	}
	b.connectedPeers[id] = p
	return true
}

// Disconnected forgets a peer. It reports false if the peer was unknown.
func (b *PeerBook) Disconnected(id peer.ID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.connectedPeers[id]; !ok {
		return false
	}
	delete(b.connectedPeers, id)
	return true
}

// RecordPing stores the latest probe result; unknown peers are ignored.
func (b *PeerBook) RecordPing(id peer.ID, rtt time.Duration, err error, at time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	p, ok := b.connectedPeers[id]
	if !ok {
		return
	}
	p.LastPingAt = at
	if err != nil {
		p.LastError = err.Error()
		return
	}
	p.LastRTT = rtt
	p.LastError = ""
}

// Snapshot returns copies of all connected peers, ordered by ID.
func (b *PeerBook) Snapshot() []Peer {
	b.mu.RLock()
	defer b.mu.RUnlock()

	peers := make([]Peer, 0, len(b.connectedPeers))
	for _, p := range b.connectedPeers {
		peers = append(peers, *p)
	}
	sort.Slice(peers, func(i, j int) bool { return peers[i].ID < peers[j].ID })
	return peers
}

func (b *PeerBook) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.connectedPeers)
}

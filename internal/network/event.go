package network

import (
	"time"

	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"
)

// EventKind identifies what happened in a session.
type EventKind int

const (
	EventListening EventKind = iota
	EventDiscovered
	EventExpired
	EventDialing
	EventConnected
	EventDisconnected
	EventDialFailed
	EventPing
	// EventAddressAdded is a local address learned after startup, such as
	// one observed by a remote peer.
	EventAddressAdded
)

var eventKindNames = map[EventKind]string{
	EventListening:    "listening",
	EventDiscovered:   "discovered",
	EventExpired:      "expired",
	EventDialing:      "dialing",
	EventConnected:    "connected",
	EventDisconnected: "disconnected",
	EventDialFailed:   "dial_failed",
	EventPing:         "ping",
	EventAddressAdded: "address_added",
}

func (k EventKind) String() string {
	if name, ok := eventKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Event is one occurrence consumed by the session loop. Only the fields
// relevant to Kind are set.
type Event struct {
	Kind EventKind
	Peer peer.ID
	Addr ma.Multiaddr
	RTT  time.Duration
	Err  error
}

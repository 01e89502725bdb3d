package discovery

import (
	"sort"
	"time"

	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"
)

// Entry is one address a peer was found at.
type Entry struct {
	ID   peer.ID
	Addr ma.Multiaddr
}

func (e Entry) key() string {
	return e.ID.String() + e.Addr.String()
}

// EventKind distinguishes discovery events
type EventKind int

const (
	Discovered EventKind = iota
	Expired
)

func (k EventKind) String() string {
	switch k {
	case Discovered:
		return "discovered"
	case Expired:
		return "expired"
	default:
		return "unknown"
	}
}

// Event reports a batch of entries that appeared or expired in one round.
type Event struct {
	Kind    EventKind
	Entries []Entry
}

// Tracker remembers when each (peer, address) pair was last seen. It is not
// safe for concurrent use.
type Tracker struct {
	self peer.ID
	ttl  time.Duration
	seen map[string]*tracked
}

type tracked struct {
	entry    Entry
	lastSeen time.Time
}

func NewTracker(self peer.ID, ttl time.Duration) *Tracker {
	return &Tracker{
		self: self,
		ttl:  ttl,
		seen: make(map[string]*tracked),
	}
}

// Observe records one round of sightings. It returns the pairs seen for the
// first time (in input order) and the pairs not seen for longer than the TTL.
// Entries for the local peer are ignored.
func (t *Tracker) Observe(entries []Entry, now time.Time) (discovered, expired []Entry) {
	for _, e := range entries {
		if e.ID == t.self || e.ID == "" || e.Addr == nil {
			continue
		}
		k := e.key()
		if tr, ok := t.seen[k]; ok {
			tr.lastSeen = now
			continue
		}
		t.seen[k] = &tracked{entry: e, lastSeen: now}
		discovered = append(discovered, e)
	}

	var stale []string
	for k, tr := range t.seen {
		if now.Sub(tr.lastSeen) > t.ttl {
			stale = append(stale, k)
		}
	}
	sort.Strings(stale)
	for _, k := range stale {
		expired = append(expired, t.seen[k].entry)
		delete(t.seen, k)
	}

	return discovered, expired
}

// Len returns the number of live pairs.
func (t *Tracker) Len() int {
	return len(t.seen)
}

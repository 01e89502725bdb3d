package discovery

import (
	"crypto/rand"
	"testing"
	"time"

	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomID(t *testing.T) peer.ID {
	t.Helper()
	_, pub, err := crypto.GenerateEd25519Key(rand.Reader)
	require.NoError(t, err)
	id, err := peer.IDFromPublicKey(pub)
	require.NoError(t, err)
	return id
}

func entry(t *testing.T, id peer.ID, addr string) Entry {
	t.Helper()
	return Entry{ID: id, Addr: ma.StringCast(addr)}
}

func TestTracker_DiscoveredOnce(t *testing.T) {
	self := randomID(t)
	other := randomID(t)
	tr := NewTracker(self, time.Minute)
	now := time.Now()

	e := entry(t, other, "/ip4/192.168.1.10/tcp/4001")

	disc, exp := tr.Observe([]Entry{e}, now)
	assert.Equal(t, []Entry{e}, disc)
	assert.Empty(t, exp)

	disc, exp = tr.Observe([]Entry{e}, now.Add(10*time.Second))
	assert.Empty(t, disc)
	assert.Empty(t, exp)
	assert.Equal(t, 1, tr.Len())
}

func TestTracker_MultipleAddressesPerPeer(t *testing.T) {
	tr := NewTracker(randomID(t), time.Minute)
	other := randomID(t)

	a := entry(t, other, "/ip4/192.168.1.10/tcp/4001")
	b := entry(t, other, "/ip6/fe80::1/tcp/4001")

	disc, _ := tr.Observe([]Entry{a, b, a}, time.Now())
	assert.Equal(t, []Entry{a, b}, disc)
	assert.Equal(t, 2, tr.Len())
}

func TestTracker_ExpiresAfterTTL(t *testing.T) {
	tr := NewTracker(randomID(t), 30*time.Second)
	other := randomID(t)
	now := time.Now()

	fresh := entry(t, other, "/ip4/10.0.0.2/tcp/4001")
	stale := entry(t, other, "/ip4/10.0.0.3/tcp/4001")
	tr.Observe([]Entry{fresh, stale}, now)

	// Only fresh is seen again; stale is exactly at the TTL and survives.
	_, exp := tr.Observe([]Entry{fresh}, now.Add(30*time.Second))
	assert.Empty(t, exp)

	_, exp = tr.Observe([]Entry{fresh}, now.Add(31*time.Second))
	assert.Equal(t, []Entry{stale}, exp)
	assert.Equal(t, 1, tr.Len())

	// After expiry the pair can be discovered again.
	disc, _ := tr.Observe([]Entry{stale}, now.Add(32*time.Second))
	assert.Equal(t, []Entry{stale}, disc)
}

func TestTracker_IgnoresSelfAndInvalid(t *testing.T) {
	self := randomID(t)
	tr := NewTracker(self, time.Minute)

	disc, _ := tr.Observe([]Entry{
		entry(t, self, "/ip4/10.0.0.1/tcp/4001"),
		{ID: "", Addr: ma.StringCast("/ip4/10.0.0.5/tcp/4001")},
		{ID: randomID(t)},
	}, time.Now())

	assert.Empty(t, disc)
	assert.Zero(t, tr.Len())
}

func TestEventKind_String(t *testing.T) {
	assert.Equal(t, "discovered", Discovered.String())
	assert.Equal(t, "expired", Expired.String())
	assert.Equal(t, "unknown", EventKind(7).String())
}

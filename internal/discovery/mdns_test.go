package discovery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/grandcat/zeroconf"
	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdvertisement_PrefersNonLoopback(t *testing.T) {
	self := peer.AddrInfo{
		ID: randomID(t),
		Addrs: []ma.Multiaddr{
			ma.StringCast("/ip4/127.0.0.1/tcp/40001"),
			ma.StringCast("/ip4/192.168.1.20/tcp/40001"),
			ma.StringCast("/ip4/192.168.1.20/udp/40002/quic-v1"),
		},
	}

	port, text, err := advertisement(self)
	require.NoError(t, err)
	assert.Equal(t, 40001, port)
	assert.Equal(t, []string{"dnsaddr=/ip4/192.168.1.20/tcp/40001/p2p/" + self.ID.String()}, text)
}

func TestAdvertisement_LoopbackOnly(t *testing.T) {
	self := peer.AddrInfo{
		ID:    randomID(t),
		Addrs: []ma.Multiaddr{ma.StringCast("/ip4/127.0.0.1/tcp/5000")},
	}

	port, text, err := advertisement(self)
	require.NoError(t, err)
	assert.Equal(t, 5000, port)
	assert.Len(t, text, 1)
}

func TestAdvertisement_NoTCP(t *testing.T) {
	_, _, err := advertisement(peer.AddrInfo{ID: randomID(t)})
	assert.Error(t, err)
}

func TestParseServiceEntry(t *testing.T) {
	id := randomID(t)
	entry := &zeroconf.ServiceEntry{
		Text: []string{
			"txtv=1",
			"dnsaddr=/ip4/10.1.1.1/tcp/4001/p2p/" + id.String(),
			"dnsaddr=/ip4/10.1.1.1/tcp/4001",
			"dnsaddr=not-a-multiaddr",
		},
	}

	found := parseServiceEntry(entry)
	require.Len(t, found, 1)
	assert.Equal(t, id, found[0].ID)
	assert.Equal(t, "/ip4/10.1.1.1/tcp/4001", found[0].Addr.String())

	assert.Empty(t, parseServiceEntry(nil))
}

func TestRound_DeliversDiscoveredThenExpired(t *testing.T) {
	self := randomID(t)
	other := randomID(t)
	e := Entry{ID: other, Addr: ma.StringCast("/ip4/10.0.0.9/tcp/4001")}

	sightings := [][]Entry{{e}, nil}
	d := NewMDNSDiscovery(Options{TTL: time.Nanosecond})
	d.browse = func(ctx context.Context) ([]Entry, error) {
		next := sightings[0]
		sightings = sightings[1:]
		return next, nil
	}

	tracker := NewTracker(self, d.opts.TTL)
	out := make(chan Event, 4)
	ctx := context.Background()

	require.NoError(t, d.round(ctx, tracker, out))
	ev := <-out
	assert.Equal(t, Discovered, ev.Kind)
	assert.Equal(t, []Entry{e}, ev.Entries)

	time.Sleep(time.Millisecond)
	require.NoError(t, d.round(ctx, tracker, out))
	ev = <-out
	assert.Equal(t, Expired, ev.Kind)
	assert.Equal(t, []Entry{e}, ev.Entries)
	assert.Empty(t, out)
}

func TestRound_BrowseErrorIsNotFatal(t *testing.T) {
	d := NewMDNSDiscovery(Options{})
	d.browse = func(ctx context.Context) ([]Entry, error) {
		return nil, errors.New("multicast unavailable")
	}

	out := make(chan Event, 1)
	require.NoError(t, d.round(context.Background(), NewTracker(randomID(t), time.Minute), out))
	assert.Empty(t, out)
}

func TestRound_StopsOnCancel(t *testing.T) {
	d := NewMDNSDiscovery(Options{})
	id := randomID(t)
	d.browse = func(ctx context.Context) ([]Entry, error) {
		return []Entry{{ID: id, Addr: ma.StringCast("/ip4/10.0.0.7/tcp/1")}}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan Event) // nobody reads
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := d.round(ctx, NewTracker(randomID(t), time.Minute), out)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOptionsDefaults(t *testing.T) {
	d := NewMDNSDiscovery(Options{})
	assert.Equal(t, DefaultServiceName, d.opts.ServiceName)
	assert.Equal(t, DefaultDomain, d.opts.Domain)
	assert.Equal(t, 10*time.Second, d.opts.Interval)
	assert.Equal(t, 3*time.Second, d.opts.BrowseTimeout)
	assert.Equal(t, time.Minute, d.opts.TTL)
	assert.NotNil(t, d.opts.Logger)
}

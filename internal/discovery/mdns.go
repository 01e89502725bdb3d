package discovery

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"
	manet "github.com/multiformats/go-multiaddr/net"
	"go.uber.org/zap"

	"p2p-discovery/go-client/internal/metrics"
)

const (
	DefaultServiceName = "_p2p-node._tcp"
	DefaultDomain      = "local."

	dnsaddrPrefix = "dnsaddr="
)

// Options configures MDNSDiscovery. Zero values fall back to defaults.
type Options struct {
	ServiceName   string
	Domain        string
	Interval      time.Duration
	BrowseTimeout time.Duration
	TTL           time.Duration
	Logger        *zap.Logger
}

func (o *Options) setDefaults() {
	if o.ServiceName == "" {
		o.ServiceName = DefaultServiceName
	}
	if o.Domain == "" {
		o.Domain = DefaultDomain
	}
	if o.Interval <= 0 {
		o.Interval = 10 * time.Second
	}
	if o.BrowseTimeout <= 0 {
		o.BrowseTimeout = 3 * time.Second
	}
	if o.TTL <= 0 {
		o.TTL = 60 * time.Second
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
}

// MDNSDiscovery announces the local peer over multicast DNS and finds other
// peers announcing the same service.
type MDNSDiscovery struct {
	opts      Options
	server    *zeroconf.Server
	mutex     sync.Mutex
	isRunning bool

	// browse runs one discovery round; DiscoverPeers unless replaced in tests.
	browse func(ctx context.Context) ([]Entry, error)
}

func NewMDNSDiscovery(opts Options) *MDNSDiscovery {
	opts.setDefaults()
	d := &MDNSDiscovery{opts: opts}
	d.browse = d.DiscoverPeers
	return d
}

// StartAdvertising begins advertising self. It is a no-op when already running.
func (d *MDNSDiscovery) StartAdvertising(self peer.AddrInfo) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.isRunning {
		return nil
	}

	port, text, err := advertisement(self)
	if err != nil {
		return err
	}

	d.server, err = zeroconf.Register(
		self.ID.String(),   // instance name, unique per peer
		d.opts.ServiceName, // service type
		d.opts.Domain,
		port,
		text,
		nil, // all interfaces
	)
	if err != nil {
		return fmt.Errorf("failed to register mDNS service: %w", err)
	}

	d.isRunning = true
	d.opts.Logger.Info("mDNS advertisement started",
		zap.String("service", d.opts.ServiceName),
		zap.Int("port", port),
		zap.Strings("txt", text))
	return nil
}

// StopAdvertising stops the advertisement service
func (d *MDNSDiscovery) StopAdvertising() {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.server != nil {
		d.server.Shutdown()
		d.server = nil
		d.isRunning = false
		d.opts.Logger.Info("mDNS advertisement stopped")
	}
}

// DiscoverPeers runs one browse round and returns every (peer, address)
// pair announced in TXT records. The round ends after the browse timeout.
func (d *MDNSDiscovery) DiscoverPeers(ctx context.Context) ([]Entry, error) {
	// A resolver shuts its connections down when a browse ends, so each
	// round needs a fresh one.
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create resolver: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, d.opts.BrowseTimeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry, 32)
	if err := resolver.Browse(ctx, d.opts.ServiceName, d.opts.Domain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse: %w", err)
	}

	var found []Entry
	for {
		select {
		case entry, ok := <-entries:
			if !ok {
				return found, nil
			}
			found = append(found, parseServiceEntry(entry)...)
		case <-ctx.Done():
			return found, nil
		}
	}
}

// Run advertises self and browses every interval until ctx is done, sending
// discovered and expired batches to out.
func (d *MDNSDiscovery) Run(ctx context.Context, self peer.AddrInfo, out chan<- Event) error {
	if err := d.StartAdvertising(self); err != nil {
		return err
	}
	defer d.StopAdvertising()

	tracker := NewTracker(self.ID, d.opts.TTL)
	ticker := time.NewTicker(d.opts.Interval)
	defer ticker.Stop()

	for {
		if err := d.round(ctx, tracker, out); err != nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// round returns an error only when ctx ended while delivering events.
func (d *MDNSDiscovery) round(ctx context.Context, tracker *Tracker, out chan<- Event) error {
	entries, err := d.browse(ctx)
	if err != nil {
		metrics.DiscoveryRoundsTotal.WithLabelValues("error").Inc()
		d.opts.Logger.Warn("mDNS browse failed", zap.Error(err))
	} else {
		metrics.DiscoveryRoundsTotal.WithLabelValues("ok").Inc()
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	discovered, expired := tracker.Observe(entries, time.Now())
	if len(discovered) > 0 {
		metrics.PeersDiscoveredTotal.Add(float64(len(discovered)))
		if err := send(ctx, out, Event{Kind: Discovered, Entries: discovered}); err != nil {
			return err
		}
	}
	if len(expired) > 0 {
		metrics.PeersExpiredTotal.Add(float64(len(expired)))
		if err := send(ctx, out, Event{Kind: Expired, Entries: expired}); err != nil {
			return err
		}
	}
	return nil
}

func send(ctx context.Context, out chan<- Event, ev Event) error {
	select {
	case out <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// advertisement picks the TCP port and TXT records announced for self.
// Loopback addresses are only announced when nothing else is bound.
func advertisement(self peer.AddrInfo) (int, []string, error) {
	var public, loopback []ma.Multiaddr
	for _, a := range self.Addrs {
		if _, err := a.ValueForProtocol(ma.P_TCP); err != nil {
			continue
		}
		if manet.IsIPLoopback(a) {
			loopback = append(loopback, a)
		} else {
			public = append(public, a)
		}
	}
	addrs := public
	if len(addrs) == 0 {
		addrs = loopback
	}
	if len(addrs) == 0 {
		return 0, nil, errors.New("no TCP address to advertise")
	}

	portStr, _ := addrs[0].ValueForProtocol(ma.P_TCP)
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return 0, nil, fmt.Errorf("invalid tcp port %q: %w", portStr, err)
	}

	text := make([]string, 0, len(addrs))
	for _, a := range addrs {
		text = append(text, dnsaddrPrefix+a.String()+"/p2p/"+self.ID.String())
	}
	return port, text, nil
}

func parseServiceEntry(entry *zeroconf.ServiceEntry) []Entry {
	if entry == nil {
		return nil
	}
	var found []Entry
	for _, txt := range entry.Text {
		if !strings.HasPrefix(txt, dnsaddrPrefix) {
			continue
		}
		e, ok := parseDNSAddr(strings.TrimPrefix(txt, dnsaddrPrefix))
		if ok {
			found = append(found, e)
		}
	}
	return found
}

func parseDNSAddr(s string) (Entry, bool) {
	addr, err := ma.NewMultiaddr(s)
	if err != nil {
		return Entry{}, false
	}
	transport, id := peer.SplitAddr(addr)
	if id == "" || transport == nil {
		return Entry{}, false
	}
	return Entry{ID: id, Addr: transport}, true
}

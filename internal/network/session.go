package network

import (
	"context"
	"sync"
	"time"

	"github.com/libp2p/go-libp2p/core/event"
	"github.com/libp2p/go-libp2p/core/host"
	corenet "github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"
	"go.uber.org/zap"

	"p2p-discovery/go-client/internal/discovery"
	apperrors "p2p-discovery/go-client/internal/errors"
	"p2p-discovery/go-client/internal/metrics"
)

// Discoverer finds peers on the local network and sends batches to out until
// ctx is done. A returned error is fatal to the session.
type Discoverer interface {
	Run(ctx context.Context, self peer.AddrInfo, out chan<- discovery.Event) error
}

// Reporter receives every event the session handles, in order, from the
// session goroutine.
type Reporter interface {
	Report(Event)
}

// Options configures a Session. Zero durations fall back to defaults.
type Options struct {
	// Discoverer enables automatic discovery; nil means manual mode.
	Discoverer Discoverer
	// Peer is dialled exactly once at startup when set.
	Peer *peer.AddrInfo

	PingInterval time.Duration
	PingTimeout  time.Duration
	DialTimeout  time.Duration

	Reporter Reporter
	Book     *PeerBook
	Logger   *zap.Logger
}

func (o *Options) setDefaults() {
	if o.PingInterval <= 0 {
		o.PingInterval = 15 * time.Second
	}
	if o.PingTimeout <= 0 {
		o.PingTimeout = 20 * time.Second
	}
	if o.DialTimeout <= 0 {
		o.DialTimeout = 10 * time.Second
	}
	if o.Reporter == nil {
		o.Reporter = nopReporter{}
	}
	if o.Book == nil {
		o.Book = NewPeerBook()
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
}

// Session consumes network events for one host until its context ends.
type Session struct {
	host host.Host
	opts Options

	events chan Event
	errs   chan error
	wg     sync.WaitGroup

	// owned by the Run goroutine
	probers  map[peer.ID]context.CancelFunc
	reported map[string]struct{}
}

func NewSession(h host.Host, opts Options) *Session {
	opts.setDefaults()
	return &Session{
		host:      h,
		opts:      opts,
		events:    make(chan Event, 64),
		errs:      make(chan error, 1),
		probers:  make(map[peer.ID]context.CancelFunc),
		reported: make(map[string]struct{}),
	}
}

// Book returns the peer book the session maintains.
func (s *Session) Book() *PeerBook {
	return s.opts.Book
}

// Run reports the listen addresses, starts discovery, dials the manual peer
// and then handles events one at a time until ctx is done. It returns nil on
// cancellation and an error on any setup or dial request failure.
func (s *Session) Run(ctx context.Context) error {
	defer s.wg.Wait()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger := s.opts.Logger.With(zap.Stringer("peer_id", s.host.ID()))

	// Listening addresses come first, before any peer event can be handled.
	for _, addr := range s.listenAddrs() {
		s.handle(ctx, Event{Kind: EventListening, Addr: addr})
	}

	sub, err := s.host.EventBus().Subscribe([]interface{}{
		new(event.EvtPeerConnectednessChanged),
		new(event.EvtLocalAddressesUpdated),
	})
	if err != nil {
		return apperrors.WrapNetworkError(err, "subscribe", "failed to subscribe to host events")
	}
	defer sub.Close()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.forwardHostEvents(ctx, sub)
	}()

	if s.opts.Discoverer != nil {
		s.startDiscovery(ctx)
	}

	if s.opts.Peer != nil {
		if err := s.dial(ctx, *s.opts.Peer); err != nil {
			return err
		}
	}

	logger.Info("session started", zap.Bool("discovery", s.opts.Discoverer != nil))
	for {
		select {
		case <-ctx.Done():
			logger.Info("session stopped")
			return nil
		case err := <-s.errs:
			return err
		case ev := <-s.events:
			if err := s.handle(ctx, ev); err != nil {
				return err
			}
		}
	}
}

func (s *Session) listenAddrs() []ma.Multiaddr {
	if addrs := s.host.Addrs(); len(addrs) > 0 {
		return addrs
	}
	return s.host.Network().ListenAddresses()
}

func (s *Session) handle(ctx context.Context, ev Event) error {
	metrics.SessionEventsTotal.WithLabelValues(ev.Kind.String()).Inc()

	switch ev.Kind {
	case EventListening, EventAddressAdded:
		key := ev.Addr.String()
		if _, seen := s.reported[key]; seen {
			return nil
		}
		s.reported[key] = struct{}{}

	case EventDiscovered:
		s.opts.Reporter.Report(ev)
		return s.dial(ctx, peer.AddrInfo{ID: ev.Peer, Addrs: []ma.Multiaddr{ev.Addr}})

	case EventConnected:
		if !s.opts.Book.Connected(ev.Peer, ev.Addr, time.Now()) {
			return nil
		}
		metrics.ConnectedPeers.Set(float64(s.opts.Book.Len()))
		s.startProber(ctx, ev.Peer)

	case EventDisconnected:
		if cancel, ok := s.probers[ev.Peer]; ok {
			cancel()
			delete(s.probers, ev.Peer)
		}
		if !s.opts.Book.Disconnected(ev.Peer) {
			return nil
		}
		metrics.ConnectedPeers.Set(float64(s.opts.Book.Len()))

	case EventPing:
		s.opts.Book.RecordPing(ev.Peer, ev.RTT, ev.Err, time.Now())
		if ev.Err != nil {
			metrics.PingFailuresTotal.Inc()
		} else {
			metrics.PingRTTSeconds.Observe(ev.RTT.Seconds())
		}
	}

	s.opts.Reporter.Report(ev)
	return nil
}

// post hands an event to the loop. It reports false once ctx is done.
func (s *Session) post(ctx context.Context, ev Event) bool {
	select {
	case s.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *Session) forwardHostEvents(ctx context.Context, sub event.Subscription) {
	for {
		var raw interface{}
		select {
		case <-ctx.Done():
			return
		case e, ok := <-sub.Out():
			if !ok {
				return
			}
			raw = e
		}

		switch e := raw.(type) {
		case event.EvtPeerConnectednessChanged:
			switch e.Connectedness {
			case corenet.Connected:
				ev := Event{Kind: EventConnected, Peer: e.Peer}
				if conns := s.host.Network().ConnsToPeer(e.Peer); len(conns) > 0 {
					ev.Addr = conns[0].RemoteMultiaddr()
				}
				if !s.post(ctx, ev) {
					return
				}
			case corenet.NotConnected:
				if !s.post(ctx, Event{Kind: EventDisconnected, Peer: e.Peer}) {
					return
				}
			}
		case event.EvtLocalAddressesUpdated:
			for _, u := range e.Current {
				if !s.post(ctx, Event{Kind: EventAddressAdded, Addr: u.Address}) {
					return
				}
			}
		}
	}
}

func (s *Session) startDiscovery(ctx context.Context) {
	batches := make(chan discovery.Event)
	self := peer.AddrInfo{ID: s.host.ID(), Addrs: s.listenAddrs()}

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		if err := s.opts.Discoverer.Run(ctx, self, batches); err != nil {
			select {
			case s.errs <- apperrors.WrapNetworkError(err, "discovery", "local peer discovery failed"):
			default:
			}
		}
	}()
	go func() {
		defer s.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case batch := <-batches:
				kind := EventDiscovered
				if batch.Kind == discovery.Expired {
					kind = EventExpired
				}
				for _, e := range batch.Entries {
					if !s.post(ctx, Event{Kind: kind, Peer: e.ID, Addr: e.Addr}) {
						return
					}
				}
			}
		}
	}()
}

type nopReporter struct{}

func (nopReporter) Report(Event) {}

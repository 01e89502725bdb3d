package network

import (
	"context"
	"errors"
	"time"

	corenet "github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/p2p/protocol/ping"
)

var errPingClosed = errors.New("ping stream closed")

// startProber probes id right away and then every ping interval until the
// peer disconnects or the session ends. Must be called from the loop.
func (s *Session) startProber(ctx context.Context, id peer.ID) {
	if _, running := s.probers[id]; running {
		return
	}
	pctx, cancel := context.WithCancel(ctx)
	s.probers[id] = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.probe(pctx, id)
	}()
}

func (s *Session) probe(ctx context.Context, id peer.ID) {
	ticker := time.NewTicker(s.opts.PingInterval)
	defer ticker.Stop()

	for {
		ev := s.pingOnce(ctx, id)
		if ctx.Err() != nil {
			return
		}
		if !s.post(ctx, ev) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// pingOnce runs a single round trip on a fresh ping stream. It never dials:
// a peer that is no longer connected yields a failed ping.
func (s *Session) pingOnce(ctx context.Context, id peer.ID) Event {
	ctx, cancel := context.WithTimeout(ctx, s.opts.PingTimeout)
	defer cancel()
	ctx = corenet.WithNoDial(ctx, "ping")

	ev := Event{Kind: EventPing, Peer: id}
	res, ok := <-ping.Ping(ctx, s.host, id)
	switch {
	case !ok && ctx.Err() != nil:
		ev.Err = ctx.Err()
	case !ok:
		ev.Err = errPingClosed
	case res.Error != nil:
		ev.Err = res.Error
	default:
		ev.RTT = res.RTT
	}
	return ev
}

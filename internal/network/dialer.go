package network

import (
	"context"

	"github.com/libp2p/go-libp2p/core/peer"
	"go.uber.org/zap"

	apperrors "p2p-discovery/go-client/internal/errors"
	"p2p-discovery/go-client/internal/metrics"
)

// dial validates the request and connects in the background. An invalid
// request is returned as a dial error; a failed connection attempt is posted
// as EventDialFailed. Nothing is retried.
func (s *Session) dial(ctx context.Context, info peer.AddrInfo) error {
	if err := info.ID.Validate(); err != nil {
		return apperrors.WrapDialError(err, "dial", "invalid peer id")
	}
	if info.ID == s.host.ID() {
		return apperrors.NewDialError("dial", "refusing to dial the local peer").
			WithContext("peer", info.ID.String())
	}
	if len(info.Addrs) == 0 {
		return apperrors.NewDialError("dial", "no address to dial").
			WithContext("peer", info.ID.String())
	}

	s.opts.Reporter.Report(Event{Kind: EventDialing, Peer: info.ID, Addr: info.Addrs[0]})

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		dctx, cancel := context.WithTimeout(ctx, s.opts.DialTimeout)
		defer cancel()

		if err := s.host.Connect(dctx, info); err != nil {
			if ctx.Err() != nil {
				return
			}
			metrics.DialsTotal.WithLabelValues("error").Inc()
			s.opts.Logger.Debug("dial failed", zap.Stringer("peer", info.ID), zap.Error(err))
			s.post(ctx, Event{Kind: EventDialFailed, Peer: info.ID, Addr: info.Addrs[0], Err: err})
			return
		}
		metrics.DialsTotal.WithLabelValues("ok").Inc()
	}()
	return nil
}

package network

import (
	"github.com/libp2p/go-libp2p"
	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/p2p/muxer/yamux"
	"github.com/libp2p/go-libp2p/p2p/security/noise"
	"github.com/libp2p/go-libp2p/p2p/transport/tcp"

	apperrors "p2p-discovery/go-client/internal/errors"
)

// DefaultListenAddr binds an OS-assigned TCP port on all IPv4 interfaces.
const DefaultListenAddr = "/ip4/0.0.0.0/tcp/0"

// NewHost creates a libp2p host speaking TCP + noise + yamux, answering the
// ping protocol, and listening on listenAddrs.
func NewHost(priv crypto.PrivKey, listenAddrs ...string) (host.Host, error) {
	if len(listenAddrs) == 0 {
		listenAddrs = []string{DefaultListenAddr}
	}

	h, err := libp2p.New(
		libp2p.Identity(priv),
		libp2p.ListenAddrStrings(listenAddrs...),
		libp2p.Transport(tcp.NewTCPTransport),
		libp2p.Security(noise.ID, noise.New),
		libp2p.Muxer(yamux.ID, yamux.DefaultTransport),
		libp2p.Ping(true),
		libp2p.DisableRelay(),
	)
	if err != nil {
		return nil, apperrors.WrapNetworkError(err, "listen", "failed to create host").
			WithContext("listen_addrs", listenAddrs)
	}
	return h, nil
}

package status

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"p2p-discovery/go-client/internal/network"
)

type staticPeers []network.Peer

func (s staticPeers) Snapshot() []network.Peer { return s }

func TestRouter_Healthz(t *testing.T) {
	srv := httptest.NewServer(NewRouter("self", staticPeers(nil), zap.NewNop()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))
}

func TestRouter_Peers(t *testing.T) {
	peers := staticPeers{
		{ID: "12D3KooWA", Address: "/ip4/10.0.0.2/tcp/4001", LastRTT: 2 * time.Millisecond},
		{ID: "12D3KooWB", Address: "/ip4/10.0.0.3/tcp/4001", LastError: "timeout"},
	}
	srv := httptest.NewServer(NewRouter("12D3KooWSelf", peers, zap.NewNop()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/peers")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	var got peersResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "12D3KooWSelf", got.Self)
	assert.Equal(t, 2, got.Count)
	require.Len(t, got.Peers, 2)
	assert.Equal(t, "12D3KooWA", got.Peers[0].ID)
	assert.Equal(t, 2*time.Millisecond, got.Peers[0].LastRTT)
	assert.Equal(t, "timeout", got.Peers[1].LastError)
}

func TestRouter_Metrics(t *testing.T) {
	srv := httptest.NewServer(NewRouter("self", staticPeers(nil), zap.NewNop()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "p2pnode_connected_peers")
}

func TestServer_RunStopsOnCancel(t *testing.T) {
	s := NewServer("127.0.0.1:0", NewRouter("self", staticPeers(nil), zap.NewNop()), zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServer_RunBadAddr(t *testing.T) {
	s := NewServer("256.0.0.1:bad", http.NotFoundHandler(), zap.NewNop())
	assert.Error(t, s.Run(context.Background()))
}

package status

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"p2p-discovery/go-client/internal/network"
)

// PeerLister provides the connected peers shown on /peers.
type PeerLister interface {
	Snapshot() []network.Peer
}

type peersResponse struct {
	Self  string         `json:"self"`
	Count int            `json:"count"`
	Peers []network.Peer `json:"peers"`
}

// NewRouter serves /healthz, /peers and /metrics.
func NewRouter(self string, peers PeerLister, logger *zap.Logger) http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.Recoverer)

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/peers", func(w http.ResponseWriter, r *http.Request) {
		snap := peers.Snapshot()
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(peersResponse{Self: self, Count: len(snap), Peers: snap}); err != nil {
			logger.Warn("failed to write peers response", zap.Error(err))
		}
	})

	router.Handle("/metrics", promhttp.Handler())
	return router
}

// Server runs the status router on a TCP address.
type Server struct {
	srv    *http.Server
	logger *zap.Logger
}

func NewServer(addr string, handler http.Handler, logger *zap.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	s.logger.Info("status server listening", zap.String("address", lis.Addr().String()))

	errCh := make(chan error, 1)
	go func() {
		if err := s.srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

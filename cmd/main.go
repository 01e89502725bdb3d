package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"p2p-discovery/go-client/internal/config"
	"p2p-discovery/go-client/internal/crypto/keys"
	"p2p-discovery/go-client/internal/discovery"
	apperrors "p2p-discovery/go-client/internal/errors"
	"p2p-discovery/go-client/internal/logging"
	"p2p-discovery/go-client/internal/network"
	"p2p-discovery/go-client/internal/status"
	"p2p-discovery/go-client/internal/storage"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}

	logCfg := logging.DefaultConfig()
	logCfg.Format = cfg.LogFormat
	logCfg.Level = cfg.LogLevel
	logger, err := logging.NewLogger(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("node stopped",
			zap.String("error_type", string(apperrors.TypeOf(err))),
			zap.Error(err),
		)
		stop()
		_ = logger.Sync()
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	store := storage.NewRecordStore(cfg.RecordPath)
	if err := store.Save(storage.Record{ID: 1, Title: "Test Note", Content: "Hello DOC - Physics efficient storage"}); err != nil {
		return err
	}
	record, err := store.Load()
	if err != nil {
		return err
	}
	fmt.Printf("📄 Loaded record: %s\n", record)

	priv, err := keys.LoadOrGenerate(cfg.IdentityPath)
	if err != nil {
		return err
	}
	id, err := keys.PeerID(priv)
	if err != nil {
		return err
	}
	fmt.Printf("🔌 Running as peer ID: %s\n", id)

	h, err := network.NewHost(priv, cfg.ListenAddr)
	if err != nil {
		return err
	}
	defer h.Close()

	var disc network.Discoverer
	if cfg.Discovery() {
		disc = discovery.NewMDNSDiscovery(discovery.Options{
			ServiceName:   cfg.MDNSService,
			Interval:      cfg.DiscoveryInterval,
			BrowseTimeout: cfg.DiscoveryTimeout,
			TTL:           cfg.DiscoveryTTL,
			Logger:        logger.Named("discovery"),
		})
	}

	session := network.NewSession(h, network.Options{
		Discoverer:   disc,
		Peer:         cfg.Peer,
		PingInterval: cfg.PingInterval,
		PingTimeout:  cfg.PingTimeout,
		DialTimeout:  cfg.DialTimeout,
		Reporter:     network.NewConsoleReporter(os.Stdout),
		Logger:       logger.Named("session"),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return session.Run(gctx)
	})
	if cfg.MetricsAddr != "" {
		router := status.NewRouter(h.ID().String(), session.Book(), logger.Named("status"))
		srv := status.NewServer(cfg.MetricsAddr, router, logger.Named("status"))
		g.Go(func() error {
			return srv.Run(gctx)
		})
	}

	logger.Info("node started",
		zap.String("peer_id", h.ID().String()),
		zap.String("mode", cfg.Mode),
		zap.String("record", store.Path()),
	)
	return g.Wait()
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"NetSentinel/internal/alerter"
	"NetSentinel/internal/api"
	"NetSentinel/internal/broadcast"
	"NetSentinel/internal/collector"
	"NetSentinel/internal/config"
	"NetSentinel/internal/control"
	"NetSentinel/internal/detector"
	"NetSentinel/internal/logging"
	"NetSentinel/internal/notification"
	"NetSentinel/internal/pipeline"
	"NetSentinel/internal/probe"
	"NetSentinel/internal/scorer"
	"NetSentinel/internal/snapshot"
	"NetSentinel/internal/storage"
	"NetSentinel/internal/training"

	"google.golang.org/grpc"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to the configuration file.")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	log := logging.With("ns-collector")

	if err := run(cfg); err != nil {
		log.Error().Err(err).Msg("collector exited with error")
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	log := logging.With("ns-collector")

	store, err := storage.Open(cfg.Storage)
	if err != nil {
		return err
	}
	defer store.Close()

	sc := scorer.New(detector.Options{
		NumTrees:      cfg.Scorer.NumTrees,
		SampleSize:    cfg.Scorer.SampleSize,
		Contamination: cfg.Scorer.Contamination,
		Seed:          cfg.Scorer.Seed,
	}, snapshot.NewWriter(cfg.Scorer.ModelDir))
	switch err := sc.LoadArtifacts(); {
	case errors.Is(err, snapshot.ErrNoArtifacts):
		log.Info().Str("dir", cfg.Scorer.ModelDir).Msg("no model artifacts found; scorer starts untrained")
	case err != nil:
		log.Warn().Err(err).Msg("failed to load model artifacts; scorer starts untrained")
	}

	// Event fan-out: in-process websocket group, plus the NATS relay and the
	// alert digest when enabled.
	group := broadcast.NewGroup("traffic_group")
	defer group.Close()
	publishers := broadcast.Publishers{group}

	if cfg.NATS.Enabled {
		natsCfg := cfg.NATS
		if natsCfg.Embedded {
			ns, err := probe.StartEmbeddedServer(natsCfg)
			if err != nil {
				return err
			}
			defer ns.Shutdown()
			natsCfg.URL = ns.ClientURL()
		}
		relay, err := probe.NewPublisher(natsCfg)
		if err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		defer relay.Close()
		publishers = append(publishers, relay)
	}

	if cfg.Alerter.Enabled {
		notifier, err := notification.NewEmailNotifier(cfg.SMTP)
		if err != nil {
			return err
		}
		al, err := alerter.NewAlerter(cfg.Alerter, notifier)
		if err != nil {
			return err
		}
		al.Start()
		defer al.Stop()
		publishers = append(publishers, al)
	}

	fitPool := pipeline.NewPool("fit", 1, 4)
	fitPool.Start()
	defer fitPool.Stop()

	ingestPool := pipeline.NewPool("ingest", cfg.Collector.NumWorkers, cfg.Collector.QueueSize)
	ingestPool.Start()
	defer ingestPool.Stop()

	coordinator := training.NewCoordinator(sc, fitPool, publishers, cfg.Collector.TrainingSetSize, config.Duration(cfg.Collector.FitTimeout))
	controller := training.NewController(coordinator, sc)
	pipe := collector.New(store, coordinator, sc, publishers, ingestPool)

	handler := api.NewHandler(pipe, controller, store, group, cfg.Collector.AlertsLimit, cfg.Collector.TopSources)
	httpServer := &http.Server{
		Addr:              cfg.Collector.ListenAddr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	grpcServer := grpc.NewServer()
	control.Register(grpcServer, controller)
	lis, err := net.Listen("tcp", cfg.Collector.GRPCListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.Collector.GRPCListenAddr, err)
	}

	errCh := make(chan error, 2)
	go func() {
		log.Info().Str("addr", cfg.Collector.GRPCListenAddr).Msg("gRPC control server starting")
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("gRPC server: %w", err)
		}
	}()
	go func() {
		log.Info().Str("addr", cfg.Collector.ListenAddr).Msg("HTTP server starting")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
		log.Info().Msg("shutdown signal received")
	case err = <-errCh:
	}

	grpcServer.GracefulStop()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if shutdownErr := httpServer.Shutdown(ctx); shutdownErr != nil {
		log.Warn().Err(shutdownErr).Msg("HTTP server shutdown")
	}
	log.Info().Msg("servers stopped; draining pipeline")
	return err
}

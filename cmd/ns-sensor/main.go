package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"NetSentinel/internal/config"
	"NetSentinel/internal/logging"
	"NetSentinel/internal/model"
	"NetSentinel/internal/sensor"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to the configuration file.")
	iface := flag.String("iface", "", "Interface to capture from (overrides sensor.interface).")
	pcapFile := flag.String("pcap", "", "Replay a pcap file instead of capturing live (overrides sensor.pcap_file).")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	log := logging.With("ns-sensor")

	sc := cfg.Sensor
	if *iface != "" {
		sc.Interface = *iface
	}
	if *pcapFile != "" {
		sc.PcapFile = *pcapFile
	}

	var src sensor.Source
	if sc.PcapFile != "" {
		src, err = sensor.OpenOffline(sc.PcapFile)
	} else {
		if sc.Interface == "" {
			log.Error().Msg("no capture interface configured; set sensor.interface or -iface")
			os.Exit(1)
		}
		src, err = sensor.OpenLive(sc.Interface, sc.SnapshotLen, sc.Promiscuous)
	}
	if errors.Is(err, model.ErrPermission) {
		log.Error().Err(err).Msg("insufficient privileges to capture; run with the required capabilities")
		os.Exit(1)
	}
	if err != nil {
		log.Error().Err(err).Msg("failed to open capture source")
		os.Exit(1)
	}
	defer src.Close()

	sender := sensor.NewHTTPSender(sensor.HTTPSenderConfig{
		URL:              sc.CollectorURL,
		Timeout:          config.Duration(sc.RequestTimeout),
		FailureThreshold: sc.Breaker.FailureThreshold,
		OpenTimeout:      config.Duration(sc.Breaker.OpenTimeout),
	})
	batcher := sensor.NewBatcher(sender, sc.BatchSize, config.Duration(sc.MaxBatchInterval))
	batcher.SetSendTimeout(config.Duration(sc.RequestTimeout))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Info().
		Str("sensor_id", sender.SensorID()).
		Str("interface", sc.Interface).
		Str("pcap_file", sc.PcapFile).
		Str("collector", sc.CollectorURL).
		Int("batch_size", sc.BatchSize).
		Msg("sensor started")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		batcher.Run(ctx)
	}()

	captured, dropped := sensor.Capture(ctx, src.Packets(), batcher)
	cancel()
	wg.Wait()

	batcher.Close(config.Duration(sc.RequestTimeout))
	log.Info().Int("captured", captured).Int("dropped", dropped).Msg("sensor stopped")
}

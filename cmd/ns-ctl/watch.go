package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"NetSentinel/internal/model"
	"NetSentinel/internal/probe"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch [traffic|alert|system]...",
	Short: "Stream relayed events from NATS",
	Long:  "Subscribe to the collector's NATS relay and print events as they arrive. With no arguments every kind is shown.",
	RunE: func(cmd *cobra.Command, args []string) error {
		kinds := make([]model.EventKind, 0, len(args))
		for _, a := range args {
			k := model.EventKind(a)
			switch k {
			case model.EventTraffic, model.EventAlert, model.EventSystem:
				kinds = append(kinds, k)
			default:
				return fmt.Errorf("unknown event kind %q", a)
			}
		}

		sub, err := probe.NewSubscriber(cfg.NATS)
		if err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		defer sub.Close()

		asJSON := outputFormat(cmd) == "json"
		if err := sub.Start(func(e model.Event) {
			if asJSON {
				line, err := json.Marshal(map[string]interface{}{"type": e.Kind, "data": e.Data()})
				if err == nil {
					fmt.Println(string(line))
				}
				return
			}
			fmt.Println(formatEvent(e))
		}, kinds...); err != nil {
			return err
		}

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		return nil
	},
}

func formatEvent(e model.Event) string {
	switch e.Kind {
	case model.EventTraffic:
		r := e.Traffic
		return fmt.Sprintf("%s TRAFFIC #%d %s size=%d flags=%s",
			r.Timestamp.Format(time.RFC3339), r.ID, r, r.PacketSize, r.TCPFlags)
	case model.EventAlert:
		a := e.Alert
		return fmt.Sprintf("%s ALERT   #%d [%s] %s", a.Timestamp.Format(time.RFC3339), a.ID, a.Severity, a.Message)
	default:
		return fmt.Sprintf("SYSTEM  %s", e.Message)
	}
}

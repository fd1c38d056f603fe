package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"NetSentinel/internal/control"
	"NetSentinel/internal/model"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

const rpcTimeout = 10 * time.Second

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Start collecting a training baseline",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, closeConn, err := dialControl(cmd)
		if err != nil {
			return err
		}
		defer closeConn()

		ctx, cancel := context.WithTimeout(cmd.Context(), rpcTimeout)
		defer cancel()
		msg, err := client.StartTraining(ctx)
		if errors.Is(err, model.ErrAlreadyCollecting) {
			return fmt.Errorf("training is already in progress")
		}
		if err != nil {
			return fmt.Errorf("failed to start training: %w", err)
		}
		fmt.Println(msg)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show anomaly model status",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, closeConn, err := dialControl(cmd)
		if err != nil {
			return err
		}
		defer closeConn()

		ctx, cancel := context.WithTimeout(cmd.Context(), rpcTimeout)
		defer cancel()
		st, err := client.Status(ctx)
		if err != nil {
			return fmt.Errorf("failed to fetch status: %w", err)
		}

		if outputFormat(cmd) == "json" {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(st)
		}
		fmt.Print(formatStatus(st))
		return nil
	},
}

func dialControl(cmd *cobra.Command) (*control.Client, func(), error) {
	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = cfg.Collector.GRPCListenAddr
		if strings.HasPrefix(addr, ":") {
			addr = "127.0.0.1" + addr
		}
	}
	client, conn, err := control.Dial(addr)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	return client, func() { conn.Close() }, nil
}

func outputFormat(cmd *cobra.Command) string {
	f, _ := cmd.Flags().GetString("output")
	return f
}

func formatStatus(st model.ModelStatus) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Trained:  %t\n", st.IsTrained)
	if st.IsTraining {
		fmt.Fprintf(&b, "Training: collecting %d/%d records\n", st.Collected, st.Target)
	} else {
		b.WriteString("Training: idle\n")
	}
	return b.String()
}

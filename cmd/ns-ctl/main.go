package main

import (
	"fmt"
	"os"

	"NetSentinel/internal/config"
	"NetSentinel/internal/logging"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "ns-ctl",
	Short: "NetSentinel control CLI",
	Long: `ns-ctl talks to a running ns-collector.

Start baseline collection, check the anomaly model status, and watch the
relayed event stream from your terminal.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadConfig(cfgFile)
		if err != nil {
			return err
		}
		logging.Init(logging.Config{Level: cfg.Logging.Level, Format: "console"})
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "configs/config.yaml", "config file")
	rootCmd.PersistentFlags().String("addr", "", "collector gRPC address (default: collector.grpc_listen_addr)")
	rootCmd.PersistentFlags().String("output", "text", "output format: text, json")
	rootCmd.AddCommand(trainCmd, statusCmd, watchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/quantrose/candleflow/src/config"
	"github.com/quantrose/candleflow/src/exchange"
	"github.com/quantrose/candleflow/src/logger"
	"github.com/quantrose/candleflow/src/run"
)

var configPath string
var logLevel string

var rootCmd = &cobra.Command{
	Use:   "candleflow",
	Short: "Event-driven candle pipeline for paper trading and backtests",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil {
			log.Debugf("No .env file loaded: %v", err)
		}

		return logger.Init(logLevel)
	},
}

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Replay a recorded trade file through the pipeline",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load(configPath)
		if err != nil {
			log.Fatalf("error loading config: %v", err)
		}

		if _, err := run.Backtest(cmd.Context(), cfg, run.Options{}); err != nil {
			log.Fatalf("backtest failed: %v", err)
		}
	},
}

var paperCmd = &cobra.Command{
	Use:   "paper",
	Short: "Run the live paper-trading loop until interrupted",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load(configPath)
		if err != nil {
			log.Fatalf("error loading config: %v", err)
		}

		if _, err := run.Realtime(cmd.Context(), cfg, run.Options{}); err != nil {
			log.Fatalf("paper trading failed: %v", err)
		}
	},
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Fetch historical trades into a CSV file for backtesting",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load(configPath)
		if err != nil {
			log.Fatalf("error loading config: %v", err)
		}

		source := exchange.NewWebsocketSource(cfg.Watch.WebsocketURL, nil)
		go func() {
			if err := source.Run(cmd.Context()); err != nil && cmd.Context().Err() == nil {
				log.Errorf("websocket source stopped: %v", err)
			}
		}()

		if err := run.Import(cmd.Context(), cfg, run.Options{Source: source}); err != nil {
			log.Fatalf("import failed: %v", err)
		}
	},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to the run configuration")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "logrus level")

	rootCmd.AddCommand(backtestCmd)
	rootCmd.AddCommand(paperCmd)
	rootCmd.AddCommand(importCmd)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

// Binary bot runs the SMA crossover trading loop against Binance spot.
package main

import (
	"context"
	"fmt"
	"os"
	ossignal "os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/Scratouze/trading-bot-test/internal/bot"
	"github.com/Scratouze/trading-bot-test/internal/config"
	"github.com/Scratouze/trading-bot-test/internal/metrics"
	"github.com/Scratouze/trading-bot-test/internal/util"
)

func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_FILE")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log := util.NewFileLogger(cfg.App.LogLevel, cfg.App.LogFile)

	_ = metrics.Serve(cfg.App.MetricsAddr)
	log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	b, stream := bot.FromConfig(cfg, log)
	if stream != nil {
		go func() {
			if err := stream.Run(ctx); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("price stream stopped")
			}
		}()
	}

	if err := b.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal().Err(err).Msg("trading loop stopped")
	}
}

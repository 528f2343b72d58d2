// Binary botctl is the operator CLI: run the loop, inspect balances,
// value the portfolio, and summarize recorded trades.
package main

import (
	"fmt"
	"os"
	ossignal "os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Scratouze/trading-bot-test/internal/bot"
	"github.com/Scratouze/trading-bot-test/internal/config"
	"github.com/Scratouze/trading-bot-test/internal/exchange"
	"github.com/Scratouze/trading-bot-test/internal/portfolio"
	"github.com/Scratouze/trading-bot-test/internal/trades"
	"github.com/Scratouze/trading-bot-test/internal/util"
)

var cfgPath string

func main() {
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:           "botctl",
		Short:         "Control and inspect the spot trading bot",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "path to the YAML configuration")

	root.AddCommand(startCmd(), balanceCmd(), portfolioCmd(), statsCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	return config.Load(cfgPath)
}

func newClient(cfg *config.Config) *exchange.Client {
	return exchange.NewClient(exchange.Config{
		BaseURL:   cfg.Exchange.BaseURL,
		APIKey:    cfg.Exchange.APIKey,
		APISecret: cfg.Exchange.APISecret,
		Testnet:   cfg.Exchange.Testnet,
	}, util.NewLogger("warn"))
}

func startCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Run the trading loop until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := util.NewFileLogger(cfg.App.LogLevel, cfg.App.LogFile)

			ctx, cancel := ossignal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			b, stream := bot.FromConfig(cfg, log)
			if stream != nil {
				go func() {
					if err := stream.Run(ctx); err != nil && ctx.Err() == nil {
						log.Error().Err(err).Msg("price stream stopped")
					}
				}()
			}
			if err := b.Run(ctx); ctx.Err() == nil {
				return err
			}
			return nil
		},
	}
}

func balanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Show non-zero balances for the watched assets",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ex := newClient(cfg)
			fmt.Println("--- Account balances ---")
			for _, asset := range portfolio.DefaultAssets {
				bal, err := ex.AssetBalance(cmd.Context(), asset)
				if err != nil {
					return err
				}
				if bal > 0 {
					fmt.Printf("%s: %g\n", asset, bal)
				}
			}
			return nil
		},
	}
}

func portfolioCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "portfolio",
		Short: "Value all holdings in USDT",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			total, detail, err := portfolio.Value(cmd.Context(), newClient(cfg), "USDT", portfolio.DefaultAssets)
			if err != nil {
				return err
			}
			fmt.Println("--- Portfolio detail ---")
			for _, av := range detail {
				fmt.Printf("%s: %g (~ %.2f USDT)\n", av.Asset, av.Balance, av.Value)
			}
			fmt.Printf("\nTotal portfolio value: %.4f USDT\n", total)
			return nil
		},
	}
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize recorded trades",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			stats, err := trades.NewRecorder(cfg.Trading.TradesFile).ComputeStats()
			if err != nil {
				return err
			}
			fmt.Println("--- Trading summary ---")
			fmt.Printf("Winning trades : %d\n", stats.Wins)
			fmt.Printf("Losing trades  : %d\n", stats.Losses)
			fmt.Printf("Gross profit   : %+.4f USDT\n", stats.GrossProfit)
			fmt.Printf("Gross loss     : %.4f USDT\n", stats.GrossLoss)
			fmt.Printf("Net PnL        : %+.4f USDT\n", stats.TotalPnL)
			fmt.Printf("Win rate       : %.2f%%\n", stats.WinRatePct)
			return nil
		},
	}
}

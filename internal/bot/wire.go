package bot

import (
	"github.com/rs/zerolog"

	"github.com/Scratouze/trading-bot-test/internal/config"
	"github.com/Scratouze/trading-bot-test/internal/exchange"
	"github.com/Scratouze/trading-bot-test/internal/execution"
	"github.com/Scratouze/trading-bot-test/internal/portfolio"
	"github.com/Scratouze/trading-bot-test/internal/risk"
	"github.com/Scratouze/trading-bot-test/internal/strategy"
	"github.com/Scratouze/trading-bot-test/internal/trades"
)

// FromConfig assembles the full pipeline around a validated configuration.
// The returned stream is nil unless the live price cache is enabled; the
// caller owns running it.
func FromConfig(cfg *config.Config, log zerolog.Logger) (*Bot, *exchange.PriceStream) {
	client := exchange.NewClient(exchange.Config{
		BaseURL:   cfg.Exchange.BaseURL,
		APIKey:    cfg.Exchange.APIKey,
		APISecret: cfg.Exchange.APISecret,
		Testnet:   cfg.Exchange.Testnet,
	}, log)

	var stream *exchange.PriceStream
	if cfg.Exchange.PriceStream {
		stream = exchange.NewPriceStream("", []string{cfg.Trading.Symbol}, log)
		client.AttachStream(stream)
	}

	strat := strategy.Build(cfg.Strategy.Mode, strategy.Params{
		SMAShort:    cfg.Strategy.SMAShort,
		SMALong:     cfg.Strategy.SMALong,
		MinGapUSDT:  cfg.Strategy.MinGapUSDT,
		MinGapPct:   cfg.Strategy.MinGapPct,
		ConfirmBars: cfg.Strategy.ConfirmBars,
		RSILow:      cfg.Strategy.RSILow,
		RSIHigh:     cfg.Strategy.RSIHigh,
	}, log)

	riskCfg := risk.Config{
		StopLossPct:     cfg.Risk.StopLossPct,
		TakeProfitPct:   cfg.Risk.TakeProfitPct,
		MaxOrdersPerMin: cfg.Risk.MaxOrdersPerMin,
	}
	ctrl := execution.NewController(client, riskCfg, cfg.Trading.DryRun, log)
	ledger := portfolio.NewLedger(cfg.Trading.Symbol)
	recorder := trades.NewRecorder(cfg.Trading.TradesFile)

	return New(cfg, client, strat, ctrl, ledger, recorder, log), stream
}

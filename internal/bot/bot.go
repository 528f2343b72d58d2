// Package bot runs the per-tick decision and execution pipeline.
package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Scratouze/trading-bot-test/internal/config"
	"github.com/Scratouze/trading-bot-test/internal/exchange"
	"github.com/Scratouze/trading-bot-test/internal/execution"
	"github.com/Scratouze/trading-bot-test/internal/market"
	"github.com/Scratouze/trading-bot-test/internal/metrics"
	"github.com/Scratouze/trading-bot-test/internal/portfolio"
	"github.com/Scratouze/trading-bot-test/internal/risk"
	"github.com/Scratouze/trading-bot-test/internal/strategy"
)

// Gateway is the market-data slice of the exchange the loop consumes.
type Gateway interface {
	Klines(ctx context.Context, symbol, interval string, limit int) (market.Series, error)
	Price(ctx context.Context, symbol string) (float64, error)
}

// Recorder persists executed trades for later statistics.
type Recorder interface {
	Append(symbol string, side exchange.Side, price, quantity float64, pnl *float64) error
}

// Bot owns one symbol's strategy, controller, and ledger. Ticks run strictly
// one at a time; give each symbol its own Bot to parallelize.
type Bot struct {
	cfg    *config.Config
	gw     Gateway
	strat  strategy.Strategy
	ctrl   *execution.Controller
	ledger *portfolio.Ledger
	rec    Recorder
	log    zerolog.Logger
}

// New assembles the pipeline around an already-validated configuration.
func New(cfg *config.Config, gw Gateway, strat strategy.Strategy, ctrl *execution.Controller, ledger *portfolio.Ledger, rec Recorder, log zerolog.Logger) *Bot {
	return &Bot{
		cfg:    cfg,
		gw:     gw,
		strat:  strat,
		ctrl:   ctrl,
		ledger: ledger,
		rec:    rec,
		log:    log,
	}
}

// Run ticks until the context is canceled. Tick faults are logged and the
// loop carries on; only cancellation stops it.
func (b *Bot) Run(ctx context.Context) error {
	b.log.Info().
		Str("strategy", b.strat.Name()).
		Str("symbol", b.cfg.Trading.Symbol).
		Str("interval", b.cfg.Trading.Interval).
		Bool("dry_run", b.cfg.Trading.DryRun).
		Bool("testnet", b.cfg.Exchange.Testnet).
		Msg("trading loop started")

	interval := time.Duration(b.cfg.Trading.PollSeconds) * time.Second
	for {
		if err := b.Tick(ctx); err != nil {
			metrics.TickErrorsTotal.WithLabelValues(b.cfg.Trading.Symbol).Inc()
			b.log.Error().Err(err).Msg("tick aborted, retrying next poll")
		}
		select {
		case <-ctx.Done():
			b.log.Info().Float64("total_pnl", b.ledger.RealizedPnL()).Msg("shutting down")
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

// Tick executes one full pass: poll candles, evaluate the strategy, act on
// the signal, then re-check risk exits against whatever position remains.
func (b *Bot) Tick(ctx context.Context) error {
	symbol := b.cfg.Trading.Symbol
	metrics.TicksTotal.WithLabelValues(symbol).Inc()

	series, err := b.gw.Klines(ctx, symbol, b.cfg.Trading.Interval, b.cfg.Trading.CandleLimit)
	if err != nil {
		return fmt.Errorf("poll candles: %w", err)
	}
	last, ok := series.Last()
	if !ok {
		return fmt.Errorf("poll candles: empty series")
	}
	price := last.Close

	action, diag := b.strat.Signal(series)
	metrics.SignalsTotal.WithLabelValues(symbol, action.String()).Inc()
	if action == strategy.None {
		b.log.Info().
			Str("trend", diag.Trend).
			Str("cross", diag.Cross).
			Int("confirm", diag.ConfirmCount).
			Int("needed", diag.ConfirmNeeded).
			Bool("near_cross", diag.NearCross).
			Str("reason", diag.Reason).
			Msg("no signal")
	} else {
		b.log.Info().Str("action", action.String()).Str("reason", diag.Reason).Msg("signal validated")
	}

	switch action {
	case strategy.Buy:
		if err := b.enter(ctx, symbol, price); err != nil {
			return err
		}
	case strategy.Sell:
		b.exit(ctx, symbol, price, "signal")
	}

	// Stop-loss/take-profit run every tick, after the signal has been acted
	// on, against the possibly just-opened position.
	b.checkRiskExit(ctx, symbol, price)
	return nil
}

func (b *Bot) enter(ctx context.Context, symbol string, price float64) error {
	if b.ledger.Position().Open() {
		b.log.Info().Msg("BUY signal ignored: position already open")
		return nil
	}
	qty, err := b.ctrl.SizeOrder(ctx, symbol, b.cfg.Trading.BaseOrderUSDT, price)
	if err != nil {
		return fmt.Errorf("size order: %w", err)
	}
	if qty <= 0 {
		b.log.Warn().Float64("notional", b.cfg.Trading.BaseOrderUSDT).Float64("price", price).Msg("cannot size order, skipped")
		return nil
	}
	res, status := b.ctrl.Submit(ctx, symbol, exchange.SideBuy, qty)
	if status != execution.Filled {
		return nil
	}
	if err := b.ledger.Open(qty, price); err != nil {
		return fmt.Errorf("open position: %w", err)
	}
	b.log.Info().Float64("qty", qty).Float64("entry", price).Str("order_id", res.OrderID).Msg("position opened")
	if err := b.rec.Append(symbol, exchange.SideBuy, price, qty, nil); err != nil {
		b.log.Error().Err(err).Msg("failed to record trade")
	}
	return nil
}

func (b *Bot) exit(ctx context.Context, symbol string, price float64, cause string) {
	pos := b.ledger.Position()
	if !pos.Open() {
		b.log.Info().Str("cause", cause).Msg("SELL ignored: no open position")
		return
	}
	_, status := b.ctrl.Submit(ctx, symbol, exchange.SideSell, pos.Qty)
	if status != execution.Filled {
		return
	}
	pnl, err := b.ledger.Close(price)
	if err != nil {
		b.log.Error().Err(err).Msg("close position")
		return
	}
	b.log.Info().
		Str("cause", cause).
		Float64("pnl", pnl).
		Float64("total_pnl", b.ledger.RealizedPnL()).
		Msg("position closed")
	if err := b.rec.Append(symbol, exchange.SideSell, price, pos.Qty, &pnl); err != nil {
		b.log.Error().Err(err).Msg("failed to record trade")
	}
}

func (b *Bot) checkRiskExit(ctx context.Context, symbol string, closePrice float64) {
	pos := b.ledger.Position()
	if !pos.Open() {
		return
	}
	// Mark at the freshest price available; the candle close is the fallback
	// when the price lookup fails mid-tick.
	lastPrice, err := b.gw.Price(ctx, symbol)
	if err != nil {
		b.log.Debug().Err(err).Msg("price lookup failed, marking at candle close")
		lastPrice = closePrice
	}
	kind := b.ctrl.CheckExit(pos.EntryPrice, lastPrice)
	if kind == risk.ExitNone {
		return
	}
	b.log.Warn().Str("kind", kind.String()).Float64("entry", pos.EntryPrice).Float64("last", lastPrice).Msg("risk exit triggered")
	metrics.RiskExitsTotal.WithLabelValues(symbol, kind.String()).Inc()
	b.exit(ctx, symbol, lastPrice, kind.String())
}

package bot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Scratouze/trading-bot-test/internal/config"
	"github.com/Scratouze/trading-bot-test/internal/exchange"
	"github.com/Scratouze/trading-bot-test/internal/execution"
	"github.com/Scratouze/trading-bot-test/internal/market"
	"github.com/Scratouze/trading-bot-test/internal/portfolio"
	"github.com/Scratouze/trading-bot-test/internal/risk"
	"github.com/Scratouze/trading-bot-test/internal/strategy"
)

type fakeGateway struct {
	series    market.Series
	seriesErr error
	price     float64
	priceErr  error
}

func (f *fakeGateway) Klines(context.Context, string, string, int) (market.Series, error) {
	return f.series, f.seriesErr
}

func (f *fakeGateway) Price(context.Context, string) (float64, error) {
	return f.price, f.priceErr
}

func (f *fakeGateway) Precision(context.Context, string) (exchange.Precision, bool, error) {
	return exchange.Precision{MinQty: 0.001, StepSize: 0.001}, true, nil
}

func (f *fakeGateway) MarketOrder(_ context.Context, symbol string, side exchange.Side, qty float64) (exchange.OrderResult, error) {
	return exchange.OrderResult{OrderID: "live-1", Symbol: symbol, Side: side, Status: "FILLED", ExecutedQty: qty}, nil
}

type scriptedStrategy struct {
	actions []strategy.Action
	i       int
}

func (s *scriptedStrategy) Signal(market.Series) (strategy.Action, strategy.Diagnostics) {
	if s.i >= len(s.actions) {
		return strategy.None, strategy.Diagnostics{Reason: "script exhausted"}
	}
	a := s.actions[s.i]
	s.i++
	return a, strategy.Diagnostics{Reason: "scripted"}
}

func (s *scriptedStrategy) Name() string { return "scripted" }

type memRecorder struct {
	trades []struct {
		Side exchange.Side
		PnL  *float64
	}
}

func (m *memRecorder) Append(_ string, side exchange.Side, _, _ float64, pnl *float64) error {
	m.trades = append(m.trades, struct {
		Side exchange.Side
		PnL  *float64
	}{side, pnl})
	return nil
}

func mkSeries(closes ...float64) market.Series {
	base := time.UnixMilli(1_700_000_000_000)
	candles := make([]market.Candle, len(closes))
	for i, c := range closes {
		candles[i] = market.Candle{OpenTime: base.Add(time.Duration(i) * time.Minute), Close: c}
	}
	return market.NewSeries(candles)
}

func newTestBot(gw *fakeGateway, strat strategy.Strategy, rec Recorder) (*Bot, *portfolio.Ledger) {
	cfg := config.Default()
	riskCfg := risk.Config{StopLossPct: 0.03, TakeProfitPct: 0.06, MaxOrdersPerMin: 10}
	ctrl := execution.NewController(gw, riskCfg, true, zerolog.Nop())
	ledger := portfolio.NewLedger(cfg.Trading.Symbol)
	return New(cfg, gw, strat, ctrl, ledger, rec, zerolog.Nop()), ledger
}

func TestTickBuyThenSellRoundTrip(t *testing.T) {
	gw := &fakeGateway{series: mkSeries(100, 100, 100), price: 100}
	rec := &memRecorder{}
	strat := &scriptedStrategy{actions: []strategy.Action{strategy.Buy, strategy.None, strategy.Sell}}
	bot, ledger := newTestBot(gw, strat, rec)
	ctx := context.Background()

	if err := bot.Tick(ctx); err != nil {
		t.Fatalf("buy tick returned error: %v", err)
	}
	pos := ledger.Position()
	if !pos.Open() || pos.EntryPrice != 100 {
		t.Fatalf("expected open position at 100, got %+v", pos)
	}
	if len(rec.trades) != 1 || rec.trades[0].Side != exchange.SideBuy || rec.trades[0].PnL != nil {
		t.Fatalf("expected one entry trade, got %+v", rec.trades)
	}

	// Price drifts up but stays inside the risk bands.
	gw.series = mkSeries(100, 101, 102)
	gw.price = 102
	if err := bot.Tick(ctx); err != nil {
		t.Fatalf("hold tick returned error: %v", err)
	}
	if !ledger.Position().Open() {
		t.Fatalf("position should survive a NONE tick")
	}

	if err := bot.Tick(ctx); err != nil {
		t.Fatalf("sell tick returned error: %v", err)
	}
	if ledger.Position().Open() {
		t.Fatalf("position should be closed after SELL")
	}
	if len(rec.trades) != 2 {
		t.Fatalf("expected 2 trades, got %d", len(rec.trades))
	}
	// qty 0.25 filled at 100, closed at 102.
	exit := rec.trades[1]
	if exit.Side != exchange.SideSell || exit.PnL == nil || *exit.PnL != 0.5 {
		t.Fatalf("expected exit pnl 0.5, got %+v", exit)
	}
}

func TestTickSellWithoutPositionIsNoOp(t *testing.T) {
	gw := &fakeGateway{series: mkSeries(100, 100, 100), price: 100}
	rec := &memRecorder{}
	bot, ledger := newTestBot(gw, &scriptedStrategy{actions: []strategy.Action{strategy.Sell}}, rec)

	if err := bot.Tick(context.Background()); err != nil {
		t.Fatalf("tick returned error: %v", err)
	}
	if ledger.Position().Open() {
		t.Fatalf("no position should exist")
	}
	if len(rec.trades) != 0 {
		t.Fatalf("no trade should be recorded, got %+v", rec.trades)
	}
}

func TestTickBuyWhileOpenIsIgnored(t *testing.T) {
	gw := &fakeGateway{series: mkSeries(100, 100, 100), price: 100}
	rec := &memRecorder{}
	bot, ledger := newTestBot(gw, &scriptedStrategy{actions: []strategy.Action{strategy.Buy, strategy.Buy}}, rec)
	ctx := context.Background()

	if err := bot.Tick(ctx); err != nil {
		t.Fatalf("first tick returned error: %v", err)
	}
	qty := ledger.Position().Qty
	if err := bot.Tick(ctx); err != nil {
		t.Fatalf("second tick returned error: %v", err)
	}
	if ledger.Position().Qty != qty {
		t.Fatalf("second BUY must not change the position")
	}
	if len(rec.trades) != 1 {
		t.Fatalf("expected one recorded trade, got %d", len(rec.trades))
	}
}

func TestTickStopLossForcesClose(t *testing.T) {
	gw := &fakeGateway{series: mkSeries(100, 100, 100), price: 100}
	rec := &memRecorder{}
	bot, ledger := newTestBot(gw, &scriptedStrategy{actions: []strategy.Action{strategy.Buy, strategy.None}}, rec)
	ctx := context.Background()

	if err := bot.Tick(ctx); err != nil {
		t.Fatalf("buy tick returned error: %v", err)
	}

	// -3.1% breaches the 3% stop.
	gw.series = mkSeries(100, 98, 96.9)
	gw.price = 96.9
	if err := bot.Tick(ctx); err != nil {
		t.Fatalf("stop tick returned error: %v", err)
	}
	if ledger.Position().Open() {
		t.Fatalf("stop loss should have closed the position")
	}
	exit := rec.trades[len(rec.trades)-1]
	if exit.Side != exchange.SideSell || exit.PnL == nil || *exit.PnL >= 0 {
		t.Fatalf("expected losing exit trade, got %+v", exit)
	}
}

func TestTickTakeProfitNotTriggeredEarly(t *testing.T) {
	gw := &fakeGateway{series: mkSeries(100, 100, 100), price: 100}
	rec := &memRecorder{}
	bot, ledger := newTestBot(gw, &scriptedStrategy{actions: []strategy.Action{strategy.Buy, strategy.None}}, rec)
	ctx := context.Background()

	if err := bot.Tick(ctx); err != nil {
		t.Fatalf("buy tick returned error: %v", err)
	}
	// +3% sits under the 6% target.
	gw.price = 103
	if err := bot.Tick(ctx); err != nil {
		t.Fatalf("hold tick returned error: %v", err)
	}
	if !ledger.Position().Open() {
		t.Fatalf("position should still be open at +3%%")
	}
}

func TestTickGatewayFaultAborts(t *testing.T) {
	gw := &fakeGateway{seriesErr: exchange.ErrGatewayUnavailable}
	bot, _ := newTestBot(gw, &scriptedStrategy{}, &memRecorder{})

	err := bot.Tick(context.Background())
	if !errors.Is(err, exchange.ErrGatewayUnavailable) {
		t.Fatalf("expected gateway fault, got %v", err)
	}
}

func TestTickWithRealCrossoverStrategy(t *testing.T) {
	engine := strategy.NewSMACross(strategy.SMAParams{
		Short:       2,
		Long:        3,
		MinGapUSDT:  1,
		ConfirmBars: 1,
	}, zerolog.Nop())
	gw := &fakeGateway{series: mkSeries(100, 90, 80, 100, 120), price: 120}
	rec := &memRecorder{}
	bot, ledger := newTestBot(gw, engine, rec)

	if err := bot.Tick(context.Background()); err != nil {
		t.Fatalf("tick returned error: %v", err)
	}
	if !ledger.Position().Open() {
		t.Fatalf("confirmed golden cross should have opened a position")
	}
	if ledger.Position().EntryPrice != 120 {
		t.Fatalf("expected entry at last close 120, got %g", ledger.Position().EntryPrice)
	}
}

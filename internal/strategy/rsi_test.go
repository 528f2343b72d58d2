package strategy

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestRSIInsufficientData(t *testing.T) {
	strat := NewRSI(14, 30, 70, zerolog.Nop())
	action, diag := strat.Signal(mkSeries(100, 101, 102))
	if action != None || diag.Reason != "insufficient data" {
		t.Fatalf("expected NONE for short series, got %s (%s)", action, diag.Reason)
	}
}

func TestRSIOversoldBuys(t *testing.T) {
	strat := NewRSI(3, 30, 70, zerolog.Nop())
	// Straight decline: all losses, RSI 0.
	action, diag := strat.Signal(mkSeries(100, 95, 90, 85))
	if action != Buy {
		t.Fatalf("expected BUY on oversold, got %s (%s)", action, diag.Reason)
	}
	if diag.Trend != "oversold" {
		t.Fatalf("unexpected trend: %s", diag.Trend)
	}
}

func TestRSIOverboughtSells(t *testing.T) {
	strat := NewRSI(3, 30, 70, zerolog.Nop())
	// Straight climb: all gains, RSI 100.
	action, diag := strat.Signal(mkSeries(100, 105, 110, 115))
	if action != Sell {
		t.Fatalf("expected SELL on overbought, got %s (%s)", action, diag.Reason)
	}
}

func TestRSINeutralHolds(t *testing.T) {
	strat := NewRSI(4, 30, 70, zerolog.Nop())
	// Alternating equal gains and losses: RSI 50.
	action, diag := strat.Signal(mkSeries(100, 102, 100, 102, 100))
	if action != None {
		t.Fatalf("expected NONE in neutral band, got %s (%s)", action, diag.Reason)
	}
	if diag.Trend != "neutral" {
		t.Fatalf("unexpected trend: %s", diag.Trend)
	}
}

func TestBuildSelectsStrategy(t *testing.T) {
	params := Params{SMAShort: 2, SMALong: 3, RSIPeriod: 14, RSILow: 30, RSIHigh: 70}
	if got := Build("rsi", params, zerolog.Nop()).Name(); got != "RSI" {
		t.Fatalf("expected RSI, got %s", got)
	}
	if got := Build("sma_cross", params, zerolog.Nop()).Name(); got != "SMACross" {
		t.Fatalf("expected SMACross, got %s", got)
	}
	if got := Build("", params, zerolog.Nop()).Name(); got != "SMACross" {
		t.Fatalf("expected SMACross default, got %s", got)
	}
}

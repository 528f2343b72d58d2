package risk

import "testing"

func TestCheckExit(t *testing.T) {
	cfg := Config{StopLossPct: 0.03, TakeProfitPct: 0.06}

	if got := cfg.CheckExit(100, 96.9); got != ExitStopLoss {
		t.Fatalf("expected stop loss at -3.1%%, got %s", got)
	}
	if got := cfg.CheckExit(100, 97.5); got != ExitNone {
		t.Fatalf("expected no exit at -2.5%%, got %s", got)
	}
	if got := cfg.CheckExit(100, 103); got != ExitNone {
		t.Fatalf("expected no exit at +3%% under a 6%% target, got %s", got)
	}
	if got := cfg.CheckExit(100, 106); got != ExitTakeProfit {
		t.Fatalf("expected take profit at +6%%, got %s", got)
	}
}

func TestCheckExitBoundaries(t *testing.T) {
	cfg := Config{StopLossPct: 0.03, TakeProfitPct: 0.06}
	if got := cfg.CheckExit(100, 97); got != ExitStopLoss {
		t.Fatalf("stop loss threshold is inclusive, got %s", got)
	}
	if got := cfg.CheckExit(0, 100); got != ExitNone {
		t.Fatalf("zero entry price must not trigger, got %s", got)
	}
}

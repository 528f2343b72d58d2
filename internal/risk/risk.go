// Package risk encodes the exit thresholds and order-rate guard-rails.
package risk

// Config is read-only to the execution layer.
type Config struct {
	StopLossPct     float64 // e.g. 0.03 exits at -3%
	TakeProfitPct   float64 // e.g. 0.06 exits at +6%
	MaxOrdersPerMin int
}

// Exit names the forced-exit decision for an open position.
type Exit int

const (
	// ExitNone keeps the position.
	ExitNone Exit = iota
	// ExitStopLoss fired the downside threshold.
	ExitStopLoss
	// ExitTakeProfit fired the upside threshold.
	ExitTakeProfit
)

// String implements fmt.Stringer for pretty logging.
func (e Exit) String() string {
	switch e {
	case ExitStopLoss:
		return "stop_loss"
	case ExitTakeProfit:
		return "take_profit"
	default:
		return "none"
	}
}

// CheckExit compares the move since entry against both thresholds. The
// caller must only invoke it on an open position.
func (c Config) CheckExit(entryPrice, lastPrice float64) Exit {
	if entryPrice <= 0 {
		return ExitNone
	}
	pnlPct := (lastPrice - entryPrice) / entryPrice
	switch {
	case pnlPct <= -c.StopLossPct:
		return ExitStopLoss
	case pnlPct >= c.TakeProfitPct:
		return ExitTakeProfit
	default:
		return ExitNone
	}
}

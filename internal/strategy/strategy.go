// Package strategy turns candle series into trade actions.
package strategy

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/Scratouze/trading-bot-test/internal/market"
)

// Action is the high-level intent produced by a strategy for the current tick.
type Action int

const (
	// None means stay put this tick.
	None Action = iota
	// Buy opens a long position.
	Buy
	// Sell closes the open position.
	Sell
)

// String implements fmt.Stringer for pretty logging.
func (a Action) String() string {
	switch a {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "NONE"
	}
}

// Diagnostics explains why a strategy did or did not act, for operator logs.
type Diagnostics struct {
	Trend         string
	Cross         string
	ConfirmCount  int
	ConfirmNeeded int
	GapNeeded     float64
	NearCross     bool
	Reason        string
}

// Strategy is the behaviour shared by strategy implementations. Signal is
// evaluated once per tick against the freshly polled series and may carry
// state between calls.
type Strategy interface {
	Signal(s market.Series) (Action, Diagnostics)
	Name() string
}

// Params expresses tunable knobs required by strategy constructors.
type Params struct {
	SMAShort    int
	SMALong     int
	MinGapUSDT  float64
	MinGapPct   float64
	ConfirmBars int
	RSIPeriod   int
	RSILow      float64
	RSIHigh     float64
}

// Build returns a strategy implementation matching the configured mode.
func Build(mode string, params Params, log zerolog.Logger) Strategy {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "rsi":
		return NewRSI(params.RSIPeriod, params.RSILow, params.RSIHigh, log)
	default:
		return NewSMACross(SMAParams{
			Short:       params.SMAShort,
			Long:        params.SMALong,
			MinGapUSDT:  params.MinGapUSDT,
			MinGapPct:   params.MinGapPct,
			ConfirmBars: params.ConfirmBars,
		}, log)
	}
}

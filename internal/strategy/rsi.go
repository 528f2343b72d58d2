package strategy

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Scratouze/trading-bot-test/internal/market"
)

// RSI buys oversold markets and sells overbought ones using a rolling-mean
// relative strength index over closing prices.
type RSI struct {
	period int
	low    float64
	high   float64
	log    zerolog.Logger
}

// NewRSI builds the RSI strategy; zero arguments fall back to 14/30/70.
func NewRSI(period int, low, high float64, log zerolog.Logger) *RSI {
	if period <= 0 {
		period = 14
	}
	if low <= 0 {
		low = 30
	}
	if high <= 0 {
		high = 70
	}
	return &RSI{period: period, low: low, high: high, log: log}
}

// Name returns the configured identifier for logging.
func (r *RSI) Name() string { return "RSI" }

// Signal evaluates the latest RSI value against the oversold/overbought bands.
func (r *RSI) Signal(s market.Series) (Action, Diagnostics) {
	diag := Diagnostics{Trend: "?", Cross: "none"}
	if s.Len() < r.period+1 {
		diag.Reason = "insufficient data"
		return None, diag
	}

	value := latestRSI(s.Closes(), r.period)
	diag.Reason = fmt.Sprintf("rsi=%.2f bands=[%.0f, %.0f]", value, r.low, r.high)
	r.log.Debug().Float64("rsi", value).Msg("rsi evaluation")

	switch {
	case value < r.low:
		diag.Trend = "oversold"
		return Buy, diag
	case value > r.high:
		diag.Trend = "overbought"
		return Sell, diag
	default:
		diag.Trend = "neutral"
		return None, diag
	}
}

// latestRSI computes the rolling-mean RSI of the final candle. Gains and
// losses are averaged with a plain mean over the trailing period.
func latestRSI(closes []float64, period int) float64 {
	var gain, loss float64
	for i := len(closes) - period; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gain += change
		} else {
			loss -= change
		}
	}
	avgGain := gain / float64(period)
	avgLoss := loss / float64(period)
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

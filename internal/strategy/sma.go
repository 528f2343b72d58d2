package strategy

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/Scratouze/trading-bot-test/internal/market"
)

// Direction labels which way the short average crossed the long one.
type Direction int

const (
	// DirNone means no crossover is being confirmed.
	DirNone Direction = iota
	// DirUp follows a golden cross (short rising above long).
	DirUp
	// DirDown follows a death cross (short falling below long).
	DirDown
)

// CrossState is the confirmation state carried between ticks. The zero value
// is the idle state.
type CrossState struct {
	Dir          Direction
	ConfirmCount int
}

func (s CrossState) idle() bool { return s.Dir == DirNone }

// SMAParams tunes the crossover engine.
type SMAParams struct {
	Short       int
	Long        int
	MinGapUSDT  float64 // absolute floor on the SMA gap, in quote currency
	MinGapPct   float64 // proportional floor, fraction of last price
	ConfirmBars int
}

// SMAPair holds both averages for one candle; NaN marks "not yet available".
type SMAPair struct {
	Short float64
	Long  float64
}

// Valid reports whether both averages are defined for this candle.
func (p SMAPair) Valid() bool {
	return !math.IsNaN(p.Short) && !math.IsNaN(p.Long)
}

// SMACross emits BUY on a confirmed golden cross and SELL on a confirmed
// death cross. A crossover only counts once the SMA gap clears a dynamic
// threshold for ConfirmBars consecutive candles in the crossed direction.
type SMACross struct {
	params SMAParams
	state  CrossState
	log    zerolog.Logger
}

// NewSMACross builds the crossover engine with sane fallbacks for zero windows.
func NewSMACross(params SMAParams, log zerolog.Logger) *SMACross {
	if params.Short <= 0 {
		params.Short = 20
	}
	if params.Long <= 0 {
		params.Long = 50
	}
	if params.ConfirmBars < 0 {
		params.ConfirmBars = 0
	}
	return &SMACross{params: params, log: log}
}

// Name returns the configured identifier for logging.
func (e *SMACross) Name() string { return "SMACross" }

// State exposes the current confirmation state, mainly for tests and logs.
func (e *SMACross) State() CrossState { return e.state }

// Compute returns per-candle SMA pairs aligned to the series; entries before
// each window fills are NaN.
func (e *SMACross) Compute(s market.Series) []SMAPair {
	closes := s.Closes()
	short := rollingMean(closes, e.params.Short)
	long := rollingMean(closes, e.params.Long)
	out := make([]SMAPair, len(closes))
	for i := range out {
		out[i] = SMAPair{Short: short[i], Long: long[i]}
	}
	return out
}

// Signal evaluates the most recent candle and advances the confirmation state.
func (e *SMACross) Signal(s market.Series) (Action, Diagnostics) {
	need := e.params.Short
	if e.params.Long > need {
		need = e.params.Long
	}
	diag := Diagnostics{
		Trend:         "?",
		Cross:         "none",
		ConfirmNeeded: e.params.ConfirmBars,
	}
	if s.Len() < need+1 {
		diag.Reason = "insufficient data"
		e.log.Info().Int("have", s.Len()).Int("need", need+1).Msg("not enough candles for SMA signal")
		return None, diag
	}

	pairs := e.Compute(s)
	last := pairs[len(pairs)-1]
	prev := pairs[len(pairs)-2]
	if !last.Valid() || !prev.Valid() {
		diag.Reason = "awaiting averages"
		return None, diag
	}

	price := s.At(s.Len() - 1).Close
	gap := last.Short - last.Long
	prevGap := prev.Short - prev.Long

	action, next, diag := step(gap, prevGap, e.threshold(price), e.params.ConfirmBars, e.state)
	e.state = next

	e.log.Debug().
		Float64("price", price).
		Float64("gap", gap).
		Float64("threshold", diag.GapNeeded).
		Str("cross", diag.Cross).
		Int("confirm", diag.ConfirmCount).
		Str("reason", diag.Reason).
		Msg("sma evaluation")
	return action, diag
}

// threshold is the dynamic gap floor: at least MinGapUSDT, or MinGapPct of
// price, whichever is larger.
func (e *SMACross) threshold(price float64) float64 {
	return math.Max(e.params.MinGapUSDT, price*e.params.MinGapPct)
}

// step is the pure state transition for one closed candle.
func step(gap, prevGap, threshold float64, confirmBars int, state CrossState) (Action, CrossState, Diagnostics) {
	absGap := math.Abs(gap)
	diag := Diagnostics{
		Trend:         "bearish",
		Cross:         "none",
		ConfirmNeeded: confirmBars,
		GapNeeded:     threshold,
	}
	if gap > 0 {
		diag.Trend = "bullish"
	}

	// A fresh crossover restarts confirmation no matter what was in flight.
	switch {
	case prevGap <= 0 && gap > 0:
		diag.Cross = "golden"
		state = CrossState{Dir: DirUp}
	case prevGap >= 0 && gap < 0:
		diag.Cross = "death"
		state = CrossState{Dir: DirDown}
	}

	if !state.idle() {
		dirOK := (state.Dir == DirUp && gap > 0) || (state.Dir == DirDown && gap < 0)
		if dirOK && absGap >= threshold {
			state.ConfirmCount++
		} else {
			// Direction or threshold broke down: the sequence is void.
			state = CrossState{}
		}
	}
	diag.ConfirmCount = state.ConfirmCount

	// Reversal spotted but still under the threshold.
	if ((gap > 0 && prevGap < 0) || (gap < 0 && prevGap > 0)) && absGap < threshold {
		diag.NearCross = true
	}

	if absGap < threshold {
		diag.Reason = fmt.Sprintf("gap insufficient: |gap|=%.2f < threshold=%.2f", absGap, threshold)
		return None, state, diag
	}
	if state.idle() {
		diag.Reason = "no active crossover"
		return None, state, diag
	}
	if state.ConfirmCount < confirmBars {
		diag.Reason = fmt.Sprintf("confirmation pending: %d/%d", state.ConfirmCount, confirmBars)
		return None, state, diag
	}

	action := Buy
	if state.Dir == DirDown {
		action = Sell
	}
	diag.Reason = "threshold and confirmations satisfied"
	// Emission consumes the confirmation sequence.
	return action, CrossState{}, diag
}

// rollingMean computes the n-period mean of values, NaN before the window fills.
func rollingMean(values []float64, n int) []float64 {
	out := make([]float64, len(values))
	if n <= 0 {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}
	for i := range values {
		if i < n-1 {
			out[i] = math.NaN()
			continue
		}
		var sum float64
		for j := i - n + 1; j <= i; j++ {
			sum += values[j]
		}
		out[i] = sum / float64(n)
	}
	return out
}

// Package execution handles order sizing, rate limiting, and submission.
package execution

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Scratouze/trading-bot-test/internal/exchange"
	"github.com/Scratouze/trading-bot-test/internal/metrics"
	"github.com/Scratouze/trading-bot-test/internal/risk"
)

// Gateway is the slice of the exchange the controller needs.
type Gateway interface {
	Precision(ctx context.Context, symbol string) (exchange.Precision, bool, error)
	MarketOrder(ctx context.Context, symbol string, side exchange.Side, qty float64) (exchange.OrderResult, error)
}

// SubmitStatus classifies the outcome of a submission attempt.
type SubmitStatus int

const (
	// Filled means the order went through (or was synthesized in dry-run).
	Filled SubmitStatus = iota
	// Denied means the rate limiter refused before any network call.
	Denied
	// Failed means the gateway reported a fault or rejection.
	Failed
)

// String implements fmt.Stringer for pretty logging.
func (s SubmitStatus) String() string {
	switch s {
	case Filled:
		return "filled"
	case Denied:
		return "denied"
	default:
		return "failed"
	}
}

const rateWindow = 60 * time.Second

// Controller sizes, rate-limits, and submits market orders. It is owned by
// the tick loop; one tick runs at a time.
type Controller struct {
	gw     Gateway
	log    zerolog.Logger
	risk   risk.Config
	dryRun bool
	sent   []time.Time
	now    func() time.Time
}

// NewController wires the gateway and risk configuration.
func NewController(gw Gateway, riskCfg risk.Config, dryRun bool, log zerolog.Logger) *Controller {
	return &Controller{
		gw:     gw,
		log:    log,
		risk:   riskCfg,
		dryRun: dryRun,
		now:    time.Now,
	}
}

// SizeOrder converts a quote-currency notional into a base quantity that
// respects the instrument's lot constraints. Precision is fetched fresh on
// every call. A zero return means the order cannot be sized.
func (c *Controller) SizeOrder(ctx context.Context, symbol string, notionalUSDT, price float64) (float64, error) {
	if price <= 0 {
		return 0, nil
	}
	prec, ok, err := c.gw.Precision(ctx, symbol)
	if err != nil {
		return 0, err
	}
	if !ok {
		prec = exchange.Precision{}
	}
	raw := notionalUSDT / price
	qty := roundStep(raw, prec.StepSize)
	// Raising to the exchange minimum only applies when one is published.
	if prec.MinQty > 0 && qty < prec.MinQty {
		qty = prec.MinQty
	}
	return qty, nil
}

// Admit applies the sliding-window order-rate limit. On admission the
// current timestamp is recorded before any network call, so the check and
// the record are atomic for the single tick loop.
func (c *Controller) Admit() bool {
	now := c.now()
	kept := c.sent[:0]
	for _, ts := range c.sent {
		if now.Sub(ts) < rateWindow {
			kept = append(kept, ts)
		}
	}
	c.sent = kept
	if len(c.sent) >= c.risk.MaxOrdersPerMin {
		return false
	}
	c.sent = append(c.sent, now)
	return true
}

// Submit places a market order, or synthesizes a fill in dry-run mode.
// Gateway faults surface as Failed; they never propagate as panics.
func (c *Controller) Submit(ctx context.Context, symbol string, side exchange.Side, qty float64) (exchange.OrderResult, SubmitStatus) {
	if !c.Admit() {
		c.log.Warn().Str("sym", symbol).Str("side", string(side)).Msg("order rate limit reached, order skipped")
		return exchange.OrderResult{}, Denied
	}
	if c.dryRun {
		c.log.Info().Str("sym", symbol).Str("side", string(side)).Float64("qty", qty).Msg("dry-run order")
		metrics.OrdersTotal.WithLabelValues(symbol, string(side), "dry_run").Inc()
		return exchange.OrderResult{
			OrderID:     "DRYRUN-" + uuid.New().String(),
			Symbol:      symbol,
			Side:        side,
			Status:      "FILLED",
			ExecutedQty: qty,
			CreateTime:  c.now().UTC(),
		}, Filled
	}
	res, err := c.gw.MarketOrder(ctx, symbol, side, qty)
	if err != nil {
		c.log.Error().Err(err).Str("sym", symbol).Str("side", string(side)).Float64("qty", qty).Msg("order submission failed")
		metrics.OrdersTotal.WithLabelValues(symbol, string(side), "failed").Inc()
		return exchange.OrderResult{}, Failed
	}
	c.log.Info().Str("sym", symbol).Str("side", string(side)).Float64("qty", qty).Str("order_id", res.OrderID).Msg("order submitted")
	metrics.OrdersTotal.WithLabelValues(symbol, string(side), "filled").Inc()
	return res, Filled
}

// CheckExit evaluates stop-loss/take-profit for an open position.
func (c *Controller) CheckExit(entryPrice, lastPrice float64) risk.Exit {
	return c.risk.CheckExit(entryPrice, lastPrice)
}

// roundStep floors qty to a multiple of step, then snaps to the step's
// decimal precision the way the exchange quantizes lot sizes. Never rounds
// up.
func roundStep(qty, step float64) float64 {
	if step == 0 {
		return qty
	}
	precision := int(math.Round(-math.Log10(step)))
	if precision < 0 {
		precision = 0
	}
	// The epsilon absorbs float division noise (2/0.01 is 199.999...97)
	// without ever lifting a genuinely short quantity to the next step.
	floored := math.Floor(qty/step+1e-9) * step
	snapped, err := strconv.ParseFloat(strconv.FormatFloat(floored, 'f', precision, 64), 64)
	if err != nil {
		return floored
	}
	return snapped
}

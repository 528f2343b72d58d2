// Package exchange hosts the Binance spot connector and its wire types.
package exchange

import (
	"errors"
	"time"
)

// Side is the direction of a market order.
type Side string

const (
	// SideBuy acquires the base asset.
	SideBuy Side = "BUY"
	// SideSell disposes of the base asset.
	SideSell Side = "SELL"
)

// Precision carries the lot-size constraints an order quantity must respect.
type Precision struct {
	MinQty   float64
	StepSize float64
}

// OrderResult is the normalized view of an accepted market order.
type OrderResult struct {
	OrderID     string
	Symbol      string
	Side        Side
	Status      string
	ExecutedQty float64
	CreateTime  time.Time
}

// ErrGatewayUnavailable marks transport or exchange-side faults on any call;
// the tick aborts and the next poll retries.
var ErrGatewayUnavailable = errors.New("exchange gateway unavailable")

// ErrOrderRejected marks an order the exchange explicitly declined.
var ErrOrderRejected = errors.New("order rejected by exchange")

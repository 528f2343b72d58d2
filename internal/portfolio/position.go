// Package portfolio tracks the single open position and values account holdings.
package portfolio

import "errors"

// Position is the lone spot holding the bot manages. It is open iff Qty > 0.
type Position struct {
	Symbol     string
	Qty        float64
	EntryPrice float64
}

// Open reports whether the position holds any quantity.
func (p Position) Open() bool { return p.Qty > 0 }

// UnrealizedPnL marks the position against lastPrice; zero when flat.
func (p Position) UnrealizedPnL(lastPrice float64) float64 {
	if !p.Open() {
		return 0
	}
	return (lastPrice - p.EntryPrice) * p.Qty
}

// Ledger owns the position for one symbol. It is mutated only by the tick
// loop, one tick at a time, so it carries no lock; give each symbol its own
// ledger if ticks ever run concurrently.
type Ledger struct {
	symbol      string
	pos         Position
	realizedPnL float64
}

// NewLedger starts empty for the given symbol.
func NewLedger(symbol string) *Ledger {
	return &Ledger{symbol: symbol, pos: Position{Symbol: symbol}}
}

// Position returns the current position value.
func (l *Ledger) Position() Position { return l.pos }

// RealizedPnL returns the sum of PnL over closed positions this run.
func (l *Ledger) RealizedPnL() float64 { return l.realizedPnL }

// Open records a filled entry. Opening over an existing position is refused;
// the caller must ignore BUY signals while long.
func (l *Ledger) Open(qty, entryPrice float64) error {
	if l.pos.Open() {
		return errors.New("position already open")
	}
	if qty <= 0 {
		return errors.New("quantity must be positive")
	}
	if entryPrice <= 0 {
		return errors.New("entry price must be positive")
	}
	l.pos = Position{Symbol: l.symbol, Qty: qty, EntryPrice: entryPrice}
	return nil
}

// Close realizes PnL at lastPrice and resets to an empty position.
func (l *Ledger) Close(lastPrice float64) (float64, error) {
	if !l.pos.Open() {
		return 0, errors.New("no open position")
	}
	pnl := l.pos.UnrealizedPnL(lastPrice)
	l.realizedPnL += pnl
	l.pos = Position{Symbol: l.symbol}
	return pnl, nil
}

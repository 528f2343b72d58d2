// Package market standardizes the candle data consumed by strategies and the trading loop.
package market

import (
	"fmt"
	"strconv"
	"time"
)

// Candle is one closed OHLCV sample, immutable once received.
type Candle struct {
	OpenTime  time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	CloseTime time.Time
}

// Series is an ordered run of candles, oldest first, unique by open time.
// The tick loop replaces it wholesale each poll rather than mutating it.
type Series struct {
	candles []Candle
}

// NewSeries wraps candles into a Series without copying.
func NewSeries(candles []Candle) Series {
	return Series{candles: candles}
}

// Len reports how many candles the series holds.
func (s Series) Len() int { return len(s.candles) }

// At returns the candle at index i, oldest first.
func (s Series) At(i int) Candle { return s.candles[i] }

// Last returns the most recent candle; ok is false on an empty series.
func (s Series) Last() (Candle, bool) {
	if len(s.candles) == 0 {
		return Candle{}, false
	}
	return s.candles[len(s.candles)-1], true
}

// Closes returns the closing prices in series order.
func (s Series) Closes() []float64 {
	out := make([]float64, len(s.candles))
	for i, c := range s.candles {
		out[i] = c.Close
	}
	return out
}

// ParseKlines converts raw Binance kline rows into a Series. Each row is the
// wire-format array [openTime, open, high, low, close, volume, closeTime, ...];
// numeric fields arrive as strings.
func ParseKlines(rows [][]any) (Series, error) {
	candles := make([]Candle, 0, len(rows))
	for i, row := range rows {
		if len(row) < 7 {
			return Series{}, fmt.Errorf("kline row %d: want at least 7 fields, got %d", i, len(row))
		}
		openMs, ok := row[0].(float64)
		if !ok {
			return Series{}, fmt.Errorf("kline row %d: bad open time %v", i, row[0])
		}
		closeMs, ok := row[6].(float64)
		if !ok {
			return Series{}, fmt.Errorf("kline row %d: bad close time %v", i, row[6])
		}
		var vals [5]float64
		for j := 1; j <= 5; j++ {
			str, ok := row[j].(string)
			if !ok {
				return Series{}, fmt.Errorf("kline row %d: field %d is not a string", i, j)
			}
			v, err := strconv.ParseFloat(str, 64)
			if err != nil {
				return Series{}, fmt.Errorf("kline row %d: field %d: %w", i, j, err)
			}
			vals[j-1] = v
		}
		candles = append(candles, Candle{
			OpenTime:  time.UnixMilli(int64(openMs)),
			Open:      vals[0],
			High:      vals[1],
			Low:       vals[2],
			Close:     vals[3],
			Volume:    vals[4],
			CloseTime: time.UnixMilli(int64(closeMs)),
		})
	}
	return NewSeries(candles), nil
}

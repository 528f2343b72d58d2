// Package trades persists executed trades to CSV and derives statistics from them.
package trades

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/Scratouze/trading-bot-test/internal/exchange"
)

var header = []string{"timestamp", "symbol", "side", "price", "quantity", "pnl"}

// Trade is one recorded execution. PnL is nil for entries; only exits carry
// a realized figure.
type Trade struct {
	Time     time.Time
	Symbol   string
	Side     exchange.Side
	Price    float64
	Quantity float64
	PnL      *float64
}

// Stats aggregates realized results over the recorded trades. Records
// without a PnL are ignored.
type Stats struct {
	TotalPnL    float64
	Wins        int
	Losses      int
	WinRatePct  float64
	GrossProfit float64
	GrossLoss   float64
}

// Recorder appends trades to a CSV file, writing the header on first use.
type Recorder struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// NewRecorder targets path; the file and its directory are created lazily.
func NewRecorder(path string) *Recorder {
	return &Recorder{path: path, now: time.Now}
}

// Append writes one trade row. pnl may be nil for position entries.
func (r *Recorder) Append(symbol string, side exchange.Side, price, quantity float64, pnl *float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if dir := filepath.Dir(r.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create trades dir: %w", err)
		}
	}
	_, statErr := os.Stat(r.path)
	isNew := os.IsNotExist(statErr)

	file, err := os.OpenFile(r.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open trades file: %w", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if isNew {
		if err := w.Write(header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	pnlField := ""
	if pnl != nil {
		pnlField = strconv.FormatFloat(math.Round(*pnl*1e4)/1e4, 'f', -1, 64)
	}
	row := []string{
		r.now().UTC().Format(time.RFC3339),
		symbol,
		string(side),
		strconv.FormatFloat(price, 'f', -1, 64),
		strconv.FormatFloat(quantity, 'f', -1, 64),
		pnlField,
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("write trade: %w", err)
	}
	w.Flush()
	return w.Error()
}

// ReadAll returns every recorded trade in file order. A missing file is an
// empty history, not an error.
func (r *Recorder) ReadAll() ([]Trade, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := os.Open(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open trades file: %w", err)
	}
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read trades: %w", err)
	}
	var out []Trade
	for i, row := range rows {
		if i == 0 || len(row) < 6 {
			continue
		}
		ts, err := time.Parse(time.RFC3339, row[0])
		if err != nil {
			return nil, fmt.Errorf("row %d: bad timestamp: %w", i, err)
		}
		price, err := strconv.ParseFloat(row[3], 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: bad price: %w", i, err)
		}
		qty, err := strconv.ParseFloat(row[4], 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: bad quantity: %w", i, err)
		}
		trade := Trade{Time: ts, Symbol: row[1], Side: exchange.Side(row[2]), Price: price, Quantity: qty}
		if row[5] != "" {
			pnl, err := strconv.ParseFloat(row[5], 64)
			if err != nil {
				return nil, fmt.Errorf("row %d: bad pnl: %w", i, err)
			}
			trade.PnL = &pnl
		}
		out = append(out, trade)
	}
	return out, nil
}

// ComputeStats folds the recorded trades into win/loss aggregates.
func (r *Recorder) ComputeStats() (Stats, error) {
	trades, err := r.ReadAll()
	if err != nil {
		return Stats{}, err
	}
	var s Stats
	for _, t := range trades {
		if t.PnL == nil {
			continue
		}
		pnl := *t.PnL
		s.TotalPnL += pnl
		if pnl >= 0 {
			s.Wins++
			s.GrossProfit += pnl
		} else {
			s.Losses++
			s.GrossLoss += pnl
		}
	}
	if total := s.Wins + s.Losses; total > 0 {
		s.WinRatePct = math.Round(float64(s.Wins)/float64(total)*100*100) / 100
	}
	return s, nil
}

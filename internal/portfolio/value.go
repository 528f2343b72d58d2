package portfolio

import (
	"context"
	"math"
)

// Pricer is the slice of the exchange gateway needed to value holdings.
type Pricer interface {
	AssetBalance(ctx context.Context, asset string) (float64, error)
	Price(ctx context.Context, symbol string) (float64, error)
}

// AssetValue is one holding marked into the quote currency.
type AssetValue struct {
	Asset   string
	Balance float64
	Value   float64
}

// DefaultAssets are the holdings the valuation sweeps by default.
var DefaultAssets = []string{"USDT", "BTC", "ETH", "BNB"}

// Value sums account holdings in the quote currency. Assets with a zero
// balance are skipped, and assets whose price lookup fails are left out
// rather than failing the whole sweep.
func Value(ctx context.Context, ex Pricer, quoteAsset string, assets []string) (float64, []AssetValue, error) {
	var total float64
	var detail []AssetValue
	for _, asset := range assets {
		balance, err := ex.AssetBalance(ctx, asset)
		if err != nil {
			return 0, nil, err
		}
		if balance == 0 {
			continue
		}
		value := balance
		if asset != quoteAsset {
			price, err := ex.Price(ctx, asset+quoteAsset)
			if err != nil {
				continue
			}
			value = balance * price
		}
		total += value
		detail = append(detail, AssetValue{Asset: asset, Balance: balance, Value: value})
	}
	return math.Round(total*1e4) / 1e4, detail, nil
}

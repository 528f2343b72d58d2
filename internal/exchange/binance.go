package exchange

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/Scratouze/trading-bot-test/internal/market"
)

const (
	defaultBaseURL = "https://api.binance.com"
	testnetBaseURL = "https://testnet.binance.vision"

	defaultTimeout = 10 * time.Second
)

// Config collects Binance connectivity parameters.
type Config struct {
	BaseURL   string // blank picks the default for the chosen network
	APIKey    string
	APISecret string
	Testnet   bool
	Timeout   time.Duration
}

// Client is a thin REST wrapper over the Binance spot API. Every call has a
// bounded timeout; the exchange never gets to block a tick indefinitely.
type Client struct {
	cfg    Config
	http   *http.Client
	log    zerolog.Logger
	stream *PriceStream
	now    func() time.Time
}

// NewClient builds a client for the configured network.
func NewClient(cfg Config, log zerolog.Logger) *Client {
	if cfg.BaseURL == "" {
		if cfg.Testnet {
			cfg.BaseURL = testnetBaseURL
		} else {
			cfg.BaseURL = defaultBaseURL
		}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  log,
		now:  time.Now,
	}
}

// AttachStream lets Price serve from a live websocket cache before REST.
func (c *Client) AttachStream(s *PriceStream) { c.stream = s }

// Klines fetches the most recent closed candles for symbol at interval.
func (c *Client) Klines(ctx context.Context, symbol, interval string, limit int) (market.Series, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("interval", interval)
	q.Set("limit", strconv.Itoa(limit))

	var rows [][]any
	if err := c.get(ctx, "/api/v3/klines", q, &rows); err != nil {
		return market.Series{}, err
	}
	series, err := market.ParseKlines(rows)
	if err != nil {
		return market.Series{}, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	return series, nil
}

// Price returns the latest trade price, preferring the websocket cache.
func (c *Client) Price(ctx context.Context, symbol string) (float64, error) {
	if c.stream != nil {
		if px, ok := c.stream.Last(symbol); ok {
			return px, nil
		}
	}
	var out struct {
		Price string `json:"price"`
	}
	q := url.Values{}
	q.Set("symbol", symbol)
	if err := c.get(ctx, "/api/v3/ticker/price", q, &out); err != nil {
		return 0, err
	}
	px, err := strconv.ParseFloat(out.Price, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad price %q", ErrGatewayUnavailable, out.Price)
	}
	return px, nil
}

// AssetBalance returns the free balance of one asset on the account.
func (c *Client) AssetBalance(ctx context.Context, asset string) (float64, error) {
	var out struct {
		Balances []struct {
			Asset string `json:"asset"`
			Free  string `json:"free"`
		} `json:"balances"`
	}
	if err := c.signedCall(ctx, http.MethodGet, "/api/v3/account", url.Values{}, &out); err != nil {
		return 0, err
	}
	for _, b := range out.Balances {
		if b.Asset == asset {
			free, err := strconv.ParseFloat(b.Free, 64)
			if err != nil {
				return 0, fmt.Errorf("%w: bad balance %q", ErrGatewayUnavailable, b.Free)
			}
			return free, nil
		}
	}
	return 0, nil
}

// Precision looks up the LOT_SIZE filter for symbol; ok is false when the
// exchange does not publish one.
func (c *Client) Precision(ctx context.Context, symbol string) (Precision, bool, error) {
	var out struct {
		Symbols []struct {
			Symbol  string `json:"symbol"`
			Filters []struct {
				FilterType string `json:"filterType"`
				MinQty     string `json:"minQty"`
				StepSize   string `json:"stepSize"`
			} `json:"filters"`
		} `json:"symbols"`
	}
	q := url.Values{}
	q.Set("symbol", symbol)
	if err := c.get(ctx, "/api/v3/exchangeInfo", q, &out); err != nil {
		return Precision{}, false, err
	}
	for _, s := range out.Symbols {
		if s.Symbol != symbol {
			continue
		}
		for _, f := range s.Filters {
			if f.FilterType != "LOT_SIZE" {
				continue
			}
			minQty, err1 := strconv.ParseFloat(f.MinQty, 64)
			step, err2 := strconv.ParseFloat(f.StepSize, 64)
			if err1 != nil || err2 != nil {
				return Precision{}, false, fmt.Errorf("%w: bad lot filter for %s", ErrGatewayUnavailable, symbol)
			}
			return Precision{MinQty: minQty, StepSize: step}, true, nil
		}
	}
	return Precision{}, false, nil
}

// MarketOrder submits a market order and normalizes the fill response.
func (c *Client) MarketOrder(ctx context.Context, symbol string, side Side, qty float64) (OrderResult, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("side", string(side))
	q.Set("type", "MARKET")
	q.Set("quantity", strconv.FormatFloat(qty, 'f', -1, 64))

	var out struct {
		OrderID     int64  `json:"orderId"`
		Status      string `json:"status"`
		ExecutedQty string `json:"executedQty"`
	}
	if err := c.signedCall(ctx, http.MethodPost, "/api/v3/order", q, &out); err != nil {
		return OrderResult{}, err
	}
	executed, _ := strconv.ParseFloat(out.ExecutedQty, 64)
	return OrderResult{
		OrderID:     strconv.FormatInt(out.OrderID, 10),
		Symbol:      symbol,
		Side:        side,
		Status:      out.Status,
		ExecutedQty: executed,
		CreateTime:  c.now().UTC(),
	}, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	return c.do(req, out, false)
}

// signedCall appends the timestamp and HMAC-SHA256 signature Binance
// requires on account and order endpoints.
func (c *Client) signedCall(ctx context.Context, method, path string, q url.Values, out any) error {
	q.Set("timestamp", strconv.FormatInt(c.now().UnixMilli(), 10))
	mac := hmac.New(sha256.New, []byte(c.cfg.APISecret))
	mac.Write([]byte(q.Encode()))
	q.Set("signature", hex.EncodeToString(mac.Sum(nil)))

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	req.Header.Set("X-MBX-APIKEY", c.cfg.APIKey)
	return c.do(req, out, method == http.MethodPost)
}

func (c *Client) do(req *http.Request, out any, order bool) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read body: %v", ErrGatewayUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Code int    `json:"code"`
			Msg  string `json:"msg"`
		}
		_ = json.Unmarshal(body, &apiErr)
		if order && resp.StatusCode < 500 {
			return fmt.Errorf("%w: code=%d %s", ErrOrderRejected, apiErr.Code, apiErr.Msg)
		}
		return fmt.Errorf("%w: http %d code=%d %s", ErrGatewayUnavailable, resp.StatusCode, apiErr.Code, apiErr.Msg)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrGatewayUnavailable, err)
	}
	return nil
}

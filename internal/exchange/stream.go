package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const defaultStreamURL = "wss://stream.binance.com:9443"

// PriceStream keeps a live last-price cache fed by Binance miniTicker
// websocket streams, so risk checks between candle polls do not need a REST
// round trip. Entries older than maxAge fall back to REST.
type PriceStream struct {
	baseURL string
	symbols []string
	log     zerolog.Logger
	maxAge  time.Duration

	mu   sync.RWMutex
	last map[string]float64
	seen map[string]time.Time
}

// NewPriceStream tracks the given symbols; baseURL is overridable for tests.
func NewPriceStream(baseURL string, symbols []string, log zerolog.Logger) *PriceStream {
	if baseURL == "" {
		baseURL = defaultStreamURL
	}
	return &PriceStream{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		symbols: append([]string(nil), symbols...),
		log:     log,
		maxAge:  10 * time.Second,
		last:    make(map[string]float64),
		seen:    make(map[string]time.Time),
	}
}

// Last returns the cached price when it is fresh enough to act on.
func (p *PriceStream) Last(symbol string) (float64, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ts, ok := p.seen[symbol]
	if !ok || time.Since(ts) > p.maxAge {
		return 0, false
	}
	return p.last[symbol], true
}

// Run consumes the stream until the context is canceled, reconnecting with
// exponential backoff on failures.
func (p *PriceStream) Run(ctx context.Context) error {
	if len(p.symbols) == 0 {
		return fmt.Errorf("price stream requires at least one symbol")
	}
	streams := make([]string, len(p.symbols))
	for i, sym := range p.symbols {
		streams[i] = strings.ToLower(sym) + "@miniTicker"
	}
	url := fmt.Sprintf("%s/stream?streams=%s", p.baseURL, strings.Join(streams, "/"))

	backoff := time.Second
	const maxBackoff = 30 * time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := p.consume(ctx, url); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.log.Warn().Err(err).Msg("price stream disconnected, retrying")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			backoff = time.Duration(math.Min(float64(maxBackoff), float64(backoff)*1.8))
			continue
		}
		return nil
	}
}

type miniTickerEnvelope struct {
	Data struct {
		Symbol string `json:"s"`
		Close  string `json:"c"`
	} `json:"data"`
}

func (p *PriceStream) consume(ctx context.Context, url string) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	p.log.Info().Strs("symbols", p.symbols).Msg("connected price stream")

	conn.SetReadLimit(1 << 20)
	conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		return nil
	})

	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					p.log.Warn().Err(err).Msg("price stream ping failed")
					return
				}
			case <-pingCtx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var env miniTickerEnvelope
		if err := json.Unmarshal(message, &env); err != nil {
			p.log.Warn().Err(err).Msg("failed to decode miniTicker message")
			continue
		}
		px, err := strconv.ParseFloat(env.Data.Close, 64)
		if err != nil || env.Data.Symbol == "" {
			continue
		}
		p.mu.Lock()
		p.last[env.Data.Symbol] = px
		p.seen[env.Data.Symbol] = time.Now()
		p.mu.Unlock()
	}
}

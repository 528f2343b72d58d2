// Package config exposes strongly typed application configuration loaded from YAML,
// with environment variables overriding individual values.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// App captures process-wide runtime settings such as metrics and logging.
type App struct {
	Name        string `yaml:"name"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
	LogFile     string `yaml:"log_file"`
}

// Exchange describes Binance spot connectivity.
type Exchange struct {
	BaseURL     string `yaml:"base_url"` // blank selects the default for the chosen network
	Testnet     bool   `yaml:"testnet"`
	APIKey      string `yaml:"api_key"`
	APISecret   string `yaml:"api_secret"`
	PriceStream bool   `yaml:"price_stream"` // maintain a websocket last-price cache in live mode
}

// Trading groups the per-run trading parameters.
type Trading struct {
	Symbol        string  `yaml:"symbol"`
	Interval      string  `yaml:"interval"`
	PollSeconds   int     `yaml:"poll_seconds"`
	CandleLimit   int     `yaml:"candle_limit"`
	BaseOrderUSDT float64 `yaml:"base_order_usdt"`
	DryRun        bool    `yaml:"dry_run"`
	TradesFile    string  `yaml:"trades_file"`
}

// Strategy selects the active strategy and its tunables.
type Strategy struct {
	Mode        string  `yaml:"mode"` // sma_cross | rsi
	SMAShort    int     `yaml:"sma_short"`
	SMALong     int     `yaml:"sma_long"`
	MinGapUSDT  float64 `yaml:"min_gap_usdt"`
	MinGapPct   float64 `yaml:"min_gap_pct"`
	ConfirmBars int     `yaml:"confirm_bars"`
	RSILow      float64 `yaml:"rsi_low"`
	RSIHigh     float64 `yaml:"rsi_high"`
}

// Risk encodes the exit thresholds and order-rate guard-rail.
type Risk struct {
	StopLossPct     float64 `yaml:"stop_loss_pct"`
	TakeProfitPct   float64 `yaml:"take_profit_pct"`
	MaxOrdersPerMin int     `yaml:"max_orders_per_min"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App      App      `yaml:"app"`
	Exchange Exchange `yaml:"exchange"`
	Trading  Trading  `yaml:"trading"`
	Strategy Strategy `yaml:"strategy"`
	Risk     Risk     `yaml:"risk"`
}

// Default returns the baseline configuration applied before YAML and env overrides.
func Default() *Config {
	return &Config{
		App: App{
			Name:        "trading-bot",
			MetricsAddr: ":9100",
			LogLevel:    "info",
			LogFile:     "logs/bot.log",
		},
		Exchange: Exchange{Testnet: true},
		Trading: Trading{
			Symbol:        "BTCUSDT",
			Interval:      "1m",
			PollSeconds:   4,
			CandleLimit:   200,
			BaseOrderUSDT: 25,
			DryRun:        true,
			TradesFile:    "trades.csv",
		},
		Strategy: Strategy{
			Mode:        "sma_cross",
			SMAShort:    20,
			SMALong:     50,
			MinGapUSDT:  50,
			MinGapPct:   0.0005,
			ConfirmBars: 3,
			RSILow:      30,
			RSIHigh:     70,
		},
		Risk: Risk{
			StopLossPct:     0.03,
			TakeProfitPct:   0.06,
			MaxOrdersPerMin: 3,
		},
	}
}

// Load reads a YAML file over the defaults, applies env overrides, and validates.
// A missing file is not an error; env-only operation matches the original tooling.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		file, err := os.Open(path)
		if err == nil {
			defer file.Close()
			if err := yaml.NewDecoder(file).Decode(cfg); err != nil {
				return nil, fmt.Errorf("decode yaml: %w", err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("open config: %w", err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	envString("SYMBOL", &c.Trading.Symbol)
	envString("INTERVAL", &c.Trading.Interval)
	envInt("POLL_SECONDS", &c.Trading.PollSeconds)
	envFloat("BASE_ORDER_USDT", &c.Trading.BaseOrderUSDT)
	envBool("DRY_RUN", &c.Trading.DryRun)
	envBool("BINANCE_TESTNET", &c.Exchange.Testnet)

	envInt("SMA_SHORT", &c.Strategy.SMAShort)
	envInt("SMA_LONG", &c.Strategy.SMALong)
	envFloat("SMA_MIN_GAP_USDT", &c.Strategy.MinGapUSDT)
	envFloat("SMA_MIN_GAP_PCT", &c.Strategy.MinGapPct)
	envInt("SMA_CONFIRM_BARS", &c.Strategy.ConfirmBars)

	envFloat("STOP_LOSS_PCT", &c.Risk.StopLossPct)
	envFloat("TAKE_PROFIT_PCT", &c.Risk.TakeProfitPct)
	envInt("MAX_ORDERS_PER_MIN", &c.Risk.MaxOrdersPerMin)

	if c.Exchange.Testnet {
		envString("BINANCE_TESTNET_API_KEY", &c.Exchange.APIKey)
		envString("BINANCE_TESTNET_API_SECRET", &c.Exchange.APISecret)
	} else {
		envString("BINANCE_API_KEY", &c.Exchange.APIKey)
		envString("BINANCE_API_SECRET", &c.Exchange.APISecret)
	}
}

// Validate rejects configurations the trading loop cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Trading.Symbol) == "" {
		return fmt.Errorf("config: symbol must not be empty")
	}
	if strings.TrimSpace(c.Trading.Interval) == "" {
		return fmt.Errorf("config: interval must not be empty")
	}
	if c.Trading.PollSeconds <= 0 {
		return fmt.Errorf("config: poll_seconds must be positive, got %d", c.Trading.PollSeconds)
	}
	if c.Trading.BaseOrderUSDT <= 0 {
		return fmt.Errorf("config: base_order_usdt must be positive, got %.2f", c.Trading.BaseOrderUSDT)
	}
	if c.Trading.CandleLimit <= 0 {
		return fmt.Errorf("config: candle_limit must be positive, got %d", c.Trading.CandleLimit)
	}
	if c.Strategy.SMAShort <= 0 || c.Strategy.SMALong <= 0 {
		return fmt.Errorf("config: SMA windows must be positive, got %d/%d", c.Strategy.SMAShort, c.Strategy.SMALong)
	}
	if c.Strategy.SMAShort >= c.Strategy.SMALong {
		return fmt.Errorf("config: sma_short (%d) must be below sma_long (%d)", c.Strategy.SMAShort, c.Strategy.SMALong)
	}
	if c.Strategy.ConfirmBars < 0 {
		return fmt.Errorf("config: confirm_bars must not be negative, got %d", c.Strategy.ConfirmBars)
	}
	if c.Strategy.MinGapUSDT < 0 || c.Strategy.MinGapPct < 0 {
		return fmt.Errorf("config: gap thresholds must not be negative")
	}
	if c.Risk.StopLossPct <= 0 || c.Risk.TakeProfitPct <= 0 {
		return fmt.Errorf("config: stop_loss_pct and take_profit_pct must be positive")
	}
	if c.Risk.MaxOrdersPerMin <= 0 {
		return fmt.Errorf("config: max_orders_per_min must be positive, got %d", c.Risk.MaxOrdersPerMin)
	}
	return nil
}

func envString(key string, dst *string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envFloat(key string, dst *float64) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func envBool(key string, dst *bool) {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes":
		*dst = true
	case "0", "false", "no":
		*dst = false
	}
}

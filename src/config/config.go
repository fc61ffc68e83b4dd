package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration accepts "1s" style strings in YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("%w: invalid duration %q", ErrInvalidConfig, raw)
	}

	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

type FeeUsing string

const (
	FeeMaker FeeUsing = "maker"
	FeeTaker FeeUsing = "taker"
)

type Watch struct {
	Exchange     string `yaml:"exchange"`
	Currency     string `yaml:"currency"`
	Asset        string `yaml:"asset"`
	WebsocketURL string `yaml:"websocketUrl"`
}

type TradingAdvisor struct {
	// CandleSize is the candle bucket size in minutes.
	CandleSize int `yaml:"candleSize"`
	// HistorySize is the number of candles the advisor needs before its
	// first advice.
	HistorySize int `yaml:"historySize"`
}

func (t TradingAdvisor) CandleDuration() time.Duration {
	return time.Duration(t.CandleSize) * time.Minute
}

// WarmupDuration is the amount of history fetched before the first candle so
// the advisor warms up before producing advice.
func (t TradingAdvisor) WarmupDuration() time.Duration {
	return t.CandleDuration() * time.Duration(t.HistorySize)
}

type Balance struct {
	Currency float64 `yaml:"currency"`
	Asset    float64 `yaml:"asset"`
}

type PaperTrader struct {
	FeeMaker          float64  `yaml:"feeMaker"`
	FeeTaker          float64  `yaml:"feeTaker"`
	FeeUsing          FeeUsing `yaml:"feeUsing"`
	Slippage          float64  `yaml:"slippage"`
	SimulationBalance Balance  `yaml:"simulationBalance"`
}

type PerformanceAnalyzer struct {
	// RiskFreeReturn is the reference return (in percent) used by the
	// Sharpe-like ratio.
	RiskFreeReturn float64 `yaml:"riskFreeReturn"`
}

type DateRange struct {
	From time.Time `yaml:"from"`
	To   time.Time `yaml:"to"`
}

type Backtest struct {
	DataFile   string    `yaml:"dataFile"`
	ExportFile string    `yaml:"exportFile"`
	DateRange  DateRange `yaml:"daterange"`
}

type Importer struct {
	OutputFile string    `yaml:"outputFile"`
	DateRange  DateRange `yaml:"daterange"`
}

type Fetcher struct {
	// RetryLimit is the number of consecutive failed or empty fetches
	// tolerated per tick before giving up until the next tick.
	RetryLimit int `yaml:"retryLimit"`
	// RetryDelay is the fixed delay between attempts. No backoff.
	RetryDelay Duration `yaml:"retryDelay"`
	// Interval is the time between fetch ticks.
	Interval Duration `yaml:"interval"`
}

type Config struct {
	Watch               Watch               `yaml:"watch"`
	TradingAdvisor      TradingAdvisor      `yaml:"tradingAdvisor"`
	PaperTrader         PaperTrader         `yaml:"paperTrader"`
	PerformanceAnalyzer PerformanceAnalyzer `yaml:"performanceAnalyzer"`
	Backtest            Backtest            `yaml:"backtest"`
	Importer            Importer            `yaml:"importer"`
	Fetcher             Fetcher             `yaml:"fetcher"`
	// Plugins lists the enabled plugin slugs.
	Plugins []string `yaml:"plugins"`
}

const (
	DefaultRetryLimit = 20
	DefaultRetryDelay = Duration(1 * time.Second)
	DefaultInterval   = Duration(1 * time.Minute)
)

func (c *Config) ApplyDefaults() {
	if c.Fetcher.RetryLimit == 0 {
		c.Fetcher.RetryLimit = DefaultRetryLimit
	}

	if c.Fetcher.RetryDelay == 0 {
		c.Fetcher.RetryDelay = DefaultRetryDelay
	}

	if c.Fetcher.Interval == 0 {
		c.Fetcher.Interval = DefaultInterval
	}

	if c.PaperTrader.FeeUsing == "" {
		c.PaperTrader.FeeUsing = FeeMaker
	}

	if len(c.Plugins) == 0 {
		c.Plugins = []string{"paperTrader", "performanceAnalyzer", "tradeLogger"}
	}
}

func (c Config) Validate() error {
	if c.TradingAdvisor.CandleSize <= 0 {
		return fmt.Errorf("%w: tradingAdvisor.candleSize must be positive", ErrInvalidConfig)
	}

	if c.TradingAdvisor.HistorySize <= 0 {
		return fmt.Errorf("%w: tradingAdvisor.historySize must be positive", ErrInvalidConfig)
	}

	switch c.PaperTrader.FeeUsing {
	case FeeMaker, FeeTaker:
	default:
		return fmt.Errorf("%w: paperTrader.feeUsing must be %q or %q, got %q", ErrInvalidConfig, FeeMaker, FeeTaker, c.PaperTrader.FeeUsing)
	}

	if c.PaperTrader.FeeMaker < 0 || c.PaperTrader.FeeTaker < 0 {
		return fmt.Errorf("%w: paperTrader fees must not be negative", ErrInvalidConfig)
	}

	if c.PaperTrader.Slippage < 0 {
		return fmt.Errorf("%w: paperTrader.slippage must not be negative", ErrInvalidConfig)
	}

	if c.PaperTrader.SimulationBalance.Currency < 0 || c.PaperTrader.SimulationBalance.Asset < 0 {
		return fmt.Errorf("%w: paperTrader.simulationBalance must not be negative", ErrInvalidConfig)
	}

	if c.Fetcher.RetryLimit <= 0 {
		return fmt.Errorf("%w: fetcher.retryLimit must be positive", ErrInvalidConfig)
	}

	return nil
}

// Load reads a YAML run configuration. The result is immutable for the rest
// of the run; it is passed by value into the pipeline constructors.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("Load: failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("Load: failed to parse config file: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("Load: %w", err)
	}

	return cfg, nil
}

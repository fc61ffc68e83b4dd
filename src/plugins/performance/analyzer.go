package performance

import (
	"context"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/quantrose/candleflow/src/config"
	"github.com/quantrose/candleflow/src/eventmodels"
	"github.com/quantrose/candleflow/src/eventpubsub"
	"github.com/quantrose/candleflow/src/pipeline"
	"github.com/quantrose/candleflow/src/plugins/papertrader"
)

const Slug = "performanceAnalyzer"

// Analyzer reduces the stream of roundtrips and portfolio valuations into a
// final report. Valuations are folded into O(1) running state (peak value,
// max drawdown, latest value); only the per-roundtrip relative profits are
// kept, for the std-dev behind the Sharpe-like ratio.
type Analyzer struct {
	riskFreeReturn float64

	startAt time.Time
	endAt   time.Time

	startValue   decimal.Decimal
	currentValue decimal.Decimal
	peakValue    decimal.Decimal
	maxDrawdown  float64

	trades   int
	wins     int
	losses   int
	totalPnl decimal.Decimal
	exposure time.Duration
	profits  []float64

	report *Report
}

func New(cfg config.Config) *Analyzer {
	return &Analyzer{riskFreeReturn: cfg.PerformanceAnalyzer.RiskFreeReturn}
}

func Descriptor() pipeline.Descriptor {
	return pipeline.Descriptor{
		Slug:      Slug,
		Modes:     []pipeline.Mode{pipeline.ModeBacktest, pipeline.ModeRealtime},
		DependsOn: []string{papertrader.Slug},
		New: func(deps pipeline.Deps) (pipeline.Plugin, error) {
			return New(deps.Config), nil
		},
	}
}

func (a *Analyzer) Init(bus *eventpubsub.Bus) error {
	return nil
}

func (a *Analyzer) ProcessCandle(ctx context.Context, candle eventmodels.Candle) error {
	if a.startAt.IsZero() {
		a.startAt = candle.Start
	}
	a.endAt = candle.Start

	return nil
}

func (a *Analyzer) ProcessPortfolioValue(value eventmodels.PortfolioValue) error {
	if a.startValue.IsZero() && !value.Value.IsZero() {
		a.startValue = value.Value
		a.peakValue = value.Value
	}

	a.currentValue = value.Value

	if value.Value.GreaterThan(a.peakValue) {
		a.peakValue = value.Value
	}

	if a.peakValue.IsPositive() {
		drawdown, _ := a.peakValue.Sub(value.Value).Div(a.peakValue).Float64()
		if drawdown > a.maxDrawdown {
			a.maxDrawdown = drawdown
		}
	}

	return nil
}

func (a *Analyzer) ProcessRoundTrip(roundtrip eventmodels.RoundTrip) error {
	a.trades++
	a.totalPnl = a.totalPnl.Add(roundtrip.Pnl)
	a.exposure += roundtrip.Duration()
	a.profits = append(a.profits, roundtrip.Profit()*100)

	if roundtrip.Pnl.IsPositive() {
		a.wins++
	} else {
		a.losses++
	}

	return nil
}

// Finalize computes the derived statistics from the accumulated sums. All
// divisions are guarded: zero trades or zero variance yield zero-valued
// fields, never NaN.
func (a *Analyzer) Finalize() error {
	report := &Report{
		StartAt:        a.startAt,
		EndAt:          a.endAt,
		Trades:         a.trades,
		Wins:           a.wins,
		Losses:         a.losses,
		RiskFreeReturn: a.riskFreeReturn,
	}

	if !a.startAt.IsZero() {
		report.Timespan = a.endAt.Sub(a.startAt)
	}

	report.StartBalance, _ = a.startValue.Float64()
	report.FinalBalance, _ = a.currentValue.Float64()
	report.TotalPnl, _ = a.totalPnl.Float64()
	report.MaxDrawdownPct = a.maxDrawdown * 100

	if a.startValue.IsPositive() {
		totalReturn, _ := a.currentValue.Sub(a.startValue).Div(a.startValue).Float64()
		report.TotalReturnPct = totalReturn * 100
	}

	if a.trades > 0 {
		report.WinRatio = float64(a.wins) / float64(a.trades)
	}

	if report.Timespan > 0 {
		report.ExposurePct = float64(a.exposure) / float64(report.Timespan) * 100
	}

	report.SharpeRatio = a.sharpe()

	a.report = report
	log.Infof("PerformanceAnalyzer: %d trades, %.2f%% return", report.Trades, report.TotalReturnPct)

	return nil
}

func (a *Analyzer) sharpe() float64 {
	if len(a.profits) < 2 {
		return 0
	}

	mean, err := stats.Mean(a.profits)
	if err != nil {
		log.Debugf("PerformanceAnalyzer: mean unavailable: %v", err)
		return 0
	}

	sd, err := stats.StandardDeviation(a.profits)
	if err != nil || sd == 0 {
		log.Debugf("PerformanceAnalyzer: zero variance, sharpe defaults to 0")
		return 0
	}

	return (mean - a.riskFreeReturn) / sd
}

// Report returns the finalized report, or nil before Finalize has run.
func (a *Analyzer) Report() *Report {
	return a.report
}

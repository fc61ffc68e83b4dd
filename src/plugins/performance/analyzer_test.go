package performance

import (
	"bytes"
	"context"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantrose/candleflow/src/config"
	"github.com/quantrose/candleflow/src/eventmodels"
)

func analyzerConfig(riskFree float64) config.Config {
	return config.Config{
		PerformanceAnalyzer: config.PerformanceAnalyzer{RiskFreeReturn: riskFree},
	}
}

func valueAt(t0 time.Time, minute int, value float64) eventmodels.PortfolioValue {
	return eventmodels.PortfolioValue{
		Timestamp: t0.Add(time.Duration(minute) * time.Minute),
		Value:     decimal.NewFromFloat(value),
	}
}

func roundtripWith(t *testing.T, t0 time.Time, entry, exit float64, minutes int) eventmodels.RoundTrip {
	t.Helper()

	entryPrice := decimal.NewFromFloat(entry)
	exitPrice := decimal.NewFromFloat(exit)
	amount := decimal.NewFromInt(1)

	roundtrip, err := eventmodels.NewRoundTrip(
		t0,
		t0.Add(time.Duration(minutes)*time.Minute),
		entryPrice,
		exitPrice,
		amount,
		exitPrice.Sub(entryPrice),
	)
	require.NoError(t, err)

	return roundtrip
}

func TestAnalyzer(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	t.Run("zero roundtrips reports sentinels, not NaN", func(t *testing.T) {
		analyzer := New(analyzerConfig(2))
		require.NoError(t, analyzer.Finalize())

		report := analyzer.Report()
		require.NotNil(t, report)
		assert.Zero(t, report.Trades)
		assert.Zero(t, report.WinRatio)
		assert.Zero(t, report.SharpeRatio)
		assert.Zero(t, report.MaxDrawdownPct)
		assert.False(t, math.IsNaN(report.TotalReturnPct))
		assert.False(t, math.IsNaN(report.WinRatio))
		assert.False(t, math.IsNaN(report.SharpeRatio))
	})

	t.Run("win ratio and totals", func(t *testing.T) {
		analyzer := New(analyzerConfig(0))

		require.NoError(t, analyzer.ProcessRoundTrip(roundtripWith(t, t0, 100, 110, 10)))
		require.NoError(t, analyzer.ProcessRoundTrip(roundtripWith(t, t0.Add(time.Hour), 110, 100, 10)))
		require.NoError(t, analyzer.ProcessRoundTrip(roundtripWith(t, t0.Add(2*time.Hour), 100, 120, 10)))
		require.NoError(t, analyzer.Finalize())

		report := analyzer.Report()
		assert.Equal(t, 3, report.Trades)
		assert.Equal(t, 2, report.Wins)
		assert.Equal(t, 1, report.Losses)
		assert.InDelta(t, 2.0/3.0, report.WinRatio, 1e-9)
		assert.InDelta(t, 20, report.TotalPnl, 1e-9)
	})

	t.Run("max drawdown tracks the deepest peak-to-trough drop", func(t *testing.T) {
		analyzer := New(analyzerConfig(0))

		require.NoError(t, analyzer.ProcessPortfolioValue(valueAt(t0, 0, 100)))
		require.NoError(t, analyzer.ProcessPortfolioValue(valueAt(t0, 1, 120)))
		require.NoError(t, analyzer.ProcessPortfolioValue(valueAt(t0, 2, 90)))
		require.NoError(t, analyzer.ProcessPortfolioValue(valueAt(t0, 3, 110)))
		require.NoError(t, analyzer.Finalize())

		assert.InDelta(t, 25, analyzer.Report().MaxDrawdownPct, 1e-9)
	})

	t.Run("total return from start and final valuations", func(t *testing.T) {
		analyzer := New(analyzerConfig(0))

		require.NoError(t, analyzer.ProcessPortfolioValue(valueAt(t0, 0, 100)))
		require.NoError(t, analyzer.ProcessPortfolioValue(valueAt(t0, 1, 90)))
		require.NoError(t, analyzer.Finalize())

		report := analyzer.Report()
		assert.InDelta(t, -10, report.TotalReturnPct, 1e-9)
		assert.InDelta(t, 100, report.StartBalance, 1e-9)
		assert.InDelta(t, 90, report.FinalBalance, 1e-9)
	})

	t.Run("zero variance yields zero sharpe", func(t *testing.T) {
		analyzer := New(analyzerConfig(0))

		require.NoError(t, analyzer.ProcessRoundTrip(roundtripWith(t, t0, 100, 110, 10)))
		require.NoError(t, analyzer.ProcessRoundTrip(roundtripWith(t, t0.Add(time.Hour), 100, 110, 10)))
		require.NoError(t, analyzer.Finalize())

		assert.Zero(t, analyzer.Report().SharpeRatio)
		assert.False(t, math.IsNaN(analyzer.Report().SharpeRatio))
	})

	t.Run("sharpe is positive for consistently profitable trades", func(t *testing.T) {
		analyzer := New(analyzerConfig(0))

		require.NoError(t, analyzer.ProcessRoundTrip(roundtripWith(t, t0, 100, 110, 10)))
		require.NoError(t, analyzer.ProcessRoundTrip(roundtripWith(t, t0.Add(time.Hour), 100, 120, 10)))
		require.NoError(t, analyzer.Finalize())

		assert.Greater(t, analyzer.Report().SharpeRatio, 0.0)
	})

	t.Run("exposure relative to run timespan", func(t *testing.T) {
		analyzer := New(analyzerConfig(0))

		ctx := context.Background()
		require.NoError(t, analyzer.ProcessCandle(ctx, eventmodels.Candle{Start: t0}))
		require.NoError(t, analyzer.ProcessCandle(ctx, eventmodels.Candle{Start: t0.Add(100 * time.Minute)}))
		require.NoError(t, analyzer.ProcessRoundTrip(roundtripWith(t, t0, 100, 110, 50)))
		require.NoError(t, analyzer.Finalize())

		assert.InDelta(t, 50, analyzer.Report().ExposurePct, 1e-9)
	})

	t.Run("report renders without error", func(t *testing.T) {
		analyzer := New(analyzerConfig(0))
		require.NoError(t, analyzer.Finalize())

		var buf bytes.Buffer
		analyzer.Report().Render(&buf)
		assert.Contains(t, buf.String(), "Win ratio")
	})
}

package papertrader

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantrose/candleflow/src/config"
	"github.com/quantrose/candleflow/src/eventmodels"
	"github.com/quantrose/candleflow/src/eventpubsub"
)

type harness struct {
	trader     *PaperTrader
	bus        *eventpubsub.Bus
	trades     []eventmodels.TradeCompleted
	roundtrips []eventmodels.RoundTrip
}

func newHarness(t *testing.T, paperCfg config.PaperTrader) *harness {
	t.Helper()

	cfg := config.Config{PaperTrader: paperCfg}
	if cfg.PaperTrader.FeeUsing == "" {
		cfg.PaperTrader.FeeUsing = config.FeeMaker
	}

	trader, err := New(cfg)
	require.NoError(t, err)

	h := &harness{trader: trader, bus: eventpubsub.New()}
	require.NoError(t, trader.Init(h.bus))

	require.NoError(t, h.bus.Subscribe("test", eventmodels.TradeCompletedEventName, func(trade eventmodels.TradeCompleted) {
		h.trades = append(h.trades, trade)
	}))
	require.NoError(t, h.bus.Subscribe("test", eventmodels.RoundTripEventName, func(roundtrip eventmodels.RoundTrip) {
		h.roundtrips = append(h.roundtrips, roundtrip)
	}))

	return h
}

func (h *harness) candle(t *testing.T, start time.Time, close float64) {
	t.Helper()

	require.NoError(t, h.trader.ProcessCandle(context.Background(), eventmodels.Candle{
		Start: start, Open: close, High: close, Low: close, Close: close,
	}))
	h.bus.DrainAll()
}

func (h *harness) advise(t *testing.T, at time.Time, action eventmodels.AdviceAction) {
	t.Helper()

	require.NoError(t, h.trader.ProcessAdvice(eventmodels.Advice{Action: action, Timestamp: at}))
	h.bus.DrainAll()
}

func TestPaperTrader(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	balance := func(currency, asset float64) config.Balance {
		return config.Balance{Currency: currency, Asset: asset}
	}

	t.Run("open then close produces one roundtrip with the expected pnl", func(t *testing.T) {
		h := newHarness(t, config.PaperTrader{SimulationBalance: balance(100, 0)})

		h.candle(t, t0, 100)
		h.advise(t, t0.Add(time.Second), eventmodels.AdviceOpen)

		require.Len(t, h.trades, 1)
		assert.Equal(t, eventmodels.TradeSideBuy, h.trades[0].Side)
		assert.Equal(t, "1", h.trades[0].Amount.String())
		assert.Equal(t, "0", h.trader.Portfolio().Currency.String())
		assert.Equal(t, "1", h.trader.Portfolio().Asset.String())

		h.candle(t, t0.Add(time.Minute), 110)
		h.candle(t, t0.Add(2*time.Minute), 90)
		h.advise(t, t0.Add(2*time.Minute).Add(time.Second), eventmodels.AdviceClose)

		require.Len(t, h.trades, 2)
		assert.Equal(t, eventmodels.TradeSideSell, h.trades[1].Side)
		assert.Equal(t, "90", h.trader.Portfolio().Currency.String())
		assert.Equal(t, "0", h.trader.Portfolio().Asset.String())

		require.Len(t, h.roundtrips, 1)
		roundtrip := h.roundtrips[0]
		assert.Equal(t, "-10", roundtrip.Pnl.String())
		assert.True(t, roundtrip.ExitAt.After(roundtrip.EntryAt))
		assert.Equal(t, "100", roundtrip.EntryPrice.String())
		assert.Equal(t, "90", roundtrip.ExitPrice.String())
	})

	t.Run("re-entrant open advice is a no-op", func(t *testing.T) {
		h := newHarness(t, config.PaperTrader{SimulationBalance: balance(100, 0)})

		h.candle(t, t0, 100)
		h.advise(t, t0.Add(time.Second), eventmodels.AdviceOpen)
		h.advise(t, t0.Add(2*time.Second), eventmodels.AdviceOpen)

		assert.Len(t, h.trades, 1)
	})

	t.Run("close while flat is a no-op", func(t *testing.T) {
		h := newHarness(t, config.PaperTrader{SimulationBalance: balance(100, 0)})

		h.candle(t, t0, 100)
		h.advise(t, t0.Add(time.Second), eventmodels.AdviceClose)

		assert.Empty(t, h.trades)
		assert.Empty(t, h.roundtrips)
	})

	t.Run("fees are subtracted from the filled amount", func(t *testing.T) {
		h := newHarness(t, config.PaperTrader{
			FeeMaker:          0.0025,
			FeeUsing:          config.FeeMaker,
			SimulationBalance: balance(100, 0),
		})

		h.candle(t, t0, 100)
		h.advise(t, t0.Add(time.Second), eventmodels.AdviceOpen)

		// 1 asset bought, 0.25% fee shaved off the fill
		assert.Equal(t, "0.9975", h.trader.Portfolio().Asset.String())
		assert.Equal(t, "0", h.trader.Portfolio().Currency.String())
	})

	t.Run("slippage degrades the fill price", func(t *testing.T) {
		h := newHarness(t, config.PaperTrader{
			Slippage:          0.05,
			SimulationBalance: balance(105, 0),
		})

		h.candle(t, t0, 100)
		h.advise(t, t0.Add(time.Second), eventmodels.AdviceOpen)

		// buys at 100 * 1.05 = 105
		assert.Equal(t, "1", h.trader.Portfolio().Asset.String())
		assert.Equal(t, "105", h.trades[0].Price.String())
	})

	t.Run("open with zero currency does not fill and does not throw", func(t *testing.T) {
		h := newHarness(t, config.PaperTrader{SimulationBalance: balance(0, 0)})

		h.candle(t, t0, 100)
		h.advise(t, t0.Add(time.Second), eventmodels.AdviceOpen)

		assert.Empty(t, h.trades)
		assert.True(t, h.trader.Portfolio().Currency.IsZero())
	})

	t.Run("weighted open spends a fraction of the currency", func(t *testing.T) {
		h := newHarness(t, config.PaperTrader{SimulationBalance: balance(100, 0)})

		h.candle(t, t0, 100)
		weight := 0.5
		require.NoError(t, h.trader.ProcessAdvice(eventmodels.Advice{
			Action:    eventmodels.AdviceOpen,
			Timestamp: t0.Add(time.Second),
			Weight:    &weight,
		}))
		h.bus.DrainAll()

		assert.Equal(t, "50", h.trader.Portfolio().Currency.String())
		assert.Equal(t, "0.5", h.trader.Portfolio().Asset.String())
	})

	t.Run("unknown advice action is fatal", func(t *testing.T) {
		h := newHarness(t, config.PaperTrader{SimulationBalance: balance(100, 0)})

		h.candle(t, t0, 100)
		err := h.trader.ProcessAdvice(eventmodels.Advice{Action: "short", Timestamp: t0.Add(time.Second)})
		require.Error(t, err)
		assert.ErrorIs(t, err, eventmodels.ErrUnknownAdviceAction)
	})

	t.Run("non-monotonic advice is fatal", func(t *testing.T) {
		h := newHarness(t, config.PaperTrader{SimulationBalance: balance(100, 0)})

		h.candle(t, t0, 100)
		h.advise(t, t0.Add(2*time.Second), eventmodels.AdviceHold)

		err := h.trader.ProcessAdvice(eventmodels.Advice{Action: eventmodels.AdviceOpen, Timestamp: t0.Add(time.Second)})
		require.Error(t, err)
		assert.ErrorIs(t, err, eventmodels.ErrNonMonotonicAdvice)
	})

	t.Run("unknown feeUsing is fatal at construction", func(t *testing.T) {
		_, err := New(config.Config{PaperTrader: config.PaperTrader{FeeUsing: "both"}})
		require.Error(t, err)
		assert.ErrorIs(t, err, config.ErrInvalidConfig)
	})

	t.Run("portfolio value is emitted per candle", func(t *testing.T) {
		h := newHarness(t, config.PaperTrader{SimulationBalance: balance(100, 0)})

		var values []eventmodels.PortfolioValue
		require.NoError(t, h.bus.Subscribe("test", eventmodels.PortfolioValueEventName, func(value eventmodels.PortfolioValue) {
			values = append(values, value)
		}))

		h.candle(t, t0, 100)
		h.candle(t, t0.Add(time.Minute), 110)

		require.Len(t, values, 2)
		assert.Equal(t, "100", values[0].Value.String())
		assert.Equal(t, "100", values[1].Value.String())
	})
}

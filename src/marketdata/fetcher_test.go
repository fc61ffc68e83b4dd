package marketdata

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantrose/candleflow/src/config"
	"github.com/quantrose/candleflow/src/eventmodels"
)

type scriptedSource struct {
	calls     int
	responses []func() ([]eventmodels.Trade, error)
}

func (s *scriptedSource) GetTrades(ctx context.Context, since time.Time) ([]eventmodels.Trade, error) {
	defer func() { s.calls++ }()

	if s.calls >= len(s.responses) {
		return nil, nil
	}

	return s.responses[s.calls]()
}

func fail() func() ([]eventmodels.Trade, error) {
	return func() ([]eventmodels.Trade, error) { return nil, fmt.Errorf("exchange unavailable") }
}

func empty() func() ([]eventmodels.Trade, error) {
	return func() ([]eventmodels.Trade, error) { return nil, nil }
}

func yield(trades ...eventmodels.Trade) func() ([]eventmodels.Trade, error) {
	return func() ([]eventmodels.Trade, error) { return trades, nil }
}

func fetcherConfig(limit int) config.Fetcher {
	return config.Fetcher{
		RetryLimit: limit,
		RetryDelay: config.Duration(time.Millisecond),
		Interval:   config.Duration(time.Hour),
	}
}

func TestFetcher(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	ctx := context.Background()

	t.Run("success hands trades to the batcher and advances the watermark", func(t *testing.T) {
		trade := tradeAt("1", t0.Add(time.Second), 100)
		source := &scriptedSource{responses: []func() ([]eventmodels.Trade, error){yield(trade)}}

		batcher := NewBatcher(time.Minute)
		var received []eventmodels.Batch
		batcher.OnBatch(func(batch eventmodels.Batch) { received = append(received, batch) })

		fetcher := NewFetcher(source, batcher, t0, fetcherConfig(3))
		require.NoError(t, fetcher.Fetch(ctx))

		batcher.Flush()
		require.Len(t, received, 1)
		assert.Equal(t, trade.Timestamp, fetcher.Watermark())
	})

	t.Run("transient failures are retried within a tick", func(t *testing.T) {
		trade := tradeAt("1", t0.Add(time.Second), 100)
		source := &scriptedSource{responses: []func() ([]eventmodels.Trade, error){
			fail(), empty(), yield(trade),
		}}

		fetcher := NewFetcher(source, NewBatcher(time.Minute), t0, fetcherConfig(5))
		require.NoError(t, fetcher.Fetch(ctx))

		assert.Equal(t, 3, source.calls)
		assert.Equal(t, trade.Timestamp, fetcher.Watermark())
	})

	t.Run("exhausting the retry limit gives up without error", func(t *testing.T) {
		source := &scriptedSource{}

		fetcher := NewFetcher(source, NewBatcher(time.Minute), t0, fetcherConfig(20))
		require.NoError(t, fetcher.Fetch(ctx))

		assert.Equal(t, 20, source.calls)
		assert.Equal(t, t0, fetcher.Watermark())
	})

	t.Run("fetching resumes on the next tick after exhaustion", func(t *testing.T) {
		trade := tradeAt("1", t0.Add(time.Second), 100)
		source := &scriptedSource{responses: []func() ([]eventmodels.Trade, error){
			fail(), fail(), fail(), yield(trade),
		}}

		fetcher := NewFetcher(source, NewBatcher(time.Minute), t0, fetcherConfig(3))

		// first tick exhausts its three attempts
		require.NoError(t, fetcher.Fetch(ctx))
		assert.Equal(t, t0, fetcher.Watermark())

		// next tick succeeds
		require.NoError(t, fetcher.Fetch(ctx))
		assert.Equal(t, trade.Timestamp, fetcher.Watermark())
	})

	t.Run("cancellation abandons in-flight retries", func(t *testing.T) {
		source := &scriptedSource{responses: []func() ([]eventmodels.Trade, error){fail(), fail()}}

		cancelCtx, cancel := context.WithCancel(ctx)
		cancel()

		fetcher := NewFetcher(source, NewBatcher(time.Minute), t0, fetcherConfig(20))
		err := fetcher.Fetch(cancelCtx)
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Less(t, source.calls, 20)
	})
}

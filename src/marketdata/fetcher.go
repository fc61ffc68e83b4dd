package marketdata

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/quantrose/candleflow/src/config"
)

// Fetcher polls a TradeSource and hands successful results to the batcher.
// Transient failures and empty responses are retried up to RetryLimit times
// per tick with a fixed delay; exhausting the limit gives up until the next
// scheduled tick and is never fatal. The watermark only advances on success,
// so a failed tick refetches the same range later.
type Fetcher struct {
	source  TradeSource
	batcher *Batcher

	watermark  time.Time
	retryLimit int
	retryDelay time.Duration
	interval   time.Duration
}

// NewFetcher starts fetching at since, typically now minus the advisor
// warm-up window (candleSize x historySize) so the first advice has enough
// history behind it.
func NewFetcher(source TradeSource, batcher *Batcher, since time.Time, cfg config.Fetcher) *Fetcher {
	return &Fetcher{
		source:     source,
		batcher:    batcher,
		watermark:  since,
		retryLimit: cfg.RetryLimit,
		retryDelay: cfg.RetryDelay.Std(),
		interval:   cfg.Interval.Std(),
	}
}

// Fetch performs one tick: at most retryLimit attempts separated by the
// fixed retry delay. It returns an error only when the context is
// cancelled; fetch failures are logged and absorbed.
func (f *Fetcher) Fetch(ctx context.Context) error {
	for attempt := 1; attempt <= f.retryLimit; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(f.retryDelay):
			}
		}

		trades, err := f.source.GetTrades(ctx, f.watermark)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			log.Warnf("Fetcher: attempt %d/%d failed: %v", attempt, f.retryLimit, err)
			continue
		}

		// an empty response retries like an error but leaves the
		// watermark untouched
		if len(trades) == 0 {
			log.Debugf("Fetcher: attempt %d/%d returned no trades since %s", attempt, f.retryLimit, f.watermark)
			continue
		}

		f.watermark = trades[len(trades)-1].Timestamp
		f.batcher.Write(trades)

		return nil
	}

	log.Warnf("Fetcher: giving up after %d attempts, will retry on next tick", f.retryLimit)
	return nil
}

// Run fetches immediately and then once per interval until the context is
// cancelled. On shutdown the batcher is flushed so a partial window still
// reaches the pipeline.
func (f *Fetcher) Run(ctx context.Context) error {
	if err := f.Fetch(ctx); err != nil {
		f.batcher.Flush()
		return err
	}

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			f.batcher.Flush()
			return ctx.Err()
		case <-ticker.C:
			if err := f.Fetch(ctx); err != nil {
				f.batcher.Flush()
				return err
			}
		}
	}
}

// Watermark returns the timestamp of the last successfully fetched trade.
func (f *Fetcher) Watermark() time.Time {
	return f.watermark
}

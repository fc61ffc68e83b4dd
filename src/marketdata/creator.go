package marketdata

import (
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/quantrose/candleflow/src/eventmodels"
)

// CandleCreator folds trade batches into fixed-size candles. Output candles
// are strictly monotonic and gap-free: buckets without trades carry the
// previous close with zero volume.
type CandleCreator struct {
	size    time.Duration
	current *eventmodels.Candle
}

func NewCandleCreator(size time.Duration) *CandleCreator {
	return &CandleCreator{size: size}
}

// Write folds one batch and returns the candles it completed, in order. The
// candle containing the newest trade stays open until a later bucket
// arrives or Flush is called.
func (c *CandleCreator) Write(batch eventmodels.Batch) []eventmodels.Candle {
	var completed []eventmodels.Candle

	for _, trade := range batch.Trades {
		bucket := trade.Timestamp.Truncate(c.size)

		if c.current == nil {
			candle := eventmodels.NewCandle(bucket, trade.Price, trade.Amount)
			c.current = &candle
			continue
		}

		if bucket.After(c.current.Start) {
			completed = append(completed, *c.current)

			// fill empty buckets between the closed candle and the
			// new trade
			for gap := c.current.Start.Add(c.size); gap.Before(bucket); gap = gap.Add(c.size) {
				completed = append(completed, c.current.Empty(gap))
			}

			candle := eventmodels.NewCandle(bucket, trade.Price, trade.Amount)
			c.current = &candle
			continue
		}

		if bucket.Before(c.current.Start) {
			log.Warnf("CandleCreator: dropping out-of-order trade at %s", trade.Timestamp)
			continue
		}

		c.current.Update(trade.Price, trade.Amount)
	}

	return completed
}

// Flush closes and returns the forming candle, if any.
func (c *CandleCreator) Flush() *eventmodels.Candle {
	if c.current == nil {
		return nil
	}

	candle := *c.current
	c.current = nil

	return &candle
}

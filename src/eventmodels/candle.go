package eventmodels

import "time"

// Candle is an OHLCV summary of all trades inside one fixed time bucket.
// Candles are immutable once emitted and arrive in strictly increasing,
// gap-free Start order.
type Candle struct {
	Start  time.Time `json:"start" csv:"start"`
	Open   float64   `json:"open" csv:"open"`
	High   float64   `json:"high" csv:"high"`
	Low    float64   `json:"low" csv:"low"`
	Close  float64   `json:"close" csv:"close"`
	Volume float64   `json:"volume" csv:"volume"`
}

func (c *Candle) Update(price, amount float64) {
	if price > c.High {
		c.High = price
	}

	if price < c.Low {
		c.Low = price
	}

	c.Close = price
	c.Volume += amount
}

// Empty returns the zero-volume candle that fills a gap after c.
func (c Candle) Empty(start time.Time) Candle {
	return Candle{
		Start:  start,
		Open:   c.Close,
		High:   c.Close,
		Low:    c.Close,
		Close:  c.Close,
		Volume: 0,
	}
}

func NewCandle(start time.Time, price, amount float64) Candle {
	return Candle{
		Start:  start,
		Open:   price,
		High:   price,
		Low:    price,
		Close:  price,
		Volume: amount,
	}
}

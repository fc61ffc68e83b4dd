package eventmodels

import "time"

// Trade is one raw execution fetched from the price source. Many trades
// compose one candle.
type Trade struct {
	ID        string    `json:"id" csv:"id"`
	Timestamp time.Time `json:"timestamp" csv:"timestamp"`
	Price     float64   `json:"price" csv:"price"`
	Amount    float64   `json:"amount" csv:"amount"`
}

func (t Trade) Validate() error {
	if t.ID == "" {
		return ErrNoTradeID
	}

	if t.Timestamp.IsZero() {
		return ErrNoTimestamp
	}

	if t.Price <= 0 {
		return ErrInvalidPrice
	}

	return nil
}

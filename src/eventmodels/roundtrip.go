package eventmodels

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RoundTrip records one complete open -> close position cycle. Instances are
// append-only and immutable after creation.
type RoundTrip struct {
	ID         uuid.UUID       `json:"id" csv:"id"`
	EntryAt    time.Time       `json:"entryAt" csv:"entry_at"`
	ExitAt     time.Time       `json:"exitAt" csv:"exit_at"`
	EntryPrice decimal.Decimal `json:"entryPrice" csv:"entry_price"`
	ExitPrice  decimal.Decimal `json:"exitPrice" csv:"exit_price"`
	Amount     decimal.Decimal `json:"amount" csv:"amount"`
	Pnl        decimal.Decimal `json:"pnl" csv:"pnl"`
}

func (r RoundTrip) Duration() time.Duration {
	return r.ExitAt.Sub(r.EntryAt)
}

// Profit returns the realized pnl relative to the entry value.
func (r RoundTrip) Profit() float64 {
	entryValue := r.EntryPrice.Mul(r.Amount)
	if entryValue.IsZero() {
		return 0
	}

	profit, _ := r.Pnl.Div(entryValue).Float64()
	return profit
}

func NewRoundTrip(entryAt, exitAt time.Time, entryPrice, exitPrice, amount, pnl decimal.Decimal) (RoundTrip, error) {
	if !exitAt.After(entryAt) {
		return RoundTrip{}, ErrRoundTripNotClosed
	}

	return RoundTrip{
		ID:         uuid.New(),
		EntryAt:    entryAt,
		ExitAt:     exitAt,
		EntryPrice: entryPrice,
		ExitPrice:  exitPrice,
		Amount:     amount,
		Pnl:        pnl,
	}, nil
}

package eventmodels

import (
	"time"

	"github.com/shopspring/decimal"
)

// Portfolio is a snapshot of the simulated account. The paper trader owns
// the live balances; everything published on the bus is a copy.
type Portfolio struct {
	Asset    decimal.Decimal `json:"asset"`
	Currency decimal.Decimal `json:"currency"`
}

// Value returns the portfolio valuation in currency at the given price.
func (p Portfolio) Value(price decimal.Decimal) decimal.Decimal {
	return p.Currency.Add(p.Asset.Mul(price))
}

// PortfolioValue is published once per candle after the paper trader has
// applied any fills for that candle.
type PortfolioValue struct {
	Timestamp time.Time       `json:"timestamp"`
	Portfolio Portfolio       `json:"portfolio"`
	Price     decimal.Decimal `json:"price"`
	Value     decimal.Decimal `json:"value"`
}

package eventmodels

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TradeSide string

const (
	TradeSideBuy  TradeSide = "buy"
	TradeSideSell TradeSide = "sell"
)

// TradeCompleted is published after the paper trader fills a simulated order.
type TradeCompleted struct {
	ID        uuid.UUID       `json:"id"`
	Side      TradeSide       `json:"side"`
	Timestamp time.Time       `json:"timestamp"`
	Price     decimal.Decimal `json:"price"`
	Amount    decimal.Decimal `json:"amount"`
	Fee       decimal.Decimal `json:"fee"`
	Portfolio Portfolio       `json:"portfolio"`
}

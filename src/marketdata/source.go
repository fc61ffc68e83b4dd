package marketdata

import (
	"context"
	"time"

	"github.com/quantrose/candleflow/src/eventmodels"
)

// TradeSource is the upstream exchange contract: return all raw trades
// observed after since, oldest first. Implementations live outside the core
// (CSV replay, websocket feeds, exchange SDK wrappers).
type TradeSource interface {
	GetTrades(ctx context.Context, since time.Time) ([]eventmodels.Trade, error)
}

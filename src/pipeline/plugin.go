package pipeline

import (
	"context"
	"time"

	"github.com/quantrose/candleflow/src/eventmodels"
	"github.com/quantrose/candleflow/src/eventpubsub"
)

type Mode string

const (
	ModeBacktest Mode = "backtest"
	ModeRealtime Mode = "realtime"
	ModeImporter Mode = "importer"
)

func (m Mode) Validate() error {
	switch m {
	case ModeBacktest, ModeRealtime, ModeImporter:
		return nil
	default:
		return ErrUnknownMode
	}
}

// Plugin is the lifecycle every processing stage implements.
type Plugin interface {
	Init(bus *eventpubsub.Bus) error
	ProcessCandle(ctx context.Context, candle eventmodels.Candle) error
	Finalize() error
}

// AdviceProcessor is implemented by plugins that consume advice events. The
// pipeline dispatches drained advice to implementers in dependency order.
type AdviceProcessor interface {
	ProcessAdvice(advice eventmodels.Advice) error
}

// RoundTripProcessor is implemented by plugins that consume roundtrip events.
type RoundTripProcessor interface {
	ProcessRoundTrip(roundtrip eventmodels.RoundTrip) error
}

// PortfolioValueProcessor is implemented by plugins that consume periodic
// portfolio valuations.
type PortfolioValueProcessor interface {
	ProcessPortfolioValue(value eventmodels.PortfolioValue) error
}

// WarmupNotifier is implemented by plugins that hold back output until the
// advisor warm-up window has passed.
type WarmupNotifier interface {
	WarmupCompleted(at time.Time)
}

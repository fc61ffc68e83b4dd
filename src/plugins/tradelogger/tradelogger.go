package tradelogger

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/quantrose/candleflow/src/eventmodels"
	"github.com/quantrose/candleflow/src/eventpubsub"
	"github.com/quantrose/candleflow/src/pipeline"
	"github.com/quantrose/candleflow/src/plugins/papertrader"
)

const Slug = "tradeLogger"

// Logger subscribes to the public event stream and logs it. It keeps no
// state and never emits.
type Logger struct{}

func Descriptor() pipeline.Descriptor {
	return pipeline.Descriptor{
		Slug:      Slug,
		Modes:     []pipeline.Mode{pipeline.ModeBacktest, pipeline.ModeRealtime},
		DependsOn: []string{papertrader.Slug},
		New: func(deps pipeline.Deps) (pipeline.Plugin, error) {
			return &Logger{}, nil
		},
	}
}

func (l *Logger) Init(bus *eventpubsub.Bus) error {
	if err := bus.Subscribe(Slug, eventmodels.TradeCompletedEventName, func(trade eventmodels.TradeCompleted) {
		log.WithFields(log.Fields{
			"side":   trade.Side,
			"price":  trade.Price,
			"amount": trade.Amount,
			"fee":    trade.Fee,
		}).Infof("Trade completed at %s", trade.Timestamp)
	}); err != nil {
		return err
	}

	if err := bus.Subscribe(Slug, eventmodels.RoundTripEventName, func(roundtrip eventmodels.RoundTrip) {
		log.WithFields(log.Fields{
			"entry":    roundtrip.EntryPrice,
			"exit":     roundtrip.ExitPrice,
			"pnl":      roundtrip.Pnl,
			"duration": roundtrip.Duration(),
		}).Infof("Roundtrip closed at %s", roundtrip.ExitAt)
	}); err != nil {
		return err
	}

	return bus.Subscribe(Slug, eventmodels.StratWarmupCompletedEventName, func(at time.Time) {
		log.Infof("Strategy warmup completed at %s", at)
	})
}

func (l *Logger) ProcessCandle(ctx context.Context, candle eventmodels.Candle) error {
	log.Debugf("Candle %s close=%.4f volume=%.4f", candle.Start, candle.Close, candle.Volume)
	return nil
}

func (l *Logger) Finalize() error {
	return nil
}

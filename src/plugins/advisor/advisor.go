package advisor

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/quantrose/candleflow/src/eventmodels"
	"github.com/quantrose/candleflow/src/eventpubsub"
	"github.com/quantrose/candleflow/src/pipeline"
)

const Slug = "tradingAdvisor"

// Strategy is the external trading algorithm. It sees every candle after
// warm-up and may return one advice per candle. Concrete strategies live
// outside this module; the pipeline only consumes the advice stream.
type Strategy interface {
	OnCandle(candle eventmodels.Candle) (eventmodels.Advice, bool)
}

// Advisor adapts a Strategy into a pipeline plugin: it suppresses output
// until warm-up completes, stamps missing timestamps and defer-emits advice
// so downstream consumers see it in FIFO order after the candle hooks.
type Advisor struct {
	bus      *eventpubsub.Bus
	strategy Strategy
	warmedUp bool
}

func New(strategy Strategy) *Advisor {
	return &Advisor{strategy: strategy}
}

func Descriptor(strategy Strategy) pipeline.Descriptor {
	return pipeline.Descriptor{
		Slug:  Slug,
		Modes: []pipeline.Mode{pipeline.ModeBacktest, pipeline.ModeRealtime},
		Emits: []eventmodels.EventName{eventmodels.AdviceEventName},
		New: func(deps pipeline.Deps) (pipeline.Plugin, error) {
			if strategy == nil {
				return nil, fmt.Errorf("advisor: no strategy configured")
			}

			return New(strategy), nil
		},
	}
}

func (a *Advisor) Init(bus *eventpubsub.Bus) error {
	a.bus = bus
	return nil
}

func (a *Advisor) WarmupCompleted(at time.Time) {
	log.Infof("Advisor: warmup completed at %s", at)
	a.warmedUp = true
}

func (a *Advisor) ProcessCandle(ctx context.Context, candle eventmodels.Candle) error {
	if !a.warmedUp {
		return nil
	}

	advice, ok := a.strategy.OnCandle(candle)
	if !ok {
		return nil
	}

	if advice.Timestamp.IsZero() {
		advice.Timestamp = candle.Start
	}

	if err := advice.Validate(); err != nil {
		return fmt.Errorf("ProcessCandle: strategy produced malformed advice: %w", err)
	}

	a.bus.DeferEmit(eventmodels.AdviceEventName, advice)

	return nil
}

func (a *Advisor) Finalize() error {
	return nil
}

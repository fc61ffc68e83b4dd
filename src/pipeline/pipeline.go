package pipeline

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/quantrose/candleflow/src/config"
	"github.com/quantrose/candleflow/src/eventmodels"
	"github.com/quantrose/candleflow/src/eventpubsub"
)

type pluginState int

const (
	stateUninitialized pluginState = iota
	stateInitializing
	stateActive
	stateFinalizing
	stateDone
)

type entry struct {
	desc   Descriptor
	plugin Plugin
	state  pluginState
}

// Pipeline drives the enabled plugins candle by candle. Per candle it calls
// ProcessCandle on every active plugin in topological order, then drains the
// deferred event queue to empty before accepting the next candle. Finalize
// runs in reverse order so consumers see all upstream output first.
//
// Pipeline runs on a single goroutine; nothing here is safe for concurrent
// use.
type Pipeline struct {
	mode        Mode
	bus         *eventpubsub.Bus
	entries     []*entry
	warmup      int
	candlesSeen int
	warmedUp    bool
	lastStart   time.Time
	fatal       error
}

func New(mode Mode, bus *eventpubsub.Bus, registry *Registry, cfg config.Config) (*Pipeline, error) {
	if err := mode.Validate(); err != nil {
		return nil, fmt.Errorf("New: %w: %q", err, mode)
	}

	selected, err := registry.Select(cfg.Plugins, mode)
	if err != nil {
		return nil, fmt.Errorf("New: %w", err)
	}

	var inMode []Descriptor
	for _, d := range selected {
		if !d.SupportsMode(mode) {
			log.Warnf("Plugin %s does not run in %s mode, skipping", d.Slug, mode)
			continue
		}

		inMode = append(inMode, d)
	}

	sorted, err := sortDescriptors(inMode)
	if err != nil {
		return nil, fmt.Errorf("New: %w", err)
	}

	p := &Pipeline{
		mode:   mode,
		bus:    bus,
		warmup: cfg.TradingAdvisor.HistorySize,
	}

	deps := Deps{Bus: bus, Config: cfg, Mode: mode}
	for _, d := range sorted {
		plugin, err := d.New(deps)
		if err != nil {
			return nil, fmt.Errorf("New: failed to construct plugin %s: %w", d.Slug, err)
		}

		p.entries = append(p.entries, &entry{desc: d, plugin: plugin, state: stateUninitialized})
	}

	if err := p.init(); err != nil {
		return nil, err
	}

	p.subscribe()

	return p, nil
}

func (p *Pipeline) init() error {
	for _, e := range p.entries {
		e.state = stateInitializing
		if err := e.plugin.Init(p.bus); err != nil {
			return fmt.Errorf("init: plugin %s failed to initialize: %w", e.desc.Slug, err)
		}

		e.state = stateActive
		log.Debugf("Plugin %s active", e.desc.Slug)
	}

	return nil
}

// subscribe registers one dispatcher per event that fans drained events out
// to the implementing plugins in dependency order, capturing the first
// handler error as fatal.
func (p *Pipeline) subscribe() {
	p.bus.Subscribe("pipeline", eventmodels.AdviceEventName, func(advice eventmodels.Advice) {
		for _, e := range p.entries {
			processor, ok := e.plugin.(AdviceProcessor)
			if !ok || e.state != stateActive || p.fatal != nil {
				continue
			}

			if err := processor.ProcessAdvice(advice); err != nil {
				p.fail(e.desc.Slug, err)
			}
		}
	})

	p.bus.Subscribe("pipeline", eventmodels.RoundTripEventName, func(roundtrip eventmodels.RoundTrip) {
		for _, e := range p.entries {
			processor, ok := e.plugin.(RoundTripProcessor)
			if !ok || e.state != stateActive || p.fatal != nil {
				continue
			}

			if err := processor.ProcessRoundTrip(roundtrip); err != nil {
				p.fail(e.desc.Slug, err)
			}
		}
	})

	p.bus.Subscribe("pipeline", eventmodels.PortfolioValueEventName, func(value eventmodels.PortfolioValue) {
		for _, e := range p.entries {
			processor, ok := e.plugin.(PortfolioValueProcessor)
			if !ok || e.state != stateActive || p.fatal != nil {
				continue
			}

			if err := processor.ProcessPortfolioValue(value); err != nil {
				p.fail(e.desc.Slug, err)
			}
		}
	})

	p.bus.Subscribe("pipeline", eventmodels.StratWarmupCompletedEventName, func(at time.Time) {
		for _, e := range p.entries {
			if notifier, ok := e.plugin.(WarmupNotifier); ok {
				notifier.WarmupCompleted(at)
			}
		}
	})
}

func (p *Pipeline) fail(slug string, err error) {
	if p.fatal == nil {
		p.fatal = fmt.Errorf("plugin %s: %w", slug, err)
	}
}

// ProcessCandle runs one unit of work: broadcast the candle, run every
// active plugin's candle hook in topological order, then drain all deferred
// events raised along the way.
func (p *Pipeline) ProcessCandle(ctx context.Context, candle eventmodels.Candle) error {
	if p.fatal != nil {
		return p.fatal
	}

	if !p.lastStart.IsZero() && !candle.Start.After(p.lastStart) {
		return fmt.Errorf("%w: %s after %s", ErrCandleOutOfOrder, candle.Start, p.lastStart)
	}
	p.lastStart = candle.Start

	p.bus.Publish(eventmodels.CandleEventName, candle)

	for _, e := range p.entries {
		if e.state != stateActive {
			continue
		}

		if err := e.plugin.ProcessCandle(ctx, candle); err != nil {
			p.fail(e.desc.Slug, err)
			return p.fatal
		}
	}

	p.candlesSeen++
	if !p.warmedUp && p.candlesSeen >= p.warmup {
		p.warmedUp = true
		p.bus.DeferEmit(eventmodels.StratWarmupCompletedEventName, candle.Start)
	}

	for p.bus.Drain() {
		if p.fatal != nil {
			return p.fatal
		}
	}

	return nil
}

// Finalize drains any outstanding events and runs every plugin's finalize
// hook in reverse dependency order.
func (p *Pipeline) Finalize() error {
	if p.fatal != nil {
		return p.fatal
	}

	p.bus.DrainAll()
	if p.fatal != nil {
		return p.fatal
	}

	for i := len(p.entries) - 1; i >= 0; i-- {
		e := p.entries[i]
		if e.state != stateActive {
			continue
		}

		e.state = stateFinalizing
		if err := e.plugin.Finalize(); err != nil {
			p.fail(e.desc.Slug, err)
			return p.fatal
		}

		e.state = stateDone

		p.bus.DrainAll()
		if p.fatal != nil {
			return p.fatal
		}
	}

	return nil
}

// Run consumes candles until the channel closes or the context is cancelled,
// then finalizes. On cancellation in-flight deferred events are still
// drained before the finalize hooks run.
func (p *Pipeline) Run(ctx context.Context, candles <-chan eventmodels.Candle) error {
	for {
		select {
		case <-ctx.Done():
			log.Infof("Pipeline shutting down: %v", ctx.Err())
			return p.Finalize()
		case candle, ok := <-candles:
			if !ok {
				return p.Finalize()
			}

			if err := p.ProcessCandle(ctx, candle); err != nil {
				return err
			}
		}
	}
}

// Plugin returns the instantiated plugin for a slug, for callers that need
// to read a plugin's final state (e.g. the performance report).
func (p *Pipeline) Plugin(slug string) (Plugin, bool) {
	for _, e := range p.entries {
		if e.desc.Slug == slug {
			return e.plugin, true
		}
	}

	return nil, false
}

// Order returns the resolved execution order of plugin slugs.
func (p *Pipeline) Order() []string {
	slugs := make([]string, 0, len(p.entries))
	for _, e := range p.entries {
		slugs = append(slugs, e.desc.Slug)
	}

	return slugs
}

package run

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/quantrose/candleflow/src/config"
	"github.com/quantrose/candleflow/src/eventmodels"
	"github.com/quantrose/candleflow/src/eventpubsub"
	"github.com/quantrose/candleflow/src/exchange"
	"github.com/quantrose/candleflow/src/marketdata"
	"github.com/quantrose/candleflow/src/pipeline"
	"github.com/quantrose/candleflow/src/plugins/advisor"
	"github.com/quantrose/candleflow/src/plugins/csvexporter"
	"github.com/quantrose/candleflow/src/plugins/papertrader"
	"github.com/quantrose/candleflow/src/plugins/performance"
	"github.com/quantrose/candleflow/src/plugins/tradelogger"
)

// Options carries the collaborators that live outside the core: the trading
// strategy and, for live modes, the trade source.
type Options struct {
	// Strategy drives the advisor plugin. Nil disables it (the pipeline
	// then runs without advice, useful for dry runs).
	Strategy advisor.Strategy
	// Source overrides the trade source. Defaults to a websocket source
	// built from watch.websocketUrl for live modes.
	Source marketdata.TradeSource
	// ReportWriter receives the rendered report. Defaults to stdout.
	ReportWriter io.Writer
}

func (o Options) reportWriter() io.Writer {
	if o.ReportWriter != nil {
		return o.ReportWriter
	}

	return os.Stdout
}

func buildRegistry(cfg config.Config, opts Options) (*pipeline.Registry, error) {
	registry := pipeline.NewRegistry()

	descriptors := []pipeline.Descriptor{
		papertrader.Descriptor(),
		performance.Descriptor(),
		tradelogger.Descriptor(),
	}

	if opts.Strategy != nil {
		descriptors = append([]pipeline.Descriptor{advisor.Descriptor(opts.Strategy)}, descriptors...)
	}

	if cfg.Backtest.ExportFile != "" {
		descriptors = append(descriptors, csvexporter.Descriptor(cfg.Backtest.ExportFile))
	}

	for _, d := range descriptors {
		if err := registry.Register(d); err != nil {
			return nil, err
		}
	}

	return registry, nil
}

func enabledPlugins(cfg config.Config, registry *pipeline.Registry) []string {
	var enabled []string
	seen := map[string]bool{}
	for _, slug := range cfg.Plugins {
		if _, found := registry.Get(slug); !found && slug == advisor.Slug {
			log.Warnf("No strategy configured, disabling %s", slug)
			continue
		}

		enabled = append(enabled, slug)
		seen[slug] = true
	}

	// a supplied strategy enables the advisor even when the plugin list
	// predates it
	if _, found := registry.Get(advisor.Slug); found && !seen[advisor.Slug] {
		enabled = append([]string{advisor.Slug}, enabled...)
	}

	// likewise a configured export file enables the exporter
	if _, found := registry.Get(csvexporter.Slug); found && !seen[csvexporter.Slug] {
		enabled = append(enabled, csvexporter.Slug)
	}

	return enabled
}

func newPipeline(mode pipeline.Mode, cfg config.Config, opts Options) (*pipeline.Pipeline, *eventpubsub.Bus, error) {
	registry, err := buildRegistry(cfg, opts)
	if err != nil {
		return nil, nil, err
	}

	cfg.Plugins = enabledPlugins(cfg, registry)

	bus := eventpubsub.New()
	pl, err := pipeline.New(mode, bus, registry, cfg)
	if err != nil {
		return nil, nil, err
	}

	log.Infof("Pipeline order: %v", pl.Order())

	return pl, bus, nil
}

func report(pl *pipeline.Pipeline, opts Options) *performance.Report {
	plugin, found := pl.Plugin(performance.Slug)
	if !found {
		return nil
	}

	analyzer, ok := plugin.(*performance.Analyzer)
	if !ok || analyzer.Report() == nil {
		return nil
	}

	analyzer.Report().Render(opts.reportWriter())
	return analyzer.Report()
}

// Backtest replays a recorded trade file through the full pipeline and
// returns the performance report.
func Backtest(ctx context.Context, cfg config.Config, opts Options) (*performance.Report, error) {
	pl, _, err := newPipeline(pipeline.ModeBacktest, cfg, opts)
	if err != nil {
		return nil, fmt.Errorf("Backtest: %w", err)
	}

	source := exchange.NewCSVSource(cfg.Backtest.DataFile)
	trades, err := source.GetTrades(ctx, cfg.Backtest.DateRange.From)
	if err != nil {
		return nil, fmt.Errorf("Backtest: %w", err)
	}

	if to := cfg.Backtest.DateRange.To; !to.IsZero() {
		var bounded []eventmodels.Trade
		for _, trade := range trades {
			if trade.Timestamp.Before(to) {
				bounded = append(bounded, trade)
			}
		}
		trades = bounded
	}

	if err := feed(ctx, cfg, pl, trades); err != nil {
		return nil, fmt.Errorf("Backtest: %w", err)
	}

	if err := pl.Finalize(); err != nil {
		return nil, fmt.Errorf("Backtest: %w", err)
	}

	return report(pl, opts), nil
}

// feed pushes trades through batcher and candle creator into the pipeline
// on the calling goroutine, the single logical thread of the run.
func feed(ctx context.Context, cfg config.Config, pl *pipeline.Pipeline, trades []eventmodels.Trade) error {
	size := cfg.TradingAdvisor.CandleDuration()
	batcher := marketdata.NewBatcher(size)
	creator := marketdata.NewCandleCreator(size)

	var pipeErr error
	batcher.OnBatch(func(batch eventmodels.Batch) {
		if pipeErr != nil {
			return
		}

		for _, candle := range creator.Write(batch) {
			if err := pl.ProcessCandle(ctx, candle); err != nil {
				pipeErr = err
				return
			}
		}
	})

	batcher.Write(trades)
	batcher.Flush()

	if pipeErr != nil {
		return pipeErr
	}

	if last := creator.Flush(); last != nil {
		if err := pl.ProcessCandle(ctx, *last); err != nil {
			return err
		}
	}

	return nil
}

// Realtime runs the live paper-trading loop until the context is cancelled,
// then finalizes and returns the report.
func Realtime(ctx context.Context, cfg config.Config, opts Options) (*performance.Report, error) {
	pl, _, err := newPipeline(pipeline.ModeRealtime, cfg, opts)
	if err != nil {
		return nil, fmt.Errorf("Realtime: %w", err)
	}

	source := opts.Source
	if source == nil {
		if cfg.Watch.WebsocketURL == "" {
			return nil, fmt.Errorf("Realtime: %w: watch.websocketUrl not set and no source provided", config.ErrInvalidConfig)
		}

		ws := exchange.NewWebsocketSource(cfg.Watch.WebsocketURL, nil)
		go func() {
			if err := ws.Run(ctx); err != nil && ctx.Err() == nil {
				log.Errorf("Realtime: websocket source stopped: %v", err)
			}
		}()

		source = ws
	}

	size := cfg.TradingAdvisor.CandleDuration()
	batcher := marketdata.NewBatcher(size)
	creator := marketdata.NewCandleCreator(size)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var pipeErr error
	batcher.OnBatch(func(batch eventmodels.Batch) {
		if pipeErr != nil {
			return
		}

		for _, candle := range creator.Write(batch) {
			if err := pl.ProcessCandle(runCtx, candle); err != nil {
				pipeErr = err
				cancel()
				return
			}
		}
	})

	since := time.Now().UTC().Add(-cfg.TradingAdvisor.WarmupDuration())
	fetcher := marketdata.NewFetcher(source, batcher, since, cfg.Fetcher)

	if err := fetcher.Run(runCtx); err != nil && pipeErr == nil && ctx.Err() == nil {
		return nil, fmt.Errorf("Realtime: %w", err)
	}

	if pipeErr != nil {
		return nil, fmt.Errorf("Realtime: %w", pipeErr)
	}

	if err := pl.Finalize(); err != nil {
		return nil, fmt.Errorf("Realtime: %w", err)
	}

	return report(pl, opts), nil
}

// Import fetches historical trades for the configured date range and writes
// them as a CSV file a later backtest can replay.
func Import(ctx context.Context, cfg config.Config, opts Options) error {
	if opts.Source == nil {
		return fmt.Errorf("Import: a trade source is required")
	}

	from := cfg.Importer.DateRange.From
	to := cfg.Importer.DateRange.To
	if from.IsZero() || to.IsZero() || !to.After(from) {
		return fmt.Errorf("Import: %w: importer.daterange must span a positive range", config.ErrInvalidConfig)
	}

	batcher := marketdata.NewBatcher(cfg.TradingAdvisor.CandleDuration())

	var collected []eventmodels.Trade
	batcher.OnBatch(func(batch eventmodels.Batch) {
		collected = append(collected, batch.Trades...)
	})

	fetcher := marketdata.NewFetcher(opts.Source, batcher, from, cfg.Fetcher)

	for fetcher.Watermark().Before(to) {
		before := fetcher.Watermark()
		if err := fetcher.Fetch(ctx); err != nil {
			return fmt.Errorf("Import: %w", err)
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		// the source has no more trades for the range
		if !fetcher.Watermark().After(before) {
			log.Warnf("Import: no progress past %s, stopping early", before)
			break
		}
	}

	batcher.Flush()

	var bounded []eventmodels.Trade
	for _, trade := range collected {
		if !trade.Timestamp.Before(from) && trade.Timestamp.Before(to) {
			bounded = append(bounded, trade)
		}
	}

	if err := exchange.WriteTrades(cfg.Importer.OutputFile, bounded); err != nil {
		return fmt.Errorf("Import: %w", err)
	}

	log.Infof("Import: wrote %d trades to %s", len(bounded), cfg.Importer.OutputFile)
	return nil
}

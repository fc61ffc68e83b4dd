package csvexporter

import (
	"context"
	"fmt"
	"os"

	"github.com/gocarina/gocsv"
	log "github.com/sirupsen/logrus"

	"github.com/quantrose/candleflow/src/eventmodels"
	"github.com/quantrose/candleflow/src/eventpubsub"
	"github.com/quantrose/candleflow/src/pipeline"
	"github.com/quantrose/candleflow/src/plugins/papertrader"
)

const Slug = "csvExporter"

// Exporter collects completed roundtrips and writes them as CSV at
// finalize. Because it depends on the paper trader it finalizes before it,
// so every roundtrip has been observed by then.
type Exporter struct {
	path       string
	roundtrips []eventmodels.RoundTrip
}

func New(path string) *Exporter {
	return &Exporter{path: path}
}

func Descriptor(path string) pipeline.Descriptor {
	return pipeline.Descriptor{
		Slug:      Slug,
		Modes:     []pipeline.Mode{pipeline.ModeBacktest},
		DependsOn: []string{papertrader.Slug},
		New: func(deps pipeline.Deps) (pipeline.Plugin, error) {
			return New(path), nil
		},
	}
}

func (e *Exporter) Init(bus *eventpubsub.Bus) error {
	return nil
}

func (e *Exporter) ProcessCandle(ctx context.Context, candle eventmodels.Candle) error {
	return nil
}

func (e *Exporter) ProcessRoundTrip(roundtrip eventmodels.RoundTrip) error {
	e.roundtrips = append(e.roundtrips, roundtrip)
	return nil
}

func (e *Exporter) Finalize() error {
	if len(e.roundtrips) == 0 {
		log.Debugf("CsvExporter: no roundtrips to export")
		return nil
	}

	file, err := os.Create(e.path)
	if err != nil {
		return fmt.Errorf("Finalize: failed to create %s: %w", e.path, err)
	}
	defer file.Close()

	if err := gocsv.MarshalFile(&e.roundtrips, file); err != nil {
		return fmt.Errorf("Finalize: failed to write roundtrips: %w", err)
	}

	log.Infof("CsvExporter: wrote %d roundtrips to %s", len(e.roundtrips), e.path)
	return nil
}

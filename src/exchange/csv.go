package exchange

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/quantrose/candleflow/src/eventmodels"
)

// CSVSource replays trades recorded by the importer. It satisfies the
// TradeSource contract, which keeps backtests on the same code path as live
// runs.
type CSVSource struct {
	path   string
	trades []eventmodels.Trade
	loaded bool
}

func NewCSVSource(path string) *CSVSource {
	return &CSVSource{path: path}
}

func (s *CSVSource) load() error {
	if s.loaded {
		return nil
	}

	file, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("load: failed to open %s: %w", s.path, err)
	}
	defer file.Close()

	if err := gocsv.UnmarshalFile(file, &s.trades); err != nil {
		return fmt.Errorf("load: failed to parse %s: %w", s.path, err)
	}

	s.loaded = true
	return nil
}

func (s *CSVSource) GetTrades(ctx context.Context, since time.Time) ([]eventmodels.Trade, error) {
	if err := s.load(); err != nil {
		return nil, err
	}

	var out []eventmodels.Trade
	for _, trade := range s.trades {
		if trade.Timestamp.After(since) {
			out = append(out, trade)
		}
	}

	return out, nil
}

// WriteTrades writes trades in the format CSVSource reads back, for the
// importer mode.
func WriteTrades(path string, trades []eventmodels.Trade) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("WriteTrades: failed to create %s: %w", path, err)
	}
	defer file.Close()

	if err := gocsv.MarshalFile(&trades, file); err != nil {
		return fmt.Errorf("WriteTrades: failed to write trades: %w", err)
	}

	return nil
}

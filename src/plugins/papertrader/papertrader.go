package papertrader

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/quantrose/candleflow/src/config"
	"github.com/quantrose/candleflow/src/eventmodels"
	"github.com/quantrose/candleflow/src/eventpubsub"
	"github.com/quantrose/candleflow/src/pipeline"
)

const Slug = "paperTrader"

var one = decimal.NewFromInt(1)

// PaperTrader converts advice events into simulated fills against the most
// recent candle close and owns the only mutable Portfolio of the run. All
// arithmetic is decimal so thousands of simulated fills accumulate no float
// drift. Balances are clamped at zero, never negative.
type PaperTrader struct {
	bus      *eventpubsub.Bus
	fee      decimal.Decimal
	slippage decimal.Decimal

	asset    decimal.Decimal
	currency decimal.Decimal

	exposed    bool
	entryAt    time.Time
	entryPrice decimal.Decimal
	entrySpend decimal.Decimal
	entryFee   decimal.Decimal

	lastCandle   *eventmodels.Candle
	lastAdviceAt time.Time
}

func New(cfg config.Config) (*PaperTrader, error) {
	var fee float64
	switch cfg.PaperTrader.FeeUsing {
	case config.FeeMaker:
		fee = cfg.PaperTrader.FeeMaker
	case config.FeeTaker:
		fee = cfg.PaperTrader.FeeTaker
	default:
		return nil, fmt.Errorf("New: %w: unknown feeUsing %q", config.ErrInvalidConfig, cfg.PaperTrader.FeeUsing)
	}

	return &PaperTrader{
		fee:      decimal.NewFromFloat(fee),
		slippage: decimal.NewFromFloat(cfg.PaperTrader.Slippage),
		asset:    decimal.NewFromFloat(cfg.PaperTrader.SimulationBalance.Asset),
		currency: decimal.NewFromFloat(cfg.PaperTrader.SimulationBalance.Currency),
		exposed:  cfg.PaperTrader.SimulationBalance.Asset > 0,
	}, nil
}

func Descriptor() pipeline.Descriptor {
	return pipeline.Descriptor{
		Slug:  Slug,
		Modes: []pipeline.Mode{pipeline.ModeBacktest, pipeline.ModeRealtime},
		Emits: []eventmodels.EventName{
			eventmodels.TradeCompletedEventName,
			eventmodels.RoundTripEventName,
			eventmodels.PortfolioValueEventName,
		},
		New: func(deps pipeline.Deps) (pipeline.Plugin, error) {
			return New(deps.Config)
		},
	}
}

func (pt *PaperTrader) Init(bus *eventpubsub.Bus) error {
	pt.bus = bus
	return nil
}

// Portfolio returns a snapshot of the current balances.
func (pt *PaperTrader) Portfolio() eventmodels.Portfolio {
	return eventmodels.Portfolio{Asset: pt.asset, Currency: pt.currency}
}

func (pt *PaperTrader) ProcessCandle(ctx context.Context, candle eventmodels.Candle) error {
	pt.lastCandle = &candle

	price := decimal.NewFromFloat(candle.Close)
	portfolio := pt.Portfolio()

	pt.bus.DeferEmit(eventmodels.PortfolioValueEventName, eventmodels.PortfolioValue{
		Timestamp: candle.Start,
		Portfolio: portfolio,
		Price:     price,
		Value:     portfolio.Value(price),
	})

	return nil
}

func (pt *PaperTrader) ProcessAdvice(advice eventmodels.Advice) error {
	if err := advice.Validate(); err != nil {
		return fmt.Errorf("ProcessAdvice: %w", err)
	}

	if !pt.lastAdviceAt.IsZero() && !advice.Timestamp.After(pt.lastAdviceAt) {
		return fmt.Errorf("ProcessAdvice: %w: %s after %s", eventmodels.ErrNonMonotonicAdvice, advice.Timestamp, pt.lastAdviceAt)
	}
	pt.lastAdviceAt = advice.Timestamp

	if advice.Action == eventmodels.AdviceHold {
		return nil
	}

	if pt.lastCandle == nil {
		return fmt.Errorf("ProcessAdvice: received advice before the first candle")
	}

	switch advice.Action {
	case eventmodels.AdviceOpen:
		return pt.open(advice)
	case eventmodels.AdviceClose:
		return pt.close(advice)
	}

	return nil
}

func (pt *PaperTrader) open(advice eventmodels.Advice) error {
	if pt.exposed {
		log.Debugf("PaperTrader: already open, ignoring open advice at %s", advice.Timestamp)
		return nil
	}

	price := decimal.NewFromFloat(pt.lastCandle.Close).Mul(one.Add(pt.slippage))

	spend := pt.currency
	if advice.Weight != nil {
		spend = spend.Mul(decimal.NewFromFloat(*advice.Weight))
	}

	// clamp to the maximum affordable amount
	if spend.GreaterThan(pt.currency) {
		log.Debugf("PaperTrader: clamping buy of %s to available currency %s", spend, pt.currency)
		spend = pt.currency
	}

	if !spend.IsPositive() {
		log.Debugf("PaperTrader: no currency available to open at %s", advice.Timestamp)
		return nil
	}

	amount := spend.Div(price)
	fee := amount.Mul(pt.fee)
	filled := amount.Sub(fee)

	pt.currency = pt.currency.Sub(spend)
	pt.asset = pt.asset.Add(filled)

	pt.exposed = true
	pt.entryAt = advice.Timestamp
	pt.entryPrice = price
	pt.entrySpend = spend
	pt.entryFee = fee.Mul(price)

	pt.bus.DeferEmit(eventmodels.TradeCompletedEventName, eventmodels.TradeCompleted{
		ID:        uuid.New(),
		Side:      eventmodels.TradeSideBuy,
		Timestamp: advice.Timestamp,
		Price:     price,
		Amount:    filled,
		Fee:       fee.Mul(price),
		Portfolio: pt.Portfolio(),
	})

	return nil
}

func (pt *PaperTrader) close(advice eventmodels.Advice) error {
	if !pt.exposed {
		log.Debugf("PaperTrader: already closed, ignoring close advice at %s", advice.Timestamp)
		return nil
	}

	price := decimal.NewFromFloat(pt.lastCandle.Close).Mul(one.Sub(pt.slippage))

	amount := pt.asset
	if !amount.IsPositive() {
		log.Debugf("PaperTrader: no asset available to close at %s", advice.Timestamp)
		pt.exposed = false
		return nil
	}

	proceeds := amount.Mul(price)
	fee := proceeds.Mul(pt.fee)
	netProceeds := proceeds.Sub(fee)

	pt.asset = decimal.Zero
	pt.currency = pt.currency.Add(netProceeds)

	pnl := netProceeds.Sub(pt.entrySpend)

	pt.bus.DeferEmit(eventmodels.TradeCompletedEventName, eventmodels.TradeCompleted{
		ID:        uuid.New(),
		Side:      eventmodels.TradeSideSell,
		Timestamp: advice.Timestamp,
		Price:     price,
		Amount:    amount,
		Fee:       fee,
		Portfolio: pt.Portfolio(),
	})

	// a position carried in via the starting balance has no matching entry
	if !pt.entryAt.IsZero() {
		roundtrip, err := eventmodels.NewRoundTrip(pt.entryAt, advice.Timestamp, pt.entryPrice, price, amount, pnl)
		if err != nil {
			return fmt.Errorf("close: %w", err)
		}

		pt.bus.DeferEmit(eventmodels.RoundTripEventName, roundtrip)
	}

	pt.exposed = false
	pt.entrySpend = decimal.Zero
	pt.entryFee = decimal.Zero

	return nil
}

func (pt *PaperTrader) Finalize() error {
	log.WithFields(log.Fields{
		"asset":    pt.asset,
		"currency": pt.currency,
	}).Info("PaperTrader: final balances")

	return nil
}

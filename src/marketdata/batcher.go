package marketdata

import (
	"sort"
	"time"

	"github.com/kataras/go-events"
	log "github.com/sirupsen/logrus"

	"github.com/quantrose/candleflow/src/eventmodels"
)

// NewBatchEvent is emitted once per completed trade window.
const NewBatchEvent = events.EventName("newBatch")

// Batcher aggregates raw trades into time-bounded batches: trades are
// deduplicated by id, ordered by timestamp and emitted one batch per full
// window. The batcher owns pending trades until the batch is handed off.
type Batcher struct {
	emitter events.EventEmmiter
	window  time.Duration

	seen        map[string]struct{}
	pending     []eventmodels.Trade
	windowStart time.Time
}

func NewBatcher(window time.Duration) *Batcher {
	return &Batcher{
		emitter: events.New(),
		window:  window,
		seen:    make(map[string]struct{}),
	}
}

// OnBatch registers a consumer for completed batches. Consumers run
// synchronously on the writer's goroutine, preserving batch order.
func (b *Batcher) OnBatch(fn func(batch eventmodels.Batch)) {
	b.emitter.On(NewBatchEvent, func(payload ...interface{}) {
		fn(payload[0].(eventmodels.Batch))
	})
}

// Write adds raw trades to the pending window, dropping duplicates and
// malformed records, and emits every window completed by the new data.
func (b *Batcher) Write(trades []eventmodels.Trade) {
	for _, trade := range trades {
		if err := trade.Validate(); err != nil {
			log.Warnf("Batcher: dropping malformed trade: %v", err)
			continue
		}

		if _, found := b.seen[trade.ID]; found {
			continue
		}

		b.seen[trade.ID] = struct{}{}
		b.pending = append(b.pending, trade)
	}

	if len(b.pending) == 0 {
		return
	}

	sort.SliceStable(b.pending, func(i, j int) bool {
		return b.pending[i].Timestamp.Before(b.pending[j].Timestamp)
	})

	if b.windowStart.IsZero() {
		b.windowStart = b.pending[0].Timestamp.Truncate(b.window)
	}

	// emit every window that is fully behind the newest trade
	newest := b.pending[len(b.pending)-1].Timestamp
	for !b.windowStart.Add(b.window).After(newest) {
		b.emitWindow(b.windowStart.Add(b.window))
		b.windowStart = b.windowStart.Add(b.window)
	}
}

// Flush emits whatever is pending as a final partial batch. Called once at
// shutdown or at the end of a backtest input.
func (b *Batcher) Flush() {
	if len(b.pending) == 0 {
		return
	}

	end := b.pending[len(b.pending)-1].Timestamp.Add(time.Nanosecond)
	b.emitWindow(end)
}

func (b *Batcher) emitWindow(end time.Time) {
	cut := sort.Search(len(b.pending), func(i int) bool {
		return !b.pending[i].Timestamp.Before(end)
	})

	if cut == 0 {
		return
	}

	batch := eventmodels.Batch{
		Trades: append([]eventmodels.Trade(nil), b.pending[:cut]...),
		Start:  b.windowStart,
		End:    end,
	}
	b.pending = b.pending[cut:]

	log.Debugf("Batcher: emitting batch of %d trades ending %s", len(batch.Trades), end)
	b.emitter.Emit(NewBatchEvent, batch)
}

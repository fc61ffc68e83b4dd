package eventmodels

import "time"

// Batch is an ordered, deduplicated set of trades bounded by a time window.
// The batcher owns it until handoff; the consumer owns it afterwards.
type Batch struct {
	Trades []Trade
	Start  time.Time
	End    time.Time
}

func (b Batch) First() Trade {
	return b.Trades[0]
}

func (b Batch) Last() Trade {
	return b.Trades[len(b.Trades)-1]
}

package eventpubsub

import (
	"fmt"

	"github.com/asaskevich/EventBus"
	log "github.com/sirupsen/logrus"

	"github.com/quantrose/candleflow/src/eventmodels"
)

// DeferredEvent lives only inside the queue between DeferEmit and Drain.
type DeferredEvent struct {
	Name    eventmodels.EventName
	Payload interface{}
}

// Bus layers a deferred FIFO queue over a synchronous publish/subscribe bus.
// Events raised while another event is being handled are enqueued and
// broadcast in the order they were raised, never in call-stack order.
//
// Bus is not safe for concurrent use: the pipeline runs on a single
// goroutine and is the only caller.
type Bus struct {
	bus   EventBus.Bus
	queue []DeferredEvent
}

func New() *Bus {
	return &Bus{bus: EventBus.New()}
}

func (b *Bus) Subscribe(subscriberName string, topic eventmodels.EventName, callbackFn interface{}) error {
	if err := b.bus.Subscribe(string(topic), callbackFn); err != nil {
		return fmt.Errorf("[%v] failed to subscribe to topic %s: %w", subscriberName, topic, err)
	}

	log.Debugf("[%v] Subscribed to topic %s", subscriberName, topic)
	return nil
}

// Publish broadcasts synchronously, bypassing the queue. Only the pipeline
// uses it, for the top-of-loop candle broadcast.
func (b *Bus) Publish(topic eventmodels.EventName, event interface{}) {
	b.bus.Publish(string(topic), event)
}

// DeferEmit enqueues an event at the tail of the queue. It never invokes
// subscribers and has no side effects beyond the enqueue.
func (b *Bus) DeferEmit(topic eventmodels.EventName, event interface{}) {
	b.queue = append(b.queue, DeferredEvent{Name: topic, Payload: event})
}

// Drain dequeues the head of the queue and broadcasts it synchronously to
// all subscribers, returning whether an event was drained. Call sites loop
// on Drain after every unit of work until it returns false.
func (b *Bus) Drain() bool {
	if len(b.queue) == 0 {
		return false
	}

	ev := b.queue[0]
	b.queue = b.queue[1:]

	log.Debugf("Broadcasting deferred event %s", ev.Name)
	b.bus.Publish(string(ev.Name), ev.Payload)

	return true
}

// DrainAll drains until the queue is empty, returning the number of events
// broadcast. Handlers may enqueue further events while draining; those are
// broadcast too, in raised order.
func (b *Bus) DrainAll() int {
	count := 0
	for b.Drain() {
		count++
	}

	return count
}

func (b *Bus) Pending() int {
	return len(b.queue)
}

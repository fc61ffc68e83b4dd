package exchange

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/quantrose/candleflow/src/eventmodels"
)

// tickDTO is the wire shape of one trade tick on the match channel.
type tickDTO struct {
	TradeID string    `json:"trade_id"`
	Price   string    `json:"price"`
	Size    string    `json:"size"`
	Time    time.Time `json:"time"`
}

// WebsocketSource streams trades from an exchange websocket into an
// internal buffer that GetTrades drains, adapting a push feed to the
// fetcher's poll contract. The read loop reconnects on failure.
type WebsocketSource struct {
	url       string
	subscribe interface{}

	mu     sync.Mutex
	buffer []eventmodels.Trade
}

func NewWebsocketSource(url string, subscribe interface{}) *WebsocketSource {
	return &WebsocketSource{url: url, subscribe: subscribe}
}

func (s *WebsocketSource) connect() (*websocket.Conn, error) {
	log.Infof("WebsocketSource: connecting to %s", s.url)

	c, _, err := websocket.DefaultDialer.Dial(s.url, nil)
	if err != nil {
		return nil, err
	}

	if s.subscribe != nil {
		if err := c.WriteJSON(s.subscribe); err != nil {
			c.Close()
			return nil, err
		}
	}

	return c, nil
}

// Run reads ticks until the context is cancelled, reconnecting on read
// errors.
func (s *WebsocketSource) Run(ctx context.Context) error {
	c, err := s.connect()
	if err != nil {
		return err
	}
	defer func() { c.Close() }()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		c.SetReadDeadline(time.Now().UTC().Add(30 * time.Second))

		var tick tickDTO
		if err := c.ReadJSON(&tick); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			log.Errorf("WebsocketSource: read failed: %v", err)

			c.Close()
			newConn, connErr := s.connect()
			if connErr != nil {
				log.Errorf("WebsocketSource: reconnect failed: %v", connErr)
				time.Sleep(1 * time.Second)
				continue
			}

			c = newConn
			continue
		}

		trade, ok := tick.toTrade()
		if !ok {
			continue
		}

		s.mu.Lock()
		s.buffer = append(s.buffer, trade)
		s.mu.Unlock()
	}
}

func (t tickDTO) toTrade() (eventmodels.Trade, bool) {
	if t.TradeID == "" {
		return eventmodels.Trade{}, false
	}

	price, err := strconv.ParseFloat(t.Price, 64)
	if err != nil {
		log.Warnf("WebsocketSource: bad price %q: %v", t.Price, err)
		return eventmodels.Trade{}, false
	}

	amount, err := strconv.ParseFloat(t.Size, 64)
	if err != nil {
		log.Warnf("WebsocketSource: bad size %q: %v", t.Size, err)
		return eventmodels.Trade{}, false
	}

	return eventmodels.Trade{
		ID:        t.TradeID,
		Timestamp: t.Time,
		Price:     price,
		Amount:    amount,
	}, true
}

// GetTrades drains the buffered ticks newer than since.
func (s *WebsocketSource) GetTrades(ctx context.Context, since time.Time) ([]eventmodels.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []eventmodels.Trade
	for _, trade := range s.buffer {
		if trade.Timestamp.After(since) {
			out = append(out, trade)
		}
	}

	s.buffer = s.buffer[:0]

	return out, nil
}

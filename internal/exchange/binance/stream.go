package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"MarketWatch/internal/domain/models"
	"MarketWatch/pkg/logger"
)

const (
	allTickersURL  = "wss://stream.binance.com:9443/ws/!ticker@arr"
	reconnectDelay = 5 * time.Second
	pingInterval   = 30 * time.Second
)

// wsTicker is one element of the !ticker@arr combined stream payload.
type wsTicker struct {
	EventType          string `json:"e"`
	Symbol             string `json:"s"`
	PriceChange        string `json:"p"`
	PriceChangePercent string `json:"P"`
	PrevClosePrice     string `json:"x"`
	LastPrice          string `json:"c"`
	BestBidPrice       string `json:"b"`
	BestBidQty         string `json:"B"`
	BestAskPrice       string `json:"a"`
	BestAskQty         string `json:"A"`
	HighPrice          string `json:"h"`
	LowPrice           string `json:"l"`
	Volume             string `json:"v"`
	CloseTime          int64  `json:"C"`
}

// tickerStream maintains the market-wide ticker WebSocket with reconnect.
type tickerStream struct {
	log *logger.Logger

	mu   sync.Mutex
	conn *websocket.Conn
	done chan struct{}
}

func newTickerStream(log *logger.Logger) *tickerStream {
	return &tickerStream{
		log:  log.With("binance-stream"),
		done: make(chan struct{}),
	}
}

// run connects and streams events until ctx is cancelled or the stream is
// closed. Connection drops trigger a delayed reconnect; the error channel
// only carries terminal failures.
func (s *tickerStream) run(ctx context.Context) (<-chan models.PriceChange, <-chan error) {
	events := make(chan models.PriceChange, 1024)
	errs := make(chan error, 1)

	go func() {
		defer close(events)
		defer close(errs)

		for {
			if err := s.connect(ctx); err != nil {
				select {
				case <-ctx.Done():
					return
				case <-s.done:
					return
				case <-time.After(reconnectDelay):
					continue
				}
			}

			readErr := s.readLoop(ctx, events)
			s.disconnect()

			select {
			case <-ctx.Done():
				return
			case <-s.done:
				return
			default:
			}
			if readErr != nil {
				s.log.Warn("stream dropped, reconnecting", logger.Error(readErr))
			}
			select {
			case <-ctx.Done():
				return
			case <-s.done:
				return
			case <-time.After(reconnectDelay):
			}
		}
	}()

	return events, errs
}

func (s *tickerStream) connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, allTickersURL, nil)
	if err != nil {
		s.log.Warn("connect failed", logger.Error(err))
		return fmt.Errorf("binance stream connect: %w", err)
	}
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	s.log.Info("connected", logger.String("url", allTickersURL))
	return nil
}

func (s *tickerStream) disconnect() {
	s.mu.Lock()
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
	s.mu.Unlock()
}

func (s *tickerStream) readLoop(ctx context.Context, events chan<- models.PriceChange) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("binance stream: no connection")
	}

	pingCtx, cancelPing := context.WithCancel(ctx)
	defer cancelPing()
	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-pingCtx.Done():
				return
			case <-ticker.C:
				_ = conn.WriteMessage(websocket.PingMessage, nil)
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.done:
			return nil
		default:
		}

		_, payload, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("binance stream read: %w", err)
		}

		var tickers []wsTicker
		if err := json.Unmarshal(payload, &tickers); err != nil {
			// non-ticker frame
			continue
		}

		for _, t := range tickers {
			if t.EventType != "24hrTicker" {
				continue
			}
			select {
			case events <- s.toPriceChange(t):
			default:
				// drop on backpressure
			}
		}
	}
}

func (s *tickerStream) toPriceChange(t wsTicker) models.PriceChange {
	return models.PriceChange{
		Exchange:           Name,
		Symbol:             t.Symbol,
		LastPrice:          s.dec(t.LastPrice),
		HighPrice:          s.dec(t.HighPrice),
		LowPrice:           s.dec(t.LowPrice),
		PrevClosePrice:     s.dec(t.PrevClosePrice),
		Volume:             s.dec(t.Volume),
		PriceChange:        s.dec(t.PriceChange),
		PriceChangePercent: s.dec(t.PriceChangePercent),
		BestBidPrice:       s.dec(t.BestBidPrice),
		BestAskPrice:       s.dec(t.BestAskPrice),
		BestBidQuantity:    s.dec(t.BestBidQty),
		BestAskQuantity:    s.dec(t.BestAskQty),
		CloseTime:          time.UnixMilli(t.CloseTime),
	}
}

func (s *tickerStream) dec(v string) decimal.Decimal {
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func (s *tickerStream) close() error {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	s.disconnect()
	return nil
}

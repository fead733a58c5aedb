// Package binance implements venue.Feed for Binance-style combined futures
// streams, grounded on the teacher's internal/exchange/ws.go connection
// lifecycle (dial, ping, exponential-backoff reconnect, read-deadline
// liveness check) and
// _examples/original_source/arkin-ingestor-binance/src/provider.rs's
// event-kind dispatch (aggTrade vs. bookTicker, "m" maker flag → side).
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/arkin-run/arkin/pkg/venue"
)

const (
	pingInterval     = 50 * time.Second
	readTimeout      = 90 * time.Second
	maxReconnectWait = 30 * time.Second
	writeTimeout     = 10 * time.Second
	tickBufferSize   = 4096
	tradeBufferSize  = 4096
)

// Feed is a combined-stream Binance futures market-data connection.
type Feed struct {
	baseURL string
	logger  *slog.Logger

	connMu sync.Mutex
	conn   *websocket.Conn

	channelsMu sync.RWMutex
	streams    map[string]bool // e.g. "btcusdt@aggTrade"

	tickCh  chan venue.RawTick
	tradeCh chan venue.RawTrade
}

// NewFeed constructs a Feed dialing baseURL (e.g.
// "wss://fstream.binance.com/stream").
func NewFeed(baseURL string, logger *slog.Logger) *Feed {
	if logger == nil {
		logger = slog.Default()
	}
	return &Feed{
		baseURL: baseURL,
		logger:  logger.With("component", "binance_feed"),
		streams: make(map[string]bool),
		tickCh:  make(chan venue.RawTick, tickBufferSize),
		tradeCh: make(chan venue.RawTrade, tradeBufferSize),
	}
}

func (f *Feed) Ticks() <-chan venue.RawTick   { return f.tickCh }
func (f *Feed) Trades() <-chan venue.RawTrade { return f.tradeCh }

// Subscribe maps each (channel, venueSymbol) pair to a Binance combined
// stream name, e.g. ("aggTrade", "BTCUSDT") -> "btcusdt@aggTrade". The new
// streams take effect on the next connect/reconnect.
func (f *Feed) Subscribe(channels, venueSymbols []string) error {
	f.channelsMu.Lock()
	defer f.channelsMu.Unlock()
	for _, sym := range venueSymbols {
		for _, ch := range channels {
			f.streams[fmt.Sprintf("%s@%s", lower(sym), ch)] = true
		}
	}
	return nil
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

func (f *Feed) streamList() []string {
	f.channelsMu.RLock()
	defer f.channelsMu.RUnlock()
	out := make([]string, 0, len(f.streams))
	for s := range f.streams {
		out = append(out, s)
	}
	return out
}

// Run connects and maintains the connection with exponential backoff until
// ctx is cancelled.
func (f *Feed) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		err := f.connectAndRead(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		f.logger.Warn("binance feed disconnected, reconnecting", "error", err, "backoff", backoff)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxReconnectWait {
			backoff = maxReconnectWait
		}
	}
}

func (f *Feed) connectAndRead(ctx context.Context) error {
	streams := f.streamList()
	if len(streams) == 0 {
		return fmt.Errorf("no streams subscribed")
	}
	url := f.baseURL + "?streams=" + joinStreams(streams)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	f.connMu.Lock()
	f.conn = conn
	f.connMu.Unlock()
	defer func() {
		f.connMu.Lock()
		conn.Close()
		f.conn = nil
		f.connMu.Unlock()
	}()

	f.logger.Info("binance feed connected", "streams", len(streams))

	pingCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go f.pingLoop(pingCtx)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		f.dispatch(msg)
	}
}

func joinStreams(streams []string) string {
	out := ""
	for i, s := range streams {
		if i > 0 {
			out += "/"
		}
		out += s
	}
	return out
}

// combinedFrame is the Binance combined-stream envelope: {"stream":"...",
// "data": {...}}.
type combinedFrame struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

// swapEventEnvelope peeks at the event type discriminant common to both
// aggTrade and bookTicker frames.
type swapEventEnvelope struct {
	EventType string `json:"e"`
}

type aggTradeFrame struct {
	EventTime decimal.Decimal `json:"E"`
	Symbol    string          `json:"s"`
	TradeID   uint64          `json:"a"`
	Price     string          `json:"p"`
	Quantity  string          `json:"q"`
	Maker     bool            `json:"m"`
}

type bookTickerFrame struct {
	UpdateID uint64 `json:"u"`
	Symbol   string `json:"s"`
	BidPrice string `json:"b"`
	BidQty   string `json:"B"`
	AskPrice string `json:"a"`
	AskQty   string `json:"A"`
}

func (f *Feed) dispatch(raw []byte) {
	var frame combinedFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		f.logger.Debug("ignoring non-combined-frame message", "error", err)
		return
	}

	var env swapEventEnvelope
	if err := json.Unmarshal(frame.Data, &env); err != nil {
		f.logger.Error("unmarshal event envelope", "error", err)
		return
	}

	switch env.EventType {
	case "aggTrade":
		var t aggTradeFrame
		if err := json.Unmarshal(frame.Data, &t); err != nil {
			f.logger.Error("unmarshal aggTrade", "error", err)
			return
		}
		price, err1 := decimal.NewFromString(t.Price)
		qty, err2 := decimal.NewFromString(t.Quantity)
		if err1 != nil || err2 != nil {
			f.logger.Error("parse aggTrade decimal fields", "symbol", t.Symbol)
			return
		}
		// "m": true means the buyer is the market maker — the trade was
		// initiated by a sell order from the taker.
		side := venue.RawTrade{
			VenueSymbol: t.Symbol,
			EventTime:   millisToTime(t.EventTime),
			TradeID:     t.TradeID,
			Maker:       t.Maker,
			Price:       price,
			Quantity:    qty,
		}
		select {
		case f.tradeCh <- side:
		default:
			f.logger.Warn("trade channel full, dropping event", "symbol", t.Symbol)
		}

	case "bookTicker":
		var b bookTickerFrame
		if err := json.Unmarshal(frame.Data, &b); err != nil {
			f.logger.Error("unmarshal bookTicker", "error", err)
			return
		}
		bid, err1 := decimal.NewFromString(b.BidPrice)
		bidQty, err2 := decimal.NewFromString(b.BidQty)
		ask, err3 := decimal.NewFromString(b.AskPrice)
		askQty, err4 := decimal.NewFromString(b.AskQty)
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
			f.logger.Error("parse bookTicker decimal fields", "symbol", b.Symbol)
			return
		}
		tick := venue.RawTick{
			VenueSymbol: b.Symbol,
			EventTime:   time.Now().UTC(),
			UpdateID:    b.UpdateID,
			BidPrice:    bid,
			BidQty:      bidQty,
			AskPrice:    ask,
			AskQty:      askQty,
		}
		select {
		case f.tickCh <- tick:
		default:
			f.logger.Warn("tick channel full, dropping event", "symbol", b.Symbol)
		}

	default:
		f.logger.Debug("unhandled binance event type", "type", env.EventType)
	}
}

func millisToTime(ms decimal.Decimal) time.Time {
	i := ms.IntPart()
	return time.UnixMilli(i).UTC()
}

func (f *Feed) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.connMu.Lock()
			conn := f.conn
			f.connMu.Unlock()
			if conn == nil {
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				f.logger.Warn("ping failed", "error", err)
				return
			}
		}
	}
}

func (f *Feed) Close() error {
	f.connMu.Lock()
	defer f.connMu.Unlock()
	if f.conn != nil {
		return f.conn.Close()
	}
	return nil
}

var _ venue.Feed = (*Feed)(nil)

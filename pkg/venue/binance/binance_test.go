package binance

import (
	"testing"
)

func TestDispatchAggTrade(t *testing.T) {
	f := NewFeed("wss://fstream.binance.com/stream", nil)
	frame := []byte(`{"stream":"btcusdt@aggTrade","data":{"e":"aggTrade","E":1700000000000,"s":"BTCUSDT","a":12345,"p":"42000.50","q":"0.010","m":true}}`)
	f.dispatch(frame)

	select {
	case trade := <-f.Trades():
		if trade.VenueSymbol != "BTCUSDT" {
			t.Fatalf("expected BTCUSDT, got %s", trade.VenueSymbol)
		}
		if !trade.Maker {
			t.Fatal("expected maker=true")
		}
		if trade.TradeID != 12345 {
			t.Fatalf("expected trade id 12345, got %d", trade.TradeID)
		}
	default:
		t.Fatal("expected a trade event")
	}
}

func TestDispatchBookTicker(t *testing.T) {
	f := NewFeed("wss://fstream.binance.com/stream", nil)
	frame := []byte(`{"stream":"btcusdt@bookTicker","data":{"e":"bookTicker","u":998,"s":"BTCUSDT","b":"42000.00","B":"1.5","a":"42000.50","A":"2.0"}}`)
	f.dispatch(frame)

	select {
	case tick := <-f.Ticks():
		if tick.VenueSymbol != "BTCUSDT" {
			t.Fatalf("expected BTCUSDT, got %s", tick.VenueSymbol)
		}
		if tick.UpdateID != 998 {
			t.Fatalf("expected update id 998, got %d", tick.UpdateID)
		}
	default:
		t.Fatal("expected a tick event")
	}
}

func TestSubscribeBuildsStreamName(t *testing.T) {
	f := NewFeed("wss://fstream.binance.com/stream", nil)
	if err := f.Subscribe([]string{"aggTrade"}, []string{"BTCUSDT"}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	streams := f.streamList()
	if len(streams) != 1 || streams[0] != "btcusdt@aggTrade" {
		t.Fatalf("unexpected streams: %v", streams)
	}
}

package engine

import (
	"sync"
	"testing"
)

func TestSubscriptionRegistry_EdgeTriggered(t *testing.T) {
	feed := newFakeFeed()
	reg := NewSubscriptionRegistry(feed)

	reg.OnTradeCreated("BTCUSDT")
	reg.OnTradeCreated("BTCUSDT")
	if got := reg.ActiveSymbols(); len(got) != 1 || got[0] != "BTCUSDT" {
		t.Fatalf("Expected [BTCUSDT], got %v", got)
	}
	if !feed.isSubscribed("BTCUSDT") {
		t.Error("Expected subscribe on first trade")
	}

	reg.OnTradeClosed("BTCUSDT")
	if !feed.isSubscribed("BTCUSDT") {
		t.Error("Must stay subscribed while one trade remains")
	}

	reg.OnTradeClosed("BTCUSDT")
	if feed.isSubscribed("BTCUSDT") {
		t.Error("Expected unsubscribe when the last trade closed")
	}
	if len(reg.ActiveSymbols()) != 0 {
		t.Error("Expected empty active set")
	}

	// Closing with no active trades is a no-op, never a negative count.
	reg.OnTradeClosed("BTCUSDT")
	reg.OnTradeCreated("BTCUSDT")
	if !feed.isSubscribed("BTCUSDT") {
		t.Error("Expected resubscribe after set went back to one")
	}
}

func TestSubscriptionRegistry_ConcurrentOverlappingSymbols(t *testing.T) {
	feed := newFakeFeed()
	reg := NewSubscriptionRegistry(feed)

	symbols := []string{"BTCUSDT", "ETHUSDT", "SOLUSDT"}
	const perSymbol = 50

	var wg sync.WaitGroup
	for _, symbol := range symbols {
		for i := 0; i < perSymbol; i++ {
			wg.Add(1)
			go func(s string) {
				defer wg.Done()
				reg.OnTradeCreated(s)
				reg.OnTradeClosed(s)
			}(symbol)
		}
	}
	// One trade per symbol stays open throughout.
	for _, symbol := range symbols {
		reg.OnTradeCreated(symbol)
	}
	wg.Wait()

	active := reg.ActiveSymbols()
	if len(active) != len(symbols) {
		t.Fatalf("Expected %d active symbols, got %v", len(symbols), active)
	}
	for _, symbol := range symbols {
		if !feed.isSubscribed(symbol) {
			t.Errorf("Expected %s to be subscribed", symbol)
		}
	}

	for _, symbol := range symbols {
		reg.OnTradeClosed(symbol)
	}
	if len(reg.ActiveSymbols()) != 0 {
		t.Error("Expected empty active set after all trades closed")
	}
	for _, symbol := range symbols {
		if feed.isSubscribed(symbol) {
			t.Errorf("Expected %s to be unsubscribed", symbol)
		}
	}
}

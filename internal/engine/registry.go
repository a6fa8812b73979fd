package engine

import (
	"log/slog"
	"sort"
	"sync"

	"trade_quest/internal/domain"
)

// SubscriptionRegistry keeps the feed's subscriptions exactly equal to the
// set of symbols with at least one active trade. It refcounts per symbol so
// concurrent creation and closure of trades on overlapping symbols never
// over- or under-subscribes.
type SubscriptionRegistry struct {
	mu     sync.Mutex
	counts map[string]int
	feed   domain.FeedSubscriber
}

// NewSubscriptionRegistry creates a registry driving the given feed.
func NewSubscriptionRegistry(feed domain.FeedSubscriber) *SubscriptionRegistry {
	return &SubscriptionRegistry{
		counts: make(map[string]int),
		feed:   feed,
	}
}

// OnTradeCreated records an active trade for the symbol and subscribes on
// the zero-to-one edge.
func (r *SubscriptionRegistry) OnTradeCreated(symbol string) {
	r.mu.Lock()
	r.counts[symbol]++
	first := r.counts[symbol] == 1
	r.mu.Unlock()

	if first {
		if err := r.feed.Subscribe(symbol); err != nil {
			slog.Warn("feed subscribe failed", slog.String("symbol", symbol), slog.Any("error", err))
		}
	}
}

// OnTradeClosed drops one active trade for the symbol and unsubscribes on
// the one-to-zero edge.
func (r *SubscriptionRegistry) OnTradeClosed(symbol string) {
	r.mu.Lock()
	if r.counts[symbol] == 0 {
		r.mu.Unlock()
		return
	}
	r.counts[symbol]--
	last := r.counts[symbol] == 0
	if last {
		delete(r.counts, symbol)
	}
	r.mu.Unlock()

	if last {
		if err := r.feed.Unsubscribe(symbol); err != nil {
			slog.Warn("feed unsubscribe failed", slog.String("symbol", symbol), slog.Any("error", err))
		}
	}
}

// ActiveSymbols returns the sorted set of symbols with active trades.
func (r *SubscriptionRegistry) ActiveSymbols() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	symbols := make([]string, 0, len(r.counts))
	for s := range r.counts {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	return symbols
}

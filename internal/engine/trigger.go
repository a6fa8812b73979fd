package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"trade_quest/internal/domain"
	"trade_quest/internal/event"
	"trade_quest/internal/infra"

	"github.com/shopspring/decimal"
)

const (
	persistQueueSize   = 1024
	maxPersistAttempts = 3
)

// EventSink receives trigger events, one per transition.
type EventSink interface {
	Publish(ev domain.TriggerEvent)
}

// TriggerEngine holds the working set of non-terminal trades, partitioned
// by symbol, and evaluates it against each incoming tick. It is the only
// component that mutates trade status. Persistence runs on a separate
// goroutine so a slow or failing store never stalls tick consumption.
type TriggerEngine struct {
	store    domain.TradeStore
	sink     EventSink
	registry *SubscriptionRegistry
	inbox    <-chan *event.Tick

	mu       sync.Mutex
	bySymbol map[string][]*domain.Trade
	byID     map[string]*domain.Trade

	persistQ       chan domain.Trade
	persistBackoff time.Duration
	wg             sync.WaitGroup
}

// NewTriggerEngine creates an engine consuming ticks from inbox.
func NewTriggerEngine(store domain.TradeStore, sink EventSink, registry *SubscriptionRegistry, inbox <-chan *event.Tick) *TriggerEngine {
	return &TriggerEngine{
		store:          store,
		sink:           sink,
		registry:       registry,
		inbox:          inbox,
		bySymbol:       make(map[string][]*domain.Trade),
		byID:           make(map[string]*domain.Trade),
		persistQ:       make(chan domain.Trade, persistQueueSize),
		persistBackoff: time.Second,
	}
}

// Recover loads all PENDING and OPEN trades from the store into the working
// set and seeds the subscription registry. Must complete before Run so no
// tick is evaluated against a partial set.
func (e *TriggerEngine) Recover() error {
	var loaded []*domain.Trade
	for _, status := range []string{domain.TradeStatusPending, domain.TradeStatusOpen} {
		trades, err := e.store.ListTradesByStatus(status)
		if err != nil {
			return err
		}
		loaded = append(loaded, trades...)
	}

	e.mu.Lock()
	for _, t := range loaded {
		e.track(t)
	}
	e.mu.Unlock()

	for _, t := range loaded {
		e.registry.OnTradeCreated(t.Symbol)
	}

	slog.Info("trigger engine recovered working set", slog.Int("trades", len(loaded)))
	return nil
}

// Run starts the persister and consumes the tick inbox until ctx is done.
// Must be run in a single goroutine.
func (e *TriggerEngine) Run(ctx context.Context) {
	e.wg.Add(1)
	go e.persister(ctx)

	slog.Info("trigger engine started")
	for {
		select {
		case <-ctx.Done():
			slog.Info("trigger engine stopping")
			e.wg.Wait()
			return
		case tk := <-e.inbox:
			e.HandleTick(tk)
			event.ReleaseTick(tk)
		}
	}
}

// SubmitTrade validates and persists a new trade, then adds it to the
// working set. This is the entry point a trade-submission API calls.
func (e *TriggerEngine) SubmitTrade(t *domain.Trade) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if t.Status != domain.TradeStatusPending {
		return domain.ErrInvalidTrade
	}
	if err := e.store.CreateTrade(t); err != nil {
		return err
	}

	e.mu.Lock()
	e.track(t)
	e.mu.Unlock()

	e.registry.OnTradeCreated(t.Symbol)
	return nil
}

// CloseTrade closes a trade manually, regardless of price. The transition
// is persisted and published like a price-triggered one.
func (e *TriggerEngine) CloseTrade(id string) error {
	now := time.Now()

	e.mu.Lock()
	t, ok := e.byID[id]
	if !ok {
		e.mu.Unlock()
		return domain.ErrTradeNotFound
	}
	from := t.Status
	t.Status = domain.TradeStatusClosed
	t.ClosedAt = &now
	e.untrack(t)
	snapshot := *t
	e.mu.Unlock()

	e.enqueuePersist(snapshot)
	e.publish(domain.TriggerEvent{
		OrderID:    snapshot.ID,
		OwnerID:    snapshot.OwnerID,
		FromStatus: from,
		ToStatus:   domain.TradeStatusClosed,
		Price:      decimal.Zero,
		OccurredAt: now,
	})
	e.registry.OnTradeClosed(snapshot.Symbol)
	return nil
}

// HandleTick runs one evaluation pass for every working-set trade on the
// tick's symbol. Trades on other symbols are not touched.
func (e *TriggerEngine) HandleTick(tk *event.Tick) {
	start := time.Now()
	now := time.Now()

	var events []domain.TriggerEvent
	var persist []domain.Trade
	var closed []string

	e.mu.Lock()
	for _, t := range e.bySymbol[tk.Symbol] {
		if t.Status == domain.TradeStatusPending && t.EntryMet(tk.Price) {
			t.Status = domain.TradeStatusOpen
			executed := now
			t.ExecutedAt = &executed
			persist = append(persist, *t)
			events = append(events, domain.TriggerEvent{
				OrderID:    t.ID,
				OwnerID:    t.OwnerID,
				FromStatus: domain.TradeStatusPending,
				ToStatus:   domain.TradeStatusOpen,
				Price:      tk.Price,
				OccurredAt: now,
			})
		}

		// Exit is evaluated independently, so a single tick can both open a
		// trade and immediately close it. Stop loss wins when one tick
		// satisfies both exits.
		if t.Status == domain.TradeStatusOpen && (t.StopLossHit(tk.Price) || t.TakeProfitHit(tk.Price)) {
			t.Status = domain.TradeStatusClosed
			closedAt := now
			t.ClosedAt = &closedAt
			persist = append(persist, *t)
			events = append(events, domain.TriggerEvent{
				OrderID:    t.ID,
				OwnerID:    t.OwnerID,
				FromStatus: domain.TradeStatusOpen,
				ToStatus:   domain.TradeStatusClosed,
				Price:      tk.Price,
				OccurredAt: now,
			})
			closed = append(closed, t.Symbol)
		}
	}
	e.sweepClosed(tk.Symbol)
	e.mu.Unlock()

	for i := range persist {
		e.enqueuePersist(persist[i])
	}
	for i := range events {
		e.publish(events[i])
	}
	for _, symbol := range closed {
		e.registry.OnTradeClosed(symbol)
	}

	infra.GlobalMetrics.RecordTick(time.Since(start).Nanoseconds())
}

// TradeSnapshot returns a copy of a working-set trade.
func (e *TriggerEngine) TradeSnapshot(id string) (domain.Trade, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, ok := e.byID[id]
	if !ok {
		return domain.Trade{}, false
	}
	return *t, true
}

// ActiveCount returns the number of trades in the working set.
func (e *TriggerEngine) ActiveCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.byID)
}

// track adds a trade to both indexes. Caller holds e.mu.
func (e *TriggerEngine) track(t *domain.Trade) {
	if _, ok := e.byID[t.ID]; ok {
		return
	}
	e.byID[t.ID] = t
	e.bySymbol[t.Symbol] = append(e.bySymbol[t.Symbol], t)
}

// untrack removes a trade from both indexes. Caller holds e.mu.
func (e *TriggerEngine) untrack(t *domain.Trade) {
	delete(e.byID, t.ID)
	trades := e.bySymbol[t.Symbol]
	for i, other := range trades {
		if other.ID == t.ID {
			e.bySymbol[t.Symbol] = append(trades[:i], trades[i+1:]...)
			break
		}
	}
	if len(e.bySymbol[t.Symbol]) == 0 {
		delete(e.bySymbol, t.Symbol)
	}
}

// sweepClosed drops terminal trades from a symbol's partition. Caller holds e.mu.
func (e *TriggerEngine) sweepClosed(symbol string) {
	trades := e.bySymbol[symbol]
	active := trades[:0]
	for _, t := range trades {
		if t.IsActive() {
			active = append(active, t)
		} else {
			delete(e.byID, t.ID)
		}
	}
	if len(active) == 0 {
		delete(e.bySymbol, symbol)
	} else {
		e.bySymbol[symbol] = active
	}
}

func (e *TriggerEngine) publish(ev domain.TriggerEvent) {
	infra.GlobalMetrics.RecordTrigger()
	if e.sink != nil {
		e.sink.Publish(ev)
	}
}

// enqueuePersist hands a transition to the persister without blocking. The
// in-memory status stays authoritative even if the write is dropped; that
// is surfaced as a durability warning, never a silent revert.
func (e *TriggerEngine) enqueuePersist(t domain.Trade) {
	select {
	case e.persistQ <- t:
	default:
		infra.GlobalMetrics.RecordPersistFailure()
		slog.Error("persist queue full, transition not durable",
			slog.String("trade", t.ID), slog.String("status", t.Status))
	}
}

func (e *TriggerEngine) persister(ctx context.Context) {
	defer e.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-e.persistQ:
			e.persistWithRetry(ctx, t)
		}
	}
}

// persistWithRetry writes a transition with bounded backoff. On exhaustion
// the in-memory status remains authoritative for the process lifetime; the
// hub may already have published the event, so status is never reverted.
func (e *TriggerEngine) persistWithRetry(ctx context.Context, t domain.Trade) {
	for attempt := 0; attempt < maxPersistAttempts; attempt++ {
		err := e.store.UpdateTrade(&t)
		if err == nil {
			return
		}
		slog.Warn("trade persist failed",
			slog.String("trade", t.ID), slog.Int("attempt", attempt), slog.Any("error", err))

		if attempt == maxPersistAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(infra.CalculateBackoff(e.persistBackoff, attempt)):
		}
	}

	infra.GlobalMetrics.RecordPersistFailure()
	slog.Error("durability warning: transition kept in memory only",
		slog.String("trade", t.ID), slog.String("status", t.Status))
}

package domain

import "context"

// TradeStore defines persistence for trade records. All methods are
// fallible I/O; the engine treats the persisted status as the source of
// truth at startup only.
type TradeStore interface {
	CreateTrade(t *Trade) error
	GetTrade(id string) (*Trade, error)
	ListTradesByStatus(status string) ([]*Trade, error)
	UpdateTrade(t *Trade) error
}

// FeedSubscriber is the control surface the subscription registry drives.
// Both calls are idempotent and must not block when the transport is down;
// implementations queue the request and replay it on reconnect.
type FeedSubscriber interface {
	Subscribe(symbol string) error
	Unsubscribe(symbol string) error
}

// ExchangeWorker defines the interface for exchange WebSocket connectors
type ExchangeWorker interface {
	Connect(ctx context.Context) error
	Disconnect()
	IsConnected() bool
}

// Observer receives trigger events for a single owner. Implementations are
// ephemeral, tied to one client connection.
type Observer interface {
	Send(ev TriggerEvent) error
}

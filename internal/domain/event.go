package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TriggerEvent is emitted once per trade state transition and handed to the
// notification hub. Delivery is at most once; clients reconcile via the
// query API if they miss one.
type TriggerEvent struct {
	OrderID    string          `json:"order_id"`
	OwnerID    string          `json:"owner_id"`
	FromStatus string          `json:"from_status"`
	ToStatus   string          `json:"to_status"`
	Price      decimal.Decimal `json:"price"`
	OccurredAt time.Time       `json:"occurred_at"`
}

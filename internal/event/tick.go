package event

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tick is one normalized price observation from the feed. Ticks are
// ephemeral: the feed worker acquires one from the pool, the trigger engine
// releases it after the evaluation pass. Not persisted.
type Tick struct {
	Symbol     string
	Price      decimal.Decimal
	ObservedAt time.Time
}

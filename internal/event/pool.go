package event

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Tick pool reduces GC pressure in the hotpath.
//
// Usage:
//
//	tk := AcquireTick()
//	tk.Symbol = "BTCUSDT"
//	// ... hand to the engine ...
//	ReleaseTick(tk)  // Return to pool after processing
var tickPool = sync.Pool{
	New: func() interface{} {
		return &Tick{}
	},
}

// AcquireTick gets a Tick from the pool.
// The returned tick has zero values and must be initialized.
func AcquireTick() *Tick {
	return tickPool.Get().(*Tick)
}

// ReleaseTick returns a Tick to the pool.
// The tick is reset to zero values before being pooled.
func ReleaseTick(tk *Tick) {
	if tk == nil {
		return
	}
	tk.Symbol = ""
	tk.Price = decimal.Decimal{}
	tk.ObservedAt = time.Time{}

	tickPool.Put(tk)
}

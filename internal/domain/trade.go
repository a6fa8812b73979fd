package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	SideLong  = "LONG"
	SideShort = "SHORT"

	TradeStatusPending = "PENDING"
	TradeStatusOpen    = "OPEN"
	TradeStatusClosed  = "CLOSED"
)

// Trade is a conditional order submitted by a user. The engine owns all
// status mutations; the record is never deleted, closing is a status change.
type Trade struct {
	ID         string           `gorm:"primaryKey" json:"id"`
	OwnerID    string           `gorm:"index" json:"owner_id"`
	Symbol     string           `gorm:"index" json:"symbol"`
	Side       string           `json:"side"` // "LONG", "SHORT"
	EntryPrice decimal.Decimal  `gorm:"type:numeric" json:"entry_price"`
	StopLoss   *decimal.Decimal `gorm:"type:numeric" json:"stop_loss,omitempty"`
	TakeProfit *decimal.Decimal `gorm:"type:numeric" json:"take_profit,omitempty"`
	Margin     decimal.Decimal  `gorm:"type:numeric" json:"margin"`
	Leverage   decimal.Decimal  `gorm:"type:numeric" json:"leverage"`
	Quantity   decimal.Decimal  `gorm:"type:numeric" json:"quantity"`
	Status     string           `gorm:"index" json:"status"`
	CreatedAt  time.Time        `json:"created_at"`
	ExecutedAt *time.Time       `json:"executed_at,omitempty"`
	ClosedAt   *time.Time       `json:"closed_at,omitempty"`
}

// NewTrade builds a PENDING trade with a fresh ID and Quantity = Margin * Leverage.
func NewTrade(ownerID, symbol, side string, entryPrice decimal.Decimal, stopLoss, takeProfit *decimal.Decimal, margin, leverage decimal.Decimal) (*Trade, error) {
	t := &Trade{
		ID:         uuid.NewString(),
		OwnerID:    ownerID,
		Symbol:     symbol,
		Side:       side,
		EntryPrice: entryPrice,
		StopLoss:   stopLoss,
		TakeProfit: takeProfit,
		Margin:     margin,
		Leverage:   leverage,
		Quantity:   margin.Mul(leverage),
		Status:     TradeStatusPending,
		CreatedAt:  time.Now(),
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate rejects malformed trades before they reach the engine's working set.
func (t *Trade) Validate() error {
	if t.OwnerID == "" {
		return fmt.Errorf("%w: missing owner id", ErrInvalidTrade)
	}
	if t.Symbol == "" {
		return fmt.Errorf("%w: missing symbol", ErrInvalidTrade)
	}
	if t.Side != SideLong && t.Side != SideShort {
		return fmt.Errorf("%w: unknown side %q", ErrInvalidTrade, t.Side)
	}
	if !t.EntryPrice.IsPositive() {
		return fmt.Errorf("%w: entry price must be positive", ErrInvalidTrade)
	}
	if t.Margin.IsNegative() || t.Leverage.IsNegative() {
		return fmt.Errorf("%w: margin and leverage must not be negative", ErrInvalidTrade)
	}

	// Stop loss and take profit must bracket the entry in the side's direction.
	switch t.Side {
	case SideLong:
		if t.StopLoss != nil && t.StopLoss.GreaterThanOrEqual(t.EntryPrice) {
			return fmt.Errorf("%w: long stop loss must be below entry", ErrInvalidTrade)
		}
		if t.TakeProfit != nil && t.TakeProfit.LessThanOrEqual(t.EntryPrice) {
			return fmt.Errorf("%w: long take profit must be above entry", ErrInvalidTrade)
		}
	case SideShort:
		if t.StopLoss != nil && t.StopLoss.LessThanOrEqual(t.EntryPrice) {
			return fmt.Errorf("%w: short stop loss must be above entry", ErrInvalidTrade)
		}
		if t.TakeProfit != nil && t.TakeProfit.GreaterThanOrEqual(t.EntryPrice) {
			return fmt.Errorf("%w: short take profit must be below entry", ErrInvalidTrade)
		}
	}
	return nil
}

// IsActive reports whether the trade still belongs in the working set.
func (t *Trade) IsActive() bool {
	return t.Status == TradeStatusPending || t.Status == TradeStatusOpen
}

// EntryMet checks the entry condition against a tick price.
// A long enters once the price has risen to the entry level, a short once
// it has fallen to it.
func (t *Trade) EntryMet(price decimal.Decimal) bool {
	if t.Side == SideShort {
		return price.LessThanOrEqual(t.EntryPrice)
	}
	return price.GreaterThanOrEqual(t.EntryPrice)
}

// StopLossHit checks the loss-exit condition. False when no stop loss is set.
func (t *Trade) StopLossHit(price decimal.Decimal) bool {
	if t.StopLoss == nil {
		return false
	}
	if t.Side == SideShort {
		return price.GreaterThanOrEqual(*t.StopLoss)
	}
	return price.LessThanOrEqual(*t.StopLoss)
}

// TakeProfitHit checks the profit-exit condition. False when no take profit is set.
func (t *Trade) TakeProfitHit(price decimal.Decimal) bool {
	if t.TakeProfit == nil {
		return false
	}
	if t.Side == SideShort {
		return price.LessThanOrEqual(*t.TakeProfit)
	}
	return price.GreaterThanOrEqual(*t.TakeProfit)
}

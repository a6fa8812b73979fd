package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradingPair represents metadata for a tradable instrument
type TradingPair struct {
	Symbol       string          `gorm:"primaryKey" json:"symbol"`
	LastPrice    decimal.Decimal `gorm:"type:numeric" json:"last_price"`
	IconPath     string          `json:"icon_path"`
	IsActive     bool            `gorm:"index" json:"is_active"`
	LastSyncedAt time.Time       `json:"last_synced_at"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

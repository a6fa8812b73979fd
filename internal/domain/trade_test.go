package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func dec(v string) decimal.Decimal {
	d, err := decimal.NewFromString(v)
	if err != nil {
		panic(err)
	}
	return d
}

func decPtr(v string) *decimal.Decimal {
	d := dec(v)
	return &d
}

func TestNewTrade(t *testing.T) {
	t.Run("Quantity From Margin And Leverage", func(t *testing.T) {
		tr, err := NewTrade("user-1", "BTCUSDT", SideLong, dec("100"), decPtr("80"), decPtr("120"), dec("50"), dec("10"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !tr.Quantity.Equal(dec("500")) {
			t.Errorf("Expected quantity 500, got %s", tr.Quantity)
		}
		if tr.Status != TradeStatusPending {
			t.Errorf("Expected PENDING, got %s", tr.Status)
		}
		if tr.ID == "" {
			t.Error("Expected a generated id")
		}
		if tr.ExecutedAt != nil || tr.ClosedAt != nil {
			t.Error("Transition timestamps must be absent at creation")
		}
	})
}

func TestTrade_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Trade)
		wantErr bool
	}{
		{"valid long", func(tr *Trade) {}, false},
		{"missing owner", func(tr *Trade) { tr.OwnerID = "" }, true},
		{"missing symbol", func(tr *Trade) { tr.Symbol = "" }, true},
		{"unknown side", func(tr *Trade) { tr.Side = "SIDEWAYS" }, true},
		{"zero entry", func(tr *Trade) { tr.EntryPrice = decimal.Zero }, true},
		{"long stop above entry", func(tr *Trade) { tr.StopLoss = decPtr("110") }, true},
		{"long take profit below entry", func(tr *Trade) { tr.TakeProfit = decPtr("90") }, true},
		{"no exits is valid", func(tr *Trade) { tr.StopLoss = nil; tr.TakeProfit = nil }, false},
		{"short with inverted brackets", func(tr *Trade) {
			tr.Side = SideShort
			tr.StopLoss = decPtr("120")
			tr.TakeProfit = decPtr("80")
		}, false},
		{"short stop below entry", func(tr *Trade) {
			tr.Side = SideShort
			tr.StopLoss = decPtr("90")
			tr.TakeProfit = decPtr("80")
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &Trade{
				ID:         "t-1",
				OwnerID:    "user-1",
				Symbol:     "BTCUSDT",
				Side:       SideLong,
				EntryPrice: dec("100"),
				StopLoss:   decPtr("80"),
				TakeProfit: decPtr("120"),
				Status:     TradeStatusPending,
			}
			tt.mutate(tr)
			err := tr.Validate()
			if tt.wantErr && err == nil {
				t.Error("Expected validation error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Unexpected validation error: %v", err)
			}
			if tt.wantErr && !errors.Is(err, ErrInvalidTrade) {
				t.Errorf("Expected ErrInvalidTrade, got %v", err)
			}
		})
	}
}

func TestTrade_Conditions(t *testing.T) {
	long := &Trade{
		Side:       SideLong,
		EntryPrice: dec("100"),
		StopLoss:   decPtr("80"),
		TakeProfit: decPtr("120"),
	}
	short := &Trade{
		Side:       SideShort,
		EntryPrice: dec("100"),
		StopLoss:   decPtr("120"),
		TakeProfit: decPtr("80"),
	}

	t.Run("Long Entry", func(t *testing.T) {
		if long.EntryMet(dec("99.99")) {
			t.Error("Long must not enter below entry price")
		}
		if !long.EntryMet(dec("100")) {
			t.Error("Long must enter at exactly the entry price")
		}
		if !long.EntryMet(dec("105")) {
			t.Error("Long must enter above entry price")
		}
	})

	t.Run("Short Entry", func(t *testing.T) {
		if short.EntryMet(dec("100.01")) {
			t.Error("Short must not enter above entry price")
		}
		if !short.EntryMet(dec("100")) {
			t.Error("Short must enter at exactly the entry price")
		}
	})

	t.Run("Long Exits", func(t *testing.T) {
		if !long.TakeProfitHit(dec("120")) || long.TakeProfitHit(dec("119")) {
			t.Error("Long take profit fires at or above the level")
		}
		if !long.StopLossHit(dec("80")) || long.StopLossHit(dec("81")) {
			t.Error("Long stop loss fires at or below the level")
		}
	})

	t.Run("Short Exits", func(t *testing.T) {
		if !short.TakeProfitHit(dec("80")) || short.TakeProfitHit(dec("81")) {
			t.Error("Short take profit fires at or below the level")
		}
		if !short.StopLossHit(dec("120")) || short.StopLossHit(dec("119")) {
			t.Error("Short stop loss fires at or above the level")
		}
	})

	t.Run("Missing Exits Never Fire", func(t *testing.T) {
		bare := &Trade{Side: SideLong, EntryPrice: dec("100")}
		if bare.StopLossHit(dec("0.0001")) || bare.TakeProfitHit(dec("100000")) {
			t.Error("Absent exit levels must never fire")
		}
	})
}

func TestTrade_IsActive(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{TradeStatusPending, true},
		{TradeStatusOpen, true},
		{TradeStatusClosed, false},
	}
	for _, tt := range tests {
		tr := &Trade{Status: tt.status}
		if tr.IsActive() != tt.want {
			t.Errorf("IsActive(%s) = %v, want %v", tt.status, tr.IsActive(), tt.want)
		}
	}
}

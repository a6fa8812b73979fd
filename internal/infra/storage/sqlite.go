package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"trade_quest/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Storage persists trades and the instrument catalog in SQLite.
type Storage struct {
	db *gorm.DB
}

// NewStorage opens (or creates) the database. An empty path falls back to
// the OS user config directory.
func NewStorage(path string) (*Storage, error) {
	dbPath := path
	if dbPath == "" {
		var err error
		dbPath, err = getDefaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve DB path: %w", err)
		}
	}

	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create DB directory: %w", err)
	}

	// Pure-Go SQLite, no cgo
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&domain.Trade{}, &domain.TradingPair{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Storage{db: db}, nil
}

// getDefaultDBPath resolves the database file path based on OS
func getDefaultDBPath() (string, error) {
	var configDir string
	var err error

	if runtime.GOOS == "windows" {
		configDir = os.Getenv("LOCALAPPDATA")
		if configDir == "" {
			configDir, err = os.UserConfigDir()
		}
	} else {
		configDir, err = os.UserConfigDir()
	}

	if err != nil {
		return "", err
	}

	return filepath.Join(configDir, "TradeQuest", "data", "tradequest.db"), nil
}

// ======================================================================================
// Trade operations (domain.TradeStore)
// ======================================================================================

// CreateTrade inserts a new trade record
func (s *Storage) CreateTrade(t *domain.Trade) error {
	return s.db.Create(t).Error
}

// GetTrade retrieves a trade by id
func (s *Storage) GetTrade(id string) (*domain.Trade, error) {
	var t domain.Trade
	err := s.db.First(&t, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrTradeNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListTradesByStatus retrieves all trades in a given status
func (s *Storage) ListTradesByStatus(status string) ([]*domain.Trade, error) {
	var trades []*domain.Trade
	err := s.db.Where("status = ?", status).Find(&trades).Error
	return trades, err
}

// ListTradesByOwner retrieves all trades submitted by a user
func (s *Storage) ListTradesByOwner(ownerID string) ([]*domain.Trade, error) {
	var trades []*domain.Trade
	err := s.db.Where("owner_id = ?", ownerID).Find(&trades).Error
	return trades, err
}

// UpdateTrade persists a trade state transition
func (s *Storage) UpdateTrade(t *domain.Trade) error {
	return s.db.Save(t).Error
}

// ======================================================================================
// Trading pair operations
// ======================================================================================

// UpsertPair creates or updates instrument metadata
func (s *Storage) UpsertPair(pair *domain.TradingPair) error {
	return s.db.Save(pair).Error
}

// GetPair retrieves instrument metadata by symbol
func (s *Storage) GetPair(symbol string) (*domain.TradingPair, error) {
	var pair domain.TradingPair
	err := s.db.First(&pair, "symbol = ?", symbol).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil // Not found is not an error
	}
	return &pair, err
}

// ListPairs retrieves all known instruments
func (s *Storage) ListPairs() ([]domain.TradingPair, error) {
	var pairs []domain.TradingPair
	err := s.db.Find(&pairs).Error
	return pairs, err
}

package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pageza/pantrychef/backend/internal/models"
)

// Consumption subtracts Quantity from one stock item, provided the item is
// still at ExpectedVersion.
type Consumption struct {
	ItemID          uuid.UUID
	ExpectedVersion int64
	Quantity        float64
}

// StockStore persists per-user stock.
type StockStore struct {
	db *gorm.DB
}

// NewStockStore creates a stock store on db.
func NewStockStore(db *gorm.DB) *StockStore {
	return &StockStore{db: db}
}

// ListByUser returns the user's stock ordered by name.
func (s *StockStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.StockItem, error) {
	var items []models.StockItem
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("name ASC").
		Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to list stock: %w", err)
	}
	return items, nil
}

// Upsert inserts item or, when the user already holds an item with the same
// name, replaces its quantity and unit and bumps its version.
func (s *StockStore) Upsert(ctx context.Context, item *models.StockItem) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "name"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"quantity":     item.Quantity,
			"unit":         item.Unit,
			"display_name": item.DisplayName,
			"version":      gorm.Expr("stock_items.version + 1"),
			"updated_at":   gorm.Expr("CURRENT_TIMESTAMP"),
		}),
	}).Create(item).Error
	if err != nil {
		return fmt.Errorf("failed to upsert stock item %q: %w", item.Name, err)
	}

	// The conflict branch keeps the stored id; reload so item reflects the row.
	var stored models.StockItem
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND name = ?", item.UserID, item.Name).
		First(&stored).Error; err != nil {
		return fmt.Errorf("failed to reload stock item %q: %w", item.Name, err)
	}
	*item = stored
	return nil
}

// ApplyConsumption applies every consumption in one transaction. Each update
// is conditioned on the item's id, owner, expected version and quantity. When
// an update matches no row the whole transaction is rolled back: the error is
// ErrVersionConflict if the row is gone or its version moved, and
// ErrShortQuantity if it is unchanged but holds too little. On success the
// user's refreshed stock is returned.
func (s *StockStore) ApplyConsumption(ctx context.Context, userID uuid.UUID, consumptions []Consumption) ([]models.StockItem, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, c := range consumptions {
			res := tx.Model(&models.StockItem{}).
				Where("id = ? AND user_id = ? AND version = ? AND quantity >= ?",
					c.ItemID, userID, c.ExpectedVersion, c.Quantity).
				Updates(map[string]interface{}{
					"quantity": gorm.Expr("quantity - ?", c.Quantity),
					"version":  gorm.Expr("version + 1"),
				})
			if res.Error != nil {
				return fmt.Errorf("failed to update stock item %s: %w", c.ItemID, res.Error)
			}
			if res.RowsAffected == 0 {
				return missedUpdate(tx, userID, c)
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrVersionConflict) || errors.Is(err, ErrShortQuantity) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to apply consumption: %w", err)
	}

	return s.ListByUser(ctx, userID)
}

// missedUpdate explains why a conditional update matched no row.
func missedUpdate(tx *gorm.DB, userID uuid.UUID, c Consumption) error {
	var current models.StockItem
	err := tx.Where("id = ? AND user_id = ?", c.ItemID, userID).First(&current).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrVersionConflict
	}
	if err != nil {
		return fmt.Errorf("failed to re-read stock item %s: %w", c.ItemID, err)
	}
	if current.Version != c.ExpectedVersion {
		return ErrVersionConflict
	}
	return ErrShortQuantity
}

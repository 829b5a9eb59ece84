package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base units every stored quantity is expressed in.
const (
	UnitGram  = "g"
	UnitMilli = "ml"
	UnitCount = "unit"
)

// StockItem is one ingredient a user has on hand. Name is normalized and
// unique per user. Version starts at 1 and grows by one on every committed
// mutation; stock updates are conditioned on it.
type StockItem struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_stock_user_name,priority:1" json:"user_id"`
	Name        string    `gorm:"size:255;not null;uniqueIndex:idx_stock_user_name,priority:2" json:"name"`
	DisplayName string    `gorm:"size:255" json:"display_name"`
	Quantity    float64   `gorm:"not null;default:0" json:"quantity"`
	Unit        string    `gorm:"size:16;not null" json:"unit"`
	Version     int64     `gorm:"not null;default:1" json:"version"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName specifies the table name for the StockItem model
func (StockItem) TableName() string {
	return "stock_items"
}

// BeforeCreate assigns an id and the initial version.
func (s *StockItem) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.Version == 0 {
		s.Version = 1
	}
	return nil
}

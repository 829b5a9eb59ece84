package models

import (
	"time"

	"github.com/google/uuid"
	pgvector "github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

// Provenance of a consulta's recipes.
const (
	ProvenanceAI       = "ai"
	ProvenanceFallback = "fallback"
)

// FingerprintDims is the dimension of Consulta.StockEmbedding.
const FingerprintDims = 16

// Consulta is one persisted generation result. It is written once and never
// updated.
type Consulta struct {
	ID             uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         uuid.UUID        `gorm:"type:uuid;not null;index:idx_consulta_user_created,priority:1" json:"user_id"`
	CreatedAt      time.Time        `gorm:"not null;index:idx_consulta_user_created,priority:2" json:"created_at"`
	Provenance     string           `gorm:"size:16;not null" json:"provenance"`
	Attempts       int              `gorm:"not null;default:0" json:"attempts"`
	StockEmbedding pgvector.Vector  `gorm:"type:vector(16)" json:"-"`
	Recipes        []ConsultaRecipe `gorm:"foreignKey:ConsultaID;constraint:OnDelete:CASCADE" json:"recipes"`
}

// TableName specifies the table name for the Consulta model
func (Consulta) TableName() string {
	return "consultas"
}

// BeforeCreate assigns an id.
func (c *Consulta) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// ConsultaRecipe is a ranked recipe inside a consulta. Its ID is the recipe id
// accepted by the cook endpoint.
type ConsultaRecipe struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ConsultaID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"consulta_id"`
	UserID       uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	Position     int        `gorm:"not null" json:"position"`
	Name         string     `gorm:"size:255;not null" json:"name"`
	Ingredients  Lines      `gorm:"type:jsonb;not null" json:"ingredients"`
	Instructions StringList `gorm:"type:jsonb;not null" json:"instructions"`
	Score        float64    `gorm:"not null;default:0" json:"score"`
}

// TableName specifies the table name for the ConsultaRecipe model
func (ConsultaRecipe) TableName() string {
	return "consulta_recipes"
}

// BeforeCreate assigns an id.
func (r *ConsultaRecipe) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

package database

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	pgvector "github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pageza/pantrychef/backend/internal/models"
)

// ConsultaStore persists generation results.
type ConsultaStore struct {
	db *gorm.DB
}

// NewConsultaStore creates a consulta store on db.
func NewConsultaStore(db *gorm.DB) *ConsultaStore {
	return &ConsultaStore{db: db}
}

// Create inserts the consulta and its recipes in one transaction.
func (s *ConsultaStore) Create(ctx context.Context, c *models.Consulta) error {
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("failed to create consulta: %w", err)
	}
	return nil
}

// Get returns the user's consulta with its recipes in rank order.
func (s *ConsultaStore) Get(ctx context.Context, userID, id uuid.UUID) (*models.Consulta, error) {
	var c models.Consulta
	err := s.withRecipes(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get consulta: %w", err)
	}
	return &c, nil
}

// GetRecipe returns a recipe owned by the user.
func (s *ConsultaStore) GetRecipe(ctx context.Context, userID, recipeID uuid.UUID) (*models.ConsultaRecipe, error) {
	var r models.ConsultaRecipe
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", recipeID, userID).
		First(&r).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get recipe: %w", err)
	}
	return &r, nil
}

// ListByUser returns the user's consultas created in [from, to), newest
// first. A zero bound is open.
func (s *ConsultaStore) ListByUser(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]models.Consulta, error) {
	q := s.withRecipes(ctx).Where("user_id = ?", userID)
	if !from.IsZero() {
		q = q.Where("created_at >= ?", from)
	}
	if !to.IsZero() {
		q = q.Where("created_at < ?", to)
	}

	var out []models.Consulta
	if err := q.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list consultas: %w", err)
	}
	return out, nil
}

// Similar returns up to limit of the user's consultas whose stock fingerprint
// is closest to embedding. Postgres orders with pgvector's L2 operator; other
// dialects rank in memory.
func (s *ConsultaStore) Similar(ctx context.Context, userID uuid.UUID, embedding pgvector.Vector, limit int) ([]models.Consulta, error) {
	if limit <= 0 {
		return nil, nil
	}

	if isPostgres(s.db) {
		var out []models.Consulta
		err := s.withRecipes(ctx).
			Where("user_id = ? AND stock_embedding IS NOT NULL", userID).
			Clauses(clause.OrderBy{
				Expression: clause.Expr{SQL: "stock_embedding <-> ?", Vars: []interface{}{embedding}},
			}).
			Limit(limit).
			Find(&out).Error
		if err != nil {
			return nil, fmt.Errorf("failed to query similar consultas: %w", err)
		}
		return out, nil
	}

	all, err := s.ListByUser(ctx, userID, time.Time{}, time.Time{})
	if err != nil {
		return nil, err
	}
	target := embedding.Slice()
	sort.SliceStable(all, func(i, j int) bool {
		return l2(all[i].StockEmbedding.Slice(), target) < l2(all[j].StockEmbedding.Slice(), target)
	})
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (s *ConsultaStore) withRecipes(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Preload("Recipes", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	})
}

// l2 is the Euclidean distance; vectors of different length are treated as
// infinitely far apart.
func l2(a, b []float32) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

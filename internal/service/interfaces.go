package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/pageza/pantrychef/backend/internal/database"
	"github.com/pageza/pantrychef/backend/internal/models"
	"github.com/pageza/pantrychef/backend/internal/ratelimit"
)

// StockRepository reads and conditionally updates a user's stock.
type StockRepository interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.StockItem, error)
	ApplyConsumption(ctx context.Context, userID uuid.UUID, consumptions []database.Consumption) ([]models.StockItem, error)
}

// RecipeLookup resolves a stored recipe owned by a user.
type RecipeLookup interface {
	GetRecipe(ctx context.Context, userID, recipeID uuid.UUID) (*models.ConsultaRecipe, error)
}

// ConsultaRepository persists and queries generation results.
type ConsultaRepository interface {
	RecipeLookup
	Create(ctx context.Context, c *models.Consulta) error
	Get(ctx context.Context, userID, id uuid.UUID) (*models.Consulta, error)
	ListByUser(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]models.Consulta, error)
	Similar(ctx context.Context, userID uuid.UUID, embedding pgvector.Vector, limit int) ([]models.Consulta, error)
}

// ConsultaArchiver stores a copy of a persisted consulta outside the database.
type ConsultaArchiver interface {
	Archive(ctx context.Context, c *models.Consulta) error
}

// IRecipeService defines the interface for recipe generation operations
type IRecipeService interface {
	Generate(ctx context.Context, userID uuid.UUID, req GenerateRequest) (*GenerationResult, error)
	GetConsulta(ctx context.Context, userID, id uuid.UUID) (*models.Consulta, error)
	ListConsultas(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]models.Consulta, error)
	SimilarConsultas(ctx context.Context, userID uuid.UUID, limit int) ([]models.Consulta, error)
	Quota(ctx context.Context, userID uuid.UUID) (ratelimit.Policy, ratelimit.Decision, error)
}

// ICookingService defines the interface for stock cooking operations
type ICookingService interface {
	Cook(ctx context.Context, userID uuid.UUID, req CookRequest) (*CookResult, error)
	Stock(ctx context.Context, userID uuid.UUID) ([]models.StockItem, error)
}

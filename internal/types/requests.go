package types

import (
	"time"

	"github.com/google/uuid"
)

// IngredientInput is one ingredient line in a request body
type IngredientInput struct {
	Name     string  `json:"name" binding:"required"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
}

// GenerateRecipesRequest represents the request body for recipe generation.
// Without ingredients the whole stock is used.
type GenerateRecipesRequest struct {
	Ingredients []IngredientInput `json:"ingredients" binding:"omitempty,dive"`
}

// CookRequest represents the request body for cooking: a stored recipe id
// or an ad-hoc ingredient list
type CookRequest struct {
	RecipeID    *uuid.UUID        `json:"recipe_id"`
	Ingredients []IngredientInput `json:"ingredients" binding:"omitempty,dive"`
}

// RecipeResponse is one ranked recipe
type RecipeResponse struct {
	ID           uuid.UUID         `json:"id"`
	Name         string            `json:"name"`
	Score        float64           `json:"score"`
	Ingredients  []IngredientInput `json:"ingredients"`
	Instructions []string          `json:"instructions"`
}

// ConsultaResponse represents a persisted generation result
type ConsultaResponse struct {
	ConsultaID uuid.UUID        `json:"consulta_id"`
	Provenance string           `json:"provenance"`
	Attempts   int              `json:"attempts"`
	CreatedAt  time.Time        `json:"created_at"`
	Recipes    []RecipeResponse `json:"recipes"`
}

// ConsultaListResponse wraps a list of consultas
type ConsultaListResponse struct {
	Consultas []ConsultaResponse `json:"consultas"`
}

// StockItemResponse is one stock entry in base units
type StockItemResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	DisplayName string    `json:"display_name"`
	Quantity    float64   `json:"quantity"`
	Unit        string    `json:"unit"`
	Version     int64     `json:"version"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// StockResponse represents a user's stock
type StockResponse struct {
	Stock []StockItemResponse `json:"stock"`
}

// RateLimitStatusResponse reports a rate limit budget. RetryAfter and Window
// are in seconds.
type RateLimitStatusResponse struct {
	Scope      string `json:"scope"`
	Limit      int    `json:"limit"`
	Remaining  int    `json:"remaining"`
	RetryAfter int    `json:"retry_after"`
	Window     int    `json:"window"`
}

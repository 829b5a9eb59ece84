package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pageza/pantrychef/backend/internal/service"
)

// HealthChecker reports whether a dependency is reachable.
type HealthChecker func(ctx context.Context) error

// Handler serves the recipe generation, consulta and stock endpoints.
type Handler struct {
	recipes service.IRecipeService
	cooking service.ICookingService
	health  HealthChecker
	logger  *zap.Logger
}

// NewHandler creates a handler. health may be nil.
func NewHandler(recipes service.IRecipeService, cooking service.ICookingService, health HealthChecker, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{recipes: recipes, cooking: cooking, health: health, logger: logger}
}

// RegisterRoutes registers the API on router. auth guards every route but
// /health.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, auth gin.HandlerFunc) {
	router.GET("/health", h.Health)

	protected := router.Group("", auth)
	{
		protected.POST("/recipes/generate", h.GenerateRecipes)
		protected.GET("/consultas", h.ListConsultas)
		protected.GET("/consultas/similar", h.SimilarConsultas)
		protected.GET("/consultas/:id", h.GetConsulta)
		protected.GET("/rate-limits/recipe-generation", h.RecipeGenerationQuota)
		protected.POST("/cook", h.Cook)
		protected.GET("/stock", h.Stock)
	}
}

// Health reports service health.
func (h *Handler) Health(c *gin.Context) {
	if h.health != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.health(ctx); err != nil {
			h.logger.Warn("health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

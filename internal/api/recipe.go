package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pageza/pantrychef/backend/internal/apperrors"
	"github.com/pageza/pantrychef/backend/internal/middleware"
	"github.com/pageza/pantrychef/backend/internal/models"
	"github.com/pageza/pantrychef/backend/internal/service"
	"github.com/pageza/pantrychef/backend/internal/types"
)

// GenerateRecipes handles POST /recipes/generate.
func (h *Handler) GenerateRecipes(c *gin.Context) {
	userID, ok := middleware.RequireUser(c)
	if !ok {
		return
	}

	var req types.GenerateRecipesRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			_ = c.Error(apperrors.InvalidInput(err.Error()))
			return
		}
	}

	res, err := h.recipes.Generate(c.Request.Context(), userID, service.GenerateRequest{
		Ingredients: toLines(req.Ingredients),
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, types.ConsultaResponse{
		ConsultaID: res.ConsultaID,
		Provenance: res.Provenance,
		Attempts:   res.Attempts,
		CreatedAt:  res.CreatedAt,
		Recipes:    toRecipeResponses(res.Recipes),
	})
}

// GetConsulta handles GET /consultas/:id.
func (h *Handler) GetConsulta(c *gin.Context) {
	userID, ok := middleware.RequireUser(c)
	if !ok {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		_ = c.Error(apperrors.InvalidInput("invalid consulta id"))
		return
	}

	consulta, err := h.recipes.GetConsulta(c.Request.Context(), userID, id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, toConsultaResponse(*consulta))
}

// ListConsultas handles GET /consultas?from=&to= with RFC 3339 bounds.
func (h *Handler) ListConsultas(c *gin.Context) {
	userID, ok := middleware.RequireUser(c)
	if !ok {
		return
	}

	from, err := parseTime(c.Query("from"))
	if err != nil {
		_ = c.Error(apperrors.InvalidInput("from must be an RFC 3339 timestamp"))
		return
	}
	to, err := parseTime(c.Query("to"))
	if err != nil {
		_ = c.Error(apperrors.InvalidInput("to must be an RFC 3339 timestamp"))
		return
	}

	list, err := h.recipes.ListConsultas(c.Request.Context(), userID, from, to)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, toConsultaList(list))
}

// SimilarConsultas handles GET /consultas/similar?limit=.
func (h *Handler) SimilarConsultas(c *gin.Context) {
	userID, ok := middleware.RequireUser(c)
	if !ok {
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			_ = c.Error(apperrors.InvalidInput("limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	list, err := h.recipes.SimilarConsultas(c.Request.Context(), userID, limit)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, toConsultaList(list))
}

// RecipeGenerationQuota handles GET /rate-limits/recipe-generation.
func (h *Handler) RecipeGenerationQuota(c *gin.Context) {
	userID, ok := middleware.RequireUser(c)
	if !ok {
		return
	}

	policy, d, err := h.recipes.Quota(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, types.RateLimitStatusResponse{
		Scope:      policy.Scope,
		Limit:      policy.Limit,
		Remaining:  d.Remaining,
		RetryAfter: ceilSeconds(d.RetryAfter),
		Window:     int(policy.Window / time.Second),
	})
}

func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}

func parseTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, raw)
}

func toLines(in []types.IngredientInput) []models.Line {
	if len(in) == 0 {
		return nil
	}
	out := make([]models.Line, len(in))
	for i, ing := range in {
		out[i] = models.Line{Name: ing.Name, Quantity: ing.Quantity, Unit: ing.Unit}
	}
	return out
}

func toIngredients(lines []models.Line) []types.IngredientInput {
	out := make([]types.IngredientInput, len(lines))
	for i, l := range lines {
		out[i] = types.IngredientInput{Name: l.Name, Quantity: l.Quantity, Unit: l.Unit}
	}
	return out
}

func toRecipeResponses(recipes []models.ConsultaRecipe) []types.RecipeResponse {
	out := make([]types.RecipeResponse, len(recipes))
	for i, r := range recipes {
		out[i] = types.RecipeResponse{
			ID:           r.ID,
			Name:         r.Name,
			Score:        r.Score,
			Ingredients:  toIngredients(r.Ingredients),
			Instructions: []string(r.Instructions),
		}
	}
	return out
}

func toConsultaResponse(c models.Consulta) types.ConsultaResponse {
	return types.ConsultaResponse{
		ConsultaID: c.ID,
		Provenance: c.Provenance,
		Attempts:   c.Attempts,
		CreatedAt:  c.CreatedAt,
		Recipes:    toRecipeResponses(c.Recipes),
	}
}

func toConsultaList(list []models.Consulta) types.ConsultaListResponse {
	out := types.ConsultaListResponse{Consultas: make([]types.ConsultaResponse, len(list))}
	for i, c := range list {
		out.Consultas[i] = toConsultaResponse(c)
	}
	return out
}

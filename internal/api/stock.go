package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pageza/pantrychef/backend/internal/apperrors"
	"github.com/pageza/pantrychef/backend/internal/middleware"
	"github.com/pageza/pantrychef/backend/internal/models"
	"github.com/pageza/pantrychef/backend/internal/service"
	"github.com/pageza/pantrychef/backend/internal/types"
)

// Cook handles POST /cook.
func (h *Handler) Cook(c *gin.Context) {
	userID, ok := middleware.RequireUser(c)
	if !ok {
		return
	}

	var req types.CookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.InvalidInput(err.Error()))
		return
	}

	res, err := h.cooking.Cook(c.Request.Context(), userID, service.CookRequest{
		RecipeID: req.RecipeID,
		Lines:    toLines(req.Ingredients),
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, toStockResponse(res.Stock))
}

// Stock handles GET /stock.
func (h *Handler) Stock(c *gin.Context) {
	userID, ok := middleware.RequireUser(c)
	if !ok {
		return
	}

	items, err := h.cooking.Stock(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, toStockResponse(items))
}

func toStockResponse(items []models.StockItem) types.StockResponse {
	out := types.StockResponse{Stock: make([]types.StockItemResponse, len(items))}
	for i, it := range items {
		out.Stock[i] = types.StockItemResponse{
			ID:          it.ID,
			Name:        it.Name,
			DisplayName: it.DisplayName,
			Quantity:    it.Quantity,
			Unit:        it.Unit,
			Version:     it.Version,
			UpdatedAt:   it.UpdatedAt,
		}
	}
	return out
}

package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/pantrychef/backend/internal/models"
)

func TestBuildPrompt(t *testing.T) {
	stock := []models.StockItem{
		item("Tomato", 3, "pcs"),
		item("Rice", 0.5, "kg"),
		item("Crème fraîche", 20, "cl"),
		item("onion", 0, "unit"),
		item("water", 1000, "ml"),
	}

	spec := BuildPrompt(stock, 3)

	require.Len(t, spec.Ingredients, 3)
	assert.Equal(t, PromptIngredient{Name: "creme fraiche", MaxQuantity: 200, Unit: "ml"}, spec.Ingredients[0])
	assert.Equal(t, PromptIngredient{Name: "rice", MaxQuantity: 500, Unit: "g"}, spec.Ingredients[1])
	assert.Equal(t, PromptIngredient{Name: "tomato", MaxQuantity: 3, Unit: "unit"}, spec.Ingredients[2])
	assert.Equal(t, 3, spec.MaxRecipes)

	assert.Contains(t, spec.User, "Propose up to 3 different recipes.")
	assert.Contains(t, spec.User, "- rice: 500 g\n")
	assert.Contains(t, spec.User, "- water: unlimited\n")
	assert.NotContains(t, spec.User, "onion")
	assert.Contains(t, spec.System, "JSON")
}

func TestBuildPromptDeterministic(t *testing.T) {
	a := []models.StockItem{item("egg", 6, "unit"), item("flour", 1, "kg"), item("milk", 500, "ml")}
	b := []models.StockItem{a[2], a[0], a[1]}

	assert.Equal(t, BuildPrompt(a, 0), BuildPrompt(b, 0))
	assert.Equal(t, DefaultMaxRecipes, BuildPrompt(a, 0).MaxRecipes)
}

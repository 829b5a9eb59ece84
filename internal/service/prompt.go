package service

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pageza/pantrychef/backend/internal/models"
)

// DefaultMaxRecipes is how many recipes a prompt asks for.
const DefaultMaxRecipes = 5

// PromptIngredient is one allowed ingredient with the most a recipe may use.
type PromptIngredient struct {
	Name        string
	MaxQuantity float64
	Unit        string
}

// PromptSpec is a bounded generation request built from a stock snapshot.
type PromptSpec struct {
	System      string
	User        string
	Ingredients []PromptIngredient
	MaxRecipes  int
}

const systemPrompt = `You are a home cooking assistant. You only propose recipes that can be cooked with the ingredients the user lists, never exceeding the listed quantities. ` +
	ExemptIngredient + ` is always available and may be used freely. Respond with JSON only, no prose.`

// BuildPrompt turns stock into a generation request. It is deterministic:
// ingredients are normalized, folded to base units, merged by name, capped at
// their stock quantity and listed in name order. Items with nothing left are
// omitted.
func BuildPrompt(stock []models.StockItem, maxRecipes int) PromptSpec {
	if maxRecipes <= 0 {
		maxRecipes = DefaultMaxRecipes
	}

	usable := NewSnapshot(stock).Usable()
	ingredients := make([]PromptIngredient, 0, len(usable))
	for _, item := range usable {
		ingredients = append(ingredients, PromptIngredient{
			Name:        item.Name,
			MaxQuantity: item.Quantity,
			Unit:        item.Unit,
		})
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Propose up to %d different recipes.\n", maxRecipes)
	b.WriteString("Available ingredients (name: maximum quantity):\n")
	for _, ing := range ingredients {
		fmt.Fprintf(&b, "- %s: %s %s\n", ing.Name, formatQuantity(ing.MaxQuantity), ing.Unit)
	}
	fmt.Fprintf(&b, "- %s: unlimited\n", ExemptIngredient)
	b.WriteString("Use no other ingredient. Quantities must be positive and use the listed unit (g, ml or unit).\n")
	b.WriteString(`Answer with {"recipes":[{"name":string,"ingredients":[{"name":string,"quantity":number,"unit":string}],"instructions":[string],"quality":number between 0 and 1}]}`)

	return PromptSpec{
		System:      systemPrompt,
		User:        b.String(),
		Ingredients: ingredients,
		MaxRecipes:  maxRecipes,
	}
}

func formatQuantity(q float64) string {
	return strconv.FormatFloat(q, 'f', -1, 64)
}

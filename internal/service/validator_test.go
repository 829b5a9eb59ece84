package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/pantrychef/backend/internal/models"
)

func TestValidate(t *testing.T) {
	stock := snapshot(
		item("tomato", 3, "unit"),
		item("rice", 0, "g"),
		item("flour", 1, "kg"),
		item("milk", 500, "ml"),
	)

	candidates := []Candidate{
		{Name: "needs rice", Lines: []models.Line{line("rice", 1, "g"), line("tomato", 1, "unit")}},
		{Name: "tomato water", Lines: []models.Line{line("Tomato", 2, "pcs"), line("Water", 200, "ml")}},
		{Name: "unknown ingredient", Lines: []models.Line{line("tomato", 1, "unit"), line("saffron", 1, "g")}},
		{Name: "too much", Lines: []models.Line{line("tomato", 4, "unit")}},
		{Name: "split lines over stock", Lines: []models.Line{line("tomato", 2, ""), line("tomato", 2, "")}},
		{Name: "wrong unit family", Lines: []models.Line{line("milk", 100, "g")}},
		{Name: "unknown unit", Lines: []models.Line{line("flour", 1, "cup")}},
		{Name: "zero quantity", Lines: []models.Line{line("flour", 0, "g")}},
		{Name: "only water", Lines: []models.Line{line("water", 1, "l")}},
		{Name: "", Lines: []models.Line{line("flour", 100, "g")}},
		{Name: "crepes", Lines: []models.Line{line("flour", 0.25, "kg"), line("milk", 30, "cl"), line("flour", 50, "g")}},
	}

	survivors := Validate(candidates, stock)

	assert.Equal(t, []string{"tomato water", "crepes"}, names(survivors))
	assert.Equal(t, []models.Line{line("tomato", 2, "unit"), line("water", 200, "ml")}, survivors[0].Lines)
	assert.Equal(t, []models.Line{line("flour", 300, "g"), line("milk", 300, "ml")}, survivors[1].Lines)

	// Input is untouched.
	assert.Equal(t, "Tomato", candidates[1].Lines[0].Name)
	assert.Len(t, candidates[10].Lines, 3)
}

func TestValidateEveryLineWithinStock(t *testing.T) {
	stock := snapshot(item("egg", 2, "unit"), item("butter", 100, "g"))
	candidates := []Candidate{
		{Name: "a", Lines: []models.Line{line("egg", 2, "unit"), line("butter", 100, "g")}},
		{Name: "b", Lines: []models.Line{line("egg", 2.5, "unit")}},
		{Name: "c", Lines: []models.Line{line("butter", 0.1, "kg")}},
	}

	survivors := Validate(candidates, stock)
	require.Len(t, survivors, 2)
	for _, c := range survivors {
		for _, l := range c.Lines {
			if IsExempt(l.Name) {
				continue
			}
			assert.LessOrEqual(t, l.Quantity, stock[l.Name].Quantity, "%s in %s", l.Name, c.Name)
		}
	}
}

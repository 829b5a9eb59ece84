package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/pantrychef/backend/internal/models"
)

func quality(q float64) *float64 { return &q }

func TestRank(t *testing.T) {
	stock := snapshot(item("egg", 4, "unit"), item("flour", 1000, "g"), item("milk", 500, "ml"), item("water", 1, "l"))

	survivors := []Candidate{
		{Name: "boiled egg", Lines: []models.Line{line("egg", 1, "unit"), line("water", 500, "ml")}},
		{Name: "pancakes", Lines: []models.Line{line("egg", 2, "unit"), line("flour", 250, "g"), line("milk", 250, "ml")}},
		{Name: "omelette", Lines: []models.Line{line("egg", 4, "unit")}, Quality: quality(1)},
	}

	ranked := Rank(survivors, stock)

	require.Len(t, ranked, 3)
	assert.Equal(t, []string{"pancakes", "omelette", "boiled egg"}, names(ranked))

	// pancakes: 0.5*3/3 + 0.3*(0.5+0.25+0.5)/3
	assert.InDelta(t, 0.5+0.3*1.25/3, ranked[0].Score, 1e-9)
	// omelette: 0.5*1/3 + 0.3*1/3 + 0.2*1
	assert.InDelta(t, 0.5/3+0.1+0.2, ranked[1].Score, 1e-9)
	// boiled egg: 0.5*1/3 + 0.3*0.25/3, water ignored
	assert.InDelta(t, 0.5/3+0.3*0.25/3, ranked[2].Score, 1e-9)

	// Input untouched.
	assert.Equal(t, "boiled egg", survivors[0].Name)
	assert.Zero(t, survivors[0].Score)
}

func TestRankTieKeepsInputOrder(t *testing.T) {
	stock := snapshot(item("egg", 4, "unit"), item("rice", 200, "g"))
	survivors := []Candidate{
		{Name: "first", Lines: []models.Line{line("egg", 2, "unit")}},
		{Name: "second", Lines: []models.Line{line("rice", 100, "g")}},
		{Name: "third", Lines: []models.Line{line("egg", 2, "unit")}},
	}

	for i := 0; i < 10; i++ {
		ranked := Rank(survivors, stock)
		assert.Equal(t, []string{"first", "second", "third"}, names(ranked))
		assert.Equal(t, ranked[0].Score, ranked[1].Score)
	}
}

func TestRankClampsQuality(t *testing.T) {
	stock := snapshot(item("egg", 2, "unit"))
	ranked := Rank([]Candidate{
		{Name: "low", Lines: []models.Line{line("egg", 1, "unit")}, Quality: quality(-3)},
		{Name: "high", Lines: []models.Line{line("egg", 1, "unit")}, Quality: quality(7)},
	}, stock)

	assert.Equal(t, []string{"high", "low"}, names(ranked))
	assert.InDelta(t, 0.5+0.15+0.2, ranked[0].Score, 1e-9)
	assert.InDelta(t, 0.5+0.15, ranked[1].Score, 1e-9)
}

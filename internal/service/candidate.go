package service

import "github.com/pageza/pantrychef/backend/internal/models"

// Candidate is a recipe proposal before it is persisted. Lines hold normalized
// names in base units once validated.
type Candidate struct {
	Name         string        `json:"name"`
	Lines        []models.Line `json:"ingredients"`
	Instructions []string      `json:"instructions"`
	// Quality is an optional model-reported quality signal in [0, 1].
	Quality *float64 `json:"quality,omitempty"`
	Score   float64  `json:"score"`
}

func (c Candidate) clone() Candidate {
	out := c
	out.Lines = append([]models.Line(nil), c.Lines...)
	out.Instructions = append([]string(nil), c.Instructions...)
	if c.Quality != nil {
		q := *c.Quality
		out.Quality = &q
	}
	return out
}

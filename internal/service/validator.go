package service

import (
	"github.com/pageza/pantrychef/backend/internal/models"
)

// quantityEpsilon absorbs float noise from unit conversion.
const quantityEpsilon = 1e-9

// Validate keeps the candidates that can be cooked from stock. A candidate is
// dropped entirely when any non-exempt line names an ingredient missing from
// stock, asks for a non-positive amount, uses a unit that does not match the
// stock unit, or, summed with other lines for the same ingredient, asks for
// more than is available. Candidates without a name or without any
// non-exempt line are dropped too.
//
// Survivors keep their input order and come back as copies whose lines are
// normalized, in base units, and merged by ingredient. The input is not
// modified.
func Validate(candidates []Candidate, stock Snapshot) []Candidate {
	survivors := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if lines, ok := validateLines(c.Lines, stock); ok && c.Name != "" {
			out := c.clone()
			out.Lines = lines
			survivors = append(survivors, out)
		}
	}
	return survivors
}

func validateLines(lines []models.Line, stock Snapshot) ([]models.Line, bool) {
	merged := make([]models.Line, 0, len(lines))
	index := make(map[string]int, len(lines))
	nonExempt := 0

	for _, raw := range lines {
		name := NormalizeName(raw.Name)
		if name == "" {
			return nil, false
		}

		if IsExempt(name) {
			line, ok := normalizeLine(raw, "")
			if !ok {
				line = models.Line{Name: name, Quantity: raw.Quantity, Unit: raw.Unit}
			}
			if _, seen := index[name]; !seen {
				index[name] = len(merged)
				merged = append(merged, line)
			}
			continue
		}

		item, inStock := stock[name]
		if !inStock {
			return nil, false
		}
		line, ok := normalizeLine(raw, item.Unit)
		if !ok || line.Unit != item.Unit || line.Quantity <= 0 {
			return nil, false
		}

		if i, seen := index[name]; seen {
			merged[i].Quantity += line.Quantity
		} else {
			index[name] = len(merged)
			merged = append(merged, line)
			nonExempt++
		}
	}

	if nonExempt == 0 {
		return nil, false
	}
	for _, line := range merged {
		if IsExempt(line.Name) {
			continue
		}
		if line.Quantity > stock[line.Name].Quantity+quantityEpsilon {
			return nil, false
		}
	}
	return merged, true
}

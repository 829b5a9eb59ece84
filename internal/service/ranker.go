package service

import (
	"sort"
)

// Score weights.
const (
	weightVariety  = 0.5
	weightConsumed = 0.3
	weightQuality  = 0.2
)

// Rank scores validated candidates and orders them best first. The score is
//
//	0.5*distinct/usable + 0.3*sum(min(1, required/available))/usable + 0.2*quality
//
// where distinct counts the non-exempt ingredients a candidate uses, usable
// counts the usable stock items, and quality is the candidate's own signal
// clamped to [0, 1] (0 when absent). Equal scores keep their input order.
// The result is a new slice of copies with Score set.
func Rank(survivors []Candidate, stock Snapshot) []Candidate {
	usable := float64(len(stock.Usable()))

	ranked := make([]Candidate, len(survivors))
	for i, c := range survivors {
		ranked[i] = c.clone()
		ranked[i].Score = score(c, stock, usable)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

func score(c Candidate, stock Snapshot, usable float64) float64 {
	var s float64
	if usable > 0 {
		distinct := make(map[string]struct{}, len(c.Lines))
		var consumed float64
		for _, line := range c.Lines {
			name := NormalizeName(line.Name)
			if IsExempt(name) {
				continue
			}
			item, ok := stock[name]
			if !ok || item.Quantity <= 0 {
				continue
			}
			if _, seen := distinct[name]; !seen {
				distinct[name] = struct{}{}
			}
			consumed += min(1, line.Quantity/item.Quantity)
		}
		s += weightVariety*float64(len(distinct))/usable + weightConsumed*min(1, consumed/usable)
	}

	if c.Quality != nil {
		s += weightQuality * max(0, min(1, *c.Quality))
	}
	return s
}

package service

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pageza/pantrychef/backend/internal/models"
)

// fallbackPool is how many of the largest stock items combinations draw from.
const fallbackPool = 6

// minUsable is the smallest quantity per base unit worth cooking with.
var minUsable = map[string]float64{
	models.UnitCount: 1,
	models.UnitGram:  50,
	models.UnitMilli: 50,
}

// Fallback builds up to maxRecipes recipes from stock alone, with no external call.
// Ingredients at or above their unit minimum are ordered by quantity
// (largest first, then by name) and the first six are combined: every
// triple, then every pair, then every single ingredient, in index order.
// Each line uses half of what is available. The same stock always yields the
// same candidates in the same order.
func Fallback(stock Snapshot, maxRecipes int) []Candidate {
	if maxRecipes <= 0 {
		maxRecipes = DefaultMaxRecipes
	}

	pool := fallbackIngredients(stock)
	if len(pool) == 0 {
		return nil
	}

	out := make([]Candidate, 0, maxRecipes)
	for size := 3; size >= 1 && len(out) < maxRecipes; size-- {
		combinations(len(pool), size, func(idx []int) bool {
			items := make([]models.StockItem, len(idx))
			for i, j := range idx {
				items[i] = pool[j]
			}
			out = append(out, fallbackCandidate(items))
			return len(out) < maxRecipes
		})
	}
	return out
}

func fallbackIngredients(stock Snapshot) []models.StockItem {
	usable := stock.Usable()

	pool := make([]models.StockItem, 0, len(usable))
	for _, item := range usable {
		if item.Quantity >= minUsable[item.Unit] {
			pool = append(pool, item)
		}
	}
	if len(pool) == 0 {
		// Nothing reaches its minimum; use whatever is left.
		pool = usable
	}

	sort.SliceStable(pool, func(i, j int) bool {
		if pool[i].Quantity != pool[j].Quantity {
			return pool[i].Quantity > pool[j].Quantity
		}
		return pool[i].Name < pool[j].Name
	})
	if len(pool) > fallbackPool {
		pool = pool[:fallbackPool]
	}
	return pool
}

// combinations calls fn with every k-subset of [0, n) in lexicographic order
// until fn returns false.
func combinations(n, k int, fn func([]int) bool) {
	if k > n {
		return
	}
	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}
	for {
		if !fn(append([]int(nil), idx...)) {
			return
		}
		i := k - 1
		for i >= 0 && idx[i] == n-k+i {
			i--
		}
		if i < 0 {
			return
		}
		idx[i]++
		for j := i + 1; j < k; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
}

func fallbackCandidate(items []models.StockItem) Candidate {
	names := make([]string, len(items))
	lines := make([]models.Line, len(items))
	for i, item := range items {
		names[i] = item.Name
		lines[i] = models.Line{Name: item.Name, Quantity: halfPortion(item), Unit: item.Unit}
	}

	return Candidate{
		Name:  fallbackName(names),
		Lines: lines,
		Instructions: []string{
			fmt.Sprintf("Prepare the %s.", joinNames(names)),
			fmt.Sprintf("Cook the %s in a pan over medium heat until tender.", names[0]),
			"Add the remaining ingredients, season to taste and cook through.",
			"Serve warm.",
		},
	}
}

// halfPortion is half the available quantity; counted items are floored with
// a minimum of one, never exceeding what is available.
func halfPortion(item models.StockItem) float64 {
	half := item.Quantity / 2
	if item.Unit != models.UnitCount {
		return half
	}
	q := math.Floor(half)
	if q < 1 {
		q = math.Min(1, item.Quantity)
	}
	return q
}

func fallbackName(names []string) string {
	switch len(names) {
	case 1:
		return "Simple " + names[0]
	default:
		return capitalize(joinNames(names)) + " skillet"
	}
}

// joinNames renders "a", "a & b" or "a, b & c".
func joinNames(names []string) string {
	if len(names) == 1 {
		return names[0]
	}
	return strings.Join(names[:len(names)-1], ", ") + " & " + names[len(names)-1]
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

package service

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/pageza/pantrychef/backend/internal/models"
)

// ExemptIngredient never needs to be in stock and is never consumed.
const ExemptIngredient = "water"

// NormalizeName folds an ingredient name for comparison: diacritics removed,
// lowercased, trimmed, inner whitespace collapsed. Singular and plural forms
// stay distinct.
func NormalizeName(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}

// IsExempt reports whether a normalized name is the exempt ingredient.
func IsExempt(name string) bool {
	return name == ExemptIngredient
}

type unitRule struct {
	base   string
	factor float64
}

var unitTable = map[string]unitRule{
	"":       {models.UnitCount, 1},
	"u":      {models.UnitCount, 1},
	"unit":   {models.UnitCount, 1},
	"units":  {models.UnitCount, 1},
	"pc":     {models.UnitCount, 1},
	"pcs":    {models.UnitCount, 1},
	"piece":  {models.UnitCount, 1},
	"pieces": {models.UnitCount, 1},
	"g":      {models.UnitGram, 1},
	"gr":     {models.UnitGram, 1},
	"gram":   {models.UnitGram, 1},
	"grams":  {models.UnitGram, 1},
	"kg":     {models.UnitGram, 1000},
	"mg":     {models.UnitGram, 0.001},
	"ml":     {models.UnitMilli, 1},
	"cl":     {models.UnitMilli, 10},
	"dl":     {models.UnitMilli, 100},
	"l":      {models.UnitMilli, 1000},
	"liter":  {models.UnitMilli, 1000},
	"litre":  {models.UnitMilli, 1000},
}

// ToBaseUnit converts quantity in unit to the unit's base family. ok is false
// for units outside the known families.
func ToBaseUnit(quantity float64, unit string) (float64, string, bool) {
	rule, ok := unitTable[strings.ToLower(strings.TrimSpace(unit))]
	if !ok {
		return 0, "", false
	}
	return quantity * rule.factor, rule.base, true
}

// Snapshot is a user's stock at one point in time, keyed by normalized name.
type Snapshot map[string]models.StockItem

// NewSnapshot indexes items by normalized name in base units. Items with the
// same name and unit family are merged, keeping the first item's id and
// version; items in an unknown unit are skipped.
func NewSnapshot(items []models.StockItem) Snapshot {
	snap := make(Snapshot, len(items))
	for _, item := range items {
		qty, unit, ok := ToBaseUnit(item.Quantity, item.Unit)
		if !ok {
			continue
		}
		name := NormalizeName(item.Name)
		if name == "" {
			continue
		}
		if existing, dup := snap[name]; dup {
			if existing.Unit == unit {
				existing.Quantity += qty
				snap[name] = existing
			}
			continue
		}
		item.Name = name
		item.Quantity = qty
		item.Unit = unit
		snap[name] = item
	}
	return snap
}

// Usable returns the non-exempt items with a positive quantity, sorted by name.
func (s Snapshot) Usable() []models.StockItem {
	out := make([]models.StockItem, 0, len(s))
	for name, item := range s {
		if IsExempt(name) || item.Quantity <= 0 {
			continue
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// normalizeLine folds a recipe line's name and converts its quantity to base
// units. An empty unit adopts fallbackUnit when one is given.
func normalizeLine(l models.Line, fallbackUnit string) (models.Line, bool) {
	name := NormalizeName(l.Name)
	unit := l.Unit
	if strings.TrimSpace(unit) == "" && fallbackUnit != "" {
		unit = fallbackUnit
	}
	qty, base, ok := ToBaseUnit(l.Quantity, unit)
	if !ok {
		return models.Line{Name: name}, false
	}
	return models.Line{Name: name, Quantity: qty, Unit: base}, true
}

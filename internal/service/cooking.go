package service

import (
	"context"
	"errors"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pageza/pantrychef/backend/internal/apperrors"
	"github.com/pageza/pantrychef/backend/internal/database"
	"github.com/pageza/pantrychef/backend/internal/metrics"
	"github.com/pageza/pantrychef/backend/internal/models"
)

// CookRequest names what to cook: a stored recipe or ad-hoc lines, not both.
type CookRequest struct {
	RecipeID *uuid.UUID
	Lines    []models.Line
}

// CookResult is the user's stock after a committed cook.
type CookResult struct {
	Stock []models.StockItem
}

// Shortfall describes one ingredient the stock cannot cover.
type Shortfall struct {
	Ingredient string  `json:"ingredient"`
	Required   float64 `json:"required"`
	Available  float64 `json:"available"`
	Unit       string  `json:"unit"`
}

// CookingService applies recipe consumption to stock with optimistic
// concurrency control.
type CookingService struct {
	stock   StockRepository
	recipes RecipeLookup
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewCookingService creates a cooking service.
func NewCookingService(stock StockRepository, recipes RecipeLookup, logger *zap.Logger, m *metrics.Metrics) *CookingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CookingService{stock: stock, recipes: recipes, logger: logger, metrics: m}
}

// Stock returns the user's current stock.
func (s *CookingService) Stock(ctx context.Context, userID uuid.UUID) ([]models.StockItem, error) {
	items, err := s.stock.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal("cooking.Stock", "failed to load stock", err)
	}
	return items, nil
}

// Cook reads the stock, checks every required ingredient is available and
// commits all decrements in one version-conditioned transaction. If any item
// changed since it was read nothing is written and a CONFLICT error is
// returned; retrying is left to the caller.
func (s *CookingService) Cook(ctx context.Context, userID uuid.UUID, req CookRequest) (*CookResult, error) {
	const op = "cooking.Cook"

	lines, err := s.resolveLines(ctx, userID, req)
	if err != nil {
		return nil, s.fail(err)
	}

	items, err := s.stock.ListByUser(ctx, userID)
	if err != nil {
		return nil, s.fail(apperrors.Internal(op, "failed to load stock", err))
	}
	snap := NewSnapshot(items)

	needs, err := aggregateNeeds(lines, snap)
	if err != nil {
		return nil, s.fail(err)
	}

	rows := rowsByName(items, snap)
	var shortfalls []Shortfall
	consumptions := make([]database.Consumption, 0, len(needs))
	for _, need := range needs {
		item, ok := snap[need.Name]
		if !ok || need.Quantity > item.Quantity+quantityEpsilon {
			shortfalls = append(shortfalls, Shortfall{
				Ingredient: need.Name,
				Required:   need.Quantity,
				Available:  item.Quantity,
				Unit:       need.Unit,
			})
			continue
		}
		consumptions = append(consumptions, allocate(min(need.Quantity, item.Quantity), rows[need.Name])...)
	}
	if len(shortfalls) > 0 {
		return nil, s.fail(apperrors.New(apperrors.CodeInsufficientStock, "not enough stock to cook this recipe").
			WithDetail("shortfalls", shortfalls))
	}

	updated, err := s.stock.ApplyConsumption(ctx, userID, consumptions)
	if err != nil {
		if errors.Is(err, database.ErrVersionConflict) {
			return nil, s.fail(apperrors.Wrap(err, op, apperrors.CodeConflict, "stock was modified concurrently, re-read and retry"))
		}
		if errors.Is(err, database.ErrShortQuantity) {
			return nil, s.fail(apperrors.Wrap(err, op, apperrors.CodeInsufficientStock, "not enough stock to cook this recipe"))
		}
		return nil, s.fail(apperrors.Internal(op, "failed to update stock", err))
	}

	s.count("committed")
	s.logger.Info("cooked",
		zap.String("user_id", userID.String()),
		zap.Int("ingredients", len(consumptions)),
	)
	return &CookResult{Stock: updated}, nil
}

func (s *CookingService) resolveLines(ctx context.Context, userID uuid.UUID, req CookRequest) ([]models.Line, error) {
	switch {
	case req.RecipeID != nil && len(req.Lines) > 0:
		return nil, apperrors.InvalidInput("provide either recipe_id or ingredients, not both")
	case req.RecipeID != nil:
		recipe, err := s.recipes.GetRecipe(ctx, userID, *req.RecipeID)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return nil, apperrors.NotFound("recipe", req.RecipeID.String())
			}
			return nil, apperrors.Internal("cooking.Cook", "failed to load recipe", err)
		}
		return recipe.Ingredients, nil
	case len(req.Lines) > 0:
		return req.Lines, nil
	default:
		return nil, apperrors.InvalidInput("recipe_id or ingredients is required")
	}
}

// aggregateNeeds normalizes lines, drops the exempt ingredient and sums lines
// for the same ingredient. Results are sorted by name so concurrent cooks
// touch rows in the same order.
func aggregateNeeds(lines []models.Line, snap Snapshot) ([]models.Line, error) {
	sums := make(map[string]models.Line, len(lines))
	for _, raw := range lines {
		name := NormalizeName(raw.Name)
		if name == "" {
			return nil, apperrors.InvalidInput("ingredient name is required")
		}
		if IsExempt(name) {
			continue
		}
		if raw.Quantity <= 0 {
			return nil, apperrors.InvalidInput("ingredient quantity must be positive").WithDetail("ingredient", name)
		}

		line, ok := normalizeLine(raw, snap[name].Unit)
		if !ok {
			return nil, apperrors.InvalidInput("unknown unit").WithDetail("ingredient", name).WithDetail("unit", raw.Unit)
		}
		if item, inStock := snap[name]; inStock && item.Unit != line.Unit {
			return nil, apperrors.InvalidInput("unit does not match stock").
				WithDetail("ingredient", name).WithDetail("unit", line.Unit).WithDetail("stock_unit", item.Unit)
		}

		if prev, seen := sums[name]; seen {
			line.Quantity += prev.Quantity
		}
		sums[name] = line
	}

	if len(sums) == 0 {
		return nil, apperrors.InvalidInput("recipe has no ingredients to consume")
	}

	needs := make([]models.Line, 0, len(sums))
	for _, line := range sums {
		needs = append(needs, line)
	}
	sort.Slice(needs, func(i, j int) bool { return needs[i].Name < needs[j].Name })
	return needs, nil
}

// rowsByName groups the stored rows behind each snapshot entry. Rows in a
// unit family other than the snapshot's are left out, as NewSnapshot does.
func rowsByName(items []models.StockItem, snap Snapshot) map[string][]models.StockItem {
	rows := make(map[string][]models.StockItem, len(snap))
	for _, item := range items {
		name := NormalizeName(item.Name)
		entry, ok := snap[name]
		if !ok {
			continue
		}
		if _, unit, ok := ToBaseUnit(item.Quantity, item.Unit); !ok || unit != entry.Unit {
			continue
		}
		rows[name] = append(rows[name], item)
	}
	return rows
}

// allocate spreads qty, in base units, over rows in order. Each consumption
// is expressed in its row's stored unit and conditioned on its own version.
func allocate(qty float64, rows []models.StockItem) []database.Consumption {
	var out []database.Consumption
	for _, row := range rows {
		if qty <= quantityEpsilon {
			break
		}
		have, _, _ := ToBaseUnit(row.Quantity, row.Unit)
		if have <= 0 {
			continue
		}
		take := row.Quantity
		if qty < have-quantityEpsilon {
			take = row.Quantity * qty / have
		}
		out = append(out, database.Consumption{
			ItemID:          row.ID,
			ExpectedVersion: row.Version,
			Quantity:        take,
		})
		qty -= min(qty, have)
	}
	return out
}

func (s *CookingService) fail(err error) error {
	switch apperrors.GetCode(err) {
	case apperrors.CodeConflict:
		s.count("conflict")
	case apperrors.CodeInsufficientStock:
		s.count("insufficient")
	case apperrors.CodeNotFound:
		s.count("not_found")
	case apperrors.CodeInvalidInput:
		s.count("invalid")
	default:
		s.count("error")
		s.logger.Error("cook failed", zap.Error(err))
	}
	return err
}

func (s *CookingService) count(outcome string) {
	if s.metrics != nil {
		s.metrics.CookOutcomes.WithLabelValues(outcome).Inc()
	}
}

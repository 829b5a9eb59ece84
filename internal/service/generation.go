package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pageza/pantrychef/backend/internal/apperrors"
	"github.com/pageza/pantrychef/backend/internal/clock"
	"github.com/pageza/pantrychef/backend/internal/database"
	"github.com/pageza/pantrychef/backend/internal/metrics"
	"github.com/pageza/pantrychef/backend/internal/models"
	"github.com/pageza/pantrychef/backend/internal/ratelimit"
)

const (
	defaultSimilarLimit = 5
	maxSimilarLimit     = 50
	archiveTimeout      = 10 * time.Second
)

// GenerateRequest optionally restricts generation to a subset of the stock.
// A line with zero quantity means "all of it".
type GenerateRequest struct {
	Ingredients []models.Line
}

// GenerationResult is a persisted consulta as returned to the caller.
type GenerationResult struct {
	ConsultaID uuid.UUID
	Provenance string
	Attempts   int
	CreatedAt  time.Time
	Recipes    []models.ConsultaRecipe
}

// RecipeGenerator runs the generation pipeline: admission, prompt, bounded
// AI attempts, validation, ranking, deterministic fallback and persistence.
type RecipeGenerator struct {
	limiter    *ratelimit.Limiter
	stock      StockRepository
	consultas  ConsultaRepository
	client     *GenerationClient
	archiver   ConsultaArchiver
	clock      clock.Clock
	maxRecipes int
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

// GeneratorOption configures a RecipeGenerator.
type GeneratorOption func(*RecipeGenerator)

// WithArchiver enables best-effort archiving of every persisted consulta.
func WithArchiver(a ConsultaArchiver) GeneratorOption {
	return func(g *RecipeGenerator) { g.archiver = a }
}

// WithGeneratorClock overrides the time source used for timestamps.
func WithGeneratorClock(c clock.Clock) GeneratorOption {
	return func(g *RecipeGenerator) { g.clock = c }
}

// WithMaxRecipes sets how many recipes are requested and generated by fallback.
func WithMaxRecipes(n int) GeneratorOption {
	return func(g *RecipeGenerator) {
		if n > 0 {
			g.maxRecipes = n
		}
	}
}

// WithGeneratorLogger sets the logger.
func WithGeneratorLogger(l *zap.Logger) GeneratorOption {
	return func(g *RecipeGenerator) { g.logger = l }
}

// WithGeneratorMetrics enables pipeline metrics.
func WithGeneratorMetrics(m *metrics.Metrics) GeneratorOption {
	return func(g *RecipeGenerator) { g.metrics = m }
}

// NewRecipeGenerator wires the pipeline.
func NewRecipeGenerator(limiter *ratelimit.Limiter, stock StockRepository, consultas ConsultaRepository, client *GenerationClient, opts ...GeneratorOption) *RecipeGenerator {
	g := &RecipeGenerator{
		limiter:    limiter,
		stock:      stock,
		consultas:  consultas,
		client:     client,
		clock:      clock.New(),
		maxRecipes: DefaultMaxRecipes,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate produces, persists and returns ranked recipes for the user. AI
// output that partly survives validation is returned as is; fallback runs
// only when nothing survives.
//
// The hourly admission is recorded before stock is read, so a call that
// then fails with NO_STOCK or an internal error still spends the slot.
func (g *RecipeGenerator) Generate(ctx context.Context, userID uuid.UUID, req GenerateRequest) (*GenerationResult, error) {
	const op = "generation.Generate"
	start := g.clock.Now()

	policy := ratelimit.RecipeGenerationPolicy()
	decision, err := g.limiter.AdmitPolicy(ctx, policy, userID.String())
	if err != nil {
		return nil, apperrors.Internal(op, "rate limit check failed", err)
	}
	if !decision.Allowed {
		return nil, apperrors.RateLimited(policy.Scope, decision.RetryAfter)
	}

	items, err := g.stock.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal(op, "failed to load stock", err)
	}
	working, err := workingStock(items, req.Ingredients)
	if err != nil {
		return nil, err
	}
	snap := NewSnapshot(working)
	if len(snap.Usable()) == 0 {
		return nil, apperrors.New(apperrors.CodeNoStock, "no usable stock to cook with")
	}

	spec := BuildPrompt(working, g.maxRecipes)
	outcome := g.client.Generate(ctx, spec)

	provenance := models.ProvenanceAI
	var ranked []Candidate
	if !outcome.Exhausted {
		survivors := Validate(outcome.Candidates, snap)
		g.rejected(len(outcome.Candidates) - len(survivors))
		if len(survivors) > 0 {
			ranked = Rank(survivors, snap)
		}
	}

	if len(ranked) == 0 {
		provenance = models.ProvenanceFallback
		g.logger.Info("using fallback recipes",
			zap.String("user_id", userID.String()),
			zap.Int("attempts", outcome.Attempts),
			zap.Bool("exhausted", outcome.Exhausted),
		)
		fallback := Fallback(snap, g.maxRecipes)
		survivors := Validate(fallback, snap)
		g.rejected(len(fallback) - len(survivors))
		ranked = Rank(survivors, snap)
	}

	if len(ranked) == 0 {
		// Fallback has no external dependency; reaching here is a bug.
		g.logger.Error("fallback produced no valid recipe",
			zap.String("user_id", userID.String()),
			zap.Int("usable", len(snap.Usable())),
		)
		return nil, apperrors.New(apperrors.CodeGenerationExhausted, "no recipe could be generated")
	}

	if err := ctx.Err(); err != nil {
		return nil, apperrors.Internal(op, "request cancelled before persisting", err)
	}

	consulta := g.newConsulta(userID, provenance, outcome.Attempts, snap, ranked)
	if err := g.consultas.Create(ctx, consulta); err != nil {
		return nil, apperrors.Internal(op, "failed to persist consulta", err)
	}
	g.archive(ctx, consulta)

	if g.metrics != nil {
		g.metrics.GenerationResults.WithLabelValues(provenance).Inc()
		g.metrics.GenerationDuration.Observe(g.clock.Since(start).Seconds())
	}
	g.logger.Info("generated recipes",
		zap.String("user_id", userID.String()),
		zap.String("consulta_id", consulta.ID.String()),
		zap.String("provenance", provenance),
		zap.Int("recipes", len(consulta.Recipes)),
		zap.Int("attempts", outcome.Attempts),
	)

	return &GenerationResult{
		ConsultaID: consulta.ID,
		Provenance: consulta.Provenance,
		Attempts:   consulta.Attempts,
		CreatedAt:  consulta.CreatedAt,
		Recipes:    consulta.Recipes,
	}, nil
}

// workingStock applies an explicit ingredient list to the stored stock: only
// requested ingredients the user holds remain, each capped at the smaller of
// the requested and stored quantity. Without a list the stored stock is used.
func workingStock(items []models.StockItem, requested []models.Line) ([]models.StockItem, error) {
	if len(requested) == 0 {
		return items, nil
	}

	stored := NewSnapshot(items)
	wanted := make(map[string]float64, len(requested))
	unlimited := make(map[string]bool, len(requested))
	for _, raw := range requested {
		name := NormalizeName(raw.Name)
		if name == "" {
			return nil, apperrors.InvalidInput("ingredient name is required")
		}
		if raw.Quantity < 0 {
			return nil, apperrors.InvalidInput("ingredient quantity must not be negative").WithDetail("ingredient", name)
		}
		item, ok := stored[name]
		if !ok {
			continue
		}
		if raw.Quantity == 0 {
			unlimited[name] = true
			continue
		}
		line, ok := normalizeLine(raw, item.Unit)
		if !ok {
			return nil, apperrors.InvalidInput("unknown unit").WithDetail("ingredient", name).WithDetail("unit", raw.Unit)
		}
		if line.Unit != item.Unit {
			continue
		}
		wanted[name] += line.Quantity
	}

	out := make([]models.StockItem, 0, len(wanted)+len(unlimited))
	for name, item := range stored {
		switch {
		case unlimited[name]:
		case wanted[name] > 0:
			item.Quantity = min(item.Quantity, wanted[name])
		default:
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

func (g *RecipeGenerator) newConsulta(userID uuid.UUID, provenance string, attempts int, snap Snapshot, ranked []Candidate) *models.Consulta {
	c := &models.Consulta{
		ID:             uuid.New(),
		UserID:         userID,
		CreatedAt:      g.clock.NowUTC(),
		Provenance:     provenance,
		Attempts:       attempts,
		StockEmbedding: StockFingerprint(snap),
		Recipes:        make([]models.ConsultaRecipe, len(ranked)),
	}
	for i, cand := range ranked {
		c.Recipes[i] = models.ConsultaRecipe{
			ID:           uuid.New(),
			ConsultaID:   c.ID,
			UserID:       userID,
			Position:     i,
			Name:         cand.Name,
			Ingredients:  models.Lines(cand.Lines),
			Instructions: models.StringList(cand.Instructions),
			Score:        cand.Score,
		}
	}
	return c
}

func (g *RecipeGenerator) archive(ctx context.Context, c *models.Consulta) {
	if g.archiver == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), archiveTimeout)
	defer cancel()

	if err := g.archiver.Archive(ctx, c); err != nil {
		g.logger.Warn("failed to archive consulta",
			zap.String("consulta_id", c.ID.String()),
			zap.Error(err),
		)
		if g.metrics != nil {
			g.metrics.ArchiveFailures.Inc()
		}
	}
}

func (g *RecipeGenerator) rejected(n int) {
	if n > 0 && g.metrics != nil {
		g.metrics.CandidatesRejected.Add(float64(n))
	}
}

// GetConsulta returns one of the user's consultas.
func (g *RecipeGenerator) GetConsulta(ctx context.Context, userID, id uuid.UUID) (*models.Consulta, error) {
	c, err := g.consultas.Get(ctx, userID, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, apperrors.NotFound("consulta", id.String())
		}
		return nil, apperrors.Internal("generation.GetConsulta", "failed to load consulta", err)
	}
	return c, nil
}

// ListConsultas returns the user's consultas created in [from, to), newest
// first. Zero bounds are open.
func (g *RecipeGenerator) ListConsultas(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]models.Consulta, error) {
	if !from.IsZero() && !to.IsZero() && !from.Before(to) {
		return nil, apperrors.InvalidInput("from must be before to")
	}
	out, err := g.consultas.ListByUser(ctx, userID, from, to)
	if err != nil {
		return nil, apperrors.Internal("generation.ListConsultas", "failed to list consultas", err)
	}
	return out, nil
}

// SimilarConsultas returns past consultas whose stock looked most like the
// user's current stock.
func (g *RecipeGenerator) SimilarConsultas(ctx context.Context, userID uuid.UUID, limit int) ([]models.Consulta, error) {
	const op = "generation.SimilarConsultas"
	switch {
	case limit <= 0:
		limit = defaultSimilarLimit
	case limit > maxSimilarLimit:
		limit = maxSimilarLimit
	}

	items, err := g.stock.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal(op, "failed to load stock", err)
	}
	out, err := g.consultas.Similar(ctx, userID, StockFingerprint(NewSnapshot(items)), limit)
	if err != nil {
		return nil, apperrors.Internal(op, "failed to query similar consultas", err)
	}
	return out, nil
}

// Quota reports the user's recipe generation budget without consuming it.
func (g *RecipeGenerator) Quota(ctx context.Context, userID uuid.UUID) (ratelimit.Policy, ratelimit.Decision, error) {
	policy := ratelimit.RecipeGenerationPolicy()
	d, err := g.limiter.Peek(ctx, policy, userID.String())
	if err != nil {
		return policy, d, apperrors.Internal("generation.Quota", "rate limit check failed", err)
	}
	return policy, d, nil
}

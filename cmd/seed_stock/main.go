package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pageza/pantrychef/backend/config"
	"github.com/pageza/pantrychef/backend/internal/database"
	"github.com/pageza/pantrychef/backend/internal/logging"
	"github.com/pageza/pantrychef/backend/internal/models"
	"github.com/pageza/pantrychef/backend/internal/service"
)

// starterPantry is what a development user starts with.
var starterPantry = []models.Line{
	{Name: "Tomato", Quantity: 6, Unit: "pcs"},
	{Name: "Onion", Quantity: 3, Unit: "pcs"},
	{Name: "Rice", Quantity: 1, Unit: "kg"},
	{Name: "Milk", Quantity: 1, Unit: "l"},
	{Name: "Egg", Quantity: 12, Unit: "unit"},
	{Name: "Flour", Quantity: 500, Unit: "g"},
	{Name: "Olive oil", Quantity: 25, Unit: "cl"},
	{Name: "Water", Quantity: 5, Unit: "l"},
}

func main() {
	userFlag := flag.String("user", "", "User id to seed (random when empty)")
	token := flag.Bool("token", false, "Print a development token for the user")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("refusing to seed a production database")
	}

	logger, err := logging.New(&logging.Config{Level: cfg.LogLevel, Format: "console", Environment: string(cfg.Environment)})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	userID := uuid.New()
	if *userFlag != "" {
		if userID, err = uuid.Parse(*userFlag); err != nil {
			logger.Fatal("invalid user id", zap.Error(err))
		}
	}

	db, err := database.New(cfg, logger)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := database.RunMigrations(db, "migrations", logger); err != nil {
		logger.Fatal("failed to migrate", zap.Error(err))
	}

	store := database.NewStockStore(db)
	ctx := context.Background()
	for _, l := range starterPantry {
		qty, unit, ok := service.ToBaseUnit(l.Quantity, l.Unit)
		if !ok {
			logger.Fatal("unknown unit in starter pantry", zap.String("unit", l.Unit))
		}
		item := &models.StockItem{
			UserID:      userID,
			Name:        service.NormalizeName(l.Name),
			DisplayName: l.Name,
			Quantity:    qty,
			Unit:        unit,
		}
		if err := store.Upsert(ctx, item); err != nil {
			logger.Fatal("failed to seed stock", zap.Error(err))
		}
		logger.Info("seeded", zap.String("name", item.Name), zap.Float64("quantity", item.Quantity), zap.String("unit", item.Unit))
	}

	fmt.Printf("Seeded %d stock items for user %s\n", len(starterPantry), userID)

	if *token {
		signed, err := service.NewTokenService(cfg.JWTSecret).GenerateToken(userID, "dev", 24*time.Hour)
		if err != nil {
			logger.Fatal("failed to sign token", zap.Error(err))
		}
		fmt.Printf("Token: %s\n", signed)
	}
}

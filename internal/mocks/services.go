// Package mocks provides testify mocks of the service interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/pageza/pantrychef/backend/internal/models"
	"github.com/pageza/pantrychef/backend/internal/ratelimit"
	"github.com/pageza/pantrychef/backend/internal/service"
)

// MockRecipeService is a mock implementation of service.IRecipeService
type MockRecipeService struct {
	mock.Mock
}

var _ service.IRecipeService = (*MockRecipeService)(nil)

// Generate mocks the Generate method
func (m *MockRecipeService) Generate(ctx context.Context, userID uuid.UUID, req service.GenerateRequest) (*service.GenerationResult, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.GenerationResult), args.Error(1)
}

// GetConsulta mocks the GetConsulta method
func (m *MockRecipeService) GetConsulta(ctx context.Context, userID, id uuid.UUID) (*models.Consulta, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Consulta), args.Error(1)
}

// ListConsultas mocks the ListConsultas method
func (m *MockRecipeService) ListConsultas(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]models.Consulta, error) {
	args := m.Called(ctx, userID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Consulta), args.Error(1)
}

// SimilarConsultas mocks the SimilarConsultas method
func (m *MockRecipeService) SimilarConsultas(ctx context.Context, userID uuid.UUID, limit int) ([]models.Consulta, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Consulta), args.Error(1)
}

// Quota mocks the Quota method
func (m *MockRecipeService) Quota(ctx context.Context, userID uuid.UUID) (ratelimit.Policy, ratelimit.Decision, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(ratelimit.Policy), args.Get(1).(ratelimit.Decision), args.Error(2)
}

// MockCookingService is a mock implementation of service.ICookingService
type MockCookingService struct {
	mock.Mock
}

var _ service.ICookingService = (*MockCookingService)(nil)

// Cook mocks the Cook method
func (m *MockCookingService) Cook(ctx context.Context, userID uuid.UUID, req service.CookRequest) (*service.CookResult, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.CookResult), args.Error(1)
}

// Stock mocks the Stock method
func (m *MockCookingService) Stock(ctx context.Context, userID uuid.UUID) ([]models.StockItem, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.StockItem), args.Error(1)
}

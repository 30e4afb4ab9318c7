package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/bluff-table/bluff-table/internal/domain/game"
)

// MockResultRepository is a mock implementation of game.ResultRepository
type MockResultRepository struct {
	mock.Mock
}

func (m *MockResultRepository) SaveResult(ctx context.Context, result *game.GameResult) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}

func (m *MockResultRepository) ListResults(ctx context.Context, limit, offset int) ([]*game.GameResult, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*game.GameResult), args.Error(1)
}

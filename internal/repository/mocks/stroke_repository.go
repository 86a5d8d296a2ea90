package mocks

import (
	"context"

	"inkboard/internal/domain"

	"github.com/stretchr/testify/mock"
)

// StrokeRepository 是 repository.StrokeRepository 的 testify Mock 实现，
// 供 service 层测试使用。
type StrokeRepository struct {
	mock.Mock
}

func (m *StrokeRepository) Init(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *StrokeRepository) Insert(ctx context.Context, stroke domain.Stroke, simplifyTolerance float64) error {
	args := m.Called(ctx, stroke, simplifyTolerance)
	return args.Error(0)
}

func (m *StrokeRepository) Undo(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *StrokeRepository) Clear(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *StrokeRepository) Reload(ctx context.Context) ([]domain.Stroke, error) {
	args := m.Called(ctx)
	var strokes []domain.Stroke
	if args.Get(0) != nil {
		strokes = args.Get(0).([]domain.Stroke)
	}
	return strokes, args.Error(1)
}

func (m *StrokeRepository) GeometryCapable() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *StrokeRepository) Checkpoint(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *StrokeRepository) Close() error {
	args := m.Called()
	return args.Error(0)
}

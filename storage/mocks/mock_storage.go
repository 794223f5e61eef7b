package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"go-htmlcsstoimage/types"
)

// MockStorage is a mock Storage interface
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) Create(ctx context.Context, tpl types.Template) (types.Template, error) {
	args := m.Called(ctx, tpl)
	return args.Get(0).(types.Template), args.Error(1)
}

func (m *MockStorage) AddVersion(ctx context.Context, tpl types.Template) (types.Template, error) {
	args := m.Called(ctx, tpl)
	return args.Get(0).(types.Template), args.Error(1)
}

func (m *MockStorage) Get(ctx context.Context, templateID string, version *int64) (types.Template, error) {
	args := m.Called(ctx, templateID, version)
	return args.Get(0).(types.Template), args.Error(1)
}

func (m *MockStorage) List(ctx context.Context, count int, maxVersion *int64) (types.PaginatedTemplates, error) {
	args := m.Called(ctx, count, maxVersion)
	return args.Get(0).(types.PaginatedTemplates), args.Error(1)
}

func (m *MockStorage) ListVersions(ctx context.Context, templateID string, count int, maxVersion *int64) (types.PaginatedTemplates, error) {
	args := m.Called(ctx, templateID, count, maxVersion)
	return args.Get(0).(types.PaginatedTemplates), args.Error(1)
}

func (m *MockStorage) IncrementRenderCount(ctx context.Context, templateID string, version int64) error {
	args := m.Called(ctx, templateID, version)
	return args.Error(0)
}

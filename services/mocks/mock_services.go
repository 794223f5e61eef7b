package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"go-htmlcsstoimage/types"
)

// MockSigningService is a mock SigningService interface
type MockSigningService struct {
	mock.Mock
}

func (m *MockSigningService) RenderURL(ctx context.Context, req types.URLImageRequest, format types.ImageFormat) (types.SignedURLResponse, error) {
	args := m.Called(ctx, req, format)
	return args.Get(0).(types.SignedURLResponse), args.Error(1)
}

func (m *MockSigningService) TemplatedURL(ctx context.Context, req types.TemplatedImageRequest, format types.ImageFormat) (types.SignedURLResponse, error) {
	args := m.Called(ctx, req, format)
	return args.Get(0).(types.SignedURLResponse), args.Error(1)
}

func (m *MockSigningService) VerifyRenderURL(ctx context.Context, apiID, tok, format, rawQuery string) (types.VerifiedURLResponse, error) {
	args := m.Called(ctx, apiID, tok, format, rawQuery)
	return args.Get(0).(types.VerifiedURLResponse), args.Error(1)
}

func (m *MockSigningService) VerifyTemplatedURL(ctx context.Context, templateID, tok, format, rawQuery string) (types.VerifiedURLResponse, error) {
	args := m.Called(ctx, templateID, tok, format, rawQuery)
	return args.Get(0).(types.VerifiedURLResponse), args.Error(1)
}

// MockTemplateService is a mock TemplateService interface
type MockTemplateService struct {
	mock.Mock
}

func (m *MockTemplateService) CreateTemplate(ctx context.Context, req types.CreateTemplateRequest) (types.CreateTemplateResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(types.CreateTemplateResponse), args.Error(1)
}

func (m *MockTemplateService) CreateTemplateVersion(ctx context.Context, templateID string, req types.CreateTemplateRequest) (types.CreateTemplateResponse, error) {
	args := m.Called(ctx, templateID, req)
	return args.Get(0).(types.CreateTemplateResponse), args.Error(1)
}

func (m *MockTemplateService) GetTemplate(ctx context.Context, templateID string, version *int64) (types.Template, error) {
	args := m.Called(ctx, templateID, version)
	return args.Get(0).(types.Template), args.Error(1)
}

func (m *MockTemplateService) ListTemplates(ctx context.Context, count int, maxVersion *int64) (types.PaginatedTemplates, error) {
	args := m.Called(ctx, count, maxVersion)
	return args.Get(0).(types.PaginatedTemplates), args.Error(1)
}

func (m *MockTemplateService) ListTemplateVersions(ctx context.Context, templateID string, count int, maxVersion *int64) (types.PaginatedTemplates, error) {
	args := m.Called(ctx, templateID, count, maxVersion)
	return args.Get(0).(types.PaginatedTemplates), args.Error(1)
}

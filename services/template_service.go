package services

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"go-htmlcsstoimage/storage"
	"go-htmlcsstoimage/types"
	"go-htmlcsstoimage/urlgen"
	"go-htmlcsstoimage/utils"
)

// maxIDAttempts bounds retries when a generated template id is already taken.
const maxIDAttempts = 3

// TemplateService manages the template registry.
type TemplateService interface {
	CreateTemplate(ctx context.Context, req types.CreateTemplateRequest) (types.CreateTemplateResponse, error)
	CreateTemplateVersion(ctx context.Context, templateID string, req types.CreateTemplateRequest) (types.CreateTemplateResponse, error)
	GetTemplate(ctx context.Context, templateID string, version *int64) (types.Template, error)
	ListTemplates(ctx context.Context, count int, maxVersion *int64) (types.PaginatedTemplates, error)
	ListTemplateVersions(ctx context.Context, templateID string, count int, maxVersion *int64) (types.PaginatedTemplates, error)
}

type templateService struct {
	store  storage.Storage
	logger *zap.Logger
}

// NewTemplateService creates a TemplateService backed by store.
func NewTemplateService(store storage.Storage, logger *zap.Logger) TemplateService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &templateService{store: store, logger: logger}
}

func (s *templateService) CreateTemplate(ctx context.Context, req types.CreateTemplateRequest) (types.CreateTemplateResponse, error) {
	for attempt := 1; ; attempt++ {
		templateID, err := utils.GenerateTemplateID()
		if err != nil {
			return types.CreateTemplateResponse{}, err
		}

		stored, err := s.store.Create(ctx, types.TemplateFromRequest(templateID, req))
		if errors.Is(err, storage.ErrTemplateExists) && attempt < maxIDAttempts {
			s.logger.Warn("Generated template id collided", zap.String("templateID", templateID))
			continue
		}
		if err != nil {
			return types.CreateTemplateResponse{}, handleStorageError(err)
		}
		return types.CreateTemplateResponse{TemplateID: stored.TemplateID, TemplateVersion: stored.TemplateVersion}, nil
	}
}

func (s *templateService) CreateTemplateVersion(ctx context.Context, templateID string, req types.CreateTemplateRequest) (types.CreateTemplateResponse, error) {
	stored, err := s.store.AddVersion(ctx, types.TemplateFromRequest(templateID, req))
	if err != nil {
		return types.CreateTemplateResponse{}, handleStorageError(err)
	}
	return types.CreateTemplateResponse{TemplateID: stored.TemplateID, TemplateVersion: stored.TemplateVersion}, nil
}

func (s *templateService) GetTemplate(ctx context.Context, templateID string, version *int64) (types.Template, error) {
	tpl, err := s.store.Get(ctx, templateID, version)
	if err != nil {
		return types.Template{}, handleStorageError(err)
	}
	return tpl, nil
}

func (s *templateService) ListTemplates(ctx context.Context, count int, maxVersion *int64) (types.PaginatedTemplates, error) {
	page, err := s.store.List(ctx, urlgen.ClampCount(count), maxVersion)
	if err != nil {
		return types.PaginatedTemplates{}, handleStorageError(err)
	}
	return page, nil
}

func (s *templateService) ListTemplateVersions(ctx context.Context, templateID string, count int, maxVersion *int64) (types.PaginatedTemplates, error) {
	page, err := s.store.ListVersions(ctx, templateID, urlgen.ClampCount(count), maxVersion)
	if err != nil {
		return types.PaginatedTemplates{}, handleStorageError(err)
	}
	return page, nil
}

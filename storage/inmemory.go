package storage

import (
	"context"
	"slices"
	"sync"
	"time"

	"go-htmlcsstoimage/types"
	"go.uber.org/zap"
)

// InMemoryStorage implements the Storage interface with maps guarded by a RWMutex.
type InMemoryStorage struct {
	templates map[string][]types.Template // versions in ascending order
	mu        sync.RWMutex
	capacity  int   // maximum number of stored versions
	count     int   // current number of stored versions
	seq       int64 // last issued version
	logger    *zap.Logger
}

// NewInMemoryStorage creates and returns a new InMemoryStorage instance.
func NewInMemoryStorage(capacity int, logger *zap.Logger) *InMemoryStorage {
	if capacity <= 0 {
		capacity = 1000
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InMemoryStorage{
		templates: make(map[string][]types.Template),
		capacity:  capacity,
		logger:    logger,
	}
}

// Create stores the first version of a new template.
func (s *InMemoryStorage) Create(ctx context.Context, tpl types.Template) (types.Template, error) {
	select {
	case <-ctx.Done():
		s.logger.Warn("Create operation cancelled", zap.String("templateID", tpl.TemplateID))
		return types.Template{}, ctx.Err()
	default:
		s.mu.Lock()
		defer s.mu.Unlock()

		if _, exists := s.templates[tpl.TemplateID]; exists {
			s.logger.Warn("Attempt to create duplicate template", zap.String("templateID", tpl.TemplateID))
			return types.Template{}, ErrTemplateExists
		}
		return s.store(tpl)
	}
}

// AddVersion stores a new version of an existing template.
func (s *InMemoryStorage) AddVersion(ctx context.Context, tpl types.Template) (types.Template, error) {
	select {
	case <-ctx.Done():
		s.logger.Warn("AddVersion operation cancelled", zap.String("templateID", tpl.TemplateID))
		return types.Template{}, ctx.Err()
	default:
		s.mu.Lock()
		defer s.mu.Unlock()

		if _, exists := s.templates[tpl.TemplateID]; !exists {
			s.logger.Warn("Attempt to version non-existent template", zap.String("templateID", tpl.TemplateID))
			return types.Template{}, ErrTemplateNotFound
		}
		return s.store(tpl)
	}
}

// store must be called with s.mu held.
func (s *InMemoryStorage) store(tpl types.Template) (types.Template, error) {
	if s.count >= s.capacity {
		s.logger.Error("Storage capacity reached. Cannot store template", zap.String("templateID", tpl.TemplateID))
		return types.Template{}, ErrStorageCapacityReached
	}

	s.seq++
	tpl.TemplateVersion = s.seq
	tpl.ImageCount = 0
	tpl.CreatedAt = time.Now().UTC()
	tpl.UpdatedAt = tpl.CreatedAt
	s.templates[tpl.TemplateID] = append(s.templates[tpl.TemplateID], tpl)
	s.count++
	s.logger.Info("Template stored",
		zap.String("templateID", tpl.TemplateID),
		zap.Int64("version", tpl.TemplateVersion))
	return tpl, nil
}

// Get returns one version of a template, or the latest when version is nil.
func (s *InMemoryStorage) Get(ctx context.Context, templateID string, version *int64) (types.Template, error) {
	select {
	case <-ctx.Done():
		s.logger.Warn("Get operation cancelled", zap.String("templateID", templateID))
		return types.Template{}, ctx.Err()
	default:
		s.mu.RLock()
		defer s.mu.RUnlock()

		i, err := s.find(templateID, version)
		if err != nil {
			return types.Template{}, err
		}
		return s.templates[templateID][i], nil
	}
}

// find must be called with s.mu held.
func (s *InMemoryStorage) find(templateID string, version *int64) (int, error) {
	versions, exists := s.templates[templateID]
	if !exists {
		return 0, ErrTemplateNotFound
	}
	if version == nil {
		return len(versions) - 1, nil
	}
	i, found := slices.BinarySearchFunc(versions, *version, func(t types.Template, v int64) int {
		switch {
		case t.TemplateVersion < v:
			return -1
		case t.TemplateVersion > v:
			return 1
		default:
			return 0
		}
	})
	if !found {
		return 0, ErrTemplateNotFound
	}
	return i, nil
}

// List returns the latest version of every template, newest first.
func (s *InMemoryStorage) List(ctx context.Context, count int, maxVersion *int64) (types.PaginatedTemplates, error) {
	select {
	case <-ctx.Done():
		return types.PaginatedTemplates{}, ctx.Err()
	default:
		s.mu.RLock()
		latest := make([]types.Template, 0, len(s.templates))
		for _, versions := range s.templates {
			latest = append(latest, versions[len(versions)-1])
		}
		s.mu.RUnlock()

		sortNewestFirst(latest)
		return paginate(latest, count, maxVersion), nil
	}
}

// ListVersions returns the versions of one template, newest first.
func (s *InMemoryStorage) ListVersions(ctx context.Context, templateID string, count int, maxVersion *int64) (types.PaginatedTemplates, error) {
	select {
	case <-ctx.Done():
		return types.PaginatedTemplates{}, ctx.Err()
	default:
		s.mu.RLock()
		versions, exists := s.templates[templateID]
		if !exists {
			s.mu.RUnlock()
			return types.PaginatedTemplates{}, ErrTemplateNotFound
		}
		sorted := slices.Clone(versions)
		s.mu.RUnlock()

		slices.Reverse(sorted)
		return paginate(sorted, count, maxVersion), nil
	}
}

// IncrementRenderCount records one render of a template version.
func (s *InMemoryStorage) IncrementRenderCount(ctx context.Context, templateID string, version int64) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		s.mu.Lock()
		defer s.mu.Unlock()

		i, err := s.find(templateID, &version)
		if err != nil {
			return err
		}
		tpl := &s.templates[templateID][i]
		tpl.ImageCount++
		tpl.UpdatedAt = time.Now().UTC()
		s.logger.Debug("Template rendered",
			zap.String("templateID", templateID),
			zap.Int64("version", version),
			zap.Uint64("renderCount", tpl.ImageCount))
		return nil
	}
}

func sortNewestFirst(templates []types.Template) {
	slices.SortFunc(templates, func(a, b types.Template) int {
		switch {
		case a.TemplateVersion > b.TemplateVersion:
			return -1
		case a.TemplateVersion < b.TemplateVersion:
			return 1
		default:
			return 0
		}
	})
}

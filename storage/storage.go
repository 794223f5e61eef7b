// Package storage provides the template registry backends.
package storage

import (
	"context"
	"errors"

	"go-htmlcsstoimage/types"
)

// Common errors returned by storage operations.
var (
	ErrTemplateExists         = errors.New("template already exists")
	ErrTemplateNotFound       = errors.New("template not found")
	ErrStorageCapacityReached = errors.New("storage capacity reached")
)

// Storage keeps versioned templates. Versions come from one sequence shared by
// all templates, so a version number identifies a single stored template.
type Storage interface {
	// Create stores the first version of a new template.
	Create(ctx context.Context, tpl types.Template) (types.Template, error)
	// AddVersion stores a new version of an existing template.
	AddVersion(ctx context.Context, tpl types.Template) (types.Template, error)
	// Get returns one version of a template, or the latest when version is nil.
	Get(ctx context.Context, templateID string, version *int64) (types.Template, error)
	// List returns the latest version of every template, newest first.
	List(ctx context.Context, count int, maxVersion *int64) (types.PaginatedTemplates, error)
	// ListVersions returns the versions of one template, newest first.
	ListVersions(ctx context.Context, templateID string, count int, maxVersion *int64) (types.PaginatedTemplates, error)
	// IncrementRenderCount records one render of a template version.
	IncrementRenderCount(ctx context.Context, templateID string, version int64) error
}

// paginate cuts one page out of templates sorted by version, newest first.
func paginate(sorted []types.Template, count int, maxVersion *int64) types.PaginatedTemplates {
	start := 0
	if maxVersion != nil {
		for start < len(sorted) && sorted[start].TemplateVersion > *maxVersion {
			start++
		}
	}
	sorted = sorted[start:]

	page := types.PaginatedTemplates{Data: []types.Template{}}
	if count < len(sorted) {
		next := sorted[count].TemplateVersion
		page.Pagination.NextPageStart = &next
		sorted = sorted[:count]
	}
	page.Data = append(page.Data, sorted...)
	return page
}

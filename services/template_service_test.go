package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"go-htmlcsstoimage/storage"
	"go-htmlcsstoimage/storage/mocks"
	"go-htmlcsstoimage/types"
	"go-htmlcsstoimage/utils"
)

func TestHandleStorageError(t *testing.T) {
	other := errors.New("other")
	tests := []struct {
		in, want error
	}{
		{storage.ErrTemplateExists, ErrTemplateExists},
		{storage.ErrTemplateNotFound, ErrTemplateNotFound},
		{storage.ErrStorageCapacityReached, ErrStorageCapacityReached},
		{other, other},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, handleStorageError(tt.in))
	}
}

func TestCreateTemplate(t *testing.T) {
	ctx := context.Background()
	req := types.CreateTemplateRequest{HTML: "<h1>{{title}}</h1>", CSS: "h1{color:red}"}

	t.Run("Success", func(t *testing.T) {
		store := new(mocks.MockStorage)
		svc := NewTemplateService(store, zap.NewNop())

		store.On("Create", mock.Anything, mock.MatchedBy(func(tpl types.Template) bool {
			return strings.HasPrefix(tpl.TemplateID, utils.TemplateIDPrefix) && tpl.HTML == req.HTML && tpl.CSS == req.CSS
		})).Return(types.Template{TemplateID: "tpl_abc", TemplateVersion: 1}, nil)

		resp, err := svc.CreateTemplate(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, types.CreateTemplateResponse{TemplateID: "tpl_abc", TemplateVersion: 1}, resp)
		store.AssertExpectations(t)
	})

	t.Run("Retries id collisions", func(t *testing.T) {
		store := new(mocks.MockStorage)
		svc := NewTemplateService(store, zap.NewNop())

		store.On("Create", mock.Anything, mock.Anything).Return(types.Template{}, storage.ErrTemplateExists).Once()
		store.On("Create", mock.Anything, mock.Anything).Return(types.Template{TemplateID: "tpl_b", TemplateVersion: 2}, nil).Once()

		resp, err := svc.CreateTemplate(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, "tpl_b", resp.TemplateID)
		store.AssertNumberOfCalls(t, "Create", 2)
	})

	t.Run("Gives up after repeated collisions", func(t *testing.T) {
		store := new(mocks.MockStorage)
		svc := NewTemplateService(store, zap.NewNop())

		store.On("Create", mock.Anything, mock.Anything).Return(types.Template{}, storage.ErrTemplateExists)

		_, err := svc.CreateTemplate(ctx, req)
		assert.ErrorIs(t, err, ErrTemplateExists)
		store.AssertNumberOfCalls(t, "Create", maxIDAttempts)
	})

	t.Run("Capacity", func(t *testing.T) {
		store := new(mocks.MockStorage)
		svc := NewTemplateService(store, zap.NewNop())

		store.On("Create", mock.Anything, mock.Anything).Return(types.Template{}, storage.ErrStorageCapacityReached)

		_, err := svc.CreateTemplate(ctx, req)
		assert.ErrorIs(t, err, ErrStorageCapacityReached)
	})
}

func TestCreateTemplateVersion(t *testing.T) {
	ctx := context.Background()
	req := types.CreateTemplateRequest{HTML: "<h2></h2>"}

	store := new(mocks.MockStorage)
	svc := NewTemplateService(store, nil)

	store.On("AddVersion", mock.Anything, types.TemplateFromRequest("tpl_a", req)).Return(types.Template{TemplateID: "tpl_a", TemplateVersion: 7}, nil)
	store.On("AddVersion", mock.Anything, types.TemplateFromRequest("missing", req)).Return(types.Template{}, storage.ErrTemplateNotFound)

	resp, err := svc.CreateTemplateVersion(ctx, "tpl_a", req)
	require.NoError(t, err)
	assert.Equal(t, int64(7), resp.TemplateVersion)

	_, err = svc.CreateTemplateVersion(ctx, "missing", req)
	assert.ErrorIs(t, err, ErrTemplateNotFound)
}

func TestGetTemplate(t *testing.T) {
	store := new(mocks.MockStorage)
	svc := NewTemplateService(store, nil)

	store.On("Get", mock.Anything, "tpl_a", (*int64)(nil)).Return(types.Template{TemplateID: "tpl_a", TemplateVersion: 3}, nil)
	store.On("Get", mock.Anything, "missing", (*int64)(nil)).Return(types.Template{}, storage.ErrTemplateNotFound)

	tpl, err := svc.GetTemplate(context.Background(), "tpl_a", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), tpl.TemplateVersion)

	_, err = svc.GetTemplate(context.Background(), "missing", nil)
	assert.ErrorIs(t, err, ErrTemplateNotFound)
}

func TestListTemplates(t *testing.T) {
	ctx := context.Background()
	page := types.PaginatedTemplates{Data: []types.Template{{TemplateID: "tpl_a", TemplateVersion: 4}}}

	tests := []struct {
		name  string
		count int
		want  int
	}{
		{"default", 0, 10},
		{"clamped", 1000, 100},
		{"kept", 25, 25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(mocks.MockStorage)
			svc := NewTemplateService(store, nil)
			store.On("List", mock.Anything, tt.want, (*int64)(nil)).Return(page, nil)
			store.On("ListVersions", mock.Anything, "tpl_a", tt.want, types.Ptr[int64](4)).Return(page, nil)

			got, err := svc.ListTemplates(ctx, tt.count, nil)
			require.NoError(t, err)
			assert.Equal(t, page, got)

			got, err = svc.ListTemplateVersions(ctx, "tpl_a", tt.count, types.Ptr[int64](4))
			require.NoError(t, err)
			assert.Equal(t, page, got)
			store.AssertExpectations(t)
		})
	}

	t.Run("unknown template", func(t *testing.T) {
		store := new(mocks.MockStorage)
		svc := NewTemplateService(store, nil)
		store.On("ListVersions", mock.Anything, "missing", 10, (*int64)(nil)).Return(types.PaginatedTemplates{}, storage.ErrTemplateNotFound)

		_, err := svc.ListTemplateVersions(ctx, "missing", 0, nil)
		assert.ErrorIs(t, err, ErrTemplateNotFound)
	})
}

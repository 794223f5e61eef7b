package mocks

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
)

type MockHandler struct {
	mock.Mock
}

func (m *MockHandler) SignRenderURL(c *gin.Context) {
	m.Called(c)
}

func (m *MockHandler) SignTemplatedURL(c *gin.Context) {
	m.Called(c)
}

func (m *MockHandler) CreateTemplate(c *gin.Context) {
	m.Called(c)
}

func (m *MockHandler) CreateTemplateVersion(c *gin.Context) {
	m.Called(c)
}

func (m *MockHandler) ListTemplates(c *gin.Context) {
	m.Called(c)
}

func (m *MockHandler) ListTemplateVersions(c *gin.Context) {
	m.Called(c)
}

func (m *MockHandler) RenderImage(c *gin.Context) {
	m.Called(c)
}

func (m *MockHandler) RenderTemplatedImage(c *gin.Context) {
	m.Called(c)
}

func (m *MockHandler) HealthCheck(c *gin.Context) {
	m.Called(c)
}

func (m *MockHandler) RateLimitMiddleware(ctx context.Context) gin.HandlerFunc {
	args := m.Called(ctx)
	return args.Get(0).(gin.HandlerFunc)
}

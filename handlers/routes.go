package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"go-htmlcsstoimage/config"
)

// RegisterRoutes sets up all the routes of the gateway and applies CORS and,
// unless disabled, per-IP rate limiting. Template routes require Basic auth
// with the API credentials. Background work started here ends with ctx.
func RegisterRoutes(ctx context.Context, r *gin.Engine, handler HandlerInterface, config *config.Config) {
	r.Use(CORSMiddleware())

	var limited []gin.HandlerFunc
	if !config.DisableRateLimit {
		limited = append(limited, handler.RateLimitMiddleware(ctx))
	}

	r.GET("/health", append(limited, handler.HealthCheck)...)

	api := r.Group("/api/v1", limited...)
	{
		urls := api.Group("/urls")
		urls.POST("/render", handler.SignRenderURL)
		urls.POST("/templated", handler.SignTemplatedURL)
	}

	v1 := r.Group("/v1", limited...)
	{
		template := v1.Group("/template", BasicAuthMiddleware(config.APIID, config.APIKey))
		template.POST("", handler.CreateTemplate)
		template.GET("", handler.ListTemplates)
		template.POST("/:template_id", handler.CreateTemplateVersion)
		template.GET("/:template_id", handler.ListTemplateVersions)

		image := v1.Group("/image")
		image.GET("/create-and-render/:id/:token", handler.RenderImage)
		image.GET("/create-and-render/:id/:token/:format", handler.RenderImage)
		image.GET("/:template_id/:token", handler.RenderTemplatedImage)
		image.GET("/:template_id/:token/:format", handler.RenderTemplatedImage)
	}
}

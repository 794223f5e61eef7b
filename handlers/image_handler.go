package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// RenderImage verifies a signed create-and-render URL. The token must match
// the raw query exactly as received.
func (h *Handler) RenderImage(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.config.RequestTimeout)
	defer cancel()

	resp, err := h.signing.VerifyRenderURL(ctx, c.Param("id"), c.Param("token"), c.Param("format"), c.Request.URL.RawQuery)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// RenderTemplatedImage verifies a signed templated image URL.
func (h *Handler) RenderTemplatedImage(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.config.RequestTimeout)
	defer cancel()

	resp, err := h.signing.VerifyTemplatedURL(ctx, c.Param("template_id"), c.Param("token"), c.Param("format"), c.Request.URL.RawQuery)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

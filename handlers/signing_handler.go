package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"go-htmlcsstoimage/types"
)

// SignRenderURL returns a signed create-and-render URL for the request body.
func (h *Handler) SignRenderURL(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.config.RequestTimeout)
	defer cancel()

	var input types.SignRenderRequest
	if !h.bindAndValidate(c, &input) {
		return
	}

	resp, err := h.signing.RenderURL(ctx, input.URLImageRequest, input.Format)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// SignTemplatedURL returns a signed templated image URL for the request body.
func (h *Handler) SignTemplatedURL(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.config.RequestTimeout)
	defer cancel()

	var input types.SignTemplatedRequest
	if !h.bindAndValidate(c, &input) {
		return
	}

	resp, err := h.signing.TemplatedURL(ctx, input.TemplatedImageRequest, input.Format)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

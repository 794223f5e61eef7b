package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"go-htmlcsstoimage/types"
)

// CreateTemplate registers a new template.
func (h *Handler) CreateTemplate(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.config.RequestTimeout)
	defer cancel()

	var input types.CreateTemplateRequest
	if !h.bindAndValidate(c, &input) {
		return
	}

	resp, err := h.templates.CreateTemplate(ctx, input)
	if err != nil {
		h.handleError(c, err)
		return
	}
	h.logger.Info("Template created", zap.String("templateID", resp.TemplateID), zap.Int64("version", resp.TemplateVersion))
	c.JSON(http.StatusCreated, resp)
}

// CreateTemplateVersion stores a new version of an existing template.
func (h *Handler) CreateTemplateVersion(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.config.RequestTimeout)
	defer cancel()

	var input types.CreateTemplateRequest
	if !h.bindAndValidate(c, &input) {
		return
	}

	resp, err := h.templates.CreateTemplateVersion(ctx, c.Param("template_id"), input)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// ListTemplates returns a page of templates, latest version of each.
func (h *Handler) ListTemplates(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.config.RequestTimeout)
	defer cancel()

	count, maxVersion, ok := pageParams(c)
	if !ok {
		return
	}

	page, err := h.templates.ListTemplates(ctx, count, maxVersion)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// ListTemplateVersions returns a page of versions of one template.
func (h *Handler) ListTemplateVersions(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.config.RequestTimeout)
	defer cancel()

	count, maxVersion, ok := pageParams(c)
	if !ok {
		return
	}

	page, err := h.templates.ListTemplateVersions(ctx, c.Param("template_id"), count, maxVersion)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// pageParams reads count and max_version. A missing count is 0, which the
// service turns into the default page size.
func pageParams(c *gin.Context) (int, *int64, bool) {
	var count int
	if raw := c.Query("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			respond(c, http.StatusBadRequest, invalidParameterValues, []types.ValidationError{{Path: "count", Message: "must be an integer"}})
			return 0, nil, false
		}
		count = n
	}

	var maxVersion *int64
	if raw := c.Query("max_version"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			respond(c, http.StatusBadRequest, invalidParameterValues, []types.ValidationError{{Path: "max_version", Message: "must be an integer"}})
			return 0, nil, false
		}
		maxVersion = &v
	}
	return count, maxVersion, true
}

// Package handlers provides the HTTP handlers of the signing gateway.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"go-htmlcsstoimage/config"
	"go-htmlcsstoimage/services"
	"go-htmlcsstoimage/types"
)

const (
	invalidParameterValues = "Invalid parameter values"
	invalidRequestBody     = "Invalid request body"
	signatureMismatch      = "Signature does not match"
	unauthorized           = "Invalid API credentials"
	templateNotFound       = "Template not found"
	templateExists         = "Template already exists"
	storageCapacityFull    = "Storage capacity reached"
	errorTimeout           = "Request timed out"
	errorCancelled         = "Request cancelled"
	internalServerError    = "Internal server error"
)

// statusClientClosedRequest is the non-standard code for a request whose
// client went away before the response was ready.
const statusClientClosedRequest = 499

// HandlerInterface defines the methods that the gateway handler implements.
type HandlerInterface interface {
	SignRenderURL(c *gin.Context)
	SignTemplatedURL(c *gin.Context)
	CreateTemplate(c *gin.Context)
	CreateTemplateVersion(c *gin.Context)
	ListTemplates(c *gin.Context)
	ListTemplateVersions(c *gin.Context)
	RenderImage(c *gin.Context)
	RenderTemplatedImage(c *gin.Context)
	HealthCheck(c *gin.Context)
	RateLimitMiddleware(ctx context.Context) gin.HandlerFunc
}

// Handler holds the dependencies of the gateway endpoints.
type Handler struct {
	signing   services.SigningService
	templates services.TemplateService
	validate  *validator.Validate
	config    *config.Config
	logger    *zap.Logger
}

// NewHandler creates and returns a new Handler.
func NewHandler(ctx context.Context, signing services.SigningService, templates services.TemplateService, cfg *config.Config, logger *zap.Logger) (HandlerInterface, error) {
	if signing == nil || templates == nil {
		return nil, errors.New("service cannot be nil")
	}
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.RateLimit <= 0 || cfg.RatePeriod <= 0 {
		return nil, errors.New("invalid rate limit configuration")
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	return &Handler{
		signing:   signing,
		templates: templates,
		validate:  newValidator(),
		config:    cfg,
		logger:    logger,
	}, nil
}

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func statusText(status int) string {
	if status == statusClientClosedRequest {
		return "Client Closed Request"
	}
	return http.StatusText(status)
}

// respond writes an ErrorDetails payload.
func respond(c *gin.Context, status int, message string, validationErrors []types.ValidationError) {
	c.JSON(status, types.ErrorDetails{
		Message:          message,
		Error:            statusText(status),
		ValidationErrors: validationErrors,
	})
}

// bindAndValidate decodes the JSON body into input and runs struct validation.
// It writes the error response itself and reports whether the handler may go on.
func (h *Handler) bindAndValidate(c *gin.Context, input any) bool {
	if err := c.ShouldBindJSON(input); err != nil {
		h.logger.Warn("Error decoding request body", zap.Error(err))
		respond(c, http.StatusBadRequest, invalidRequestBody, []types.ValidationError{{Path: "", Message: err.Error()}})
		return false
	}

	if err := h.validate.Struct(input); err != nil {
		var fieldErrors validator.ValidationErrors
		if !errors.As(err, &fieldErrors) {
			h.logger.Error("Validation failed", zap.Error(err))
			respond(c, http.StatusBadRequest, invalidParameterValues, nil)
			return false
		}
		details := make([]types.ValidationError, 0, len(fieldErrors))
		for _, fe := range fieldErrors {
			details = append(details, types.ValidationError{
				Path:    fe.Field(),
				Message: fmt.Sprintf("failed on the '%s' rule", fe.Tag()),
			})
		}
		h.logger.Warn("Invalid input", zap.Int("fields", len(details)))
		respond(c, http.StatusBadRequest, invalidParameterValues, details)
		return false
	}
	return true
}

// handleError maps service errors to HTTP responses.
func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case services.IsValidationError(err):
		respond(c, http.StatusBadRequest, invalidParameterValues, []types.ValidationError{{Message: err.Error()}})
	case errors.Is(err, services.ErrSignatureMismatch):
		respond(c, http.StatusUnauthorized, signatureMismatch, nil)
	case errors.Is(err, services.ErrTemplateNotFound):
		respond(c, http.StatusNotFound, templateNotFound, nil)
	case errors.Is(err, services.ErrTemplateExists):
		respond(c, http.StatusConflict, templateExists, nil)
	case errors.Is(err, services.ErrStorageCapacityReached):
		respond(c, http.StatusInsufficientStorage, storageCapacityFull, nil)
	case errors.Is(err, context.DeadlineExceeded):
		respond(c, http.StatusRequestTimeout, errorTimeout, nil)
	case errors.Is(err, context.Canceled):
		h.logger.Debug("Request cancelled", zap.String("path", c.FullPath()))
		respond(c, statusClientClosedRequest, errorCancelled, nil)
	default:
		h.logger.Error("Unexpected error", zap.Error(err), zap.String("path", c.FullPath()))
		respond(c, http.StatusInternalServerError, internalServerError, nil)
	}
}

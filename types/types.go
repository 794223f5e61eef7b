// Package types defines the requests and responses of the rendering service
// and of the signing gateway.
package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go-htmlcsstoimage/querystring"
)

var (
	// ErrUnknownFormat is returned for an image format other than png, jpg or webp.
	ErrUnknownFormat = errors.New("unknown image format")
	// ErrInvalidTemplateValues is returned when template values do not serialize to a JSON object.
	ErrInvalidTemplateValues = errors.New("template values must serialize to a JSON object")
	// ErrMissingSerializer is returned when no marshal function is supplied for template values.
	ErrMissingSerializer = errors.New("a marshal function is required for template values")
)

// ImageFormat is the output format of a rendered image.
type ImageFormat int

// Supported image formats. PNG is the default and adds no path segment.
const (
	PNG ImageFormat = iota
	JPG
	WEBP
)

// Extension returns the lowercase format name without a dot.
func (f ImageFormat) Extension() string {
	switch f {
	case PNG:
		return "png"
	case JPG:
		return "jpg"
	case WEBP:
		return "webp"
	default:
		return ""
	}
}

// String implements fmt.Stringer.
func (f ImageFormat) String() string {
	if ext := f.Extension(); ext != "" {
		return ext
	}
	return fmt.Sprintf("ImageFormat(%d)", int(f))
}

// Valid reports whether f is one of the supported formats.
func (f ImageFormat) Valid() bool { return f.Extension() != "" }

// ParseImageFormat parses a format name. An empty name is PNG.
func ParseImageFormat(s string) (ImageFormat, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "", "png":
		return PNG, nil
	case "jpg", "jpeg":
		return JPG, nil
	case "webp":
		return WEBP, nil
	default:
		return PNG, fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (f ImageFormat) MarshalText() ([]byte, error) {
	if !f.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownFormat, int(f))
	}
	return []byte(f.Extension()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *ImageFormat) UnmarshalText(text []byte) error {
	parsed, err := ParseImageFormat(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// ColorScheme forces the page's prefers-color-scheme.
type ColorScheme string

// Supported color schemes. The zero value leaves the page default.
const (
	ColorSchemeLight ColorScheme = "light"
	ColorSchemeDark  ColorScheme = "dark"
)

// Ptr returns a pointer to v. Optional numeric fields use it.
func Ptr[T any](v T) *T { return &v }

// URLImageRequest renders a screenshot of a public web page.
type URLImageRequest struct {
	URL                 string      `json:"url" validate:"required,url"`
	CSS                 string      `json:"css,omitempty"`
	FullScreen          bool        `json:"full_screen,omitempty"`
	BlockConsentBanners bool        `json:"block_consent_banners,omitempty"`
	Selector            string      `json:"selector,omitempty"`
	DeviceScale         *float64    `json:"device_scale,omitempty" validate:"omitempty,gt=0,lte=3"`
	ViewportHeight      *uint32     `json:"viewport_height,omitempty"`
	ViewportWidth       *uint32     `json:"viewport_width,omitempty"`
	MaxWaitMs           *uint32     `json:"max_wait_ms,omitempty"`
	MsDelay             *uint32     `json:"ms_delay,omitempty"`
	RenderWhenReady     bool        `json:"render_when_ready,omitempty"`
	MaxRenderOnce       bool        `json:"max_render_once,omitempty"`
	DisableTwemoji      bool        `json:"disable_twemoji,omitempty"`
	ColorScheme         ColorScheme `json:"color_scheme,omitempty" validate:"omitempty,oneof=light dark"`
	Timezone            string      `json:"timezone,omitempty"`
}

// TemplatedImageRequest renders a registered template with the given values.
// Each value holds its JSON text.
type TemplatedImageRequest struct {
	TemplateID      string                     `json:"template_id" validate:"required,excludesall=/?#%&"`
	TemplateVersion *int64                     `json:"template_version,omitempty"`
	TemplateValues  map[string]json.RawMessage `json:"template_values" validate:"required"`
}

// MarshalFunc serializes template values.
type MarshalFunc func(v any) ([]byte, error)

// NewTemplatedImageRequest serializes values with encoding/json. values may
// be a struct, a map, or anything implementing json.Marshaler, as long as the
// result is a JSON object.
func NewTemplatedImageRequest(templateID string, values any, version *int64) (TemplatedImageRequest, error) {
	return NewTemplatedImageRequestWith(templateID, values, json.Marshal, version)
}

// NewTemplatedImageRequestWith serializes values with marshal.
func NewTemplatedImageRequestWith(templateID string, values any, marshal MarshalFunc, version *int64) (TemplatedImageRequest, error) {
	if marshal == nil {
		return TemplatedImageRequest{}, ErrMissingSerializer
	}
	fields, err := TemplateValuesFrom(values, marshal)
	if err != nil {
		return TemplatedImageRequest{}, err
	}
	return TemplatedImageRequest{
		TemplateID:      templateID,
		TemplateVersion: version,
		TemplateValues:  fields,
	}, nil
}

// TemplateValuesFrom serializes values and splits the resulting object into fields.
func TemplateValuesFrom(values any, marshal MarshalFunc) (map[string]json.RawMessage, error) {
	if fields, ok := values.(map[string]json.RawMessage); ok {
		if fields == nil {
			return nil, ErrInvalidTemplateValues
		}
		return fields, nil
	}

	data, err := marshal(values)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTemplateValues, err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return nil, ErrInvalidTemplateValues
	}
	return fields, nil
}

// CreateTemplateRequest registers a template or a new version of one.
type CreateTemplateRequest struct {
	Name            string      `json:"name,omitempty" validate:"omitempty,max=255"`
	Description     string      `json:"description,omitempty"`
	HTML            string      `json:"html" validate:"required"`
	CSS             string      `json:"css,omitempty"`
	GoogleFonts     string      `json:"google_fonts,omitempty"`
	Selector        string      `json:"selector,omitempty"`
	DeviceScale     *float64    `json:"device_scale,omitempty" validate:"omitempty,gt=0,lte=3"`
	ViewportHeight  *uint32     `json:"viewport_height,omitempty"`
	ViewportWidth   *uint32     `json:"viewport_width,omitempty"`
	MaxWaitMs       *uint32     `json:"max_wait_ms,omitempty"`
	MsDelay         *uint32     `json:"ms_delay,omitempty"`
	RenderWhenReady bool        `json:"render_when_ready,omitempty"`
	MaxRenderOnce   bool        `json:"max_render_once,omitempty"`
	DisableTwemoji  bool        `json:"disable_twemoji,omitempty"`
	ColorScheme     ColorScheme `json:"color_scheme,omitempty" validate:"omitempty,oneof=light dark"`
	Timezone        string      `json:"timezone,omitempty"`
}

// Template is one stored version of a template.
type Template struct {
	TemplateID      string      `json:"id"`
	TemplateVersion int64       `json:"version"`
	ImageCount      uint64      `json:"render_count"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
	Name            string      `json:"name,omitempty"`
	Description     string      `json:"description,omitempty"`
	HTML            string      `json:"html,omitempty"`
	CSS             string      `json:"css,omitempty"`
	GoogleFonts     string      `json:"google_fonts,omitempty"`
	Selector        string      `json:"selector,omitempty"`
	DeviceScale     *float64    `json:"device_scale,omitempty"`
	ViewportHeight  *uint32     `json:"viewport_height,omitempty"`
	ViewportWidth   *uint32     `json:"viewport_width,omitempty"`
	MaxWaitMs       *uint32     `json:"max_wait_ms,omitempty"`
	MsDelay         *uint32     `json:"ms_delay,omitempty"`
	RenderWhenReady bool        `json:"render_when_ready,omitempty"`
	MaxRenderOnce   bool        `json:"max_render_once,omitempty"`
	DisableTwemoji  bool        `json:"disable_twemoji,omitempty"`
	ColorScheme     ColorScheme `json:"color_scheme,omitempty"`
	Timezone        string      `json:"timezone,omitempty"`
}

// TemplateFromRequest builds an unversioned template from a create request.
func TemplateFromRequest(templateID string, req CreateTemplateRequest) Template {
	return Template{
		TemplateID:      templateID,
		Name:            req.Name,
		Description:     req.Description,
		HTML:            req.HTML,
		CSS:             req.CSS,
		GoogleFonts:     req.GoogleFonts,
		Selector:        req.Selector,
		DeviceScale:     req.DeviceScale,
		ViewportHeight:  req.ViewportHeight,
		ViewportWidth:   req.ViewportWidth,
		MaxWaitMs:       req.MaxWaitMs,
		MsDelay:         req.MsDelay,
		RenderWhenReady: req.RenderWhenReady,
		MaxRenderOnce:   req.MaxRenderOnce,
		DisableTwemoji:  req.DisableTwemoji,
		ColorScheme:     req.ColorScheme,
		Timezone:        req.Timezone,
	}
}

// CreateTemplateResponse identifies a newly stored template version.
type CreateTemplateResponse struct {
	TemplateID      string `json:"template_id"`
	TemplateVersion int64  `json:"template_version"`
}

// PaginationInfo carries the cursor for the next page, if any.
type PaginationInfo struct {
	NextPageStart *int64 `json:"next_page_start"`
}

// PaginatedTemplates is one page of a template listing.
type PaginatedTemplates struct {
	Data       []Template     `json:"data"`
	Pagination PaginationInfo `json:"pagination"`
}

// SignedURLResponse is returned by the gateway's signing endpoints.
type SignedURLResponse struct {
	URL    string      `json:"url"`
	Token  string      `json:"token"`
	Format ImageFormat `json:"format"`
}

// SignRenderRequest is the gateway body for signing a create-and-render URL.
type SignRenderRequest struct {
	URLImageRequest
	Format ImageFormat `json:"format"`
}

// SignTemplatedRequest is the gateway body for signing a templated image URL.
type SignTemplatedRequest struct {
	TemplatedImageRequest
	Format ImageFormat `json:"format"`
}

// ValidationError points at one invalid field of a request.
type ValidationError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// ErrorDetails is the error payload returned by the rendering service and the gateway.
type ErrorDetails struct {
	Message          string            `json:"message"`
	Error            string            `json:"error"`
	ValidationErrors []ValidationError `json:"validationErrors,omitempty"`
}

// VerifiedURLResponse describes a signed URL that passed verification.
type VerifiedURLResponse struct {
	Identifier string              `json:"identifier"`
	Format     ImageFormat         `json:"format"`
	Params     []querystring.Param `json:"params"`
}

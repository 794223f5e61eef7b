// Package urlgen assembles signed render URLs.
//
// A URL has the shape {base}/{identifier}/{token}[/{format}]?{query}, where
// token is the HMAC-SHA-256 of the query bytes keyed with the API key. The
// query is built in a call-local buffer that starts on the stack, signed, and
// appended to the URL exactly as signed.
package urlgen

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"go-htmlcsstoimage/buffer"
	"go-htmlcsstoimage/querystring"
	"go-htmlcsstoimage/token"
	"go-htmlcsstoimage/types"
)

// DefaultHost is the rendering service used when no host is configured.
const DefaultHost = "https://hcti.io"

const (
	imagePath          = "/v1/image"
	createAndRenderDir = "/create-and-render"
	templatePath       = "/v1/template"
)

const (
	defaultListCount = 10
	maxListCount     = 100
)

var (
	ErrInvalidTemplateValues = types.ErrInvalidTemplateValues
	ErrMissingSerializer     = types.ErrMissingSerializer
	ErrUnknownFormat         = types.ErrUnknownFormat

	// ErrMissingCredentials is returned by New when the API id or key is empty.
	ErrMissingCredentials = errors.New("api id and api key are required")
	// ErrInvalidTemplateID is returned for a template id that cannot be a path segment.
	ErrInvalidTemplateID = errors.New("invalid template id")
	// ErrUnknownRequest is returned for a nil request.
	ErrUnknownRequest = errors.New("unknown request kind")
)

// Request is one of URLImage or TemplatedImage.
type Request interface {
	request()
}

// URLImage renders a screenshot of a web page through create-and-render.
type URLImage struct {
	types.URLImageRequest
}

// TemplatedImage renders a registered template.
type TemplatedImage struct {
	types.TemplatedImageRequest
}

func (URLImage) request()       {}
func (TemplatedImage) request() {}

// Generator signs URLs for one API id and key. It holds no mutable state and
// is safe for concurrent use.
type Generator struct {
	apiID  string
	apiKey string

	imageBase           string
	createAndRenderBase string
	templateBase        string
}

// Option configures a Generator.
type Option func(*Generator)

// WithHost points generated URLs at a different rendering service.
func WithHost(host string) Option {
	return func(g *Generator) {
		host = strings.TrimRight(host, "/")
		if host == "" {
			host = DefaultHost
		}
		g.setHost(host)
	}
}

// New creates a Generator.
func New(apiID, apiKey string, opts ...Option) (*Generator, error) {
	if apiID == "" || apiKey == "" {
		return nil, ErrMissingCredentials
	}
	g := &Generator{apiID: apiID, apiKey: apiKey}
	g.setHost(DefaultHost)
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

func (g *Generator) setHost(host string) {
	g.imageBase = host + imagePath
	g.createAndRenderBase = g.imageBase + createAndRenderDir
	g.templateBase = host + templatePath
}

// APIID returns the public API id placed in create-and-render URLs.
func (g *Generator) APIID() string { return g.apiID }

// ImageBase returns the base of templated image URLs.
func (g *Generator) ImageBase() string { return g.imageBase }

// CreateAndRenderBase returns the base of create-and-render URLs.
func (g *Generator) CreateAndRenderBase() string { return g.createAndRenderBase }

// Sign returns the token for a canonical query.
func (g *Generator) Sign(query []byte) string {
	return token.Sign(query, g.apiKey)
}

// Verify reports whether tok is the token for query.
func (g *Generator) Verify(query []byte, tok string) bool {
	return token.Verify(query, g.apiKey, tok)
}

// Signed is a generated URL together with its token.
type Signed struct {
	URL   string
	Token string
}

// Generate builds the signed URL for req.
func (g *Generator) Generate(req Request, format types.ImageFormat) (string, error) {
	signed, err := g.GenerateSigned(req, format)
	if err != nil {
		return "", err
	}
	return signed.URL, nil
}

// GenerateSigned is Generate that also returns the token.
func (g *Generator) GenerateSigned(req Request, format types.ImageFormat) (Signed, error) {
	if !format.Valid() {
		return Signed{}, fmt.Errorf("%w: %d", ErrUnknownFormat, int(format))
	}

	var stack [buffer.StackSize]byte
	b := buffer.New(stack[:])
	defer b.Release()

	var base, id string
	switch r := req.(type) {
	case URLImage:
		base, id = g.createAndRenderBase, g.apiID
		writeURLImageQuery(&b, &r.URLImageRequest)
	case TemplatedImage:
		if err := checkTemplateID(r.TemplateID); err != nil {
			return Signed{}, err
		}
		base, id = g.imageBase, r.TemplateID
		if err := writeTemplatedQuery(&b, &r.TemplatedImageRequest); err != nil {
			return Signed{}, err
		}
	default:
		return Signed{}, fmt.Errorf("%w: %T", ErrUnknownRequest, req)
	}

	query := b.Bytes()
	tok := g.Sign(query)
	return Signed{URL: assemble(base, id, tok, format, query), Token: tok}, nil
}

// CreateAndRenderURL signs a URL that renders a screenshot of req.URL.
func (g *Generator) CreateAndRenderURL(req types.URLImageRequest, format types.ImageFormat) (string, error) {
	return g.Generate(URLImage{req}, format)
}

// TemplatedImageURL signs a URL that renders a template.
func (g *Generator) TemplatedImageURL(req types.TemplatedImageRequest, format types.ImageFormat) (string, error) {
	return g.Generate(TemplatedImage{req}, format)
}

// TemplatedImageURLFromValue serializes values with encoding/json and signs a
// templated image URL. values must serialize to a JSON object.
func TemplatedImageURLFromValue[T any](g *Generator, templateID string, values T, version *int64, format types.ImageFormat) (string, error) {
	req, err := types.NewTemplatedImageRequest(templateID, values, version)
	if err != nil {
		return "", err
	}
	return g.TemplatedImageURL(req, format)
}

// TemplateListURL returns the listing URL for all templates, or for the
// versions of one template when templateID is set. count is clamped to
// 1..100 with 0 meaning 10. nextPageStart is the max_version cursor.
func (g *Generator) TemplateListURL(templateID string, count int, nextPageStart *int64) string {
	count = ClampCount(count)

	var num [20]byte
	var sb strings.Builder
	sb.Grow(len(g.templateBase) + len(templateID) + 48)
	sb.WriteString(g.templateBase)
	if templateID != "" {
		sb.WriteByte('/')
		sb.WriteString(templateID)
	}
	sb.WriteString("?count=")
	sb.Write(strconv.AppendInt(num[:0], int64(count), 10))
	if nextPageStart != nil {
		sb.WriteString("&max_version=")
		sb.Write(strconv.AppendInt(num[:0], *nextPageStart, 10))
	}
	return sb.String()
}

// ClampCount applies the listing page size rules.
func ClampCount(count int) int {
	switch {
	case count <= 0:
		return defaultListCount
	case count > maxListCount:
		return maxListCount
	default:
		return count
	}
}

func checkTemplateID(id string) error {
	if id == "" || strings.ContainsAny(id, "/?#%&") {
		return fmt.Errorf("%w: %q", ErrInvalidTemplateID, id)
	}
	return nil
}

func writeURLImageQuery(b *buffer.Buffer, req *types.URLImageRequest) {
	querystring.EncodeSafeKey(b, "url", req.URL)
	writeFlag(b, "full_screen", req.FullScreen)
	writeFlag(b, "block_consent_banners", req.BlockConsentBanners)
	writeFlag(b, "disable_twemoji", req.DisableTwemoji)
	writeFlag(b, "max_render_once", req.MaxRenderOnce)
	writeFlag(b, "render_when_ready", req.RenderWhenReady)
	if req.ColorScheme != "" {
		querystring.EncodeSafeKey(b, "color_scheme", string(req.ColorScheme))
	}
	if req.DeviceScale != nil {
		querystring.WriteSafeKeyFloat(b, "device_scale", *req.DeviceScale)
	}
	writeUint32(b, "max_wait_ms", req.MaxWaitMs)
	writeUint32(b, "ms_delay", req.MsDelay)
	writeUint32(b, "viewport_height", req.ViewportHeight)
	writeUint32(b, "viewport_width", req.ViewportWidth)
	writeText(b, "css", req.CSS)
	writeText(b, "selector", req.Selector)
	writeText(b, "timezone", req.Timezone)
}

func writeFlag(b *buffer.Buffer, key string, v bool) {
	if v {
		querystring.EncodeSafeKeyValue(b, key, "true")
	}
}

func writeUint32(b *buffer.Buffer, key string, v *uint32) {
	if v != nil {
		querystring.WriteSafeKeyUint32(b, key, *v)
	}
}

func writeText(b *buffer.Buffer, key, v string) {
	if strings.TrimSpace(v) != "" {
		querystring.EncodeSafeKey(b, key, v)
	}
}

func writeTemplatedQuery(b *buffer.Buffer, req *types.TemplatedImageRequest) error {
	if req.TemplateValues == nil {
		return ErrInvalidTemplateValues
	}
	if req.TemplateVersion != nil {
		querystring.WriteSafeKeyInt(b, "template_version", *req.TemplateVersion)
	}

	keys := make([]string, 0, len(req.TemplateValues))
	for k := range req.TemplateValues {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, k := range keys {
		value, ok, err := canonicalJSON(req.TemplateValues[k])
		if err != nil {
			return fmt.Errorf("%w: field %q: %v", ErrInvalidTemplateValues, k, err)
		}
		if ok {
			querystring.Encode(b, k, value)
		}
	}
	return nil
}

var errEmptyValue = errors.New("empty JSON value")

// canonicalJSON returns the compact text of a template value. ok is false for
// null, which is omitted from the query.
func canonicalJSON(raw json.RawMessage) (value []byte, ok bool, err error) {
	trimmed := bytes.TrimSpace(raw)
	switch {
	case len(trimmed) == 0:
		return nil, false, errEmptyValue
	case string(trimmed) == "null":
		return nil, false, nil
	case bytes.ContainsAny(trimmed, " \t\r\n"):
		var compact bytes.Buffer
		if err := json.Compact(&compact, trimmed); err != nil {
			return nil, false, err
		}
		return compact.Bytes(), true, nil
	case !json.Valid(trimmed):
		return nil, false, fmt.Errorf("invalid JSON %q", trimmed)
	default:
		return trimmed, true, nil
	}
}

func assemble(base, id, tok string, format types.ImageFormat, query []byte) string {
	ext := ""
	if format != types.PNG {
		ext = format.Extension()
	}

	var sb strings.Builder
	sb.Grow(len(base) + len(id) + len(tok) + len(ext) + len(query) + 4)
	sb.WriteString(base)
	sb.WriteByte('/')
	sb.WriteString(id)
	sb.WriteByte('/')
	sb.WriteString(tok)
	if ext != "" {
		sb.WriteByte('/')
		sb.WriteString(ext)
	}
	sb.WriteByte('?')
	sb.Write(query)
	return sb.String()
}

package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"unicode/utf8"

	"go.uber.org/zap"

	"go-htmlcsstoimage/querystring"
	"go-htmlcsstoimage/storage"
	"go-htmlcsstoimage/types"
	"go-htmlcsstoimage/urlgen"
)

const templateVersionKey = "template_version"

// renderFieldOrder is the position of every create-and-render field in a
// canonical query.
var renderFieldOrder = map[string]int{
	"url":                   0,
	"full_screen":           1,
	"block_consent_banners": 2,
	"disable_twemoji":       3,
	"max_render_once":       4,
	"render_when_ready":     5,
	"color_scheme":          6,
	"device_scale":          7,
	"max_wait_ms":           8,
	"ms_delay":              9,
	"viewport_height":       10,
	"viewport_width":        11,
	"css":                   12,
	"selector":              13,
	"timezone":              14,
}

// SigningService signs render URLs and verifies signed URLs the way the
// rendering service does.
type SigningService interface {
	RenderURL(ctx context.Context, req types.URLImageRequest, format types.ImageFormat) (types.SignedURLResponse, error)
	TemplatedURL(ctx context.Context, req types.TemplatedImageRequest, format types.ImageFormat) (types.SignedURLResponse, error)
	VerifyRenderURL(ctx context.Context, apiID, tok, format, rawQuery string) (types.VerifiedURLResponse, error)
	VerifyTemplatedURL(ctx context.Context, templateID, tok, format, rawQuery string) (types.VerifiedURLResponse, error)
}

type signingService struct {
	gen    *urlgen.Generator
	store  storage.Storage
	logger *zap.Logger
}

// NewSigningService creates a SigningService. store receives render counts of
// verified templated URLs.
func NewSigningService(gen *urlgen.Generator, store storage.Storage, logger *zap.Logger) SigningService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &signingService{gen: gen, store: store, logger: logger}
}

func (s *signingService) RenderURL(ctx context.Context, req types.URLImageRequest, format types.ImageFormat) (types.SignedURLResponse, error) {
	if err := ctx.Err(); err != nil {
		return types.SignedURLResponse{}, err
	}
	for _, text := range []string{req.URL, req.CSS, req.Selector, req.Timezone} {
		if !utf8.ValidString(text) {
			return types.SignedURLResponse{}, ErrInvalidEncoding
		}
	}

	signed, err := s.gen.GenerateSigned(urlgen.URLImage{URLImageRequest: req}, format)
	if err != nil {
		return types.SignedURLResponse{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	s.logger.Debug("Signed render URL", zap.String("url", req.URL), zap.Stringer("format", format))
	return types.SignedURLResponse{URL: signed.URL, Token: signed.Token, Format: format}, nil
}

func (s *signingService) TemplatedURL(ctx context.Context, req types.TemplatedImageRequest, format types.ImageFormat) (types.SignedURLResponse, error) {
	if err := ctx.Err(); err != nil {
		return types.SignedURLResponse{}, err
	}
	if !utf8.ValidString(req.TemplateID) {
		return types.SignedURLResponse{}, ErrInvalidEncoding
	}
	for key, value := range req.TemplateValues {
		if !utf8.ValidString(key) || !utf8.Valid(value) {
			return types.SignedURLResponse{}, ErrInvalidEncoding
		}
	}

	signed, err := s.gen.GenerateSigned(urlgen.TemplatedImage{TemplatedImageRequest: req}, format)
	if err != nil {
		return types.SignedURLResponse{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	s.logger.Debug("Signed templated URL", zap.String("templateID", req.TemplateID), zap.Stringer("format", format))
	return types.SignedURLResponse{URL: signed.URL, Token: signed.Token, Format: format}, nil
}

func (s *signingService) VerifyRenderURL(ctx context.Context, apiID, tok, format, rawQuery string) (types.VerifiedURLResponse, error) {
	if err := ctx.Err(); err != nil {
		return types.VerifiedURLResponse{}, err
	}
	f, params, err := s.verify(apiID == s.gen.APIID(), tok, format, rawQuery)
	if err != nil {
		s.logger.Warn("Render URL rejected", zap.String("apiID", apiID), zap.Error(err))
		return types.VerifiedURLResponse{}, err
	}

	last := -1
	for _, p := range params {
		pos, known := renderFieldOrder[p.Key]
		if !known || pos <= last {
			return types.VerifiedURLResponse{}, fmt.Errorf("%w: field %q out of canonical order", ErrInvalidRequest, p.Key)
		}
		last = pos
	}
	if len(params) == 0 || params[0].Key != "url" {
		return types.VerifiedURLResponse{}, fmt.Errorf("%w: url is required", ErrInvalidRequest)
	}

	return types.VerifiedURLResponse{Identifier: apiID, Format: f, Params: params}, nil
}

func (s *signingService) VerifyTemplatedURL(ctx context.Context, templateID, tok, format, rawQuery string) (types.VerifiedURLResponse, error) {
	if err := ctx.Err(); err != nil {
		return types.VerifiedURLResponse{}, err
	}
	f, params, err := s.verify(true, tok, format, rawQuery)
	if err != nil {
		s.logger.Warn("Templated URL rejected", zap.String("templateID", templateID), zap.Error(err))
		return types.VerifiedURLResponse{}, err
	}

	var version *int64
	values := params
	if len(params) > 0 && params[0].Key == templateVersionKey {
		v, err := strconv.ParseInt(params[0].Value, 10, 64)
		if err != nil {
			return types.VerifiedURLResponse{}, fmt.Errorf("%w: template_version: %v", ErrInvalidRequest, err)
		}
		version = &v
		values = params[1:]
	}
	for i, p := range values {
		if i > 0 && values[i-1].Key >= p.Key {
			return types.VerifiedURLResponse{}, fmt.Errorf("%w: field %q out of canonical order", ErrInvalidRequest, p.Key)
		}
		if !json.Valid([]byte(p.Value)) {
			return types.VerifiedURLResponse{}, fmt.Errorf("%w: field %q is not JSON", ErrInvalidRequest, p.Key)
		}
	}

	tpl, err := s.store.Get(ctx, templateID, version)
	if err != nil {
		return types.VerifiedURLResponse{}, handleStorageError(err)
	}
	if err := s.store.IncrementRenderCount(ctx, templateID, tpl.TemplateVersion); err != nil {
		return types.VerifiedURLResponse{}, handleStorageError(err)
	}
	s.logger.Info("Templated URL verified",
		zap.String("templateID", templateID),
		zap.Int64("version", tpl.TemplateVersion))

	return types.VerifiedURLResponse{Identifier: templateID, Format: f, Params: params}, nil
}

// verify checks the token over the raw query and decodes the query.
func (s *signingService) verify(knownID bool, tok, format, rawQuery string) (types.ImageFormat, []querystring.Param, error) {
	f, err := types.ParseImageFormat(format)
	if err != nil {
		return f, nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if !knownID || !s.gen.Verify([]byte(rawQuery), tok) {
		return f, nil, ErrSignatureMismatch
	}

	params, err := querystring.Parse(rawQuery)
	if err != nil {
		return f, nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	for _, p := range params {
		if !utf8.ValidString(p.Key) || !utf8.ValidString(p.Value) {
			return f, nil, ErrInvalidEncoding
		}
	}
	return f, params, nil
}

// IsValidationError reports whether err came from bad caller input.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) || errors.Is(err, ErrInvalidEncoding)
}

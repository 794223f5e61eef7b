//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"go-htmlcsstoimage/config"
	"go-htmlcsstoimage/handlers"
	"go-htmlcsstoimage/services"
	"go-htmlcsstoimage/storage"
	"go-htmlcsstoimage/types"
	"go-htmlcsstoimage/urlgen"
)

func sendRequest(t *testing.T, server *httptest.Server, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		require.NoError(t, err, "Failed to marshal request body")
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, server.URL+path, reqBody)
	require.NoError(t, err, "Failed to create request")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.SetBasicAuth("test_id", "test_key")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err, "Failed to send request")

	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "Failed to read response body")
	resp.Body.Close()

	return resp, respBody
}

func setupTestEnvironment(t *testing.T, store storage.Storage) *httptest.Server {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.APIID = "test_id"
	cfg.APIKey = "test_key"
	cfg.DisableRateLimit = true

	gen, err := urlgen.New(cfg.APIID, cfg.APIKey, urlgen.WithHost(cfg.Host))
	require.NoError(t, err)

	logger := zap.NewNop()
	handler, err := handlers.NewHandler(context.Background(),
		services.NewSigningService(gen, store, logger),
		services.NewTemplateService(store, logger),
		cfg, logger)
	require.NoError(t, err, "Failed to create handler")

	gin.SetMode(gin.TestMode)
	router := gin.New()
	handlers.RegisterRoutes(context.Background(), router, handler, cfg)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func backends(t *testing.T) map[string]storage.Storage {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	redisStore, err := storage.NewRedisStorage(context.Background(), storage.RedisConfig{Addr: mr.Addr()}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = redisStore.Close() })

	return map[string]storage.Storage{
		"memory": storage.NewInMemoryStorage(1000, zap.NewNop()),
		"redis":  redisStore,
	}
}

// pathOf strips the public host so the signed URL can be replayed against the test server.
func pathOf(signedURL string) string {
	return strings.TrimPrefix(signedURL, urlgen.DefaultHost)
}

func TestSignAndVerifyRenderURL(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			server := setupTestEnvironment(t, store)

			resp, body := sendRequest(t, server, http.MethodPost, "/api/v1/urls/render", map[string]any{
				"url":            "https://example.com/päge?q=1&r=2",
				"viewport_width": 1024,
				"device_scale":   0.5,
				"css":            "body { background: #fff; }",
				"format":         "webp",
			})
			require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

			var signed types.SignedURLResponse
			require.NoError(t, json.Unmarshal(body, &signed))
			assert.Len(t, signed.Token, 64)
			assert.Contains(t, signed.URL, "/webp?url=https%3A%2F%2Fexample.com%2Fp%C3%A4ge%3Fq%3D1%26r%3D2")

			resp, body = sendRequest(t, server, http.MethodGet, pathOf(signed.URL), nil)
			require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

			var verified types.VerifiedURLResponse
			require.NoError(t, json.Unmarshal(body, &verified))
			assert.Equal(t, "test_id", verified.Identifier)
			assert.Equal(t, types.WEBP, verified.Format)
			require.Len(t, verified.Params, 4)
			assert.Equal(t, "https://example.com/päge?q=1&r=2", verified.Params[0].Value)
			assert.Equal(t, "device_scale", verified.Params[1].Key)
			assert.Equal(t, "0.5", verified.Params[1].Value)

			tampered := strings.Replace(pathOf(signed.URL), "1024", "2048", 1)
			resp, _ = sendRequest(t, server, http.MethodGet, tampered, nil)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		})
	}
}

func TestTemplateLifecycle(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			server := setupTestEnvironment(t, store)

			resp, body := sendRequest(t, server, http.MethodPost, "/v1/template", map[string]any{
				"name": "card",
				"html": "<h1>{{title}}</h1>",
			})
			require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
			var created types.CreateTemplateResponse
			require.NoError(t, json.Unmarshal(body, &created))

			resp, body = sendRequest(t, server, http.MethodPost, "/v1/template/"+created.TemplateID, map[string]any{
				"html": "<h1 class=\"big\">{{title}}</h1>",
			})
			require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
			var second types.CreateTemplateResponse
			require.NoError(t, json.Unmarshal(body, &second))
			assert.Greater(t, second.TemplateVersion, created.TemplateVersion)

			resp, body = sendRequest(t, server, http.MethodPost, "/api/v1/urls/templated", map[string]any{
				"template_id":      created.TemplateID,
				"template_version": created.TemplateVersion,
				"template_values":  map[string]any{"title": "Hello", "emoji": "👀"},
			})
			require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
			var signed types.SignedURLResponse
			require.NoError(t, json.Unmarshal(body, &signed))
			assert.Contains(t, signed.URL, fmt.Sprintf("?template_version=%d&emoji=%%22%%F0%%9F%%91%%80%%22&title=%%22Hello%%22", created.TemplateVersion))

			for i := 0; i < 2; i++ {
				resp, body = sendRequest(t, server, http.MethodGet, pathOf(signed.URL), nil)
				require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
			}

			resp, body = sendRequest(t, server, http.MethodGet, "/v1/template/"+created.TemplateID+"?count=1", nil)
			require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
			var page types.PaginatedTemplates
			require.NoError(t, json.Unmarshal(body, &page))
			require.Len(t, page.Data, 1)
			assert.Equal(t, second.TemplateVersion, page.Data[0].TemplateVersion)
			require.NotNil(t, page.Pagination.NextPageStart)

			resp, body = sendRequest(t, server, http.MethodGet, fmt.Sprintf("/v1/template/%s?count=1&max_version=%d", created.TemplateID, *page.Pagination.NextPageStart), nil)
			require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
			require.NoError(t, json.Unmarshal(body, &page))
			require.Len(t, page.Data, 1)
			assert.Equal(t, created.TemplateVersion, page.Data[0].TemplateVersion)
			assert.Equal(t, uint64(2), page.Data[0].ImageCount)
			assert.Nil(t, page.Pagination.NextPageStart)

			resp, _ = sendRequest(t, server, http.MethodGet, "/v1/image/tpl_unknown/"+signed.Token+"?title=%22Hello%22", nil)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		})
	}
}

func TestConcurrentSigning(t *testing.T) {
	server := setupTestEnvironment(t, storage.NewInMemoryStorage(10, zap.NewNop()))

	const workers = 20
	urls := make([]string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, body := sendRequest(t, server, http.MethodPost, "/api/v1/urls/render", map[string]any{"url": "https://google.com"})
			if assert.Equal(t, http.StatusOK, resp.StatusCode) {
				var signed types.SignedURLResponse
				if assert.NoError(t, json.Unmarshal(body, &signed)) {
					urls[i] = signed.URL
				}
			}
		}(i)
	}
	wg.Wait()

	for _, u := range urls {
		assert.Equal(t, "https://hcti.io/v1/image/create-and-render/test_id/c3aafa375fb51381b88714bf673ac86830de9d108517e754afc2151dd1879983?url=https%3A%2F%2Fgoogle.com", u)
	}
}

func TestTemplateRoutesRequireCredentials(t *testing.T) {
	server := setupTestEnvironment(t, storage.NewInMemoryStorage(10, zap.NewNop()))

	resp, err := http.Post(server.URL+"/v1/template", "application/json", strings.NewReader(`{"html":"<p></p>"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, server.URL+"/v1/template", nil)
	require.NoError(t, err)
	req.SetBasicAuth("test_id", "wrong_key")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

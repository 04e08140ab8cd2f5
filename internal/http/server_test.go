package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"smartcache/pkg/cache"
	"smartcache/pkg/cluster"
	"smartcache/pkg/metrics"
)

func newTestServer(t *testing.T) (*Server, *metrics.Registry) {
	t.Helper()
	descs := []cluster.Descriptor{
		{Name: "s1", Host: cluster.MemoryHost, Port: 6379, Weight: 10, Role: cluster.RoleShard},
		{Name: "s2", Host: cluster.MemoryHost, Port: 6379, Weight: 10, Role: cluster.RoleShard},
	}
	reg := metrics.NewRegistry()
	router, err := cluster.NewShardRouter(context.Background(), descs,
		cluster.WithDialer(cluster.DialerFor(cluster.NewMemoryNodes())), cluster.WithCollector(reg))
	require.NoError(t, err)
	t.Cleanup(func() { _ = router.Close() })

	return NewServer(cache.New(router), reg, 0, 0), reg
}

func do(t *testing.T, s *Server, req *http.Request) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	rr := httptest.NewRecorder()
	s.createRouter().ServeHTTP(rr, req)

	var resp Response
	if strings.HasPrefix(rr.Header().Get("Content-Type"), contentTypeJSON) {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp), rr.Body.String())
	}
	return rr, resp
}

func putForm(key, value, ttl string) *http.Request {
	form := url.Values{}
	form.Set("key", key)
	form.Set("value", value)
	if ttl != "" {
		form.Set("ttl", ttl)
	}
	req := httptest.NewRequest(http.MethodPut, "/api/string", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestHealthHandler(t *testing.T) {
	s, _ := newTestServer(t)
	rr, resp := do(t, s, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, StatusOK, resp.Status)
	require.NotEmpty(t, resp.RequestID)
	require.Equal(t, resp.RequestID, rr.Header().Get(headerRequestID))
}

func TestRequestIDIsPropagated(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(headerRequestID, "abc-123")

	rr, resp := do(t, s, req)
	require.Equal(t, "abc-123", rr.Header().Get(headerRequestID))
	require.Equal(t, "abc-123", resp.RequestID)
}

func TestPutGetDeleteFlow(t *testing.T) {
	s, _ := newTestServer(t)

	rr, resp := do(t, s, putForm("foo", "bar", ""))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.Equal(t, StatusSuccess, resp.Status)

	rr, resp = do(t, s, httptest.NewRequest(http.MethodGet, "/api/string?key=foo", nil))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.Equal(t, "bar", resp.Value)

	rr, resp = do(t, s, httptest.NewRequest(http.MethodDelete, "/api?key=foo", nil))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.Equal(t, StatusSuccess, resp.Status)

	rr, _ = do(t, s, httptest.NewRequest(http.MethodGet, "/api/string?key=foo", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestPutWithTTL(t *testing.T) {
	s, _ := newTestServer(t)

	rr, _ := do(t, s, putForm("k", "v", "90s"))
	require.Equal(t, http.StatusOK, rr.Code)
	rr, _ = do(t, s, putForm("k", "v", "soon"))
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSizeAndWrongType(t *testing.T) {
	s, _ := newTestServer(t)

	body := `{"verb":"rpush","key":"l","args":["a","b"]}`
	rr, resp := do(t, s, httptest.NewRequest(http.MethodPost, "/api/command", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.Equal(t, float64(2), resp.Value)

	rr, resp = do(t, s, httptest.NewRequest(http.MethodGet, "/api/size?key=l", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, float64(2), resp.Value)

	do(t, s, putForm("str", "v", ""))
	rr, resp = do(t, s, httptest.NewRequest(http.MethodGet, "/api/size?key=str", nil))
	require.Equal(t, http.StatusConflict, rr.Code)
	require.Equal(t, StatusError, resp.Status)
}

func TestCommandErrors(t *testing.T) {
	s, _ := newTestServer(t)

	rr, _ := do(t, s, httptest.NewRequest(http.MethodPost, "/api/command",
		strings.NewReader(`{"verb":"flushall","key":"k"}`)))
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr, _ = do(t, s, httptest.NewRequest(http.MethodPost, "/api/command", strings.NewReader(`{`)))
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr, _ = do(t, s, httptest.NewRequest(http.MethodPost, "/api/command",
		strings.NewReader(`{"verb":"expire","key":"k","args":["later"]}`)))
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestMissingParamsAndMethodNotAllowed(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPut, "/api/string", strings.NewReader(""))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr, _ := do(t, s, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	for _, target := range []string{"/api/string", "/api/size"} {
		rr, _ = do(t, s, httptest.NewRequest(http.MethodGet, target, nil))
		require.Equal(t, http.StatusBadRequest, rr.Code, target)
	}

	rr, _ = do(t, s, httptest.NewRequest(http.MethodDelete, "/api", nil))
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr, _ = do(t, s, httptest.NewRequest(http.MethodPost, "/health", nil))
	require.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestMetricsHandler(t *testing.T) {
	s, reg := newTestServer(t)
	do(t, s, putForm("k", "v", ""))

	rr := httptest.NewRecorder()
	s.createRouter().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var resp metricsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Metrics)

	v, ok := reg.Value("http_requests_total", map[string]string{"method": http.MethodPut, "path": "/api/string"})
	require.True(t, ok)
	require.Equal(t, float64(1), v)
}

func TestCommandWithKeyParts(t *testing.T) {
	s, _ := newTestServer(t)

	body := `{"verb":"set","key_parts":["user",42],"args":["ann"]}`
	rr, _ := do(t, s, httptest.NewRequest(http.MethodPost, "/api/command", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr, resp := do(t, s, httptest.NewRequest(http.MethodGet, "/api/string?key=user_42", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "ann", resp.Value)
}

func TestRequestCounterUsesRoutePattern(t *testing.T) {
	s, reg := newTestServer(t)

	do(t, s, httptest.NewRequest(http.MethodGet, "/api/string?key=a", nil))
	do(t, s, httptest.NewRequest(http.MethodGet, "/api/string?key=b", nil))
	do(t, s, httptest.NewRequest(http.MethodGet, "/no/such/path/1", nil))
	do(t, s, httptest.NewRequest(http.MethodGet, "/no/such/path/2", nil))

	v, ok := reg.Value("http_requests_total", map[string]string{"method": http.MethodGet, "path": "/api/string"})
	require.True(t, ok)
	require.Equal(t, float64(2), v)

	v, ok = reg.Value("http_requests_total", map[string]string{"method": http.MethodGet, "path": "unmatched"})
	require.True(t, ok)
	require.Equal(t, float64(2), v)

	_, ok = reg.Value("http_requests_total", map[string]string{"method": http.MethodGet, "path": "/no/such/path/1"})
	require.False(t, ok)
}

func TestKeysHandler(t *testing.T) {
	s, _ := newTestServer(t)
	for _, k := range []string{"user_1", "user_2", "order_1"} {
		rr, _ := do(t, s, putForm(k, "v", ""))
		require.Equal(t, http.StatusOK, rr.Code)
	}

	rr, resp := do(t, s, httptest.NewRequest(http.MethodGet, "/api/keys?match=user_*", nil))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.Equal(t, []any{"user_1", "user_2"}, resp.Value)
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, cfg Config) *server {
	t.Helper()
	cfg.LogLevel = "panic"
	s, err := newServer(cfg)
	require.NoError(t, err)
	return s
}

func TestServer(t *testing.T) {
	cfg := defaultConfig()
	cfg.CORS.Origins = []string{"https://example.com"}
	cfg.CORS.OriginPatterns = []string{"http://localhost:8*"}
	cfg.CORS.Methods = []string{http.MethodGet}
	cfg.OriginRegexps = []string{`^https://[a-z]+\.example\.org$`}
	s := newTestServer(t, cfg)

	for _, path := range []string{"/", "/http/"} {
		for _, tt := range []struct {
			origin   string
			wantACAO string
			wantACAM string
		}{
			{origin: "", wantACAO: ""},
			{origin: "https://example.com", wantACAO: "https://example.com", wantACAM: "GET"},
			{origin: "http://localhost:8080", wantACAO: "http://localhost:8080", wantACAM: "GET"},
			{origin: "https://www.example.org", wantACAO: "https://www.example.org", wantACAM: "GET"},
			{origin: "https://attacker.com", wantACAO: ""},
		} {
			t.Run(path+" "+tt.origin, func(t *testing.T) {
				req := httptest.NewRequest(http.MethodGet, path, nil)
				if tt.origin != "" {
					req.Header.Set("Origin", tt.origin)
				}
				rec := httptest.NewRecorder()
				s.handler.ServeHTTP(rec, req)

				res := rec.Result()
				assert.Equal(t, http.StatusOK, res.StatusCode)
				assert.Equal(t, "application/json", res.Header.Get("Content-Type"))
				assert.Equal(t, tt.wantACAO, res.Header.Get("Access-Control-Allow-Origin"))
				assert.Equal(t, tt.wantACAM, res.Header.Get("Access-Control-Allow-Methods"))

				var body map[string]string
				require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
				assert.Equal(t, map[string]string{"hello": "world"}, body)
			})
		}
	}
}

func TestServerRejectsInvalidCORSConfig(t *testing.T) {
	cfg := defaultConfig()
	cfg.CORS.Origins = []string{"https://example.com/"}
	_, err := newServer(cfg)
	assert.ErrorContains(t, err, "invalid CORS configuration")
}

func TestServerMetrics(t *testing.T) {
	cfg := defaultConfig()
	cfg.CORS.AllowAll = true
	s := newTestServer(t, cfg)
	require.NotNil(t, s.metrics)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	s.handler.ServeHTTP(httptest.NewRecorder(), req)

	rec := httptest.NewRecorder()
	s.metrics.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `corsrw_verdicts_total{verdict="wildcard"} 1`)
}

func TestServerWithoutMetrics(t *testing.T) {
	cfg := defaultConfig()
	cfg.MetricsAddress = ""
	s := newTestServer(t, cfg)
	assert.Nil(t, s.metrics)
}

func freeAddress(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func TestServerRun(t *testing.T) {
	cfg := defaultConfig()
	cfg.Address = freeAddress(t)
	cfg.MetricsAddress = freeAddress(t)
	cfg.CORS.AllowAll = true
	s := newTestServer(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.run(ctx) }()

	var res *http.Response
	require.Eventually(t, func() bool {
		var err error
		res, err = http.Get("http://" + cfg.Address + "/")
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)
	defer res.Body.Close()
	assert.Equal(t, "*", res.Header.Get("Access-Control-Allow-Origin"))

	metricsRes, err := http.Get("http://" + cfg.MetricsAddress + "/metrics")
	require.NoError(t, err)
	defer metricsRes.Body.Close()
	body, err := io.ReadAll(metricsRes.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "corsrw_verdicts_total"))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServerRunFailsOnBusyAddress(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	cfg := defaultConfig()
	cfg.Address = l.Addr().String()
	cfg.MetricsAddress = ""
	s := newTestServer(t, cfg)

	err = s.run(context.Background())
	var opErr *net.OpError
	assert.True(t, errors.As(err, &opErr), "got %v", err)
}

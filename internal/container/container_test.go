package container_test

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"
	"github.com/samber/do"
	"github.com/serroba/ratelimit-go/internal/container"
	"github.com/serroba/ratelimit-go/internal/messaging"
	"github.com/serroba/ratelimit-go/internal/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func testOptions() *container.Options {
	return &container.Options{
		Port:         8888,
		StoreType:    "memory",
		Max:          2,
		Window:       60,
		Dialect:      "draft-8",
		StatusCode:   http.StatusTooManyRequests,
		APIKeyHeader: "X-API-Key",
		TierHeader:   "X-Tier",
		LogFormat:    "console",
		Events:       container.EventsNone,
	}
}

func newInjector(t *testing.T, opts *container.Options, logger *zap.Logger) *do.Injector {
	t.Helper()

	injector := do.New()
	do.ProvideValue(injector, opts)
	do.ProvideValue(injector, logger)
	container.StorePackage(injector)
	container.MetricsPackage(injector)
	container.EventsPackage(injector)
	container.RateLimitPackage(injector)
	container.HTTPPackage(injector)

	t.Cleanup(func() { _ = injector.Shutdown() })

	return injector
}

func newRouter(t *testing.T, opts *container.Options) *chi.Mux {
	t.Helper()

	injector := newInjector(t, opts, zap.NewNop())

	_, err := do.Invoke[huma.API](injector)
	require.NoError(t, err)

	return do.MustInvoke[*chi.Mux](injector)
}

func get(router http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	return rec
}

func TestHTTPPackage(t *testing.T) {
	t.Run("limits huma routes", func(t *testing.T) {
		router := newRouter(t, testOptions())

		first := get(router, "/ping")
		assert.Equal(t, http.StatusOK, first.Code)
		assert.Equal(t, "2;w=60", first.Header().Get("RateLimit-Policy"))
		assert.Equal(t, "2, 1, 60", first.Header().Get("RateLimit"))

		second := get(router, "/ping")
		assert.Equal(t, http.StatusOK, second.Code)
		assert.Equal(t, "2, 0, 60", second.Header().Get("RateLimit"))

		third := get(router, "/ping")
		assert.Equal(t, http.StatusTooManyRequests, third.Code)
		assert.JSONEq(t, `{"error":"Rate limit exceeded. Try again in 60 seconds."}`, third.Body.String())
	})

	t.Run("plain routes share the quota", func(t *testing.T) {
		router := newRouter(t, testOptions())

		assert.Equal(t, http.StatusOK, get(router, "/plain/ping").Code)
		assert.Equal(t, http.StatusOK, get(router, "/ping").Code)
		assert.Equal(t, http.StatusTooManyRequests, get(router, "/plain/ping").Code)
	})

	t.Run("health and metrics are never limited", func(t *testing.T) {
		router := newRouter(t, testOptions())

		for range 5 {
			rec := get(router, "/health")
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Empty(t, rec.Header().Get("RateLimit"))
		}

		_ = get(router, "/ping")
		_ = get(router, "/ping")
		_ = get(router, "/ping")

		metrics := get(router, "/metrics")
		require.Equal(t, http.StatusOK, metrics.Code)
		assert.Contains(t, metrics.Body.String(), `ratelimit_decisions_total{outcome="admitted",store="memory"} 2`)
		assert.Contains(t, metrics.Body.String(), `ratelimit_decisions_total{outcome="rejected",store="memory"} 1`)
	})

	t.Run("skip keys bypass limiting", func(t *testing.T) {
		opts := testOptions()
		opts.Skip = "10.0.0.1, 192.0.2.1"
		router := newRouter(t, opts)

		for range 4 {
			rec := get(router, "/ping")
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Empty(t, rec.Header().Get("RateLimit"))
		}
	})

	t.Run("failed requests are compensated", func(t *testing.T) {
		opts := testOptions()
		opts.SkipFailedRequests = true
		opts.Dialect = "legacy"
		router := newRouter(t, opts)

		for range 3 {
			assert.Equal(t, http.StatusInternalServerError, get(router, "/status/500").Code)
		}

		assert.Equal(t, http.StatusOK, get(router, "/ping").Code)
	})

	t.Run("policy file drives quotas", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "policy.yaml")
		require.NoError(t, os.WriteFile(path, []byte("default: {max: 1, window: 30}\n"), 0o600))

		opts := testOptions()
		opts.PolicyFile = path
		opts.Dialect = "legacy"
		router := newRouter(t, opts)

		first := get(router, "/ping")
		assert.Equal(t, "1", first.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "30", first.Header().Get("X-RateLimit-Reset"))

		second := get(router, "/ping")
		assert.Equal(t, http.StatusTooManyRequests, second.Code)
		assert.Equal(t, "30", second.Header().Get("Retry-After"))
	})

	t.Run("request log is written", func(t *testing.T) {
		opts := testOptions()
		opts.LogsDirectory = filepath.Join(t.TempDir(), "logs")
		router := newRouter(t, opts)

		_ = get(router, "/ping")

		entries, err := os.ReadDir(opts.LogsDirectory)
		require.NoError(t, err)
		require.Len(t, entries, 1)

		data, err := os.ReadFile(filepath.Join(opts.LogsDirectory, entries[0].Name()))
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(strings.TrimSpace(string(data)), "192.0.2.1 - /ping - Success"))
	})
}

func TestConfigurationErrors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*container.Options)
		want   error
	}{
		{"unsupported store", func(o *container.Options) { o.StoreType = "etcd" }, ratelimit.ErrUnsupportedStore},
		{"invalid quota", func(o *container.Options) { o.Max = 0 }, ratelimit.ErrInvalidQuota},
		{"unsupported dialect", func(o *container.Options) { o.Dialect = "draft-9" }, ratelimit.ErrUnsupportedDialect},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := testOptions()
			tt.modify(opts)

			injector := newInjector(t, opts, zap.NewNop())

			_, err := do.Invoke[huma.API](injector)

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestEventsPackage_Channel(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	opts := testOptions()
	opts.Max = 1
	opts.Events = container.EventsChannel

	injector := newInjector(t, opts, zap.New(core))

	group := do.MustInvoke[*messaging.ConsumerGroup](injector)
	require.NoError(t, group.Start(t.Context()))

	_, err := do.Invoke[huma.API](injector)
	require.NoError(t, err)

	router := do.MustInvoke[*chi.Mux](injector)

	_ = get(router, "/ping")
	assert.Equal(t, http.StatusTooManyRequests, get(router, "/ping").Code)

	assert.Eventually(t, func() bool {
		return logs.FilterMessage("rate limit event received").Len() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestOptions_SkipKeys(t *testing.T) {
	tests := []struct {
		skip string
		want []string
	}{
		{"", nil},
		{"a", []string{"a"}},
		{" a , ,b ", []string{"a", "b"}},
	}

	for _, tt := range tests {
		opts := &container.Options{Skip: tt.skip}
		assert.Equal(t, tt.want, opts.SkipKeys(), "skip %q", tt.skip)
	}
}

func TestLoadEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("RATELIMIT_TEST_PRESET=file\nRATELIMIT_TEST_FRESH=file\n"), 0o600))

	t.Setenv("RATELIMIT_TEST_PRESET", "env")
	t.Cleanup(func() { _ = os.Unsetenv("RATELIMIT_TEST_FRESH") })

	require.NoError(t, container.LoadEnv(path))

	assert.Equal(t, "env", os.Getenv("RATELIMIT_TEST_PRESET"))
	assert.Equal(t, "file", os.Getenv("RATELIMIT_TEST_FRESH"))

	assert.NoError(t, container.LoadEnv(filepath.Join(t.TempDir(), "missing.env")))
}

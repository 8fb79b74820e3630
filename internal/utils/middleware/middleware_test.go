package middleware

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sflix/server/internal/shared/logger"
	apperrors "github.com/sflix/server/internal/utils/errors"
	"github.com/sflix/server/internal/utils/requestctx"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeValidator struct {
	principals map[string]*Principal
	err        error
}

func (v *fakeValidator) ValidateToken(_ context.Context, token string) (*Principal, error) {
	if v.err != nil {
		return nil, v.err
	}
	p, ok := v.principals[token]
	if !ok {
		return nil, errors.New("unknown token")
	}
	return p, nil
}

type fakeEntitlement struct {
	entitled map[string]bool
	err      error
}

func (f *fakeEntitlement) IsEntitled(_ context.Context, userID string) (bool, error) {
	return f.entitled[userID], f.err
}

type fakeLimiter struct {
	allowed   bool
	remaining int
	err       error
	keys      []string
}

func (f *fakeLimiter) Allow(_ context.Context, key string, _ int, _ time.Duration) (bool, int, error) {
	f.keys = append(f.keys, key)
	return f.allowed, f.remaining, f.err
}

type memoryReplay struct {
	mu     sync.Mutex
	values map[string][]byte
	locks  map[string]bool
}

func newMemoryReplay() *memoryReplay {
	return &memoryReplay{values: map[string][]byte{}, locks: map[string]bool{}}
}

func (m *memoryReplay) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[key], nil
}

func (m *memoryReplay) Put(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *memoryReplay) Claim(_ context.Context, key string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[key] {
		return false, nil
	}
	m.locks[key] = true
	return true, nil
}

func (m *memoryReplay) Release(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, key)
	return nil
}

func TestRequestID(t *testing.T) {
	t.Run("generates new request ID when not provided", func(t *testing.T) {
		router := gin.New()
		router.Use(RequestID())
		router.GET("/test", func(c *gin.Context) {
			c.String(http.StatusOK, GetRequestID(c))
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		headerID := w.Header().Get(RequestIDHeader)
		assert.NotEmpty(t, headerID)
		assert.Equal(t, headerID, w.Body.String())
	})

	t.Run("uses existing request ID from header", func(t *testing.T) {
		router := gin.New()
		router.Use(RequestID())
		router.GET("/test", func(c *gin.Context) {
			c.String(http.StatusOK, GetRequestID(c))
		})

		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set(RequestIDHeader, "existing-request-id-123")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, "existing-request-id-123", w.Header().Get(RequestIDHeader))
		assert.Equal(t, "existing-request-id-123", w.Body.String())
	})

	t.Run("replaces malformed request ID", func(t *testing.T) {
		router := gin.New()
		router.Use(RequestID())
		router.GET("/test", func(c *gin.Context) {
			c.String(http.StatusOK, requestctx.RequestID(c.Request.Context()))
		})

		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set(RequestIDHeader, "has spaces\tand tabs")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		id := w.Header().Get(RequestIDHeader)
		assert.NotEqual(t, "has spaces\tand tabs", id)
		assert.Len(t, id, 36)
		assert.Equal(t, id, w.Body.String())
	})
}

func TestLogging(t *testing.T) {
	tests := []struct {
		name   string
		status int
		level  string
	}{
		{"success is info", http.StatusOK, `"level":"info"`},
		{"client error is warn", http.StatusNotFound, `"level":"warn"`},
		{"server error is error", http.StatusInternalServerError, `"level":"error"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			log := logger.New(&logger.Config{Level: "info", Format: "json", Output: buf})

			router := gin.New()
			router.Use(RequestID(), Logging(log))
			router.GET("/videos", func(c *gin.Context) {
				c.String(tt.status, "body")
			})

			req := httptest.NewRequest("GET", "/videos?page=2", nil)
			req.Header.Set("User-Agent", "TestAgent/1.0")
			router.ServeHTTP(httptest.NewRecorder(), req)

			out := buf.String()
			assert.Contains(t, out, "HTTP Request")
			assert.Contains(t, out, tt.level)
			assert.Contains(t, out, "/videos")
			assert.Contains(t, out, "page=2")
			assert.Contains(t, out, "TestAgent/1.0")
			assert.Contains(t, out, "request_id")
		})
	}
}

func TestRecovery(t *testing.T) {
	t.Run("recovers from panic", func(t *testing.T) {
		buf := &bytes.Buffer{}
		log := logger.New(&logger.Config{Level: "error", Format: "json", Output: buf})

		router := gin.New()
		router.Use(Recovery(log))
		router.GET("/panic", func(c *gin.Context) {
			panic("test panic")
		})

		w := httptest.NewRecorder()
		require.NotPanics(t, func() {
			router.ServeHTTP(w, httptest.NewRequest("GET", "/panic", nil))
		})

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
		assert.Contains(t, buf.String(), "panic recovered")
		assert.Contains(t, buf.String(), "test panic")
	})

	t.Run("nil logger", func(t *testing.T) {
		router := gin.New()
		router.Use(Recovery(nil))
		router.GET("/panic", func(c *gin.Context) {
			panic("test panic")
		})

		w := httptest.NewRecorder()
		require.NotPanics(t, func() {
			router.ServeHTTP(w, httptest.NewRequest("GET", "/panic", nil))
		})
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func newAuthRouter(v TokenValidator, optional bool, extra ...gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	handlers := append([]gin.HandlerFunc{Auth(v, optional)}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		c.String(http.StatusOK, GetUserID(c))
	})
	router.GET("/me", handlers...)
	return router
}

func doGet(router *gin.Engine, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", "/me", nil)
	if token != "" {
		req.Header.Set(AuthorizationHeader, BearerPrefix+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuth(t *testing.T) {
	v := &fakeValidator{principals: map[string]*Principal{
		"good":  {UserID: "u1", Email: "viewer@example.com"},
		"admin": {UserID: "a1", Email: "boss@admin.com", IsAdmin: true},
	}}

	t.Run("valid token sets identity", func(t *testing.T) {
		w := doGet(newAuthRouter(v, false), "good")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "u1", w.Body.String())
	})

	t.Run("missing token is rejected", func(t *testing.T) {
		w := doGet(newAuthRouter(v, false), "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "UNAUTHORIZED")
	})

	t.Run("invalid token is rejected", func(t *testing.T) {
		w := doGet(newAuthRouter(v, false), "bad")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "INVALID_TOKEN")
	})

	t.Run("disabled account is forbidden", func(t *testing.T) {
		disabled := &fakeValidator{err: apperrors.AccountDisabled()}
		w := doGet(newAuthRouter(disabled, false), "good")
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), "ACCOUNT_DISABLED")
	})

	t.Run("optional auth passes anonymous requests", func(t *testing.T) {
		w := doGet(newAuthRouter(v, true), "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Body.String())

		w = doGet(newAuthRouter(v, true), "bad")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("require admin", func(t *testing.T) {
		router := newAuthRouter(v, false, RequireAdmin())
		assert.Equal(t, http.StatusForbidden, doGet(router, "good").Code)
		assert.Equal(t, http.StatusOK, doGet(router, "admin").Code)
	})
}

func TestRequireEntitlement(t *testing.T) {
	v := &fakeValidator{principals: map[string]*Principal{
		"paid":  {UserID: "u1"},
		"free":  {UserID: "u2"},
		"admin": {UserID: "a1", IsAdmin: true},
	}}
	checker := &fakeEntitlement{entitled: map[string]bool{"u1": true}}
	router := newAuthRouter(v, false, RequireEntitlement(checker, nil))

	assert.Equal(t, http.StatusOK, doGet(router, "paid").Code)

	w := doGet(router, "free")
	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Contains(t, w.Body.String(), "SUBSCRIPTION_REQUIRED")

	assert.Equal(t, http.StatusOK, doGet(router, "admin").Code)

	failing := newAuthRouter(v, false, RequireEntitlement(&fakeEntitlement{err: errors.New("db down")}, nil))
	assert.Equal(t, http.StatusInternalServerError, doGet(failing, "paid").Code)
}

func TestRateLimitByIP(t *testing.T) {
	build := func(l RateLimiter) *gin.Engine {
		router := gin.New()
		router.POST("/auth/login", RateLimitByIP(l, 5, time.Minute), func(c *gin.Context) {
			c.Status(http.StatusOK)
		})
		return router
	}

	t.Run("rejects exhausted window", func(t *testing.T) {
		w := httptest.NewRecorder()
		build(&fakeLimiter{allowed: false}).ServeHTTP(w, httptest.NewRequest("POST", "/auth/login", nil))
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "60", w.Header().Get(RetryAfter))
		assert.Contains(t, w.Body.String(), "RATE_LIMITED")
	})

	t.Run("admits and reports remaining", func(t *testing.T) {
		limiter := &fakeLimiter{allowed: true, remaining: 3}
		req := httptest.NewRequest("POST", "/auth/login", nil)
		req.RemoteAddr = "203.0.113.9:4000"
		w := httptest.NewRecorder()
		build(limiter).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "5", w.Header().Get(RateLimitLimit))
		assert.Equal(t, "3", w.Header().Get(RateLimitRemaining))
		assert.Equal(t, []string{"/auth/login:203.0.113.9"}, limiter.keys)
	})

	t.Run("fails open", func(t *testing.T) {
		w := httptest.NewRecorder()
		build(&fakeLimiter{err: errors.New("redis down")}).ServeHTTP(w, httptest.NewRequest("POST", "/auth/login", nil))
		assert.Equal(t, http.StatusOK, w.Code)

		w = httptest.NewRecorder()
		build(nil).ServeHTTP(w, httptest.NewRequest("POST", "/auth/login", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestIdempotency(t *testing.T) {
	store := newMemoryReplay()
	calls := 0
	router := gin.New()
	router.POST("/checkout-session", Idempotency(store, time.Hour), func(c *gin.Context) {
		calls++
		c.JSON(http.StatusOK, gin.H{"session": calls})
	})

	post := func(key, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/checkout-session", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		if key != "" {
			req.Header.Set(IdempotencyKeyHeader, key)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	first := post("k1", `{"plan":499}`)
	assert.Equal(t, http.StatusOK, first.Code)
	assert.JSONEq(t, `{"session":1}`, first.Body.String())

	replayed := post("k1", `{"plan":499}`)
	assert.Equal(t, http.StatusOK, replayed.Code)
	assert.JSONEq(t, `{"session":1}`, replayed.Body.String())
	assert.Equal(t, "true", replayed.Header().Get("Idempotent-Replayed"))
	assert.Equal(t, 1, calls)

	assert.JSONEq(t, `{"session":2}`, post("k1", `{"plan":999}`).Body.String())
	assert.JSONEq(t, `{"session":3}`, post("", `{"plan":499}`).Body.String())
	assert.Empty(t, store.locks)
}

func TestIdempotency_InFlight(t *testing.T) {
	store := newMemoryReplay()
	started := make(chan struct{})
	release := make(chan struct{})
	router := gin.New()
	router.POST("/checkout-session", Idempotency(store, time.Hour), func(c *gin.Context) {
		close(started)
		<-release
		c.Status(http.StatusOK)
	})

	newReq := func() *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/checkout-session", bytes.NewBufferString(`{}`))
		req.Header.Set(IdempotencyKeyHeader, "k1")
		return req
	}

	done := make(chan int)
	go func() {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, newReq())
		done <- w.Code
	}()
	<-started

	w := httptest.NewRecorder()
	router.ServeHTTP(w, newReq())
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "REQUEST_IN_PROGRESS")

	close(release)
	assert.Equal(t, http.StatusOK, <-done)
}

func TestCORS_Preflight(t *testing.T) {
	tests := []struct {
		name    string
		origins []string
		origin  string
		allowed bool
	}{
		{"default frontend", nil, "http://localhost:3000", true},
		{"configured origin", []string{"https://sflix.example"}, "https://sflix.example", true},
		{"unknown origin", []string{"https://sflix.example"}, "https://evil.example", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(CORS(tt.origins...))
			router.POST("/checkout-session", func(c *gin.Context) { c.Status(http.StatusOK) })

			req := httptest.NewRequest(http.MethodOptions, "/checkout-session", nil)
			req.Header.Set("Origin", tt.origin)
			req.Header.Set("Access-Control-Request-Method", "POST")
			req.Header.Set("Access-Control-Request-Headers", IdempotencyKeyHeader)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if tt.allowed {
				assert.Equal(t, tt.origin, w.Header().Get("Access-Control-Allow-Origin"))
			} else {
				assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
			}
		})
	}
}

func TestSanitizeJSON(t *testing.T) {
	router := gin.New()
	router.Use(SanitizeJSON())
	router.PUT("/me", func(c *gin.Context) {
		var body struct {
			Username string  `json:"username"`
			Price    float64 `json:"price"`
		}
		require.NoError(t, c.ShouldBindJSON(&body))
		c.JSON(http.StatusOK, body)
	})

	req := httptest.NewRequest(http.MethodPut, "/me", bytes.NewBufferString(`{"username":"<b>neo</b>","price":499}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"Username":"neo","Price":499}`, w.Body.String())

	req = httptest.NewRequest(http.MethodPut, "/me", bytes.NewBufferString(`{not json`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

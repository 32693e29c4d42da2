package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-ddd-ecommerce/internal/domain/entity"
	"github.com/oksasatya/go-ddd-ecommerce/pkg/apperror"
)

func init() { gin.SetMode(gin.TestMode) }

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type envelope struct {
	Success    bool            `json:"success"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
	StatusCode int             `json:"statusCode"`
	RequestID  string          `json:"requestId"`
	Error      any             `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var e envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &e))
	return e
}

func newEngine(production bool) *gin.Engine {
	r := gin.New()
	r.Use(Recovery(quietLogger()), RequestIDMiddleware(), RealIP(), ErrorHandler(quietLogger(), production))
	return r
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestErrorHandler_MapsKinds(t *testing.T) {
	cases := []struct {
		err    error
		status int
		msg    string
	}{
		{apperror.Validation("bad input"), http.StatusBadRequest, "bad input"},
		{apperror.Auth("no"), http.StatusUnauthorized, "no"},
		{apperror.Authorization("forbidden"), http.StatusForbidden, "forbidden"},
		{apperror.NotFound("product not found"), http.StatusNotFound, "product not found"},
		{apperror.Conflict("exists"), http.StatusConflict, "exists"},
		{errors.New("boom"), http.StatusInternalServerError, "internal server error"},
	}
	for _, tc := range cases {
		t.Run(tc.msg, func(t *testing.T) {
			r := newEngine(false)
			r.GET("/x", func(c *gin.Context) { _ = c.Error(tc.err) })
			w := serve(r, httptest.NewRequest(http.MethodGet, "/x", nil))

			assert.Equal(t, tc.status, w.Code)
			e := decode(t, w)
			assert.False(t, e.Success)
			assert.Equal(t, tc.status, e.StatusCode)
			assert.Equal(t, tc.msg, e.Message)
			assert.NotEmpty(t, e.RequestID)
		})
	}
}

func TestErrorHandler_DetailsAndProductionMasking(t *testing.T) {
	r := newEngine(true)
	r.GET("/v", func(c *gin.Context) {
		_ = c.Error(apperror.Validation("invalid payload").WithDetails(map[string]string{"email": "is required"}))
	})
	r.GET("/i", func(c *gin.Context) { _ = c.Error(apperror.Internal("save cart failed", errors.New("pg down"))) })

	e := decode(t, serve(r, httptest.NewRequest(http.MethodGet, "/v", nil)))
	assert.JSONEq(t, `{"email":"is required"}`, string(e.Data))

	w := serve(r, httptest.NewRequest(http.MethodGet, "/i", nil))
	e = decode(t, w)
	assert.Equal(t, "internal server error", e.Message)
	assert.Nil(t, e.Error)

	dev := newEngine(false)
	dev.GET("/i", func(c *gin.Context) { _ = c.Error(apperror.Internal("save cart failed", errors.New("pg down"))) })
	e = decode(t, serve(dev, httptest.NewRequest(http.MethodGet, "/i", nil)))
	assert.Equal(t, "save cart failed", e.Message)
	assert.Equal(t, "save cart failed: pg down", e.Error)
}

func TestRecovery(t *testing.T) {
	r := newEngine(true)
	r.GET("/p", func(c *gin.Context) { panic("kaboom") })
	w := serve(r, httptest.NewRequest(http.MethodGet, "/p", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal server error", decode(t, w).Message)
}

func TestRequestID(t *testing.T) {
	r := newEngine(false)
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Len(t, w.Header().Get(RequestIDHeader), 36)

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(RequestIDHeader, "0b6f1f5e-4a51-4bd3-a9a4-6a2f1c1f0c11")
	w = serve(r, req)
	assert.Equal(t, "0b6f1f5e-4a51-4bd3-a9a4-6a2f1c1f0c11", w.Header().Get(RequestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(RequestIDHeader, "<script>")
	w = serve(r, req)
	assert.NotEqual(t, "<script>", w.Header().Get(RequestIDHeader))
}

type fakeAuth map[string]*entity.User

func (f fakeAuth) Authenticate(_ context.Context, token string) (*entity.User, error) {
	if u, ok := f[token]; ok {
		return u, nil
	}
	return nil, apperror.Auth("invalid token")
}

func TestAuthAndRequireRole(t *testing.T) {
	users := fakeAuth{
		"user-token":  {ID: "u1", Role: entity.RoleUser},
		"admin-token": {ID: "a1", Role: entity.RoleAdmin},
	}
	r := newEngine(false)
	r.GET("/me", Auth(users), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": UserID(c), "admin": Actor(c).IsAdmin(), "token": AccessToken(c)})
	})
	r.GET("/admin", Auth(users), RequireRole(entity.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	call := func(path, header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		return serve(r, req)
	}

	w := call("/me", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "authentication required", decode(t, w).Message)

	assert.Equal(t, http.StatusUnauthorized, call("/me", "Bearer nope").Code)
	assert.Equal(t, http.StatusUnauthorized, call("/me", "Basic user-token").Code)

	w = call("/me", "Bearer user-token")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"u1","admin":false,"token":"user-token"}`, w.Body.String())

	assert.Equal(t, http.StatusForbidden, call("/admin", "Bearer user-token").Code)
	assert.Equal(t, http.StatusNoContent, call("/admin", "bearer admin-token").Code)
}

func TestSecurityHeaders(t *testing.T) {
	r := gin.New()
	r.Use(SecurityHeaders(true))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, w.Header().Get("Content-Security-Policy"))
	assert.Contains(t, w.Header().Get("Strict-Transport-Security"), "max-age=")
}

func TestRealIP(t *testing.T) {
	r := gin.New()
	r.Use(RealIP())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, ClientIP(c)) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", serve(r, req).Body.String())

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("CF-Connecting-IP", "198.51.100.2")
	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	assert.Equal(t, "198.51.100.2", serve(r, req).Body.String())

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Real-IP", "not-an-ip")
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	assert.Equal(t, "203.0.113.9", serve(r, req).Body.String())
}

func TestRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	r := newEngine(false)
	r.Use(RateLimit(rdb, 2, time.Minute, KeyByIP(), AllowPaths("/health")))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	hit := func(path, ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("X-Forwarded-For", ip)
		return serve(r, req)
	}

	w := hit("/x", "203.0.113.1")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, http.StatusNoContent, hit("/x", "203.0.113.1").Code)

	w = hit("/x", "203.0.113.1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.False(t, decode(t, w).Success)

	// other clients and allowed paths are unaffected
	assert.Equal(t, http.StatusNoContent, hit("/x", "203.0.113.2").Code)
	assert.Equal(t, http.StatusNoContent, hit("/health", "203.0.113.1").Code)

	mr.FastForward(time.Minute + time.Second)
	assert.Equal(t, http.StatusNoContent, hit("/x", "203.0.113.1").Code)
}

func TestRateLimit_FailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	mr.Close()

	r := gin.New()
	r.Use(RateLimit(rdb, 1, time.Minute, KeyByIP(), nil))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusNoContent, serve(r, httptest.NewRequest(http.MethodGet, "/x", nil)).Code)
	}

	// no Redis at all is a pass-through
	r = gin.New()
	r.Use(RateLimit(nil, 1, time.Minute, KeyByIP(), nil))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusNoContent, serve(r, httptest.NewRequest(http.MethodGet, "/x", nil)).Code)
	}
}

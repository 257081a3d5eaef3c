package security

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"study_buddy_backend/internal/config"
	"study_buddy_backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(handlers...)
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	return r
}

func newLimiter(t *testing.T, maxRequests int) *RateLimiter {
	t.Helper()
	l := NewRateLimiter(config.RateLimitConfig{MaxRequests: maxRequests, WindowMinutes: 1})
	t.Cleanup(l.Stop)
	return l
}

// fakeAuth 模拟认证中间件写入的用户信息
func fakeAuth(c *gin.Context) {
	if id, err := strconv.Atoi(c.Query("user")); err == nil {
		c.Set(util.ContextUserKey, &util.Claims{UserID: uint(id)})
	}
}

func TestRateLimiter_ByIP(t *testing.T) {
	r := newRouter(newLimiter(t, 2).Middleware())

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRateLimiter_ByUser(t *testing.T) {
	l := newLimiter(t, 1)
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ping", fakeAuth, l.Middleware(), func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	get := func(path string) int {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w.Code
	}

	// 同一 IP 下不同用户各自计数
	assert.Equal(t, http.StatusOK, get("/ping?user=1"))
	assert.Equal(t, http.StatusOK, get("/ping?user=2"))
	assert.Equal(t, http.StatusTooManyRequests, get("/ping?user=1"))
	assert.Equal(t, http.StatusOK, get("/ping"), "anonymous requests use the ip bucket")
}

func TestRateLimiter_Sweep(t *testing.T) {
	l := newLimiter(t, 5)
	now := time.Now()

	require.True(t, l.allow("ip:1.1.1.1", now.Add(-10*time.Minute)))
	require.True(t, l.allow("ip:2.2.2.2", now))

	l.sweep(now)
	l.mu.Lock()
	defer l.mu.Unlock()
	assert.NotContains(t, l.visitors, "ip:1.1.1.1")
	assert.Contains(t, l.visitors, "ip:2.2.2.2")
}

func TestRateLimiter_StopEndsSweeper(t *testing.T) {
	l := NewRateLimiter(config.RateLimitConfig{MaxRequests: 10, WindowMinutes: 1})

	l.Stop()
	select {
	case <-l.done:
	case <-time.After(time.Second):
		t.Fatal("sweeper still running after Stop")
	}

	assert.NotPanics(t, l.Stop)
}

func TestCORS(t *testing.T) {
	r := newRouter(CORS(config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}}))

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	// 预检请求直接返回
	req = httptest.NewRequest(http.MethodOptions, "/ping", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestSecure(t *testing.T) {
	w := httptest.NewRecorder()
	newRouter(Secure()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))
}

package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/table-reservation/config"
	"github.com/yeremiapane/table-reservation/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
	utils.SetJWTSecret("middleware-test-secret")
}

func whoami(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"user_id": c.GetString(ContextUserID),
		"role":    c.GetString(ContextRole),
	})
}

func token(t *testing.T, userID, role string) string {
	t.Helper()
	tok, err := utils.GenerateToken(userID, role, time.Hour)
	require.NoError(t, err)
	return tok
}

func TestAuthMiddleware(t *testing.T) {
	r := gin.New()
	r.GET("/me", AuthMiddleware(), whoami)

	cases := []struct {
		name   string
		header string
		code   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "Bearer not-a-jwt", http.StatusUnauthorized},
		{"empty user", "Bearer " + token(t, "", "staff"), http.StatusUnauthorized},
		{"valid", "Bearer " + token(t, "u1", "staff"), http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.code, w.Code)
			if tc.code == http.StatusOK {
				assert.JSONEq(t, `{"user_id":"u1","role":"staff"}`, w.Body.String())
			}
		})
	}
}

func TestAuthMiddleware_ExpiredToken(t *testing.T) {
	r := gin.New()
	r.GET("/me", AuthMiddleware(), whoami)

	expired, err := utils.GenerateToken("u1", "staff", -time.Minute)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+expired)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRole(t *testing.T) {
	r := gin.New()
	r.GET("/staff", AuthMiddleware(), RequireRole("staff"), whoami)
	r.GET("/open", RequireRole("staff"), whoami)

	for role, code := range map[string]int{
		"staff":    http.StatusOK,
		"admin":    http.StatusOK,
		"customer": http.StatusForbidden,
	} {
		req := httptest.NewRequest(http.MethodGet, "/staff", nil)
		req.Header.Set("Authorization", "Bearer "+token(t, "u1", role))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, code, w.Code, role)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/open", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWebSocketAuthMiddleware(t *testing.T) {
	r := gin.New()
	r.GET("/ws", WebSocketAuthMiddleware(), whoami)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws?token="+token(t, "u2", "admin"), nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":"u2","role":"admin"}`, w.Body.String())
}

func TestRateLimiter(t *testing.T) {
	r := gin.New()
	r.Use(NewRateLimiter(1, 2, time.Minute).RateLimit())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// another client has its own bucket
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimit_Disabled(t *testing.T) {
	r := gin.New()
	r.Use(RateLimit(config.RateLimitConfig{Enabled: false}, nil))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestSecurityHeaders(t *testing.T) {
	r := gin.New()
	r.Use(SecurityHeaders())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/noah-isme/lesson-booking-api/internal/models"
	"github.com/noah-isme/lesson-booking-api/internal/service"
)

func issue(t *testing.T, tokens *service.TokenService, userID int, role models.UserRole) string {
	t.Helper()
	token, err := tokens.IssueToken(models.JWTClaims{UserID: userID, Role: role})
	require.NoError(t, err)
	return "Bearer " + token
}

func newRouter(middlewares ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middlewares...)
	handler := func(c *gin.Context) {
		if claims := Claims(c); claims != nil {
			c.String(http.StatusOK, string(claims.Role))
			return
		}
		c.String(http.StatusOK, "anonymous")
	}
	router.GET("/", handler)
	router.GET("/teachers/:id", handler)
	return router
}

func serve(router *gin.Engine, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestJWT(t *testing.T) {
	tokens := service.NewTokenService("secret")
	router := newRouter(JWT(tokens))

	assert.Equal(t, http.StatusUnauthorized, serve(router, "/", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(router, "/", "Basic abc").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(router, "/", "Bearer nope").Code)

	rec := serve(router, "/", issue(t, tokens, 7, models.RoleStudent))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "STUDENT", rec.Body.String())
}

func TestOptionalJWT(t *testing.T) {
	tokens := service.NewTokenService("secret")
	router := newRouter(OptionalJWT(tokens))

	assert.Equal(t, "anonymous", serve(router, "/", "").Body.String())
	assert.Equal(t, "anonymous", serve(router, "/", "Bearer nope").Body.String())
	assert.Equal(t, "TEACHER", serve(router, "/", issue(t, tokens, 101, models.RoleTeacher)).Body.String())
}

func TestRequireRoles(t *testing.T) {
	tokens := service.NewTokenService("secret")
	router := newRouter(JWT(tokens), RequireRoles(models.RoleAdmin, RoleSelf))

	assert.Equal(t, http.StatusOK, serve(router, "/teachers/101", issue(t, tokens, 1, models.RoleAdmin)).Code)
	assert.Equal(t, http.StatusOK, serve(router, "/teachers/101", issue(t, tokens, 101, models.RoleTeacher)).Code)
	assert.Equal(t, http.StatusForbidden, serve(router, "/teachers/101", issue(t, tokens, 102, models.RoleTeacher)).Code)
	assert.Equal(t, http.StatusForbidden, serve(router, "/teachers/101", issue(t, tokens, 101, models.RoleStudent)).Code)

	unauthenticated := newRouter(RequireRoles(models.RoleAdmin))
	assert.Equal(t, http.StatusUnauthorized, serve(unauthenticated, "/", "").Code)
}

func TestRateLimit(t *testing.T) {
	tokens := service.NewTokenService("secret")
	router := newRouter(OptionalJWT(tokens), RateLimit(0.5, 2))
	student := issue(t, tokens, 7, models.RoleStudent)

	assert.Equal(t, http.StatusOK, serve(router, "/", student).Code)
	assert.Equal(t, http.StatusOK, serve(router, "/", student).Code)
	rec := serve(router, "/", student)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "TOO_MANY_REQUESTS")

	other := issue(t, tokens, 8, models.RoleStudent)
	assert.Equal(t, http.StatusOK, serve(router, "/", other).Code)
}

func TestKeyedRateLimiterEvictsIdleBuckets(t *testing.T) {
	limiter := NewKeyedRateLimiter(rate.Every(time.Hour), 1, 20*time.Millisecond)

	assert.True(t, limiter.Limiter("ip:10.0.0.1").Allow())
	assert.False(t, limiter.Limiter("ip:10.0.0.1").Allow())
	limiter.Limiter("ip:10.0.0.2")
	assert.Equal(t, 2, limiter.Len())

	assert.Eventually(t, func() bool { return limiter.Len() == 0 }, time.Second, 10*time.Millisecond)
	assert.True(t, limiter.Limiter("ip:10.0.0.1").Allow())
}

func TestRateLimitDisabled(t *testing.T) {
	router := newRouter(RateLimit(0, 0))
	for i := 0; i < 10; i++ {
		assert.Equal(t, http.StatusOK, serve(router, "/", "").Code)
	}
}

func TestMetrics(t *testing.T) {
	metrics := service.NewMetricsService()
	router := newRouter(Metrics(metrics))

	serve(router, "/teachers/5", "")
	serve(router, "/missing", "")

	count, err := testutil.GatherAndCount(metrics.Registry(), "http_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/lesson-booking-api/internal/handler"
	"github.com/noah-isme/lesson-booking-api/internal/models"
	"github.com/noah-isme/lesson-booking-api/internal/service"
	"github.com/noah-isme/lesson-booking-api/pkg/config"
)

func newTestRouter(t *testing.T, env string) (*gin.Engine, *service.TokenService) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	tokens := service.NewTokenService("secret")
	metrics := service.NewMetricsService()
	cfg := &config.Config{Env: env, APIPrefix: "/api/v1"}
	cfg.Booking.RateLimit = 1
	cfg.Booking.RateBurst = 1

	return newRouter(routerDeps{
		cfg:          cfg,
		logger:       zap.NewNop(),
		metrics:      metrics,
		tokens:       tokens,
		availability: handler.NewAvailabilityHandler(nil, nil, 2),
		bookings:     handler.NewBookingHandler(nil),
		slots:        handler.NewSlotImportHandler(nil),
		health:       handler.NewMetricsHandler(metrics, nil),
	}), tokens
}

func do(router *gin.Engine, method, path, auth string) int {
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w.Code
}

func bearer(t *testing.T, tokens *service.TokenService, id int, role models.UserRole) string {
	t.Helper()
	token, err := tokens.IssueToken(models.JWTClaims{UserID: id, Role: role})
	require.NoError(t, err)
	return "Bearer " + token
}

func TestRouterHealthEndpoints(t *testing.T) {
	router, _ := newTestRouter(t, config.EnvDevelopment)

	assert.Equal(t, http.StatusOK, do(router, http.MethodGet, "/health", ""))
	assert.Equal(t, http.StatusOK, do(router, http.MethodGet, "/ready", ""))
	assert.Equal(t, http.StatusOK, do(router, http.MethodGet, "/metrics", ""))
}

func TestRouterProtectsWrites(t *testing.T) {
	router, tokens := newTestRouter(t, config.EnvDevelopment)

	assert.Equal(t, http.StatusUnauthorized, do(router, http.MethodPost, "/api/v1/bookings", ""))
	assert.Equal(t, http.StatusForbidden, do(router, http.MethodPost, "/api/v1/bookings", bearer(t, tokens, 101, models.RoleTeacher)))
	assert.Equal(t, http.StatusUnauthorized, do(router, http.MethodPost, "/api/v1/teachers/101/slots/import", ""))
	assert.Equal(t, http.StatusForbidden, do(router, http.MethodPost, "/api/v1/teachers/101/slots/import", bearer(t, tokens, 102, models.RoleTeacher)))
}

func TestRouterHidesDocsInProduction(t *testing.T) {
	router, _ := newTestRouter(t, config.EnvProduction)
	assert.Equal(t, http.StatusNotFound, do(router, http.MethodGet, "/docs/index.html", ""))
}

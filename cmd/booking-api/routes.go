package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/lesson-booking-api/internal/handler"
	internalmiddleware "github.com/noah-isme/lesson-booking-api/internal/middleware"
	"github.com/noah-isme/lesson-booking-api/internal/models"
	"github.com/noah-isme/lesson-booking-api/internal/service"
	"github.com/noah-isme/lesson-booking-api/pkg/config"
	"github.com/noah-isme/lesson-booking-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/lesson-booking-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/lesson-booking-api/pkg/middleware/requestid"
)

type routerDeps struct {
	cfg          *config.Config
	logger       *zap.Logger
	metrics      *service.MetricsService
	tokens       internalmiddleware.TokenValidator
	availability *handler.AvailabilityHandler
	bookings     *handler.BookingHandler
	slots        *handler.SlotImportHandler
	health       *handler.MetricsHandler
}

func newRouter(d routerDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(d.logger))
	r.Use(corsmiddleware.New(d.cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(d.metrics))

	r.GET("/health", d.health.Health)
	r.GET("/ready", d.health.Ready)
	r.GET("/metrics", d.health.Prometheus)

	if d.cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(d.cfg.APIPrefix)

	availability := api.Group("/availability", internalmiddleware.OptionalJWT(d.tokens))
	availability.GET("/cells", d.availability.Cells)
	availability.POST("/qualifying-teachers", d.availability.QualifyingTeachers)
	availability.GET("/export", d.availability.Export)

	api.POST("/bookings",
		internalmiddleware.JWT(d.tokens),
		internalmiddleware.RequireRoles(models.RoleStudent),
		internalmiddleware.RateLimit(d.cfg.Booking.RateLimit, d.cfg.Booking.RateBurst),
		d.bookings.Create,
	)

	api.POST("/teachers/:id/slots/import",
		internalmiddleware.JWT(d.tokens),
		internalmiddleware.RequireRoles(models.RoleAdmin, internalmiddleware.RoleSelf),
		d.slots.Import,
	)

	return r
}

package apiHttp

import (
	"context"
	"net/http"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/desofme/bank/pkg/limiter"
	"github.com/desofme/bank/pkg/validator"

	internalV1 "github.com/desofme/bank/internal/api/http/internal/v1"
	"github.com/desofme/bank/internal/config"
	"github.com/desofme/bank/internal/service"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	services *service.Services
	logger   *zap.Logger
}

func NewHandlers(services *service.Services, logger *zap.Logger) *Handler {
	return &Handler{
		services: services,
		logger:   logger,
	}
}

// Init builds the router. Background middleware work stops with ctx.
func (h *Handler) Init(ctx context.Context, cfg *config.Config) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	validator.RegisterGinValidator()

	router.Use(
		ginzap.Ginzap(h.logger, time.RFC3339, true),
		limiter.Limit(ctx, cfg.Limiter.RPS, cfg.Limiter.Burst, cfg.Limiter.TTL),
		corsMiddleware,
	)
	router.Use(ginzap.RecoveryWithZap(h.logger, true))

	router.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	h.initAPI(router)

	return router
}

func (h *Handler) initAPI(router *gin.Engine) {
	internalHandlersV1 := internalV1.NewHandler(h.services, h.logger)
	api := router.Group("/api")
	internalHandlersV1.Init(api)
}

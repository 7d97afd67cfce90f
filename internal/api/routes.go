package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taoyao-code/swap-server/internal/api/middleware"
	"github.com/taoyao-code/swap-server/internal/booking"
	"github.com/taoyao-code/swap-server/internal/inventory"
	"github.com/taoyao-code/swap-server/internal/swap"
)

// Deps 路由依赖
type Deps struct {
	Bookings *booking.Service
	Engine   *swap.Engine
	Resolver *swap.Resolver
	Auditor  *inventory.Auditor
}

// RouteConfig 路由中间件配置
type RouteConfig struct {
	Auth        middleware.AuthConfig
	RateLimit   middleware.RateLimitConfig
	StaffTokens *middleware.StaffTokens
}

// RegisterRoutes 注册 /api/v1 业务路由
func RegisterRoutes(r *gin.Engine, deps Deps, cfg RouteConfig, logger *zap.Logger) {
	bookings := NewBookingHandler(deps.Bookings, deps.Engine, logger)
	swaps := NewSwapHandler(deps.Resolver, logger)
	inv := NewInventoryHandler(deps.Auditor, logger)

	api := r.Group("/api/v1")
	api.Use(
		middleware.RequestTracing(),
		middleware.CORS(),
		middleware.RateLimit(cfg.RateLimit, logger),
		middleware.APIKeyAuth(cfg.Auth, logger),
		middleware.StaffSession(cfg.StaffTokens, logger),
	)
	if cfg.Auth.Enabled {
		logger.Info("api authentication enabled", zap.Int("api_keys_count", len(cfg.Auth.APIKeys)))
	} else {
		logger.Warn("api authentication disabled - only for development!")
	}

	// 预约
	api.GET("/bookings/:booking_id", bookings.GetBooking)
	api.POST("/bookings/:booking_id/payment-confirmed", bookings.ConfirmPayment)
	api.POST("/bookings/:booking_id/cancel", bookings.CancelBooking)
	api.POST("/bookings/:booking_id/fail", bookings.FailBooking)

	// 换电
	api.POST("/bookings/:booking_id/swaps", bookings.CommitSwap)
	api.GET("/swaps/:swap_id", swaps.GetSwap)
	api.POST("/swaps/:swap_id/cancel", swaps.CancelSwap)

	// 库存
	api.GET("/stations/:station_id/inventory", inv.StationInventory)
	api.GET("/inventory/audit", inv.Audit)

	logger.Info("api routes registered", zap.Int("endpoints", 9))
}

package order

import (
	couponRepo "health_mall/internal/domain/coupon/repository"
	couponService "health_mall/internal/domain/coupon/service"
	"health_mall/internal/domain/order/handler"
	"health_mall/internal/domain/order/repository"
	"health_mall/internal/domain/order/service"
	pointsRepo "health_mall/internal/domain/points/repository"
	pointsService "health_mall/internal/domain/points/service"
	shippingRepo "health_mall/internal/domain/shipping/repository"
	shippingService "health_mall/internal/domain/shipping/service"
	"health_mall/internal/pkg/middleware"
	"health_mall/internal/pkg/registry"
	"health_mall/pkg/cache"

	"github.com/gin-gonic/gin"
)

// OrderModule 订单模块
type OrderModule struct{}

func init() {
	registry.Register(&OrderModule{})
}

func (m *OrderModule) Name() string {
	return "order"
}

func (m *OrderModule) Priority() int {
	return 20
}

func (m *OrderModule) Init(ctx *registry.ModuleContext) error {
	repo := repository.NewOrderRepository(ctx.DB)
	shipping := shippingService.NewShippingService(
		shippingRepo.NewShippingRepository(ctx.DB), cache.NewRedisCache(ctx.Redis))
	coupons := couponService.NewCouponService(couponRepo.NewCouponRepository(ctx.DB))
	points := pointsService.NewPointsService(pointsRepo.NewPointsRepository(ctx.DB))

	svc := service.NewOrderService(repo, shipping, coupons, points)
	h := handler.NewOrderHandler(svc)

	setupRoutes(ctx.Router, h)

	return nil
}

func setupRoutes(r *gin.Engine, h *handler.OrderHandler) {
	g := r.Group("/orders", middleware.OptionalAuthMiddleware())
	{
		g.POST("", h.Create)
		g.GET("/:orderNo", h.Get)
		g.DELETE("/:orderNo", h.CancelPending)
	}
}

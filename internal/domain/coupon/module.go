package coupon

import (
	"health_mall/internal/domain/coupon/handler"
	"health_mall/internal/domain/coupon/repository"
	"health_mall/internal/domain/coupon/service"
	"health_mall/internal/pkg/middleware"
	"health_mall/internal/pkg/registry"

	"github.com/gin-gonic/gin"
)

// CouponModule 优惠券模块
type CouponModule struct{}

func init() {
	registry.Register(&CouponModule{})
}

func (m *CouponModule) Name() string {
	return "coupon"
}

func (m *CouponModule) Priority() int {
	return 20
}

func (m *CouponModule) Init(ctx *registry.ModuleContext) error {
	repo := repository.NewCouponRepository(ctx.DB)
	svc := service.NewCouponService(repo)
	h := handler.NewCouponHandler(svc)

	setupRoutes(ctx.Router, h)

	return nil
}

func setupRoutes(r *gin.Engine, h *handler.CouponHandler) {
	g := r.Group("/coupons", middleware.AuthMiddleware())
	{
		g.GET("/me", h.ListMine)
		g.POST("/:id/claim", h.Claim)
	}
}

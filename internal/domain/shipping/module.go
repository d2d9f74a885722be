package shipping

import (
	"health_mall/internal/domain/shipping/handler"
	"health_mall/internal/domain/shipping/repository"
	"health_mall/internal/domain/shipping/service"
	"health_mall/internal/pkg/registry"
	"health_mall/pkg/cache"

	"github.com/gin-gonic/gin"
)

// ShippingModule 运费模块
type ShippingModule struct{}

func init() {
	registry.Register(&ShippingModule{})
}

func (m *ShippingModule) Name() string {
	return "shipping"
}

func (m *ShippingModule) Priority() int {
	return 15
}

func (m *ShippingModule) Init(ctx *registry.ModuleContext) error {
	repo := repository.NewShippingRepository(ctx.DB)
	svc := service.NewShippingService(repo, cache.NewRedisCache(ctx.Redis))
	h := handler.NewShippingHandler(svc)

	setupRoutes(ctx.Router, h)

	return nil
}

func setupRoutes(r *gin.Engine, h *handler.ShippingHandler) {
	g := r.Group("/shipping")
	{
		g.GET("/fee", h.GetFee)
	}
}

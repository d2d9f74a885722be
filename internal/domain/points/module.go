package points

import (
	"health_mall/internal/domain/points/handler"
	"health_mall/internal/domain/points/repository"
	"health_mall/internal/domain/points/service"
	"health_mall/internal/pkg/middleware"
	"health_mall/internal/pkg/registry"

	"github.com/gin-gonic/gin"
)

// PointsModule 积分模块
type PointsModule struct{}

func init() {
	registry.Register(&PointsModule{})
}

func (m *PointsModule) Name() string {
	return "points"
}

func (m *PointsModule) Priority() int {
	return 20
}

func (m *PointsModule) Init(ctx *registry.ModuleContext) error {
	repo := repository.NewPointsRepository(ctx.DB)
	svc := service.NewPointsService(repo)
	h := handler.NewPointsHandler(svc)

	setupRoutes(ctx.Router, h)

	return nil
}

func setupRoutes(r *gin.Engine, h *handler.PointsHandler) {
	g := r.Group("/points", middleware.AuthMiddleware())
	{
		g.GET("/me", h.GetMyAccount)
		g.GET("/me/ledger", h.GetMyLedger)
	}
}

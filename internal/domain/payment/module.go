package payment

import (
	couponRepo "health_mall/internal/domain/coupon/repository"
	couponService "health_mall/internal/domain/coupon/service"
	orderRepo "health_mall/internal/domain/order/repository"
	pointsRepo "health_mall/internal/domain/points/repository"
	pointsService "health_mall/internal/domain/points/service"
	"health_mall/internal/domain/payment/handler"
	"health_mall/internal/domain/payment/provider"
	"health_mall/internal/domain/payment/service"
	shippingRepo "health_mall/internal/domain/shipping/repository"
	shippingService "health_mall/internal/domain/shipping/service"
	"health_mall/internal/pkg/config"
	"health_mall/internal/pkg/middleware"
	"health_mall/internal/pkg/notification"
	"health_mall/internal/pkg/registry"
	"health_mall/internal/pkg/worker"
	"health_mall/pkg/cache"

	"github.com/gin-gonic/gin"
)

// PaymentModule 支付模块
type PaymentModule struct{}

func init() {
	registry.Register(&PaymentModule{})
}

func (m *PaymentModule) Name() string {
	return "payment"
}

func (m *PaymentModule) Priority() int {
	// 支付确认依赖订单、积分、优惠券、运费模块
	return 30
}

func (m *PaymentModule) Init(ctx *registry.ModuleContext) error {
	orders := orderRepo.NewOrderRepository(ctx.DB)
	points := pointsService.NewPointsService(pointsRepo.NewPointsRepository(ctx.DB))
	coupons := couponService.NewCouponService(couponRepo.NewCouponRepository(ctx.DB))
	shipping := shippingService.NewShippingService(
		shippingRepo.NewShippingRepository(ctx.DB), cache.NewRedisCache(ctx.Redis))

	// 通知池：未配置短信服务时结算路径静默跳过通知
	var notifyPool *worker.NotifyPool
	if notification.GlobalService != nil {
		notifyPool = worker.NewNotifyPool(notification.GlobalService, 4, 256)
		notifyPool.Start()
	}

	settlement := service.NewSettlementService(orders, points, coupons, notifyPool,
		service.NewRedisSettleMarker(ctx.Redis))
	payments := service.NewPaymentService(orders,
		provider.NewHTTPClient(&config.GlobalConfig.Payment), shipping, settlement)
	sweep := service.NewSweepService(orders)

	// 进程内定时扫描；外部 cron 仍可通过接口触发
	sweep.StartTicker(config.GlobalConfig.Cron.SweepInterval, make(chan struct{}))

	h := handler.NewPaymentHandler(payments, sweep)
	setupRoutes(ctx.Router, h)

	return nil
}

func setupRoutes(r *gin.Engine, h *handler.PaymentHandler) {
	g := r.Group("/payments")
	{
		g.POST("/verify", h.Verify)
		g.POST("/webhook", h.Webhook)
		g.POST("/sweep", middleware.CronAuthMiddleware(), h.Sweep)
	}
}

package user

import (
	"health_mall/internal/domain/user/handler"
	"health_mall/internal/domain/user/repository"
	"health_mall/internal/domain/user/service"
	"health_mall/internal/pkg/middleware"
	"health_mall/internal/pkg/notification"
	"health_mall/internal/pkg/ratelimit"
	"health_mall/internal/pkg/registry"

	"github.com/gin-gonic/gin"
)

// UserModule 用户模块
type UserModule struct{}

func init() {
	// 自动注册模块
	registry.Register(&UserModule{})
}

func (m *UserModule) Name() string {
	return "user"
}

func (m *UserModule) Priority() int {
	// 用户模块优先级最高，其他模块依赖它
	return 10
}

func (m *UserModule) Init(ctx *registry.ModuleContext) error {
	// 1. 依赖注入
	userRepo := repository.NewUserRepository(ctx.DB)
	otpRepo := repository.NewOTPRepository(ctx.DB)
	limiter := ratelimit.NewRedisLimiter(ctx.Redis)

	otpService := service.NewOTPService(otpRepo, limiter, notification.GlobalService)
	userService := service.NewUserService(userRepo)
	authHandler := handler.NewAuthHandler(userService, otpService)

	// 2. 路由注册
	setupRoutes(ctx.Router, authHandler)

	return nil
}

func setupRoutes(r *gin.Engine, h *handler.AuthHandler) {
	// 公开路由
	authGroup := r.Group("/auth")
	{
		authGroup.POST("/otp/send", h.SendOTP)
		authGroup.POST("/otp/verify", h.VerifyOTP)
		authGroup.POST("/login", h.Login)
	}

	// 受保护的路由
	me := r.Group("/auth")
	me.Use(middleware.AuthMiddleware())
	{
		me.GET("/me", h.Me)
	}
}

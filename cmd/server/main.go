// @title Health Mall API
// @version 1.0
// @description 定制健康商品商城：订单、支付对账与积分账务服务
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "health_mall/docs"
	_ "health_mall/internal/domain/coupon"
	_ "health_mall/internal/domain/order"
	_ "health_mall/internal/domain/payment"
	_ "health_mall/internal/domain/points"
	_ "health_mall/internal/domain/shipping"
	_ "health_mall/internal/domain/user"
	"health_mall/internal/pkg/config"
	"health_mall/internal/pkg/middleware"
	"health_mall/internal/pkg/notification"
	"health_mall/internal/pkg/registry"
	"health_mall/pkg/database"
	"health_mall/pkg/logger"
	"health_mall/pkg/metrics"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

func main() {
	config.LoadConfig()
	logger.Init(config.GlobalConfig.App.Debug)
	defer logger.Sync()

	if err := config.GlobalConfig.Validate(); err != nil {
		logger.Log.Fatal("invalid configuration", zap.Error(err))
	}

	db := database.InitDatabase()
	rdb := database.InitRedis()

	// 短信服务未配置时降级为不发通知
	if err := notification.InitService(); err != nil {
		logger.Log.Warn("sms service disabled", zap.Error(err))
	}

	gin.SetMode(config.GlobalConfig.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.LoggerMiddleware())
	router.Use(middleware.RateLimitMiddleware())
	router.Use(metrics.Middleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:       12 * time.Hour,
	}))

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// 各领域模块按优先级自注册初始化
	if err := registry.InitModules(&registry.ModuleContext{
		DB:     db,
		Redis:  rdb,
		Router: router,
		Logger: logger.Log,
	}); err != nil {
		logger.Log.Fatal("module initialization failed", zap.Error(err))
	}

	srv := &http.Server{
		Addr:    ":" + config.GlobalConfig.Server.Port,
		Handler: router,
	}

	go func() {
		logger.Log.Info("server starting", zap.String("port", config.GlobalConfig.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("forced shutdown", zap.Error(err))
	}
}

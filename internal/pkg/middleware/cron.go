package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"health_mall/internal/pkg/config"
	"health_mall/pkg/response"

	"github.com/gin-gonic/gin"
)

// CronAuthMiddleware 定时任务触发接口的 Bearer 密钥校验
// 调度方（外部 cron 服务）持有共享密钥，校验失败一律 401
func CronAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		secret := config.GlobalConfig.Cron.Secret

		authHeader := c.GetHeader("Authorization")
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Error(c, http.StatusUnauthorized, response.ErrNoPermission, "Missing cron credentials")
			c.Abort()
			return
		}

		if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(secret)) != 1 {
			response.Error(c, http.StatusUnauthorized, response.ErrNoPermission, "Invalid cron credentials")
			c.Abort()
			return
		}

		c.Next()
	}
}

package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector 指标收集器
type Collector struct {
	// HTTP 指标
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// 支付回调指标
	webhookEventsTotal *prometheus.CounterVec

	// 结算指标
	settlementsTotal *prometheus.CounterVec

	// 过期订单扫描指标
	sweepCancelledTotal prometheus.Counter
}

// NewCollector 创建指标收集器
func NewCollector() *Collector {
	return &Collector{
		httpRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),

		httpRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		webhookEventsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_webhook_events_total",
				Help: "Payment webhook events by type and outcome",
			},
			[]string{"event", "outcome"},
		),

		settlementsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_settlements_total",
				Help: "Settlement executions by event and result",
			},
			[]string{"event", "result"},
		),

		sweepCancelledTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "order_sweep_cancelled_total",
				Help: "Stale virtual-account orders cancelled by the expiry sweep",
			},
		),
	}
}

// RecordHTTPRequest 记录 HTTP 请求
func (c *Collector) RecordHTTPRequest(method, endpoint string, status int, duration time.Duration) {
	c.httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordWebhookEvent 记录回调事件处理结果
// outcome: accepted / duplicate / rejected / retryable
func (c *Collector) RecordWebhookEvent(event, outcome string) {
	c.webhookEventsTotal.WithLabelValues(event, outcome).Inc()
}

// RecordSettlement 记录结算执行结果
func (c *Collector) RecordSettlement(event, result string) {
	c.settlementsTotal.WithLabelValues(event, result).Inc()
}

// RecordSweepCancelled 记录扫描取消的订单数
func (c *Collector) RecordSweepCancelled(n int64) {
	c.sweepCancelledTotal.Add(float64(n))
}

// Global 全局实例
var Global = NewCollector()

// Middleware HTTP 指标采集中间件
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		Global.RecordHTTPRequest(c.Request.Method, endpoint, c.Writer.Status(), time.Since(start))
	}
}

package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"health_mall/internal/domain/payment/provider"
	"health_mall/internal/domain/payment/service"
	"health_mall/internal/domain/payment/webhook"
	"health_mall/internal/pkg/config"
	"health_mall/pkg/logger"
	"health_mall/pkg/metrics"
	"health_mall/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// signatureHeader 服务商回调签名头
const signatureHeader = "X-Payment-Signature"

type PaymentHandler struct {
	service service.PaymentService
	sweep   service.SweepService
}

func NewPaymentHandler(s service.PaymentService, sweep service.SweepService) *PaymentHandler {
	return &PaymentHandler{service: s, sweep: sweep}
}

// VerifyRequest 同步验证请求
type VerifyRequest struct {
	OrderNo    string `json:"orderNo" binding:"required"`
	PaymentKey string `json:"paymentKey" binding:"required"`
}

// Verify 同步验证支付
// @Summary 客户端支付完成后触发的同步对账
// @Tags Payment
// @Accept json
// @Produce json
// @Param request body VerifyRequest true "Verify payload"
// @Success 200 {object} response.Response{data=model.Order}
// @Router /payments/verify [post]
func (h *PaymentHandler) Verify(c *gin.Context) {
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	order, err := h.service.Verify(c.Request.Context(), req.OrderNo, req.PaymentKey)
	if err != nil {
		h.writeVerifyError(c, err)
		return
	}

	response.Success(c, order)
}

func (h *PaymentHandler) writeVerifyError(c *gin.Context, err error) {
	var conflict *service.ConflictError
	switch {
	case errors.As(err, &conflict):
		response.ErrorWithData(c, http.StatusConflict, response.ErrAmountMismatch,
			"Paid amount does not match the order", gin.H{
				"expected": conflict.Expected,
				"reported": conflict.Reported,
			})
	case errors.Is(err, service.ErrOrderNotFound):
		response.Error(c, http.StatusNotFound, response.ErrOrderNotFound, "Order not found")
	case errors.Is(err, service.ErrNotPaid):
		response.Error(c, http.StatusBadRequest, response.ErrPaymentNotPaid, err.Error())
	case errors.Is(err, provider.ErrPaymentNotFound):
		response.Error(c, http.StatusNotFound, response.ErrPaymentNotFound, "Payment not found at provider")
	case errors.Is(err, provider.ErrProviderUnavailable):
		response.Error(c, http.StatusBadGateway, response.ErrProviderUnavailable, "Payment provider unavailable")
	default:
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
	}
}

// Webhook 服务商回调入口
// @Summary 支付服务商异步回调
// @Tags Payment
// @Accept json
// @Produce json
// @Success 200 {object} response.Response
// @Router /payments/webhook [post]
func (h *PaymentHandler) Webhook(c *gin.Context) {
	rawBody, err := c.GetRawData()
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, "Unreadable body")
		return
	}

	// 验签失败直接拒绝，不做任何后续处理
	if !webhook.Verify(config.GlobalConfig.Payment.WebhookSecret, rawBody, c.GetHeader(signatureHeader)) {
		metrics.Global.RecordWebhookEvent("unknown", "bad_signature")
		response.Error(c, http.StatusUnauthorized, response.ErrInvalidSignature, "Invalid signature")
		return
	}

	var event service.WebhookEvent
	if err := bindEvent(rawBody, &event); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, "Malformed event")
		return
	}

	if err := h.service.HandleEvent(c.Request.Context(), &event); err != nil {
		// 暂时性失败返回 5xx 促使服务商重投；业务拒绝返回 200 防止无意义重投
		var transient *service.TransientError
		if errors.As(err, &transient) {
			response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, "Temporary failure, retry expected")
			return
		}

		logger.Log.Warn("webhook event rejected",
			zap.String("eventType", event.EventType),
			zap.String("orderNo", event.OrderNo),
			zap.Error(err))
		response.Fail(c, response.CodeError, err.Error())
		return
	}

	response.Success(c, nil)
}

// Sweep 过期订单扫描触发
// @Summary 取消入金超时的虚拟账户订单
// @Tags Payment
// @Produce json
// @Security CronAuth
// @Success 200 {object} response.Response{data=map[string]int64}
// @Router /payments/sweep [post]
func (h *PaymentHandler) Sweep(c *gin.Context) {
	count, err := h.sweep.RunOnce(time.Now())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
		return
	}

	response.Success(c, gin.H{"cancelled": count})
}

func bindEvent(raw []byte, event *service.WebhookEvent) error {
	if err := json.Unmarshal(raw, event); err != nil {
		return err
	}
	if event.EventType == "" || event.OrderNo == "" || event.PaymentKey == "" {
		return errors.New("missing required event fields")
	}
	return nil
}

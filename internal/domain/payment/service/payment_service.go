package service

import (
	"context"
	"errors"
	"fmt"

	orderModel "health_mall/internal/domain/order/model"
	orderRepo "health_mall/internal/domain/order/repository"
	"health_mall/internal/domain/payment/provider"
	shippingService "health_mall/internal/domain/shipping/service"
	"health_mall/pkg/logger"
	"health_mall/pkg/metrics"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 回调事件类型
const (
	EventPaid             = "Paid"
	EventCancelled        = "Cancelled"
	EventPartialCancelled = "PartialCancelled"
	EventFailed           = "Failed"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrNotPaid       = errors.New("payment is not in paid status")
	ErrUnknownEvent  = errors.New("unknown webhook event type")
)

// ConflictError 金额比对失败，双方金额都带出供人工审计
type ConflictError struct {
	OrderNo  string
	Expected int64
	Reported int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("amount mismatch for %s: expected %d, provider reported %d",
		e.OrderNo, e.Expected, e.Reported)
}

// TransientError 暂时性失败，回调方应以 5xx 响应促使服务商重投
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// WebhookEvent 服务商推送的回调事件
// 事件体中的金额字段即使存在也一律忽略，金额以反查结果为准
type WebhookEvent struct {
	EventType  string `json:"eventType" binding:"required"`
	OrderNo    string `json:"orderNo" binding:"required"`
	PaymentKey string `json:"paymentKey" binding:"required"`
}

// PaymentService 支付确认服务
type PaymentService interface {
	// Verify 同步验证：客户端支付完成后主动触发
	Verify(ctx context.Context, orderNo, paymentKey string) (*orderModel.Order, error)
	// HandleEvent 异步对账：服务商回调触发，验签后调用
	HandleEvent(ctx context.Context, event *WebhookEvent) error
}

type paymentService struct {
	orders     orderRepo.OrderRepository
	provider   provider.Client
	shipping   shippingService.ShippingService
	settlement SettlementService
}

func NewPaymentService(
	orders orderRepo.OrderRepository,
	client provider.Client,
	shipping shippingService.ShippingService,
	settlement SettlementService,
) PaymentService {
	return &paymentService{
		orders:     orders,
		provider:   client,
		shipping:   shipping,
		settlement: settlement,
	}
}

func (s *paymentService) Verify(ctx context.Context, orderNo, paymentKey string) (*orderModel.Order, error) {
	payment, err := s.provider.GetPayment(ctx, paymentKey)
	if err != nil {
		return nil, err
	}
	if payment.Status != provider.StatusPaid {
		return nil, fmt.Errorf("%w: provider status %s", ErrNotPaid, payment.Status)
	}

	order, err := s.orders.GetByOrderNo(orderNo)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	// 已完成的订单幂等返回成功，不重复任何副作用
	if order.Status == orderModel.StatusCompleted {
		return order, nil
	}

	recomputed, err := recomputeAmount(ctx, s.shipping, order)
	if err != nil {
		return nil, err
	}

	if !amountsMatch(recomputed.Total, payment.Amount) {
		logger.Log.Error("payment amount mismatch on verify",
			zap.String("orderNo", orderNo),
			zap.Int64("expected", recomputed.Total),
			zap.Int64("reported", payment.Amount))
		// 订单保持 pending，等待人工审计或正确金额的重试
		return nil, &ConflictError{OrderNo: orderNo, Expected: recomputed.Total, Reported: payment.Amount}
	}

	if err := s.settlement.Complete(ctx, order, payment.Amount, paymentKey, &recomputed.ShippingFee); err != nil {
		return nil, err
	}

	return s.orders.GetByOrderNo(orderNo)
}

// terminalStatus 事件蕴含的终态
func terminalStatus(eventType string) (string, error) {
	switch eventType {
	case EventPaid:
		return orderModel.StatusCompleted, nil
	case EventCancelled, EventPartialCancelled:
		return orderModel.StatusCancelled, nil
	case EventFailed:
		return orderModel.StatusFailed, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownEvent, eventType)
	}
}

func (s *paymentService) HandleEvent(ctx context.Context, event *WebhookEvent) error {
	target, err := terminalStatus(event.EventType)
	if err != nil {
		return err
	}

	// 反查服务商拿真实状态与金额；服务商不可用按暂时性失败处理
	payment, err := s.provider.GetPayment(ctx, event.PaymentKey)
	if err != nil {
		if errors.Is(err, provider.ErrProviderUnavailable) {
			return &TransientError{Err: err}
		}
		return err
	}

	order, err := s.orders.GetByOrderNo(event.OrderNo)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOrderNotFound
		}
		return &TransientError{Err: err}
	}

	// 终态一致即幂等成功，重投无副作用
	if order.Status == target {
		metrics.Global.RecordWebhookEvent(event.EventType, "noop")
		return nil
	}

	// 金额硬校验：不一致直接停手，不改任何状态
	// 与同步验证一样独立重算一遍，落库金额本身被篡改或算错时也能拦住
	var shippingFee *int64
	if event.EventType == EventPaid {
		if !amountsMatch(payment.Amount, order.TotalAmount) {
			logger.Log.Error("webhook amount mismatch, manual review required",
				zap.String("orderNo", event.OrderNo),
				zap.Int64("stored", order.TotalAmount),
				zap.Int64("reported", payment.Amount))
			metrics.Global.RecordWebhookEvent(event.EventType, "amount_mismatch")
			return &ConflictError{OrderNo: event.OrderNo, Expected: order.TotalAmount, Reported: payment.Amount}
		}

		recomputed, err := recomputeAmount(ctx, s.shipping, order)
		if err != nil {
			return &TransientError{Err: err}
		}
		if !amountsMatch(recomputed.Total, payment.Amount) {
			logger.Log.Error("webhook recomputed amount mismatch, manual review required",
				zap.String("orderNo", event.OrderNo),
				zap.Int64("recomputed", recomputed.Total),
				zap.Int64("reported", payment.Amount))
			metrics.Global.RecordWebhookEvent(event.EventType, "amount_mismatch")
			return &ConflictError{OrderNo: event.OrderNo, Expected: recomputed.Total, Reported: payment.Amount}
		}
		shippingFee = &recomputed.ShippingFee
	}

	var settleErr error
	switch event.EventType {
	case EventPaid:
		settleErr = s.settlement.Complete(ctx, order, payment.Amount, event.PaymentKey, shippingFee)
	case EventCancelled, EventPartialCancelled:
		settleErr = s.settlement.Cancel(ctx, order)
	case EventFailed:
		settleErr = s.settlement.Fail(ctx, order)
	}
	if settleErr != nil {
		// 状态写入失败要求服务商重投
		metrics.Global.RecordWebhookEvent(event.EventType, "transient_error")
		return &TransientError{Err: settleErr}
	}

	metrics.Global.RecordWebhookEvent(event.EventType, "applied")
	return nil
}

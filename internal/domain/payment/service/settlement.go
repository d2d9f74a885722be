package service

import (
	"context"
	"time"

	couponService "health_mall/internal/domain/coupon/service"
	orderModel "health_mall/internal/domain/order/model"
	orderRepo "health_mall/internal/domain/order/repository"
	pointsService "health_mall/internal/domain/points/service"
	"health_mall/internal/pkg/notification"
	"health_mall/internal/pkg/worker"
	"health_mall/pkg/logger"
	"health_mall/pkg/metrics"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// settleKeyTTL 结算幂等键保留时长，覆盖服务商的重投窗口
const settleKeyTTL = 24 * time.Hour

// SettleMarker 结算幂等键存储
// Claim 抢占失败说明同一事件已被另一条路径处理，调用方直接短路
// 抢键后状态写入失败必须 Release，否则重投会被误判为重复
type SettleMarker interface {
	Claim(ctx context.Context, key string) bool
	Release(ctx context.Context, key string)
}

type redisSettleMarker struct {
	rdb *redis.Client
}

func NewRedisSettleMarker(rdb *redis.Client) SettleMarker {
	return &redisSettleMarker{rdb: rdb}
}

// Claim SETNX 抢键，Redis 不可用时放行，由条件更新兜底
func (m *redisSettleMarker) Claim(ctx context.Context, key string) bool {
	ok, err := m.rdb.SetNX(ctx, key, 1, settleKeyTTL).Result()
	if err != nil {
		logger.Log.Warn("settlement idempotency key unavailable",
			zap.String("key", key), zap.Error(err))
		return true
	}
	return ok
}

func (m *redisSettleMarker) Release(ctx context.Context, key string) {
	if err := m.rdb.Del(ctx, key).Err(); err != nil {
		logger.Log.Warn("settlement idempotency key release failed",
			zap.String("key", key), zap.Error(err))
	}
}

// SettlementService 结算服务：支付确认的两条路径（同步验证、回调对账）共用
// 幂等键抢占失败即短路；状态写入以条件更新为硬守卫兜底
// 状态写入之后的每个副作用彼此独立、尽力而为，失败只记录，绝不回滚已提交的变更
type SettlementService interface {
	// Complete 订单完成：扣积分、占用券、返积分、发确认通知
	// shippingFee 非 nil 时一并持久化重算后的运费
	Complete(ctx context.Context, order *orderModel.Order, providerAmount int64, paymentKey string, shippingFee *int64) error
	// Cancel 订单取消：仅当订单曾完成时反向冲正积分与券
	Cancel(ctx context.Context, order *orderModel.Order) error
	// Fail 订单失败：只改状态，无账务副作用
	Fail(ctx context.Context, order *orderModel.Order) error
}

type settlementService struct {
	orders  orderRepo.OrderRepository
	points  pointsService.PointsService
	coupons couponService.CouponService
	notify  *worker.NotifyPool
	marker  SettleMarker
}

func NewSettlementService(
	orders orderRepo.OrderRepository,
	points pointsService.PointsService,
	coupons couponService.CouponService,
	notify *worker.NotifyPool,
	marker SettleMarker,
) SettlementService {
	return &settlementService{
		orders:  orders,
		points:  points,
		coupons: coupons,
		notify:  notify,
		marker:  marker,
	}
}

func settleKey(orderNo, event string) string {
	return "settle:" + orderNo + ":" + event
}

func (s *settlementService) claim(ctx context.Context, orderNo, event string) bool {
	if s.marker == nil {
		return true
	}
	return s.marker.Claim(ctx, settleKey(orderNo, event))
}

func (s *settlementService) release(ctx context.Context, orderNo, event string) {
	if s.marker != nil {
		s.marker.Release(ctx, settleKey(orderNo, event))
	}
}

func (s *settlementService) Complete(ctx context.Context, order *orderModel.Order, providerAmount int64, paymentKey string, shippingFee *int64) error {
	// 同步验证与回调竞争同一订单时，抢键失败的一方不再查库
	if !s.claim(ctx, order.OrderNo, "completed") {
		metrics.Global.RecordSettlement("completed", "duplicate")
		return nil
	}

	now := time.Now()
	updates := map[string]interface{}{
		"payment_key": paymentKey,
		"paid_at":     now,
	}
	if shippingFee != nil {
		updates["shipping_fee"] = *shippingFee
	}

	// 硬守卫：只有从待支付态赢得状态转移的一方执行副作用
	won, err := s.orders.UpdateStatusIf(order.OrderNo,
		[]string{orderModel.StatusPending, orderModel.StatusPaymentPending},
		orderModel.StatusCompleted, updates)
	if err != nil {
		// 状态写入失败要释放键，否则服务商重投会被当成重复投递吞掉
		s.release(ctx, order.OrderNo, "completed")
		return err
	}
	if !won {
		// 已由另一条路径完成，重复确认幂等返回
		metrics.Global.RecordSettlement("completed", "duplicate")
		return nil
	}

	if order.UserID != nil {
		userID := *order.UserID

		if order.PointsUsed > 0 {
			if err := s.points.Use(userID, order.OrderNo, order.PointsUsed); err != nil {
				logger.Log.Error("points debit failed after completion",
					zap.String("orderNo", order.OrderNo),
					zap.Int64("points", order.PointsUsed),
					zap.Error(err))
			}
		}

		if order.UserCouponID != nil {
			if err := s.coupons.MarkUsed(*order.UserCouponID, order.OrderNo); err != nil {
				logger.Log.Error("coupon mark-used failed after completion",
					zap.String("orderNo", order.OrderNo),
					zap.String("userCouponId", *order.UserCouponID),
					zap.Error(err))
			}
		}

		if err := s.points.Earn(userID, order.OrderNo, providerAmount); err != nil {
			logger.Log.Error("points earn failed after completion",
				zap.String("orderNo", order.OrderNo),
				zap.Error(err))
		}
	}

	s.enqueueNotify(worker.NotifyConfirmation, order)
	metrics.Global.RecordSettlement("completed", "applied")
	return nil
}

func (s *settlementService) Cancel(ctx context.Context, order *orderModel.Order) error {
	if !s.claim(ctx, order.OrderNo, "cancelled") {
		metrics.Global.RecordSettlement("cancelled", "duplicate")
		return nil
	}

	// 先尝试从 completed 转移：赢家负责冲正账务
	wasCompleted, err := s.orders.UpdateStatusIf(order.OrderNo,
		[]string{orderModel.StatusCompleted},
		orderModel.StatusCancelled, nil)
	if err != nil {
		s.release(ctx, order.OrderNo, "cancelled")
		return err
	}

	if !wasCompleted {
		won, err := s.orders.UpdateStatusIf(order.OrderNo,
			[]string{orderModel.StatusPending, orderModel.StatusPaymentPending},
			orderModel.StatusCancelled, nil)
		if err != nil {
			s.release(ctx, order.OrderNo, "cancelled")
			return err
		}
		if won {
			// 未完成即取消，无账务可冲正
			metrics.Global.RecordSettlement("cancelled", "applied")
			return nil
		}

		// 状态未变化：若订单曾完成（paid_at 有值）说明上次取消中断，继续冲正
		// 账务操作自身以流水去重，重复执行无副作用
		if order.PaidAt == nil {
			metrics.Global.RecordSettlement("cancelled", "duplicate")
			return nil
		}
	}

	if order.UserID != nil {
		userID := *order.UserID

		if order.PointsUsed > 0 {
			if err := s.points.RefundUsed(userID, order.OrderNo, order.PointsUsed); err != nil {
				logger.Log.Error("points refund failed after cancellation",
					zap.String("orderNo", order.OrderNo),
					zap.Error(err))
			}
		}

		if err := s.points.ClawbackEarned(userID, order.OrderNo); err != nil {
			logger.Log.Error("points clawback failed after cancellation",
				zap.String("orderNo", order.OrderNo),
				zap.Error(err))
		}

		if order.UserCouponID != nil {
			if err := s.coupons.Restore(*order.UserCouponID); err != nil {
				logger.Log.Error("coupon restore failed after cancellation",
					zap.String("orderNo", order.OrderNo),
					zap.Error(err))
			}
		}
	}

	s.enqueueNotify(worker.NotifyCancellation, order)
	metrics.Global.RecordSettlement("cancelled", "applied")
	return nil
}

func (s *settlementService) Fail(ctx context.Context, order *orderModel.Order) error {
	if !s.claim(ctx, order.OrderNo, "failed") {
		metrics.Global.RecordSettlement("failed", "duplicate")
		return nil
	}

	won, err := s.orders.UpdateStatusIf(order.OrderNo,
		[]string{orderModel.StatusPending, orderModel.StatusPaymentPending},
		orderModel.StatusFailed, nil)
	if err != nil {
		s.release(ctx, order.OrderNo, "failed")
		return err
	}
	if !won {
		metrics.Global.RecordSettlement("failed", "duplicate")
		return nil
	}
	metrics.Global.RecordSettlement("failed", "applied")
	return nil
}

func (s *settlementService) enqueueNotify(kind worker.NotifyKind, order *orderModel.Order) {
	if s.notify == nil || order.CustomerPhone == "" {
		return
	}

	summary := notification.OrderSummary{
		OrderNo:      order.OrderNo,
		CustomerName: order.CustomerName,
		TotalAmount:  order.TotalAmount,
	}
	if len(order.Items) > 0 {
		summary.ProductSummary = order.Items[0].ProductName
	}

	s.notify.AddTask(worker.NotifyTask{
		Kind:    kind,
		Phone:   order.CustomerPhone,
		Summary: summary,
	})
}

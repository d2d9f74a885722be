package service

import (
	"time"

	orderRepo "health_mall/internal/domain/order/repository"
	"health_mall/pkg/logger"
	"health_mall/pkg/metrics"

	"go.uber.org/zap"
)

// SweepService 过期订单扫描：取消入金超时的虚拟账户订单
// 批量条件更新只命中仍在待支付态的订单，与并发的回调对账互不干扰
type SweepService interface {
	RunOnce(now time.Time) (int64, error)
	// StartTicker 进程内定时触发，interval <= 0 时只接受外部触发
	StartTicker(interval time.Duration, stop <-chan struct{})
}

type sweepService struct {
	orders orderRepo.OrderRepository
}

func NewSweepService(orders orderRepo.OrderRepository) SweepService {
	return &sweepService{orders: orders}
}

func (s *sweepService) RunOnce(now time.Time) (int64, error) {
	count, err := s.orders.CancelExpiredVbank(now)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		logger.Log.Info("expired vbank orders cancelled", zap.Int64("count", count))
		metrics.Global.RecordSweepCancelled(count)
	}
	return count, nil
}

func (s *sweepService) StartTicker(interval time.Duration, stop <-chan struct{}) {
	if interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if _, err := s.RunOnce(time.Now()); err != nil {
					logger.Log.Error("expiry sweep failed", zap.Error(err))
				}
			}
		}
	}()
}

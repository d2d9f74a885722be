package service

import (
	"errors"
	"math"

	"health_mall/internal/domain/points/model"
	"health_mall/internal/domain/points/repository"

	"gorm.io/gorm"
)

// ErrInsufficientBalance 余额不足
// 原子条件扣减是唯一的扣减路径，余额不足即报错，不降级为读改写
var ErrInsufficientBalance = repository.ErrInsufficientBalance

// PointsService 积分服务
// 所有操作以 orderNo+类型 做流水去重，重复投递不产生多余副作用
type PointsService interface {
	// Earn 按实付金额返还积分
	Earn(userID, orderNo string, paidAmount int64) error
	// Use 扣减下单时声明使用的积分
	Use(userID, orderNo string, amount int64) error
	// RefundUsed 取消时退回已扣积分
	RefundUsed(userID, orderNo string, amount int64) error
	// ClawbackEarned 取消时回收完成时赠送的积分，余额不足时扣到 0
	// 回收额取该订单 earn 流水的实际入账值，不按订单金额重算
	ClawbackEarned(userID, orderNo string) error

	GetAccount(userID string) (*model.PointsAccount, error)
	GetLedger(userID string, offset, limit int) ([]model.PointLedgerEntry, int64, error)
}

type pointsService struct {
	repo repository.PointsRepository
}

func NewPointsService(repo repository.PointsRepository) PointsService {
	return &pointsService{repo: repo}
}

// EarnAmount 返点金额：floor(paidAmount × 5%)
func EarnAmount(paidAmount int64) int64 {
	return int64(math.Floor(float64(paidAmount) * model.EarnRate))
}

func (s *pointsService) Earn(userID, orderNo string, paidAmount int64) error {
	amount := EarnAmount(paidAmount)
	if amount <= 0 {
		return nil
	}

	// 重投去重：该订单已有 earn 流水则直接成功
	if exists, err := s.repo.HasEntry(orderNo, model.EntryTypeEarn, model.ReasonOrderEarn); err != nil {
		return err
	} else if exists {
		return nil
	}

	if err := s.ensureAccount(userID); err != nil {
		return err
	}

	if err := s.repo.Credit(userID, amount, true); err != nil {
		return err
	}

	return s.repo.AppendEntry(&model.PointLedgerEntry{
		UserID:  userID,
		Delta:   amount,
		Type:    model.EntryTypeEarn,
		Reason:  model.ReasonOrderEarn,
		OrderNo: orderNo,
	})
}

func (s *pointsService) Use(userID, orderNo string, amount int64) error {
	if amount <= 0 {
		return nil
	}

	if exists, err := s.repo.HasEntry(orderNo, model.EntryTypeUse, model.ReasonOrderUse); err != nil {
		return err
	} else if exists {
		return nil
	}

	if err := s.repo.DecrementIfEnough(userID, amount, true); err != nil {
		return err
	}

	return s.repo.AppendEntry(&model.PointLedgerEntry{
		UserID:  userID,
		Delta:   -amount,
		Type:    model.EntryTypeUse,
		Reason:  model.ReasonOrderUse,
		OrderNo: orderNo,
	})
}

func (s *pointsService) RefundUsed(userID, orderNo string, amount int64) error {
	if amount <= 0 {
		return nil
	}

	if exists, err := s.repo.HasEntry(orderNo, model.EntryTypeEarn, model.ReasonCancelRefund); err != nil {
		return err
	} else if exists {
		return nil
	}

	if err := s.ensureAccount(userID); err != nil {
		return err
	}

	if err := s.repo.Credit(userID, amount, false); err != nil {
		return err
	}

	return s.repo.AppendEntry(&model.PointLedgerEntry{
		UserID:  userID,
		Delta:   amount,
		Type:    model.EntryTypeEarn,
		Reason:  model.ReasonCancelRefund,
		OrderNo: orderNo,
	})
}

func (s *pointsService) ClawbackEarned(userID, orderNo string) error {
	if exists, err := s.repo.HasEntry(orderNo, model.EntryTypeUse, model.ReasonCancelClawback); err != nil {
		return err
	} else if exists {
		return nil
	}

	// 按流水冲正：earn 从未入账（或入账额与订单金额有舍入偏差）时不会多扣一分
	entry, err := s.repo.FindEntry(orderNo, model.EntryTypeEarn, model.ReasonOrderEarn)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	earned := entry.Delta
	if earned <= 0 {
		return nil
	}

	account, err := s.repo.GetAccount(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil // 无账户即无可回收积分
		}
		return err
	}

	// 回收量钳位到当前余额，已被消费的部分不追负
	take := earned
	if account.Balance < take {
		take = account.Balance
	}
	if take <= 0 {
		return nil
	}

	if err := s.repo.DecrementClamped(userID, take); err != nil {
		return err
	}

	return s.repo.AppendEntry(&model.PointLedgerEntry{
		UserID:  userID,
		Delta:   -take,
		Type:    model.EntryTypeUse,
		Reason:  model.ReasonCancelClawback,
		OrderNo: orderNo,
	})
}

func (s *pointsService) GetAccount(userID string) (*model.PointsAccount, error) {
	account, err := s.repo.GetAccount(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &model.PointsAccount{UserID: userID}, nil
		}
		return nil, err
	}
	return account, nil
}

func (s *pointsService) GetLedger(userID string, offset, limit int) ([]model.PointLedgerEntry, int64, error) {
	return s.repo.GetEntries(userID, offset, limit)
}

func (s *pointsService) ensureAccount(userID string) error {
	_, err := s.repo.GetAccount(userID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	createErr := s.repo.CreateAccount(&model.PointsAccount{UserID: userID})
	if createErr == nil {
		return nil
	}
	// 并发创建撞唯一索引时重读确认
	if _, again := s.repo.GetAccount(userID); again == nil {
		return nil
	}
	return createErr
}

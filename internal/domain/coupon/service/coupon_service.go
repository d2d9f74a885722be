package service

import (
	"errors"
	"fmt"
	"math"
	"time"

	"health_mall/internal/domain/coupon/model"
	"health_mall/internal/domain/coupon/repository"

	"gorm.io/gorm"
)

var (
	ErrCouponNotFound   = errors.New("coupon not found")
	ErrCouponNotActive  = errors.New("coupon is not in its validity window")
	ErrCouponOutOfStock = errors.New("coupon is out of stock")
	ErrAlreadyClaimed   = errors.New("coupon already claimed")
	ErrCouponUsed       = errors.New("coupon already used by another order")
	ErrCouponNotOwned   = errors.New("coupon does not belong to this user")
)

// CouponService 优惠券服务
type CouponService interface {
	// Claim 领券：条件扣库存 + 每人一张
	Claim(userID, couponID string) (*model.UserCoupon, error)
	ListMine(userID string) ([]model.UserCoupon, error)

	// ValidateForOrder 下单前校验用户券可用性，返回券定义供折扣计算
	ValidateForOrder(userID, userCouponID string) (*model.UserCoupon, error)

	// MarkUsed 结算时占用用户券，重复投递幂等
	MarkUsed(userCouponID, orderNo string) error
	// Restore 取消时释放用户券，重复投递幂等
	Restore(userCouponID string) error
}

// Discount 折扣金额：floor(rate × amount)，超过封顶按封顶计
func Discount(coupon *model.Coupon, amount int64) int64 {
	d := int64(math.Floor(float64(amount) * coupon.DiscountRate))
	if coupon.MaxDiscount > 0 && d > coupon.MaxDiscount {
		d = coupon.MaxDiscount
	}
	if d < 0 {
		return 0
	}
	return d
}

type couponService struct {
	repo repository.CouponRepository
}

func NewCouponService(repo repository.CouponRepository) CouponService {
	return &couponService{repo: repo}
}

func (s *couponService) Claim(userID, couponID string) (*model.UserCoupon, error) {
	coupon, err := s.repo.GetByID(couponID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCouponNotFound
		}
		return nil, err
	}

	now := time.Now()
	if now.Before(coupon.StartTime) || now.After(coupon.EndTime) {
		return nil, ErrCouponNotActive
	}

	claimed, err := s.repo.HasUserClaimed(userID, couponID)
	if err != nil {
		return nil, err
	}
	if claimed {
		return nil, ErrAlreadyClaimed
	}

	// 先扣库存后发券；发券失败时库存已扣，靠对账补偿，不在此处回滚
	ok, err := s.repo.DecreaseStock(couponID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrCouponOutOfStock
	}

	uc := &model.UserCoupon{
		UserID:   userID,
		CouponID: couponID,
		Status:   model.StatusUnused,
	}
	if err := s.repo.CreateUserCoupon(uc); err != nil {
		return nil, err
	}
	uc.Coupon = coupon
	return uc, nil
}

func (s *couponService) ListMine(userID string) ([]model.UserCoupon, error) {
	return s.repo.ListByUser(userID)
}

func (s *couponService) ValidateForOrder(userID, userCouponID string) (*model.UserCoupon, error) {
	uc, err := s.repo.GetUserCoupon(userCouponID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCouponNotFound
		}
		return nil, err
	}
	if uc.UserID != userID {
		return nil, ErrCouponNotOwned
	}
	if uc.Status != model.StatusUnused {
		return nil, ErrCouponUsed
	}
	if uc.Coupon != nil {
		now := time.Now()
		if now.Before(uc.Coupon.StartTime) || now.After(uc.Coupon.EndTime) {
			return nil, ErrCouponNotActive
		}
	}
	return uc, nil
}

func (s *couponService) MarkUsed(userCouponID, orderNo string) error {
	ok, err := s.repo.MarkUsedIf(userCouponID, orderNo, time.Now())
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	// 条件更新未命中：同单重投视为幂等成功，被他单占用才算冲突
	uc, err := s.repo.GetUserCoupon(userCouponID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCouponNotFound
		}
		return err
	}
	if uc.Status == model.StatusUsed && uc.OrderNo == orderNo {
		return nil
	}
	return fmt.Errorf("%w: held by order %s", ErrCouponUsed, uc.OrderNo)
}

func (s *couponService) Restore(userCouponID string) error {
	// 已经是 unused 时条件更新不命中，视为幂等成功
	_, err := s.repo.RestoreIf(userCouponID)
	return err
}

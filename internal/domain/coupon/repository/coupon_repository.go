package repository

import (
	"time"

	"health_mall/internal/domain/coupon/model"

	"gorm.io/gorm"
)

type CouponRepository interface {
	Create(coupon *model.Coupon) error
	GetByID(id string) (*model.Coupon, error)
	// DecreaseStock 条件扣库存，stock > 0 才生效，返回是否命中
	DecreaseStock(couponID string) (bool, error)

	CreateUserCoupon(userCoupon *model.UserCoupon) error
	HasUserClaimed(userID, couponID string) (bool, error)
	GetUserCoupon(id string) (*model.UserCoupon, error)
	ListByUser(userID string) ([]model.UserCoupon, error)

	// MarkUsedIf 仅在 unused 状态下标记已用并记录占用订单，返回是否命中
	MarkUsedIf(userCouponID, orderNo string, usedAt time.Time) (bool, error)
	// RestoreIf 仅在 used 状态下还原为 unused 并清除占用，返回是否命中
	RestoreIf(userCouponID string) (bool, error)
}

type couponRepository struct {
	db *gorm.DB
}

func NewCouponRepository(db *gorm.DB) CouponRepository {
	return &couponRepository{db: db}
}

func (r *couponRepository) Create(coupon *model.Coupon) error {
	return r.db.Create(coupon).Error
}

func (r *couponRepository) GetByID(id string) (*model.Coupon, error) {
	var coupon model.Coupon
	if err := r.db.Where("id = ?", id).First(&coupon).Error; err != nil {
		return nil, err
	}
	return &coupon, nil
}

func (r *couponRepository) DecreaseStock(couponID string) (bool, error) {
	result := r.db.Model(&model.Coupon{}).
		Where("id = ? AND stock > 0", couponID).
		UpdateColumn("stock", gorm.Expr("stock - 1"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *couponRepository) CreateUserCoupon(userCoupon *model.UserCoupon) error {
	return r.db.Create(userCoupon).Error
}

func (r *couponRepository) HasUserClaimed(userID, couponID string) (bool, error) {
	var count int64
	err := r.db.Model(&model.UserCoupon{}).
		Where("user_id = ? AND coupon_id = ?", userID, couponID).
		Count(&count).Error
	return count > 0, err
}

func (r *couponRepository) GetUserCoupon(id string) (*model.UserCoupon, error) {
	var uc model.UserCoupon
	if err := r.db.Preload("Coupon").Where("id = ?", id).First(&uc).Error; err != nil {
		return nil, err
	}
	return &uc, nil
}

func (r *couponRepository) ListByUser(userID string) ([]model.UserCoupon, error) {
	var list []model.UserCoupon
	err := r.db.Preload("Coupon").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&list).Error
	return list, err
}

func (r *couponRepository) MarkUsedIf(userCouponID, orderNo string, usedAt time.Time) (bool, error) {
	result := r.db.Model(&model.UserCoupon{}).
		Where("id = ? AND status = ?", userCouponID, model.StatusUnused).
		Updates(map[string]interface{}{
			"status":   model.StatusUsed,
			"used_at":  usedAt,
			"order_no": orderNo,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *couponRepository) RestoreIf(userCouponID string) (bool, error) {
	result := r.db.Model(&model.UserCoupon{}).
		Where("id = ? AND status = ?", userCouponID, model.StatusUsed).
		Updates(map[string]interface{}{
			"status":   model.StatusUnused,
			"used_at":  nil,
			"order_no": "",
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

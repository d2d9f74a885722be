package model

import (
	"time"

	baseModel "health_mall/pkg/model"
)

// 用户券状态
const (
	StatusUnused = "unused"
	StatusUsed   = "used"
)

// Coupon 优惠券定义
// 折扣为比例制，带封顶金额（MaxDiscount = 0 表示不封顶）
type Coupon struct {
	baseModel.BaseModel
	Name         string    `gorm:"type:varchar(100);not null" json:"name"`
	DiscountRate float64   `gorm:"not null" json:"discountRate"`
	MaxDiscount  int64     `gorm:"not null;default:0" json:"maxDiscount"`
	Total        int       `gorm:"not null" json:"total"`
	Stock        int       `gorm:"not null" json:"stock"` // 剩余库存
	StartTime    time.Time `gorm:"not null" json:"startTime"`
	EndTime      time.Time `gorm:"not null" json:"endTime"`
}

// UserCoupon 用户领取的优惠券
// 同一张用户券同一时刻最多被一个未取消的订单占用，OrderNo 记录占用方
type UserCoupon struct {
	baseModel.BaseModel
	UserID   string     `gorm:"type:varchar(36);index;not null" json:"userId"`
	CouponID string     `gorm:"type:varchar(36);index;not null" json:"couponId"`
	Status   string     `gorm:"type:varchar(20);default:'unused'" json:"status"`
	UsedAt   *time.Time `json:"usedAt"`
	OrderNo  string     `gorm:"type:varchar(64);default:''" json:"orderNo"`

	Coupon *Coupon `gorm:"foreignKey:CouponID" json:"coupon,omitempty"`
}

func (UserCoupon) TableName() string {
	return "user_coupons"
}

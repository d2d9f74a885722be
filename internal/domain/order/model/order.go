package model

import (
	"encoding/json"
	"time"

	baseModel "health_mall/pkg/model"
)

// Order 订单模型
type Order struct {
	baseModel.BaseModel
	OrderNo            string          `gorm:"unique;not null" json:"orderNo"`
	UserID             *string         `gorm:"type:uuid" json:"userId,omitempty"` // 游客下单时为空
	Status             string          `gorm:"default:'pending'" json:"status"`
	ConsultationStatus string          `gorm:"default:'waiting'" json:"consultationStatus"` // 问诊流程标记，与支付状态独立
	CustomerName       string          `json:"customerName"`
	CustomerPhone      string          `json:"customerPhone"`
	PostalCode         string          `json:"postalCode"`
	TotalAmount        int64           `json:"totalAmount"` // 最终应付金额
	ShippingFee        int64           `json:"shippingFee"`
	CouponDiscount     int64           `json:"couponDiscount"`
	PointsUsed         int64           `json:"pointsUsed"`
	UserCouponID       *string         `gorm:"type:uuid" json:"userCouponId,omitempty"`
	PaymentMethod      string          `json:"paymentMethod"` // card, vbank
	PaymentKey         string          `gorm:"index" json:"paymentKey"` // 服务商交易号
	DepositDeadline    *time.Time      `json:"depositDeadline,omitempty"` // 虚拟账户入金期限
	PaidAt             *time.Time      `json:"paidAt,omitempty"`
	Items              []OrderItem     `gorm:"foreignKey:OrderID" json:"items"`
	Intake             *IntakeSnapshot `gorm:"foreignKey:OrderID" json:"intake,omitempty"`
}

// OrderItem 订单项，下单时快照商品信息，创建后不再回读实时价格
type OrderItem struct {
	baseModel.BaseModel
	OrderID      string          `gorm:"type:uuid;index;not null" json:"orderId"`
	ProductName  string          `gorm:"not null" json:"productName"`
	ProductPrice int64           `gorm:"not null" json:"productPrice"`
	Quantity     int             `gorm:"not null;default:1" json:"quantity"`
	Options      json.RawMessage `gorm:"type:jsonb" json:"options,omitempty"`
	AddOns       json.RawMessage `gorm:"type:jsonb" json:"addOns,omitempty"`
}

// IntakeSnapshot 问诊问卷快照，随订单一次性写入，之后不可变更
type IntakeSnapshot struct {
	baseModel.BaseModel
	OrderID string          `gorm:"type:uuid;uniqueIndex;not null" json:"orderId"`
	Answers json.RawMessage `gorm:"type:jsonb;not null" json:"answers"`
}

// IntakeProfile 用户可复用的问卷档案，下单时尽力更新，失败不影响订单
type IntakeProfile struct {
	baseModel.BaseModel
	UserID  string          `gorm:"type:uuid;uniqueIndex;not null" json:"userId"`
	Answers json.RawMessage `gorm:"type:jsonb;not null" json:"answers"`
}

const (
	StatusPending        = "pending"
	StatusPaymentPending = "payment_pending" // 虚拟账户已发放，等待入金
	StatusCompleted      = "completed"
	StatusCancelled      = "cancelled"
	StatusFailed         = "failed"

	MethodCard  = "card"
	MethodVbank = "vbank"

	ConsultationWaiting = "waiting"
	ConsultationDone    = "done"
	ConsultationSkipped = "skipped"
)

// ProductAmount 按订单项快照重算商品金额
func (o *Order) ProductAmount() int64 {
	var sum int64
	for _, item := range o.Items {
		sum += item.ProductPrice * int64(item.Quantity)
	}
	return sum
}

package model

import (
	baseModel "health_mall/pkg/model"
)

// PointsAccount 用户积分账户
// 余额不变量：balance >= 0，且与流水累加结果对账一致
type PointsAccount struct {
	baseModel.BaseModel
	UserID      string `gorm:"type:uuid;uniqueIndex;not null" json:"userId"`
	Balance     int64  `gorm:"not null;default:0" json:"balance"`
	TotalEarned int64  `gorm:"not null;default:0" json:"totalEarned"`
	TotalUsed   int64  `gorm:"not null;default:0" json:"totalUsed"`
}

// PointLedgerEntry 积分流水，只追加不修改
type PointLedgerEntry struct {
	baseModel.BaseModel
	UserID  string `gorm:"type:uuid;index;not null" json:"userId"`
	Delta   int64  `gorm:"not null" json:"delta"` // 有符号变动量
	Type    string `gorm:"not null" json:"type"`  // earn, use
	Reason  string `gorm:"not null" json:"reason"`
	OrderNo string `gorm:"index" json:"orderNo"`
}

const (
	EntryTypeEarn = "earn"
	EntryTypeUse  = "use"

	ReasonOrderEarn      = "order_earn"
	ReasonOrderUse       = "order_use"
	ReasonCancelRefund   = "cancel_refund"
	ReasonCancelClawback = "cancel_clawback"
)

// EarnRate 支付完成后按实付金额返还积分的比例（5%）
const EarnRate = 0.05

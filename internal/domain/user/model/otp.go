package model

import (
	"time"

	baseModel "health_mall/pkg/model"
)

// OTPRecord 短信验证码记录
// 同一手机号只有最新一条未验证记录有效，旧记录在发送新码时作废
type OTPRecord struct {
	baseModel.BaseModel
	Phone      string     `gorm:"index;not null" json:"phone"`
	Flow       string     `gorm:"not null" json:"flow"` // login, signup, find_account, reset_password
	CodeHash   string     `gorm:"not null" json:"-"`
	ExpiresAt  time.Time  `gorm:"not null" json:"expiresAt"`
	Attempts   int        `gorm:"default:0" json:"attempts"`
	Verified   bool       `gorm:"default:false" json:"verified"`
	VerifiedAt *time.Time `json:"verifiedAt,omitempty"`
	Superseded bool       `gorm:"default:false" json:"-"`
}

// 验证码流程标识，发送时显式指定，不做推断
const (
	FlowLogin         = "login"
	FlowSignup        = "signup"
	FlowFindAccount   = "find_account"
	FlowResetPassword = "reset_password"
)

// ValidFlow 校验流程参数
func ValidFlow(flow string) bool {
	switch flow {
	case FlowLogin, FlowSignup, FlowFindAccount, FlowResetPassword:
		return true
	}
	return false
}

package model

import (
	"time"

	baseModel "health_mall/pkg/model"
)

// User 用户模型，手机号为唯一登录标识
type User struct {
	baseModel.BaseModel
	Phone         string     `gorm:"unique;not null" json:"phone"`
	Name          string     `json:"name"`
	Role          int        `gorm:"default:1" json:"role"`
	Status        int        `gorm:"default:1" json:"status"`
	Token         string     `json:"-"`
	TokenExpireAt *time.Time `json:"-"`
}

const (
	RoleUser  = 1
	RoleAdmin = 9

	StatusNormal  = 1
	StatusDeleted = 3
)

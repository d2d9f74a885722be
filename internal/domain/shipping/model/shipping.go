package model

import (
	baseModel "health_mall/pkg/model"
)

// ShippingSetting 运费设置，单条生效记录
type ShippingSetting struct {
	baseModel.BaseModel
	BaseFee          int64 `gorm:"not null" json:"baseFee"`
	FreeThreshold    int64 `gorm:"not null" json:"freeThreshold"`
	RemoteDefaultFee int64 `gorm:"not null" json:"remoteDefaultFee"`
	Active           bool  `gorm:"default:true" json:"active"`
}

// RemoteArea 偏远地区邮编表
type RemoteArea struct {
	baseModel.BaseModel
	PostalCode    string `gorm:"unique;not null" json:"postalCode"`
	RegionType    string `gorm:"not null" json:"regionType"` // jeju, island
	AdditionalFee int64  `gorm:"not null" json:"additionalFee"`
}

const (
	RegionJeju   = "jeju"
	RegionIsland = "island"
)

// 济州岛邮编号段，表中无记录时按号段兜底判定
const (
	JejuPostalMin = 63000
	JejuPostalMax = 63644
)

package repository

import (
	"health_mall/internal/domain/shipping/model"

	"gorm.io/gorm"
)

// ShippingRepository 运费设置与偏远地区表仓库
type ShippingRepository interface {
	GetActiveSetting() (*model.ShippingSetting, error)
	GetRemoteArea(postalCode string) (*model.RemoteArea, error)
}

type shippingRepository struct {
	db *gorm.DB
}

func NewShippingRepository(db *gorm.DB) ShippingRepository {
	return &shippingRepository{db: db}
}

func (r *shippingRepository) GetActiveSetting() (*model.ShippingSetting, error) {
	var setting model.ShippingSetting
	if err := r.db.Where("active = true").Order("created_at DESC").First(&setting).Error; err != nil {
		return nil, err
	}
	return &setting, nil
}

func (r *shippingRepository) GetRemoteArea(postalCode string) (*model.RemoteArea, error) {
	var area model.RemoteArea
	if err := r.db.Where("postal_code = ?", postalCode).First(&area).Error; err != nil {
		return nil, err
	}
	return &area, nil
}

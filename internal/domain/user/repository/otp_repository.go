package repository

import (
	"time"

	"health_mall/internal/domain/user/model"

	"gorm.io/gorm"
)

// OTPRepository 验证码记录仓库
type OTPRepository interface {
	Create(record *model.OTPRecord) error
	// GetLatestActive 取该手机号+流程下最新一条未验证且未作废的记录
	GetLatestActive(phone, flow string) (*model.OTPRecord, error)
	// SupersedePending 作废该手机号此前所有未验证记录
	SupersedePending(phone string) error
	IncrementAttempts(id string) (int, error)
	MarkVerified(id string, at time.Time) error
}

type otpRepository struct {
	db *gorm.DB
}

func NewOTPRepository(db *gorm.DB) OTPRepository {
	return &otpRepository{db: db}
}

func (r *otpRepository) Create(record *model.OTPRecord) error {
	return r.db.Create(record).Error
}

func (r *otpRepository) GetLatestActive(phone, flow string) (*model.OTPRecord, error) {
	var record model.OTPRecord
	err := r.db.
		Where("phone = ? AND flow = ? AND verified = false AND superseded = false", phone, flow).
		Order("created_at DESC").
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *otpRepository) SupersedePending(phone string) error {
	return r.db.Model(&model.OTPRecord{}).
		Where("phone = ? AND verified = false AND superseded = false", phone).
		Update("superseded", true).Error
}

// IncrementAttempts 原子自增尝试次数并返回最新值
func (r *otpRepository) IncrementAttempts(id string) (int, error) {
	err := r.db.Model(&model.OTPRecord{}).
		Where("id = ?", id).
		UpdateColumn("attempts", gorm.Expr("attempts + 1")).Error
	if err != nil {
		return 0, err
	}

	var record model.OTPRecord
	if err := r.db.Select("attempts").Where("id = ?", id).First(&record).Error; err != nil {
		return 0, err
	}
	return record.Attempts, nil
}

func (r *otpRepository) MarkVerified(id string, at time.Time) error {
	return r.db.Model(&model.OTPRecord{}).
		Where("id = ? AND verified = false", id).
		Updates(map[string]interface{}{
			"verified":    true,
			"verified_at": at,
		}).Error
}

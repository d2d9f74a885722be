package repository

import (
	"errors"

	"health_mall/internal/domain/points/model"

	"gorm.io/gorm"
)

// ErrInsufficientBalance 余额不足，条件扣减未命中
var ErrInsufficientBalance = errors.New("insufficient points balance")

// PointsRepository 积分账户与流水仓库
type PointsRepository interface {
	GetAccount(userID string) (*model.PointsAccount, error)
	CreateAccount(account *model.PointsAccount) error

	// Credit 无条件加额（earn / refund / clawback 的反向）
	Credit(userID string, amount int64, earned bool) error

	// DecrementIfEnough 条件扣减：balance >= amount 时才生效
	// 单条 UPDATE 原子执行，并发重投不会把余额扣成负数
	DecrementIfEnough(userID string, amount int64, used bool) error

	// DecrementClamped 钳位扣减：余额不足时扣到 0（取消时回收已赠积分）
	DecrementClamped(userID string, amount int64) error

	AppendEntry(entry *model.PointLedgerEntry) error
	// HasEntry 判断某订单某类型流水是否已存在，重投去重
	HasEntry(orderNo, entryType, reason string) (bool, error)
	// FindEntry 取某订单某类型的流水，冲正时以实际入账额为准
	FindEntry(orderNo, entryType, reason string) (*model.PointLedgerEntry, error)
	GetEntries(userID string, offset, limit int) ([]model.PointLedgerEntry, int64, error)
}

type pointsRepository struct {
	db *gorm.DB
}

func NewPointsRepository(db *gorm.DB) PointsRepository {
	return &pointsRepository{db: db}
}

func (r *pointsRepository) GetAccount(userID string) (*model.PointsAccount, error) {
	var account model.PointsAccount
	if err := r.db.Where("user_id = ?", userID).First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *pointsRepository) CreateAccount(account *model.PointsAccount) error {
	return r.db.Create(account).Error
}

func (r *pointsRepository) Credit(userID string, amount int64, earned bool) error {
	updates := map[string]interface{}{
		"balance": gorm.Expr("balance + ?", amount),
	}
	if earned {
		updates["total_earned"] = gorm.Expr("total_earned + ?", amount)
	}
	result := r.db.Model(&model.PointsAccount{}).
		Where("user_id = ?", userID).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *pointsRepository) DecrementIfEnough(userID string, amount int64, used bool) error {
	updates := map[string]interface{}{
		"balance": gorm.Expr("balance - ?", amount),
	}
	if used {
		updates["total_used"] = gorm.Expr("total_used + ?", amount)
	}
	result := r.db.Model(&model.PointsAccount{}).
		Where("user_id = ? AND balance >= ?", userID, amount).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrInsufficientBalance
	}
	return nil
}

func (r *pointsRepository) DecrementClamped(userID string, amount int64) error {
	// LEAST 保证扣减后不为负，重复回收最多扣到 0
	result := r.db.Model(&model.PointsAccount{}).
		Where("user_id = ?", userID).
		Update("balance", gorm.Expr("balance - LEAST(balance, ?)", amount))
	return result.Error
}

func (r *pointsRepository) AppendEntry(entry *model.PointLedgerEntry) error {
	return r.db.Create(entry).Error
}

func (r *pointsRepository) HasEntry(orderNo, entryType, reason string) (bool, error) {
	var count int64
	err := r.db.Model(&model.PointLedgerEntry{}).
		Where("order_no = ? AND type = ? AND reason = ?", orderNo, entryType, reason).
		Count(&count).Error
	return count > 0, err
}

func (r *pointsRepository) FindEntry(orderNo, entryType, reason string) (*model.PointLedgerEntry, error) {
	var entry model.PointLedgerEntry
	err := r.db.Where("order_no = ? AND type = ? AND reason = ?", orderNo, entryType, reason).
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *pointsRepository) GetEntries(userID string, offset, limit int) ([]model.PointLedgerEntry, int64, error) {
	var entries []model.PointLedgerEntry
	var total int64

	if err := r.db.Model(&model.PointLedgerEntry{}).
		Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

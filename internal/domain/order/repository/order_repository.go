package repository

import (
	"encoding/json"
	"time"

	"health_mall/internal/domain/order/model"

	"gorm.io/gorm"
)

// OrderRepository 订单仓库
type OrderRepository interface {
	CreateOrder(order *model.Order) error
	CreateItems(items []model.OrderItem) error
	CreateIntake(intake *model.IntakeSnapshot) error
	UpsertIntakeProfile(userID string, answers json.RawMessage) error

	GetByOrderNo(orderNo string) (*model.Order, error)

	// UpdateStatusIf 条件状态更新：仅当前状态匹配 from 时才写入，返回是否生效
	// 同步验证、回调对账和过期扫描共用此守卫，关闭重复确认竞态
	UpdateStatusIf(orderNo string, from []string, to string, updates map[string]interface{}) (bool, error)

	// 补偿删除：创建 saga 失败时按倒序调用，物理删除避免残留半成品订单
	DeleteIntakeByOrderID(orderID string) error
	DeleteItemsByOrderID(orderID string) error
	DeleteOrderByID(orderID string) error

	// DeletePendingByOrderNo 客户端支付中止时删除订单，仅未收款状态可删
	// 虚拟账户订单在入金前同样可以中止
	DeletePendingByOrderNo(orderNo string) (bool, error)

	// CancelExpiredVbank 批量取消入金超时的虚拟账户订单，返回取消数量
	CancelExpiredVbank(now time.Time) (int64, error)
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) CreateOrder(order *model.Order) error {
	// 关联项单独写入，saga 逐步推进
	return r.db.Omit("Items", "Intake").Create(order).Error
}

func (r *orderRepository) CreateItems(items []model.OrderItem) error {
	return r.db.Create(&items).Error
}

func (r *orderRepository) CreateIntake(intake *model.IntakeSnapshot) error {
	return r.db.Create(intake).Error
}

func (r *orderRepository) UpsertIntakeProfile(userID string, answers json.RawMessage) error {
	var profile model.IntakeProfile
	err := r.db.Where("user_id = ?", userID).First(&profile).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			return err
		}
		return r.db.Create(&model.IntakeProfile{UserID: userID, Answers: answers}).Error
	}

	return r.db.Model(&profile).Update("answers", answers).Error
}

func (r *orderRepository) GetByOrderNo(orderNo string) (*model.Order, error) {
	var order model.Order
	err := r.db.Preload("Items").Preload("Intake").
		Where("order_no = ?", orderNo).First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) UpdateStatusIf(orderNo string, from []string, to string, updates map[string]interface{}) (bool, error) {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = to

	result := r.db.Model(&model.Order{}).
		Where("order_no = ? AND status IN ?", orderNo, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *orderRepository) DeleteIntakeByOrderID(orderID string) error {
	return r.db.Unscoped().Where("order_id = ?", orderID).Delete(&model.IntakeSnapshot{}).Error
}

func (r *orderRepository) DeleteItemsByOrderID(orderID string) error {
	return r.db.Unscoped().Where("order_id = ?", orderID).Delete(&model.OrderItem{}).Error
}

func (r *orderRepository) DeleteOrderByID(orderID string) error {
	return r.db.Unscoped().Where("id = ?", orderID).Delete(&model.Order{}).Error
}

func (r *orderRepository) DeletePendingByOrderNo(orderNo string) (bool, error) {
	order, err := r.GetByOrderNo(orderNo)
	if err != nil {
		return false, err
	}

	// 条件删除防止与确认路径并发竞争
	result := r.db.Unscoped().
		Where("id = ? AND status IN ?", order.ID,
			[]string{model.StatusPending, model.StatusPaymentPending}).
		Delete(&model.Order{})
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		return false, nil
	}

	// 订单删除成功后清理附属记录
	if err := r.DeleteIntakeByOrderID(order.ID); err != nil {
		return true, err
	}
	if err := r.DeleteItemsByOrderID(order.ID); err != nil {
		return true, err
	}
	return true, nil
}

func (r *orderRepository) CancelExpiredVbank(now time.Time) (int64, error) {
	result := r.db.Model(&model.Order{}).
		Where("payment_method = ? AND status IN ? AND deposit_deadline < ?",
			model.MethodVbank,
			[]string{model.StatusPending, model.StatusPaymentPending},
			now).
		Update("status", model.StatusCancelled)
	return result.RowsAffected, result.Error
}

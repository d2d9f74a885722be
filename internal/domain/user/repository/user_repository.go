package repository

import (
	"time"

	"health_mall/internal/domain/user/model"

	"gorm.io/gorm"
)

// UserRepository 接口定义
type UserRepository interface {
	Create(user *model.User) error
	GetByID(id string) (*model.User, error)
	GetByPhone(phone string) (*model.User, error)
	Update(user *model.User) error
}

// userRepository 实现
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建新的仓库实例
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create 创建用户
func (r *userRepository) Create(user *model.User) error {
	return r.db.Create(user).Error
}

// GetByID 根据ID获取用户
func (r *userRepository) GetByID(id string) (*model.User, error) {
	var user model.User
	if err := r.db.Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByPhone 根据手机号获取用户
func (r *userRepository) GetByPhone(phone string) (*model.User, error) {
	var user model.User
	if err := r.db.Where("phone = ?", phone).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// Update 更新用户
func (r *userRepository) Update(user *model.User) error {
	user.UpdatedAt = time.Now()
	return r.db.Save(user).Error
}

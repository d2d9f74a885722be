package service

import (
	"errors"

	"health_mall/internal/domain/user/model"
	"health_mall/internal/domain/user/repository"
	"health_mall/pkg/utils"

	"gorm.io/gorm"
)

// UserService 用户服务接口
type UserService interface {
	// LoginOrRegister 凭验证凭证换取会话 Token，新手机号自动注册
	LoginOrRegister(verificationToken, name string) (string, error)
	GetUser(id string) (*model.User, error)
}

// userService 实现
type userService struct {
	repo repository.UserRepository
}

// NewUserService 创建用户服务
func NewUserService(repo repository.UserRepository) UserService {
	return &userService{repo: repo}
}

// LoginOrRegister 登录或注册
func (s *userService) LoginOrRegister(verificationToken, name string) (string, error) {
	// 1. 校验验证凭证；login 与 signup 共用此入口，任一流程的凭证均可
	claims, err := utils.ParseVerificationToken(verificationToken, model.FlowLogin)
	if err != nil {
		if claims2, err2 := utils.ParseVerificationToken(verificationToken, model.FlowSignup); err2 == nil {
			claims = claims2
		} else {
			return "", errors.New("invalid verification token")
		}
	}

	// 2. 查询用户是否存在
	user, err := s.repo.GetByPhone(claims.Phone)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// 3. 不存在则注册
			user = &model.User{
				Phone: claims.Phone,
				Name:  name,
				Role:  model.RoleUser,
			}
			if user.Name == "" {
				user.Name = "User_" + claims.Phone[len(claims.Phone)-4:]
			}
			if err := s.repo.Create(user); err != nil {
				return "", err
			}
		} else {
			return "", err
		}
	}

	// 4. 检查用户状态
	if user.Status == model.StatusDeleted {
		return "", errors.New("account has been deleted")
	}

	// 5. 生成 Token 并保存
	token, tokenExpireAt, err := utils.GenerateToken(user.ID, user.Role)
	if err != nil {
		return "", err
	}

	user.Token = token
	user.TokenExpireAt = tokenExpireAt
	if err := s.repo.Update(user); err != nil {
		return "", err
	}

	return token, nil
}

// GetUser 获取单个用户
func (s *userService) GetUser(id string) (*model.User, error) {
	return s.repo.GetByID(id)
}

package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"time"

	"health_mall/internal/domain/user/model"
	"health_mall/internal/domain/user/repository"
	"health_mall/internal/pkg/config"
	"health_mall/internal/pkg/notification"
	"health_mall/internal/pkg/ratelimit"
	"health_mall/pkg/logger"
	"health_mall/pkg/utils"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	otpTTL         = 5 * time.Minute
	otpMaxAttempts = 5
)

var (
	ErrInvalidFlow  = errors.New("invalid verification flow")
	ErrOTPNotFound  = errors.New("no pending verification code")
	ErrOTPExpired   = errors.New("verification code expired")
	ErrOTPExhausted = errors.New("verification attempts exhausted")
)

// RateLimitedError 触发限流
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry in %d seconds", int(e.RetryAfter.Seconds())+1)
}

// MismatchError 验证码不匹配，携带剩余尝试次数
type MismatchError struct {
	Remaining int
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("verification code mismatch, %d attempts remaining", e.Remaining)
}

// OTPService 验证码服务
type OTPService interface {
	// Send 发送验证码；flow 显式指定后续流程
	Send(ctx context.Context, phone, flow, ip string) error
	// Verify 校验验证码，成功返回短时验证凭证
	Verify(ctx context.Context, phone, flow, code string) (string, error)
}

type otpService struct {
	repo     repository.OTPRepository
	limiter  ratelimit.Limiter
	notifier notification.Service
	now      func() time.Time
}

func NewOTPService(repo repository.OTPRepository, limiter ratelimit.Limiter, notifier notification.Service) OTPService {
	return &otpService{
		repo:     repo,
		limiter:  limiter,
		notifier: notifier,
		now:      time.Now,
	}
}

func (s *otpService) Send(ctx context.Context, phone, flow, ip string) error {
	if !model.ValidFlow(flow) {
		return ErrInvalidFlow
	}

	// 1. 频率限制：同号码 3次/30分钟，同 IP 10次/小时
	if res, err := s.limiter.Check(ctx, phone, ratelimit.OTPSendPerPhone); err != nil {
		return err
	} else if !res.Allowed {
		return &RateLimitedError{RetryAfter: res.RetryAfter}
	}
	if ip != "" {
		if res, err := s.limiter.Check(ctx, ip, ratelimit.OTPSendPerIP); err != nil {
			return err
		} else if !res.Allowed {
			return &RateLimitedError{RetryAfter: res.RetryAfter}
		}
	}

	// 2. 生成验证码；非生产环境可用固定码联调
	code := config.GlobalConfig.App.TestOTPCode
	if code == "" || config.GlobalConfig.App.Env == "prod" {
		var err error
		code, err = generateCode()
		if err != nil {
			return err
		}
	}

	// 3. 作废旧记录并落库新记录（仅存哈希）
	if err := s.repo.SupersedePending(phone); err != nil {
		return err
	}
	record := &model.OTPRecord{
		Phone:     phone,
		Flow:      flow,
		CodeHash:  hashCode(code),
		ExpiresAt: s.now().Add(otpTTL),
	}
	if err := s.repo.Create(record); err != nil {
		return err
	}

	// 4. 发送短信，失败只记录不回滚
	if s.notifier != nil {
		if err := s.notifier.SendOTP(phone, code); err != nil && logger.Log != nil {
			logger.Log.Warn("Failed to send OTP SMS",
				zap.String("phone", phone),
				zap.Error(err),
			)
		}
	}

	return nil
}

func (s *otpService) Verify(ctx context.Context, phone, flow, code string) (string, error) {
	if !model.ValidFlow(flow) {
		return "", ErrInvalidFlow
	}

	// 校验本身也限流：5次/5分钟
	if res, err := s.limiter.Check(ctx, phone, ratelimit.OTPVerifyPerPhone); err != nil {
		return "", err
	} else if !res.Allowed {
		return "", &RateLimitedError{RetryAfter: res.RetryAfter}
	}

	record, err := s.repo.GetLatestActive(phone, flow)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrOTPNotFound
		}
		return "", err
	}

	if s.now().After(record.ExpiresAt) {
		return "", ErrOTPExpired
	}
	if record.Attempts >= otpMaxAttempts {
		return "", ErrOTPExhausted
	}

	if subtle.ConstantTimeCompare([]byte(record.CodeHash), []byte(hashCode(code))) != 1 {
		attempts, err := s.repo.IncrementAttempts(record.ID)
		if err != nil {
			return "", err
		}
		remaining := otpMaxAttempts - attempts
		if remaining < 0 {
			remaining = 0
		}
		return "", &MismatchError{Remaining: remaining}
	}

	now := s.now()
	if err := s.repo.MarkVerified(record.ID, now); err != nil {
		return "", err
	}

	return utils.GenerateVerificationToken(phone, flow)
}

// generateCode 生成 6 位数字验证码
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func hashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

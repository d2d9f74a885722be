package service

import (
	"context"
	"testing"
	"time"

	"health_mall/internal/domain/user/model"
	"health_mall/internal/pkg/config"
	"health_mall/internal/pkg/ratelimit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"
)

// MockOTPRepository is a mock of OTPRepository
type MockOTPRepository struct {
	mock.Mock
}

func (m *MockOTPRepository) Create(record *model.OTPRecord) error {
	args := m.Called(record)
	return args.Error(0)
}

func (m *MockOTPRepository) GetLatestActive(phone, flow string) (*model.OTPRecord, error) {
	args := m.Called(phone, flow)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OTPRecord), args.Error(1)
}

func (m *MockOTPRepository) SupersedePending(phone string) error {
	args := m.Called(phone)
	return args.Error(0)
}

func (m *MockOTPRepository) IncrementAttempts(id string) (int, error) {
	args := m.Called(id)
	return args.Int(0), args.Error(1)
}

func (m *MockOTPRepository) MarkVerified(id string, at time.Time) error {
	args := m.Called(id, at)
	return args.Error(0)
}

// allowAllLimiter 放行所有请求的限流器
type allowAllLimiter struct{}

func (allowAllLimiter) Check(_ context.Context, _ string, cfg ratelimit.Config) (*ratelimit.Result, error) {
	return &ratelimit.Result{Allowed: true, Remaining: cfg.MaxRequests - 1}, nil
}

func (allowAllLimiter) Reset(_ context.Context, _ string, _ ratelimit.Config) error { return nil }

// denyAllLimiter 拒绝所有请求的限流器
type denyAllLimiter struct{}

func (denyAllLimiter) Check(_ context.Context, _ string, _ ratelimit.Config) (*ratelimit.Result, error) {
	return &ratelimit.Result{Allowed: false, RetryAfter: 90 * time.Second}, nil
}

func (denyAllLimiter) Reset(_ context.Context, _ string, _ ratelimit.Config) error { return nil }

func setupTestConfig() {
	config.GlobalConfig.JWT.Secret = "test-secret-test-secret-test-secret!"
	config.GlobalConfig.App.Env = "test"
	config.GlobalConfig.App.TestOTPCode = "123456"
}

func activeRecord(phone, flow string, attempts int) *model.OTPRecord {
	rec := &model.OTPRecord{
		Phone:     phone,
		Flow:      flow,
		CodeHash:  hashCode("123456"),
		ExpiresAt: time.Now().Add(5 * time.Minute),
		Attempts:  attempts,
	}
	rec.ID = "otp-record-id"
	return rec
}

func TestSendOTP(t *testing.T) {
	setupTestConfig()

	t.Run("send supersedes prior records and stores a hash", func(t *testing.T) {
		mockRepo := new(MockOTPRepository)
		service := NewOTPService(mockRepo, allowAllLimiter{}, nil)

		mockRepo.On("SupersedePending", "01012345678").Return(nil)
		mockRepo.On("Create", mock.MatchedBy(func(rec *model.OTPRecord) bool {
			return rec.Phone == "01012345678" &&
				rec.Flow == model.FlowLogin &&
				rec.CodeHash == hashCode("123456") &&
				rec.Attempts == 0
		})).Return(nil)

		err := service.Send(context.Background(), "01012345678", model.FlowLogin, "10.0.0.1")

		assert.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})

	t.Run("unknown flow rejected", func(t *testing.T) {
		mockRepo := new(MockOTPRepository)
		service := NewOTPService(mockRepo, allowAllLimiter{}, nil)

		err := service.Send(context.Background(), "01012345678", "checkout", "")

		assert.ErrorIs(t, err, ErrInvalidFlow)
	})

	t.Run("rate limited send returns RateLimitedError", func(t *testing.T) {
		mockRepo := new(MockOTPRepository)
		service := NewOTPService(mockRepo, denyAllLimiter{}, nil)

		err := service.Send(context.Background(), "01012345678", model.FlowLogin, "")

		var limited *RateLimitedError
		assert.ErrorAs(t, err, &limited)
		assert.Greater(t, limited.RetryAfter, time.Duration(0))
	})
}

func TestVerifyOTP(t *testing.T) {
	setupTestConfig()

	t.Run("correct code yields verification token", func(t *testing.T) {
		mockRepo := new(MockOTPRepository)
		service := NewOTPService(mockRepo, allowAllLimiter{}, nil)

		mockRepo.On("GetLatestActive", "01012345678", model.FlowLogin).
			Return(activeRecord("01012345678", model.FlowLogin, 0), nil)
		mockRepo.On("MarkVerified", "otp-record-id", mock.AnythingOfType("time.Time")).Return(nil)

		token, err := service.Verify(context.Background(), "01012345678", model.FlowLogin, "123456")

		assert.NoError(t, err)
		assert.NotEmpty(t, token)
		mockRepo.AssertExpectations(t)
	})

	t.Run("wrong code increments attempts and reports remaining", func(t *testing.T) {
		mockRepo := new(MockOTPRepository)
		service := NewOTPService(mockRepo, allowAllLimiter{}, nil)

		mockRepo.On("GetLatestActive", "01012345678", model.FlowLogin).
			Return(activeRecord("01012345678", model.FlowLogin, 0), nil)
		mockRepo.On("IncrementAttempts", "otp-record-id").Return(1, nil)

		_, err := service.Verify(context.Background(), "01012345678", model.FlowLogin, "000000")

		var mismatch *MismatchError
		assert.ErrorAs(t, err, &mismatch)
		assert.Equal(t, 4, mismatch.Remaining)
		mockRepo.AssertExpectations(t)
	})

	t.Run("exhausted attempts reject even the correct code", func(t *testing.T) {
		mockRepo := new(MockOTPRepository)
		service := NewOTPService(mockRepo, allowAllLimiter{}, nil)

		// 已错 5 次后，第 6 次提交正确验证码仍被拒绝
		mockRepo.On("GetLatestActive", "01012345678", model.FlowLogin).
			Return(activeRecord("01012345678", model.FlowLogin, 5), nil)

		_, err := service.Verify(context.Background(), "01012345678", model.FlowLogin, "123456")

		assert.ErrorIs(t, err, ErrOTPExhausted)
		mockRepo.AssertNotCalled(t, "MarkVerified", mock.Anything, mock.Anything)
	})

	t.Run("expired code rejected", func(t *testing.T) {
		mockRepo := new(MockOTPRepository)
		service := NewOTPService(mockRepo, allowAllLimiter{}, nil)

		rec := activeRecord("01012345678", model.FlowLogin, 0)
		rec.ExpiresAt = time.Now().Add(-time.Minute)
		mockRepo.On("GetLatestActive", "01012345678", model.FlowLogin).Return(rec, nil)

		_, err := service.Verify(context.Background(), "01012345678", model.FlowLogin, "123456")

		assert.ErrorIs(t, err, ErrOTPExpired)
	})

	t.Run("no pending record", func(t *testing.T) {
		mockRepo := new(MockOTPRepository)
		service := NewOTPService(mockRepo, allowAllLimiter{}, nil)

		mockRepo.On("GetLatestActive", "01012345678", model.FlowSignup).
			Return(nil, gorm.ErrRecordNotFound)

		_, err := service.Verify(context.Background(), "01012345678", model.FlowSignup, "123456")

		assert.ErrorIs(t, err, ErrOTPNotFound)
	})
}

package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	couponModel "health_mall/internal/domain/coupon/model"
	orderModel "health_mall/internal/domain/order/model"
	pointsModel "health_mall/internal/domain/points/model"
	"health_mall/internal/domain/payment/provider"
	shippingService "health_mall/internal/domain/shipping/service"
	"health_mall/pkg/logger"

	"github.com/stretchr/testify/mock"
)

func setupTest(t *testing.T) {
	t.Helper()
	if logger.Log == nil {
		logger.Init(true)
	}
}

// MockOrderRepository is a mock of the order repository
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) CreateOrder(order *orderModel.Order) error {
	args := m.Called(order)
	return args.Error(0)
}

func (m *MockOrderRepository) CreateItems(items []orderModel.OrderItem) error {
	args := m.Called(items)
	return args.Error(0)
}

func (m *MockOrderRepository) CreateIntake(intake *orderModel.IntakeSnapshot) error {
	args := m.Called(intake)
	return args.Error(0)
}

func (m *MockOrderRepository) UpsertIntakeProfile(userID string, answers json.RawMessage) error {
	args := m.Called(userID, answers)
	return args.Error(0)
}

func (m *MockOrderRepository) GetByOrderNo(orderNo string) (*orderModel.Order, error) {
	args := m.Called(orderNo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orderModel.Order), args.Error(1)
}

func (m *MockOrderRepository) UpdateStatusIf(orderNo string, from []string, to string, updates map[string]interface{}) (bool, error) {
	args := m.Called(orderNo, from, to, updates)
	return args.Bool(0), args.Error(1)
}

func (m *MockOrderRepository) DeleteIntakeByOrderID(orderID string) error {
	args := m.Called(orderID)
	return args.Error(0)
}

func (m *MockOrderRepository) DeleteItemsByOrderID(orderID string) error {
	args := m.Called(orderID)
	return args.Error(0)
}

func (m *MockOrderRepository) DeleteOrderByID(orderID string) error {
	args := m.Called(orderID)
	return args.Error(0)
}

func (m *MockOrderRepository) DeletePendingByOrderNo(orderNo string) (bool, error) {
	args := m.Called(orderNo)
	return args.Bool(0), args.Error(1)
}

func (m *MockOrderRepository) CancelExpiredVbank(now time.Time) (int64, error) {
	args := m.Called(now)
	return args.Get(0).(int64), args.Error(1)
}

// MockPointsService is a mock of the points service
type MockPointsService struct {
	mock.Mock
}

func (m *MockPointsService) Earn(userID, orderNo string, paidAmount int64) error {
	args := m.Called(userID, orderNo, paidAmount)
	return args.Error(0)
}

func (m *MockPointsService) Use(userID, orderNo string, amount int64) error {
	args := m.Called(userID, orderNo, amount)
	return args.Error(0)
}

func (m *MockPointsService) RefundUsed(userID, orderNo string, amount int64) error {
	args := m.Called(userID, orderNo, amount)
	return args.Error(0)
}

func (m *MockPointsService) ClawbackEarned(userID, orderNo string) error {
	args := m.Called(userID, orderNo)
	return args.Error(0)
}

func (m *MockPointsService) GetAccount(userID string) (*pointsModel.PointsAccount, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pointsModel.PointsAccount), args.Error(1)
}

func (m *MockPointsService) GetLedger(userID string, offset, limit int) ([]pointsModel.PointLedgerEntry, int64, error) {
	args := m.Called(userID, offset, limit)
	return args.Get(0).([]pointsModel.PointLedgerEntry), args.Get(1).(int64), args.Error(2)
}

// MockCouponService is a mock of the coupon service
type MockCouponService struct {
	mock.Mock
}

func (m *MockCouponService) Claim(userID, couponID string) (*couponModel.UserCoupon, error) {
	args := m.Called(userID, couponID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*couponModel.UserCoupon), args.Error(1)
}

func (m *MockCouponService) ListMine(userID string) ([]couponModel.UserCoupon, error) {
	args := m.Called(userID)
	return args.Get(0).([]couponModel.UserCoupon), args.Error(1)
}

func (m *MockCouponService) ValidateForOrder(userID, userCouponID string) (*couponModel.UserCoupon, error) {
	args := m.Called(userID, userCouponID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*couponModel.UserCoupon), args.Error(1)
}

func (m *MockCouponService) MarkUsed(userCouponID, orderNo string) error {
	args := m.Called(userCouponID, orderNo)
	return args.Error(0)
}

func (m *MockCouponService) Restore(userCouponID string) error {
	args := m.Called(userCouponID)
	return args.Error(0)
}

// stubProvider returns canned provider responses
type stubProvider struct {
	payment *provider.Payment
	err     error
}

func (s stubProvider) GetPayment(_ context.Context, _ string) (*provider.Payment, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.payment, nil
}

// stubShipping returns a fixed quote
type stubShipping struct {
	quote shippingService.Quote
}

func (s stubShipping) Recompute(_ context.Context, _ int64, _ string) (*shippingService.Quote, error) {
	q := s.quote
	return &q, nil
}

// MockSettlement is a mock of SettlementService
type MockSettlement struct {
	mock.Mock
}

func (m *MockSettlement) Complete(ctx context.Context, order *orderModel.Order, providerAmount int64, paymentKey string, shippingFee *int64) error {
	args := m.Called(order, providerAmount, paymentKey, shippingFee)
	return args.Error(0)
}

func (m *MockSettlement) Cancel(ctx context.Context, order *orderModel.Order) error {
	args := m.Called(order)
	return args.Error(0)
}

func (m *MockSettlement) Fail(ctx context.Context, order *orderModel.Order) error {
	args := m.Called(order)
	return args.Error(0)
}

// fakeMarker is an in-memory SettleMarker
type fakeMarker struct {
	keys map[string]bool
}

func newFakeMarker() *fakeMarker { return &fakeMarker{keys: map[string]bool{}} }

func (f *fakeMarker) Claim(_ context.Context, key string) bool {
	if f.keys[key] {
		return false
	}
	f.keys[key] = true
	return true
}

func (f *fakeMarker) Release(_ context.Context, key string) { delete(f.keys, key) }

func (f *fakeMarker) held(key string) bool { return f.keys[key] }

func userPtr(s string) *string { return &s }

package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	couponModel "health_mall/internal/domain/coupon/model"
	"health_mall/internal/domain/order/model"
	pointsModel "health_mall/internal/domain/points/model"
	shippingService "health_mall/internal/domain/shipping/service"
	"health_mall/internal/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"
)

// MockOrderRepository is a mock of OrderRepository
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) CreateOrder(order *model.Order) error {
	args := m.Called(order)
	if args.Error(0) == nil && order.ID == "" {
		order.ID = "order-id-1"
	}
	return args.Error(0)
}

func (m *MockOrderRepository) CreateItems(items []model.OrderItem) error {
	args := m.Called(items)
	return args.Error(0)
}

func (m *MockOrderRepository) CreateIntake(intake *model.IntakeSnapshot) error {
	args := m.Called(intake)
	return args.Error(0)
}

func (m *MockOrderRepository) UpsertIntakeProfile(userID string, answers json.RawMessage) error {
	args := m.Called(userID, answers)
	return args.Error(0)
}

func (m *MockOrderRepository) GetByOrderNo(orderNo string) (*model.Order, error) {
	args := m.Called(orderNo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
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

// stubShipping returns a fixed quote
type stubShipping struct {
	quote shippingService.Quote
}

func (s stubShipping) Recompute(_ context.Context, _ int64, _ string) (*shippingService.Quote, error) {
	q := s.quote
	return &q, nil
}

// MockCouponService is a mock of coupon service
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

// MockPointsService is a mock of points service
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

func userPtr(s string) *string { return &s }

func freeShipping() stubShipping {
	return stubShipping{quote: shippingService.Quote{Base: 0, Total: 0, IsFreeShipping: true}}
}

func baseRequest() *CreateOrderRequest {
	return &CreateOrderRequest{
		CustomerName:  "Kim",
		CustomerPhone: "01012345678",
		PostalCode:    "06236",
		PaymentMethod: model.MethodCard,
		Items: []CreateOrderItem{
			{ProductName: "custom pack", ProductPrice: 100000, Quantity: 1},
		},
	}
}

func TestCreate(t *testing.T) {
	t.Run("applies coupon cap and points to the final amount", func(t *testing.T) {
		mockRepo := new(MockOrderRepository)
		mockCoupons := new(MockCouponService)
		mockPoints := new(MockPointsService)
		svc := NewOrderService(mockRepo, freeShipping(), mockCoupons, mockPoints)

		// 100,000 × 10% = 10,000 超过封顶，按 5,000 计；再抵扣 1,000 积分
		mockCoupons.On("ValidateForOrder", "user-1", "uc-1").Return(&couponModel.UserCoupon{
			UserID: "user-1",
			Status: couponModel.StatusUnused,
			Coupon: &couponModel.Coupon{DiscountRate: 0.10, MaxDiscount: 5000},
		}, nil)
		mockPoints.On("GetAccount", "user-1").Return(&pointsModel.PointsAccount{
			UserID: "user-1", Balance: 2000,
		}, nil)

		var created *model.Order
		mockRepo.On("CreateOrder", mock.AnythingOfType("*model.Order")).Run(func(args mock.Arguments) {
			created = args.Get(0).(*model.Order)
		}).Return(nil)
		mockRepo.On("CreateItems", mock.AnythingOfType("[]model.OrderItem")).Return(nil)
		mockRepo.On("GetByOrderNo", mock.AnythingOfType("string")).Return(&model.Order{}, nil)

		req := baseRequest()
		req.UserCouponID = userPtr("uc-1")
		req.PointsToUse = 1000

		_, err := svc.Create(context.Background(), userPtr("user-1"), req)

		assert.NoError(t, err)
		assert.Equal(t, int64(94000), created.TotalAmount)
		assert.Equal(t, int64(5000), created.CouponDiscount)
		assert.Equal(t, int64(1000), created.PointsUsed)
		assert.Equal(t, model.StatusPending, created.Status)
	})

	t.Run("item insert failure triggers reverse-order compensation", func(t *testing.T) {
		mockRepo := new(MockOrderRepository)
		svc := NewOrderService(mockRepo, freeShipping(), new(MockCouponService), new(MockPointsService))

		mockRepo.On("CreateOrder", mock.AnythingOfType("*model.Order")).Return(nil)
		mockRepo.On("CreateItems", mock.AnythingOfType("[]model.OrderItem")).Return(errors.New("db write failed"))
		mockRepo.On("DeleteIntakeByOrderID", "order-id-1").Return(nil)
		mockRepo.On("DeleteOrderByID", "order-id-1").Return(nil)

		_, err := svc.Create(context.Background(), nil, baseRequest())

		assert.Error(t, err)
		mockRepo.AssertCalled(t, "DeleteIntakeByOrderID", "order-id-1")
		mockRepo.AssertCalled(t, "DeleteOrderByID", "order-id-1")
		// 订单项从未写入成功，不做删除
		mockRepo.AssertNotCalled(t, "DeleteItemsByOrderID", mock.Anything)
	})

	t.Run("intake insert failure removes items and order", func(t *testing.T) {
		mockRepo := new(MockOrderRepository)
		svc := NewOrderService(mockRepo, freeShipping(), new(MockCouponService), new(MockPointsService))

		mockRepo.On("CreateOrder", mock.AnythingOfType("*model.Order")).Return(nil)
		mockRepo.On("CreateItems", mock.AnythingOfType("[]model.OrderItem")).Return(nil)
		mockRepo.On("CreateIntake", mock.AnythingOfType("*model.IntakeSnapshot")).Return(errors.New("db write failed"))
		mockRepo.On("DeleteIntakeByOrderID", "order-id-1").Return(nil)
		mockRepo.On("DeleteItemsByOrderID", "order-id-1").Return(nil)
		mockRepo.On("DeleteOrderByID", "order-id-1").Return(nil)

		req := baseRequest()
		req.IntakeAnswers = json.RawMessage(`{"allergies":"none"}`)

		_, err := svc.Create(context.Background(), nil, req)

		assert.Error(t, err)
		mockRepo.AssertCalled(t, "DeleteItemsByOrderID", "order-id-1")
		mockRepo.AssertCalled(t, "DeleteOrderByID", "order-id-1")
	})

	t.Run("profile upsert failure does not abort the order", func(t *testing.T) {
		mockRepo := new(MockOrderRepository)
		svc := NewOrderService(mockRepo, freeShipping(), new(MockCouponService), new(MockPointsService))

		mockRepo.On("CreateOrder", mock.AnythingOfType("*model.Order")).Return(nil)
		mockRepo.On("CreateItems", mock.AnythingOfType("[]model.OrderItem")).Return(nil)
		mockRepo.On("CreateIntake", mock.AnythingOfType("*model.IntakeSnapshot")).Return(nil)
		mockRepo.On("UpsertIntakeProfile", "user-1", mock.Anything).Return(errors.New("profile write failed"))
		mockRepo.On("GetByOrderNo", mock.AnythingOfType("string")).Return(&model.Order{}, nil)

		req := baseRequest()
		req.IntakeAnswers = json.RawMessage(`{"allergies":"none"}`)

		_, err := svc.Create(context.Background(), userPtr("user-1"), req)

		assert.NoError(t, err)
		mockRepo.AssertNotCalled(t, "DeleteOrderByID", mock.Anything)
	})

	t.Run("guest cannot spend points or coupons", func(t *testing.T) {
		svc := NewOrderService(new(MockOrderRepository), freeShipping(), new(MockCouponService), new(MockPointsService))

		req := baseRequest()
		req.PointsToUse = 500

		_, err := svc.Create(context.Background(), nil, req)

		assert.ErrorIs(t, err, ErrLoginRequired)
	})

	t.Run("vbank orders await deposit with a deadline", func(t *testing.T) {
		config.GlobalConfig.Payment.VbankDeadline = 48 * time.Hour

		mockRepo := new(MockOrderRepository)
		svc := NewOrderService(mockRepo, freeShipping(), new(MockCouponService), new(MockPointsService))

		var created *model.Order
		mockRepo.On("CreateOrder", mock.AnythingOfType("*model.Order")).Run(func(args mock.Arguments) {
			created = args.Get(0).(*model.Order)
		}).Return(nil)
		mockRepo.On("CreateItems", mock.AnythingOfType("[]model.OrderItem")).Return(nil)
		mockRepo.On("GetByOrderNo", mock.AnythingOfType("string")).Return(&model.Order{}, nil)

		req := baseRequest()
		req.PaymentMethod = model.MethodVbank

		_, err := svc.Create(context.Background(), nil, req)

		assert.NoError(t, err)
		// 虚拟账户已发放，订单落库即为等待入金态，过期扫描以此筛选
		assert.Equal(t, model.StatusPaymentPending, created.Status)
		assert.NotNil(t, created.DepositDeadline)
		assert.WithinDuration(t, time.Now().Add(48*time.Hour), *created.DepositDeadline, time.Minute)
	})
}

func TestCancelPending(t *testing.T) {
	t.Run("deletes a pending order", func(t *testing.T) {
		mockRepo := new(MockOrderRepository)
		svc := NewOrderService(mockRepo, freeShipping(), new(MockCouponService), new(MockPointsService))

		mockRepo.On("GetByOrderNo", "ORD-1").Return(&model.Order{
			OrderNo: "ORD-1", Status: model.StatusPending,
		}, nil)
		mockRepo.On("DeletePendingByOrderNo", "ORD-1").Return(true, nil)

		assert.NoError(t, svc.CancelPending("ORD-1", nil))
	})

	t.Run("rejects once the order left pending", func(t *testing.T) {
		mockRepo := new(MockOrderRepository)
		svc := NewOrderService(mockRepo, freeShipping(), new(MockCouponService), new(MockPointsService))

		mockRepo.On("GetByOrderNo", "ORD-1").Return(&model.Order{
			OrderNo: "ORD-1", Status: model.StatusCompleted,
		}, nil)
		mockRepo.On("DeletePendingByOrderNo", "ORD-1").Return(false, nil)

		assert.ErrorIs(t, svc.CancelPending("ORD-1", nil), ErrNotCancellable)
	})

	t.Run("hides other users' orders", func(t *testing.T) {
		mockRepo := new(MockOrderRepository)
		svc := NewOrderService(mockRepo, freeShipping(), new(MockCouponService), new(MockPointsService))

		mockRepo.On("GetByOrderNo", "ORD-1").Return(&model.Order{
			OrderNo: "ORD-1", UserID: userPtr("owner"), Status: model.StatusPending,
		}, nil)

		assert.ErrorIs(t, svc.CancelPending("ORD-1", userPtr("intruder")), ErrOrderNotFound)
		mockRepo.AssertNotCalled(t, "DeletePendingByOrderNo", mock.Anything)
	})

	t.Run("missing order maps to not found", func(t *testing.T) {
		mockRepo := new(MockOrderRepository)
		svc := NewOrderService(mockRepo, freeShipping(), new(MockCouponService), new(MockPointsService))

		mockRepo.On("GetByOrderNo", "ORD-x").Return(nil, gorm.ErrRecordNotFound)

		assert.ErrorIs(t, svc.CancelPending("ORD-x", nil), ErrOrderNotFound)
	})
}

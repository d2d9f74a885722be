package service

import (
	"context"
	"testing"

	orderModel "health_mall/internal/domain/order/model"
	"health_mall/internal/domain/payment/provider"
	shippingService "health_mall/internal/domain/shipping/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"
)

func paidPayment(amount int64) stubProvider {
	return stubProvider{payment: &provider.Payment{
		ID:     "pay_123",
		Status: provider.StatusPaid,
		Amount: amount,
		Method: "card",
	}}
}

func storedOrder(status string) *orderModel.Order {
	return &orderModel.Order{
		OrderNo:        "ORD-1",
		UserID:         userPtr("user-1"),
		Status:         status,
		TotalAmount:    94000,
		ShippingFee:    0,
		CouponDiscount: 5000,
		PointsUsed:     1000,
		PostalCode:     "06236",
		Items: []orderModel.OrderItem{
			{ProductName: "custom pack", ProductPrice: 100000, Quantity: 1},
		},
	}
}

func freeQuote() stubShipping {
	return stubShipping{quote: shippingService.Quote{Total: 0, IsFreeShipping: true}}
}

func TestVerify(t *testing.T) {
	setupTest(t)

	t.Run("matching recomputed amount completes the order", func(t *testing.T) {
		mockOrders := new(MockOrderRepository)
		mockSettle := new(MockSettlement)
		svc := NewPaymentService(mockOrders, paidPayment(94000), freeQuote(), mockSettle)

		// 100,000 − 5,000 券 − 1,000 积分 = 94,000
		order := storedOrder(orderModel.StatusPending)
		completed := storedOrder(orderModel.StatusCompleted)
		mockOrders.On("GetByOrderNo", "ORD-1").Return(order, nil).Once()
		mockSettle.On("Complete", order, int64(94000), "pay_123", mock.AnythingOfType("*int64")).Return(nil)
		mockOrders.On("GetByOrderNo", "ORD-1").Return(completed, nil).Once()

		got, err := svc.Verify(context.Background(), "ORD-1", "pay_123")

		assert.NoError(t, err)
		assert.Equal(t, orderModel.StatusCompleted, got.Status)
		mockSettle.AssertExpectations(t)
	})

	t.Run("one unit of rounding tolerance is accepted", func(t *testing.T) {
		mockOrders := new(MockOrderRepository)
		mockSettle := new(MockSettlement)
		svc := NewPaymentService(mockOrders, paidPayment(93999), freeQuote(), mockSettle)

		order := storedOrder(orderModel.StatusPending)
		mockOrders.On("GetByOrderNo", "ORD-1").Return(order, nil)
		mockSettle.On("Complete", order, int64(93999), "pay_123", mock.AnythingOfType("*int64")).Return(nil)

		_, err := svc.Verify(context.Background(), "ORD-1", "pay_123")

		assert.NoError(t, err)
	})

	t.Run("amount mismatch keeps the order pending and reports both figures", func(t *testing.T) {
		mockOrders := new(MockOrderRepository)
		mockSettle := new(MockSettlement)
		svc := NewPaymentService(mockOrders, paidPayment(90000), freeQuote(), mockSettle)

		mockOrders.On("GetByOrderNo", "ORD-1").Return(storedOrder(orderModel.StatusPending), nil)

		_, err := svc.Verify(context.Background(), "ORD-1", "pay_123")

		var conflict *ConflictError
		assert.ErrorAs(t, err, &conflict)
		assert.Equal(t, int64(94000), conflict.Expected)
		assert.Equal(t, int64(90000), conflict.Reported)
		mockSettle.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("already-completed order returns success without side effects", func(t *testing.T) {
		mockOrders := new(MockOrderRepository)
		mockSettle := new(MockSettlement)
		svc := NewPaymentService(mockOrders, paidPayment(94000), freeQuote(), mockSettle)

		mockOrders.On("GetByOrderNo", "ORD-1").Return(storedOrder(orderModel.StatusCompleted), nil)

		got, err := svc.Verify(context.Background(), "ORD-1", "pay_123")

		assert.NoError(t, err)
		assert.Equal(t, orderModel.StatusCompleted, got.Status)
		mockSettle.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("rejects a payment the provider does not consider paid", func(t *testing.T) {
		mockOrders := new(MockOrderRepository)
		svc := NewPaymentService(mockOrders,
			stubProvider{payment: &provider.Payment{Status: provider.StatusReady}},
			freeQuote(), new(MockSettlement))

		_, err := svc.Verify(context.Background(), "ORD-1", "pay_123")

		assert.ErrorIs(t, err, ErrNotPaid)
		mockOrders.AssertNotCalled(t, "GetByOrderNo", mock.Anything)
	})

	t.Run("missing order maps to not found", func(t *testing.T) {
		mockOrders := new(MockOrderRepository)
		svc := NewPaymentService(mockOrders, paidPayment(94000), freeQuote(), new(MockSettlement))

		mockOrders.On("GetByOrderNo", "ORD-x").Return(nil, gorm.ErrRecordNotFound)

		_, err := svc.Verify(context.Background(), "ORD-x", "pay_123")

		assert.ErrorIs(t, err, ErrOrderNotFound)
	})
}

func TestHandleEvent(t *testing.T) {
	setupTest(t)

	event := func(eventType string) *WebhookEvent {
		return &WebhookEvent{EventType: eventType, OrderNo: "ORD-1", PaymentKey: "pay_123"}
	}

	t.Run("Paid event settles against the re-queried amount", func(t *testing.T) {
		mockOrders := new(MockOrderRepository)
		mockSettle := new(MockSettlement)
		svc := NewPaymentService(mockOrders, paidPayment(94000), freeQuote(), mockSettle)

		order := storedOrder(orderModel.StatusPending)
		mockOrders.On("GetByOrderNo", "ORD-1").Return(order, nil)
		// 回调路径同样重算运费并随结算持久化
		mockSettle.On("Complete", order, int64(94000), "pay_123", mock.MatchedBy(func(fee *int64) bool {
			return fee != nil && *fee == 0
		})).Return(nil)

		assert.NoError(t, svc.HandleEvent(context.Background(), event(EventPaid)))
		mockSettle.AssertExpectations(t)
	})

	t.Run("recomputed amount mismatch blocks settlement even when stored total matches", func(t *testing.T) {
		mockOrders := new(MockOrderRepository)
		mockSettle := new(MockSettlement)
		// 独立报价 5,000 运费：重算应付 99,000，而落库总额与服务商金额都是 94,000
		remote := stubShipping{quote: shippingService.Quote{Total: 5000}}
		svc := NewPaymentService(mockOrders, paidPayment(94000), remote, mockSettle)

		mockOrders.On("GetByOrderNo", "ORD-1").Return(storedOrder(orderModel.StatusPending), nil)

		err := svc.HandleEvent(context.Background(), event(EventPaid))

		var conflict *ConflictError
		assert.ErrorAs(t, err, &conflict)
		assert.Equal(t, int64(99000), conflict.Expected)
		assert.Equal(t, int64(94000), conflict.Reported)
		mockSettle.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("order already in the implied terminal state is a no-op", func(t *testing.T) {
		mockOrders := new(MockOrderRepository)
		mockSettle := new(MockSettlement)
		svc := NewPaymentService(mockOrders, paidPayment(94000), freeQuote(), mockSettle)

		mockOrders.On("GetByOrderNo", "ORD-1").Return(storedOrder(orderModel.StatusCompleted), nil)

		assert.NoError(t, svc.HandleEvent(context.Background(), event(EventPaid)))
		mockSettle.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("amount mismatch is a hard stop with no state change", func(t *testing.T) {
		mockOrders := new(MockOrderRepository)
		mockSettle := new(MockSettlement)
		svc := NewPaymentService(mockOrders, paidPayment(80000), freeQuote(), mockSettle)

		mockOrders.On("GetByOrderNo", "ORD-1").Return(storedOrder(orderModel.StatusPending), nil)

		err := svc.HandleEvent(context.Background(), event(EventPaid))

		var conflict *ConflictError
		assert.ErrorAs(t, err, &conflict)
		mockSettle.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Cancelled and PartialCancelled both route to cancellation", func(t *testing.T) {
		for _, eventType := range []string{EventCancelled, EventPartialCancelled} {
			mockOrders := new(MockOrderRepository)
			mockSettle := new(MockSettlement)
			svc := NewPaymentService(mockOrders,
				stubProvider{payment: &provider.Payment{Status: provider.StatusCancelled, Amount: 94000}},
				freeQuote(), mockSettle)

			order := storedOrder(orderModel.StatusCompleted)
			mockOrders.On("GetByOrderNo", "ORD-1").Return(order, nil)
			mockSettle.On("Cancel", order).Return(nil)

			assert.NoError(t, svc.HandleEvent(context.Background(), event(eventType)))
			mockSettle.AssertExpectations(t)
		}
	})

	t.Run("Failed event only flips the status", func(t *testing.T) {
		mockOrders := new(MockOrderRepository)
		mockSettle := new(MockSettlement)
		svc := NewPaymentService(mockOrders,
			stubProvider{payment: &provider.Payment{Status: provider.StatusFailed}},
			freeQuote(), mockSettle)

		order := storedOrder(orderModel.StatusPending)
		mockOrders.On("GetByOrderNo", "ORD-1").Return(order, nil)
		mockSettle.On("Fail", order).Return(nil)

		assert.NoError(t, svc.HandleEvent(context.Background(), event(EventFailed)))
	})

	t.Run("provider outage surfaces as a transient error", func(t *testing.T) {
		svc := NewPaymentService(new(MockOrderRepository),
			stubProvider{err: provider.ErrProviderUnavailable}, freeQuote(), new(MockSettlement))

		err := svc.HandleEvent(context.Background(), event(EventPaid))

		var transient *TransientError
		assert.ErrorAs(t, err, &transient)
	})

	t.Run("unknown event types are rejected", func(t *testing.T) {
		svc := NewPaymentService(new(MockOrderRepository), paidPayment(94000), freeQuote(), new(MockSettlement))

		assert.ErrorIs(t, svc.HandleEvent(context.Background(), event("Refunded")), ErrUnknownEvent)
	})
}

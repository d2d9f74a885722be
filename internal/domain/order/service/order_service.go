package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	couponService "health_mall/internal/domain/coupon/service"
	"health_mall/internal/domain/order/model"
	"health_mall/internal/domain/order/repository"
	pointsService "health_mall/internal/domain/points/service"
	shippingService "health_mall/internal/domain/shipping/service"
	"health_mall/internal/pkg/config"
	"health_mall/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrOrderNotFound        = errors.New("order not found")
	ErrEmptyItems           = errors.New("order has no items")
	ErrInvalidPaymentMethod = errors.New("unsupported payment method")
	ErrLoginRequired        = errors.New("points and coupons require a signed-in user")
	ErrPointsExceedPayable  = errors.New("points exceed the payable amount")
	ErrNotCancellable       = errors.New("order is no longer pending")
)

// CreateOrderItem 下单时的商品行，价格由调用方快照传入
type CreateOrderItem struct {
	ProductName  string          `json:"productName" binding:"required"`
	ProductPrice int64           `json:"productPrice" binding:"required,min=0"`
	Quantity     int             `json:"quantity" binding:"required,min=1"`
	Options      json.RawMessage `json:"options"`
	AddOns       json.RawMessage `json:"addOns"`
}

// CreateOrderRequest 创建订单请求
type CreateOrderRequest struct {
	CustomerName  string            `json:"customerName" binding:"required"`
	CustomerPhone string            `json:"customerPhone" binding:"required"`
	PostalCode    string            `json:"postalCode" binding:"required"`
	PaymentMethod string            `json:"paymentMethod" binding:"required"`
	Items         []CreateOrderItem `json:"items" binding:"required"`
	UserCouponID  *string           `json:"userCouponId"`
	PointsToUse   int64             `json:"pointsToUse"`
	IntakeAnswers json.RawMessage   `json:"intakeAnswers"`
}

// OrderService 订单服务
type OrderService interface {
	// Create 多步写入订单，任一硬失败触发倒序补偿删除
	Create(ctx context.Context, userID *string, req *CreateOrderRequest) (*model.Order, error)
	Get(orderNo string) (*model.Order, error)
	// CancelPending 客户端支付中止时删除订单，仅 pending 状态可删
	CancelPending(orderNo string, userID *string) error
}

type orderService struct {
	repo     repository.OrderRepository
	shipping shippingService.ShippingService
	coupons  couponService.CouponService
	points   pointsService.PointsService
}

func NewOrderService(
	repo repository.OrderRepository,
	shipping shippingService.ShippingService,
	coupons couponService.CouponService,
	points pointsService.PointsService,
) OrderService {
	return &orderService{repo: repo, shipping: shipping, coupons: coupons, points: points}
}

// generateOrderNo 外部可见订单号：时间戳 + uuid 片段
func generateOrderNo() string {
	return fmt.Sprintf("ORD%s%s",
		time.Now().Format("20060102150405"),
		strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
}

func (s *orderService) Create(ctx context.Context, userID *string, req *CreateOrderRequest) (*model.Order, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	if req.PaymentMethod != model.MethodCard && req.PaymentMethod != model.MethodVbank {
		return nil, ErrInvalidPaymentMethod
	}
	if (req.UserCouponID != nil || req.PointsToUse > 0) && userID == nil {
		return nil, ErrLoginRequired
	}

	var productAmount int64
	for _, item := range req.Items {
		productAmount += item.ProductPrice * int64(item.Quantity)
	}

	quote, err := s.shipping.Recompute(ctx, productAmount, req.PostalCode)
	if err != nil {
		return nil, err
	}

	// 优惠券仅校验并计算折扣，占用在结算时发生
	var couponDiscount int64
	if req.UserCouponID != nil {
		uc, err := s.coupons.ValidateForOrder(*userID, *req.UserCouponID)
		if err != nil {
			return nil, err
		}
		couponDiscount = couponService.Discount(uc.Coupon, productAmount)
	}

	// 积分此处只校验余额，真正扣减由结算侧原子执行
	if req.PointsToUse > 0 {
		account, err := s.points.GetAccount(*userID)
		if err != nil {
			return nil, err
		}
		if account.Balance < req.PointsToUse {
			return nil, pointsService.ErrInsufficientBalance
		}
	}

	total := productAmount + quote.Total - couponDiscount - req.PointsToUse
	if total < 0 {
		return nil, ErrPointsExceedPayable
	}

	order := &model.Order{
		OrderNo:        generateOrderNo(),
		UserID:         userID,
		Status:         model.StatusPending,
		CustomerName:   req.CustomerName,
		CustomerPhone:  req.CustomerPhone,
		PostalCode:     req.PostalCode,
		TotalAmount:    total,
		ShippingFee:    quote.Total,
		CouponDiscount: couponDiscount,
		PointsUsed:     req.PointsToUse,
		UserCouponID:   req.UserCouponID,
		PaymentMethod:  req.PaymentMethod,
	}
	if req.PaymentMethod == model.MethodVbank {
		// 虚拟账户随下单发放，订单直接进入等待入金态，入金期限起算
		order.Status = model.StatusPaymentPending
		deadline := time.Now().Add(config.GlobalConfig.Payment.VbankDeadline)
		order.DepositDeadline = &deadline
	}

	if err := s.repo.CreateOrder(order); err != nil {
		return nil, err
	}

	items := make([]model.OrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, model.OrderItem{
			OrderID:      order.ID,
			ProductName:  item.ProductName,
			ProductPrice: item.ProductPrice,
			Quantity:     item.Quantity,
			Options:      item.Options,
			AddOns:       item.AddOns,
		})
	}
	if err := s.repo.CreateItems(items); err != nil {
		s.compensate(order.ID, order.OrderNo, false)
		return nil, err
	}

	if len(req.IntakeAnswers) > 0 {
		intake := &model.IntakeSnapshot{OrderID: order.ID, Answers: req.IntakeAnswers}
		if err := s.repo.CreateIntake(intake); err != nil {
			s.compensate(order.ID, order.OrderNo, true)
			return nil, err
		}

		// 档案更新失败不影响订单
		if userID != nil {
			if err := s.repo.UpsertIntakeProfile(*userID, req.IntakeAnswers); err != nil && logger.Log != nil {
				logger.Log.Warn("intake profile upsert failed",
					zap.String("orderNo", order.OrderNo),
					zap.Error(err))
			}
		}
	}

	return s.repo.GetByOrderNo(order.OrderNo)
}

// compensate 倒序补偿删除：快照 → 订单项 → 订单
// 单步补偿失败只记录，不中断后续清理
func (s *orderService) compensate(orderID, orderNo string, itemsWritten bool) {
	logStep := func(step string, err error) {
		if err != nil && logger.Log != nil {
			logger.Log.Error("order rollback step failed",
				zap.String("orderNo", orderNo),
				zap.String("step", step),
				zap.Error(err))
		}
	}

	logStep("delete_intake", s.repo.DeleteIntakeByOrderID(orderID))
	if itemsWritten {
		logStep("delete_items", s.repo.DeleteItemsByOrderID(orderID))
	}
	logStep("delete_order", s.repo.DeleteOrderByID(orderID))
}

func (s *orderService) Get(orderNo string) (*model.Order, error) {
	order, err := s.repo.GetByOrderNo(orderNo)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return order, nil
}

func (s *orderService) CancelPending(orderNo string, userID *string) error {
	order, err := s.Get(orderNo)
	if err != nil {
		return err
	}
	// 归属校验：有主订单只允许本人删除
	if order.UserID != nil && (userID == nil || *order.UserID != *userID) {
		return ErrOrderNotFound
	}

	ok, err := s.repo.DeletePendingByOrderNo(orderNo)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOrderNotFound
		}
		return err
	}
	if !ok {
		return ErrNotCancellable
	}
	return nil
}

package service

import (
	"context"

	orderModel "health_mall/internal/domain/order/model"
	shippingService "health_mall/internal/domain/shipping/service"
)

// amountTolerance 金额比对容差，吸收 ±1 的舍入误差
const amountTolerance = 1

// amountsMatch 容差比对
func amountsMatch(a, b int64) bool {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff <= amountTolerance
}

// RecomputedAmount 独立重算结果
type RecomputedAmount struct {
	ProductAmount int64
	ShippingFee   int64
	Total         int64
}

// recomputeAmount 按订单项快照独立重算应付金额
// 运费重新报价，不信任下单时落库的值；券和积分按订单记录抵扣
func recomputeAmount(ctx context.Context, shipping shippingService.ShippingService, order *orderModel.Order) (*RecomputedAmount, error) {
	productAmount := order.ProductAmount()

	quote, err := shipping.Recompute(ctx, productAmount, order.PostalCode)
	if err != nil {
		return nil, err
	}

	return &RecomputedAmount{
		ProductAmount: productAmount,
		ShippingFee:   quote.Total,
		Total:         productAmount + quote.Total - order.CouponDiscount - order.PointsUsed,
	}, nil
}

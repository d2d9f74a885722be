package handler

import (
	"errors"
	"net/http"

	"health_mall/internal/domain/order/service"
	"health_mall/pkg/response"

	"github.com/gin-gonic/gin"
)

type OrderHandler struct {
	service service.OrderService
}

func NewOrderHandler(s service.OrderService) *OrderHandler {
	return &OrderHandler{service: s}
}

func currentUser(c *gin.Context) *string {
	if id := c.GetString("userID"); id != "" {
		return &id
	}
	return nil
}

// Create 创建订单
// @Summary 创建订单（支持游客）
// @Tags Order
// @Accept json
// @Produce json
// @Param request body service.CreateOrderRequest true "Order payload"
// @Success 200 {object} response.Response{data=model.Order}
// @Router /orders [post]
func (h *OrderHandler) Create(c *gin.Context) {
	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	order, err := h.service.Create(c.Request.Context(), currentUser(c), &req)
	if err != nil {
		h.writeCreateError(c, err)
		return
	}

	response.Success(c, order)
}

func (h *OrderHandler) writeCreateError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrEmptyItems),
		errors.Is(err, service.ErrInvalidPaymentMethod),
		errors.Is(err, service.ErrPointsExceedPayable):
		response.Error(c, http.StatusBadRequest, response.ErrOrderInvalid, err.Error())
	case errors.Is(err, service.ErrLoginRequired):
		response.Error(c, http.StatusUnauthorized, response.ErrAuthFailed, err.Error())
	default:
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
	}
}

// Get 查询订单
// @Summary 按订单号查询订单
// @Tags Order
// @Produce json
// @Param orderNo path string true "Order number"
// @Success 200 {object} response.Response{data=model.Order}
// @Router /orders/{orderNo} [get]
func (h *OrderHandler) Get(c *gin.Context) {
	order, err := h.service.Get(c.Param("orderNo"))
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			response.Error(c, http.StatusNotFound, response.ErrOrderNotFound, "Order not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
		return
	}

	response.Success(c, order)
}

// CancelPending 支付中止时删除待支付订单
// @Summary 删除仍处于 pending 的订单
// @Tags Order
// @Produce json
// @Param orderNo path string true "Order number"
// @Success 200 {object} response.Response
// @Router /orders/{orderNo} [delete]
func (h *OrderHandler) CancelPending(c *gin.Context) {
	err := h.service.CancelPending(c.Param("orderNo"), currentUser(c))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			response.Error(c, http.StatusNotFound, response.ErrOrderNotFound, "Order not found")
		case errors.Is(err, service.ErrNotCancellable):
			response.Error(c, http.StatusConflict, response.ErrOrderNotPending, "Order is no longer pending")
		default:
			response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
		}
		return
	}

	response.Success(c, nil)
}

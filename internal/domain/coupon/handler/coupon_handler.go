package handler

import (
	"errors"
	"net/http"

	"health_mall/internal/domain/coupon/service"
	"health_mall/pkg/response"

	"github.com/gin-gonic/gin"
)

type CouponHandler struct {
	service service.CouponService
}

func NewCouponHandler(s service.CouponService) *CouponHandler {
	return &CouponHandler{service: s}
}

// ListMine 查询我的优惠券
// @Summary 查询当前用户持有的优惠券
// @Tags Coupon
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=[]model.UserCoupon}
// @Router /coupons/me [get]
func (h *CouponHandler) ListMine(c *gin.Context) {
	userID := c.GetString("userID")

	list, err := h.service.ListMine(userID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
		return
	}

	response.Success(c, list)
}

// Claim 领取优惠券
// @Summary 领取指定优惠券
// @Tags Coupon
// @Produce json
// @Security BearerAuth
// @Param id path string true "Coupon ID"
// @Success 200 {object} response.Response{data=model.UserCoupon}
// @Router /coupons/{id}/claim [post]
func (h *CouponHandler) Claim(c *gin.Context) {
	userID := c.GetString("userID")
	couponID := c.Param("id")

	uc, err := h.service.Claim(userID, couponID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCouponNotFound):
			response.Error(c, http.StatusNotFound, response.ErrCouponNotFound, "Coupon not found")
		case errors.Is(err, service.ErrCouponNotActive):
			response.Error(c, http.StatusBadRequest, response.ErrCouponNotFound, "Coupon is not active")
		case errors.Is(err, service.ErrCouponOutOfStock):
			response.Error(c, http.StatusConflict, response.ErrCouponOutOfStock, "Coupon is out of stock")
		case errors.Is(err, service.ErrAlreadyClaimed):
			response.Error(c, http.StatusConflict, response.ErrCouponClaimed, "Coupon already claimed")
		default:
			response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
		}
		return
	}

	response.Success(c, uc)
}

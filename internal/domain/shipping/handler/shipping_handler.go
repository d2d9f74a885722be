package handler

import (
	"net/http"
	"strconv"

	"health_mall/internal/domain/shipping/service"
	"health_mall/pkg/response"

	"github.com/gin-gonic/gin"
)

type ShippingHandler struct {
	service service.ShippingService
}

func NewShippingHandler(s service.ShippingService) *ShippingHandler {
	return &ShippingHandler{service: s}
}

// GetFee 运费试算
// @Summary 按金额与邮编试算运费
// @Tags Shipping
// @Produce json
// @Param amount query int true "Product amount"
// @Param postalCode query string true "Postal code"
// @Success 200 {object} response.Response{data=service.Quote}
// @Router /shipping/fee [get]
func (h *ShippingHandler) GetFee(c *gin.Context) {
	amount, err := strconv.ParseInt(c.Query("amount"), 10, 64)
	if err != nil || amount < 0 {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, "Invalid amount")
		return
	}

	postalCode := c.Query("postalCode")
	if postalCode == "" {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, "Postal code is required")
		return
	}

	quote, err := h.service.Recompute(c.Request.Context(), amount, postalCode)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
		return
	}

	response.Success(c, quote)
}

package handler

import (
	"net/http"

	"health_mall/internal/domain/points/service"
	"health_mall/pkg/response"
	"health_mall/pkg/utils"

	"github.com/gin-gonic/gin"
)

type PointsHandler struct {
	service service.PointsService
}

func NewPointsHandler(s service.PointsService) *PointsHandler {
	return &PointsHandler{service: s}
}

// GetMyAccount 查询当前用户积分账户
// @Summary 查询积分余额与累计发生额
// @Tags Points
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=model.PointsAccount}
// @Router /points/me [get]
func (h *PointsHandler) GetMyAccount(c *gin.Context) {
	userID := c.GetString("userID")

	account, err := h.service.GetAccount(userID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
		return
	}

	response.Success(c, account)
}

// GetMyLedger 查询当前用户积分流水
// @Summary 分页查询积分流水
// @Tags Points
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page"
// @Param limit query int false "Limit"
// @Success 200 {object} response.Response{data=utils.PageResult}
// @Router /points/me/ledger [get]
func (h *PointsHandler) GetMyLedger(c *gin.Context) {
	userID := c.GetString("userID")

	var p utils.Pagination
	if err := c.ShouldBindQuery(&p); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, "Invalid pagination")
		return
	}
	offset, limit := p.Offset()

	entries, total, err := h.service.GetLedger(userID, offset, limit)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
		return
	}

	response.Success(c, utils.NewPageResult(entries, total, &p))
}

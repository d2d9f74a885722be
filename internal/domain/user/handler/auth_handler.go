package handler

import (
	"errors"
	"net/http"

	"health_mall/internal/domain/user/service"
	"health_mall/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	userService service.UserService
	otpService  service.OTPService
}

func NewAuthHandler(userService service.UserService, otpService service.OTPService) *AuthHandler {
	return &AuthHandler{userService: userService, otpService: otpService}
}

type SendOTPInput struct {
	Phone string `json:"phone" binding:"required"`
	Flow  string `json:"flow" binding:"required,oneof=login signup find_account reset_password"`
}

// SendOTP 发送验证码
// @Summary 发送短信验证码
// @Tags Auth
// @Accept json
// @Produce json
// @Param input body SendOTPInput true "Phone and flow"
// @Success 200 {object} response.Response
// @Router /auth/otp/send [post]
func (h *AuthHandler) SendOTP(c *gin.Context) {
	var input SendOTPInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	if err := h.otpService.Send(c.Request.Context(), input.Phone, input.Flow, c.ClientIP()); err != nil {
		var limited *service.RateLimitedError
		if errors.As(err, &limited) {
			response.Error(c, http.StatusTooManyRequests, response.ErrTooManyRequests, limited.Error())
			return
		}
		if errors.Is(err, service.ErrInvalidFlow) {
			response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
			return
		}
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
		return
	}

	response.Success(c, nil)
}

type VerifyOTPInput struct {
	Phone string `json:"phone" binding:"required"`
	Flow  string `json:"flow" binding:"required,oneof=login signup find_account reset_password"`
	Code  string `json:"code" binding:"required,len=6"`
}

// VerifyOTP 校验验证码
// @Summary 校验短信验证码，返回短时验证凭证
// @Tags Auth
// @Accept json
// @Produce json
// @Param input body VerifyOTPInput true "Phone, flow and code"
// @Success 200 {object} response.Response{data=string} "Verification token"
// @Router /auth/otp/verify [post]
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var input VerifyOTPInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	token, err := h.otpService.Verify(c.Request.Context(), input.Phone, input.Flow, input.Code)
	if err != nil {
		var limited *service.RateLimitedError
		var mismatch *service.MismatchError
		switch {
		case errors.As(err, &limited):
			response.Error(c, http.StatusTooManyRequests, response.ErrTooManyRequests, limited.Error())
		case errors.As(err, &mismatch):
			response.ErrorWithData(c, http.StatusBadRequest, response.ErrOTPMismatch, mismatch.Error(),
				gin.H{"remaining": mismatch.Remaining})
		case errors.Is(err, service.ErrOTPExpired):
			response.Error(c, http.StatusBadRequest, response.ErrOTPExpired, err.Error())
		case errors.Is(err, service.ErrOTPExhausted):
			response.Error(c, http.StatusBadRequest, response.ErrOTPExhausted, err.Error())
		case errors.Is(err, service.ErrOTPNotFound):
			response.Error(c, http.StatusNotFound, response.ErrOTPMismatch, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
		}
		return
	}

	response.Success(c, gin.H{"verification_token": token})
}

type LoginInput struct {
	VerificationToken string `json:"verificationToken" binding:"required"`
	Name              string `json:"name"`
}

// Login 登录或注册
// @Summary 凭验证凭证登录，新手机号自动注册
// @Tags Auth
// @Accept json
// @Produce json
// @Param input body LoginInput true "Verification token"
// @Success 200 {object} response.Response{data=string} "Session token"
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	token, err := h.userService.LoginOrRegister(input.VerificationToken, input.Name)
	if err != nil {
		response.Error(c, http.StatusUnauthorized, response.ErrAuthFailed, err.Error())
		return
	}

	response.Success(c, gin.H{"token": token})
}

// Me 当前用户信息
// @Summary 当前用户信息
// @Tags Auth
// @Produce json
// @Success 200 {object} response.Response
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	userID := c.GetString("userID")
	user, err := h.userService.GetUser(userID)
	if err != nil {
		response.Error(c, http.StatusNotFound, response.ErrUserNotFound, "User not found")
		return
	}
	response.Success(c, user)
}

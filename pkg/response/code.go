package response

// 业务状态码
const (
	CodeSuccess = 0
	CodeError   = 1

	// 用户/认证模块错误 100xx
	ErrUserNotFound = 10001
	ErrAuthFailed   = 10002
	ErrTokenInvalid = 10003
	ErrNoPermission = 10004
	ErrOTPExpired   = 10005
	ErrOTPMismatch  = 10006
	ErrOTPExhausted = 10007

	// 优惠券模块错误 200xx
	ErrCouponNotFound   = 20001
	ErrCouponOutOfStock = 20002
	ErrCouponClaimed    = 20003
	ErrCouponUsed       = 20004

	// 积分模块错误 210xx
	ErrPointsInsufficient = 21001

	// 订单模块错误 300xx
	ErrOrderNotFound   = 30001
	ErrOrderNotPending = 30002
	ErrOrderInvalid    = 30003

	// 支付模块错误 310xx
	ErrPaymentNotFound     = 31001
	ErrPaymentNotPaid      = 31002
	ErrAmountMismatch      = 31003
	ErrInvalidSignature    = 31004
	ErrProviderUnavailable = 31005

	// 系统错误 500xx
	ErrServerInternal  = 50001
	ErrInvalidParam    = 50002
	ErrTooManyRequests = 50003
)

package utils

import (
	"errors"
	"time"

	"health_mall/internal/pkg/config"

	"github.com/golang-jwt/jwt/v5"
)

// Claims 自定义JWT Claims
type Claims struct {
	UserID string `json:"user_id"`
	Role   int    `json:"role"`
	jwt.RegisteredClaims
}

// VerificationClaims 验证码校验通过后签发的短时凭证
// Flow 标记该凭证允许进入的流程，验证时必须精确匹配
type VerificationClaims struct {
	Phone string `json:"phone"`
	Flow  string `json:"flow"`
	jwt.RegisteredClaims
}

// GenerateToken 生成会话 JWT Token
func GenerateToken(userID string, role int) (string, *time.Time, error) {
	now := time.Now()
	expireTime := now.Add(time.Duration(config.GlobalConfig.JWT.Expire) * time.Hour)

	claims := Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expireTime),
			Issuer:    "health-mall",
		},
	}

	tokenClaims := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token, err := tokenClaims.SignedString([]byte(config.GlobalConfig.JWT.Secret))
	if err != nil {
		return "", nil, err
	}
	return token, &expireTime, nil
}

// ParseToken 验证会话 JWT Token
func ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, keyFunc)
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, jwt.ErrTokenInvalidClaims
}

// GenerateVerificationToken 签发手机验证凭证，10 分钟有效
func GenerateVerificationToken(phone, flow string) (string, error) {
	claims := VerificationClaims{
		Phone: phone,
		Flow:  flow,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(10 * time.Minute)),
			Issuer:    "health-mall",
			Subject:   "phone-verification",
		},
	}

	tokenClaims := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tokenClaims.SignedString([]byte(config.GlobalConfig.JWT.Secret))
}

// ParseVerificationToken 校验验证凭证并检查流程匹配
func ParseVerificationToken(tokenString, expectedFlow string) (*VerificationClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &VerificationClaims{}, keyFunc)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*VerificationClaims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.Flow != expectedFlow {
		return nil, errors.New("verification token issued for a different flow")
	}
	return claims, nil
}

func keyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, jwt.ErrSignatureInvalid
	}
	return []byte(config.GlobalConfig.JWT.Secret), nil
}

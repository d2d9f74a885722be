package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"health_mall/internal/pkg/config"
)

// 服务商侧支付状态
const (
	StatusPaid             = "paid"
	StatusReady            = "ready"
	StatusCancelled        = "cancelled"
	StatusPartialCancelled = "partial_cancelled"
	StatusFailed           = "failed"
)

var (
	// ErrPaymentNotFound 服务商侧查不到该交易
	ErrPaymentNotFound = errors.New("payment not found at provider")
	// ErrProviderUnavailable 传输层失败或服务商 5xx，调用方可安全重试
	ErrProviderUnavailable = errors.New("payment provider unavailable")
)

// Payment 服务商返回的交易信息
// 金额以服务商重新查询结果为准，绝不信任回调事件里携带的金额
type Payment struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Amount int64  `json:"amount"`
	Method string `json:"method"`
}

// Client 支付服务商查询客户端
type Client interface {
	GetPayment(ctx context.Context, paymentKey string) (*Payment, error)
}

type httpClient struct {
	baseURL   string
	apiSecret string
	client    *http.Client
	retries   int
}

// NewHTTPClient 按配置构造查询客户端
func NewHTTPClient(cfg *config.PaymentConfig) Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = 2
	}
	return &httpClient{
		baseURL:   cfg.BaseURL,
		apiSecret: cfg.APISecret,
		client:    &http.Client{Timeout: timeout},
		retries:   retries,
	}
}

func (c *httpClient) GetPayment(ctx context.Context, paymentKey string) (*Payment, error) {
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			// 传输层失败退避重试；业务错误不重试
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			}
		}

		payment, retryable, err := c.getOnce(ctx, paymentKey)
		if err == nil {
			return payment, nil
		}
		if !retryable {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, lastErr)
}

func (c *httpClient) getOnce(ctx context.Context, paymentKey string) (*Payment, bool, error) {
	url := fmt.Sprintf("%s/v1/payments/%s", c.baseURL, paymentKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, err
	}
	req.SetBasicAuth(c.apiSecret, "")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var payment Payment
		if err := json.NewDecoder(resp.Body).Decode(&payment); err != nil {
			return nil, false, fmt.Errorf("decode provider response: %w", err)
		}
		return &payment, false, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, false, ErrPaymentNotFound
	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("provider returned %d", resp.StatusCode)
	default:
		return nil, false, fmt.Errorf("provider returned %d", resp.StatusCode)
	}
}

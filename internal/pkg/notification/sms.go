package notification

import (
	"encoding/json"
	"fmt"

	"health_mall/internal/pkg/config"

	"github.com/aliyun/alibaba-cloud-sdk-go/services/dysmsapi"
)

// OrderSummary 订单通知内容
type OrderSummary struct {
	OrderNo        string
	CustomerName   string
	TotalAmount    int64
	ProductSummary string
}

// Service 通知发送接口
// 发送失败只记录，不影响主流程，调用方决定是否经 worker 异步化
type Service interface {
	SendOTP(phone, code string) error
	SendConfirmation(phone string, summary OrderSummary) error
	SendCancellation(phone string, summary OrderSummary) error
}

// AliyunSMSService 阿里云短信实现
type AliyunSMSService struct {
	client *dysmsapi.Client
	cfg    config.SMSConfig
}

func NewAliyunSMSService() (*AliyunSMSService, error) {
	cfg := config.GlobalConfig.SMS

	// 如果配置为空，为了不阻塞启动，返回错误交由调用方降级
	if cfg.AccessKeyID == "" {
		return nil, fmt.Errorf("sms config is missing")
	}

	client, err := dysmsapi.NewClientWithAccessKey(
		cfg.RegionID,
		cfg.AccessKeyID,
		cfg.AccessKeySecret,
	)
	if err != nil {
		return nil, err
	}

	return &AliyunSMSService{client: client, cfg: cfg}, nil
}

func (s *AliyunSMSService) SendOTP(phone, code string) error {
	param, _ := json.Marshal(map[string]string{"code": code})
	return s.send(phone, s.cfg.OTPTemplate, string(param))
}

func (s *AliyunSMSService) SendConfirmation(phone string, summary OrderSummary) error {
	return s.sendOrder(phone, s.cfg.OrderTemplate, summary)
}

func (s *AliyunSMSService) SendCancellation(phone string, summary OrderSummary) error {
	return s.sendOrder(phone, s.cfg.CancelTemplate, summary)
}

func (s *AliyunSMSService) sendOrder(phone, template string, summary OrderSummary) error {
	param, _ := json.Marshal(map[string]string{
		"order":   summary.OrderNo,
		"name":    summary.CustomerName,
		"amount":  fmt.Sprintf("%d", summary.TotalAmount),
		"product": summary.ProductSummary,
	})
	return s.send(phone, template, string(param))
}

func (s *AliyunSMSService) send(phone, template, param string) error {
	request := dysmsapi.CreateSendSmsRequest()
	request.Scheme = "https"
	request.PhoneNumbers = phone
	request.SignName = s.cfg.SignName
	request.TemplateCode = template
	request.TemplateParam = param

	resp, err := s.client.SendSms(request)
	if err != nil {
		return err
	}
	if resp.Code != "OK" {
		return fmt.Errorf("sms rejected: %s (%s)", resp.Code, resp.Message)
	}
	return nil
}

// GlobalService 实例
var GlobalService Service

func InitService() error {
	service, err := NewAliyunSMSService()
	if err != nil {
		return err
	}
	GlobalService = service
	return nil
}

package service

import (
	"context"
	"errors"
	"strconv"

	"health_mall/internal/domain/shipping/model"
	"health_mall/internal/domain/shipping/repository"
	"health_mall/internal/pkg/config"
	"health_mall/pkg/cache"

	"gorm.io/gorm"
)

// Quote 运费计算结果
type Quote struct {
	Base           int64  `json:"base"`
	AdditionalFee  int64  `json:"additionalFee"`
	Total          int64  `json:"total"`
	IsFreeShipping bool   `json:"isFreeShipping"`
	Message        string `json:"message"`
}

// ShippingService 运费服务
// 同步验证与回调对账均调用 Recompute 独立重算，绝不信任客户端或服务商带来的运费
type ShippingService interface {
	Recompute(ctx context.Context, productAmount int64, postalCode string) (*Quote, error)
}

type shippingService struct {
	repo  repository.ShippingRepository
	cache cache.CacheService
}

func NewShippingService(repo repository.ShippingRepository, c cache.CacheService) ShippingService {
	return &shippingService{repo: repo, cache: c}
}

const settingCacheKey = "shipping:setting"

func (s *shippingService) Recompute(ctx context.Context, productAmount int64, postalCode string) (*Quote, error) {
	setting, err := s.loadSetting(ctx)
	if err != nil {
		return nil, err
	}

	// 1. 基础运费：满额免基础运费
	base := setting.BaseFee
	free := productAmount >= setting.FreeThreshold
	if free {
		base = 0
	}

	// 2. 偏远地区附加费：先查表，查不到再按济州号段兜底
	additional, message := s.remoteSurcharge(postalCode, setting)

	return &Quote{
		Base:           base,
		AdditionalFee:  additional,
		Total:          base + additional,
		IsFreeShipping: free && additional == 0,
		Message:        message,
	}, nil
}

func (s *shippingService) remoteSurcharge(postalCode string, setting *model.ShippingSetting) (int64, string) {
	area, err := s.repo.GetRemoteArea(postalCode)
	if err == nil {
		return area.AdditionalFee, "remote area surcharge applied: " + area.RegionType
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		// 查表失败时按非偏远处理，宁可少收不可错收
		return 0, ""
	}

	if code, convErr := strconv.Atoi(postalCode); convErr == nil &&
		code >= model.JejuPostalMin && code <= model.JejuPostalMax {
		return setting.RemoteDefaultFee, "remote area surcharge applied: " + model.RegionJeju
	}

	return 0, ""
}

// loadSetting 读取生效运费设置，带短期缓存；表中无记录时回退到配置兜底值
func (s *shippingService) loadSetting(ctx context.Context) (*model.ShippingSetting, error) {
	if s.cache != nil {
		var cached model.ShippingSetting
		if err := s.cache.Get(ctx, settingCacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	setting, err := s.repo.GetActiveSetting()
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			cfg := config.GlobalConfig.Shipping
			setting = &model.ShippingSetting{
				BaseFee:          cfg.BaseFee,
				FreeThreshold:    cfg.FreeThreshold,
				RemoteDefaultFee: cfg.RemoteDefaultFee,
			}
		} else {
			return nil, err
		}
	}

	if s.cache != nil {
		_ = s.cache.Set(ctx, settingCacheKey, setting, config.GlobalConfig.Shipping.SettingsCacheTTL)
	}
	return setting, nil
}

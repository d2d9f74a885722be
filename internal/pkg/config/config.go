package config

import (
	"errors"
	"log"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config 全局配置结构体
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	App      AppConfig      `mapstructure:"app"`
	SMS      SMSConfig      `mapstructure:"sms"`
	Payment  PaymentConfig  `mapstructure:"payment"`
	Shipping ShippingConfig `mapstructure:"shipping"`
	Cron     CronConfig     `mapstructure:"cron"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	Port     string `mapstructure:"port"`
	SSLMode  string `mapstructure:"sslmode"`
	TimeZone string `mapstructure:"timezone"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Expire int64  `mapstructure:"expire"` // 小时
}

type AppConfig struct {
	Env         string `mapstructure:"env"`
	Debug       bool   `mapstructure:"debug"`
	TestOTPCode string `mapstructure:"test_otp_code"` // 非生产环境固定验证码，便于联调
}

type SMSConfig struct {
	AccessKeyID     string `mapstructure:"access_key_id"`
	AccessKeySecret string `mapstructure:"access_key_secret"`
	SignName        string `mapstructure:"sign_name"`
	RegionID        string `mapstructure:"region_id"`
	OTPTemplate     string `mapstructure:"otp_template"`
	OrderTemplate   string `mapstructure:"order_template"`
	CancelTemplate  string `mapstructure:"cancel_template"`
}

// PaymentConfig 外部支付服务商配置
type PaymentConfig struct {
	BaseURL       string        `mapstructure:"base_url"`       // 查询接口地址
	APISecret     string        `mapstructure:"api_secret"`     // 查询接口密钥
	WebhookSecret string        `mapstructure:"webhook_secret"` // 回调验签共享密钥
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxRetries    int           `mapstructure:"max_retries"`
	VbankDeadline time.Duration `mapstructure:"vbank_deadline"` // 虚拟账户入金期限
}

// ShippingConfig 运费兜底配置（设置表缺失时使用）
type ShippingConfig struct {
	BaseFee          int64         `mapstructure:"base_fee"`
	FreeThreshold    int64         `mapstructure:"free_threshold"`
	RemoteDefaultFee int64         `mapstructure:"remote_default_fee"`
	SettingsCacheTTL time.Duration `mapstructure:"settings_cache_ttl"`
}

// CronConfig 定时任务配置
type CronConfig struct {
	Secret        string        `mapstructure:"secret"`         // 触发接口的 Bearer 密钥
	SweepInterval time.Duration `mapstructure:"sweep_interval"` // 过期扫描间隔，0 表示只接受外部触发
}

var GlobalConfig Config

// Validate 验证配置
func (c *Config) Validate() error {
	// JWT 配置验证
	if c.JWT.Secret == "" || c.JWT.Secret == "your_super_secret_key" {
		return errors.New("please set a secure JWT secret in production")
	}
	if len(c.JWT.Secret) < 32 {
		return errors.New("JWT secret should be at least 32 characters")
	}

	// 数据库配置验证
	if c.Database.Host == "" || c.Database.User == "" || c.Database.DBName == "" {
		return errors.New("database configuration is incomplete")
	}

	// Redis 配置验证
	if c.Redis.Addr == "" {
		return errors.New("redis address is required")
	}

	// 支付配置验证：回调验签密钥缺失时拒绝启动，防止验签形同虚设
	if c.Payment.WebhookSecret == "" {
		return errors.New("payment webhook secret is required")
	}
	if c.Cron.Secret == "" {
		return errors.New("cron secret is required")
	}

	return nil
}

// LoadConfig 加载配置
func LoadConfig() {
	// 获取环境变量，默认为dev
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}

	// 根据环境选择配置文件
	configName := "config"
	if env != "" && env != "dev" {
		configName = "config." + env
	}

	viper.SetConfigName(configName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	// 设置默认值
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("jwt.expire", 24)
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("app.env", "dev")
	viper.SetDefault("app.debug", true)
	viper.SetDefault("payment.timeout", 5*time.Second)
	viper.SetDefault("payment.max_retries", 2)
	viper.SetDefault("payment.vbank_deadline", 72*time.Hour)
	viper.SetDefault("shipping.base_fee", 3000)
	viper.SetDefault("shipping.free_threshold", 50000)
	viper.SetDefault("shipping.remote_default_fee", 3000)
	viper.SetDefault("shipping.settings_cache_ttl", 5*time.Minute)
	viper.SetDefault("cron.sweep_interval", 10*time.Minute)

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: Config file not found, using defaults or env vars: %v", err)
	}

	// 绑定环境变量
	viper.AutomaticEnv()

	if err := viper.Unmarshal(&GlobalConfig); err != nil {
		log.Fatalf("Unable to decode into struct: %v", err)
	}

	// 手动覆盖，以防 viper 无法正确解析复杂结构或环境变量
	if host := os.Getenv("DB_HOST"); host != "" {
		GlobalConfig.Database.Host = host
	}
	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		GlobalConfig.Redis.Addr = redisAddr
	}
	if jwtSecret := os.Getenv("JWT_SECRET"); jwtSecret != "" {
		GlobalConfig.JWT.Secret = jwtSecret
	}
	if whSecret := os.Getenv("PAYMENT_WEBHOOK_SECRET"); whSecret != "" {
		GlobalConfig.Payment.WebhookSecret = whSecret
	}
	if cronSecret := os.Getenv("CRON_SECRET"); cronSecret != "" {
		GlobalConfig.Cron.Secret = cronSecret
	}

	// 验证配置
	if err := GlobalConfig.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	log.Printf("Configuration loaded and validated successfully. Environment: %s", GlobalConfig.App.Env)
}

package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config 单个用途的限流配置
type Config struct {
	MaxRequests int           // 窗口内允许的最大请求数
	Window      time.Duration // 固定窗口长度
	Purpose     string        // 用途标识，参与限流 key 构造
}

// Result 限流检查结果
type Result struct {
	Allowed    bool
	Remaining  int           // 本窗口剩余配额
	ResetAt    time.Time     // 窗口重置时间
	RetryAfter time.Duration // 拒绝时距窗口重置的等待时长
}

// 预设配置
var (
	OTPSendPerPhone   = Config{MaxRequests: 3, Window: 30 * time.Minute, Purpose: "otp-send-phone"}
	OTPSendPerIP      = Config{MaxRequests: 10, Window: time.Hour, Purpose: "otp-send-ip"}
	OTPVerifyPerPhone = Config{MaxRequests: 5, Window: 5 * time.Minute, Purpose: "otp-verify-phone"}
)

// Limiter 固定窗口限流器
type Limiter interface {
	Check(ctx context.Context, identifier string, cfg Config) (*Result, error)
	Reset(ctx context.Context, identifier string, cfg Config) error
}

func key(identifier string, cfg Config) string {
	return fmt.Sprintf("ratelimit:%s:%s", cfg.Purpose, identifier)
}

// ---- Redis 实现 ----

// Lua 脚本：自增 + 首次设置过期，一次往返完成原子计数
// 返回 {count, pttl}
var checkScript = redis.NewScript(`
	local count = redis.call("INCR", KEYS[1])
	if count == 1 then
		redis.call("PEXPIRE", KEYS[1], ARGV[1])
	end
	local ttl = redis.call("PTTL", KEYS[1])
	return {count, ttl}
`)

// RedisLimiter Redis 固定窗口限流器
// INCR 在 Redis 侧原子执行，多实例部署下限流仍然准确
type RedisLimiter struct {
	rdb *redis.Client
}

func NewRedisLimiter(rdb *redis.Client) *RedisLimiter {
	return &RedisLimiter{rdb: rdb}
}

func (l *RedisLimiter) Check(ctx context.Context, identifier string, cfg Config) (*Result, error) {
	vals, err := checkScript.Run(ctx, l.rdb, []string{key(identifier, cfg)}, cfg.Window.Milliseconds()).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("rate limit check failed: %w", err)
	}

	count, ttlMs := vals[0], vals[1]
	if ttlMs < 0 {
		ttlMs = cfg.Window.Milliseconds()
	}
	resetAt := time.Now().Add(time.Duration(ttlMs) * time.Millisecond)

	if count > int64(cfg.MaxRequests) {
		return &Result{
			Allowed:    false,
			Remaining:  0,
			ResetAt:    resetAt,
			RetryAfter: time.Duration(ttlMs) * time.Millisecond,
		}, nil
	}

	return &Result{
		Allowed:   true,
		Remaining: cfg.MaxRequests - int(count),
		ResetAt:   resetAt,
	}, nil
}

func (l *RedisLimiter) Reset(ctx context.Context, identifier string, cfg Config) error {
	return l.rdb.Del(ctx, key(identifier, cfg)).Err()
}

// ---- 内存实现 ----

type memoryEntry struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter 进程内固定窗口限流器
// 仅单实例部署可用；互斥锁保证进程内计数串行
type MemoryLimiter struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	now     func() time.Time
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		entries: make(map[string]*memoryEntry),
		now:     time.Now,
	}
}

func (l *MemoryLimiter) Check(_ context.Context, identifier string, cfg Config) (*Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	k := key(identifier, cfg)

	e, ok := l.entries[k]
	if !ok || now.After(e.resetAt) {
		// 新窗口：计数从 1 开始
		e = &memoryEntry{count: 1, resetAt: now.Add(cfg.Window)}
		l.entries[k] = e
		return &Result{Allowed: true, Remaining: cfg.MaxRequests - 1, ResetAt: e.resetAt}, nil
	}

	if e.count >= cfg.MaxRequests {
		return &Result{
			Allowed:    false,
			Remaining:  0,
			ResetAt:    e.resetAt,
			RetryAfter: e.resetAt.Sub(now),
		}, nil
	}

	e.count++
	return &Result{Allowed: true, Remaining: cfg.MaxRequests - e.count, ResetAt: e.resetAt}, nil
}

func (l *MemoryLimiter) Reset(_ context.Context, identifier string, cfg Config) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, key(identifier, cfg))
	return nil
}

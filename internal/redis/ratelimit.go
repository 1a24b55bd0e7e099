package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Rate limiting key patterns:
// - ratelimit:{user_id}:sms_example - per-user example sends
// - ratelimit:{ip}:api - per-ip API requests

type RateLimitConfig struct {
	ExampleLimit  int
	ExampleWindow time.Duration
	RequestLimit  int
	RequestWindow time.Duration
}

func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		ExampleLimit:  10,
		ExampleWindow: 60 * time.Second,
		RequestLimit:  600,
		RequestWindow: 60 * time.Second,
	}
}

// RateLimiter handles rate limiting using Redis
type RateLimiter struct {
	client *goredis.Client
	config RateLimitConfig
}

type RateLimitResult struct {
	Allowed   bool
	Remaining int
	ResetIn   time.Duration
	Limit     int
}

func NewRateLimiter(client *goredis.Client, config RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		client: client,
		config: config,
	}
}

// AllowExample checks if a user may send another example sms.
func (r *RateLimiter) AllowExample(ctx context.Context, userID string) (*RateLimitResult, error) {
	key := fmt.Sprintf("ratelimit:%s:sms_example", userID)
	return r.checkLimit(ctx, key, r.config.ExampleLimit, r.config.ExampleWindow)
}

// AllowRequest checks the per-ip API budget.
func (r *RateLimiter) AllowRequest(ctx context.Context, ip string) (*RateLimitResult, error) {
	key := fmt.Sprintf("ratelimit:%s:api", ip)
	return r.checkLimit(ctx, key, r.config.RequestLimit, r.config.RequestWindow)
}

var limitScript = goredis.NewScript(`
	local key = KEYS[1]
	local limit = tonumber(ARGV[1])
	local window = tonumber(ARGV[2])

	local current = redis.call('GET', key)
	if current == false then
		current = 0
	else
		current = tonumber(current)
	end

	local ttl = redis.call('TTL', key)
	if ttl < 0 then
		ttl = window
	end

	if current < limit then
		redis.call('INCR', key)
		if ttl == window then
			redis.call('EXPIRE', key, window)
		end
		return {1, limit - current - 1, ttl}
	else
		return {0, 0, ttl}
	end
`)

// checkLimit increments and checks a fixed window counter atomically.
func (r *RateLimiter) checkLimit(ctx context.Context, key string, limit int, window time.Duration) (*RateLimitResult, error) {
	if limit <= 0 {
		return &RateLimitResult{Allowed: true, Limit: limit}, nil
	}
	result, err := limitScript.Run(ctx, r.client, []string{key}, limit, int(window.Seconds())).Result()
	if err != nil {
		return nil, fmt.Errorf("rate limit check failed: %w", err)
	}
	return parseLimitResult(result, limit)
}

func parseLimitResult(result interface{}, limit int) (*RateLimitResult, error) {
	values, ok := result.([]interface{})
	if !ok || len(values) < 3 {
		return nil, fmt.Errorf("unexpected rate limit result format")
	}
	nums := make([]int64, 3)
	for i := range nums {
		n, ok := values[i].(int64)
		if !ok {
			return nil, fmt.Errorf("unexpected rate limit result format")
		}
		nums[i] = n
	}
	return &RateLimitResult{
		Allowed:   nums[0] == 1,
		Remaining: int(nums[1]),
		ResetIn:   time.Duration(nums[2]) * time.Second,
		Limit:     limit,
	}, nil
}

// ResetExample clears the example budget for a user.
func (r *RateLimiter) ResetExample(ctx context.Context, userID string) error {
	return r.client.Del(ctx, fmt.Sprintf("ratelimit:%s:sms_example", userID)).Err()
}

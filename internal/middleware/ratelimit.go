package middleware

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/benvon/task-analyzer/internal/request"
	"github.com/benvon/task-analyzer/internal/settings"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	stdlibmw "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	memorystore "github.com/ulule/limiter/v3/drivers/store/memory"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.uber.org/zap"
)

const limiterKeyPrefix = "task_analyzer_limiter"

// NewRedisClient parses redisURL and verifies the connection.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// NewLimiterStore returns a Redis backed store shared by every server
// instance, or a process-local memory store when client is nil.
func NewLimiterStore(client *redis.Client) (limiter.Store, error) {
	if client == nil {
		return memorystore.NewStoreWithOptions(limiter.StoreOptions{
			Prefix:          limiterKeyPrefix,
			CleanUpInterval: time.Minute,
		}), nil
	}
	store, err := redisstore.NewStoreWithOptions(client, limiter.StoreOptions{
		Prefix:   limiterKeyPrefix,
		MaxRetry: 3,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create redis limiter store: %w", err)
	}
	return store, nil
}

// RateLimitReloader wraps ulule/limiter and swaps in a new rate whenever the
// settings store reloads. Counters live in the store and survive a swap.
type RateLimitReloader struct {
	store       limiter.Store
	settings    *settings.Store
	defaultRate string
	log         *zap.Logger

	mu      sync.RWMutex
	next    http.Handler
	current http.Handler
	rate    string
}

// NewRateLimitReloader creates a rate limit middleware. defaultRate is used
// when the settings carry an unparsable rate.
func NewRateLimitReloader(store limiter.Store, settingsStore *settings.Store, defaultRate string, log *zap.Logger) *RateLimitReloader {
	if defaultRate == "" {
		defaultRate = settings.DefaultRate
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RateLimitReloader{
		store:       store,
		settings:    settingsStore,
		defaultRate: defaultRate,
		log:         log,
	}
}

// Middleware returns a middleware that wraps next with rate limiting and subscribes to reloads.
func (r *RateLimitReloader) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		r.mu.Lock()
		r.next = next
		r.mu.Unlock()
		r.apply(r.settings.Snapshot())
		r.settings.Subscribe(r.apply)
		return r
	}
}

// Rate returns the formatted rate currently enforced.
func (r *RateLimitReloader) Rate() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rate
}

func (r *RateLimitReloader) apply(snap *settings.Snapshot) {
	rateStr := r.defaultRate
	if snap != nil && snap.Settings.RateLimit.Rate != "" {
		rateStr = snap.Settings.RateLimit.Rate
	}

	rate, err := limiter.NewRateFromFormatted(rateStr)
	if err != nil {
		r.log.Error("failed_to_parse_rate_limit_using_default",
			zap.Error(err),
			zap.String("rate_str", rateStr),
			zap.String("default_rate", r.defaultRate),
		)
		rateStr = r.defaultRate
		rate, err = limiter.NewRateFromFormatted(rateStr)
		if err != nil {
			r.log.Error("failed_to_parse_default_rate_limit",
				zap.Error(err),
				zap.String("default_rate", r.defaultRate),
			)
			return
		}
	}

	instance := limiter.New(r.store, rate)
	mw := stdlibmw.NewMiddleware(instance,
		stdlibmw.WithKeyGetter(request.ClientIP),
		stdlibmw.WithLimitReachedHandler(func(w http.ResponseWriter, req *http.Request) {
			respondErrorJSON(w, req, http.StatusTooManyRequests, "ERR_RATE_LIMITED", "Too many requests, slow down", r.log)
		}),
	)

	r.mu.Lock()
	if r.next != nil {
		r.current = mw.Handler(r.next)
	}
	r.rate = rateStr
	r.mu.Unlock()

	r.log.Info("rate_limit_applied", zap.String("rate", rateStr))
}

// ServeHTTP implements http.Handler.
func (r *RateLimitReloader) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mu.RLock()
	h := r.current
	if h == nil {
		h = r.next
	}
	r.mu.RUnlock()
	if h != nil {
		h.ServeHTTP(w, req)
	}
}

package ratelimit

import (
	"sync"
	"time"

	"github.com/hindsight-run/hindsight/internal/logging"
)

var log = logging.GetLogger("ratelimit")

// LimitResult contains the result of a rate limit check.
type LimitResult struct {
	Allowed    bool          // whether the request is allowed
	RetryAfter time.Duration // suggested wait time if not allowed
	LimitType  string        // "global" or scope name
	Remaining  float64       // remaining tokens in the relevant bucket
}

// Limiter manages rate limiting with a global bucket and one bucket
// per LLM call scope (llm.CallOptions.Scope: "extract", "consolidate",
// "reflect", ...).
type Limiter struct {
	mu            sync.RWMutex
	enabled       bool
	globalBucket  *Bucket
	scopeBuckets  map[string]*Bucket
	config        *Config
	metrics       *Metrics
}

// NewLimiter creates a new rate limiter from configuration.
func NewLimiter(cfg *Config) *Limiter {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	l := &Limiter{
		enabled:      cfg.Enabled,
		scopeBuckets: make(map[string]*Bucket),
		config:       cfg,
		metrics:      NewMetrics(),
	}

	l.globalBucket = NewBucket(
		float64(cfg.Global.BurstSize),
		cfg.Global.RequestsPerSecond,
	)

	for _, scopeLimit := range cfg.Scopes {
		l.scopeBuckets[scopeLimit.Name] = NewBucket(
			float64(scopeLimit.BurstSize),
			scopeLimit.RequestsPerSecond,
		)
	}

	return l
}

// Allow checks if a request for the given scope is allowed.
// Returns a LimitResult with the decision and metadata.
func (l *Limiter) Allow(scope string) *LimitResult {
	if !l.enabled {
		return &LimitResult{
			Allowed:   true,
			LimitType: "disabled",
			Remaining: -1,
		}
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	if !l.globalBucket.TryConsume(1) {
		retryAfter := l.globalBucket.TimeToWait(1)
		l.metrics.RecordRejection("global", scope)
		log.Warn("rate limited", "limit_type", "global", "scope", scope, "retry_after", retryAfter)
		return &LimitResult{
			Allowed:    false,
			RetryAfter: retryAfter,
			LimitType:  "global",
			Remaining:  l.globalBucket.Tokens(),
		}
	}

	if scopeBucket, exists := l.scopeBuckets[scope]; exists {
		if !scopeBucket.TryConsume(1) {
			// The global token was already spent above; give it back
			// since this request is being rejected at the scope level.
			l.globalBucket.Refund(1)
			retryAfter := scopeBucket.TimeToWait(1)
			l.metrics.RecordRejection(scope, scope)
			log.Warn("rate limited", "limit_type", scope, "scope", scope, "retry_after", retryAfter)
			return &LimitResult{
				Allowed:    false,
				RetryAfter: retryAfter,
				LimitType:  scope,
				Remaining:  scopeBucket.Tokens(),
			}
		}
		l.metrics.RecordAllowed(scope)
		return &LimitResult{
			Allowed:   true,
			LimitType: scope,
			Remaining: scopeBucket.Tokens(),
		}
	}

	l.metrics.RecordAllowed(scope)
	return &LimitResult{
		Allowed:   true,
		LimitType: "global",
		Remaining: l.globalBucket.Tokens(),
	}
}

// IsEnabled returns whether rate limiting is enabled.
func (l *Limiter) IsEnabled() bool {
	return l.enabled
}

// SetEnabled enables or disables rate limiting.
func (l *Limiter) SetEnabled(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enabled = enabled
}

// GetMetrics returns the current metrics.
func (l *Limiter) GetMetrics() *Metrics {
	return l.metrics
}

// GetScopeBucket returns the bucket for a specific scope (for testing).
func (l *Limiter) GetScopeBucket(scope string) *Bucket {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.scopeBuckets[scope]
}

// GetGlobalBucket returns the global bucket (for testing).
func (l *Limiter) GetGlobalBucket() *Bucket {
	return l.globalBucket
}

// Reset resets all buckets to full capacity.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.globalBucket.Reset()
	for _, bucket := range l.scopeBuckets {
		bucket.Reset()
	}
}

// Stats returns current limiter statistics.
type Stats struct {
	Enabled      bool               `json:"enabled"`
	GlobalTokens float64            `json:"global_tokens"`
	ScopeTokens  map[string]float64 `json:"scope_tokens"`
}

// GetStats returns current limiter statistics.
func (l *Limiter) GetStats() *Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	stats := &Stats{
		Enabled:      l.enabled,
		GlobalTokens: l.globalBucket.Tokens(),
		ScopeTokens:  make(map[string]float64),
	}

	for name, bucket := range l.scopeBuckets {
		stats.ScopeTokens[name] = bucket.Tokens()
	}

	return stats
}

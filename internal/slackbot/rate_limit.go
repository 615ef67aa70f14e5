package slackbot

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limit scopes reported by RateLimiter.Check.
const (
	ScopeNone    = ""
	ScopeGlobal  = "global"
	ScopeUser    = "user"
	ScopeChannel = "channel"
)

// idleBucketTTL is how long an untouched per-key bucket is kept. A bucket
// idle this long has refilled, so dropping it changes nothing.
const idleBucketTTL = 10 * time.Minute

// RateLimiter combines per-user, per-channel and global token buckets, each
// refilling at its per-minute budget.
type RateLimiter struct {
	global  *rate.Limiter
	user    *keyedBuckets
	channel *keyedBuckets
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

type keyedBuckets struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	perSecond rate.Limit
	burst     int
	lastPrune time.Time
	now       func() time.Time
}

func newKeyedBuckets(perMinute, fallback int) *keyedBuckets {
	if perMinute <= 0 {
		perMinute = fallback
	}
	return &keyedBuckets{
		buckets:   make(map[string]*bucket),
		perSecond: rate.Limit(float64(perMinute) / 60.0),
		burst:     perMinute,
		now:       time.Now,
	}
}

func (k *keyedBuckets) allow(key string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	now := k.now()
	if now.Sub(k.lastPrune) > idleBucketTTL {
		for id, b := range k.buckets {
			if now.Sub(b.seen) > idleBucketTTL {
				delete(k.buckets, id)
			}
		}
		k.lastPrune = now
	}
	b, ok := k.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(k.perSecond, k.burst)}
		k.buckets[key] = b
	}
	b.seen = now
	return b.lim.AllowN(now, 1)
}

func (k *keyedBuckets) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.buckets)
}

// NewRateLimiter builds a limiter; non-positive budgets fall back to 10
// per user, 30 per channel and 100 overall per minute.
func NewRateLimiter(userPerMinute, channelPerMinute, globalPerMinute int) *RateLimiter {
	if globalPerMinute <= 0 {
		globalPerMinute = 100
	}
	return &RateLimiter{
		global:  rate.NewLimiter(rate.Limit(float64(globalPerMinute)/60.0), globalPerMinute),
		user:    newKeyedBuckets(userPerMinute, 10),
		channel: newKeyedBuckets(channelPerMinute, 30),
	}
}

// Check spends one token from each bucket the request falls into and
// returns the first scope that refused it, or ScopeNone.
func (r *RateLimiter) Check(userID, channelID string) string {
	if r == nil {
		return ScopeNone
	}
	if !r.global.Allow() {
		return ScopeGlobal
	}
	if !r.user.allow(userID) {
		return ScopeUser
	}
	if !r.channel.allow(channelID) {
		return ScopeChannel
	}
	return ScopeNone
}

// Allow reports whether the request fits every budget.
func (r *RateLimiter) Allow(userID, channelID string) bool {
	return r.Check(userID, channelID) == ScopeNone
}

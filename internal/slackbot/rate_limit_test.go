package slackbot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_Scopes(t *testing.T) {
	rl := NewRateLimiter(2, 3, 100)

	assert.Equal(t, ScopeNone, rl.Check("U1", "C1"))
	assert.Equal(t, ScopeNone, rl.Check("U1", "C1"))
	assert.Equal(t, ScopeUser, rl.Check("U1", "C1"))

	assert.Equal(t, ScopeNone, rl.Check("U2", "C1"))
	assert.Equal(t, ScopeChannel, rl.Check("U3", "C1"))
	assert.True(t, rl.Allow("U3", "C2"))
}

func TestRateLimiter_Global(t *testing.T) {
	rl := NewRateLimiter(100, 100, 1)
	assert.True(t, rl.Allow("U1", "C1"))
	assert.Equal(t, ScopeGlobal, rl.Check("U2", "C2"))
}

func TestRateLimiter_NilAllowsEverything(t *testing.T) {
	var rl *RateLimiter
	assert.True(t, rl.Allow("U1", "C1"))
}

func TestKeyedBuckets_PrunesIdle(t *testing.T) {
	now := time.Date(2025, 12, 1, 9, 0, 0, 0, time.UTC)
	k := newKeyedBuckets(5, 10)
	k.now = func() time.Time { return now }

	k.allow("U1")
	k.allow("U2")
	assert.Equal(t, 2, k.size())

	now = now.Add(idleBucketTTL + time.Minute)
	k.allow("U3")
	assert.Equal(t, 1, k.size())
}

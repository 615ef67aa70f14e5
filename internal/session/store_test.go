package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ca-srg/nova/internal/params"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 12, 1, 9, 0, 0, 0, time.UTC)}
}

func monthly(id string) *Context {
	return NewContext(id, params.Params{Market: "UK", Year: 2025}, MonthlyReviewPayload{Answer: id}, time.Time{})
}

func keys(s *Store) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for el := s.order.Back(); el != nil; el = el.Prev() {
		out = append(out, el.Value.(*entry).id)
	}
	return out
}

func TestStore_BoundedBySize(t *testing.T) {
	s := NewStore(Config{MaxContexts: 3})
	for i := 0; i < 10; i++ {
		id := fmt.Sprintf("t%d", i)
		s.Put(id, monthly(id))
		assert.LessOrEqual(t, s.Len(), 3)
	}
	assert.Equal(t, []string{"t7", "t8", "t9"}, keys(s))
}

func TestStore_TouchRefreshesOrder(t *testing.T) {
	s := NewStore(Config{MaxContexts: 3})
	s.Put("A", monthly("A"))
	s.Put("B", monthly("B"))
	s.Put("C", monthly("C"))

	_, ok := s.GetAndTouch("A")
	require.True(t, ok)
	s.Put("D", monthly("D"))

	_, ok = s.GetAndTouch("B")
	assert.False(t, ok, "B should be evicted as least recently used")
	_, ok = s.GetAndTouch("A")
	assert.True(t, ok)
	assert.Equal(t, 3, s.Len())
}

func TestStore_OverwriteKeepsSingleSlot(t *testing.T) {
	s := NewStore(Config{MaxContexts: 2})
	s.Put("A", monthly("A"))
	s.Put("B", monthly("B"))

	plan := NewContext("A", params.Params{Market: "UK"}, PlanPayload{Currency: "GBP"}, time.Time{})
	s.Put("A", plan)
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []string{"B", "A"}, keys(s))

	got, ok := s.GetAndTouch("A")
	require.True(t, ok)
	assert.Equal(t, KindStrategicPlan, got.Kind())
}

func TestStore_GetMissingIsNotAnError(t *testing.T) {
	s := NewStore(Config{})
	c, ok := s.GetAndTouch("nope")
	assert.Nil(t, c)
	assert.False(t, ok)
	assert.False(t, s.Remove("nope"))
}

func TestStore_Remove(t *testing.T) {
	s := NewStore(Config{})
	s.Put("A", monthly("A"))
	assert.True(t, s.Remove("A"))
	assert.Zero(t, s.Len())
	assert.False(t, s.Remove("A"))
}

func TestStore_SweepExpired(t *testing.T) {
	clock := newClock()
	s := NewStore(Config{MaxContexts: 10}, WithClock(clock.Now))

	s.Put("old", monthly("old"))
	clock.Advance(20 * time.Minute)
	s.Put("fresh", monthly("fresh"))
	clock.Advance(15 * time.Minute)

	assert.Equal(t, 1, s.SweepExpired(clock.Now(), 30*time.Minute))
	assert.Equal(t, []string{"fresh"}, keys(s))
	assert.Zero(t, s.SweepExpired(clock.Now(), 30*time.Minute), "sweep is idempotent")
	assert.Zero(t, s.SweepExpired(clock.Now(), 0))
}

func TestStore_TouchProtectsFromSweep(t *testing.T) {
	clock := newClock()
	s := NewStore(Config{MaxContexts: 10}, WithClock(clock.Now))

	s.Put("A", monthly("A"))
	s.Put("B", monthly("B"))
	clock.Advance(time.Hour)
	_, _ = s.GetAndTouch("A")

	assert.Equal(t, 1, s.SweepExpired(clock.Now(), 30*time.Minute))
	_, ok := s.GetAndTouch("A")
	assert.True(t, ok)
}

func TestStore_SweepRunsEveryNthPutBeforeSizeBound(t *testing.T) {
	clock := newClock()
	s := NewStore(Config{MaxContexts: 3, MaxAge: time.Minute, SweepEvery: 3}, WithClock(clock.Now))

	s.Put("A", monthly("A"))
	s.Put("B", monthly("B"))
	clock.Advance(2 * time.Minute)

	// Third put sweeps A and B first, so C is not competing for space.
	s.Put("C", monthly("C"))
	assert.Equal(t, []string{"C"}, keys(s))

	clock.Advance(2 * time.Minute)
	s.Put("D", monthly("D"))
	assert.Equal(t, []string{"C", "D"}, keys(s), "no sweep on the fourth put")
}

func TestStore_PutNilPanics(t *testing.T) {
	s := NewStore(Config{})
	assert.Panics(t, func() { s.Put("A", nil) })
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s := NewStore(Config{MaxContexts: 5})
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				id := fmt.Sprintf("%d-%d", g, i%7)
				s.Put(id, monthly(id))
				s.GetAndTouch(id)
				if i%11 == 0 {
					s.Remove(id)
				}
			}
		}(g)
	}
	wg.Wait()
	assert.LessOrEqual(t, s.Len(), 5)
	assert.Len(t, s.items, s.order.Len())
}

func TestNewContext(t *testing.T) {
	p := params.Params{Market: "France", Year: 2025}
	c := NewContext("123.45", p, TrendPayload{Summary: "s"}, time.Unix(10, 0))
	assert.Equal(t, "123.45", c.ID())
	assert.Equal(t, KindInfluencerTrend, c.Kind())
	assert.Equal(t, time.Unix(10, 0), c.CreatedAt())

	got := c.Parameters()
	got.Market = "UK"
	assert.Equal(t, "France", c.Parameters().Market)

	assert.Panics(t, func() { NewContext("x", p, nil, time.Time{}) })
}

func TestJanitor_Sweeps(t *testing.T) {
	clock := newClock()
	s := NewStore(Config{}, WithClock(clock.Now))
	s.Put("A", monthly("A"))
	clock.Advance(time.Hour)

	j := NewJanitor(s, time.Minute, 10*time.Millisecond, nil)
	j.Start(context.Background())
	defer j.Stop()

	require.Eventually(t, func() bool { return s.Len() == 0 }, time.Second, 5*time.Millisecond)
	j.Stop()
	j.Stop()
}

func TestJanitor_DisabledWithoutMaxAge(t *testing.T) {
	s := NewStore(Config{})
	j := NewJanitor(s, 0, time.Millisecond, nil)
	j.Start(context.Background())
	j.mu.Lock()
	running := j.running
	j.mu.Unlock()
	assert.False(t, running)
	j.Stop()
}

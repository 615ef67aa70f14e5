package session

import (
	"context"
	"io"
	"log"
	"sync"
	"time"
)

// Janitor periodically applies the age sweep to a Store.
type Janitor struct {
	store    *Store
	maxAge   time.Duration
	interval time.Duration
	logger   *log.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// NewJanitor creates a janitor. The interval defaults to maxAge/2, at least one second.
func NewJanitor(store *Store, maxAge, interval time.Duration, logger *log.Logger) *Janitor {
	if interval <= 0 {
		interval = maxAge / 2
		if interval < time.Second {
			interval = time.Second
		}
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Janitor{store: store, maxAge: maxAge, interval: interval, logger: logger}
}

// Start launches the sweep loop. It is a no-op when already running or when
// maxAge is not positive.
func (j *Janitor) Start(ctx context.Context) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.running || j.maxAge <= 0 {
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	j.cancel = cancel
	j.done = make(chan struct{})
	j.running = true
	go j.run(loopCtx, j.done)
}

// Stop ends the loop and waits for it to exit.
func (j *Janitor) Stop() {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return
	}
	cancel, done := j.cancel, j.done
	j.mu.Unlock()

	cancel()
	<-done
}

func (j *Janitor) run(ctx context.Context, done chan struct{}) {
	defer func() {
		j.mu.Lock()
		j.running = false
		j.mu.Unlock()
		close(done)
	}()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := j.store.SweepExpired(j.store.now(), j.maxAge); n > 0 {
				j.logger.Printf("event=session_sweep removed=%d remaining=%d", n, j.store.Len())
			}
		}
	}
}

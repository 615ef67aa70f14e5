package slackbot

import (
	"io"
	"log"
	"sync"
)

// Dispatcher runs jobs in FIFO order per key and concurrently across keys,
// so messages of one conversation never race each other.
type Dispatcher struct {
	mu     sync.Mutex
	queues map[string]*keyQueue
	wg     sync.WaitGroup
	logger *log.Logger
}

type keyQueue struct {
	jobs []func()
}

// NewDispatcher creates an idle dispatcher.
func NewDispatcher(logger *log.Logger) *Dispatcher {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Dispatcher{queues: make(map[string]*keyQueue), logger: logger}
}

// Submit enqueues job behind earlier jobs with the same key.
func (d *Dispatcher) Submit(key string, job func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if q, ok := d.queues[key]; ok {
		q.jobs = append(q.jobs, job)
		return
	}
	q := &keyQueue{jobs: []func(){job}}
	d.queues[key] = q
	d.wg.Add(1)
	go d.drain(key, q)
}

func (d *Dispatcher) drain(key string, q *keyQueue) {
	defer d.wg.Done()
	for {
		d.mu.Lock()
		if len(q.jobs) == 0 {
			delete(d.queues, key)
			d.mu.Unlock()
			return
		}
		job := q.jobs[0]
		q.jobs = q.jobs[1:]
		d.mu.Unlock()

		d.run(key, job)
	}
}

func (d *Dispatcher) run(key string, job func()) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Printf("event=dispatch_panic session=%s panic=%v", key, r)
		}
	}()
	job()
}

// Wait blocks until every submitted job has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Pending returns the number of keys with queued or running jobs.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queues)
}

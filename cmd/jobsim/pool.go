package main

import (
	"container/heap"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/inconshreveable/log15.v2"
)

const (
	// a job slower than its timeout is failed with reason "timeout"
	defaultJobTimeoutMs = 1000

	minWorkers = 2
	maxWorkers = 16

	// flaky jobs fail this many attempts before succeeding, capped
	// by the job's max_retries
	flakyFailures = 2
)

// timestamps use a fixed-width format so they compare correctly as
// strings
const timestampFormat = "2006-01-02T15:04:05.000000000Z"

// Job is the queue entry and the wire representation at the same time.
type Job struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Payload     string `json:"payload"`
	Priority    int    `json:"priority"`
	DurationMs  int64  `json:"duration_ms,omitempty"`
	TimeoutMs   int64  `json:"timeout_ms,omitempty"`
	MaxRetries  int    `json:"max_retries,omitempty"`
	Status      string `json:"status"`
	Result      string `json:"result,omitempty"`
	Error       string `json:"error,omitempty"`
	Retries     int    `json:"retries"`
	CreatedAt   string `json:"created_at"`
	CompletedAt string `json:"completed_at,omitempty"`

	seq int64
}

// jobHeap orders by priority (higher first), then submission order.
type jobHeap []*Job

func (h jobHeap) Len() int { return len(h) }
func (h jobHeap) Less(i, j int) bool {
	if h[i].Priority != h[j].Priority {
		return h[i].Priority > h[j].Priority
	}
	return h[i].seq < h[j].seq
}
func (h jobHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *jobHeap) Push(x interface{}) { *h = append(*h, x.(*Job)) }
func (h *jobHeap) Pop() interface{} {
	old := *h
	n := len(old)
	job := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return job
}

// Pool is a priority worker pool with autoscaling. Workers block on
// the condition variable; scaling down just lowers the desired count
// and lets surplus workers exit when they wake up.
type Pool struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  jobHeap
	jobs   map[string]*Job
	seq    int64
	logger log15.Logger

	running int
	desired int
	active  int

	closed bool
}

func NewPool(workers int, logger log15.Logger) *Pool {
	p := &Pool{
		jobs:   make(map[string]*Job),
		logger: logger,
	}
	p.cond = sync.NewCond(&p.mu)
	p.Scale(workers)
	return p
}

// Submit queues a new job and returns it with its assigned id.
func (p *Pool) Submit(job *Job) *Job {
	p.mu.Lock()
	defer p.mu.Unlock()

	job.ID = uuid.New().String()
	job.Status = "pending"
	job.CreatedAt = time.Now().UTC().Format(timestampFormat)
	p.seq++
	job.seq = p.seq

	p.jobs[job.ID] = job
	heap.Push(&p.queue, job)
	p.cond.Signal()
	return job
}

// Get returns a job by id.
func (p *Pool) Get(id string) (*Job, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	job, ok := p.jobs[id]
	return job, ok
}

// Snapshot copies a job for serialization outside the lock.
func (p *Pool) Snapshot(id string) (Job, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	job, ok := p.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// Scale sets the desired worker count, spawning or retiring workers.
func (p *Pool) Scale(n int) {
	if n < 1 {
		n = 1
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.desired = n
	for p.running < p.desired {
		p.running++
		go p.worker()
	}
	p.cond.Broadcast()
}

// Stats reports the pool's counters.
func (p *Pool) Stats() (workers, active, queued, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running, p.active, len(p.queue), len(p.jobs)
}

// Close retires all workers.
func (p *Pool) Close() {
	p.mu.Lock()
	p.closed = true
	p.desired = 0
	p.cond.Broadcast()
	p.mu.Unlock()
}

// Autoscale grows the pool under backlog and shrinks it when idle.
// Called periodically by the autoscaler loop.
func (p *Pool) Autoscale() {
	p.mu.Lock()
	backlog := len(p.queue)
	running := p.running
	active := p.active
	p.mu.Unlock()

	switch {
	case backlog > running && running < maxWorkers:
		target := running + 2
		if target > maxWorkers {
			target = maxWorkers
		}
		p.logger.Debug("scaling up", "from", running, "to", target, "backlog", backlog)
		p.Scale(target)
	case backlog == 0 && active == 0 && running > minWorkers:
		p.logger.Debug("scaling down", "from", running, "to", running-1)
		p.Scale(running - 1)
	}
}

func (p *Pool) worker() {
	for {
		p.mu.Lock()
		for len(p.queue) == 0 && p.running <= p.desired && !p.closed {
			p.cond.Wait()
		}
		if p.closed || p.running > p.desired {
			p.running--
			p.mu.Unlock()
			return
		}
		job := heap.Pop(&p.queue).(*Job)
		job.Status = "processing"
		p.active++
		p.mu.Unlock()

		p.process(job)

		p.mu.Lock()
		p.active--
		p.mu.Unlock()
	}
}

func (p *Pool) process(job *Job) {
	timeoutMs := job.TimeoutMs
	if timeoutMs <= 0 {
		timeoutMs = defaultJobTimeoutMs
	}

	switch job.Type {
	case "sleep":
		if job.DurationMs > timeoutMs {
			time.Sleep(time.Duration(timeoutMs) * time.Millisecond)
			p.finish(job, "failed", "", "timeout")
			return
		}
		time.Sleep(time.Duration(job.DurationMs) * time.Millisecond)
		p.finish(job, "completed", job.Payload, "")

	case "flaky":
		failures := flakyFailures
		if job.MaxRetries > 0 && job.MaxRetries < failures {
			failures = job.MaxRetries
		}
		p.mu.Lock()
		if job.Retries < failures {
			job.Retries++
			job.Status = "pending"
			heap.Push(&p.queue, job)
			p.cond.Signal()
			p.mu.Unlock()
			p.logger.Debug("flaky job requeued", "id", job.ID, "retries", job.Retries)
			time.Sleep(100 * time.Millisecond)
			return
		}
		p.mu.Unlock()
		p.finish(job, "completed", job.Payload, "")

	default:
		// echo, test and anything else complete immediately with
		// the payload as result
		p.finish(job, "completed", job.Payload, "")
	}
}

func (p *Pool) finish(job *Job, status, result, errMsg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	job.Status = status
	job.Result = result
	job.Error = errMsg
	job.CompletedAt = time.Now().UTC().Format(timestampFormat)
}

// Package queue runs background jobs with retries.
//
// A job is any JSON-serialisable struct with a Handle method. Register a
// factory per job name on a Manager at boot, then dispatch:
//
//	m := queue.New(queue.NewMemoryDriver(1000))
//	m.Register("rating.recalculate", func() queue.Job { return &jobs.RecalculateRating{Reviews: svc} })
//	m.Dispatch(ctx, &jobs.RecalculateRating{TargetType: "product", TargetID: id})
//
// The driver is in-memory by default and Redis when QUEUE_DRIVER=redis.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shashiranjanraj/shopkart/pkg/logger"
	"github.com/shashiranjanraj/shopkart/pkg/metrics"
)

// Job is the interface every queued job must satisfy.
type Job interface {
	// JobName is the registry key used to rebuild the job from its payload.
	JobName() string
	Handle(ctx context.Context) error
}

// Driver is the queue storage backend. Pop returns (nil, nil) when it
// timed out without a job.
type Driver interface {
	Push(ctx context.Context, payload []byte) error
	Pop(ctx context.Context) ([]byte, error)
}

type envelope struct {
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	QueuedAt time.Time       `json:"queued_at"`
}

// Manager owns a driver, the job registry and the retry policy.
type Manager struct {
	mu       sync.RWMutex
	driver   Driver
	registry map[string]func() Job
	maxRetry int
	backoff  time.Duration
	failed   FailedStore
}

// New returns a Manager over driver with 3 attempts and a 1s linear backoff.
func New(driver Driver) *Manager {
	return &Manager{
		driver:   driver,
		registry: map[string]func() Job{},
		maxRetry: 3,
		backoff:  time.Second,
		failed:   &memoryFailedStore{},
	}
}

// SetRetry sets the attempt count and the base backoff between attempts.
func (m *Manager) SetRetry(attempts int, backoff time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maxRetry = max(attempts, 1)
	m.backoff = backoff
}

// SetFailedStore replaces where exhausted jobs are recorded.
func (m *Manager) SetFailedStore(s FailedStore) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed = s
}

// Register makes a job type available for deserialisation by name.
func (m *Manager) Register(name string, factory func() Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registry[name] = factory
}

// Dispatch serialises job and pushes it.
func (m *Manager) Dispatch(ctx context.Context, job Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("queue: marshal job %s: %w", job.JobName(), err)
	}
	env, err := json.Marshal(envelope{Type: job.JobName(), Payload: payload, QueuedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("queue: marshal envelope: %w", err)
	}

	m.mu.RLock()
	d := m.driver
	m.mu.RUnlock()
	return d.Push(ctx, env)
}

// Start launches n workers that run until ctx is cancelled. The returned
// WaitGroup completes once they have all exited.
func (m *Manager) Start(ctx context.Context, n int) *sync.WaitGroup {
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.work(ctx)
		}()
	}
	logger.Info("queue: workers started", "count", n)
	return &wg
}

func (m *Manager) work(ctx context.Context) {
	for ctx.Err() == nil {
		if _, err := m.ProcessNext(ctx); err != nil && ctx.Err() == nil {
			logger.Warn("queue: pop failed", "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(500 * time.Millisecond):
			}
		}
	}
}

// ProcessNext pops one job and runs it with retries. It reports whether a
// job was taken.
func (m *Manager) ProcessNext(ctx context.Context) (bool, error) {
	m.mu.RLock()
	d := m.driver
	m.mu.RUnlock()

	raw, err := d.Pop(ctx)
	if err != nil {
		return false, err
	}
	if raw == nil {
		return false, nil
	}
	m.process(ctx, raw)
	return true, nil
}

func (m *Manager) process(ctx context.Context, raw []byte) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		logger.Error("queue: bad envelope", "error", err)
		return
	}

	m.mu.RLock()
	factory, ok := m.registry[env.Type]
	m.mu.RUnlock()
	if !ok {
		logger.Warn("queue: unregistered job type", "type", env.Type)
		m.recordFailure(ctx, env.Type, env.Payload, errors.New("unregistered job type"), 0)
		return
	}

	job := factory()
	if err := json.Unmarshal(env.Payload, job); err != nil {
		logger.Error("queue: unmarshal payload", "type", env.Type, "error", err)
		m.recordFailure(ctx, env.Type, env.Payload, err, 0)
		return
	}

	m.runWithRetry(ctx, job, env.Payload)
}

func (m *Manager) runWithRetry(ctx context.Context, job Job, payload []byte) {
	m.mu.RLock()
	attempts, backoff := m.maxRetry, m.backoff
	m.mu.RUnlock()

	name := job.JobName()
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		start := time.Now()
		lastErr = job.Handle(ctx)
		if lastErr == nil {
			metrics.RecordQueueJob(name, "ok", start)
			logger.Debug("queue: job processed", "type", name)
			return
		}
		metrics.RecordQueueJob(name, "error", start)
		logger.Warn("queue: job failed", "type", name, "attempt", attempt, "error", lastErr)
		if attempt < attempts {
			select {
			case <-ctx.Done():
				m.recordFailure(ctx, name, payload, ctx.Err(), attempt)
				return
			case <-time.After(time.Duration(attempt) * backoff):
			}
		}
	}
	logger.Error("queue: job exhausted retries", "type", name, "error", lastErr)
	m.recordFailure(ctx, name, payload, lastErr, attempts)
}

func (m *Manager) recordFailure(ctx context.Context, jobType string, payload []byte, cause error, attempts int) {
	m.mu.RLock()
	store := m.failed
	m.mu.RUnlock()

	rec := FailedJob{JobType: jobType, Payload: string(payload), Error: cause.Error(), Attempts: attempts, FailedAt: time.Now().UTC()}
	if err := store.Save(context.WithoutCancel(ctx), rec); err != nil {
		logger.Error("queue: could not record failed job", "type", jobType, "error", err)
	}
}

// FailedJobs lists the exhausted jobs recorded by the manager's store.
func (m *Manager) FailedJobs(ctx context.Context) ([]FailedJob, error) {
	m.mu.RLock()
	store := m.failed
	m.mu.RUnlock()
	return store.List(ctx)
}
